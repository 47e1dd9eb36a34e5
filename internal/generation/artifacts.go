package generation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"parsewright/internal/logging"
)

// ArtifactStore writes candidate revisions to the parser directory as
// <target>_parser.go plus a JSON sidecar with generation metadata. Later
// revisions overwrite earlier ones, so the directory always holds the most
// recent candidate per target.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates a store rooted at dir. The directory is created
// on first save.
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

type artifactMeta struct {
	Target    string    `json:"target"`
	Model     string    `json:"model,omitempty"`
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"created_at"`
	SavedAt   time.Time `json:"saved_at"`
}

// Save writes the artifact's source and its sidecar. Returns the path of
// the source file. A failed sidecar write is logged, not fatal.
func (s *ArtifactStore) Save(target string, attempt int, a *Artifact) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create parser directory: %w", err)
	}

	path := s.SourcePath(target)
	if err := os.WriteFile(path, []byte(a.Source), 0644); err != nil {
		return "", fmt.Errorf("failed to write parser: %w", err)
	}

	meta := artifactMeta{
		Target:    target,
		Model:     a.Model,
		Attempt:   attempt,
		CreatedAt: a.CreatedAt,
		SavedAt:   time.Now(),
	}
	if data, err := json.MarshalIndent(meta, "", "  "); err == nil {
		if werr := os.WriteFile(s.metaPath(target), data, 0644); werr != nil {
			logging.GenerationWarn("failed to write parser metadata: %v", werr)
		}
	}

	logging.Generation("saved candidate: target=%s attempt=%d bytes=%d", target, attempt, len(a.Source))
	return path, nil
}

// Load reads a previously saved parser, restoring metadata when the
// sidecar is present.
func (s *ArtifactStore) Load(target string) (*Artifact, error) {
	data, err := os.ReadFile(s.SourcePath(target))
	if err != nil {
		return nil, fmt.Errorf("failed to read parser for %s: %w", target, err)
	}

	a := &Artifact{Source: string(data)}
	if raw, err := os.ReadFile(s.metaPath(target)); err == nil {
		var m artifactMeta
		if json.Unmarshal(raw, &m) == nil {
			a.Model = m.Model
			a.CreatedAt = m.CreatedAt
		}
	}
	return a, nil
}

// SourcePath returns where the target's parser source lives.
func (s *ArtifactStore) SourcePath(target string) string {
	return filepath.Join(s.dir, target+"_parser.go")
}

func (s *ArtifactStore) metaPath(target string) string {
	return filepath.Join(s.dir, target+"_parser.json")
}

package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// The audit trail is a separate append-only JSONL file recording every
// provider round trip and run verdict, so a failed run can be
// reconstructed after the fact: what went out, what came back, how long
// each call took.

// AuditEventType identifies what an audit event records.
type AuditEventType string

const (
	AuditRunStart    AuditEventType = "run_start"
	AuditRunEnd      AuditEventType = "run_end"
	AuditLLMRequest  AuditEventType = "llm_request"
	AuditLLMResponse AuditEventType = "llm_response"
	AuditLLMError    AuditEventType = "llm_error"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	Timestamp  int64             `json:"ts"` // Unix milliseconds
	EventType  AuditEventType    `json:"event"`
	RunID      string            `json:"run,omitempty"`
	Target     string            `json:"target,omitempty"`
	Model      string            `json:"model,omitempty"`
	Success    bool              `json:"success"`
	DurationMs int64             `json:"dur_ms,omitempty"`
	Error      string            `json:"error,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
}

var (
	auditMu   sync.Mutex
	auditFile *os.File
)

// InitAudit opens the audit trail under the log directory. No-op when
// file logging is disabled or the trail is already open.
func InitAudit() error {
	if !Enabled() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	mu.RLock()
	dir := logDir
	mu.RUnlock()

	name := fmt.Sprintf("%s_audit.log", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	auditFile = f

	fmt.Fprintf(auditFile, "# Audit trail started at %s\n", time.Now().Format(time.RFC3339))
	return nil
}

// CloseAudit closes the audit trail file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		_ = auditFile.Close()
		auditFile = nil
	}
}

// Audit appends one event to the trail. Events are dropped silently when
// the trail is not open so call sites never need to check.
func Audit(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	auditFile.WriteString(string(data) + "\n")
}

// =============================================================================
// CONVENIENCE WRAPPERS FOR COMMON EVENTS
// =============================================================================

// AuditRunStarted records the start of a synthesis run.
func AuditRunStarted(runID, target, model string) {
	Audit(AuditEvent{
		EventType: AuditRunStart,
		RunID:     runID,
		Target:    target,
		Model:     model,
		Success:   true,
	})
}

// AuditRunFinished records the final verdict of a synthesis run.
func AuditRunFinished(runID, target, verdict string, durationMs int64, success bool) {
	Audit(AuditEvent{
		EventType:  AuditRunEnd,
		RunID:      runID,
		Target:     target,
		Success:    success,
		DurationMs: durationMs,
		Detail:     map[string]string{"verdict": verdict},
	})
}

// AuditLLMSent records a provider request going out. kind distinguishes
// first generation from repair calls.
func AuditLLMSent(model, kind string, promptChars int) {
	Audit(AuditEvent{
		EventType: AuditLLMRequest,
		Model:     model,
		Success:   true,
		Detail: map[string]string{
			"kind":         kind,
			"prompt_chars": strconv.Itoa(promptChars),
		},
	})
}

// AuditLLMExchange records a completed provider round trip, successful
// or not.
func AuditLLMExchange(model, kind string, replyChars int, durationMs int64, err error) {
	event := AuditEvent{
		EventType:  AuditLLMResponse,
		Model:      model,
		Success:    true,
		DurationMs: durationMs,
		Detail: map[string]string{
			"kind":        kind,
			"reply_chars": strconv.Itoa(replyChars),
		},
	}
	if err != nil {
		event.EventType = AuditLLMError
		event.Success = false
		event.Error = err.Error()
	}
	Audit(event)
}

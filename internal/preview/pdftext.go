package preview

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// pdfStringRe matches the parenthesized string literals that text-showing
// operators carry in a content stream.
var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)`)

// extractPDFText pulls a rough text rendition of the first maxPages pages.
// pdfcpu emits raw content streams; the string operands are scraped out of
// them. Layout is not preserved, which is fine for a prompt excerpt.
func extractPDFText(path string, maxPages int) (string, error) {
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return "", fmt.Errorf("page count: %w", err)
	}

	pages := pageCount
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}
	selected := make([]string, 0, pages)
	for p := 1; p <= pages; p++ {
		selected = append(selected, strconv.Itoa(p))
	}

	tmpDir, err := os.MkdirTemp("", "parsewright-pdf-")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := api.ExtractContentFile(path, tmpDir, selected, nil); err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("read extracted content: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(tmpDir, name))
		if err != nil {
			continue
		}
		if text := scrapeContentText(string(data)); text != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(text)
		}
	}
	return b.String(), nil
}

// scrapeContentText joins every string literal found in a content stream.
func scrapeContentText(stream string) string {
	matches := pdfStringRe.FindAllStringSubmatch(stream, -1)
	if len(matches) == 0 {
		return ""
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(unescapePDFString(m[1])); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// unescapePDFString resolves the escape sequences PDF string literals may
// contain, including octal codes.
func unescapePDFString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '(', ')', '\\':
			b.WriteByte(s[i])
		case '0', '1', '2', '3', '4', '5', '6', '7':
			oct := string(s[i])
			for len(oct) < 3 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7' {
				i++
				oct += string(s[i])
			}
			if v, err := strconv.ParseUint(oct, 8, 16); err == nil && v < 256 {
				b.WriteByte(byte(v))
			}
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

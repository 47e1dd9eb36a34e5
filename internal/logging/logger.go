// Package logging provides category-based file logging for parsewright.
// Each category writes to its own date-prefixed file under the log
// directory, so a noisy LLM exchange never drowns out the loop trace.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Category identifies a log stream.
type Category string

const (
	CategoryBoot       Category = "boot"       // startup, config, wiring
	CategoryLoop       Category = "loop"       // repair loop state machine
	CategoryRunner     Category = "runner"     // candidate execution
	CategoryCompare    Category = "compare"    // verdicts
	CategoryGeneration Category = "generation" // prompt assembly, artifacts
	CategoryLLM        Category = "llm"        // provider requests
	CategoryPreview    Category = "preview"    // input previews
	CategoryStore      Category = "store"      // run history persistence
)

// Log levels, ordered. Messages below the configured level are dropped.
const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

// Options configures the package-level logging state.
type Options struct {
	Enabled bool
	Dir     string // log directory, created on demand
	Level   string // debug | info | warn | error
	JSON    bool   // one JSON object per line instead of text
}

var (
	mu       sync.RWMutex
	enabled  bool
	logDir   string
	logLevel = levelInfo
	jsonLogs bool
	loggers  = make(map[Category]*log.Logger)
	files    = make(map[Category]*os.File)
	noop     = log.New(io.Discard, "", 0)
)

// Initialize sets the package-level logging state. Call once at startup
// before any log writes; calling again reconfigures and drops open files.
func Initialize(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	closeAllLocked()

	enabled = opts.Enabled
	logDir = opts.Dir
	jsonLogs = opts.JSON
	logLevel = parseLevel(opts.Level)

	if !enabled {
		return nil
	}
	if logDir == "" {
		logDir = filepath.Join(".parsewright", "logs")
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		enabled = false
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func parseLevel(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// Get returns the logger for a category, creating its file on first use.
// When logging is disabled or the file cannot be opened, a discard logger
// is returned so call sites never need to check.
func Get(category Category) *log.Logger {
	mu.RLock()
	if !enabled {
		mu.RUnlock()
		return noop
	}
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return noop
	}
	if l, ok := loggers[category]; ok {
		return l
	}

	name := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), category)
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		loggers[category] = noop
		return noop
	}

	flags := log.Ldate | log.Ltime | log.Lmicroseconds
	if jsonLogs {
		flags = 0
	}
	l := log.New(f, "", flags)
	loggers[category] = l
	files[category] = f
	return l
}

func logAt(category Category, level int, levelName, format string, args ...interface{}) {
	mu.RLock()
	active := enabled && level >= logLevel
	jsonMode := jsonLogs
	mu.RUnlock()
	if !active {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if jsonMode {
		entry := map[string]string{
			"ts":       time.Now().Format(time.RFC3339Nano),
			"level":    levelName,
			"category": string(category),
			"msg":      msg,
		}
		if data, err := json.Marshal(entry); err == nil {
			Get(category).Println(string(data))
		}
		return
	}
	Get(category).Printf("[%s] %s", levelName, msg)
}

// Debug logs at debug level to the category's file.
func Debug(category Category, format string, args ...interface{}) {
	logAt(category, levelDebug, "DEBUG", format, args...)
}

// Info logs at info level to the category's file.
func Info(category Category, format string, args ...interface{}) {
	logAt(category, levelInfo, "INFO", format, args...)
}

// Warn logs at warn level to the category's file.
func Warn(category Category, format string, args ...interface{}) {
	logAt(category, levelWarn, "WARN", format, args...)
}

// Error logs at error level to the category's file.
func Error(category Category, format string, args ...interface{}) {
	logAt(category, levelError, "ERROR", format, args...)
}

// CloseAll flushes and closes every open log file. Safe to call more than
// once; loggers reopen lazily afterward if logging stays enabled.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	closeAllLocked()
}

func closeAllLocked() {
	for _, f := range files {
		_ = f.Close()
	}
	loggers = make(map[Category]*log.Logger)
	files = make(map[Category]*os.File)
}

// Enabled reports whether file logging is active.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// =============================================================================
// CATEGORY CONVENIENCE FUNCTIONS
// =============================================================================

// Boot logs startup events.
func Boot(format string, args ...interface{}) { Info(CategoryBoot, format, args...) }

// BootDebug logs startup details.
func BootDebug(format string, args ...interface{}) { Debug(CategoryBoot, format, args...) }

// BootError logs startup failures.
func BootError(format string, args ...interface{}) { Error(CategoryBoot, format, args...) }

// Loop logs repair-loop state changes.
func Loop(format string, args ...interface{}) { Info(CategoryLoop, format, args...) }

// LoopDebug logs repair-loop details.
func LoopDebug(format string, args ...interface{}) { Debug(CategoryLoop, format, args...) }

// LoopWarn logs repair-loop anomalies.
func LoopWarn(format string, args ...interface{}) { Warn(CategoryLoop, format, args...) }

// LoopError logs repair-loop failures.
func LoopError(format string, args ...interface{}) { Error(CategoryLoop, format, args...) }

// Runner logs candidate executions.
func Runner(format string, args ...interface{}) { Info(CategoryRunner, format, args...) }

// RunnerDebug logs candidate execution details.
func RunnerDebug(format string, args ...interface{}) { Debug(CategoryRunner, format, args...) }

// RunnerWarn logs candidate execution anomalies.
func RunnerWarn(format string, args ...interface{}) { Warn(CategoryRunner, format, args...) }

// RunnerError logs candidate execution failures.
func RunnerError(format string, args ...interface{}) { Error(CategoryRunner, format, args...) }

// Compare logs verdicts.
func Compare(format string, args ...interface{}) { Info(CategoryCompare, format, args...) }

// CompareDebug logs comparison details.
func CompareDebug(format string, args ...interface{}) { Debug(CategoryCompare, format, args...) }

// Generation logs code generation events.
func Generation(format string, args ...interface{}) { Info(CategoryGeneration, format, args...) }

// GenerationDebug logs code generation details.
func GenerationDebug(format string, args ...interface{}) { Debug(CategoryGeneration, format, args...) }

// GenerationWarn logs code generation anomalies.
func GenerationWarn(format string, args ...interface{}) { Warn(CategoryGeneration, format, args...) }

// GenerationError logs code generation failures.
func GenerationError(format string, args ...interface{}) { Error(CategoryGeneration, format, args...) }

// LLM logs provider requests and responses.
func LLM(format string, args ...interface{}) { Info(CategoryLLM, format, args...) }

// LLMDebug logs provider wire details.
func LLMDebug(format string, args ...interface{}) { Debug(CategoryLLM, format, args...) }

// LLMWarn logs provider anomalies such as retries.
func LLMWarn(format string, args ...interface{}) { Warn(CategoryLLM, format, args...) }

// LLMError logs provider failures.
func LLMError(format string, args ...interface{}) { Error(CategoryLLM, format, args...) }

// Preview logs input preview construction.
func Preview(format string, args ...interface{}) { Info(CategoryPreview, format, args...) }

// PreviewWarn logs preview degradations such as unreadable PDFs.
func PreviewWarn(format string, args ...interface{}) { Warn(CategoryPreview, format, args...) }

// Store logs run-history persistence.
func Store(format string, args ...interface{}) { Info(CategoryStore, format, args...) }

// StoreDebug logs run-history details.
func StoreDebug(format string, args ...interface{}) { Debug(CategoryStore, format, args...) }

// StoreError logs run-history failures.
func StoreError(format string, args ...interface{}) { Error(CategoryStore, format, args...) }

package logging

import (
	"fmt"
	"time"
)

// Timer measures the duration of one operation and reports it to a
// category's log when stopped.
type Timer struct {
	category  Category
	operation string
	start     time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, operation: operation, start: time.Now()}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() {
	Debug(t.category, "%s completed in %v", t.operation, time.Since(t.start))
}

// StopWithInfo logs the elapsed time at info level with extra context.
func (t *Timer) StopWithInfo(format string, args ...interface{}) {
	extra := ""
	if format != "" {
		extra = " | " + fmt.Sprintf(format, args...)
	}
	Info(t.category, "%s completed in %v%s", t.operation, time.Since(t.start), extra)
}

// StopWithThreshold logs at warn level when the operation exceeded the
// threshold, otherwise at debug level.
func (t *Timer) StopWithThreshold(threshold time.Duration) {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Warn(t.category, "%s took %v (threshold %v)", t.operation, elapsed, threshold)
		return
	}
	Debug(t.category, "%s completed in %v", t.operation, elapsed)
}

package runner

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"runtime/debug"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"parsewright/internal/logging"
	"parsewright/internal/tabular"
)

// ParseFunc is the shape every candidate must export: the path of the
// input document in, the full table out with the header row first.
type ParseFunc = func(string) ([][]string, error)

const defaultEntryPoint = "Parse"

// defaultAllowedImports lists the stdlib packages a candidate may import.
// The allowlist keeps candidates inside plain text wrangling; it is not a
// security boundary.
var defaultAllowedImports = []string{
	"bufio",
	"bytes",
	"compress/flate",
	"compress/zlib",
	"encoding/binary",
	"encoding/csv",
	"encoding/hex",
	"errors",
	"fmt",
	"io",
	"math",
	"os",
	"path/filepath",
	"regexp",
	"sort",
	"strconv",
	"strings",
	"time",
	"unicode",
	"unicode/utf16",
	"unicode/utf8",
}

// Config tunes a YaegiRunner. The zero value gets sensible defaults from
// NewYaegiRunner.
type Config struct {
	// Timeout bounds one execution, interpretation included. Zero means no
	// runner-level bound; the caller's context may still carry one.
	Timeout time.Duration

	// EntryPoint is the exported function looked up in package main.
	EntryPoint string

	// AllowedImports overrides the default stdlib allowlist.
	AllowedImports []string
}

// YaegiRunner interprets candidate programs with yaegi. Every Run builds a
// fresh interpreter, so candidates never see each other's state.
type YaegiRunner struct {
	timeout    time.Duration
	entryPoint string
	allowed    map[string]struct{}
}

// NewYaegiRunner creates a runner from cfg, filling in defaults for unset
// fields.
func NewYaegiRunner(cfg Config) *YaegiRunner {
	entry := cfg.EntryPoint
	if entry == "" {
		entry = defaultEntryPoint
	}
	imports := cfg.AllowedImports
	if imports == nil {
		imports = defaultAllowedImports
	}
	allowed := make(map[string]struct{}, len(imports))
	for _, p := range imports {
		allowed[p] = struct{}{}
	}
	return &YaegiRunner{
		timeout:    cfg.Timeout,
		entryPoint: entry,
		allowed:    allowed,
	}
}

// Run interprets source and invokes its entry point on inputPath. All
// candidate failures come back as a Fault; Run itself never panics and
// never returns a Go error.
func (r *YaegiRunner) Run(ctx context.Context, source, inputPath string) (*tabular.Dataset, *Fault) {
	timer := logging.StartTimer(logging.CategoryRunner, "run candidate")
	defer timer.Stop()

	if fault := r.checkSource(source); fault != nil {
		logging.RunnerWarn("pre-flight rejected candidate: %v", fault)
		return nil, fault
	}

	if r.timeout > 0 {
		if _, has := ctx.Deadline(); !has {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, &Fault{Reason: ReasonCompileError, Message: fmt.Sprintf("interpreter setup failed: %v", err)}
	}

	if fault := r.evalSource(ctx, i, source); fault != nil {
		logging.RunnerWarn("candidate failed to interpret: %v", fault)
		return nil, fault
	}

	fn, fault := r.resolveEntryPoint(i)
	if fault != nil {
		logging.RunnerWarn("entry point unusable: %v", fault)
		return nil, fault
	}

	rows, fault := r.invoke(ctx, fn, inputPath)
	if fault != nil {
		logging.RunnerWarn("candidate failed: %v", fault)
		return nil, fault
	}

	if rows == nil {
		return nil, &Fault{
			Reason:  ReasonNullResult,
			Message: fmt.Sprintf("%s returned a nil table", r.entryPoint),
		}
	}
	ds, err := tabular.FromRows(rows)
	if err != nil {
		return nil, &Fault{
			Reason:  ReasonWrongType,
			Message: fmt.Sprintf("returned value is not a rectangular table: %v", err),
		}
	}

	logging.RunnerDebug("candidate produced %d rows x %d columns", ds.RowCount(), ds.ColumnCount())
	return ds, nil
}

// checkSource rejects candidates before interpretation: wrong package,
// unparseable header, or imports outside the allowlist.
func (r *YaegiRunner) checkSource(source string) *Fault {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", source, parser.ImportsOnly)
	if err != nil {
		return &Fault{Reason: ReasonCompileError, Message: fmt.Sprintf("syntax error: %v", err)}
	}
	if file.Name.Name != "main" {
		return &Fault{
			Reason:  ReasonCompileError,
			Message: fmt.Sprintf("candidate must declare package main, got package %s", file.Name.Name),
		}
	}
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		if _, ok := r.allowed[path]; !ok {
			return &Fault{
				Reason:  ReasonForbiddenImport,
				Message: fmt.Sprintf("import %q is not allowed; stick to the standard library text and file packages", path),
			}
		}
	}
	return nil
}

// evalSource loads the candidate into the interpreter under the context's
// deadline.
func (r *YaegiRunner) evalSource(ctx context.Context, i *interp.Interpreter, source string) *Fault {
	type evalOutcome struct {
		err   error
		trace string
	}
	done := make(chan evalOutcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- evalOutcome{
					err:   fmt.Errorf("interpreter panic: %v", rec),
					trace: string(debug.Stack()),
				}
			}
		}()
		_, err := i.Eval(source)
		done <- evalOutcome{err: err}
	}()

	select {
	case <-ctx.Done():
		// The eval goroutine cannot be stopped; it is abandoned.
		return r.ctxFault(ctx, "interpretation")
	case out := <-done:
		if out.err != nil {
			return &Fault{
				Reason:  ReasonCompileError,
				Message: fmt.Sprintf("interpretation failed: %v", out.err),
				Trace:   out.trace,
			}
		}
	}
	return nil
}

// resolveEntryPoint looks up main.<EntryPoint> and asserts its signature.
func (r *YaegiRunner) resolveEntryPoint(i *interp.Interpreter) (ParseFunc, *Fault) {
	v, err := i.Eval("main." + r.entryPoint)
	if err != nil {
		return nil, &Fault{
			Reason:  ReasonEntryPointMissing,
			Message: fmt.Sprintf("candidate does not export %s: %v", r.entryPoint, err),
		}
	}
	fn, ok := v.Interface().(ParseFunc)
	if !ok {
		return nil, &Fault{
			Reason:  ReasonWrongSignature,
			Message: fmt.Sprintf("%s has type %T, want func(string) ([][]string, error)", r.entryPoint, v.Interface()),
		}
	}
	return fn, nil
}

// invoke calls the candidate's entry point, containing panics and
// honouring the context's deadline.
func (r *YaegiRunner) invoke(ctx context.Context, fn ParseFunc, inputPath string) ([][]string, *Fault) {
	type callOutcome struct {
		rows  [][]string
		err   error
		fault *Fault
	}
	done := make(chan callOutcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- callOutcome{fault: &Fault{
					Reason:  ReasonPanic,
					Message: fmt.Sprintf("panic: %v", rec),
					Trace:   string(debug.Stack()),
				}}
			}
		}()
		rows, err := fn(inputPath)
		done <- callOutcome{rows: rows, err: err}
	}()

	select {
	case <-ctx.Done():
		// As above, the running candidate is abandoned, not killed.
		return nil, r.ctxFault(ctx, "execution")
	case out := <-done:
		if out.fault != nil {
			return nil, out.fault
		}
		if out.err != nil {
			return nil, &Fault{Reason: ReasonEntryFailed, Message: out.err.Error()}
		}
		return out.rows, nil
	}
}

func (r *YaegiRunner) ctxFault(ctx context.Context, phase string) *Fault {
	if ctx.Err() == context.DeadlineExceeded {
		return &Fault{Reason: ReasonTimeout, Message: fmt.Sprintf("%s exceeded the time limit", phase)}
	}
	return &Fault{Reason: ReasonTimeout, Message: fmt.Sprintf("%s canceled: %v", phase, ctx.Err())}
}

// Package runner executes candidate parser programs inside an embedded
// interpreter, keeping their failures contained.
package runner

import (
	"context"
	"fmt"

	"parsewright/internal/tabular"
)

// Reason identifies why a candidate execution failed.
type Reason string

const (
	ReasonForbiddenImport   Reason = "forbidden_import"
	ReasonCompileError      Reason = "compile_error"
	ReasonEntryPointMissing Reason = "entry_point_missing"
	ReasonWrongSignature    Reason = "wrong_signature"
	ReasonWrongType         Reason = "wrong_type"
	ReasonNullResult        Reason = "null_result"
	ReasonEntryFailed       Reason = "entry_failed"
	ReasonPanic             Reason = "panic"
	ReasonTimeout           Reason = "timeout"
)

// Fault describes a contained candidate failure. A fault never propagates
// as a Go error up the loop; it becomes a report for the next repair.
type Fault struct {
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
}

// Error lets a Fault print naturally in logs.
func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

// ContractViolation reports whether the candidate ran to completion but
// returned a value outside the entry point contract.
func (f *Fault) ContractViolation() bool {
	switch f.Reason {
	case ReasonNullResult, ReasonWrongSignature, ReasonWrongType:
		return true
	}
	return false
}

// Runner executes one candidate program against one input document.
// Exactly one of the results is non-nil.
type Runner interface {
	Run(ctx context.Context, source, inputPath string) (*tabular.Dataset, *Fault)
}

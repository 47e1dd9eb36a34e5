// Package loop drives the bounded generate, validate, repair sequence as
// an explicit state machine with an inspectable transition history.
package loop

import "time"

// State identifies where the machine is within one run.
type State string

const (
	StateGenerating State = "generating"
	StateRunning    State = "running"
	StateComparing  State = "comparing"
	StateRepairing  State = "repairing"
	StateSucceeded  State = "succeeded"
	StateExhausted  State = "exhausted"
)

// Terminal reports whether the loop halts in this state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateExhausted
}

// Action names what a step performs.
type Action string

const (
	ActionGenerate Action = "generate"
	ActionExecute  Action = "execute"
	ActionValidate Action = "validate"
	ActionRepair   Action = "repair"
	ActionHalt     Action = "halt"
)

// Transition is one recorded state change.
type Transition struct {
	From      State             `json:"from"`
	To        State             `json:"to"`
	Action    Action            `json:"action"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

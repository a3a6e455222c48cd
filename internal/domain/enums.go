// Package domain defines the core domain models for the game backend.
package domain

// Outcome is the terminal classification of a session.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeForfeit Outcome = "forfeit"
)

// StatusPlaying is reported at the end of a turn that left the session in progress.
const StatusPlaying = "playing"

// Valid reports whether o is one of the terminal outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeWin, OutcomeLoss, OutcomeForfeit:
		return true
	}
	return false
}

// Role is the author of a history entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FunctionKind distinguishes the two namespaces of the function registry.
type FunctionKind string

const (
	KindSampler   FunctionKind = "sampler"
	KindValidator FunctionKind = "validator"
)

// Top-level session document fields accepted by the partial updater.
const (
	FieldHistory       = "history"
	FieldCompleted     = "completed"
	FieldOutcome       = "outcome"
	FieldCompletedTime = "completed_time"
	FieldShared        = "shared"
	FieldVisible       = "visible"
)

// TerminalFields are always written together.
var TerminalFields = []string{FieldCompleted, FieldOutcome, FieldCompletedTime}

// Validator kwargs injected when a function call is evaluated.
const (
	KwargFunctionCallName      = "function_call_name"
	KwargFunctionCallArguments = "function_call_arguments"
)

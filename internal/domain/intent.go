package domain

// IntentType classifies what the cook wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentComplete
	IntentUndo
	IntentStartTimer
	IntentPauseTimer
	IntentResumeTimer
	IntentResetTimer
	IntentSteps
	IntentStatus
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	switch i {
	case IntentComplete:
		return "complete"
	case IntentUndo:
		return "undo"
	case IntentStartTimer:
		return "start_timer"
	case IntentPauseTimer:
		return "pause_timer"
	case IntentResumeTimer:
		return "resume_timer"
	case IntentResetTimer:
		return "reset_timer"
	case IntentSteps:
		return "steps"
	case IntentStatus:
		return "status"
	case IntentHelp:
		return "help"
	case IntentQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// NeedsStep reports whether the intent operates on a single step.
func (i IntentType) NeedsStep() bool {
	switch i {
	case IntentComplete, IntentUndo, IntentStartTimer,
		IntentPauseTimer, IntentResumeTimer, IntentResetTimer:
		return true
	}
	return false
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	StepRef string  // 1-based step number or step id
	Minutes float64 // optional explicit timer length
	Raw     string
}

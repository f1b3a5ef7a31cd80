package simulation

import "fmt"

// GenerationError reports that variant generation failed: either the model
// call itself, or fewer than the required number of usable variants parsed.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("variant generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ReactionError reports a transport-level failure of one persona reaction
// call. Parse ambiguity never raises it; the parser absorbs that.
type ReactionError struct {
	PersonaID string
	Err       error
}

func (e *ReactionError) Error() string {
	return fmt.Sprintf("persona %s reaction failed: %v", e.PersonaID, e.Err)
}

func (e *ReactionError) Unwrap() error { return e.Err }

// SummarizationError reports a transport-level failure of the highlight
// summary call.
type SummarizationError struct {
	Err error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("highlight summarization failed: %v", e.Err)
}

func (e *SummarizationError) Unwrap() error { return e.Err }

// ValidationError reports caller-supplied input violating run preconditions.
// It is raised before any model call is issued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

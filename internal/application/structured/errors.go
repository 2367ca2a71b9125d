package structured

import "fmt"

// SchemaError reports a reply that does not match the target schema.
// Generators may wrap it to mark a provider-side shape rejection.
type SchemaError struct {
	// Output is the raw reply that failed
	Output string
	Err    error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("reply does not match schema: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// Outcome is the terminal state of a Generate call
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeExhausted Outcome = "exhausted"
)

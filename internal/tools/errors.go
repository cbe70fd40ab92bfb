package tools

import "fmt"

// ValidationError rejects a call before its handler runs: unknown tool,
// missing required parameter, or a parameter of the wrong type.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// HandlerError wraps a failure raised by a tool handler after validation
// passed.
type HandlerError struct {
	Tool Name
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

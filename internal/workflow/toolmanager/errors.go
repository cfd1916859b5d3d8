package toolmanager

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTool is returned when invoking a name that was never registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrSealed is returned when registering after Seal.
	ErrSealed = errors.New("tool registry is sealed")
	// ErrInvalidTool is returned for nil tools, empty or duplicate names.
	ErrInvalidTool = errors.New("invalid tool")
)

// UnknownToolError names the tool that could not be resolved.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q does not exist", e.Name)
}

func (e *UnknownToolError) Unwrap() error {
	return ErrUnknownTool
}

// ToolExecutionError wraps any failure of a tool handler, including argument
// decoding and validation.
type ToolExecutionError struct {
	Name string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Name, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

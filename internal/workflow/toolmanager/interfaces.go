package toolmanager

import (
	"context"

	"github.com/Cyclone1070/butterfi/internal/tool"
)

// Result is returned by tools after execution.
type Result interface {
	// LLMContent returns the serialized text sent to the LLM.
	LLMContent() string

	// Artifact returns the structured value kept for the current turn only.
	Artifact() any
}

// Tool defines the interface for individual tools.
// Input structs may implement fmt.Stringer for display and Validate() error
// for argument checks.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Declaration returns the tool's schema for the LLM.
	Declaration() tool.Declaration

	// Input returns a pointer to a fresh input struct (e.g., &SearchRequest{}).
	Input() any

	// Execute runs the tool with the decoded input.
	Execute(ctx context.Context, input any) (Result, error)
}

// Validator is implemented by input structs that check their own fields.
type Validator interface {
	Validate() error
}

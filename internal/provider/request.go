package provider

import "github.com/Cyclone1070/butterfi/internal/tool"

// MIMETypeJSON asks the model to answer with a JSON document.
const MIMETypeJSON = "application/json"

// GenerateRequest is a single model invocation.
type GenerateRequest struct {
	// Messages is the ordered model view of the conversation.
	// System messages are folded into the system instruction by backends.
	Messages []Message

	// Tools are offered to the model for native tool calling. Nil disables tools.
	Tools []tool.Declaration

	// ResponseMIMEType constrains the output format when set.
	ResponseMIMEType string

	// Temperature overrides the backend default when non-nil.
	Temperature *float32
}

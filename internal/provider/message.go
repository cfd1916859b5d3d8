package provider

// Role identifies the author of a message in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a single entry of a conversation.
type Message struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall

	// ToolCallID and ToolName bind a tool message to the call it answers.
	ToolCallID string
	ToolName   string

	// IsError marks a tool message whose content is an error report.
	IsError bool

	// UserAddress is side-channel context attached to user messages.
	UserAddress string
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// RequestsTools reports whether the message is an assistant turn asking for tools.
func (m Message) RequestsTools() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

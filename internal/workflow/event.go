package workflow

import "context"

// Event is the interface for all workflow events.
// UI handles events via type switch.
type Event interface {
	isEvent()
}

// ThinkingEvent is emitted when the LLM is processing.
type ThinkingEvent struct{}

func (ThinkingEvent) isEvent() {}

// StateEvent is emitted on every controller state transition.
type StateEvent struct {
	From string
	To   string
}

func (StateEvent) isEvent() {}

// ToolStartEvent is emitted when a tool execution begins.
type ToolStartEvent struct {
	ToolName       string
	CallID         string
	RequestDisplay string // e.g., "Searching \"5% APR\""
}

func (ToolStartEvent) isEvent() {}

// ToolEndEvent is emitted when a tool completes.
type ToolEndEvent struct {
	ToolName string
	CallID   string
	IsError  bool
}

func (ToolEndEvent) isEvent() {}

// DoneEvent is emitted when the turn reaches its terminal state.
type DoneEvent struct{}

func (DoneEvent) isEvent() {}

// Emit delivers ev unless events is nil or ctx is done first.
func Emit(ctx context.Context, events chan<- Event, ev Event) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

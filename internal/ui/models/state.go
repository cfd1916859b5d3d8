package models

import (
	"github.com/Cyclone1070/butterfi/internal/reply"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
)

// Message roles shown in the chat history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleError     = "error"
)

// Status phases shown in the status bar.
const (
	PhaseReady     = "ready"
	PhaseThinking  = "thinking"
	PhaseExecuting = "executing"
	PhaseDone      = "done"
	PhaseError     = "error"
)

// Message is one rendered entry of the chat history.
type Message struct {
	Role    string
	Content string
}

// StrategyPicker lists the strategies of the latest actionable reply. Picking
// one prefills the input with Command and the strategy id.
type StrategyPicker struct {
	Command    string
	Strategies []reply.Strategy
	Index      int
}

// Selected returns the highlighted strategy.
func (p *StrategyPicker) Selected() (reply.Strategy, bool) {
	if p == nil || p.Index < 0 || p.Index >= len(p.Strategies) {
		return reply.Strategy{}, false
	}
	return p.Strategies[p.Index], true
}

// State holds everything the views render.
type State struct {
	Width  int
	Height int

	Input    textinput.Model
	Viewport viewport.Model
	Spinner  spinner.Model
	Messages []Message

	// Busy is set while a request to the gateway is in flight.
	Busy          bool
	StatusPhase   string
	StatusMessage string
	DotCount      int

	Picker *StrategyPicker

	ThreadID    string
	UserAddress string
}

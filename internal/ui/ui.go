// Package ui is the terminal chat client of the assistant.
package ui

import (
	"context"

	"github.com/Cyclone1070/butterfi/internal/chain"
	"github.com/Cyclone1070/butterfi/internal/gateway"
	"github.com/Cyclone1070/butterfi/internal/reply"
	"github.com/Cyclone1070/butterfi/internal/ui/services"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Backend is the assistant API the chat talks to. *gateway.Client satisfies
// it.
type Backend interface {
	UserQuery(ctx context.Context, req gateway.UserQueryRequest) (reply.Reply, string, error)
	Stake(ctx context.Context, strategyID int, amount string) (string, error)
	Withdraw(ctx context.Context, strategyID int, amount string) (string, error)
	Positions(ctx context.Context, address string) ([]chain.Position, error)
}

// Session identifies the user and conversation the chat starts with.
type Session struct {
	UserAddress string
	ThreadID    string
}

// SpinnerFactory creates a new spinner
type SpinnerFactory func() spinner.Model

// UI runs the chat as a Bubble Tea program.
type UI struct {
	backend        Backend
	session        Session
	renderer       services.MarkdownRenderer
	spinnerFactory SpinnerFactory
}

// NewUI creates a new Bubble Tea UI
func NewUI(backend Backend, session Session, renderer services.MarkdownRenderer, spinnerFactory SpinnerFactory) *UI {
	return &UI{
		backend:        backend,
		session:        session,
		renderer:       renderer,
		spinnerFactory: spinnerFactory,
	}
}

// Start runs the program until the user quits or ctx is cancelled.
func (u *UI) Start(ctx context.Context) error {
	model := newBubbleTeaModel(ctx, u.backend, u.session, u.renderer, u.spinnerFactory)
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Cyclone1070/butterfi/internal/chain"
	"github.com/Cyclone1070/butterfi/internal/gateway"
	"github.com/Cyclone1070/butterfi/internal/reply"
	"github.com/Cyclone1070/butterfi/internal/ui/models"
	"github.com/Cyclone1070/butterfi/internal/ui/services"
	"github.com/Cyclone1070/butterfi/internal/ui/views"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const helpText = `Available commands:
- /stake <strategyId> <amount> - Approve and stake tokens
- /withdraw <strategyId> <amount> - Withdraw staked tokens
- /positions [address] - Show staked balances and pending rewards
- /new - Start a new conversation
- /help - Show this help`

// BubbleTeaModel implements tea.Model
type BubbleTeaModel struct {
	state models.State

	ctx      context.Context
	backend  Backend
	renderer services.MarkdownRenderer
}

// View renders the UI
func (m BubbleTeaModel) View() string {
	return views.RenderRoot(m.state)
}

func newBubbleTeaModel(
	ctx context.Context,
	backend Backend,
	session Session,
	renderer services.MarkdownRenderer,
	spinnerFactory SpinnerFactory,
) BubbleTeaModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about staking..."
	ti.Focus()

	return BubbleTeaModel{
		state: models.State{
			Input:       ti,
			Viewport:    viewport.New(80, 20),
			Spinner:     spinnerFactory(),
			Messages:    []models.Message{},
			StatusPhase: models.PhaseReady,
			ThreadID:    session.ThreadID,
			UserAddress: session.UserAddress,
		},
		ctx:      ctx,
		backend:  backend,
		renderer: renderer,
	}
}

// Internal messages
type tickMsg time.Time

type replyMsg struct {
	reply    reply.Reply
	threadID string
	err      error
}

type txMsg struct {
	command    string
	strategyID int
	amount     string
	hash       string
	err        error
}

type positionsMsg struct {
	address   string
	positions []chain.Position
	err       error
}

// Init initializes the model
func (m BubbleTeaModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.state.Spinner.Tick,
		tick(),
	)
}

// Update handles messages
func (m BubbleTeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.state.Width = msg.Width
		m.state.Height = msg.Height
		m.state.Viewport.Width = msg.Width
		m.state.Viewport.Height = msg.Height - 6 // Reserve space for input and status
		m.updateViewport()
		return m, nil

	case tickMsg:
		m.state.DotCount = (m.state.DotCount + 1) % 4
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.state.Spinner, cmd = m.state.Spinner.Update(msg)
		return m, cmd

	case replyMsg:
		return m.handleReply(msg), nil

	case txMsg:
		return m.handleTx(msg), nil

	case positionsMsg:
		return m.handlePositions(msg), nil
	}

	var cmd tea.Cmd
	m.state.Input, cmd = m.state.Input.Update(msg)
	return m, cmd
}

// handleKeyPress handles keyboard input
func (m BubbleTeaModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if p := m.state.Picker; p != nil {
		switch msg.String() {
		case "up", "k":
			if p.Index > 0 {
				p.Index--
			}
		case "down", "j":
			if p.Index < len(p.Strategies)-1 {
				p.Index++
			}
		case "enter":
			if s, ok := p.Selected(); ok {
				m.state.Input.SetValue(fmt.Sprintf("%s %d ", p.Command, s.StrategyID))
				m.state.Input.CursorEnd()
			}
			m.state.Picker = nil
		case "esc":
			m.state.Picker = nil
		}
		return m, nil
	}

	if msg.Type != tea.KeyEnter {
		var cmd tea.Cmd
		m.state.Input, cmd = m.state.Input.Update(msg)
		return m, cmd
	}

	input := strings.TrimSpace(m.state.Input.Value())
	if m.state.Busy || input == "" {
		return m, nil
	}
	m.state.Input.SetValue("")

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	m.appendMessage(models.RoleUser, input)
	m.setBusy(models.PhaseThinking, "")
	return m, m.query(input)
}

// handleCommand handles slash commands
func (m BubbleTeaModel) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	args := parts[1:]

	switch parts[0] {
	case "/stake", "/withdraw":
		id, amount, err := services.ParseTxCommand(args)
		if err != nil {
			m.appendMessage(models.RoleError, fmt.Sprintf("%s %v", parts[0], err))
			return m, nil
		}
		verb := "Staking"
		if parts[0] == "/withdraw" {
			verb = "Withdrawing"
		}
		m.appendMessage(models.RoleUser, input)
		m.setBusy(models.PhaseExecuting, fmt.Sprintf("%s %s in strategy %d", verb, amount, id))
		return m, m.transact(parts[0], id, amount)

	case "/positions":
		address := m.state.UserAddress
		if len(args) > 0 {
			address = args[0]
		}
		if address == "" {
			m.appendMessage(models.RoleError, "/positions needs an address; start the chat with --address or pass one")
			return m, nil
		}
		m.setBusy(models.PhaseExecuting, "Reading positions")
		return m, m.positions(address)

	case "/new":
		m.state.ThreadID = ""
		m.state.Messages = []models.Message{}
		m.state.StatusPhase, m.state.StatusMessage = models.PhaseReady, ""
		m.updateViewport()
		return m, nil

	case "/help":
		m.appendMessage(models.RoleAssistant, helpText)
		return m, nil
	}

	m.appendMessage(models.RoleError, fmt.Sprintf("unknown command %s, type /help", parts[0]))
	return m, nil
}

func (m BubbleTeaModel) handleReply(msg replyMsg) BubbleTeaModel {
	m.state.Busy = false
	if msg.err != nil {
		return m.fail("Request failed", msg.err)
	}
	if msg.threadID != "" {
		m.state.ThreadID = msg.threadID
	}
	m.state.StatusPhase, m.state.StatusMessage = models.PhaseDone, ""

	r := msg.reply
	m.appendMessage(models.RoleAssistant, r.Answer)
	if len(r.Strategies) == 0 {
		return m
	}

	switch r.Intent {
	case reply.IntentExecuteTransaction:
		m.appendMessage(models.RoleAssistant, services.FormatStrategies(r.Strategies))
		m.state.Picker = &models.StrategyPicker{Command: "/stake", Strategies: r.Strategies}
	case reply.IntentWithdrawPosition:
		m.state.Picker = &models.StrategyPicker{Command: "/withdraw", Strategies: r.Strategies}
	}
	return m
}

func (m BubbleTeaModel) handleTx(msg txMsg) BubbleTeaModel {
	m.state.Busy = false
	if msg.err != nil {
		return m.fail("Transaction failed", msg.err)
	}
	done := "Staked"
	if msg.command == "/withdraw" {
		done = "Withdrew"
	}
	m.state.StatusPhase = models.PhaseDone
	m.state.StatusMessage = fmt.Sprintf("%s %s", done, msg.amount)
	m.appendMessage(models.RoleAssistant,
		fmt.Sprintf("%s %s in strategy %d. Transaction: `%s`", done, msg.amount, msg.strategyID, msg.hash))
	return m
}

func (m BubbleTeaModel) handlePositions(msg positionsMsg) BubbleTeaModel {
	m.state.Busy = false
	if msg.err != nil {
		return m.fail("Could not read positions", msg.err)
	}
	m.state.StatusPhase, m.state.StatusMessage = models.PhaseDone, ""
	m.appendMessage(models.RoleAssistant, services.FormatPositions(msg.address, msg.positions))
	return m
}

func (m BubbleTeaModel) fail(status string, err error) BubbleTeaModel {
	m.state.StatusPhase, m.state.StatusMessage = models.PhaseError, status
	m.appendMessage(models.RoleError, err.Error())
	return m
}

func (m *BubbleTeaModel) setBusy(phase, message string) {
	m.state.Busy = true
	m.state.Picker = nil
	m.state.StatusPhase, m.state.StatusMessage = phase, message
}

func (m *BubbleTeaModel) appendMessage(role, content string) {
	m.state.Messages = append(m.state.Messages, models.Message{Role: role, Content: content})
	m.updateViewport()
}

// updateViewport updates the viewport content
func (m *BubbleTeaModel) updateViewport() {
	content := views.FormatChatContent(m.state.Messages, m.state.Width-4, m.renderer)
	m.state.Viewport.SetContent(content)
	m.state.Viewport.GotoBottom()
}

func (m BubbleTeaModel) query(input string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	req := gateway.UserQueryRequest{
		UserInput:   input,
		UserAddress: m.state.UserAddress,
		ThreadID:    m.state.ThreadID,
	}
	return func() tea.Msg {
		r, threadID, err := backend.UserQuery(ctx, req)
		return replyMsg{reply: r, threadID: threadID, err: err}
	}
}

func (m BubbleTeaModel) transact(command string, id int, amount string) tea.Cmd {
	ctx, send := m.ctx, m.backend.Stake
	if command == "/withdraw" {
		send = m.backend.Withdraw
	}
	return func() tea.Msg {
		hash, err := send(ctx, id, amount)
		return txMsg{command: command, strategyID: id, amount: amount, hash: hash, err: err}
	}
}

func (m BubbleTeaModel) positions(address string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		positions, err := backend.Positions(ctx, address)
		return positionsMsg{address: address, positions: positions, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

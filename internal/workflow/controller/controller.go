// Package controller runs one conversation turn as an explicit state machine:
// decide, run the requested tools, synthesize a structured reply.
package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Cyclone1070/butterfi/internal/conversation"
	"github.com/Cyclone1070/butterfi/internal/logging"
	"github.com/Cyclone1070/butterfi/internal/provider"
	"github.com/Cyclone1070/butterfi/internal/reply"
	"github.com/Cyclone1070/butterfi/internal/tool"
	"github.com/Cyclone1070/butterfi/internal/workflow"
	"github.com/Cyclone1070/butterfi/internal/workflow/toolmanager"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const decisionPrompt = `You are Butter-Fi, a DeFi staking assistant.
Call search_protocols for questions about staking protocols, strategies, yields or recommendations.
Call check_user_positions when the user asks about their own stakes, rewards or wants to withdraw.
Answer directly when no tool is needed.`

// llmProvider communicates with an LLM.
type llmProvider interface {
	Generate(ctx context.Context, req *provider.GenerateRequest) (*provider.Message, error)
}

// toolManager manages tool storage and execution.
type toolManager interface {
	Declarations() []tool.Declaration
	Execute(ctx context.Context, tc provider.ToolCall, events chan<- workflow.Event) toolmanager.Invocation
}

// registry renders the strategy catalog for prompts.
type registry interface {
	Describe() string
}

// Config bounds a controller run.
type Config struct {
	MaxParallelTools int
	// MaxTransitions caps state changes per turn; a run that has not reached
	// DONE by then fails with NoResponseError.
	MaxTransitions int
}

// Turn is one user request.
type Turn struct {
	Input       string
	UserAddress string
	Format      Format
	Events      chan<- workflow.Event
}

// Result is the outcome of a turn that reached DONE.
type Result struct {
	// Raw is the final model output: an envelope for FormatEnvelope, prose
	// with an embedded protocols block for FormatLegacy.
	Raw string
	// Direct is set when the model answered without tools.
	Direct bool
	// Invocations holds this turn's tool calls in request order, artifacts
	// included. It is never written to the conversation.
	Invocations []toolmanager.Invocation
	// Trace lists the states visited, ending in Done.
	Trace []State
}

type Controller struct {
	provider llmProvider
	tools    toolManager
	registry registry
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

func New(p llmProvider, tools toolManager, reg registry, cfg Config, logger *zap.Logger) *Controller {
	if cfg.MaxParallelTools < 1 {
		cfg.MaxParallelTools = 1
	}
	if cfg.MaxTransitions < 3 {
		cfg.MaxTransitions = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		provider: p,
		tools:    tools,
		registry: reg,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// run is the mutable state of one turn.
type run struct {
	conv    *conversation.Conversation
	turn    Turn
	pending []provider.ToolCall
	result  Result
}

// Run executes one turn against conv, appending the user message, tool
// traffic and the final model message. conv is only partially updated when
// Run fails.
func (c *Controller) Run(ctx context.Context, conv *conversation.Conversation, turn Turn) (*Result, error) {
	ctx = workflow.WithUserAddress(ctx, turn.UserAddress)
	defer workflow.Emit(ctx, turn.Events, workflow.DoneEvent{})

	r := &run{conv: conv, turn: turn}
	log := c.logger.With(zap.String(logging.FieldThreadID, conv.ThreadID))

	state := AwaitingDecision
	r.result.Trace = append(r.result.Trace, state)
	for transitions := 0; state != Done; transitions++ {
		if transitions >= c.cfg.MaxTransitions {
			return nil, &NoResponseError{
				State:  state,
				Reason: fmt.Sprintf("transition budget of %d exhausted", c.cfg.MaxTransitions),
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, err := c.step(ctx, r, state)
		if err != nil {
			log.Warn("turn failed", zap.String(logging.FieldState, state.String()), zap.Error(err))
			return nil, err
		}
		log.Debug("state transition",
			zap.String("from", state.String()),
			zap.String("to", next.String()))
		workflow.Emit(ctx, turn.Events, workflow.StateEvent{From: state.String(), To: next.String()})
		state = next
		r.result.Trace = append(r.result.Trace, state)
	}
	return &r.result, nil
}

func (c *Controller) step(ctx context.Context, r *run, state State) (State, error) {
	switch state {
	case AwaitingDecision:
		return c.decide(ctx, r)
	case ToolsPending:
		return c.dispatch(ctx, r)
	case Synthesizing:
		return c.synthesize(ctx, r)
	}
	return state, &NoResponseError{State: state, Reason: "no transition defined"}
}

func (c *Controller) decide(ctx context.Context, r *run) (State, error) {
	r.conv.Append(c.now(), provider.Message{
		Role:        provider.RoleUser,
		Content:     r.turn.Input,
		UserAddress: r.turn.UserAddress,
	})

	view := make([]provider.Message, 0, r.conv.Len()+2)
	view = append(view, provider.Message{Role: provider.RoleSystem, Content: decisionPrompt})
	if r.turn.UserAddress != "" {
		view = append(view, addressNote(r.turn.UserAddress))
	}
	view = append(view, r.conv.Messages...)

	workflow.Emit(ctx, r.turn.Events, workflow.ThinkingEvent{})
	resp, err := c.provider.Generate(ctx, &provider.GenerateRequest{
		Messages: view,
		Tools:    c.tools.Declarations(),
	})
	if err != nil {
		return AwaitingDecision, fmt.Errorf("decide: %w", err)
	}

	if !resp.RequestsTools() {
		text := strings.TrimSpace(resp.Content)
		r.conv.Append(c.now(), provider.Message{Role: provider.RoleAssistant, Content: text})
		raw, err := c.direct(text, r.turn.Format)
		if err != nil {
			return AwaitingDecision, err
		}
		r.result.Raw = raw
		r.result.Direct = true
		return Done, nil
	}

	calls := make([]provider.ToolCall, len(resp.ToolCalls))
	for i, tc := range resp.ToolCalls {
		if tc.ID == "" {
			tc.ID = fmt.Sprintf("call_%d", i)
		}
		calls[i] = tc
	}
	r.conv.Append(c.now(), provider.Message{
		Role:      provider.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: calls,
	})
	r.pending = calls
	return ToolsPending, nil
}

// direct wraps a tool-free answer. Envelope turns never expose raw model text.
func (c *Controller) direct(text string, format Format) (string, error) {
	if format == FormatLegacy {
		return text, nil
	}
	raw, err := reply.Encode(reply.Direct(text))
	if err != nil {
		return "", fmt.Errorf("encode direct reply: %w", err)
	}
	return raw, nil
}

// dispatch runs all pending calls concurrently and appends their results in
// request order.
func (c *Controller) dispatch(ctx context.Context, r *run) (State, error) {
	invocations := make([]toolmanager.Invocation, len(r.pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxParallelTools)
	for i, tc := range r.pending {
		g.Go(func() error {
			invocations[i] = c.tools.Execute(gctx, tc, r.turn.Events)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ToolsPending, err
	}
	if err := ctx.Err(); err != nil {
		return ToolsPending, err
	}

	msgs := make([]provider.Message, len(invocations))
	for i, inv := range invocations {
		msgs[i] = inv.Message()
	}
	r.conv.Append(c.now(), msgs...)
	r.result.Invocations = append(r.result.Invocations, invocations...)
	r.pending = nil
	return Synthesizing, nil
}

func (c *Controller) synthesize(ctx context.Context, r *run) (State, error) {
	groups := groupByName(trailingToolRun(r.conv.Messages))
	if len(groups) == 0 {
		return Synthesizing, &NoResponseError{State: Synthesizing, Reason: "no tool results to synthesize"}
	}

	catalog := ""
	if c.registry != nil {
		catalog = c.registry.Describe()
	}
	instruction := buildSynthesisPrompt(groups, latestUserInput(r.conv.Messages), catalog, r.turn.Format)

	req := &provider.GenerateRequest{Messages: synthesisView(instruction, r.conv.Messages)}
	if r.turn.Format == FormatEnvelope {
		req.ResponseMIMEType = provider.MIMETypeJSON
	}

	workflow.Emit(ctx, r.turn.Events, workflow.ThinkingEvent{})
	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return Synthesizing, fmt.Errorf("synthesize: %w", err)
	}

	raw := strings.TrimSpace(resp.Content)
	if raw == "" {
		return Synthesizing, &NoResponseError{State: Synthesizing, Reason: "model returned empty synthesis"}
	}
	r.conv.Append(c.now(), provider.Message{Role: provider.RoleAssistant, Content: raw})
	r.result.Raw = raw
	return Done, nil
}

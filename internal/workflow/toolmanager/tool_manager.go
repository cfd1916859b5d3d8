package toolmanager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Cyclone1070/butterfi/internal/logging"
	"github.com/Cyclone1070/butterfi/internal/provider"
	"github.com/Cyclone1070/butterfi/internal/tool"
	"github.com/Cyclone1070/butterfi/internal/workflow"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Invocation records one tool call of a turn. It is owned by that turn and is
// never serialized into the conversation; only Content reaches the model.
type Invocation struct {
	CallID   string
	Name     string
	Args     map[string]any
	Content  string
	Artifact any
	Err      error
}

// Message renders the invocation as a tool message bound to its call.
// Failures become an error-marked message the model can relay.
func (inv Invocation) Message() provider.Message {
	msg := provider.Message{
		Role:       provider.RoleTool,
		ToolCallID: inv.CallID,
		ToolName:   inv.Name,
		Content:    inv.Content,
	}
	if inv.Err != nil {
		msg.IsError = true
		msg.Content = "Error: " + inv.Err.Error()
	}
	return msg
}

// ToolManager is the tool registry. Tools are registered at startup, then the
// registry is sealed and only read.
type ToolManager struct {
	mu       sync.RWMutex
	registry map[string]Tool
	sealed   bool
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a ToolManager.
type Option func(*ToolManager)

// WithTimeout bounds every tool execution.
func WithTimeout(d time.Duration) Option {
	return func(m *ToolManager) { m.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *ToolManager) { m.logger = l }
}

func NewToolManager(opts ...Option) *ToolManager {
	tm := &ToolManager{
		registry: make(map[string]Tool),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// Register adds a tool. It fails for nil tools, empty or duplicate names and
// after Seal.
func (m *ToolManager) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("%w: nil tool", ErrInvalidTool)
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if decl := t.Declaration(); decl.Name != name {
		return fmt.Errorf("%w: declaration name %q does not match %q", ErrInvalidTool, decl.Name, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed {
		return ErrSealed
	}
	if _, exists := m.registry[name]; exists {
		return fmt.Errorf("%w: duplicate name %q", ErrInvalidTool, name)
	}
	m.registry[name] = t
	return nil
}

// Seal freezes the registry.
func (m *ToolManager) Seal() {
	m.mu.Lock()
	m.sealed = true
	m.mu.Unlock()
}

func (m *ToolManager) Declarations() []tool.Declaration {
	m.mu.RLock()
	decls := make([]tool.Declaration, 0, len(m.registry))
	for _, t := range m.registry {
		decls = append(decls, t.Declaration())
	}
	m.mu.RUnlock()

	sort.Slice(decls, func(i, j int) bool {
		return decls[i].Name < decls[j].Name
	})
	return decls
}

func (m *ToolManager) lookup(name string) (Tool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.registry[name]
	return t, ok
}

// Invoke decodes args into the tool's input and runs it. The returned error is
// an *UnknownToolError or *ToolExecutionError and is also stored in the
// Invocation.
func (m *ToolManager) Invoke(ctx context.Context, name string, args map[string]any) (Invocation, error) {
	inv := Invocation{Name: name, Args: args}

	t, ok := m.lookup(name)
	if !ok {
		inv.Err = &UnknownToolError{Name: name}
		return inv, inv.Err
	}

	res, err := m.run(ctx, t, args)
	if err != nil {
		inv.Err = &ToolExecutionError{Name: name, Err: err}
		return inv, inv.Err
	}

	inv.Content = res.LLMContent()
	inv.Artifact = res.Artifact()
	return inv, nil
}

func (m *ToolManager) run(ctx context.Context, t Tool, args map[string]any) (res Result, err error) {
	req := t.Input()
	if err := decodeArgs(args, req); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if v, ok := req.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	res, err = t.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("tool returned no result")
	}
	return res, nil
}

func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

// Execute runs one model-requested call. It never fails: unknown tools and
// handler errors are carried in the Invocation so the turn can continue.
func (m *ToolManager) Execute(ctx context.Context, tc provider.ToolCall, events chan<- workflow.Event) Invocation {
	display := ""
	if t, ok := m.lookup(tc.Name); ok {
		req := t.Input()
		if decodeArgs(tc.Args, req) == nil {
			if s, ok := req.(fmt.Stringer); ok {
				display = s.String()
			}
		}
	}
	workflow.Emit(ctx, events, workflow.ToolStartEvent{
		ToolName:       tc.Name,
		CallID:         tc.ID,
		RequestDisplay: display,
	})

	inv, err := m.Invoke(ctx, tc.Name, tc.Args)
	inv.CallID = tc.ID

	if err != nil {
		m.logger.Warn("tool call failed",
			zap.String(logging.FieldTool, tc.Name),
			zap.String("call_id", tc.ID),
			zap.Error(err))
		var unknown *UnknownToolError
		if errors.As(err, &unknown) {
			inv.Err = fmt.Errorf("%w\n\nAvailable tools: %s", err, strings.Join(m.names(), ", "))
		}
	}

	workflow.Emit(ctx, events, workflow.ToolEndEvent{
		ToolName: tc.Name,
		CallID:   tc.ID,
		IsError:  inv.Err != nil,
	})
	return inv
}

func (m *ToolManager) names() []string {
	decls := m.Declarations()
	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	return names
}

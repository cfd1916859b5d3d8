// Package assistant is the application service behind every inbound
// surface: it owns per-thread turn handling and passes chain operations
// through.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Cyclone1070/butterfi/internal/chain"
	"github.com/Cyclone1070/butterfi/internal/conversation"
	"github.com/Cyclone1070/butterfi/internal/logging"
	"github.com/Cyclone1070/butterfi/internal/reply"
	"github.com/Cyclone1070/butterfi/internal/workflow"
	"github.com/Cyclone1070/butterfi/internal/workflow/controller"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var (
	// ErrEmptyInput is returned for blank user input.
	ErrEmptyInput = errors.New("user input is empty")
	// ErrInvalidAddress is returned for malformed wallet addresses.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrUnavailable is returned when an optional collaborator is not configured.
	ErrUnavailable = errors.New("not configured")
)

type turnRunner interface {
	Run(ctx context.Context, conv *conversation.Conversation, turn controller.Turn) (*controller.Result, error)
}

type replyParser interface {
	Parse(raw string) (reply.Reply, error)
}

type transactor interface {
	Stake(ctx context.Context, strategyID int, amount string) (string, error)
	Withdraw(ctx context.Context, strategyID int, amount string) (string, error)
}

type positionLister interface {
	ListPositions(ctx context.Context, address string) []chain.Position
}

// Query is one submitUserQuery request.
type Query struct {
	Input       string
	UserAddress string
	// ThreadID selects the conversation; blank starts a new one.
	ThreadID string
	// Events receives progress events when non-nil.
	Events chan<- workflow.Event
}

// Result is a normalized reply and the thread it belongs to.
type Result struct {
	Reply    reply.Reply
	ThreadID string
}

// LegacyResult is the older (answer, protocols) calling convention.
type LegacyResult struct {
	Answer    string
	Protocols []string
	ThreadID  string
}

// Deps are the collaborators of a Service. Executor and Positions may be nil,
// in which case the matching operations fail with ErrUnavailable.
type Deps struct {
	Store      conversation.Store
	Controller turnRunner
	Normalizer replyParser
	Executor   transactor
	Positions  positionLister
}

type Service struct {
	store       conversation.Store
	controller  turnRunner
	normalizer  replyParser
	executor    transactor
	positions   positionLister
	turnTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTurnTimeout bounds each conversation turn.
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Service) { s.turnTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		store:      deps.Store,
		controller: deps.Controller,
		normalizer: deps.Normalizer,
		executor:   deps.Executor,
		positions:  deps.Positions,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	if s.store == nil {
		s.store = conversation.NewMemoryStore()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitUserQuery runs one turn and returns the strictly normalized reply.
// The conversation is saved only when the reply is valid.
func (s *Service) SubmitUserQuery(ctx context.Context, q Query) (*Result, error) {
	var out *Result
	err := s.turn(ctx, q, controller.FormatEnvelope, func(threadID string, res *controller.Result) error {
		r, err := s.normalizer.Parse(res.Raw)
		if err != nil {
			return err
		}
		out = &Result{Reply: r, ThreadID: threadID}
		return nil
	})
	return out, err
}

// SubmitLegacyQuery runs one turn in the older prose + protocols format.
func (s *Service) SubmitLegacyQuery(ctx context.Context, q Query) (*LegacyResult, error) {
	var out *LegacyResult
	err := s.turn(ctx, q, controller.FormatLegacy, func(threadID string, res *controller.Result) error {
		out = &LegacyResult{ThreadID: threadID}
		if res.Direct {
			out.Answer, out.Protocols = strings.TrimSpace(res.Raw), []string{}
			return nil
		}
		out.Answer, out.Protocols = reply.ExtractLegacy(res.Raw)
		return nil
	})
	return out, err
}

func (s *Service) turn(ctx context.Context, q Query, format controller.Format, finish func(string, *controller.Result) error) error {
	input := strings.TrimSpace(q.Input)
	if input == "" {
		return ErrEmptyInput
	}
	address := strings.TrimSpace(q.UserAddress)
	if address != "" && !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	threadID := strings.TrimSpace(q.ThreadID)
	if threadID == "" {
		threadID = conversation.NewThreadID()
	}
	log := s.logger.With(zap.String(logging.FieldThreadID, threadID))

	release, err := s.store.Acquire(ctx, threadID)
	if err != nil {
		return fmt.Errorf("acquire thread: %w", err)
	}
	defer release()

	conv, err := s.store.Get(ctx, threadID)
	if errors.Is(err, conversation.ErrNotFound) {
		conv = conversation.New(threadID, s.now())
	} else if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	turnCtx := ctx
	if s.turnTimeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(ctx, s.turnTimeout)
		defer cancel()
	}

	started := s.now()
	res, err := s.controller.Run(turnCtx, conv, controller.Turn{
		Input:       input,
		UserAddress: address,
		Format:      format,
		Events:      q.Events,
	})
	if err != nil {
		return err
	}
	if err := finish(threadID, res); err != nil {
		log.Warn("reply rejected", zap.Error(err))
		return err
	}

	if err := s.store.Save(ctx, conv); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	log.Info("turn complete",
		zap.Int("tool_calls", len(res.Invocations)),
		zap.Bool("direct", res.Direct),
		zap.Duration("elapsed", s.now().Sub(started)))
	return nil
}

// Stake approves and stakes amount in a strategy.
func (s *Service) Stake(ctx context.Context, strategyID int, amount string) (string, error) {
	if s.executor == nil {
		return "", fmt.Errorf("transaction executor %w", ErrUnavailable)
	}
	return s.executor.Stake(ctx, strategyID, amount)
}

// Withdraw withdraws amount from a strategy.
func (s *Service) Withdraw(ctx context.Context, strategyID int, amount string) (string, error) {
	if s.executor == nil {
		return "", fmt.Errorf("transaction executor %w", ErrUnavailable)
	}
	return s.executor.Withdraw(ctx, strategyID, amount)
}

// Positions lists the address's positions over every strategy.
func (s *Service) Positions(ctx context.Context, address string) ([]chain.Position, error) {
	if s.positions == nil {
		return nil, fmt.Errorf("position reader %w", ErrUnavailable)
	}
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return s.positions.ListPositions(ctx, address), nil
}

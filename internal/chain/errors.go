package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStrategy is returned for strategy ids missing from the catalog.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrReverted is returned when a mined transaction has a failed status.
	ErrReverted = errors.New("transaction reverted")
	// ErrNoSigner is returned when transactions are requested without a key.
	ErrNoSigner = errors.New("no signing key configured")
)

// ApprovalError reports a failed allowance grant; no stake was attempted.
type ApprovalError struct {
	StrategyID int
	Err        error
}

func (e *ApprovalError) Error() string {
	return fmt.Sprintf("approve for strategy %d failed: %v", e.StrategyID, e.Err)
}

func (e *ApprovalError) Unwrap() error { return e.Err }

// StakeError reports a failed stake call after a successful approval.
type StakeError struct {
	StrategyID int
	Err        error
}

func (e *StakeError) Error() string {
	return fmt.Sprintf("stake in strategy %d failed: %v", e.StrategyID, e.Err)
}

func (e *StakeError) Unwrap() error { return e.Err }

// WithdrawError reports a failed withdrawal.
type WithdrawError struct {
	StrategyID int
	Err        error
}

func (e *WithdrawError) Error() string {
	return fmt.Sprintf("withdraw from strategy %d failed: %v", e.StrategyID, e.Err)
}

func (e *WithdrawError) Unwrap() error { return e.Err }

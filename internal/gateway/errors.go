package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/Cyclone1070/butterfi/internal/assistant"
	"github.com/Cyclone1070/butterfi/internal/chain"
	"github.com/Cyclone1070/butterfi/internal/provider"
	"github.com/Cyclone1070/butterfi/internal/reply"
	"github.com/Cyclone1070/butterfi/internal/workflow/controller"
)

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	var (
		approvalErr *chain.ApprovalError
		stakeErr    *chain.StakeError
		withdrawErr *chain.WithdrawError
	)
	switch {
	case errors.Is(err, assistant.ErrEmptyInput),
		errors.Is(err, assistant.ErrInvalidAddress),
		errors.Is(err, chain.ErrInvalidAmount),
		errors.Is(err, chain.ErrUnknownStrategy):
		return http.StatusBadRequest
	case errors.As(err, &approvalErr),
		errors.As(err, &stakeErr),
		errors.As(err, &withdrawErr),
		errors.Is(err, reply.ErrMalformedReply):
		return http.StatusBadGateway
	case errors.Is(err, assistant.ErrUnavailable),
		errors.Is(err, chain.ErrNoSigner),
		errors.Is(err, provider.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrRateLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, provider.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, controller.ErrNoResponse):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

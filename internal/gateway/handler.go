// Package gateway is the HTTP binding of the assistant service and a client
// for it.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Cyclone1070/butterfi/internal/assistant"
	"github.com/Cyclone1070/butterfi/internal/chain"
	"github.com/Cyclone1070/butterfi/internal/logging"
	"github.com/Cyclone1070/butterfi/internal/reply"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type service interface {
	SubmitUserQuery(ctx context.Context, q assistant.Query) (*assistant.Result, error)
	SubmitLegacyQuery(ctx context.Context, q assistant.Query) (*assistant.LegacyResult, error)
	Stake(ctx context.Context, strategyID int, amount string) (string, error)
	Withdraw(ctx context.Context, strategyID int, amount string) (string, error)
	Positions(ctx context.Context, address string) ([]chain.Position, error)
}

type handler struct {
	svc    service
	logger *zap.Logger
}

// Options configures NewHandler.
type Options struct {
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewHandler returns the HTTP API:
//
//	POST /userQuery            structured reply envelope
//	POST /query                legacy {"answer","protocols"}
//	POST /stake, /withdraw     {"txHash"}
//	GET  /positions/{address}  position list
//	GET  /healthz
func NewHandler(svc service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: svc, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /userQuery", h.handleUserQuery)
	mux.HandleFunc("POST /query", h.handleLegacyQuery)
	mux.HandleFunc("POST /stake", h.handleStake)
	mux.HandleFunc("POST /withdraw", h.handleWithdraw)
	mux.HandleFunc("GET /positions/{address}", h.handlePositions)
	mux.HandleFunc("GET /healthz", handleHealth)

	return chainMiddlewares(mux,
		withRequestID,
		withLogging(logger),
		withCORS(opts.AllowedOrigins),
	)
}

func (h *handler) handleUserQuery(w http.ResponseWriter, r *http.Request) {
	var req UserQueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ThreadID == "" {
		req.ThreadID = r.Header.Get(HeaderThreadID)
	}

	res, err := h.svc.SubmitUserQuery(r.Context(), assistant.Query{
		Input:       req.UserInput,
		UserAddress: req.UserAddress,
		ThreadID:    req.ThreadID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	body, err := reply.Encode(res.Reply)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set(HeaderThreadID, res.ThreadID)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (h *handler) handleLegacyQuery(w http.ResponseWriter, r *http.Request) {
	var req LegacyQueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ThreadID == "" {
		req.ThreadID = r.Header.Get(HeaderThreadID)
	}

	res, err := h.svc.SubmitLegacyQuery(r.Context(), assistant.Query{
		Input:       req.Query,
		UserAddress: req.UserAddress,
		ThreadID:    req.ThreadID,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set(HeaderThreadID, res.ThreadID)
	writeJSON(w, http.StatusOK, LegacyQueryResponse{Answer: res.Answer, Protocols: res.Protocols})
}

func (h *handler) handleStake(w http.ResponseWriter, r *http.Request) {
	h.handleTx(w, r, h.svc.Stake)
}

func (h *handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleTx(w, r, h.svc.Withdraw)
}

func (h *handler) handleTx(w http.ResponseWriter, r *http.Request, send func(context.Context, int, string) (string, error)) {
	var req TxRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.StrategyID <= 0 {
		badRequest(w, "strategyId must be a positive integer")
		return
	}
	if strings.TrimSpace(string(req.Amount)) == "" {
		badRequest(w, "amount is required")
		return
	}

	hash, err := send(r.Context(), req.StrategyID, string(req.Amount))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TxResponse{TxHash: hash})
}

func (h *handler) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.svc.Positions(r.Context(), r.PathValue("address"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String(logging.FieldRequestID, RequestID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return false
		}
		badRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/Cyclone1070/butterfi/internal/config"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

// Server serves the API with a bounded number of concurrent connections.
type Server struct {
	http     *http.Server
	maxConns int
	logger   *zap.Logger
}

func NewServer(cfg config.ServerConfig, h http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h,
			ReadTimeout:       time.Duration(cfg.ReadTimeoutMs) * time.Millisecond,
			ReadHeaderTimeout: time.Duration(cfg.ReadTimeoutMs) * time.Millisecond,
			WriteTimeout:      time.Duration(cfg.WriteTimeoutMs) * time.Millisecond,
		},
		maxConns: cfg.MaxConnections,
		logger:   logger,
	}
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()), zap.Int("max_connections", s.maxConns))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Package rpc exposes the daemon over JSON-RPC 2.0 on localhost, with an
// SSE notification stream and a prometheus exposition endpoint. Auth is a
// shared token; outside development environments it is required.
package rpc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ipmint/go-registrar/internal/doctor"
	"ipmint/go-registrar/internal/platform/ratelimiter"
	"ipmint/go-registrar/internal/service"
	"ipmint/go-registrar/pkg/models"
)

const DefaultRPCAddr = "127.0.0.1:8747"

// DaemonService is the application surface the transport needs.
type DaemonService interface {
	RegisterAsset(ctx context.Context, input service.RegisterInput) (models.RegistrationResult, error)
	WorkflowState() models.WorkflowState
	ResetWorkflow() error
	ListRegistrations(limit, offset int) []models.RegistrationRecord
	Doctor(ctx context.Context) doctor.Report
	Metrics() models.MetricsSnapshot
	Subscribe(fromSeq int64) ([]service.Event, <-chan service.Event, func())
}

type Server struct {
	httpServer *http.Server
	service    DaemonService
	initErr    error
	rpcToken   string
	requireRPC bool
	limiter    *ratelimiter.MapLimiter
	observeRPC func(method string, ok bool)
	log        *slog.Logger
}

// NewServer resolves auth from the environment; it fails closed when no
// token is configured outside a development environment.
func NewServer(rpcAddr string, svc DaemonService, metricsHandler http.Handler, observeRPC func(method string, ok bool), log *slog.Logger) *Server {
	requireRPC := requiresRPCToken()
	rpcToken, err := resolveRPCToken()
	if err != nil {
		return &Server{initErr: err}
	}
	if requireRPC && rpcToken == "" {
		return &Server{
			initErr: errors.New("IPMINT_RPC_TOKEN is required unless IPMINT_REQUIRE_RPC_TOKEN=false or IPMINT_ENV is test/development/local"),
		}
	}
	return newServer(rpcAddr, svc, metricsHandler, observeRPC, rpcToken, requireRPC, log)
}

func newServer(rpcAddr string, svc DaemonService, metricsHandler http.Handler, observeRPC func(method string, ok bool), rpcToken string, requireRPC bool, log *slog.Logger) *Server {
	if rpcAddr == "" {
		rpcAddr = DefaultRPCAddr
	}
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              rpcAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		service:    svc,
		rpcToken:   rpcToken,
		requireRPC: requireRPC,
		limiter:    newRPCRateLimiter(),
		observeRPC: observeRPC,
		log:        log,
	}
	if s.rpcToken == "" && !s.requireRPC {
		log.Warn("IPMINT_RPC_TOKEN is not set; RPC auth disabled")
	}
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/rpc/stream", s.handleRPCStream)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	return s
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.initErr != nil {
		return s.initErr
	}
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.applyCORS(w, r) {
		return
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) applyCORS(w http.ResponseWriter, r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin != "" && !isAllowedOrigin(origin) {
		http.Error(w, "origin is not allowed", http.StatusForbidden)
		return false
	}
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
	w.Header().Set("Vary", "Origin")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-IPMINT-RPC-Token")
	return true
}

func (s *Server) authorizeRPC(w http.ResponseWriter, r *http.Request) bool {
	if s.rpcToken == "" && !s.requireRPC {
		return true
	}
	if s.extractRPCToken(r) != s.rpcToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) extractRPCToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("X-IPMINT-RPC-Token"))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return ""
}

func requiresRPCToken() bool {
	if v, ok := parseBoolEnv("IPMINT_REQUIRE_RPC_TOKEN"); ok {
		if !v && !isNonProdEnv() {
			// Fail-closed in production-like environments.
			return true
		}
		return v
	}
	return !isNonProdEnv()
}

func isNonProdEnv() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("IPMINT_ENV"))) {
	case "test", "testing", "dev", "development", "local":
		return true
	default:
		return false
	}
}

func isAllowedOrigin(raw string) bool {
	if raw == "null" {
		allowNull, _ := parseBoolEnv("IPMINT_ALLOW_NULL_ORIGIN")
		return allowNull
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.TrimSpace(u.Hostname()) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

func parseBoolEnv(name string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

func resolveRPCToken() (string, error) {
	token := strings.TrimSpace(os.Getenv("IPMINT_RPC_TOKEN"))
	if !strings.EqualFold(token, "auto") {
		return token, nil
	}
	generated, err := generateRPCToken()
	if err != nil {
		return "", err
	}
	_ = os.Setenv("IPMINT_RPC_TOKEN", generated)
	if err := persistRPCToken(generated); err != nil {
		return "", err
	}
	return generated, nil
}

func generateRPCToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "rpc_" + hex.EncodeToString(buf), nil
}

func persistRPCToken(token string) error {
	pathValue := strings.TrimSpace(os.Getenv("IPMINT_RPC_TOKEN_FILE"))
	if pathValue == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(pathValue), 0o700); err != nil {
		return err
	}
	return os.WriteFile(pathValue, []byte(token), 0o600)
}

// Package httpapi exposes the swap engine over HTTP. Each swap is one
// orchestrator held in memory; the API mutates it through its serialized
// operations and returns the resulting snapshot.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
	"github.com/OpenBridge-Network/swap_engine/internal/confirm"
	"github.com/OpenBridge-Network/swap_engine/internal/features"
	"github.com/OpenBridge-Network/swap_engine/internal/gas"
	"github.com/OpenBridge-Network/swap_engine/internal/metrics"
	"github.com/OpenBridge-Network/swap_engine/internal/retry"
	"github.com/OpenBridge-Network/swap_engine/internal/swap"
	"github.com/OpenBridge-Network/swap_engine/internal/transport"
	"github.com/OpenBridge-Network/swap_engine/pkg/logger"
)

// Config wires the server's collaborators.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	Registry  *chains.Registry
	Gate      *features.Gate
	Estimator *gas.Estimator
	Tracker   *confirm.Tracker
	Backend   transport.Transport
	Metrics   *metrics.Collector
	Logger    *logger.Logger

	// RetryPolicy is the engine-wide fallback retry tuning handed to every
	// orchestrator; per-chain timeout settings override it.
	RetryPolicy retry.Policy
}

// Server is the HTTP front of the engine.
type Server struct {
	cfg  Config
	log  *logger.Logger
	http *http.Server

	mu    sync.RWMutex
	swaps map[string]*swap.Orchestrator
}

// NewServer builds the server and its routes.
func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	s := &Server{
		cfg:   cfg,
		log:   log,
		swaps: make(map[string]*swap.Orchestrator),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/chains", s.handleListChains).Methods(http.MethodGet)
	v1.HandleFunc("/chains/{id}", s.handleGetChain).Methods(http.MethodGet)

	v1.HandleFunc("/swaps", s.handleCreateSwap).Methods(http.MethodPost)
	v1.HandleFunc("/swaps/{id}", s.handleGetSwap).Methods(http.MethodGet)
	v1.HandleFunc("/swaps/{id}", s.handleDeleteSwap).Methods(http.MethodDelete)
	v1.HandleFunc("/swaps/{id}/chains", s.handleSetChains).Methods(http.MethodPut)
	v1.HandleFunc("/swaps/{id}/tokens", s.handleSetTokens).Methods(http.MethodPut)
	v1.HandleFunc("/swaps/{id}/amount", s.handleSetAmount).Methods(http.MethodPut)
	v1.HandleFunc("/swaps/{id}/recipient", s.handleSetRecipient).Methods(http.MethodPut)
	v1.HandleFunc("/swaps/{id}/confirm", s.handleConfirm).Methods(http.MethodPost)
	v1.HandleFunc("/swaps/{id}/cancel", s.handleCancel).Methods(http.MethodPost)
	v1.HandleFunc("/swaps/{id}/confirmations", s.handleConfirmations).Methods(http.MethodPost)

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ==================== swap lifecycle ====================

func (s *Server) handleCreateSwap(w http.ResponseWriter, r *http.Request) {
	orch, err := swap.New(swap.Config{
		Registry:    s.cfg.Registry,
		Gate:        s.cfg.Gate,
		Estimator:   s.cfg.Estimator,
		Tracker:     s.cfg.Tracker,
		Backend:     s.cfg.Backend,
		Metrics:     s.cfg.Metrics,
		Logger:      s.log,
		RetryPolicy: s.cfg.RetryPolicy,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.mu.Lock()
	s.swaps[orch.ID()] = orch
	s.mu.Unlock()

	s.writeJSON(w, http.StatusCreated, orch.Snapshot())
}

func (s *Server) handleGetSwap(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, orch.Snapshot())
}

// handleDeleteSwap releases a finished swap: the orchestrator leaves the
// in-memory map and its per-swap gauge series are dropped. Active swaps
// must be cancelled first.
func (s *Server) handleDeleteSwap(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if !orch.CurrentState().IsTerminal() {
		s.writeError(w, http.StatusConflict,
			fmt.Errorf("%w: swap %s is still active; cancel it first", swap.ErrInvalidTransition, orch.ID()))
		return
	}

	s.mu.Lock()
	delete(s.swaps, orch.ID())
	s.mu.Unlock()

	if s.cfg.Metrics != nil {
		if status, ok := orch.Status(); ok {
			s.cfg.Metrics.DeleteSwap(status.SwapID)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetChains(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		SourceChainID *uint64 `json:"sourceChainId"`
		DestChainID   *uint64 `json:"destChainId"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	source, dest := chains.NoChain, chains.NoChain
	if body.SourceChainID != nil {
		source = chains.ID(*body.SourceChainID)
	}
	if body.DestChainID != nil {
		dest = chains.ID(*body.DestChainID)
	}
	s.apply(w, orch, orch.SetChains(r.Context(), source, dest))
}

func (s *Server) handleSetTokens(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		TokenIn  string `json:"tokenIn"`
		TokenOut string `json:"tokenOut"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	s.apply(w, orch, orch.SetTokens(r.Context(), body.TokenIn, body.TokenOut))
}

func (s *Server) handleSetAmount(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Amount string `json:"amount"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	s.apply(w, orch, orch.SetAmount(r.Context(), body.Amount))
}

func (s *Server) handleSetRecipient(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Recipient string `json:"recipient"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	s.apply(w, orch, orch.SetRecipient(body.Recipient))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.apply(w, orch, orch.Confirm(r.Context()))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.apply(w, orch, orch.Cancel(r.Context()))
}

func (s *Server) handleConfirmations(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var update swap.ConfirmationUpdate
	if !s.decode(w, r, &update) {
		return
	}
	s.apply(w, orch, orch.ApplyConfirmations(update))
}

// ==================== chain catalog ====================

func (s *Server) handleListChains(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Registry.All())
}

func (s *Server) handleGetChain(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid chain id %q", raw))
		return
	}
	desc, ok := s.cfg.Registry.Chain(chains.ID(id))
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%w: %d", chains.ErrUnknownChain, id))
		return
	}
	s.writeJSON(w, http.StatusOK, desc)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==================== helpers ====================

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*swap.Orchestrator, bool) {
	id := mux.Vars(r)["id"]
	s.mu.RLock()
	orch, ok := s.swaps[id]
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("swap %s not found", id))
		return nil, false
	}
	return orch, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// apply maps an orchestrator result onto an HTTP response: validation
// problems are 400, sequencing problems 409, unknown chains 404, and
// everything else 502 because it came from the bridging backend.
func (s *Server) apply(w http.ResponseWriter, orch *swap.Orchestrator, err error) {
	if err == nil {
		s.writeJSON(w, http.StatusOK, orch.Snapshot())
		return
	}

	var valErr *swap.ValidationError
	switch {
	case errors.As(err, &valErr):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, swap.ErrInvalidTransition):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, chains.ErrUnknownChain):
		s.writeError(w, http.StatusNotFound, err)
	default:
		s.writeError(w, http.StatusBadGateway, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

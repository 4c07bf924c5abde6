// Package server exposes the admin panel and action-runtime API over HTTP.
// Handlers forward into the storage layer and collaborators; no business
// rules live here.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/muhsinzengin/yapay-zeka-destek/internal/auth"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/export"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/storage"
)

// Notifier is the admin-alerting collaborator. Delivery failures are the
// collaborator's problem; handlers only log them.
type Notifier interface {
	Configured() bool
	SendAdminCode(code string, ttlMinutes int) error
	NotifyNewCustomer(userID, message string) error
}

// historyLimit caps the per-user conversation endpoint, as the original
// admin panel did.
const historyLimit = 100

// liveWindow is the trailing duration shown on the live dashboard.
const liveWindow = time.Hour

type Server struct {
	store      storage.Storage
	codes      *auth.CodeService
	exporter   *export.Exporter
	notifier   Notifier
	logger     *zap.Logger
	ttlMinutes int
	nluPath    string
	router     *mux.Router
}

func New(store storage.Storage, codes *auth.CodeService, exporter *export.Exporter, notifier Notifier, ttlMinutes int, nluPath string, logger *zap.Logger) *Server {
	s := &Server{
		store:      store,
		codes:      codes,
		exporter:   exporter,
		notifier:   notifier,
		logger:     logger,
		ttlMinutes: ttlMinutes,
		nluPath:    nluPath,
		router:     mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.countRequests)

	api.HandleFunc("/health/db", s.handleHealthDB).Methods(http.MethodGet)
	api.HandleFunc("/health/telegram", s.handleHealthTelegram).Methods(http.MethodGet)

	api.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)

	api.HandleFunc("/training-data", s.handleListTrainingData).Methods(http.MethodGet)
	api.HandleFunc("/training-data", s.handleAddTrainingData).Methods(http.MethodPost)
	api.HandleFunc("/training-data/{id}", s.handleDeleteTrainingData).Methods(http.MethodDelete)

	api.HandleFunc("/live-conversations", s.handleLiveConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversation/{user_id}", s.handleConversationHistory).Methods(http.MethodGet)
	api.HandleFunc("/conversation", s.handleAppendTurn).Methods(http.MethodPost)
	api.HandleFunc("/intervention", s.handleIntervention).Methods(http.MethodPost)

	api.HandleFunc("/gpt4-usage", s.handleAppendUsage).Methods(http.MethodPost)

	api.HandleFunc("/admin/request-code", s.handleRequestCode).Methods(http.MethodPost)
	api.HandleFunc("/admin/verify-code", s.handleVerifyCode).Methods(http.MethodPost)

	api.HandleFunc("/export", s.handleExport).Methods(http.MethodPost)

	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

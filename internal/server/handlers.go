package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/muhsinzengin/yapay-zeka-destek/internal/models"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/storage"
)

func (s *Server) handleHealthDB(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("Database health check failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleHealthTelegram(w http.ResponseWriter, r *http.Request) {
	status := "not_configured"
	if s.notifier.Configured() {
		status = "configured"
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	period := models.ParsePeriod(r.URL.Query().Get("period"))

	stats, err := s.store.Statistics(r.Context(), period)
	if err != nil {
		s.logger.Error("Failed to get statistics", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListTrainingData(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.ListTrainingData(r.Context())
	if err != nil {
		s.logger.Error("Failed to list training data", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if data == nil {
		data = []*models.TrainingExample{}
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleAddTrainingData(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	example := &models.TrainingExample{Payload: payload}
	if err := s.store.SaveTrainingData(r.Context(), example); err != nil {
		s.logger.Error("Failed to save training data", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "success", "id": example.ID})
}

func (s *Server) handleDeleteTrainingData(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	err := s.store.DeleteTrainingData(r.Context(), id)
	switch {
	case err == nil, errors.Is(err, storage.ErrNotFound):
		// Deleting a missing record is a no-op.
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	case errors.Is(err, storage.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("Failed to delete training data", zap.String("id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleLiveConversations(w http.ResponseWriter, r *http.Request) {
	live, err := s.store.LiveConversations(r.Context(), liveWindow)
	if err != nil {
		s.logger.Error("Failed to get live conversations", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if live == nil {
		live = []*models.LiveConversation{}
	}
	s.writeJSON(w, http.StatusOK, live)
}

func (s *Server) handleConversationHistory(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	turns, err := s.store.ConversationHistory(r.Context(), userID, historyLimit)
	if err != nil {
		s.logger.Error("Failed to get conversation history",
			zap.String("user_id", userID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if turns == nil {
		turns = []*models.ConversationTurn{}
	}
	s.writeJSON(w, http.StatusOK, turns)
}

type appendTurnRequest struct {
	UserID     string  `json:"user_id"`
	Message    string  `json:"message"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func (s *Server) handleAppendTurn(w http.ResponseWriter, r *http.Request) {
	var req appendTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	turn := &models.ConversationTurn{
		UserID:     req.UserID,
		Message:    req.Message,
		Intent:     req.Intent,
		Confidence: req.Confidence,
		Sender:     models.SenderUser,
		Timestamp:  time.Now(),
	}
	if err := s.store.LogConversation(r.Context(), turn); err != nil {
		s.logger.Error("Failed to log conversation", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	turnsLogged.Inc()

	// First contact triggers a new-customer alert. The count includes the
	// turn just written, so 1 means this message opened the conversation.
	count, err := s.store.UserConversationCount(r.Context(), req.UserID)
	if err != nil {
		s.logger.Warn("Failed to check conversation count", zap.Error(err))
	} else if count <= 1 {
		if err := s.notifier.NotifyNewCustomer(req.UserID, req.Message); err != nil {
			s.logger.Warn("Failed to send new customer notification", zap.Error(err))
		}
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}

type interventionRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	var req interventionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	turn := &models.ConversationTurn{
		UserID:       req.UserID,
		Message:      req.Message,
		Sender:       models.SenderAdmin,
		Timestamp:    time.Now(),
		Intervention: true,
	}
	if err := s.store.LogConversation(r.Context(), turn); err != nil {
		s.logger.Error("Failed to log intervention", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	turnsLogged.Inc()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type usageRequest struct {
	UserID          string `json:"user_id"`
	Message         string `json:"message"`
	Response        string `json:"response"`
	EstimatedTokens int    `json:"estimated_tokens"`
}

func (s *Server) handleAppendUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	rec := &models.UsageRecord{
		UserID:          req.UserID,
		Message:         req.Message,
		Response:        req.Response,
		Timestamp:       time.Now(),
		EstimatedTokens: req.EstimatedTokens,
	}
	if err := s.store.LogGPT4Usage(r.Context(), rec); err != nil {
		s.logger.Error("Failed to log GPT-4 usage", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	code, err := s.codes.Issue(r.Context())
	if err != nil {
		s.logger.Error("Failed to issue admin code", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	codesIssued.Inc()

	if err := s.notifier.SendAdminCode(code, s.ttlMinutes); err != nil {
		s.logger.Error("Failed to deliver admin code", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "code_sent"})
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ok, err := s.codes.Redeem(r.Context(), req.Code)
	if err != nil {
		s.logger.Error("Failed to verify admin code", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "invalid"})
		return
	}
	codesRedeemed.Inc()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := s.exporter.WriteNLU(r.Context(), s.nluPath); err != nil {
		s.logger.Error("Failed to export NLU corpus", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "exported", "path": s.nluPath})
}

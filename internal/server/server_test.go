package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muhsinzengin/yapay-zeka-destek/internal/auth"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/export"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/models"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/storage"
)

type fakeNotifier struct {
	codes        []string
	newCustomers []string
}

func (f *fakeNotifier) Configured() bool { return true }

func (f *fakeNotifier) SendAdminCode(code string, ttlMinutes int) error {
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeNotifier) NotifyNewCustomer(userID, message string) error {
	f.newCustomers = append(f.newCustomers, userID)
	return nil
}

func newTestServer(t *testing.T) (*Server, *storage.MemoryStorage, *fakeNotifier) {
	t.Helper()
	store := storage.NewMemoryStorage(storage.DefaultCostPer1KTokens)
	logger := zap.NewNop()
	codes := auth.NewCodeService(store, 5*time.Minute, logger)
	exporter := export.NewExporter(store, logger)
	notifier := &fakeNotifier{}
	nluPath := t.TempDir() + "/nlu.yml"
	return New(store, codes, exporter, notifier, 5, nluPath, logger), store, notifier
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestStatisticsEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, store.LogConversation(ctx, &models.ConversationTurn{
		UserID: "alice", Message: "merhaba", Timestamp: time.Now(),
	}))

	w := doJSON(t, srv, http.MethodGet, "/api/statistics?period=daily", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	// Field names are the original dashboard contract.
	assert.Equal(t, float64(1), body["conversation_count"])
	assert.Equal(t, float64(1), body["unique_users"])
	assert.Equal(t, float64(0), body["gpt4_usage_count"])
	assert.Equal(t, float64(0), body["estimated_gpt4_cost"])
	assert.Equal(t, "daily", body["period"])
}

func TestStatisticsUnknownPeriodFallsBackToAll(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/statistics?period=fortnightly", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "all", body["period"])
}

func TestTrainingDataCRUD(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/training-data",
		map[string]any{"intent": "greet", "examples": []string{"selam"}})
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created["id"])

	w = doJSON(t, srv, http.MethodGet, "/api/training-data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	w = doJSON(t, srv, http.MethodDelete, "/api/training-data/"+created["id"], nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Deleting again is a no-op, not an error.
	w = doJSON(t, srv, http.MethodDelete, "/api/training-data/"+created["id"], nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/training-data/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppendTurnNotifiesFirstContactOnly(t *testing.T) {
	srv, store, notifier := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/conversation",
		map[string]any{"user_id": "alice", "message": "merhaba", "intent": "greet", "confidence": 0.9})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"alice"}, notifier.newCustomers)

	w = doJSON(t, srv, http.MethodPost, "/api/conversation",
		map[string]any{"user_id": "alice", "message": "bir soru", "intent": "ask", "confidence": 0.8})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, notifier.newCustomers, 1, "returning user must not re-alert")

	count, err := store.UserConversationCount(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestInterventionLogsAdminTurn(t *testing.T) {
	srv, store, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/intervention",
		map[string]any{"user_id": "alice", "message": "operatör devrede"})
	require.Equal(t, http.StatusOK, w.Code)

	turns, err := store.ConversationHistory(context.Background(), "alice", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, models.SenderAdmin, turns[0].Sender)
	assert.True(t, turns[0].Intervention)
}

func TestAppendUsage(t *testing.T) {
	srv, store, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/gpt4-usage",
		map[string]any{"user_id": "alice", "message": "q", "response": "a", "estimated_tokens": 33})
	require.Equal(t, http.StatusCreated, w.Code)

	stats, err := store.Statistics(context.Background(), models.PeriodDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GPT4UsageCount)
}

func TestAdminCodeFlow(t *testing.T) {
	srv, _, notifier := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/admin/request-code", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, notifier.codes, 1)
	code := notifier.codes[0]

	w = doJSON(t, srv, http.MethodPost, "/api/admin/verify-code",
		map[string]string{"code": code})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/admin/verify-code",
		map[string]string{"code": code})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "a code verifies once")

	w = doJSON(t, srv, http.MethodPost, "/api/admin/verify-code",
		map[string]string{"code": "000000"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLiveConversationsEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, store.LogConversation(ctx, &models.ConversationTurn{
		UserID: "alice", Message: "yeni mesaj", Timestamp: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, store.LogConversation(ctx, &models.ConversationTurn{
		UserID: "stale", Message: "eski", Timestamp: time.Now().Add(-2 * time.Hour),
	}))

	w := doJSON(t, srv, http.MethodGet, "/api/live-conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var live []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &live))
	require.Len(t, live, 1)
	assert.Equal(t, "alice", live[0]["user_id"])
	assert.Equal(t, "yeni mesaj", live[0]["last_message"])
	assert.Equal(t, float64(1), live[0]["message_count"])
}

func TestExportEndpointWritesCorpus(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, store.LogConversation(ctx, &models.ConversationTurn{
		UserID: "alice", Message: "merhaba", Intent: "greet", Timestamp: time.Now(),
	}))

	w := doJSON(t, srv, http.MethodPost, "/api/export", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "exported", body["status"])
	assert.NotEmpty(t, body["path"])
}

// failingStorage simulates an unreachable database for the handlers that
// must never turn a dead store into a silent empty result. The embedded
// interface panics if a test reaches an operation it does not stub.
type failingStorage struct {
	storage.Storage
}

func (f *failingStorage) LogConversation(ctx context.Context, turn *models.ConversationTurn) error {
	return fmt.Errorf("error logging conversation: %w", storage.ErrUnavailable)
}

func (f *failingStorage) Statistics(ctx context.Context, period models.Period) (*models.Statistics, error) {
	return nil, fmt.Errorf("error aggregating conversations: %w", storage.ErrUnavailable)
}

func newFailingServer(t *testing.T) *Server {
	t.Helper()
	store := &failingStorage{}
	logger := zap.NewNop()
	codes := auth.NewCodeService(store, 5*time.Minute, logger)
	exporter := export.NewExporter(store, logger)
	return New(store, codes, exporter, &fakeNotifier{}, 5, t.TempDir()+"/nlu.yml", logger)
}

func TestAppendTurnSurfacesUnavailableStore(t *testing.T) {
	srv := newFailingServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/conversation",
		map[string]any{"user_id": "alice", "message": "merhaba"})
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["error"], storage.ErrUnavailable.Error())
}

func TestStatisticsSurfacesUnavailableStore(t *testing.T) {
	srv := newFailingServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/statistics?period=daily", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	// A dead store must be distinguishable from zero activity, which
	// returns 200 with all-zero counts.
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/health/db", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/health/telegram", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "configured", body["status"])
}

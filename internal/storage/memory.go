package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/models"
)

// MemoryStorage keeps everything in process memory. It backs local runs
// without a database and doubles as the storage used by tests.
type MemoryStorage struct {
	mu              sync.RWMutex
	conversations   []*models.ConversationTurn
	usage           []*models.UsageRecord
	codes           []*models.AuthCode
	training        map[string]*models.TrainingExample
	nextID          int64
	costPer1KTokens float64
}

func NewMemoryStorage(costPer1KTokens float64) *MemoryStorage {
	return &MemoryStorage{
		training:        make(map[string]*models.TrainingExample),
		nextID:          1,
		costPer1KTokens: costPer1KTokens,
	}
}

func (s *MemoryStorage) LogConversation(ctx context.Context, turn *models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.Sender == "" {
		turn.Sender = models.SenderUser
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	turn.ID = s.nextID
	s.nextID++

	stored := *turn
	s.conversations = append(s.conversations, &stored)
	return nil
}

func (s *MemoryStorage) UserConversationCount(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, turn := range s.conversations {
		if turn.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) ConversationHistory(ctx context.Context, userID string, limit int) ([]*models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var turns []*models.ConversationTurn
	for _, turn := range s.conversations {
		if turn.UserID == userID {
			copied := *turn
			turns = append(turns, &copied)
		}
	}

	// Insertion order breaks timestamp ties, so a stable sort over the
	// already insertion-ordered slice is enough.
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Timestamp.Before(turns[j].Timestamp)
	})

	if limit > 0 && len(turns) > limit {
		turns = turns[:limit]
	}
	return turns, nil
}

func (s *MemoryStorage) LiveConversations(ctx context.Context, within time.Duration) ([]*models.LiveConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := time.Now().Add(-within)
	groups := make(map[string]*models.LiveConversation)
	for _, turn := range s.conversations {
		if turn.Timestamp.Before(since) {
			continue
		}
		lc, ok := groups[turn.UserID]
		if !ok {
			lc = &models.LiveConversation{UserID: turn.UserID}
			groups[turn.UserID] = lc
		}
		lc.MessageCount++
		if !turn.Timestamp.Before(lc.LastTimestamp) {
			lc.LastMessage = turn.Message
			lc.LastTimestamp = turn.Timestamp
		}
	}

	live := make([]*models.LiveConversation, 0, len(groups))
	for _, lc := range groups {
		live = append(live, lc)
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].LastTimestamp.After(live[j].LastTimestamp)
	})
	return live, nil
}

func (s *MemoryStorage) DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*models.ConversationTurn
	var removed int64
	for _, turn := range s.conversations {
		if turn.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, turn)
	}
	s.conversations = kept
	return removed, nil
}

func (s *MemoryStorage) IntentExamples(ctx context.Context) ([]*models.IntentExamples, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]map[string]bool)
	for _, turn := range s.conversations {
		if turn.Intent == "" {
			continue
		}
		if seen[turn.Intent] == nil {
			seen[turn.Intent] = make(map[string]bool)
		}
		seen[turn.Intent][turn.Message] = true
	}

	var intents []*models.IntentExamples
	for intent, messages := range seen {
		ie := &models.IntentExamples{Intent: intent}
		for message := range messages {
			ie.Examples = append(ie.Examples, message)
		}
		sort.Strings(ie.Examples)
		intents = append(intents, ie)
	}
	sort.Slice(intents, func(i, j int) bool {
		return intents[i].Intent < intents[j].Intent
	})
	return intents, nil
}

func (s *MemoryStorage) LogGPT4Usage(ctx context.Context, rec *models.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	rec.ID = s.nextID
	s.nextID++

	stored := *rec
	s.usage = append(s.usage, &stored)
	return nil
}

func (s *MemoryStorage) StoreAdminCode(ctx context.Context, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.codes = append(s.codes, &models.AuthCode{
		ID:        s.nextID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	s.nextID++
	return nil
}

func (s *MemoryStorage) RedeemAdminCode(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Newest matching code first, mirroring the SQL implementation.
	now := time.Now()
	for i := len(s.codes) - 1; i >= 0; i-- {
		c := s.codes[i]
		if c.Code == code && !c.Used && c.ExpiresAt.After(now) {
			c.Used = true
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStorage) PurgeExpiredCodes(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var kept []*models.AuthCode
	var removed int64
	for _, c := range s.codes {
		if !c.ExpiresAt.After(now) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	s.codes = kept
	return removed, nil
}

func (s *MemoryStorage) SaveTrainingData(ctx context.Context, example *models.TrainingExample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if example.ID == "" {
		example.ID = uuid.NewString()
	}
	if example.CreatedAt.IsZero() {
		example.CreatedAt = time.Now()
	}

	stored := *example
	s.training[stored.ID] = &stored
	return nil
}

func (s *MemoryStorage) ListTrainingData(ctx context.Context) ([]*models.TrainingExample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	examples := make([]*models.TrainingExample, 0, len(s.training))
	for _, example := range s.training {
		copied := *example
		examples = append(examples, &copied)
	}
	sort.Slice(examples, func(i, j int) bool {
		return examples[i].CreatedAt.After(examples[j].CreatedAt)
	})
	return examples, nil
}

func (s *MemoryStorage) DeleteTrainingData(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("error parsing training data id %q: %w", id, ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.training[id]; !ok {
		return fmt.Errorf("training data %s: %w", id, ErrNotFound)
	}
	delete(s.training, id)
	return nil
}

func (s *MemoryStorage) Statistics(ctx context.Context, period models.Period) (*models.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := period.Start(time.Now())
	stats := &models.Statistics{Period: period}

	users := make(map[string]bool)
	for _, turn := range s.conversations {
		if turn.Timestamp.Before(start) {
			continue
		}
		stats.ConversationCount++
		users[turn.UserID] = true
	}
	stats.UniqueUsers = len(users)

	var totalTokens int64
	for _, rec := range s.usage {
		if rec.Timestamp.Before(start) {
			continue
		}
		stats.GPT4UsageCount++
		totalTokens += int64(rec.EstimatedTokens)
	}
	stats.EstimatedGPT4Cost = EstimateCost(totalTokens, s.costPer1KTokens)

	return stats, nil
}

func (s *MemoryStorage) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := &models.Snapshot{BackupTimestamp: time.Now()}
	for _, turn := range s.conversations {
		copied := *turn
		snapshot.Conversations = append(snapshot.Conversations, &copied)
	}
	for _, rec := range s.usage {
		copied := *rec
		snapshot.GPT4Usage = append(snapshot.GPT4Usage, &copied)
	}
	for _, example := range s.training {
		copied := *example
		snapshot.TrainingData = append(snapshot.TrainingData, &copied)
	}
	sort.Slice(snapshot.TrainingData, func(i, j int) bool {
		return snapshot.TrainingData[i].CreatedAt.After(snapshot.TrainingData[j].CreatedAt)
	})
	return snapshot, nil
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/muhsinzengin/yapay-zeka-destek/internal/models"
)

var (
	// ErrUnavailable means the underlying store could not be reached.
	// Write paths must surface it to the caller; scheduled maintenance
	// logs it and retries on the next cycle.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotFound means a lookup or delete targeted a record that does
	// not exist. Deletes treat it as a no-op.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput means an identifier could not be parsed.
	ErrInvalidInput = errors.New("invalid input")
)

type Storage interface {
	ConversationStorage
	UsageStorage
	AuthCodeStorage
	TrainingDataStorage

	// Statistics aggregates conversations and usage from the period's
	// start boundary to now. A store failure is an error, never a zero
	// result.
	Statistics(ctx context.Context, period models.Period) (*models.Statistics, error)

	// Snapshot captures conversations, training data and usage records
	// for backup. Auth codes are never included.
	Snapshot(ctx context.Context) (*models.Snapshot, error)

	Ping(ctx context.Context) error
	Close() error
}

type ConversationStorage interface {
	// LogConversation appends one turn. Empty message or intent is valid;
	// the only failure mode is the store being unavailable.
	LogConversation(ctx context.Context, turn *models.ConversationTurn) error

	// UserConversationCount reports the total turns recorded for a user.
	UserConversationCount(ctx context.Context, userID string) (int, error)

	// ConversationHistory returns up to limit turns for a user, oldest
	// first, insertion order breaking timestamp ties.
	ConversationHistory(ctx context.Context, userID string, limit int) ([]*models.ConversationTurn, error)

	// LiveConversations groups turns from the trailing window by user,
	// most recently active user first.
	LiveConversations(ctx context.Context, within time.Duration) ([]*models.LiveConversation, error)

	// DeleteConversationsBefore removes turns strictly older than cutoff
	// and reports how many were removed. A turn exactly at the cutoff
	// survives.
	DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// IntentExamples collects the distinct message texts per non-empty
	// intent for the training-corpus export.
	IntentExamples(ctx context.Context) ([]*models.IntentExamples, error)
}

type UsageStorage interface {
	// LogGPT4Usage appends one fallback-model usage record. The token
	// estimate is stored exactly as supplied.
	LogGPT4Usage(ctx context.Context, rec *models.UsageRecord) error
}

type AuthCodeStorage interface {
	// StoreAdminCode persists a fresh unused code expiring after ttl.
	StoreAdminCode(ctx context.Context, code string, ttl time.Duration) error

	// RedeemAdminCode marks one matching unused, unexpired code as used
	// and reports whether it did. The update is a single conditional
	// write: under concurrent redeems of the same code at most one
	// caller sees true.
	RedeemAdminCode(ctx context.Context, code string) (bool, error)

	// PurgeExpiredCodes removes codes past their expiry.
	PurgeExpiredCodes(ctx context.Context) (int64, error)
}

type TrainingDataStorage interface {
	// SaveTrainingData stores a payload, assigning ID and CreatedAt.
	SaveTrainingData(ctx context.Context, example *models.TrainingExample) error

	// ListTrainingData returns all examples, newest first.
	ListTrainingData(ctx context.Context) ([]*models.TrainingExample, error)

	// DeleteTrainingData removes one example by id. An unknown id is
	// ErrNotFound, an unparseable one ErrInvalidInput.
	DeleteTrainingData(ctx context.Context, id string) error
}

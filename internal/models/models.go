package models

import "time"

// Sender identifies which side of the conversation produced a turn.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// ConversationTurn is one logged dialogue message. Turns are append-only:
// once written they are never updated, only aged out by retention.
type ConversationTurn struct {
	ID           int64     `json:"id,omitempty"`
	UserID       string    `json:"user_id"`
	Message      string    `json:"message"`
	Intent       string    `json:"intent"`
	Confidence   float64   `json:"confidence"`
	Sender       Sender    `json:"sender"`
	Timestamp    time.Time `json:"timestamp"`
	Intervention bool      `json:"intervention"`
}

// UsageRecord tracks one paid fallback-model call for cost accounting.
// EstimatedTokens is supplied by the caller and stored verbatim.
type UsageRecord struct {
	ID              int64     `json:"id,omitempty"`
	UserID          string    `json:"user_id"`
	Message         string    `json:"message"`
	Response        string    `json:"response"`
	Timestamp       time.Time `json:"timestamp"`
	EstimatedTokens int       `json:"estimated_tokens"`
}

// AuthCode is a short-lived 6-digit admin authentication code.
// It moves through exactly one transition: used false -> true.
type AuthCode struct {
	ID        int64     `json:"id,omitempty"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}

// TrainingExample is an admin-panel submission. The payload is schema-less;
// the store persists it as a JSON document and enforces nothing about it.
type TrainingExample struct {
	ID        string         `json:"id"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// LiveConversation summarizes one user's activity inside the live window.
type LiveConversation struct {
	UserID        string    `json:"user_id"`
	LastMessage   string    `json:"last_message"`
	LastTimestamp time.Time `json:"last_timestamp"`
	MessageCount  int       `json:"message_count"`
}

// Statistics is the dashboard aggregate for one period. JSON field names
// match the original deployment's API and must not change.
type Statistics struct {
	ConversationCount int     `json:"conversation_count"`
	UniqueUsers       int     `json:"unique_users"`
	GPT4UsageCount    int     `json:"gpt4_usage_count"`
	EstimatedGPT4Cost float64 `json:"estimated_gpt4_cost"`
	Period            Period  `json:"period"`
}

// Snapshot is a full backup document. Auth codes are deliberately absent:
// credentials never leave the store.
type Snapshot struct {
	Conversations   []*ConversationTurn `json:"conversations"`
	TrainingData    []*TrainingExample  `json:"training_data"`
	GPT4Usage       []*UsageRecord      `json:"gpt4_usage"`
	BackupTimestamp time.Time           `json:"backup_timestamp"`
}

// IntentExamples groups the distinct message texts recorded for one intent,
// the unit of the NLU training-corpus export.
type IntentExamples struct {
	Intent   string
	Examples []string
}

package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db              *sql.DB
	costPer1KTokens float64
	logger          *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, costPer1KTokens float64, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", ErrUnavailable)
	}

	storage := &PostgresStorage{db: db, costPer1KTokens: costPer1KTokens, logger: logger}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", config.Host),
		zap.String("dbname", config.DBName))

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

// unavailable tags a driver failure with the Unavailable kind so callers
// can tell a dead store from an empty result.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

func (s *PostgresStorage) LogConversation(ctx context.Context, turn *models.ConversationTurn) error {
	if turn.Sender == "" {
		turn.Sender = models.SenderUser
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}

	query := `
		INSERT INTO conversations (user_id, message, intent, confidence, sender, timestamp, intervention)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		turn.UserID,
		turn.Message,
		turn.Intent,
		turn.Confidence,
		turn.Sender,
		turn.Timestamp,
		turn.Intervention,
	).Scan(&turn.ID)
	if err != nil {
		return unavailable("error logging conversation", err)
	}

	return nil
}

func (s *PostgresStorage) UserConversationCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, unavailable("error counting conversations", err)
	}
	return count, nil
}

func (s *PostgresStorage) ConversationHistory(ctx context.Context, userID string, limit int) ([]*models.ConversationTurn, error) {
	query := `
		SELECT id, user_id, message, intent, confidence, sender, timestamp, intervention
		FROM conversations
		WHERE user_id = $1
		ORDER BY timestamp ASC, id ASC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, unavailable("error querying conversation history", err)
	}
	defer rows.Close()

	var turns []*models.ConversationTurn
	for rows.Next() {
		turn := &models.ConversationTurn{}
		err := rows.Scan(
			&turn.ID,
			&turn.UserID,
			&turn.Message,
			&turn.Intent,
			&turn.Confidence,
			&turn.Sender,
			&turn.Timestamp,
			&turn.Intervention,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning conversation turn: %v", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("error reading conversation history", err)
	}

	return turns, nil
}

func (s *PostgresStorage) LiveConversations(ctx context.Context, within time.Duration) ([]*models.LiveConversation, error) {
	since := time.Now().Add(-within)

	query := `
		SELECT user_id,
		       (ARRAY_AGG(message ORDER BY timestamp DESC, id DESC))[1] AS last_message,
		       MAX(timestamp) AS last_timestamp,
		       COUNT(*) AS message_count
		FROM conversations
		WHERE timestamp >= $1
		GROUP BY user_id
		ORDER BY last_timestamp DESC`

	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, unavailable("error querying live conversations", err)
	}
	defer rows.Close()

	var live []*models.LiveConversation
	for rows.Next() {
		lc := &models.LiveConversation{}
		if err := rows.Scan(&lc.UserID, &lc.LastMessage, &lc.LastTimestamp, &lc.MessageCount); err != nil {
			return nil, fmt.Errorf("error scanning live conversation: %v", err)
		}
		live = append(live, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("error reading live conversations", err)
	}

	return live, nil
}

func (s *PostgresStorage) DeleteConversationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, unavailable("error deleting old conversations", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %v", err)
	}
	return removed, nil
}

func (s *PostgresStorage) IntentExamples(ctx context.Context) ([]*models.IntentExamples, error) {
	query := `
		SELECT intent, ARRAY_AGG(DISTINCT message)
		FROM conversations
		WHERE intent <> ''
		GROUP BY intent
		ORDER BY intent`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("error querying intent examples", err)
	}
	defer rows.Close()

	var intents []*models.IntentExamples
	for rows.Next() {
		ie := &models.IntentExamples{}
		if err := rows.Scan(&ie.Intent, pq.Array(&ie.Examples)); err != nil {
			return nil, fmt.Errorf("error scanning intent examples: %v", err)
		}
		intents = append(intents, ie)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("error reading intent examples", err)
	}

	return intents, nil
}

func (s *PostgresStorage) LogGPT4Usage(ctx context.Context, rec *models.UsageRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	query := `
		INSERT INTO gpt4_usage (user_id, message, response, timestamp, estimated_tokens)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		rec.UserID,
		rec.Message,
		rec.Response,
		rec.Timestamp,
		rec.EstimatedTokens,
	).Scan(&rec.ID)
	if err != nil {
		return unavailable("error logging GPT-4 usage", err)
	}

	return nil
}

func (s *PostgresStorage) StoreAdminCode(ctx context.Context, code string, ttl time.Duration) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_codes (code, created_at, expires_at, used) VALUES ($1, $2, $3, FALSE)`,
		code, now, now.Add(ttl))
	if err != nil {
		return unavailable("error storing admin code", err)
	}
	return nil
}

func (s *PostgresStorage) RedeemAdminCode(ctx context.Context, code string) (bool, error) {
	// Single conditional update scoped to one picked row: two concurrent
	// redeems of the same code race on the row lock and only the first
	// one still matches the used = FALSE condition.
	query := `
		UPDATE admin_codes
		SET used = TRUE
		WHERE id = (
			SELECT id FROM admin_codes
			WHERE code = $1 AND used = FALSE AND expires_at > $2
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		) AND used = FALSE`

	result, err := s.db.ExecContext(ctx, query, code, time.Now())
	if err != nil {
		return false, unavailable("error redeeming admin code", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %v", err)
	}
	return affected == 1, nil
}

func (s *PostgresStorage) PurgeExpiredCodes(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM admin_codes WHERE expires_at <= $1`, time.Now())
	if err != nil {
		return 0, unavailable("error purging expired codes", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %v", err)
	}
	return removed, nil
}

func (s *PostgresStorage) SaveTrainingData(ctx context.Context, example *models.TrainingExample) error {
	if example.ID == "" {
		example.ID = uuid.NewString()
	}
	if example.CreatedAt.IsZero() {
		example.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(example.Payload)
	if err != nil {
		return fmt.Errorf("error encoding training payload: %w: %v", ErrInvalidInput, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO training_data (id, payload, created_at) VALUES ($1, $2, $3)`,
		example.ID, payload, example.CreatedAt)
	if err != nil {
		return unavailable("error saving training data", err)
	}
	return nil
}

func (s *PostgresStorage) ListTrainingData(ctx context.Context) ([]*models.TrainingExample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload, created_at FROM training_data ORDER BY created_at DESC`)
	if err != nil {
		return nil, unavailable("error querying training data", err)
	}
	defer rows.Close()

	var examples []*models.TrainingExample
	for rows.Next() {
		example := &models.TrainingExample{}
		var payload []byte
		if err := rows.Scan(&example.ID, &payload, &example.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning training data: %v", err)
		}
		if err := json.Unmarshal(payload, &example.Payload); err != nil {
			return nil, fmt.Errorf("error decoding training payload: %v", err)
		}
		examples = append(examples, example)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("error reading training data", err)
	}

	return examples, nil
}

func (s *PostgresStorage) DeleteTrainingData(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("error parsing training data id %q: %w", id, ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM training_data WHERE id = $1`, parsed)
	if err != nil {
		return unavailable("error deleting training data", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if affected == 0 {
		return fmt.Errorf("training data %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) Statistics(ctx context.Context, period models.Period) (*models.Statistics, error) {
	start := period.Start(time.Now())

	stats := &models.Statistics{Period: period}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM conversations WHERE timestamp >= $1`,
		start).Scan(&stats.ConversationCount, &stats.UniqueUsers)
	if err != nil {
		return nil, unavailable("error aggregating conversations", err)
	}

	var totalTokens int64
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(estimated_tokens), 0) FROM gpt4_usage WHERE timestamp >= $1`,
		start).Scan(&stats.GPT4UsageCount, &totalTokens)
	if err != nil {
		return nil, unavailable("error aggregating GPT-4 usage", err)
	}

	stats.EstimatedGPT4Cost = EstimateCost(totalTokens, s.costPer1KTokens)
	return stats, nil
}

func (s *PostgresStorage) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	snapshot := &models.Snapshot{BackupTimestamp: time.Now()}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, message, intent, confidence, sender, timestamp, intervention
		FROM conversations ORDER BY id ASC`)
	if err != nil {
		return nil, unavailable("error snapshotting conversations", err)
	}
	defer rows.Close()
	for rows.Next() {
		turn := &models.ConversationTurn{}
		if err := rows.Scan(&turn.ID, &turn.UserID, &turn.Message, &turn.Intent,
			&turn.Confidence, &turn.Sender, &turn.Timestamp, &turn.Intervention); err != nil {
			return nil, fmt.Errorf("error scanning conversation turn: %v", err)
		}
		snapshot.Conversations = append(snapshot.Conversations, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("error snapshotting conversations", err)
	}

	snapshot.TrainingData, err = s.ListTrainingData(ctx)
	if err != nil {
		return nil, err
	}

	usageRows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, message, response, timestamp, estimated_tokens
		FROM gpt4_usage ORDER BY id ASC`)
	if err != nil {
		return nil, unavailable("error snapshotting GPT-4 usage", err)
	}
	defer usageRows.Close()
	for usageRows.Next() {
		rec := &models.UsageRecord{}
		if err := usageRows.Scan(&rec.ID, &rec.UserID, &rec.Message, &rec.Response,
			&rec.Timestamp, &rec.EstimatedTokens); err != nil {
			return nil, fmt.Errorf("error scanning usage record: %v", err)
		}
		snapshot.GPT4Usage = append(snapshot.GPT4Usage, rec)
	}
	if err := usageRows.Err(); err != nil {
		return nil, unavailable("error snapshotting GPT-4 usage", err)
	}

	return snapshot, nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("error pinging database", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return err
	}
	s.logger.Info("Database connection closed")
	return nil
}

// Package backup snapshots the store into portable JSON documents and
// enforces the retention policy over the accumulated backup files.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/muhsinzengin/yapay-zeka-destek/internal/models"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/storage"
	"go.uber.org/zap"
)

// DefaultRetention keeps four weeks of backups, as the original weekly
// job did.
const DefaultRetention = 28 * 24 * time.Hour

const filePrefix = "backup_"

type Writer struct {
	store  storage.Storage
	dir    string
	logger *zap.Logger
}

func NewWriter(store storage.Storage, dir string, logger *zap.Logger) *Writer {
	return &Writer{
		store:  store,
		dir:    dir,
		logger: logger,
	}
}

// Create snapshots the store into a timestamped file under the backup
// directory and returns its path. The write is atomic; a failed backup
// leaves no partial file behind.
func (w *Writer) Create(ctx context.Context) (string, error) {
	snapshot, err := w.store.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to snapshot store: %w", err)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %v", err)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %v", err)
	}

	name := filePrefix + snapshot.BackupTimestamp.Format("20060102_150405") + ".json"
	path := filepath.Join(w.dir, name)

	tmp, err := os.CreateTemp(w.dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %v", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write backup file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write backup file: %v", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to finalize backup file: %v", err)
	}

	w.logger.Info("Database backup created",
		zap.String("path", path),
		zap.Int("conversations", len(snapshot.Conversations)),
		zap.Int("training_examples", len(snapshot.TrainingData)),
		zap.Int("usage_records", len(snapshot.GPT4Usage)))
	return path, nil
}

// Sweep deletes backup files older than maxAge by modification time.
// Failures are logged and skipped; the next scheduled run retries.
func (w *Writer) Sweep(maxAge time.Duration) int {
	matches, err := filepath.Glob(filepath.Join(w.dir, filePrefix+"*.json"))
	if err != nil {
		w.logger.Warn("Failed to list backup files", zap.Error(err))
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			w.logger.Warn("Failed to stat backup file", zap.String("path", path), zap.Error(err))
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			w.logger.Warn("Failed to delete old backup", zap.String("path", path), zap.Error(err))
			continue
		}
		w.logger.Info("Deleted old backup", zap.String("path", path))
		removed++
	}
	return removed
}

// ReadSnapshot parses one backup file.
func ReadSnapshot(path string) (*models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %v", err)
	}

	snapshot := &models.Snapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode backup file: %v", err)
	}
	return snapshot, nil
}

// Restore replays a backup file into the store through the normal append
// paths, preserving recorded timestamps and identifiers. It adds to
// whatever the store already holds; wiping first is the operator's call.
func (w *Writer) Restore(ctx context.Context, path string) error {
	snapshot, err := ReadSnapshot(path)
	if err != nil {
		return err
	}

	for _, turn := range snapshot.Conversations {
		restored := *turn
		if err := w.store.LogConversation(ctx, &restored); err != nil {
			return fmt.Errorf("failed to restore conversation turn: %w", err)
		}
	}
	for _, rec := range snapshot.GPT4Usage {
		restored := *rec
		if err := w.store.LogGPT4Usage(ctx, &restored); err != nil {
			return fmt.Errorf("failed to restore usage record: %w", err)
		}
	}
	for _, example := range snapshot.TrainingData {
		restored := *example
		if err := w.store.SaveTrainingData(ctx, &restored); err != nil {
			return fmt.Errorf("failed to restore training example: %w", err)
		}
	}

	w.logger.Info("Backup restored",
		zap.String("path", path),
		zap.Int("conversations", len(snapshot.Conversations)),
		zap.Int("training_examples", len(snapshot.TrainingData)),
		zap.Int("usage_records", len(snapshot.GPT4Usage)))
	return nil
}

// Package export turns the accumulated conversation log into the NLU
// training-corpus document consumed by the model-training pipeline. The
// output layout is a stable contract: a version header, one block per
// intent, an indented list of example messages.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/muhsinzengin/yapay-zeka-destek/internal/storage"
	"go.uber.org/zap"
)

// MaxExamplesPerIntent caps how many distinct messages one intent block
// carries. Which subset survives when an intent has more is unspecified.
const MaxExamplesPerIntent = 50

const corpusVersion = "3.1"

type Exporter struct {
	store  storage.ConversationStorage
	logger *zap.Logger
}

func NewExporter(store storage.ConversationStorage, logger *zap.Logger) *Exporter {
	return &Exporter{
		store:  store,
		logger: logger,
	}
}

// WriteNLU renders the training corpus and writes it to path atomically:
// the document lands complete or not at all. A half-written corpus would
// silently poison the next training run.
func (e *Exporter) WriteNLU(ctx context.Context, path string) error {
	intents, err := e.store.IntentExamples(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect intent examples: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "version: %q\n\nnlu:\n", corpusVersion)
	for _, intent := range intents {
		if len(intent.Examples) == 0 {
			continue
		}
		examples := intent.Examples
		if len(examples) > MaxExamplesPerIntent {
			examples = examples[:MaxExamplesPerIntent]
		}
		fmt.Fprintf(&b, "- intent: %s\n", intent.Intent)
		b.WriteString("  examples: |\n")
		for _, example := range examples {
			fmt.Fprintf(&b, "    - %s\n", example)
		}
		b.WriteString("\n")
	}

	if err := writeFileAtomic(path, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to write NLU corpus: %w", err)
	}

	e.logger.Info("Exported conversations to NLU corpus",
		zap.String("path", path),
		zap.Int("intents", len(intents)))
	return nil
}

// writeFileAtomic writes data to a temp file in the destination directory
// and renames it over path. Rename within one directory is atomic on the
// filesystems we care about.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

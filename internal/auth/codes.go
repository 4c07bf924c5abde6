package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/muhsinzengin/yapay-zeka-destek/internal/storage"
	"go.uber.org/zap"
)

// DefaultCodeTTL matches the original deployment's 5-minute admin codes.
const DefaultCodeTTL = 5 * time.Minute

// CodeService issues and redeems the 6-digit admin authentication codes.
// Issued codes are not checked for uniqueness against outstanding ones;
// redemption consumes exactly one matching record, so a collision only
// shortens another code's life.
type CodeService struct {
	store  storage.AuthCodeStorage
	ttl    time.Duration
	logger *zap.Logger
}

func NewCodeService(store storage.AuthCodeStorage, ttl time.Duration, logger *zap.Logger) *CodeService {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &CodeService{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// Issue generates a fresh code, persists it with the configured TTL and
// returns it for delivery to the admin.
func (s *CodeService) Issue(ctx context.Context) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %v", err)
	}

	if err := s.store.StoreAdminCode(ctx, code, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store code: %w", err)
	}
	return code, nil
}

// Redeem reports whether code matched a still-valid, unused record and
// consumes it. False covers unknown, already-used and expired codes alike.
func (s *CodeService) Redeem(ctx context.Context, code string) (bool, error) {
	ok, err := s.store.RedeemAdminCode(ctx, code)
	if err != nil {
		return false, fmt.Errorf("failed to redeem code: %w", err)
	}
	return ok, nil
}

// RunSweep purges expired codes every interval until ctx is cancelled.
// Expired codes are already inert, so sweep failures only cost storage.
func (s *CodeService) RunSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.store.PurgeExpiredCodes(ctx)
			if err != nil {
				s.logger.Warn("Failed to purge expired admin codes", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Info("Purged expired admin codes", zap.Int64("removed", removed))
			}
		}
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

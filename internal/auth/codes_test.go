package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muhsinzengin/yapay-zeka-destek/internal/storage"
)

func newTestService(t *testing.T, ttl time.Duration) (*CodeService, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage(storage.DefaultCostPer1KTokens)
	return NewCodeService(store, ttl, zap.NewNop()), store
}

func TestIssueAndRedeemOnce(t *testing.T) {
	svc, _ := newTestService(t, 5*time.Minute)
	ctx := context.Background()

	code, err := svc.Issue(ctx)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "code must be numeric, got %q", code)
	}

	ok, err := svc.Redeem(ctx, code)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Redeem(ctx, code)
	require.NoError(t, err)
	assert.False(t, ok, "a code redeems exactly once")
}

func TestRedeemAfterExpiry(t *testing.T) {
	_, store := newTestService(t, 5*time.Minute)
	ctx := context.Background()

	// Stored already expired: a negative TTL stands in for elapsed time.
	require.NoError(t, store.StoreAdminCode(ctx, "314159", -time.Second))

	svc := NewCodeService(store, 5*time.Minute, zap.NewNop())
	ok, err := svc.Redeem(ctx, "314159")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentRedeemSingleWinner(t *testing.T) {
	svc, _ := newTestService(t, 5*time.Minute)
	ctx := context.Background()

	code, err := svc.Issue(ctx)
	require.NoError(t, err)

	const attempts = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := svc.Redeem(ctx, code)
			if !assert.NoError(t, err) {
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one concurrent redeem may succeed")
}

func TestDefaultTTL(t *testing.T) {
	svc, _ := newTestService(t, 0)
	assert.Equal(t, DefaultCodeTTL, svc.ttl)
}

func TestRunSweepStopsOnCancel(t *testing.T) {
	svc, store := newTestService(t, 5*time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, store.StoreAdminCode(ctx, "999999", -time.Minute))

	done := make(chan struct{})
	go func() {
		svc.RunSweep(ctx, time.Millisecond)
		close(done)
	}()

	// Give the sweep a few ticks, then make sure cancellation stops it.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop after context cancellation")
	}

	// The expired code was eligible for purging; either way it must be
	// unredeemable.
	ok, err := svc.Redeem(context.Background(), "999999")
	require.NoError(t, err)
	assert.False(t, ok)
}

package llm

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rohankatakam/burnrisk/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Redis-backed tests run only when BURNRISK_TEST_REDIS is set (e.g. localhost:6380)
func testQuotaLimiter(t *testing.T) *QuotaLimiter {
	t.Helper()
	addr := os.Getenv("BURNRISK_TEST_REDIS")
	if addr == "" {
		t.Skip("BURNRISK_TEST_REDIS not set, skipping Redis quota test")
	}
	ql, err := NewQuotaLimiter(addr, 0)
	require.NoError(t, err)
	ql.prefix = "burnrisk:test:" + t.Name()
	cleanupTestKeys(t, ql)
	t.Cleanup(func() {
		cleanupTestKeys(t, ql)
		ql.Close()
	})
	return ql
}

func cleanupTestKeys(t *testing.T, ql *QuotaLimiter) {
	ctx := context.Background()
	keys, err := ql.redis.Keys(ctx, ql.prefix+":*").Result()
	if err != nil {
		t.Logf("Warning: Failed to list Redis keys: %v", err)
		return
	}
	if len(keys) > 0 {
		if err := ql.redis.Del(ctx, keys...).Err(); err != nil {
			t.Logf("Warning: Failed to delete Redis keys: %v", err)
		}
	}
}

func TestLimiter_LocalPacing(t *testing.T) {
	l := NewLimiter(20, 1, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx, 10))
	}
	// burst of 1 at 20/s: the 2nd and 3rd calls wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(0, 0, nil)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(ctx, 10))
	}
	assert.NoError(t, l.Close())
}

func TestLimiter_RespectsContext(t *testing.T) {
	l := NewLimiter(0.001, 1, nil)
	require.NoError(t, l.Wait(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, 1))
}

func TestLimiter_NilIsNoop(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.Wait(context.Background(), 1))
	assert.NoError(t, l.Close())
}

func TestQuotaLimiter_InvalidConnection(t *testing.T) {
	ql, err := NewQuotaLimiter("localhost:1", 0)
	assert.Error(t, err)
	assert.Nil(t, ql)
}

func TestQuotaLimiter_CheckAndIncrement(t *testing.T) {
	ql := testQuotaLimiter(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		assert.NoError(t, ql.CheckAndIncrement(ctx, 100))
	}

	usage, err := ql.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), usage.RequestsThisMinute)
	assert.Equal(t, int64(1000), usage.TokensThisMinute)
	assert.Equal(t, int64(10), usage.RequestsToday)
	assert.Equal(t, ql.rpdLimit, usage.DailyLimit)
}

func TestQuotaLimiter_DailyQuota(t *testing.T) {
	ql := testQuotaLimiter(t)
	ql.rpdLimit = 3
	ctx := context.Background()

	assert.NoError(t, ql.CheckAndIncrement(ctx, 1))
	assert.NoError(t, ql.CheckAndIncrement(ctx, 1))
	err := ql.CheckAndIncrement(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily quota exceeded")

	// daily errors are not retried
	assert.Error(t, ql.CheckAndIncrementWithRetry(ctx, 1))
}

func TestQuotaLimiter_ConcurrentAccess(t *testing.T) {
	ql := testQuotaLimiter(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ql.CheckAndIncrement(ctx, 5))
		}()
	}
	wg.Wait()

	usage, err := ql.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), usage.RequestsThisMinute)
	assert.Equal(t, int64(100), usage.TokensThisMinute)
}

func TestExtractWaitTime(t *testing.T) {
	tests := []struct {
		msg  string
		want int
	}{
		{"approaching RPM limit (900/1000), wait 45s", 45},
		{"approaching TPM limit, wait 1s", 1},
		{"no wait here", 60},
		{"wait 0s", 60},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, extractWaitTime(tt.msg))
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, int64(1), EstimateTokens(""))
	assert.Equal(t, int64(3), EstimateTokens("abcd", "efgh"))
}

func TestNewQuotaLimiter_UnreachableIsExternal(t *testing.T) {
	_, err := NewQuotaLimiter("127.0.0.1:1", 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal), err.Error())
	assert.False(t, errors.IsFatal(err))
}

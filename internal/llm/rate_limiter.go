package llm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rohankatakam/burnrisk/internal/errors"
	"golang.org/x/time/rate"
)

// Limiter paces LLM calls from this process with a token bucket and, when a
// QuotaLimiter is attached, against a quota shared by every process using the same Redis.
type Limiter struct {
	local *rate.Limiter
	quota *QuotaLimiter
}

// NewLimiter creates a limiter. rps <= 0 disables local pacing; quota may be nil.
func NewLimiter(rps float64, burst int, quota *QuotaLimiter) *Limiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		local: rate.NewLimiter(limit, burst),
		quota: quota,
	}
}

// Wait blocks until a call may proceed or ctx is done
func (l *Limiter) Wait(ctx context.Context, estimatedTokens int64) error {
	if l == nil {
		return nil
	}
	if err := l.local.Wait(ctx); err != nil {
		return err
	}
	if l.quota != nil {
		return l.quota.CheckAndIncrementWithRetry(ctx, estimatedTokens)
	}
	return nil
}

// Close releases the shared quota connection, if any
func (l *Limiter) Close() error {
	if l == nil || l.quota == nil {
		return nil
	}
	return l.quota.Close()
}

// QuotaLimiter provides proactive rate limiting across processes using Redis.
// Prevents quota exhaustion by checking global counters before API calls.
type QuotaLimiter struct {
	redis    *redis.Client
	prefix   string
	rpmLimit int64 // Requests Per Minute
	tpmLimit int64 // Tokens Per Minute
	rpdLimit int64 // Requests Per Day
	logger   *slog.Logger
}

const (
	DefaultRPM = 1000      // Requests per minute
	DefaultTPM = 1_000_000 // Tokens per minute (input + output combined)
	DefaultRPD = 10_000    // Requests per day
)

// quotaScript increments all three counters atomically and reports the first limit crossed
var quotaScript = redis.NewScript(`
	local rpm_key = KEYS[1]
	local tpm_key = KEYS[2]
	local rpd_key = KEYS[3]
	local rpm_limit = tonumber(ARGV[1])
	local tpm_limit = tonumber(ARGV[2])
	local rpd_limit = tonumber(ARGV[3])
	local tokens = tonumber(ARGV[4])

	local rpm = redis.call('INCR', rpm_key)
	local tpm = redis.call('INCRBY', tpm_key, tokens)
	local rpd = redis.call('INCR', rpd_key)

	-- 70s for minute keys leaves room for clock skew
	if rpm == 1 then redis.call('EXPIRE', rpm_key, 70) end
	if tpm == tokens then redis.call('EXPIRE', tpm_key, 70) end
	if rpd == 1 then redis.call('EXPIRE', rpd_key, 86400) end

	-- throttle at 90% of the per-minute limits, 100% of the daily one
	if rpm >= rpm_limit * 0.9 then
		return {-1, 'RPM', rpm, rpm_limit}
	end
	if tpm >= tpm_limit * 0.9 then
		return {-2, 'TPM', tpm, tpm_limit}
	end
	if rpd >= rpd_limit then
		return {-3, 'RPD', rpd, rpd_limit}
	end

	return {0, 'OK', rpm, tpm, rpd}
`)

// NewQuotaLimiter connects to Redis. rpd <= 0 uses DefaultRPD.
func NewQuotaLimiter(redisAddr string, rpd int64) (*QuotaLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.ExternalErrorf(err, "failed to connect to Redis at %s", redisAddr)
	}

	if rpd <= 0 {
		rpd = DefaultRPD
	}
	return &QuotaLimiter{
		redis:    client,
		prefix:   "burnrisk:llm",
		rpmLimit: DefaultRPM,
		tpmLimit: DefaultTPM,
		rpdLimit: rpd,
		logger:   slog.Default().With("component", "llm_quota"),
	}, nil
}

func (r *QuotaLimiter) keys(now time.Time) (string, string, string) {
	minute := now.Format("2006-01-02T15:04")
	return fmt.Sprintf("%s:rpm:%s", r.prefix, minute),
		fmt.Sprintf("%s:tpm:%s", r.prefix, minute),
		fmt.Sprintf("%s:rpd:%s", r.prefix, now.Format("2006-01-02"))
}

// CheckAndIncrement increments the shared counters and returns an error when a
// threshold is crossed (90% of a per-minute limit, 100% of the daily one)
func (r *QuotaLimiter) CheckAndIncrement(ctx context.Context, estimatedTokens int64) error {
	now := time.Now()
	minuteKey, tpmKey, dayKey := r.keys(now)

	result, err := quotaScript.Run(ctx, r.redis,
		[]string{minuteKey, tpmKey, dayKey},
		r.rpmLimit, r.tpmLimit, r.rpdLimit, estimatedTokens).Result()
	if err != nil {
		return errors.ExternalError(err, "rate limiter Redis operation failed")
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 2 {
		return fmt.Errorf("invalid rate limiter response format")
	}

	code, _ := resultSlice[0].(int64)
	if code >= 0 {
		return nil
	}
	if len(resultSlice) < 4 {
		return fmt.Errorf("invalid rate limiter response format")
	}

	limitType, _ := resultSlice[1].(string)
	current, _ := resultSlice[2].(int64)
	limit, _ := resultSlice[3].(int64)

	if code == -3 {
		tomorrow := now.Add(24 * time.Hour)
		midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
		return fmt.Errorf("daily quota exceeded: %d/%d requests (resets in %ds)", current, limit, int(midnight.Sub(now).Seconds()))
	}

	waitTime := 60 - now.Second()
	if waitTime <= 0 {
		waitTime = 1
	}
	return fmt.Errorf("approaching %s limit (%d/%d), wait %ds", limitType, current, limit, waitTime)
}

// CheckAndIncrementWithRetry blocks until the minute window resets, respecting ctx.
// A daily quota error is returned immediately.
func (r *QuotaLimiter) CheckAndIncrementWithRetry(ctx context.Context, estimatedTokens int64) error {
	for {
		err := r.CheckAndIncrement(ctx, estimatedTokens)
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "daily quota exceeded") {
			return err
		}

		if strings.Contains(err.Error(), "wait") {
			waitTime := extractWaitTime(err.Error())
			r.logger.Warn("llm quota approaching, throttling", "wait_seconds", waitTime, "error", err)

			select {
			case <-time.After(time.Duration(waitTime) * time.Second):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return err
	}
}

var waitPattern = regexp.MustCompile(`wait (\d+)s`)

// extractWaitTime parses "... wait 45s"; defaults to a full minute
func extractWaitTime(errMsg string) int {
	matches := waitPattern.FindStringSubmatch(errMsg)
	if len(matches) > 1 {
		if waitTime, err := strconv.Atoi(matches[1]); err == nil && waitTime > 0 {
			return waitTime
		}
	}
	return 60
}

// Close closes the Redis connection
func (r *QuotaLimiter) Close() error {
	if r.redis != nil {
		return r.redis.Close()
	}
	return nil
}

// QuotaUsage is the shared counter state for the current minute and day
type QuotaUsage struct {
	RequestsThisMinute int64 `json:"requests_this_minute"`
	TokensThisMinute   int64 `json:"tokens_this_minute"`
	RequestsToday      int64 `json:"requests_today"`
	DailyLimit         int64 `json:"daily_limit"`
}

// Usage reads the shared counters without incrementing them. Missing keys count as zero.
func (r *QuotaLimiter) Usage(ctx context.Context) (QuotaUsage, error) {
	minuteKey, tpmKey, dayKey := r.keys(time.Now())

	pipe := r.redis.Pipeline()
	rpmCmd := pipe.Get(ctx, minuteKey)
	tpmCmd := pipe.Get(ctx, tpmKey)
	rpdCmd := pipe.Get(ctx, dayKey)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return QuotaUsage{}, errors.ExternalError(err, "failed to read shared LLM quota")
	}

	usage := QuotaUsage{DailyLimit: r.rpdLimit}
	usage.RequestsThisMinute, _ = rpmCmd.Int64()
	usage.TokensThisMinute, _ = tpmCmd.Int64()
	usage.RequestsToday, _ = rpdCmd.Int64()
	return usage, nil
}

// Package breaker implements a per-provider circuit breaker: a failure puts
// a provider into cooldown (each further failure lengthens it) and calls are
// rejected locally instead of being sent, with the cooldown state shared
// across processes via Redis when one is configured. Without Redis (or if
// Redis is unreachable) the breaker degrades to an in-memory map scoped to
// this process — conversions still work, they just cannot coordinate
// cooldowns across replicas.
package breaker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/local/pdf2md/internal/obsmetrics"
)

// Breaker tracks open/closed state per provider. All methods are safe for
// concurrent use across the scheduler's worker goroutines.
type Breaker struct {
	redis       *redis.Client
	log         zerolog.Logger
	baseBackoff time.Duration
	maxBackoff  time.Duration

	mu    sync.Mutex
	local map[string]localState
}

type localState struct {
	retryAt  time.Time
	failures int
}

// New returns a Breaker. redisClient may be nil, in which case state is
// kept in-process only.
func New(redisClient *redis.Client, baseBackoff, maxBackoff time.Duration, log zerolog.Logger) *Breaker {
	if baseBackoff <= 0 {
		baseBackoff = 30 * time.Second
	}
	if maxBackoff <= 0 {
		maxBackoff = 5 * time.Minute
	}
	return &Breaker{
		redis:       redisClient,
		log:         log,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
		local:       make(map[string]localState),
	}
}

func key(provider, model string) string {
	return fmt.Sprintf("cb:%s:%s", provider, model)
}

// Allow reports whether a call to provider/model should be attempted now.
func (b *Breaker) Allow(ctx context.Context, provider, model string) bool {
	if b.redis != nil {
		open, err := b.isOpenRedis(ctx, provider, model)
		if err == nil {
			return !open
		}
		b.log.Warn().Err(err).Msg("breaker: redis unreachable, falling back to in-memory state")
	}
	return !b.isOpenLocal(provider, model)
}

// RecordFailure extends (or opens) the cooldown for provider/model with
// exponential backoff: baseBackoff * 2^(failures-1), capped at maxBackoff.
func (b *Breaker) RecordFailure(ctx context.Context, provider, model string) {
	if b.redis != nil {
		if err := b.openRedis(ctx, provider, model); err == nil {
			return
		}
		b.log.Warn().Str("provider", provider).Str("model", model).Msg("breaker: redis write failed, recording failure in-memory")
	}
	b.openLocal(provider, model)
}

// RecordSuccess resets provider/model's cooldown.
func (b *Breaker) RecordSuccess(ctx context.Context, provider, model string) {
	if b.redis != nil {
		if err := b.closeRedis(ctx, provider, model); err == nil {
			return
		}
	}
	b.closeLocal(provider, model)
}

func (b *Breaker) isOpenRedis(ctx context.Context, provider, model string) (bool, error) {
	k := key(provider, model)
	state, err := b.redis.HGet(ctx, k, "state").Result()
	if err != nil && err != redis.Nil {
		return false, err
	}
	if err == redis.Nil || state == "" {
		return false, nil
	}
	if state != "open" {
		return false, nil
	}

	retryAtStr, _ := b.redis.HGet(ctx, k, "retry_at").Result()
	retryAt, _ := strconv.ParseInt(retryAtStr, 10, 64)
	if time.Now().Unix() >= retryAt {
		b.redis.HSet(ctx, k, "state", "half_open")
		b.log.Info().Str("provider", provider).Str("model", model).Msg("breaker moved to half-open")
		return false, nil
	}
	return true, nil
}

func (b *Breaker) openRedis(ctx context.Context, provider, model string) error {
	k := key(provider, model)

	failuresStr, _ := b.redis.HGet(ctx, k, "failures").Result()
	failures, _ := strconv.Atoi(failuresStr)
	failures++

	backoff := b.backoffFor(failures)
	retryAt := time.Now().Add(backoff).Unix()

	if err := b.redis.HSet(ctx, k, map[string]interface{}{
		"state":    "open",
		"retry_at": retryAt,
		"failures": failures,
	}).Err(); err != nil {
		return err
	}
	b.redis.Expire(ctx, k, 10*time.Minute)

	obsmetrics.BreakerOpened(provider, model)
	b.log.Warn().Str("provider", provider).Str("model", model).Dur("cooldown", backoff).Int("failures", failures).Msg("breaker opened")
	return nil
}

func (b *Breaker) closeRedis(ctx context.Context, provider, model string) error {
	k := key(provider, model)
	state, err := b.redis.HGet(ctx, k, "state").Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if state == "" || state == "closed" {
		return nil
	}
	if err := b.redis.Del(ctx, k).Err(); err != nil {
		return err
	}
	obsmetrics.BreakerClosed(provider, model)
	return nil
}

func (b *Breaker) isOpenLocal(provider, model string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.local[key(provider, model)]
	if !ok {
		return false
	}
	return time.Now().Before(st.retryAt)
}

func (b *Breaker) openLocal(provider, model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key(provider, model)
	st := b.local[k]
	st.failures++
	backoff := b.backoffFor(st.failures)
	st.retryAt = time.Now().Add(backoff)
	b.local[k] = st
	obsmetrics.BreakerOpened(provider, model)
	b.log.Warn().Str("provider", provider).Str("model", model).Dur("cooldown", backoff).Int("failures", st.failures).Msg("breaker opened (in-memory)")
}

func (b *Breaker) closeLocal(provider, model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key(provider, model)
	if _, ok := b.local[k]; !ok {
		return
	}
	delete(b.local, k)
	obsmetrics.BreakerClosed(provider, model)
}

func (b *Breaker) backoffFor(failures int) time.Duration {
	backoff := b.baseBackoff
	for i := 1; i < failures; i++ {
		backoff *= 2
		if backoff > b.maxBackoff {
			return b.maxBackoff
		}
	}
	return backoff
}

package gate

import (
	"errors"
	"sync"
	"time"

	"github.com/ReneKroon/ttlcache/v2"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of a cooldown check.
type Result struct {
	Allowed bool
	RetryAt time.Time
}

// Cooldowns tracks the last allowed invocation per (command, user). Entries
// expire on their own once the cooldown has passed.
type Cooldowns struct {
	mu    sync.Mutex
	cache *ttlcache.Cache
	now   func() time.Time
}

type CooldownOption func(*Cooldowns)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CooldownOption {
	return func(c *Cooldowns) { c.now = now }
}

func NewCooldowns(opts ...CooldownOption) *Cooldowns {
	cache := ttlcache.NewCache()
	cache.SkipTTLExtensionOnHit(true)

	c := &Cooldowns{cache: cache, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check reports whether userID may run command now and, if so, starts the
// cooldown window. A zero cooldown always allows and stores nothing. A cache
// that fails (closed during shutdown) is treated as empty, so calls are
// allowed and a warning is logged.
func (c *Cooldowns) Check(command, userID string, cooldown time.Duration) Result {
	if cooldown <= 0 {
		return Result{Allowed: true}
	}

	key := command + "\x00" + userID

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if v, err := c.cache.Get(key); err == nil {
		if last, ok := v.(time.Time); ok {
			retryAt := last.Add(cooldown)
			if now.Before(retryAt) {
				return Result{RetryAt: retryAt}
			}
		}
	} else if !errors.Is(err, ttlcache.ErrNotFound) {
		log.Warn().Err(err).Str("command", command).Str("user_id", userID).Msg("cooldown lookup failed, allowing call")
	}

	if err := c.cache.SetWithTTL(key, now, cooldown); err != nil {
		log.Warn().Err(err).Str("command", command).Str("user_id", userID).Msg("failed to record cooldown")
	}
	return Result{Allowed: true}
}

// Len is the number of live entries.
func (c *Cooldowns) Len() int {
	return c.cache.Count()
}

// Close stops the expiry goroutine. Safe to call more than once.
func (c *Cooldowns) Close() error {
	err := c.cache.Close()
	if errors.Is(err, ttlcache.ErrClosed) {
		return nil
	}
	return err
}

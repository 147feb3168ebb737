package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCooldownStore mirrors Blocker/Cooldown but shares the "this arm is
// in cooldown" signal across dispatcher processes over Redis. It is
// strictly optional: a process with no LB_REDIS_ADDR configured never
// constructs one, and relies entirely on the in-memory per-strategy
// state. Distributed coordination of the *bandit's learned beliefs*
// (alpha/beta, success counts) remains out of scope; only the
// short-lived capacity signal is shareable, since treating two
// dispatchers' 429 observations as independent would make them each
// rediscover a cooldown the other already knows about.
type RedisCooldownStore struct {
	client    redis.UniversalClient
	keyPrefix string
	setScript *redis.Script
}

// NewRedisCooldownStore wraps an existing redis client. keyPrefix
// namespaces keys (default "lbbandit:cooldown" when empty).
func NewRedisCooldownStore(client redis.UniversalClient, keyPrefix string) *RedisCooldownStore {
	if keyPrefix == "" {
		keyPrefix = "lbbandit:cooldown"
	}
	// SET with PX in one round trip; NX is deliberately omitted so a new,
	// longer cooldown (e.g. V8's doubled multiplier) always overwrites a
	// shorter one already recorded by another process.
	script := redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)
	return &RedisCooldownStore{client: client, keyPrefix: keyPrefix, setScript: script}
}

func (s *RedisCooldownStore) key(port int) string {
	return fmt.Sprintf("%s:%d", s.keyPrefix, port)
}

// SetCooldown records that port should be treated as in cooldown until
// now+ttl, visible to every process sharing this Redis instance.
func (s *RedisCooldownStore) SetCooldown(ctx context.Context, port int, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ms := ttl.Milliseconds()
	return s.setScript.Run(ctx, s.client, []string{s.key(port)}, time.Now().UnixMilli(), ms).Err()
}

// InCooldown reports whether port is currently marked as cooling down by
// any process sharing this Redis instance.
func (s *RedisCooldownStore) InCooldown(ctx context.Context, port int) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(port)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

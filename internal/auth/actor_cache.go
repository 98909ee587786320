package auth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const actorKeyPrefix = "actor_exists:"

// ActorCache remembers that an actor row still exists so the middleware
// doesn't hit the user store on every request. The TTL bounds how long a
// deleted actor can keep acting on a stale token.
type ActorCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewActorCache(client *redis.Client, ttl time.Duration) *ActorCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ActorCache{Client: client, TTL: ttl}
}

// Known reports whether the actor was recently confirmed to exist. Cache
// errors are treated as misses; the store check is the fallback.
func (c *ActorCache) Known(ctx context.Context, actorID string) bool {
	if c == nil || c.Client == nil {
		return false
	}
	_, err := c.Client.Get(ctx, actorKeyPrefix+actorID).Result()
	return err == nil
}

// Mark records that the actor exists.
func (c *ActorCache) Mark(ctx context.Context, actorID string) {
	if c == nil || c.Client == nil {
		return
	}
	_ = c.Client.Set(ctx, actorKeyPrefix+actorID, "1", c.TTL).Err()
}

// Forget drops the cache entry, used when an actor is deleted so the next
// request re-checks the store.
func (c *ActorCache) Forget(ctx context.Context, actorID string) {
	if c == nil || c.Client == nil {
		return
	}
	_ = c.Client.Del(ctx, actorKeyPrefix+actorID).Err()
}

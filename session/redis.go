package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAllowlist implements Allowlist on a shared Redis instance. Entries
// are plain keys with TTL; a per-identity set indexes digests for
// DeleteAll. The set carries the same TTL, refreshed on every Put, so idle
// identities do not leak index entries.
type RedisAllowlist struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisAllowlist creates a Redis-backed allowlist under the given prefix.
func NewRedisAllowlist(client redis.UniversalClient, prefix string) *RedisAllowlist {
	if prefix == "" {
		prefix = "acl:"
	}
	return &RedisAllowlist{client: client, prefix: prefix}
}

func (a *RedisAllowlist) tokenKey(d string) string  { return a.prefix + "rt:" + d }
func (a *RedisAllowlist) ownerKey(id string) string { return a.prefix + "rtu:" + id }

// Put implements Allowlist.
func (a *RedisAllowlist) Put(ctx context.Context, tok, identity string, ttl time.Duration) error {
	d := digest(tok)

	pipe := a.client.TxPipeline()
	pipe.Set(ctx, a.tokenKey(d), identity, ttl)
	pipe.SAdd(ctx, a.ownerKey(identity), d)
	pipe.Expire(ctx, a.ownerKey(identity), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Owner implements Allowlist.
func (a *RedisAllowlist) Owner(ctx context.Context, tok string) (string, bool, error) {
	identity, err := a.client.Get(ctx, a.tokenKey(digest(tok))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return identity, true, nil
}

// Delete implements Allowlist.
func (a *RedisAllowlist) Delete(ctx context.Context, tok string) (bool, error) {
	d := digest(tok)

	identity, err := a.client.Get(ctx, a.tokenKey(d)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	pipe := a.client.TxPipeline()
	removed := pipe.Del(ctx, a.tokenKey(d))
	pipe.SRem(ctx, a.ownerKey(identity), d)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return removed.Val() > 0, nil
}

// DeleteAll implements Allowlist.
func (a *RedisAllowlist) DeleteAll(ctx context.Context, identity string) (int, error) {
	digests, err := a.client.SMembers(ctx, a.ownerKey(identity)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	removed := 0
	for _, d := range digests {
		n, err := a.client.Del(ctx, a.tokenKey(d)).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		removed += int(n)
	}

	if err := a.client.Del(ctx, a.ownerKey(identity)).Err(); err != nil {
		return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return removed, nil
}

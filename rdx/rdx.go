// Package rdx holds the Redis client and the small primitives built on it:
// token revocation and short-lived locks.
package rdx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cafehub/logging"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

// Connect dials Redis and pings it.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	Conn = c
	logging.For("rdx").WithField("addr", addr).Info("connected to Redis")
	return c, nil
}

const revokedPrefix = "revoked:"

// Store wraps a client with the operations the server needs.
type Store struct {
	c *redis.Client
}

func NewStore(c *redis.Client) *Store {
	return &Store{c: c}
}

// Revoke marks a token id as logged out until ttl passes.
func (s *Store) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.c.Set(ctx, revokedPrefix+jti, "1", ttl).Err()
}

func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.c.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ErrLocked is returned when another holder owns the lock.
var ErrLocked = errors.New("resource is locked")

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a held SetNX lock.
type Lock struct {
	s     *Store
	key   string
	token string
}

// AcquireLock takes key for ttl or fails with ErrLocked.
func (s *Store) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (*Lock, error) {
	ok, err := s.c.SetNX(ctx, "lock:"+key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{s: s, key: "lock:" + key, token: token}, nil
}

// Release frees the lock unless it already expired and was taken by someone else.
func (l *Lock) Release(ctx context.Context) {
	if err := releaseScript.Run(ctx, l.s.c, []string{l.key}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		logging.For("rdx").WithError(err).WithField("key", l.key).Warn("release lock")
	}
}

// Guard takes key for ttl and returns the function that frees it.
func (s *Store) Guard(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l, err := s.AcquireLock(ctx, key, uuid.NewString(), ttl)
	if err != nil {
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		l.Release(ctx)
	}, nil
}

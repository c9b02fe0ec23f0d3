package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers revoked token ids until the tokens expire on their own.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

var NowFunc = time.Now // mockable

const revokedKeyPrefix = "grupka:revoked:"

type RedisStore struct {
	client redis.UniversalClient
}

var _ RevocationStore = (*RedisStore)(nil)

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(NowFunc())
	if ttl <= 0 {
		return nil // already expired
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return errors.Wrap(err, "revoking token")
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, errors.Wrap(err, "checking token revocation")
	}
	return n > 0, nil
}

// Ping checks the connection to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time // {tokenID: expiresAt}
}

var _ RevocationStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]time.Time)}
}

func (s *MemoryStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := NowFunc()
	if !expiresAt.After(now) {
		return nil
	}
	s.revoked[tokenID] = expiresAt
	s.sweep(now)
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !exp.After(NowFunc()) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

// sweep drops entries of tokens that expired. Expects the lock to be held.
func (s *MemoryStore) sweep(now time.Time) {
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
}

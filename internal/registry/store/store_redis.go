package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"roster/internal/registry/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/sentinel"
)

const keyPrefix = "roster:"

// takeScript reads and deletes a hash field in one round trip.
var takeScript = redis.NewScript(`
local v = redis.call('HGET', KEYS[1], ARGV[1])
if v then
	redis.call('HDEL', KEYS[1], ARGV[1])
end
return v
`)

// redisConn is the command subset shared by *redis.Client, *redis.Tx and redis.Pipeliner.
type redisConn interface {
	HExists(ctx context.Context, key, field string) *redis.BoolCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps one registry namespace in Redis: a hash of slots and two
// string keys for the counter and the head.
type RedisStore struct {
	conn      redisConn
	scripter  redis.Scripter
	namespace string
}

// NewRedisStore creates a Redis-backed store for namespace.
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{conn: client, scripter: client, namespace: namespace}
}

func (s *RedisStore) membersKey() string { return keyPrefix + s.namespace + ":members" }
func (s *RedisStore) counterKey() string { return keyPrefix + s.namespace + ":counter" }
func (s *RedisStore) headKey() string    { return keyPrefix + s.namespace + ":head" }

func (s *RedisStore) keys() []string {
	return []string{s.membersKey(), s.counterKey(), s.headKey()}
}

func (s *RedisStore) Exists(ctx context.Context, idx models.Index) (bool, error) {
	ok, err := s.conn.HExists(ctx, s.membersKey(), idx.String()).Result()
	if err != nil {
		return false, fmt.Errorf("check slot %d: %w", idx, err)
	}
	return ok, nil
}

func (s *RedisStore) Get(ctx context.Context, idx models.Index) (id.AccountID, error) {
	raw, err := s.conn.HGet(ctx, s.membersKey(), idx.String()).Result()
	if errors.Is(err, redis.Nil) {
		return id.AccountID{}, fmt.Errorf("slot %d: %w", idx, sentinel.ErrNotFound)
	}
	if err != nil {
		return id.AccountID{}, fmt.Errorf("get slot %d: %w", idx, err)
	}
	return decodeAccount(raw)
}

func (s *RedisStore) Insert(ctx context.Context, idx models.Index, account id.AccountID) error {
	if err := s.conn.HSet(ctx, s.membersKey(), idx.String(), account.String()).Err(); err != nil {
		return fmt.Errorf("insert slot %d: %w", idx, err)
	}
	return nil
}

// Take atomically reads and deletes the slot. Inside RedisTx the staged overlay
// handles takes, so this path is only used for direct (non-transactional) access.
func (s *RedisStore) Take(ctx context.Context, idx models.Index) (id.AccountID, error) {
	if s.scripter == nil {
		return id.AccountID{}, fmt.Errorf("take slot %d outside a client connection: %w", idx, sentinel.ErrUnavailable)
	}
	raw, err := takeScript.Run(ctx, s.scripter, []string{s.membersKey()}, idx.String()).Text()
	if errors.Is(err, redis.Nil) {
		return id.AccountID{}, fmt.Errorf("slot %d: %w", idx, sentinel.ErrNotFound)
	}
	if err != nil {
		return id.AccountID{}, fmt.Errorf("take slot %d: %w", idx, err)
	}
	return decodeAccount(raw)
}

func (s *RedisStore) Counter(ctx context.Context) (models.Index, error) {
	v, ok, err := s.getIndex(ctx, s.counterKey())
	if err != nil || !ok {
		return 0, err
	}
	return v, nil
}

func (s *RedisStore) PutCounter(ctx context.Context, value models.Index) error {
	if err := s.conn.Set(ctx, s.counterKey(), value.String(), 0).Err(); err != nil {
		return fmt.Errorf("put counter: %w", err)
	}
	return nil
}

func (s *RedisStore) Head(ctx context.Context) (models.Index, bool, error) {
	return s.getIndex(ctx, s.headKey())
}

func (s *RedisStore) PutHead(ctx context.Context, value models.Index) error {
	if err := s.conn.Set(ctx, s.headKey(), value.String(), 0).Err(); err != nil {
		return fmt.Errorf("put head: %w", err)
	}
	return nil
}

func (s *RedisStore) remove(ctx context.Context, idx models.Index) error {
	if err := s.conn.HDel(ctx, s.membersKey(), idx.String()).Err(); err != nil {
		return fmt.Errorf("delete slot %d: %w", idx, err)
	}
	return nil
}

func (s *RedisStore) getIndex(ctx context.Context, key string) (models.Index, bool, error) {
	raw, err := s.conn.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get %s: %w", key, err)
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("decode %s %q: %w", key, raw, sentinel.ErrInvalidState)
	}
	return models.Index(v), true, nil
}

func decodeAccount(raw string) (id.AccountID, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return id.AccountID{}, fmt.Errorf("decode account %q: %w", raw, sentinel.ErrInvalidState)
	}
	return id.AccountID(parsed), nil
}

// RedisTx runs registry transactions with optimistic locking: the namespace keys
// are WATCHed, reads go to Redis, writes are staged and sent in one MULTI/EXEC.
// A concurrent writer touching the namespace aborts the commit with sentinel.ErrConflict.
type RedisTx struct {
	client    *redis.Client
	namespace string
	timeout   time.Duration
}

// NewRedisTx creates a transaction runner for namespace.
func NewRedisTx(client *redis.Client, namespace string) *RedisTx {
	return &RedisTx{client: client, namespace: namespace, timeout: defaultTxTimeout}
}

// WithTimeout overrides the timeout applied when ctx has no deadline.
func (t *RedisTx) WithTimeout(timeout time.Duration) *RedisTx {
	if timeout > 0 {
		t.timeout = timeout
	}
	return t
}

// Store returns a non-transactional store over the same namespace.
func (t *RedisTx) Store() *RedisStore {
	return NewRedisStore(t.client, t.namespace)
}

func (t *RedisTx) RunInTx(ctx context.Context, fn func(store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	keys := (&RedisStore{namespace: t.namespace}).keys()
	err := t.client.Watch(ctx, func(tx *redis.Tx) error {
		stage := newStaged(&RedisStore{conn: tx, namespace: t.namespace})
		if err := fn(stage); err != nil {
			return err
		}
		if !stage.dirty() {
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return stage.commit(ctx, &RedisStore{conn: pipe, namespace: t.namespace})
		})
		return err
	}, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("registry %s modified concurrently: %w", t.namespace, sentinel.ErrConflict)
	}
	return err
}

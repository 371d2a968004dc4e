package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/walknrun/walkrun-backend/pkg/config"
	pkgredis "github.com/walknrun/walkrun-backend/pkg/redis"
)

const defaultTxAttempts = 5

// RedisStore implements Store on Redis, one leaf record per key under a
// namespace prefix. Transact uses WATCH/MULTI so concurrent writers to the
// same path cannot lose updates.
type RedisStore struct {
	client     *goredis.Client
	namespace  string
	txAttempts int
	scanCount  int64
}

// NewRedisStore wraps the shared redis client as a path-addressed store.
func NewRedisStore(client *pkgredis.Client, cfg config.DatastoreConfig) (*RedisStore, error) {
	if client == nil || client.Raw() == nil {
		return nil, errors.New("rtdb: redis client is required")
	}
	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" {
		namespace = "rtdb"
	}
	attempts := cfg.TxAttempts
	if attempts <= 0 {
		attempts = defaultTxAttempts
	}
	scanCount := cfg.ScanCount
	if scanCount <= 0 {
		scanCount = 200
	}
	return &RedisStore{
		client:     client.Raw(),
		namespace:  namespace,
		txAttempts: attempts,
		scanCount:  scanCount,
	}, nil
}

func (s *RedisStore) key(path string) string {
	return s.namespace + ":" + path
}

func (s *RedisStore) childPattern(path string) string {
	return s.namespace + ":" + path + "/*"
}

func (s *RedisStore) Get(ctx context.Context, path string) (json.RawMessage, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	raw, err := s.client.Get(ctx, s.key(normalized)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyRedisError(err)
	}
	return raw, nil
}

func (s *RedisStore) GetSubtree(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	keys, err := s.scanKeys(ctx, s.childPattern(normalized))
	if err != nil {
		return nil, classifyRedisError(err)
	}
	result := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, classifyRedisError(err)
	}
	prefix := s.key(normalized) + "/"
	for i, key := range keys {
		if values[i] == nil {
			continue
		}
		str, ok := values[i].(string)
		if !ok {
			return nil, fmt.Errorf("rtdb: unexpected value type at %s", key)
		}
		rel := strings.TrimPrefix(key, prefix)
		result[rel] = json.RawMessage(str)
	}
	return result, nil
}

func (s *RedisStore) Set(ctx context.Context, path string, value any) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}
	raw, err := marshalValue(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(normalized), []byte(raw), 0).Err(); err != nil {
		return classifyRedisError(err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, path string) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}
	keys, err := s.scanKeys(ctx, s.childPattern(normalized))
	if err != nil {
		return classifyRedisError(err)
	}
	keys = append(keys, s.key(normalized))

	var errs error
	for start := 0; start < len(keys); start += int(s.scanCount) {
		end := start + int(s.scanCount)
		if end > len(keys) {
			end = len(keys)
		}
		if err := s.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			errs = multierr.Append(errs, classifyRedisError(err))
		}
	}
	return errs
}

func (s *RedisStore) ExistsByField(ctx context.Context, path, field, value string) (bool, error) {
	subtree, err := s.GetSubtree(ctx, path)
	if err != nil {
		return false, err
	}
	for rel, raw := range subtree {
		// only direct children carry whole records
		if strings.Contains(rel, "/") {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		if got, ok := record[field].(string); ok && got == value {
			return true, nil
		}
	}
	return false, nil
}

func (s *RedisStore) Transact(ctx context.Context, path string, fn TxFunc) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}
	key := s.key(normalized)

	backoff := retry.WithMaxRetries(uint64(s.txAttempts-1), retry.NewFibonacci(5*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		txErr := s.client.Watch(ctx, func(tx *goredis.Tx) error {
			current, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, goredis.Nil) {
				current = nil
			} else if err != nil {
				return err
			}

			next, err := fn(current)
			if err != nil {
				return err
			}
			if next == nil {
				return nil
			}
			raw, err := marshalValue(next)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, []byte(raw), 0)
				return nil
			})
			return err
		}, key)
		if errors.Is(txErr, goredis.TxFailedErr) {
			return retry.RetryableError(txErr)
		}
		return txErr
	})
	if errors.Is(err, goredis.TxFailedErr) {
		return fmt.Errorf("%w: %s", ErrConflictExhausted, normalized)
	}
	if err != nil {
		return classifyRedisError(err)
	}
	return nil
}

func (s *RedisStore) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		page, next, err := s.client.Scan(ctx, cursor, pattern, s.scanCount).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func classifyRedisError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "NOPERM") || strings.HasPrefix(msg, "NOAUTH") ||
		strings.HasPrefix(msg, "WRONGPASS") {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}

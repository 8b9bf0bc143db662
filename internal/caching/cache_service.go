package caching

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"invoicer/internal/logger"
)

// ErrQuotaExceeded is returned when a value would push the store over its byte quota
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// SlotStore is a key-value store holding whole serialized values. A Set
// replaces the previous value in one step; readers never see a partial
// write.
type SlotStore interface {
	// Get returns the value and whether the key was present
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete is idempotent
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

const redisKeyPrefix = "invoicer:"

type redisSlotStore struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedisSlotStore connects to Redis. A failed initial ping is logged,
// not fatal; the store reports faults per call.
func NewRedisSlotStore(addr, password string, db int, log *logger.Logger) SlotStore {
	// Accept redis://host:port as well as host:port
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Warnw("redis ping failed on initialization", "error", pingErr, "address", parsedAddr)
	} else {
		log.Debugw("redis connection established", "address", parsedAddr)
	}

	return &redisSlotStore{client: client, log: log}
}

func (r *redisSlotStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set maps a Redis OOM reply (maxmemory reached) to ErrQuotaExceeded
func (r *redisSlotStore) Set(ctx context.Context, key string, value []byte) error {
	err := r.client.Set(ctx, redisKeyPrefix+key, value, 0).Err()
	if err != nil && strings.HasPrefix(err.Error(), "OOM") {
		return errors.Mark(err, ErrQuotaExceeded)
	}
	return err
}

func (r *redisSlotStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, redisKeyPrefix+key).Err()
}

func (r *redisSlotStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

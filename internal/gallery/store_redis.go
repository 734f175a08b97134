package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"spacelens/pkg/types"
)

// KeyPrefix namespaces status keys in Redis.
const KeyPrefix = "gallery:status:"

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL expires statuses; zero keeps them forever.
	TTL time.Duration
}

// RedisStore keeps statuses as JSON values under KeyPrefix+assetID.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{client: client, ttl: cfg.TTL}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Put(ctx context.Context, st types.GenerationStatus) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, KeyPrefix+st.AssetID, data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, assetID string) (types.GenerationStatus, bool, error) {
	data, err := s.client.Get(ctx, KeyPrefix+assetID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.GenerationStatus{}, false, nil
		}
		return types.GenerationStatus{}, false, err
	}
	var st types.GenerationStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return types.GenerationStatus{}, false, fmt.Errorf("decode status %s: %w", assetID, err)
	}
	return st, true, nil
}

func (s *RedisStore) List(ctx context.Context) ([]types.GenerationStatus, error) {
	var out []types.GenerationStatus
	iter := s.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		st, ok, err := s.Get(ctx, strings.TrimPrefix(iter.Val(), KeyPrefix))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, st)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

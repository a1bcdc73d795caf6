package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-video-generator/types"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps each run as a JSON string under prefix+runID with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// ConnectRedis establishes a connection to Redis
func ConnectRedis(ctx context.Context, addr, password, prefix string, ttl time.Duration, log *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, log: log.Named("store")}, nil
}

func (r *RedisStore) key(runID string) string {
	return r.prefix + runID
}

func (r *RedisStore) Save(ctx context.Context, state *types.PipelineState) error {
	if err := checkRunID(state.RunID); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state to JSON: %w", err)
	}
	if err := r.client.Set(ctx, r.key(state.RunID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("error saving run %s: %w", state.RunID, err)
	}
	r.log.Debug("state saved", zap.String("run_id", state.RunID), zap.String("stage", string(state.Stage)))
	return nil
}

func (r *RedisStore) Load(ctx context.Context, runID string) (*types.PipelineState, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, r.key(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(runID)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading run %s: %w", runID, err)
	}
	var state types.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", runID, err)
	}
	return &state, nil
}

// Close releases the connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

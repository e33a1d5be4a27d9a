package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kamathanirudh/labstack/pkg/types"
)

const labKeyPrefix = "lab:"

// Redis is a RecordStore backed by Redis. Records are JSON values under
// lab:<labID>; the conditional pending -> ready transition uses optimistic
// WATCH/MULTI so the write applies at most semantically once.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to Redis and returns a record store.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{client: client}, nil
}

func (s *Redis) Get(ctx context.Context, labID string) (*types.LabRecord, error) {
	raw, err := s.client.Get(ctx, labKeyPrefix+labID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lab record %s: %w", labID, err)
	}

	rec := &types.LabRecord{}
	if err := json.Unmarshal([]byte(raw), rec); err != nil {
		return nil, fmt.Errorf("failed to decode lab record %s: %w", labID, err)
	}
	return rec, nil
}

func (s *Redis) Put(ctx context.Context, rec *types.LabRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode lab record %s: %w", rec.LabID, err)
	}
	if err := s.client.Set(ctx, labKeyPrefix+rec.LabID, buf, 0).Err(); err != nil {
		return fmt.Errorf("failed to store lab record %s: %w", rec.LabID, err)
	}
	return nil
}

func (s *Redis) MarkReady(ctx context.Context, labID, accessURL string) error {
	key := labKeyPrefix + labID
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		rec := &types.LabRecord{}
		if err := json.Unmarshal([]byte(raw), rec); err != nil {
			return err
		}
		if rec.Status != types.LabStatusPending {
			return nil // already transitioned
		}
		rec.Status = types.LabStatusReady
		rec.AccessURL = &accessURL

		buf, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, 0)
			return nil
		})
		return err
	}, key)

	// A concurrent writer beat us to the identical transition.
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to mark lab %s ready: %w", labID, err)
	}
	return err
}

func (s *Redis) MarkTerminated(ctx context.Context, labID string) error {
	key := labKeyPrefix + labID
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		rec := &types.LabRecord{}
		if err := json.Unmarshal([]byte(raw), rec); err != nil {
			return err
		}
		if rec.Status == types.LabStatusTerminated {
			return nil
		}
		rec.Status = types.LabStatusTerminated

		buf, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to mark lab %s terminated: %w", labID, err)
	}
	return err
}

func (s *Redis) ListPending(ctx context.Context) ([]*types.LabRecord, error) {
	var result []*types.LabRecord
	iter := s.client.Scan(ctx, 0, labKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan lab records: %w", err)
		}
		rec := &types.LabRecord{}
		if err := json.Unmarshal([]byte(raw), rec); err != nil {
			continue // skip foreign keys under the prefix
		}
		if rec.Status == types.LabStatusPending {
			result = append(result, rec)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan lab records: %w", err)
	}
	return result, nil
}

// Close closes the Redis client.
func (s *Redis) Close() error {
	return s.client.Close()
}

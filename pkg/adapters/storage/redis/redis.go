package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/chloe/pkg/adapters/storage"
	"github.com/aescanero/chloe/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "chloe:run:"

// RunStore implements ports.RunStore using Redis
type RunStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRunStore creates a new Redis run store. Records expire after ttl;
// zero keeps them forever.
func NewRunStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RunStore {
	return &RunStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Save creates or replaces a run record and refreshes its TTL
func (s *RunStore) Save(ctx context.Context, record *domain.RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := s.client.Set(ctx, getRunKey(record.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	s.logger.Debug("run saved",
		zap.String("run_id", record.ID),
		zap.String("status", string(record.Status)),
		zap.String("phase", record.Phase))

	return nil
}

// Get retrieves a run record
func (s *RunStore) Get(ctx context.Context, runID string) (*domain.RunRecord, error) {
	data, err := s.client.Get(ctx, getRunKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("run %s: %w", runID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var record domain.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}

	return &record, nil
}

// Delete removes a run record
func (s *RunStore) Delete(ctx context.Context, runID string) error {
	if err := s.client.Del(ctx, getRunKey(runID)).Err(); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	s.logger.Debug("run deleted", zap.String("run_id", runID))
	return nil
}

// List returns all stored run IDs
func (s *RunStore) List(ctx context.Context) ([]string, error) {
	var cursor uint64
	var ids []string

	for {
		batch, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		for _, key := range batch {
			if id := strings.TrimPrefix(key, keyPrefix); id != "" && id != key {
				ids = append(ids, id)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return ids, nil
}

// getRunKey returns the Redis key for a run
func getRunKey(runID string) string {
	return keyPrefix + runID
}

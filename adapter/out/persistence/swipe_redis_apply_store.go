package persistence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"swipe_server/core/domain"
	"swipe_server/core/port/out"
	"swipe_server/pkg/cache"
)

const applyKeyPrefix = "swipe:apply:"

// RedisApplyStore keeps apply records in Redis. Records never expire.
type RedisApplyStore struct {
	cache *cache.RedisCache
}

var _ out.ApplyStore = (*RedisApplyStore)(nil)

func NewRedisApplyStore(client *redis.Client) *RedisApplyStore {
	return &RedisApplyStore{cache: cache.NewRedisCache(client, applyKeyPrefix)}
}

// Get returns the record for cardID, or nil.
func (s *RedisApplyStore) Get(ctx context.Context, cardID string) (*domain.ApplyRecord, error) {
	var rec domain.ApplyRecord
	found, err := s.cache.GetJSON(ctx, cardID, &rec)
	if err != nil {
		return nil, fmt.Errorf("redis get apply record: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// PutIfAbsent stores rec with SETNX. A lost race returns the winner's record.
func (s *RedisApplyStore) PutIfAbsent(ctx context.Context, rec *domain.ApplyRecord) (*domain.ApplyRecord, bool, error) {
	if rec == nil || rec.CardID == "" {
		return nil, false, ErrInvalidInput
	}

	inserted, err := s.cache.SetJSONNX(ctx, rec.CardID, rec, 0)
	if err != nil {
		return nil, false, fmt.Errorf("redis put apply record: %w", err)
	}
	if inserted {
		return cloneRecord(rec), true, nil
	}

	existing, err := s.Get(ctx, rec.CardID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// deleted between SETNX and GET; report the attempt as stored
		return cloneRecord(rec), false, nil
	}
	return existing, false, nil
}

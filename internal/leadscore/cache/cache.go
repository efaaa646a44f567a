// Package cache stores serialized lead scores in Redis for fast reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadscore_backend/internal/leadscore/ports"
	"leadscore_backend/internal/leadscore/scoring"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "leadscore:"

// Key returns the Redis key holding a lead's cached score.
func Key(leadID uuid.UUID) string {
	return keyPrefix + leadID.String()
}

type ScoreCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New returns a cache whose entries expire after ttl.
func New(client redis.Cmdable, ttl time.Duration) *ScoreCache {
	if ttl <= 0 {
		ttl = ports.CacheTTL
	}
	return &ScoreCache{client: client, ttl: ttl}
}

func (c *ScoreCache) Set(ctx context.Context, score scoring.LeadScore) error {
	payload, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("encode lead score: %w", err)
	}
	return c.client.Set(ctx, Key(score.LeadID), payload, c.ttl).Err()
}

func (c *ScoreCache) Get(ctx context.Context, leadID uuid.UUID) (scoring.LeadScore, error) {
	payload, err := c.client.Get(ctx, Key(leadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return scoring.LeadScore{}, ports.ErrNotFound
	}
	if err != nil {
		return scoring.LeadScore{}, err
	}

	var score scoring.LeadScore
	if err := json.Unmarshal(payload, &score); err != nil {
		return scoring.LeadScore{}, fmt.Errorf("decode lead score: %w", err)
	}
	return score, nil
}

var _ ports.ScoreCache = (*ScoreCache)(nil)

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Suggestion is a cached document-grounded answer suggestion
type Suggestion struct {
	Answer     string `json:"answer"`
	Confidence string `json:"confidence"` // high, medium, low
	Reasoning  string `json:"reasoning,omitempty"`
}

// SuggestionCache stores LLM answer suggestions per assessment+question so a
// re-presented question does not re-query the completion service.
type SuggestionCache interface {
	Set(ctx context.Context, assessmentID, questionID string, s *Suggestion) error
	Get(ctx context.Context, assessmentID, questionID string) (*Suggestion, error)
}

type suggestionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSuggestionCache(client *redis.Client) SuggestionCache {
	return &suggestionCache{
		client: client,
		ttl:    1 * time.Hour,
	}
}

func (c *suggestionCache) key(assessmentID, questionID string) string {
	return "suggestion:" + assessmentID + ":" + questionID
}

func (c *suggestionCache) Set(ctx context.Context, assessmentID, questionID string, s *Suggestion) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(assessmentID, questionID), data, c.ttl).Err()
}

func (c *suggestionCache) Get(ctx context.Context, assessmentID, questionID string) (*Suggestion, error) {
	data, err := c.client.Get(ctx, c.key(assessmentID, questionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	var s Suggestion
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"timelyhub-quiz-engine/internal/domain"
)

const (
	keyQuestions  = "quiz:questions"
	keyPlayer     = "quiz:player"
	keyTimeBudget = "quiz:timebudget"
	keyHistory    = "quiz:history"
)

// SessionStore is the Redis-backed implementation of app.SessionStore.
// Scalar keys hold JSON values; history is a Redis list appended with RPUSH
// and trimmed to the newest domain.MaxHistory entries in the same
// transaction, so readers never see an over-long list.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	return s.save(ctx, keyQuestions, questions)
}

func (s *SessionStore) LoadQuestions(ctx context.Context) ([]domain.RawQuestion, error) {
	var raw []domain.RawQuestion
	if err := s.load(ctx, keyQuestions, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *SessionStore) SavePlayer(ctx context.Context, name string) error {
	return s.save(ctx, keyPlayer, name)
}

func (s *SessionStore) LoadPlayer(ctx context.Context) (string, error) {
	var name string
	if err := s.load(ctx, keyPlayer, &name); err != nil {
		return "", err
	}
	return name, nil
}

func (s *SessionStore) SaveTimeBudget(ctx context.Context, seconds int) error {
	return s.save(ctx, keyTimeBudget, seconds)
}

func (s *SessionStore) LoadTimeBudget(ctx context.Context) (int, error) {
	var seconds int
	if err := s.load(ctx, keyTimeBudget, &seconds); err != nil {
		return 0, err
	}
	return seconds, nil
}

func (s *SessionStore) AppendHistory(ctx context.Context, record domain.CompletedSession) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, keyHistory, data)
	pipe.LTrim(ctx, keyHistory, int64(-domain.MaxHistory), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *SessionStore) History(ctx context.Context) ([]domain.CompletedSession, error) {
	entries, err := s.client.LRange(ctx, keyHistory, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrNotFound
	}
	records := make([]domain.CompletedSession, 0, len(entries))
	for _, entry := range entries {
		var record domain.CompletedSession
		if err := json.Unmarshal([]byte(entry), &record); err != nil {
			log.Printf("redis store: dropping undecodable history entry: %v", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *SessionStore) save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *SessionStore) load(ctx context.Context, key string, out any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	return json.Unmarshal(data, out)
}

package memory

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"timelyhub-quiz-engine/internal/domain"
)

const (
	keyQuestions  = "quiz:questions"
	keyPlayer     = "quiz:player"
	keyTimeBudget = "quiz:timebudget"
)

// SessionStore is the in-memory implementation of app.SessionStore. Values
// are kept as the JSON bytes they were saved with, so whatever goes in comes
// back out unchanged.
type SessionStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	history [][]byte
}

func NewSessionStore() *SessionStore {
	return &SessionStore{records: make(map[string][]byte)}
}

func (s *SessionStore) SaveQuestions(_ context.Context, questions []domain.Question) error {
	return s.save(keyQuestions, questions)
}

func (s *SessionStore) LoadQuestions(_ context.Context) ([]domain.RawQuestion, error) {
	var raw []domain.RawQuestion
	if err := s.load(keyQuestions, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *SessionStore) SavePlayer(_ context.Context, name string) error {
	return s.save(keyPlayer, name)
}

func (s *SessionStore) LoadPlayer(_ context.Context) (string, error) {
	var name string
	if err := s.load(keyPlayer, &name); err != nil {
		return "", err
	}
	return name, nil
}

func (s *SessionStore) SaveTimeBudget(_ context.Context, seconds int) error {
	return s.save(keyTimeBudget, seconds)
}

func (s *SessionStore) LoadTimeBudget(_ context.Context) (int, error) {
	var seconds int
	if err := s.load(keyTimeBudget, &seconds); err != nil {
		return 0, err
	}
	return seconds, nil
}

// AppendHistory appends the record and drops the oldest entries beyond
// domain.MaxHistory. Readers hold the same mutex, so the append and the trim
// are observed together.
func (s *SessionStore) AppendHistory(_ context.Context, record domain.CompletedSession) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, data)
	if len(s.history) > domain.MaxHistory {
		s.history = s.history[len(s.history)-domain.MaxHistory:]
	}
	return nil
}

func (s *SessionStore) History(_ context.Context) ([]domain.CompletedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return nil, domain.ErrNotFound
	}
	records := make([]domain.CompletedSession, 0, len(s.history))
	for _, data := range s.history {
		var record domain.CompletedSession
		if err := json.Unmarshal(data, &record); err != nil {
			log.Printf("memory store: dropping undecodable history entry: %v", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *SessionStore) save(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = data
	return nil
}

func (s *SessionStore) load(key string, out any) error {
	s.mu.RLock()
	data, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal(data, out)
}

package app

import (
	"context"

	"timelyhub-quiz-engine/internal/domain"
)

// SessionStore is the durable key/value layer backing quiz sessions. The
// question set, player name and time budget are overwritten wholesale on each
// new setup; history is append/truncate only. Load calls return
// domain.ErrNotFound for keys that were never written.
type SessionStore interface {
	SaveQuestions(ctx context.Context, questions []domain.Question) error
	// LoadQuestions returns raw questions because persisted sets may still be
	// in the legacy letter-keyed shape; callers normalize on the way in.
	LoadQuestions(ctx context.Context) ([]domain.RawQuestion, error)

	SavePlayer(ctx context.Context, name string) error
	LoadPlayer(ctx context.Context) (string, error)

	SaveTimeBudget(ctx context.Context, seconds int) error
	LoadTimeBudget(ctx context.Context) (int, error)

	// AppendHistory appends the record and truncates the list to the newest
	// domain.MaxHistory entries, atomically with respect to History readers.
	AppendHistory(ctx context.Context, record domain.CompletedSession) error
	// History returns records oldest-first, skipping entries that no longer
	// decode.
	History(ctx context.Context) ([]domain.CompletedSession, error)
}

// Generator produces raw questions from the external quiz-generation service.
type Generator interface {
	Generate(ctx context.Context, req domain.QuizRequest) ([]domain.RawQuestion, error)
}

// HistoryArchiver mirrors finished sessions into a secondary durable sink.
// Archiving is best-effort; failures never block the local history append.
type HistoryArchiver interface {
	Archive(ctx context.Context, record domain.CompletedSession) error
}

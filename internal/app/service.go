package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"timelyhub-quiz-engine/internal/domain"
)

// Service wires generation, normalization and persistence into session
// setup. Each returned Runtime owns one session exclusively.
type Service struct {
	store     SessionStore
	generator Generator
	archiver  HistoryArchiver

	// timer wiring handed to every runtime; overridable for tests
	sched Scheduler
	now   func() time.Time
}

func NewService(store SessionStore, generator Generator) *Service {
	return &Service{
		store:     store,
		generator: generator,
		sched:     tickerScheduler{},
		now:       time.Now,
	}
}

// NewServiceWithTimers is test-only wiring for deterministic runtimes.
func NewServiceWithTimers(store SessionStore, generator Generator, sched Scheduler, now func() time.Time) *Service {
	return &Service{store: store, generator: generator, sched: sched, now: now}
}

// UseArchive mirrors every finished session into a secondary sink.
func (s *Service) UseArchive(a HistoryArchiver) {
	s.archiver = a
}

// CreateSession asks the generation service for questions, normalizes them,
// persists the new session inputs wholesale and returns a runtime in the
// setup phase. Nothing is persisted when generation or normalization fails.
func (s *Service) CreateSession(ctx context.Context, req domain.QuizRequest) (*Runtime, error) {
	if strings.TrimSpace(req.PlayerName) == "" {
		return nil, fmt.Errorf("%w: player name required", domain.ErrSessionNotReady)
	}

	raw, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	questions, err := domain.NormalizeAll(raw)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: empty question set", domain.ErrGenerationFailed)
	}

	totalTime := domain.SecondsPerQuestion * len(questions)
	if err := s.store.SaveQuestions(ctx, questions); err != nil {
		return nil, fmt.Errorf("save questions: %w", err)
	}
	if err := s.store.SavePlayer(ctx, req.PlayerName); err != nil {
		return nil, fmt.Errorf("save player: %w", err)
	}
	if err := s.store.SaveTimeBudget(ctx, totalTime); err != nil {
		return nil, fmt.Errorf("save time budget: %w", err)
	}

	return s.buildRuntime(req.PlayerName, questions, totalTime), nil
}

// ResumeSession rebuilds a setup-phase runtime from previously persisted
// state, normalizing legacy-format question sets on the way in. A store with
// no prior session yields domain.ErrNotFound.
func (s *Service) ResumeSession(ctx context.Context) (*Runtime, error) {
	raw, err := s.store.LoadQuestions(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := domain.NormalizeAll(raw)
	if err != nil {
		return nil, err
	}
	player, err := s.store.LoadPlayer(ctx)
	if err != nil {
		return nil, err
	}
	totalTime, err := s.store.LoadTimeBudget(ctx)
	if err != nil {
		// Older sessions predate the stored budget; rederive it.
		totalTime = domain.SecondsPerQuestion * len(questions)
	}

	return s.buildRuntime(player, questions, totalTime), nil
}

// History returns the read-only viewer over past sessions.
func (s *Service) History() *HistoryViewer {
	return NewHistoryViewer(s.store)
}

func (s *Service) buildRuntime(player string, questions []domain.Question, totalTime int) *Runtime {
	rt := NewRuntimeWithTimers(s.store, s.sched, s.now)
	rt.Configure(player, questions, totalTime)
	if s.archiver != nil {
		rt.UseArchive(s.archiver)
	}
	return rt
}

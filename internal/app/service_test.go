package app_test

import (
	"context"
	"errors"
	"testing"

	"timelyhub-quiz-engine/internal/app"
	"timelyhub-quiz-engine/internal/domain"
	"timelyhub-quiz-engine/internal/infra/memory"
)

type stubGenerator struct {
	raw   []domain.RawQuestion
	err   error
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, _ domain.QuizRequest) ([]domain.RawQuestion, error) {
	g.calls++
	return g.raw, g.err
}

func legacyRaw(n int) []domain.RawQuestion {
	raw := make([]domain.RawQuestion, 0, n)
	for i := 0; i < n; i++ {
		raw = append(raw, domain.RawQuestion{
			Prompt: "generated question",
			Options: []domain.LetterOption{
				{Letter: "A", Text: "first"},
				{Letter: "B", Text: "second"},
			},
			AnswerKey:   "A",
			Explanation: "because",
		})
	}
	return raw
}

func TestCreateSessionPersistsInputs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	gen := &stubGenerator{raw: legacyRaw(3)}
	service := app.NewServiceWithTimers(store, gen, newManualScheduler(), fixedClock())

	rt, err := service.CreateSession(ctx, domain.QuizRequest{
		PlayerName:   "Ada",
		Topic:        "planets",
		Difficulty:   "easy",
		NumQuestions: 3,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	snap := rt.Snapshot()
	if snap.Phase != domain.PhaseSetup || snap.QuestionCount != 3 {
		t.Fatalf("unexpected runtime state: %+v", snap)
	}
	if snap.TotalTime != 3*domain.SecondsPerQuestion {
		t.Fatalf("expected budget %d, got %d", 3*domain.SecondsPerQuestion, snap.TotalTime)
	}

	player, err := store.LoadPlayer(ctx)
	if err != nil || player != "Ada" {
		t.Fatalf("player not persisted: %q (%v)", player, err)
	}
	budget, err := store.LoadTimeBudget(ctx)
	if err != nil || budget != 30 {
		t.Fatalf("budget not persisted: %d (%v)", budget, err)
	}
	raw, err := store.LoadQuestions(ctx)
	if err != nil || len(raw) != 3 {
		t.Fatalf("questions not persisted: %d (%v)", len(raw), err)
	}
}

func TestCreateSessionRequiresPlayerName(t *testing.T) {
	store := memory.NewSessionStore()
	gen := &stubGenerator{raw: legacyRaw(1)}
	service := app.NewServiceWithTimers(store, gen, newManualScheduler(), fixedClock())

	_, err := service.CreateSession(context.Background(), domain.QuizRequest{Topic: "planets"})
	if !errors.Is(err, domain.ErrSessionNotReady) {
		t.Fatalf("expected ErrSessionNotReady, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("generation must not run without a player name")
	}
}

func TestCreateSessionSurfacesGenerationFailure(t *testing.T) {
	store := memory.NewSessionStore()
	gen := &stubGenerator{err: domain.ErrGenerationFailed}
	service := app.NewServiceWithTimers(store, gen, newManualScheduler(), fixedClock())

	_, err := service.CreateSession(context.Background(), domain.QuizRequest{PlayerName: "Ada", Topic: "planets"})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	// Failed setup must leave the store untouched.
	if _, err := store.LoadQuestions(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected untouched store, got %v", err)
	}
}

func TestCreateSessionRejectsMalformedQuestions(t *testing.T) {
	store := memory.NewSessionStore()
	gen := &stubGenerator{raw: []domain.RawQuestion{{Prompt: "broken"}}}
	service := app.NewServiceWithTimers(store, gen, newManualScheduler(), fixedClock())

	_, err := service.CreateSession(context.Background(), domain.QuizRequest{PlayerName: "Ada", Topic: "planets"})
	if !errors.Is(err, domain.ErrMalformedQuestion) {
		t.Fatalf("expected ErrMalformedQuestion, got %v", err)
	}
}

func TestResumeSessionRebuildsRuntime(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	gen := &stubGenerator{raw: legacyRaw(2)}
	service := app.NewServiceWithTimers(store, gen, newManualScheduler(), fixedClock())

	if _, err := service.CreateSession(ctx, domain.QuizRequest{PlayerName: "Ada", Topic: "planets"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	resumed, err := service.ResumeSession(ctx)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	snap := resumed.Snapshot()
	if snap.PlayerName != "Ada" || snap.QuestionCount != 2 || snap.TotalTime != 20 {
		t.Fatalf("unexpected resumed state: %+v", snap)
	}
	if err := resumed.Start(); err != nil {
		t.Fatalf("resumed session should be startable: %v", err)
	}
}

func TestResumeSessionWithoutPriorState(t *testing.T) {
	service := app.NewServiceWithTimers(memory.NewSessionStore(), &stubGenerator{}, newManualScheduler(), fixedClock())
	if _, err := service.ResumeSession(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type recordingArchiver struct {
	records []domain.CompletedSession
}

func (a *recordingArchiver) Archive(_ context.Context, record domain.CompletedSession) error {
	a.records = append(a.records, record)
	return nil
}

func TestFinishedSessionsReachTheArchive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	gen := &stubGenerator{raw: legacyRaw(1)}
	sched := newManualScheduler()
	service := app.NewServiceWithTimers(store, gen, sched, fixedClock())
	archive := &recordingArchiver{}
	service.UseArchive(archive)

	rt, err := service.CreateSession(ctx, domain.QuizRequest{PlayerName: "Ada", Topic: "planets"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := rt.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	sched.Tick(domain.SecondsPerQuestion)

	if len(archive.records) != 1 || archive.records[0].PlayerName != "Ada" {
		t.Fatalf("expected one archived record, got %+v", archive.records)
	}
}

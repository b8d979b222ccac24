package memory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"timelyhub-quiz-engine/internal/domain"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	if _, err := store.LoadPlayer(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}

	questions := []domain.Question{
		{
			Prompt:      "Largest planet?",
			Answers:     []domain.Answer{{Text: "Mars"}, {Text: "Jupiter", Correct: true}},
			Explanation: "Jupiter is the largest.",
		},
	}
	if err := store.SaveQuestions(ctx, questions); err != nil {
		t.Fatalf("save questions: %v", err)
	}
	if err := store.SavePlayer(ctx, "Ada"); err != nil {
		t.Fatalf("save player: %v", err)
	}
	if err := store.SaveTimeBudget(ctx, 10); err != nil {
		t.Fatalf("save budget: %v", err)
	}

	raw, err := store.LoadQuestions(ctx)
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	loaded, err := domain.NormalizeAll(raw)
	if err != nil {
		t.Fatalf("normalize loaded: %v", err)
	}
	if !reflect.DeepEqual(questions, loaded) {
		t.Fatalf("questions changed across round trip: %+v vs %+v", questions, loaded)
	}

	player, err := store.LoadPlayer(ctx)
	if err != nil || player != "Ada" {
		t.Fatalf("expected player Ada, got %q (%v)", player, err)
	}
	budget, err := store.LoadTimeBudget(ctx)
	if err != nil || budget != 10 {
		t.Fatalf("expected budget 10, got %d (%v)", budget, err)
	}
}

func TestSessionStoreLoadsLegacyQuestionSet(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	// Simulate a question set persisted before the expanded shape existed.
	legacy := `[{"question":"Q","options":{"A":"no","B":"yes"},"answer":"B"}]`
	store.records[keyQuestions] = []byte(legacy)

	raw, err := store.LoadQuestions(ctx)
	if err != nil {
		t.Fatalf("load legacy questions: %v", err)
	}
	questions, err := domain.NormalizeAll(raw)
	if err != nil {
		t.Fatalf("normalize legacy: %v", err)
	}
	if questions[0].CorrectIndex() != 1 || questions[0].Answers[1].Text != "yes" {
		t.Fatalf("legacy set mis-normalized: %+v", questions[0])
	}
}

func TestAppendHistoryEvictsOldestBeyondLimit(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	for i := 0; i < domain.MaxHistory+1; i++ {
		if err := store.AppendHistory(ctx, sampleRecord(fmt.Sprintf("rec-%d", i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	records, err := store.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != domain.MaxHistory {
		t.Fatalf("expected %d records, got %d", domain.MaxHistory, len(records))
	}
	if records[0].ID != "rec-1" {
		t.Fatalf("expected oldest record evicted first, list starts with %q", records[0].ID)
	}
	if records[len(records)-1].ID != fmt.Sprintf("rec-%d", domain.MaxHistory) {
		t.Fatalf("expected newest record last, got %q", records[len(records)-1].ID)
	}
}

func TestHistorySkipsUndecodableEntries(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	if err := store.AppendHistory(ctx, sampleRecord("good")); err != nil {
		t.Fatalf("append: %v", err)
	}
	store.history = append(store.history, []byte("{not json"))

	records, err := store.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 1 || records[0].ID != "good" {
		t.Fatalf("expected the one decodable record, got %+v", records)
	}
}

func sampleRecord(id string) domain.CompletedSession {
	return domain.CompletedSession{
		ID: id,
		Questions: []domain.Question{
			{Prompt: "q", Answers: []domain.Answer{{Text: "a", Correct: true}}},
		},
		SelectedAnswers: map[int]int{0: 0},
		Score:           1,
		TotalQuestions:  1,
		PlayerName:      "Ada",
		CompletedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		TimeTaken:       5,
	}
}

package app_test

import (
	"context"
	"testing"
	"time"

	"timelyhub-quiz-engine/internal/app"
	"timelyhub-quiz-engine/internal/domain"
	"timelyhub-quiz-engine/internal/infra/memory"
)

func TestListRecentOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	viewer := app.NewHistoryViewer(store)

	for _, id := range []string{"first", "second", "third"} {
		if err := store.AppendHistory(ctx, historyRecord(id, 1, 2)); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	recent, err := viewer.ListRecent(ctx)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recent))
	}
	if recent[0].ID != "third" || recent[2].ID != "first" {
		t.Fatalf("expected newest first, got %q..%q", recent[0].ID, recent[2].ID)
	}
}

func TestListRecentWithEmptyStore(t *testing.T) {
	viewer := app.NewHistoryViewer(memory.NewSessionStore())
	recent, err := viewer.ListRecent(context.Background())
	if err != nil {
		t.Fatalf("empty history must not error, got %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("expected empty list, got %d records", len(recent))
	}
}

func TestListRecentSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	viewer := app.NewHistoryViewer(store)

	if err := store.AppendHistory(ctx, historyRecord("good", 2, 2)); err != nil {
		t.Fatalf("append: %v", err)
	}
	corrupt := historyRecord("corrupt", 2, 2)
	corrupt.Score = 99
	if err := store.AppendHistory(ctx, corrupt); err != nil {
		t.Fatalf("append corrupt: %v", err)
	}

	recent, err := viewer.ListRecent(ctx)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "good" {
		t.Fatalf("expected corrupt record skipped, got %+v", recent)
	}
}

func TestReviewComparesAnswers(t *testing.T) {
	record := domain.CompletedSession{
		ID: "r1",
		Questions: []domain.Question{
			{
				Prompt:      "Largest planet?",
				Answers:     []domain.Answer{{Text: "Mars"}, {Text: "Jupiter", Correct: true}},
				Explanation: "Jupiter is the largest.",
			},
			{
				Prompt:  "Closest star?",
				Answers: []domain.Answer{{Text: "Sun", Correct: true}, {Text: "Sirius"}},
			},
		},
		SelectedAnswers: map[int]int{0: 1},
		Score:           1,
		TotalQuestions:  2,
		PlayerName:      "Ada",
	}

	viewer := app.NewHistoryViewer(memory.NewSessionStore())
	reviews := viewer.Review(record)
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}

	answered := reviews[0]
	if !answered.Answered || !answered.Correct || answered.YourAnswer != "Jupiter" {
		t.Fatalf("unexpected answered review: %+v", answered)
	}
	if answered.CorrectAnswer != "Jupiter" || answered.Explanation == "" {
		t.Fatalf("review lost correct answer or explanation: %+v", answered)
	}

	skipped := reviews[1]
	if skipped.Answered || skipped.YourAnswer != "" {
		t.Fatalf("unanswered question rendered as answered: %+v", skipped)
	}
	if skipped.CorrectAnswer != "Sun" {
		t.Fatalf("expected correct answer Sun, got %q", skipped.CorrectAnswer)
	}
}

func TestPercentageAndStatus(t *testing.T) {
	cases := []struct {
		score, total   int
		wantPercentage int
		wantStatus     string
	}{
		{0, 5, 0, app.StatusFailed},
		{2, 5, 40, app.StatusFailed},
		{1, 2, 50, app.StatusPassed},
		{2, 3, 67, app.StatusPassed},
		{5, 5, 100, app.StatusPassed},
	}
	for _, tc := range cases {
		record := historyRecord("r", tc.score, tc.total)
		if got := app.Percentage(record); got != tc.wantPercentage {
			t.Fatalf("%d/%d: expected %d%%, got %d%%", tc.score, tc.total, tc.wantPercentage, got)
		}
		if got := app.Status(record); got != tc.wantStatus {
			t.Fatalf("%d/%d: expected %s, got %s", tc.score, tc.total, tc.wantStatus, got)
		}
	}
}

func TestFormatTimeTaken(t *testing.T) {
	if got := app.FormatTimeTaken(605); got != "10:05" {
		t.Fatalf("expected 10:05, got %s", got)
	}
	if got := app.FormatTimeTaken(9); got != "00:09" {
		t.Fatalf("expected 00:09, got %s", got)
	}
}

func historyRecord(id string, score, total int) domain.CompletedSession {
	questions := make([]domain.Question, 0, total)
	for i := 0; i < total; i++ {
		questions = append(questions, domain.Question{
			Prompt:  "q",
			Answers: []domain.Answer{{Text: "a", Correct: true}, {Text: "b"}},
		})
	}
	return domain.CompletedSession{
		ID:              id,
		Questions:       questions,
		SelectedAnswers: map[int]int{},
		Score:           score,
		TotalQuestions:  total,
		PlayerName:      "Ada",
		CompletedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"timelyhub-quiz-engine/internal/domain"
)

// passPercentage is the fixed pass/fail threshold.
const passPercentage = 50

const (
	StatusPassed = "PASSED"
	StatusFailed = "FAILED"
)

// HistoryViewer is a read-only projector over persisted past sessions. It
// never mutates the store; corrupt records are skipped, an empty store renders
// an empty list.
type HistoryViewer struct {
	store SessionStore
}

func NewHistoryViewer(store SessionStore) *HistoryViewer {
	return &HistoryViewer{store: store}
}

// ListRecent returns completed sessions most-recent-first.
func (v *HistoryViewer) ListRecent(ctx context.Context) ([]domain.CompletedSession, error) {
	records, err := v.store.History(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	recent := make([]domain.CompletedSession, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if !records[i].Valid() {
			log.Printf("skipping corrupt history record %q", records[i].ID)
			continue
		}
		recent = append(recent, records[i])
	}
	return recent, nil
}

// QuestionReview compares the learner's answer with the correct one for a
// single question of a past session.
type QuestionReview struct {
	Prompt        string `json:"question"`
	Answered      bool   `json:"answered"`
	YourAnswer    string `json:"yourAnswer,omitempty"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation,omitempty"`
}

// Review expands a record into its per-question detail view.
func (v *HistoryViewer) Review(record domain.CompletedSession) []QuestionReview {
	reviews := make([]QuestionReview, 0, len(record.Questions))
	for i, q := range record.Questions {
		review := QuestionReview{
			Prompt:      q.Prompt,
			Explanation: q.Explanation,
		}
		if correct := q.CorrectIndex(); correct >= 0 {
			review.CorrectAnswer = q.Answers[correct].Text
		}
		if chosen, ok := record.SelectedAnswers[i]; ok && chosen < len(q.Answers) {
			review.Answered = true
			review.YourAnswer = q.Answers[chosen].Text
			review.Correct = q.Answers[chosen].Correct
		}
		reviews = append(reviews, review)
	}
	return reviews
}

// Percentage is the record's score as a rounded percentage.
func Percentage(record domain.CompletedSession) int {
	return roundedPercentage(record.Score, record.TotalQuestions)
}

// Status reports PASSED or FAILED for a record.
func Status(record domain.CompletedSession) string {
	return statusFor(Percentage(record))
}

// FormatTimeTaken renders seconds as mm:ss for the results view.
func FormatTimeTaken(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func roundedPercentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

func statusFor(percentage int) string {
	if percentage >= passPercentage {
		return StatusPassed
	}
	return StatusFailed
}

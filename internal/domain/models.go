package domain

import "time"

// MaxHistory bounds the persisted list of completed sessions. Appending an
// 11th record evicts the oldest.
const MaxHistory = 10

// SecondsPerQuestion sizes the session-wide countdown at setup time.
const SecondsPerQuestion = 10

// Answer is a single selectable choice of a question.
type Answer struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is the canonical multiple-choice shape used everywhere past the
// normalization boundary. Exactly one answer carries Correct=true; Normalize
// refuses input that violates this.
type Question struct {
	Prompt      string   `json:"question"`
	Answers     []Answer `json:"answers"`
	Explanation string   `json:"explanation,omitempty"`
}

// CorrectIndex returns the index of the correct answer, or -1 if none or
// several answers are marked correct.
func (q Question) CorrectIndex() int {
	found := -1
	for i, ans := range q.Answers {
		if !ans.Correct {
			continue
		}
		if found != -1 {
			return -1
		}
		found = i
	}
	return found
}

// Phase identifies where a quiz session is in its lifecycle.
type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseInProgress Phase = "inProgress"
	PhaseFinished   Phase = "finished"
	PhaseReviewing  Phase = "reviewing"
)

// QuizRequest describes what the learner asked the generation service for.
type QuizRequest struct {
	PlayerName   string `json:"playerName"`
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	NumQuestions int    `json:"numQuestions"`
	// SourceText optionally carries extracted document text the questions
	// should be grounded on.
	SourceText string `json:"sourceText,omitempty"`
}

// CompletedSession is the immutable record appended to history when a session
// finishes. SelectedAnswers maps question index to the chosen answer index;
// unanswered questions are simply absent.
type CompletedSession struct {
	ID              string      `json:"id"`
	Questions       []Question  `json:"questions"`
	SelectedAnswers map[int]int `json:"selectedAnswers"`
	Score           int         `json:"score"`
	TotalQuestions  int         `json:"totalQuestions"`
	PlayerName      string      `json:"playerName"`
	CompletedAt     time.Time   `json:"completedAt"`
	TimeTaken       int         `json:"timeTaken"`
}

// Valid reports whether the record is structurally sound. Readers skip
// records that fail this check instead of crashing on corrupt history.
func (c CompletedSession) Valid() bool {
	if c.TotalQuestions <= 0 || len(c.Questions) != c.TotalQuestions {
		return false
	}
	if c.Score < 0 || c.Score > c.TotalQuestions {
		return false
	}
	if c.TimeTaken < 0 {
		return false
	}
	for _, q := range c.Questions {
		if len(q.Answers) == 0 || q.CorrectIndex() < 0 {
			return false
		}
	}
	for idx, chosen := range c.SelectedAnswers {
		if idx < 0 || idx >= c.TotalQuestions {
			return false
		}
		if chosen < 0 || chosen >= len(c.Questions[idx].Answers) {
			return false
		}
	}
	return true
}

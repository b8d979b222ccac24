package domain

import "fmt"

// Normalize converts a raw question into the canonical Question shape.
//
// Legacy letter-keyed input is expanded into an answer list in the order the
// letters appeared, marking correct the option whose letter equals the answer
// key. Already-expanded input passes through unchanged, so normalizing twice
// is a no-op. Input whose expansion does not end up with exactly one correct
// answer fails with ErrMalformedQuestion.
func Normalize(raw RawQuestion) (Question, error) {
	q := Question{Prompt: raw.Prompt, Explanation: raw.Explanation}
	switch {
	case raw.Answers != nil:
		q.Answers = raw.Answers
	case len(raw.Options) > 0:
		q.Answers = make([]Answer, 0, len(raw.Options))
		for _, opt := range raw.Options {
			q.Answers = append(q.Answers, Answer{
				Text:    opt.Text,
				Correct: opt.Letter == raw.AnswerKey,
			})
		}
	}
	if err := checkExactlyOneCorrect(q); err != nil {
		return Question{}, err
	}
	return q, nil
}

// NormalizeAll normalizes a whole question set, failing on the first bad
// question. A single malformed question invalidates the set; the session must
// not start on partially usable content.
func NormalizeAll(raw []RawQuestion) ([]Question, error) {
	questions := make([]Question, 0, len(raw))
	for i, r := range raw {
		q, err := Normalize(r)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func checkExactlyOneCorrect(q Question) error {
	if len(q.Answers) == 0 {
		return fmt.Errorf("%w: no answers", ErrMalformedQuestion)
	}
	correct := 0
	for _, ans := range q.Answers {
		if ans.Correct {
			correct++
		}
	}
	switch {
	case correct == 0:
		return fmt.Errorf("%w: no correct answer", ErrMalformedQuestion)
	case correct > 1:
		return fmt.Errorf("%w: %d answers marked correct", ErrMalformedQuestion, correct)
	}
	return nil
}

package domain

import "errors"

var (
	// ErrMalformedQuestion is returned when a raw question cannot be brought
	// into the canonical exactly-one-correct shape.
	ErrMalformedQuestion = errors.New("malformed question")
	// ErrGenerationFailed indicates the upstream quiz-generation service
	// returned an error or an unusable payload.
	ErrGenerationFailed = errors.New("quiz generation failed")
	// ErrNotFound is returned by the session store when a key has never been
	// written.
	ErrNotFound = errors.New("not found")
	// ErrSessionNotReady is returned when a session is asked to start without
	// a player name or without questions.
	ErrSessionNotReady = errors.New("session not ready to start")
	// ErrSessionNotActive is returned for answer/navigation calls outside the
	// in-progress phase.
	ErrSessionNotActive = errors.New("session not in progress")
	// ErrAnswerOutOfRange indicates a chosen answer index that does not exist
	// on the current question.
	ErrAnswerOutOfRange = errors.New("answer index out of range")
)

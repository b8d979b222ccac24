package app

import (
	"context"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"timelyhub-quiz-engine/internal/domain"
)

// autoAdvanceDelay is how long the runtime waits after an answer locks before
// moving to the next question on its own.
const autoAdvanceDelay = time.Second

// Runtime drives one quiz session: the session-wide countdown, the question
// cursor, per-question answer locking and the live score. All mutation goes
// through the mutex because timer callbacks arrive on their own goroutines.
type Runtime struct {
	store    SessionStore
	archiver HistoryArchiver
	sched    Scheduler
	now      func() time.Time

	mu          sync.Mutex
	player      string
	questions   []domain.Question
	totalTime   int
	remaining   int
	cursor      int
	score       int
	selected    map[int]int
	locked      map[int]struct{}
	phase       domain.Phase
	stopTick    func()
	cancelNext  func()
	advanceSeq  uint64
	subscribers map[chan Snapshot]struct{}
}

// Snapshot is an immutable view of the session handed to subscribers.
type Snapshot struct {
	Phase           domain.Phase     `json:"phase"`
	PlayerName      string           `json:"playerName"`
	Cursor          int              `json:"cursor"`
	QuestionCount   int              `json:"questionCount"`
	Question        *domain.Question `json:"question,omitempty"`
	Score           int              `json:"score"`
	RemainingTime   int              `json:"remainingTime"`
	TotalTime       int              `json:"totalTime"`
	SelectedAnswers map[int]int      `json:"selectedAnswers"`
	LockedQuestions []int            `json:"lockedQuestions"`
	TimeTaken       int              `json:"timeTaken"`
	Percentage      int              `json:"percentage"`
	Status          string           `json:"status,omitempty"`
}

// NewRuntime builds a runtime with real timers.
func NewRuntime(store SessionStore) *Runtime {
	return NewRuntimeWithTimers(store, tickerScheduler{}, time.Now)
}

// NewRuntimeWithTimers allows tests to drive the countdown and the
// auto-advance deterministically.
func NewRuntimeWithTimers(store SessionStore, sched Scheduler, now func() time.Time) *Runtime {
	return &Runtime{
		store:       store,
		sched:       sched,
		now:         now,
		phase:       domain.PhaseSetup,
		selected:    make(map[int]int),
		locked:      make(map[int]struct{}),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// UseArchive mirrors finished sessions into a secondary sink.
func (r *Runtime) UseArchive(a HistoryArchiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archiver = a
}

// Configure loads the fixed session inputs. Only legal before Start.
func (r *Runtime) Configure(player string, questions []domain.Question, totalTime int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != domain.PhaseSetup {
		return
	}
	r.player = player
	r.questions = questions
	if totalTime <= 0 {
		totalTime = domain.SecondsPerQuestion * len(questions)
	}
	r.totalTime = totalTime
}

// Start moves the session from setup to in-progress and arms the countdown.
// It refuses to start without a player name or without questions.
func (r *Runtime) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != domain.PhaseSetup {
		return domain.ErrSessionNotReady
	}
	if r.player == "" || len(r.questions) == 0 {
		return domain.ErrSessionNotReady
	}
	r.remaining = r.totalTime
	r.phase = domain.PhaseInProgress
	r.armCountdownLocked()
	r.broadcastLocked()
	return nil
}

// SelectAnswer records the answer for the current question. The first answer
// wins: a second call for an already-locked question is a silent no-op. A
// successful selection schedules the one-second auto-advance.
func (r *Runtime) SelectAnswer(answerIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != domain.PhaseInProgress {
		return domain.ErrSessionNotActive
	}
	if _, done := r.locked[r.cursor]; done {
		return nil
	}
	question := r.questions[r.cursor]
	if answerIndex < 0 || answerIndex >= len(question.Answers) {
		return domain.ErrAnswerOutOfRange
	}

	r.selected[r.cursor] = answerIndex
	r.locked[r.cursor] = struct{}{}
	if question.Answers[answerIndex].Correct {
		r.score++
	}

	r.cancelAdvanceLocked()
	seq := r.advanceSeq
	r.cancelNext = r.sched.After(autoAdvanceDelay, func() { r.autoAdvance(seq) })
	r.broadcastLocked()
	return nil
}

// Next advances the cursor, finishing the session when the cursor already sits
// on the last question. Manual navigation always cancels a pending
// auto-advance so a single answer can never advance twice.
func (r *Runtime) Next() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != domain.PhaseInProgress {
		return domain.ErrSessionNotActive
	}
	r.cancelAdvanceLocked()
	r.stepForwardLocked()
	r.broadcastLocked()
	return nil
}

// Previous moves the cursor back one question. Lock state and score stay
// untouched; answered questions remain locked.
func (r *Runtime) Previous() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != domain.PhaseInProgress {
		return domain.ErrSessionNotActive
	}
	r.cancelAdvanceLocked()
	if r.cursor > 0 {
		r.cursor--
	}
	r.broadcastLocked()
	return nil
}

// Restart replays the same question set from the top with all transient state
// reset.
func (r *Runtime) Restart() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != domain.PhaseFinished && r.phase != domain.PhaseReviewing {
		return domain.ErrSessionNotActive
	}
	r.cancelAdvanceLocked()
	r.stopCountdownLocked()
	r.cursor = 0
	r.score = 0
	r.remaining = r.totalTime
	r.selected = make(map[int]int)
	r.locked = make(map[int]struct{})
	r.phase = domain.PhaseInProgress
	r.armCountdownLocked()
	r.broadcastLocked()
	return nil
}

// Stop abandons the session: both timers are cancelled and no history record
// is written. An abandoned in-progress run drops back to setup with its
// transient state cleared, as if it had never started. Safe to call in any
// phase, including repeatedly.
func (r *Runtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelAdvanceLocked()
	r.stopCountdownLocked()
	if r.phase != domain.PhaseInProgress {
		return
	}
	r.cursor = 0
	r.score = 0
	r.remaining = 0
	r.selected = make(map[int]int)
	r.locked = make(map[int]struct{})
	r.phase = domain.PhaseSetup
	r.broadcastLocked()
}

// EnterReview switches a finished session to the per-question review view.
func (r *Runtime) EnterReview() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != domain.PhaseFinished {
		return domain.ErrSessionNotActive
	}
	r.phase = domain.PhaseReviewing
	r.broadcastLocked()
	return nil
}

// ExitReview returns from review to the results view. No history record is
// written here; the finish append happens exactly once per run.
func (r *Runtime) ExitReview() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != domain.PhaseReviewing {
		return domain.ErrSessionNotActive
	}
	r.phase = domain.PhaseFinished
	r.broadcastLocked()
	return nil
}

// Snapshot returns the current session view.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Questions exposes the fixed question set (shared slice, callers must not
// mutate it).
func (r *Runtime) Questions() []domain.Question {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.questions
}

// Subscribe returns a channel receiving a snapshot after every transition,
// starting with the current state. The caller must invoke cancel to avoid
// leaks.
func (r *Runtime) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	initial := r.snapshotLocked()
	r.mu.Unlock()

	ch <- initial

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// tick applies the per-second countdown protocol. Hitting zero finishes the
// session immediately regardless of unanswered questions.
func (r *Runtime) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != domain.PhaseInProgress {
		return
	}
	r.remaining--
	if r.remaining <= 0 {
		r.remaining = 0
		r.finishLocked()
	}
	r.broadcastLocked()
}

func (r *Runtime) autoAdvance(seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// The sequence check drops callbacks that fired after a manual move or a
	// phase change already invalidated them.
	if r.phase != domain.PhaseInProgress || seq != r.advanceSeq {
		return
	}
	r.cancelNext = nil
	r.stepForwardLocked()
	r.broadcastLocked()
}

func (r *Runtime) stepForwardLocked() {
	if r.cursor < len(r.questions)-1 {
		r.cursor++
		return
	}
	r.finishLocked()
}

// finishLocked runs the finish protocol once: stop timers, build the record,
// append it to history, flip the phase.
func (r *Runtime) finishLocked() {
	if r.phase != domain.PhaseInProgress {
		return
	}
	r.cancelAdvanceLocked()
	r.stopCountdownLocked()
	r.phase = domain.PhaseFinished

	record := r.recordLocked()
	ctx := context.Background()
	if err := r.store.AppendHistory(ctx, record); err != nil {
		log.Printf("append quiz history: %v", err)
	}
	if r.archiver != nil {
		if err := r.archiver.Archive(ctx, record); err != nil {
			log.Printf("archive quiz session: %v", err)
		}
	}
}

func (r *Runtime) recordLocked() domain.CompletedSession {
	timeTaken := r.totalTime - r.remaining
	if timeTaken < 0 {
		timeTaken = 0
	}
	selected := make(map[int]int, len(r.selected))
	for k, v := range r.selected {
		selected[k] = v
	}
	now := r.now()
	return domain.CompletedSession{
		ID:              strconv.FormatInt(now.UnixMilli(), 10),
		Questions:       r.questions,
		SelectedAnswers: selected,
		Score:           r.score,
		TotalQuestions:  len(r.questions),
		PlayerName:      r.player,
		CompletedAt:     now,
		TimeTaken:       timeTaken,
	}
}

func (r *Runtime) armCountdownLocked() {
	r.stopCountdownLocked()
	r.stopTick = r.sched.Every(time.Second, r.tick)
}

func (r *Runtime) stopCountdownLocked() {
	if r.stopTick != nil {
		r.stopTick()
		r.stopTick = nil
	}
}

func (r *Runtime) cancelAdvanceLocked() {
	if r.cancelNext != nil {
		r.cancelNext()
		r.cancelNext = nil
	}
	r.advanceSeq++
}

func (r *Runtime) broadcastLocked() {
	snap := r.snapshotLocked()
	for ch := range r.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest pending snapshot so slow readers never block a
			// transition.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (r *Runtime) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:         r.phase,
		PlayerName:    r.player,
		Cursor:        r.cursor,
		QuestionCount: len(r.questions),
		Score:         r.score,
		RemainingTime: r.remaining,
		TotalTime:     r.totalTime,
	}
	if r.cursor < len(r.questions) {
		q := r.questions[r.cursor]
		snap.Question = &q
	}
	snap.SelectedAnswers = make(map[int]int, len(r.selected))
	for k, v := range r.selected {
		snap.SelectedAnswers[k] = v
	}
	snap.LockedQuestions = make([]int, 0, len(r.locked))
	for idx := range r.locked {
		snap.LockedQuestions = append(snap.LockedQuestions, idx)
	}
	sort.Ints(snap.LockedQuestions)

	if r.phase == domain.PhaseFinished || r.phase == domain.PhaseReviewing {
		snap.TimeTaken = r.totalTime - r.remaining
		if snap.TimeTaken < 0 {
			snap.TimeTaken = 0
		}
		if len(r.questions) > 0 {
			snap.Percentage = roundedPercentage(r.score, len(r.questions))
		}
		snap.Status = statusFor(snap.Percentage)
	}
	return snap
}

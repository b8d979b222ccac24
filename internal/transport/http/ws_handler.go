package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"timelyhub-quiz-engine/internal/app"
	"timelyhub-quiz-engine/internal/domain"
)

// WSHandler exposes one quiz session per websocket connection. The learner
// drives the session with typed messages; every runtime transition is pushed
// back as a state snapshot.
type WSHandler struct {
	service  *app.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Index int `json:"index"`
}

type reviewRecordPayload struct {
	ID string `json:"id"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type historyEntry struct {
	domain.CompletedSession
	Percentage       int    `json:"percentage"`
	Status           string `json:"status"`
	TimeTakenDisplay string `json:"timeTakenDisplay"`
}

type reviewDetail struct {
	Record  domain.CompletedSession `json:"record"`
	Reviews []app.QuestionReview    `json:"reviews"`
}

// ServeWS upgrades the request and runs the message loop for one learner.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	session := &wsSession{
		service:    h.service,
		send:       send,
		writerDone: writerDone,
	}
	defer session.detach()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		session.handle(r.Context(), inbound)
	}

	session.detach()
	close(send)
	<-writerDone
}

// wsSession tracks the runtime currently attached to a connection. All calls
// happen on the connection's read loop; only the snapshot pump runs
// concurrently, feeding the shared send channel.
type wsSession struct {
	service    *app.Service
	send       chan outboundMessage[any]
	writerDone chan struct{}

	runtime     *app.Runtime
	unsubscribe func()
	pumpStop    chan struct{}
	pumpDone    chan struct{}
}

func (s *wsSession) handle(ctx context.Context, msg inboundMessage) {
	switch msg.Type {
	case "setup":
		var req domain.QuizRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError("invalid setup payload")
			return
		}
		rt, err := s.service.CreateSession(ctx, req)
		if err != nil {
			s.sendError(err.Error())
			return
		}
		s.attach(rt)
	case "resume":
		rt, err := s.service.ResumeSession(ctx)
		if err != nil {
			s.sendError(err.Error())
			return
		}
		s.attach(rt)
	case "start":
		s.withRuntime(func(rt *app.Runtime) error { return rt.Start() })
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			s.sendError("invalid answer payload")
			return
		}
		s.withRuntime(func(rt *app.Runtime) error { return rt.SelectAnswer(payload.Index) })
	case "next":
		s.withRuntime(func(rt *app.Runtime) error { return rt.Next() })
	case "previous":
		s.withRuntime(func(rt *app.Runtime) error { return rt.Previous() })
	case "restart":
		s.withRuntime(func(rt *app.Runtime) error { return rt.Restart() })
	case "review":
		s.withRuntime(func(rt *app.Runtime) error { return rt.EnterReview() })
	case "results":
		s.withRuntime(func(rt *app.Runtime) error { return rt.ExitReview() })
	case "history":
		s.sendHistory(ctx)
	case "reviewRecord":
		var payload reviewRecordPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			s.sendError("invalid review payload")
			return
		}
		s.sendRecordReview(ctx, payload.ID)
	default:
		s.sendError("unsupported message type")
	}
}

func (s *wsSession) withRuntime(fn func(*app.Runtime) error) {
	if s.runtime == nil {
		s.sendError("no active session")
		return
	}
	if err := fn(s.runtime); err != nil {
		s.sendError(err.Error())
	}
}

func (s *wsSession) attach(rt *app.Runtime) {
	s.detach()
	s.runtime = rt

	updates, cancel := rt.Subscribe()
	s.unsubscribe = cancel
	s.pumpStop = make(chan struct{})
	s.pumpDone = make(chan struct{})
	stop, done := s.pumpStop, s.pumpDone

	go func() {
		defer close(done)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case s.send <- outboundMessage[any]{Type: "state", Payload: snap}:
				case <-stop:
					return
				case <-s.writerDone:
					return
				}
			case <-stop:
				return
			}
		}
	}()
}

// detach abandons the attached runtime: the snapshot pump is torn down and the
// runtime's timers are stopped so a lost connection can never finish a session
// on its own. Nothing is written to history for an abandoned run.
func (s *wsSession) detach() {
	if s.unsubscribe != nil {
		close(s.pumpStop)
		s.unsubscribe()
		<-s.pumpDone
		s.unsubscribe = nil
		s.pumpStop = nil
		s.pumpDone = nil
	}
	if s.runtime != nil {
		s.runtime.Stop()
		s.runtime = nil
	}
}

func (s *wsSession) sendHistory(ctx context.Context) {
	records, err := s.service.History().ListRecent(ctx)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	entries := make([]historyEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, historyEntry{
			CompletedSession: record,
			Percentage:       app.Percentage(record),
			Status:           app.Status(record),
			TimeTakenDisplay: app.FormatTimeTaken(record.TimeTaken),
		})
	}
	s.trySend(outboundMessage[any]{Type: "history", Payload: entries})
}

func (s *wsSession) sendRecordReview(ctx context.Context, id string) {
	viewer := s.service.History()
	records, err := viewer.ListRecent(ctx)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	for _, record := range records {
		if record.ID == id {
			s.trySend(outboundMessage[any]{Type: "review", Payload: reviewDetail{
				Record:  record,
				Reviews: viewer.Review(record),
			}})
			return
		}
	}
	s.sendError("record not found")
}

func (s *wsSession) sendError(message string) {
	s.trySend(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
}

// trySend queues a message for the writer, giving up once the writer has
// exited so a dead connection can never wedge the read loop on a full buffer.
func (s *wsSession) trySend(msg outboundMessage[any]) {
	select {
	case s.send <- msg:
	case <-s.writerDone:
	}
}

package websocket

import "github.com/learnhub/learnhub-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSync   Action = "sync"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// Request is a single client frame. Answers is ignored for ping.
type Request struct {
	Action  Action                  `json:"action"`
	Answers []model.SubmittedAnswer `json:"answers,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventSynced Event = "synced"
	EventGraded Event = "graded"
	EventPong   Event = "pong"
)

type SyncedResponse struct {
	Event Event          `json:"event"`
	Ack   *model.SyncAck `json:"ack"`
}

type GradedResponse struct {
	Event  Event                `json:"event"`
	Result *model.AttemptResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/response"
	"github.com/learnhub/learnhub-backend/internal/service"
	ws "github.com/learnhub/learnhub-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams sync and submit over a WebSocket for one attempt.
type WSHandler struct {
	attempts attemptService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attempts attemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream?token=...
// Upgrades to WebSocket. Frames: {"action":"sync","answers":[...]},
// {"action":"submit","answers":[...]}, {"action":"ping"}.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	// Reject before upgrading so the client gets a proper HTTP status.
	attempt, err := h.attempts.Get(c.Request.Context(), attemptID, p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if attempt.UserID != p.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}
	if attempt.Status != model.AttemptStatusInProgress {
		fail(c, h.log, service.ErrAlreadySubmitted)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", p.UserID.String()).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Attempt stream connected")

	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if errors.Is(err, ws.ErrMalformedFrame) {
				_ = ws.WriteError(conn, string(response.ErrInvalidPayload), err.Error())
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var done bool
		switch msg.Action {
		case ws.ActionSync:
			done = h.handleSync(c, conn, wsLog, attemptID, p, msg.Answers)
		case ws.ActionSubmit:
			done = h.handleSubmit(c, conn, wsLog, attemptID, p, msg.Answers)
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, string(response.ErrUnknownWSAction), "unknown action: "+string(msg.Action))
		}
		if done {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt closed"))
			return
		}
	}
}

// handleSync reports whether the stream should close.
func (h *WSHandler) handleSync(c *gin.Context, conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID, p model.Principal, answers []model.SubmittedAnswer) bool {
	ack, err := h.attempts.Sync(c.Request.Context(), attemptID, p, answers)
	if err != nil {
		return h.writeFailure(conn, wsLog, err)
	}
	_ = ws.WriteTyped(conn, ws.SyncedResponse{Event: ws.EventSynced, Ack: ack})
	return false
}

func (h *WSHandler) handleSubmit(c *gin.Context, conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID, p model.Principal, answers []model.SubmittedAnswer) bool {
	result, err := h.attempts.Submit(c.Request.Context(), attemptID, p, answers)
	if err != nil {
		return h.writeFailure(conn, wsLog, err)
	}

	wsLog.Info().
		Float64("score", result.Score).
		Bool("passed", result.Passed).
		Msg("Attempt submitted over stream")
	_ = ws.WriteTyped(conn, ws.GradedResponse{Event: ws.EventGraded, Result: result})
	return true
}

// writeFailure sends the error frame and reports whether the attempt can no
// longer accept frames.
func (h *WSHandler) writeFailure(conn *websocket.Conn, wsLog zerolog.Logger, err error) bool {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		wsLog.Error().Err(err).Msg("Stream action failed")
	}
	_ = ws.WriteError(conn, string(code), response.GetMessage(code))
	return errors.Is(err, service.ErrAlreadySubmitted) || errors.Is(err, service.ErrAttemptExpired)
}

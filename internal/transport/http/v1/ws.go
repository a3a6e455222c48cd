package v1

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 64 << 10
)

// Client frame types.
const (
	FramePrompt  = "prompt"
	FrameForfeit = "forfeit"
)

// ClientFrame is a message sent by a websocket client.
type ClientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// allowOrigins accepts requests without an Origin header, which only
// non-browser clients send.
func allowOrigins(origins []string) func(*http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.ContainsFunc(origins, func(o string) bool { return strings.EqualFold(o, origin) })
	}
}

// WebSocket plays a session over a websocket: each prompt frame runs one
// turn and its stream events are sent back as JSON frames.
// GET /session/:id/ws
func (h *Handler) WebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		clog.FromContext(c.Request().Context()).Warnf("websocket upgrade failed: %v", err)
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go keepAlive(ctx, conn)

	sessionID, userID := c.Param("id"), UserID(c)
	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	send := func(ev domain.StreamEvent) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(ev)
	}

	for {
		// Turns can outlast the pong window, so the deadline restarts per frame.
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		var frame ClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				clog.FromContext(ctx).Warnf("websocket read: %v", err)
			}
			return nil
		}

		switch frame.Type {
		case FramePrompt:
			_, err = h.service.Converse(ctx, sessionID, userID, frame.Content, send)
		case FrameForfeit:
			var session *domain.GameSession
			if session, err = h.service.Conclude(ctx, sessionID, userID, domain.OutcomeForfeit); err == nil {
				err = send(domain.EndEvent(session.Status()))
			}
		default:
			err = fmt.Errorf("unknown frame type %q: %w", frame.Type, domain.ErrInvalidArgument)
		}

		if err != nil {
			if werr := send(domain.ErrorEvent(err)); werr != nil {
				return nil
			}
		}
	}
}

// keepAlive pings the peer until ctx is done. WriteControl may run
// concurrently with the turn's writes.
func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

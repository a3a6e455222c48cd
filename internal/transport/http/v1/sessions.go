package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// transcript is the client view of a session. Validator kwargs stay
// server-side.
type transcript struct {
	ID            string               `json:"id"`
	GameID        string               `json:"game_id"`
	AgentID       string               `json:"agent_id"`
	Description   string               `json:"description"`
	History       []domain.ChatMessage `json:"history"`
	Completed     bool                 `json:"completed"`
	Outcome       domain.Outcome       `json:"outcome,omitempty"`
	CreateTime    time.Time            `json:"create_time"`
	CompletedTime *time.Time           `json:"completed_time,omitempty"`
	Shared        string               `json:"shared,omitempty"`
}

func newTranscript(s *domain.GameSession) transcript {
	return transcript{
		ID:            s.ID,
		GameID:        s.GameID,
		AgentID:       s.AgentID,
		Description:   s.Description,
		History:       s.History,
		Completed:     s.Completed,
		Outcome:       s.Outcome,
		CreateTime:    s.CreateTime,
		CompletedTime: s.CompletedTime,
		Shared:        s.Shared,
	}
}

// pathUserMatches rejects a path user_id that is not the caller.
func pathUserMatches(c echo.Context) error {
	if c.Param("user_id") != UserID(c) {
		return fmt.Errorf("user %s cannot act for %s: %w", UserID(c), c.Param("user_id"), domain.ErrForbidden)
	}
	return nil
}

// CreateChat samples a scenario and starts a session.
// POST /session/create-chat?game_id=...
func (h *Handler) CreateChat(c echo.Context) error {
	gameID := c.QueryParam("game_id")
	if gameID == "" {
		return badRequest(c, "game_id is required")
	}

	session, err := h.service.CreateSession(c.Request().Context(), UserID(c), gameID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"session_id":  session.ID,
		"create_time": session.CreateTime,
		"description": session.Description,
	})
}

// GetTranscript returns an owned, visible session.
// GET /session/:id/chat_conversation/:user_id/history
func (h *Handler) GetTranscript(c echo.Context) error {
	if err := pathUserMatches(c); err != nil {
		return writeError(c, err)
	}
	session, err := h.service.Transcript(c.Request().Context(), c.Param("id"), UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newTranscript(session))
}

// ListHistory lists the caller's completed sessions.
// GET /session/history?offset=&limit=
func (h *Handler) ListHistory(c echo.Context) error {
	offset, limit := 0, defaultHistoryLimit
	if o := c.QueryParam("offset"); o != "" {
		val, err := strconv.Atoi(o)
		if err != nil || val < 0 {
			return badRequest(c, "offset must be a non-negative integer")
		}
		offset = val
	}
	if l := c.QueryParam("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil || val <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = min(val, maxHistoryLimit)
	}

	sessions, err := h.service.History(c.Request().Context(), UserID(c), offset, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"sessions": sessions,
		"has_more": len(sessions) == limit,
	})
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

// DeleteSessions hides the caller's sessions.
// DELETE /session
func (h *Handler) DeleteSessions(c echo.Context) error {
	var req deleteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return badRequest(c, "ids is required")
	}

	n, err := h.service.DeleteSessions(c.Request().Context(), UserID(c), req.IDs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"deleted": n})
}

type concludeRequest struct {
	Outcome domain.Outcome `json:"outcome"`
	// History is accepted for compatibility and ignored: the stored
	// history is authoritative.
	History []domain.ChatMessage `json:"history,omitempty"`
}

// Conclude ends the session with a loss or forfeit.
// POST /session/:id/chat_conversation/:user_id/conclude
func (h *Handler) Conclude(c echo.Context) error {
	if err := pathUserMatches(c); err != nil {
		return writeError(c, err)
	}
	var req concludeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Outcome == domain.OutcomeNone {
		req.Outcome = domain.OutcomeLoss
	}
	return h.conclude(c, req.Outcome)
}

// Forfeit ends the session with a forfeit.
// POST /session/:id/forfeit
func (h *Handler) Forfeit(c echo.Context) error {
	return h.conclude(c, domain.OutcomeForfeit)
}

func (h *Handler) conclude(c echo.Context, outcome domain.Outcome) error {
	session, err := h.service.Conclude(c.Request().Context(), c.Param("id"), UserID(c), outcome)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session_id":     session.ID,
		"outcome":        session.Outcome,
		"completed_time": session.CompletedTime,
	})
}

// Share publishes a completed session.
// POST /session/:id/share
func (h *Handler) Share(c echo.Context) error {
	sharedID, err := h.service.Share(c.Request().Context(), c.Param("id"), UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"shared_id": sharedID})
}

// GetShared returns a shared transcript. No identity is required.
// GET /shared/:shared_id
func (h *Handler) GetShared(c echo.Context) error {
	session, err := h.service.Shared(c.Request().Context(), c.Param("shared_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newTranscript(session))
}

package v1

import (
	"encoding/json"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/labstack/echo/v4"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

const contentTypeNDJSON = "application/x-ndjson"

type conversationRequest struct {
	Messages []domain.ChatMessage `json:"messages"`
}

// lastPrompt returns the newest user message. Earlier messages are ignored:
// the stored history is authoritative.
func (r *conversationRequest) lastPrompt() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == domain.RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// ndjsonWriter writes stream events as JSON lines. Headers are committed on
// the first event so that failures before it can still use a status code.
type ndjsonWriter struct {
	res     *echo.Response
	enc     *json.Encoder
	started bool
}

func newNDJSONWriter(res *echo.Response) *ndjsonWriter {
	return &ndjsonWriter{res: res, enc: json.NewEncoder(res)}
}

func (w *ndjsonWriter) emit(ev domain.StreamEvent) error {
	if !w.started {
		w.res.Header().Set(echo.HeaderContentType, contentTypeNDJSON)
		w.res.Header().Set("Cache-Control", "no-cache")
		w.res.Header().Set("X-Accel-Buffering", "no")
		w.res.WriteHeader(http.StatusOK)
		w.started = true
	}
	if err := w.enc.Encode(ev); err != nil {
		return err
	}
	w.res.Flush()
	return nil
}

// Conversation runs one turn and streams its events.
// POST /session/:id/chat_conversation/:user_id/conversation
func (h *Handler) Conversation(c echo.Context) error {
	if err := pathUserMatches(c); err != nil {
		return writeError(c, err)
	}
	var req conversationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	prompt := req.lastPrompt()
	if prompt == "" {
		return badRequest(c, "messages must end with a user message")
	}

	ctx := c.Request().Context()
	w := newNDJSONWriter(c.Response())
	result, err := h.service.Converse(ctx, c.Param("id"), UserID(c), prompt, w.emit)
	if err != nil {
		return writeError(c, err)
	}
	if result.Err != nil && !w.started {
		// The client left before anything was written.
		clog.FromContext(ctx).Warnf("conversation ended without output: %v", result.Err)
	}
	return nil
}

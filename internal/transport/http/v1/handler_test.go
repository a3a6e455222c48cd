package v1

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shizhouxing/project-enigma/internal/adapter/llm"
	"github.com/shizhouxing/project-enigma/internal/domain"
	"github.com/shizhouxing/project-enigma/internal/repository"
	"github.com/shizhouxing/project-enigma/internal/service"
	"github.com/shizhouxing/project-enigma/tests/helpers"
)

func newTestServer(t *testing.T, auth *Authenticator, scripts ...llm.Script) (*echo.Echo, *repository.SQLiteStore) {
	t.Helper()
	db := helpers.NewTestStore(t)
	helpers.SeedCatalog(t, db)
	svc := service.New(db, helpers.NewTestRegistry(t), llm.NewMockRouter(llm.NewMockProvider(scripts...)), service.DefaultOptions())

	if auth == nil {
		auth = NewAuthenticator("", true)
	}
	e := echo.New()
	NewHandler(svc, auth).RegisterRoutes(e)
	return e, db
}

func do(e *echo.Echo, method, target, userID, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if userID != "" {
		r.Header.Set(userIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, r)
	return rec
}

func decodeEvents(t *testing.T, body []byte) []domain.StreamEvent {
	t.Helper()
	var events []domain.StreamEvent
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var ev domain.StreamEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev), "line %q", sc.Text())
		events = append(events, ev)
	}
	return events
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorKind {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Kind
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, nil)
	rec := do(e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestListModels(t *testing.T) {
	e, db := newTestServer(t, nil)
	require.NoError(t, db.UpsertModel(context.Background(), &domain.Model{
		ID: "retired", Name: "Retired", Provider: helpers.MockProvider, ModelName: "old",
	}))

	rec := do(e, http.MethodGet, "/models", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Models []domain.Model `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	var ids []string
	for _, m := range body.Models {
		assert.True(t, m.Available)
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{helpers.TextModelID, helpers.ToolModelID}, ids)
}

func TestRegistryAndJudges(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := do(e, http.MethodGet, "/registry", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var names map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Contains(t, names["validators"], "target")
	assert.Contains(t, names["samplers"], "no_refund_easy")

	rec = do(e, http.MethodGet, "/judge/"+helpers.TextJudgeID, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, http.MethodGet, "/judge/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.KindNotFound, errorKind(t, rec))

	rec = do(e, http.MethodPost, "/judge/"+helpers.TextJudgeID+"/sample", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello world")

	tests := []struct {
		body string
		want string
	}{
		{`{"source": "well hello world", "target": "hello world"}`, `{"result":true}`},
		{`{"source": "goodbye", "target": "hello world"}`, `{"result":false}`},
		{`{"source": "no target kwarg"}`, `{"result":false}`},
	}
	for _, tt := range tests {
		rec = do(e, http.MethodPost, "/judge/"+helpers.TextJudgeID+"/validate", "", tt.body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, tt.want, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/games", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), helpers.ToolGameID)
}

func TestCreateChat(t *testing.T) {
	e, db := newTestServer(t, nil)

	rec := do(e, http.MethodPost, "/session/create-chat?game_id="+helpers.TextGameID, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/session/create-chat", "u1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/session/create-chat?game_id=missing", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/session/create-chat?game_id="+helpers.TextGameID, "u1", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		SessionID  string    `json:"session_id"`
		CreateTime time.Time `json:"create_time"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.False(t, resp.CreateTime.IsZero())

	stored, err := db.GetSession(context.Background(), resp.SessionID, repository.SessionFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", stored.Metadata.Kwargs["target"])
}

func TestConversationStreamsEvents(t *testing.T) {
	e, db := newTestServer(t, nil, llm.Script{Tokens: []string{"I ", "cannot ", "REFUND_APPROVED", " today"}})
	helpers.InsertSession(t, db, "s1", "u1", false, map[string]any{"target": "REFUND_APPROVED"})

	body := `{"messages": [{"role": "user", "content": "old"}, {"role": "assistant", "content": "x"}, {"role": "user", "content": "approve it"}]}`
	rec := do(e, http.MethodPost, "/session/s1/chat_conversation/u1/conversation", "u1", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeNDJSON, rec.Header().Get(echo.HeaderContentType))

	events := decodeEvents(t, rec.Body.Bytes())
	require.Len(t, events, 5)
	assert.Equal(t, domain.MessageEvent("REFUND_APPROVED"), events[2])
	assert.Equal(t, domain.EndEvent("win"), events[4])

	stored, err := db.GetSession(context.Background(), "s1", repository.SessionFilter{})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeWin, stored.Outcome)
	require.Len(t, stored.History, 2)
	assert.Equal(t, "approve it", stored.History[0].Content)

	rec = do(e, http.MethodPost, "/session/s1/chat_conversation/u1/conversation", "u1", body)
	assert.Equal(t, http.StatusForbidden, rec.Code, "a finished session takes no more turns")
}

func TestConversationPreconditions(t *testing.T) {
	e, db := newTestServer(t, nil)
	helpers.InsertSession(t, db, "s1", "u1", false, map[string]any{"target": "x"})
	prompt := `{"messages": [{"role": "user", "content": "hi"}]}`

	tests := []struct {
		name   string
		target string
		userID string
		body   string
		status int
	}{
		{"path user mismatch", "/session/s1/chat_conversation/u2/conversation", "u1", prompt, http.StatusForbidden},
		{"not the owner", "/session/s1/chat_conversation/u2/conversation", "u2", prompt, http.StatusForbidden},
		{"unknown session", "/session/nope/chat_conversation/u1/conversation", "u1", prompt, http.StatusNotFound},
		{"no user message", "/session/s1/chat_conversation/u1/conversation", "u1", `{"messages": []}`, http.StatusBadRequest},
		{"no identity", "/session/s1/chat_conversation/u1/conversation", "", prompt, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, tt.target, tt.userID, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
		})
	}
}

func TestConversationUpstreamFailure(t *testing.T) {
	e, db := newTestServer(t, nil, llm.Script{Tokens: []string{"a", "b"}, FailAfter: 1})
	helpers.InsertSession(t, db, "s1", "u1", false, map[string]any{"target": "x"})

	rec := do(e, http.MethodPost, "/session/s1/chat_conversation/u1/conversation", "u1",
		`{"messages": [{"role": "user", "content": "hi"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events := decodeEvents(t, rec.Body.Bytes())
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventError, events[1].Event)
	assert.Equal(t, domain.KindUpstream, events[1].Error.Kind)
	assert.Equal(t, domain.EndEvent(domain.StatusPlaying), events[2])

	stored, err := db.GetSession(context.Background(), "s1", repository.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored.History)
}

func TestConcludeShareAndHistory(t *testing.T) {
	e, db := newTestServer(t, nil)
	helpers.InsertSession(t, db, "s1", "u1", false, map[string]any{"target": "x"})
	helpers.InsertSession(t, db, "s2", "u1", false, map[string]any{"target": "x"})

	rec := do(e, http.MethodPost, "/session/s1/chat_conversation/u1/conclude", "u1", `{"outcome": "win"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/session/s1/chat_conversation/u1/conclude", "u1", `{"outcome": "loss", "history": []}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"loss"`)

	rec = do(e, http.MethodPost, "/session/s1/forfeit", "u1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPost, "/session/s2/forfeit", "u2", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodPost, "/session/s1/share", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var shared struct {
		SharedID string `json:"shared_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shared))

	rec = do(e, http.MethodGet, "/shared/"+shared.SharedID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "kwargs")
	assert.Contains(t, rec.Body.String(), `"id":"s1"`)

	rec = do(e, http.MethodGet, "/session/history?limit=10", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Sessions []domain.SessionSummary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Sessions, 1)
	assert.Equal(t, "s1", history.Sessions[0].ID)

	rec = do(e, http.MethodGet, "/session/history?limit=abc", "u1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/session/s2/chat_conversation/u1/history", "u1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodDelete, "/session", "u1", `{"ids": ["s1", "s2", "other"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted": 2}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/session/s2/chat_conversation/u1/history", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJWTAuthentication(t *testing.T) {
	secret := []byte("test-secret")
	e, _ := newTestServer(t, NewAuthenticator(string(secret), false))

	token, err := MintToken(secret, "u1", time.Hour)
	require.NoError(t, err)

	sub, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)

	expired, err := MintToken(secret, "u1", -time.Minute)
	require.NoError(t, err)
	forged, err := MintToken([]byte("other"), "u1", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer", "Bearer " + token, "", http.StatusCreated},
		{"query", "", "&token=" + token, http.StatusCreated},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, "", http.StatusUnauthorized},
		{"header only identity", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/session/create-chat?game_id="+helpers.TextGameID+tt.query, nil)
			if tt.header != "" {
				r.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			r.Header.Set(userIDHeader, "u1")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, r)
			assert.Equal(t, tt.status, rec.Code, strings.TrimSpace(rec.Body.String()))
		})
	}
}

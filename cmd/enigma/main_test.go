package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shizhouxing/project-enigma/internal/adapter/llm"
	"github.com/shizhouxing/project-enigma/internal/service"
	v1 "github.com/shizhouxing/project-enigma/internal/transport/http/v1"
	"github.com/shizhouxing/project-enigma/tests/helpers"
)

func run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSampleCommand(t *testing.T) {
	out, err := run(t, nil, "sample")
	require.NoError(t, err)
	assert.Contains(t, out, "no_refund_hard")

	out, err = run(t, nil, "sample", "bad_word")
	require.NoError(t, err)
	assert.Contains(t, out, `"target": "hello world"`)

	_, err = run(t, nil, "sample", "nope")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, nil, "validate", "target", "--source", "say HELLO", "--kwargs", `{"target":"hello","ignore_case":true}`)
	require.NoError(t, err)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp["result"])

	_, err = run(t, nil, "validate", "target", "--kwargs", "not json")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	out, err := run(t, nil, "token", "--user", "u1", "--ttl", "1h")
	require.NoError(t, err)

	sub, err := v1.ParseToken([]byte("s3cret"), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u1", sub)
}

func TestSeedCommand(t *testing.T) {
	t.Setenv("DATABASE_URL", t.TempDir()+"/enigma.db")
	out, err := run(t, nil, "seed", "--file", "../../deploy/catalog.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 judges")
}

func TestPlayCommandForfeit(t *testing.T) {
	db := helpers.NewTestStore(t)
	helpers.SeedCatalog(t, db)
	helpers.InsertSession(t, db, "s1", "u1", false, map[string]any{"target": "x"})
	svc := service.New(db, helpers.NewTestRegistry(t), llm.NewMockRouter(llm.NewMockProvider()), service.DefaultOptions())
	e := echo.New()
	v1.NewHandler(svc, v1.NewAuthenticator("", true)).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	stdin, w := io.Pipe()
	defer w.Close()
	go func() {
		io.WriteString(w, "/forfeit\n")
	}()

	done := make(chan struct{})
	var out string
	var err error
	go func() {
		defer close(done)
		out, err = run(t, stdin, "play", "--server", srv.URL, "--session", "s1", "--user", "u1")
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("play did not finish")
	}
	require.NoError(t, err)
	assert.Contains(t, out, "Session ended: forfeit")
}

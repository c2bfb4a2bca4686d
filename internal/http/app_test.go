package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bookstore/internal/config"
	"bookstore/internal/domain"
	"bookstore/internal/http/handlers"
	"bookstore/internal/repos"
)

type testApp struct {
	app *fiber.App
	db  *sqlx.DB
}

// newTestApp builds the real app over an in-memory database with the demo catalog.
// Limiters are off unless opts turn them on.
func newTestApp(t *testing.T, opts ...func(*config.Config)) *testApp {
	t.Helper()
	cfg := config.Defaults()
	cfg.DBDSN = ":memory:"
	cfg.JWTSecret = "test-secret"
	cfg.BcryptCost = bcrypt.MinCost
	cfg.RateLimitMax = 0
	cfg.LoginRateLimitMax = 0
	for _, o := range opts {
		o(&cfg)
	}

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.SeedDemo(t.Context(), db))

	deps, err := handlers.NewDeps(db, cfg)
	require.NoError(t, err)
	return &testApp{app: handlers.NewApp(deps, cfg), db: db}
}

type response struct {
	Status  int             `json:"-"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    *domain.Page    `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

func (r response) decode(t *testing.T, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, dst), "data: %s", r.Data)
}

// call sends body as JSON (string bodies are sent verbatim) with an optional bearer token.
func (ta *testApp) call(t *testing.T, method, path string, body any, token string) response {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{Status: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return out
}

// login registers email and returns a bearer token for it.
func (ta *testApp) login(t *testing.T, email string) string {
	t.Helper()
	creds := map[string]string{"email": email, "password": "password123"}
	r := ta.call(t, "POST", "/auth/register", creds, "")
	require.Equal(t, fiber.StatusCreated, r.Status, r.Message)
	r = ta.call(t, "POST", "/auth/login", creds, "")
	require.Equal(t, fiber.StatusOK, r.Status, r.Message)
	var res struct {
		AccessToken string `json:"access_token"`
	}
	r.decode(t, &res)
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

// captureLogs temporarily replaces the standard logger output and returns the JSON entries written.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

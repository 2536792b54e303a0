package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/ailogo/internal/auth"
	"github.com/sakif/ailogo/internal/config"
	"github.com/sakif/ailogo/internal/model"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	env := map[string]string{
		"DB_PATH":     ":memory:",
		"JWT_SECRET":  testSecret,
		"GENERATOR":   "mock",
		"STORAGE_DIR": t.TempDir(),
		"APP_URL":     "http://ailogo.test",
	}
	cfg, err := config.FromEnv(func(k string) string { return env[k] })
	require.NoError(t, err)

	s, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(s.close)
	return s
}

func sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)
	token, err := tokens.Generate(model.Identity{Subject: "gh_7", GitHubID: 7, Login: "octo", Email: "octo@example.com"})
	require.NoError(t, err)
	return &http.Cookie{Name: "token", Value: token}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func post(t *testing.T, h http.Handler, path, body string, cookie *http.Cookie) envelope {
	t.Helper()
	env, err := do(h, path, body, cookie)
	require.NoError(t, err)
	return env
}

// do is safe to call off the test goroutine.
func do(h http.Handler, path, body string, cookie *http.Cookie) (envelope, error) {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		return envelope{}, fmt.Errorf("%s: HTTP %d: %s", path, rr.Code, rr.Body.String())
	}
	var env envelope
	err := json.NewDecoder(rr.Body).Decode(&env)
	return env, err
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()

	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"code":0,"message":"ok","data":{"status":"ok"}}`, rr.Body.String())
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/generate-logo",
		"/api/regenerate-logo",
		"/api/check-logo-status",
		"/api/toggle-logo-publicity",
		"/api/get-user-logos",
		"/api/get-user-info",
		"/api/create-checkout",
		"/api/remove-background",
	} {
		t.Run(path, func(t *testing.T) {
			env := post(t, s.Handler(), path, `{}`, nil)
			assert.Equal(t, 401, env.Code)
			assert.Equal(t, "no auth, please sign-in", env.Message)
		})
	}
}

func TestPublicGalleryIsOpen(t *testing.T) {
	s := newTestServer(t)

	env := post(t, s.Handler(), "/api/get-public-logos", `{}`, nil)

	assert.Equal(t, 0, env.Code)
	assert.Equal(t, "[]", string(env.Data))
}

// TestGenerationEndToEnd runs a generation through the queue and a real
// worker with the mock generator, then serves the stored image.
func TestGenerationEndToEnd(t *testing.T) {
	s := newTestServer(t)
	s.pool.Start()
	h := s.Handler()
	cookie := sessionCookie(t)

	env := post(t, h, "/api/generate-logo", `{"description":"a tiny robot"}`, cookie)
	require.Equal(t, 0, env.Code, env.Message)
	var logo struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		ImageURL string `json:"img_url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &logo))
	require.Equal(t, "generating", logo.Status)

	require.Eventually(t, func() bool {
		env, err := do(h, "/api/check-logo-status", `{"logo_id":"`+logo.ID+`"}`, cookie)
		if err != nil || env.Code != 0 {
			return false
		}
		_ = json.Unmarshal(env.Data, &logo)
		return logo.Status != "generating"
	}, 10*time.Second, 20*time.Millisecond)

	require.Equal(t, "success", logo.Status)
	assert.Equal(t, "http://ailogo.test/files/logos/"+logo.ID+".png", logo.ImageURL)

	for _, key := range []string{logo.ID + ".png", logo.ID + "_black.png", logo.ID + "_grey.png", logo.ID + "_white.png"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/files/logos/"+key, nil))
		assert.Equal(t, http.StatusOK, rr.Code, key)
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"), key)
	}

	env = post(t, h, "/api/get-user-info", `{}`, cookie)
	require.Equal(t, 0, env.Code)
	var info struct {
		Credits struct {
			Used int `json:"used_credits"`
			Left int `json:"left_credits"`
		} `json:"credits"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, 1, info.Credits.Used)
	assert.Equal(t, 2, info.Credits.Left)
}

func TestNewRejectsShortSecret(t *testing.T) {
	env := map[string]string{"DB_PATH": ":memory:", "GENERATOR": "mock", "STORAGE_DIR": t.TempDir()}
	cfg, err := config.FromEnv(func(k string) string { return env[k] })
	require.NoError(t, err)

	_, err = New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

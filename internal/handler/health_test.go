package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/ailogo/internal/handler"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		ping   error
		status int
	}{
		{"healthy", nil, http.StatusOK},
		{"database down", errors.New("disk I/O error"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewHealthHandler(pingerFunc(func(context.Context) error { return tt.ping }), testLogger())
			rr := httptest.NewRecorder()

			h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestHealth_RealDatabase(t *testing.T) {
	api := newTestAPI(t)
	h := handler.NewHealthHandler(api.db, testLogger())
	rr := httptest.NewRecorder()

	h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"code":0,"message":"ok","data":{"status":"ok"}}`, rr.Body.String())
}

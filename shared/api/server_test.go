package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *BaseServer {
	t.Helper()
	bs := NewBaseServer(":0", ServerOptions{
		ServiceName:    "api-test",
		AllowedOrigins: []string{"https://app.example"},
	}, zap.NewNop())
	bs.Router.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"request_id": RequestIDFromContext(r.Context())})
	}).Methods(http.MethodPost)
	bs.Router.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	return bs
}

func TestRequestIDIsEchoed(t *testing.T) {
	bs := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	bs.Server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	assert.JSONEq(t, `{"request_id":"req-123"}`, rec.Body.String())
}

func TestRequestIDIsGenerated(t *testing.T) {
	bs := newTestServer(t)

	rec := httptest.NewRecorder()
	bs.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ok", nil))

	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestPanicBecomesInternalError(t *testing.T) {
	bs := newTestServer(t)

	rec := httptest.NewRecorder()
	bs.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"internal server error","code":500}`, rec.Body.String())
}

func TestCORSPreflightForAllowedOrigin(t *testing.T) {
	bs := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	bs.Server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	bs := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	bs.Server.Handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWriteErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteBadRequest(rec, "nope")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"nope","code":400}`, rec.Body.String())
}

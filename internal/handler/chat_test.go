package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/adalparedes/adalcore/internal/middleware"
	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/internal/provider"
	"github.com/adalparedes/adalcore/pkg/logger"
)

const testSecret = "test-secret"

// fakeAdapter stands in for an upstream provider and counts calls.
type fakeAdapter struct {
	id         provider.ID
	configured bool
	calls      int
	response   string
	err        error
}

func (f *fakeAdapter) ID() provider.ID      { return f.id }
func (f *fakeAdapter) EndpointPath() string { return "/api/v1/chat/" + string(f.id) }
func (f *fakeAdapter) Configured() bool     { return f.configured }

func (f *fakeAdapter) Stream(ctx context.Context, req *model.ChatRequest) (io.ReadCloser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.response)), nil
}

func newChatRouter(adapter *fakeAdapter) http.Handler {
	registry := provider.NewRegistry(adapter)
	h := NewChatHandler(registry, logger.NewNop())

	r := chi.NewRouter()
	r.MethodNotAllowed(MethodNotAllowed)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(testSecret))
		r.Post("/chat/{provider}", h.Relay)
	})
	return r
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Tier: "free",
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestRelayUnauthenticatedNeverReachesUpstream(t *testing.T) {
	adapter := &fakeAdapter{id: provider.Gemini, configured: true, response: "hola"}
	router := newChatRouter(adapter)

	body := `{"system":"s","userContent":"hola"}`

	// No token at all.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/gemini", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH_ERROR", gjson.Get(rec.Body.String(), "error").String())

	// Garbage token.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/chat/gemini", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// The upstream credential was never spent.
	assert.Zero(t, adapter.calls)
}

func TestRelayUnknownProvider(t *testing.T) {
	adapter := &fakeAdapter{id: provider.Gemini, configured: true}
	router := newChatRouter(adapter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/anthropic", strings.NewReader(`{"userContent":"x"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PROVIDER_UNKNOWN", gjson.Get(rec.Body.String(), "error").String())
	assert.Zero(t, adapter.calls)
}

func TestRelayMissingCredential(t *testing.T) {
	adapter := &fakeAdapter{id: provider.Gemini, configured: false}
	router := newChatRouter(adapter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/gemini", strings.NewReader(`{"userContent":"x"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "API_KEY_MISSING", gjson.Get(rec.Body.String(), "error").String())
	assert.Zero(t, adapter.calls)
}

func TestRelayInvalidBodyBeatsMissingCredential(t *testing.T) {
	// A caller mistake stays a 400 even when the server is also
	// misconfigured; the credential check only runs on a valid request.
	adapter := &fakeAdapter{id: provider.Gemini, configured: false}
	router := newChatRouter(adapter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/gemini", strings.NewReader(`{"system":"s"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", gjson.Get(rec.Body.String(), "error").String())
	assert.Zero(t, adapter.calls)
}

func TestRelayUserMismatchForbidden(t *testing.T) {
	adapter := &fakeAdapter{id: provider.Gemini, configured: true}
	router := newChatRouter(adapter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/gemini",
		strings.NewReader(`{"userContent":"x","userId":"otro-usuario"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", gjson.Get(rec.Body.String(), "error").String())
	assert.Zero(t, adapter.calls)
}

func TestRelayEmptyBodyRejected(t *testing.T) {
	adapter := &fakeAdapter{id: provider.Gemini, configured: true}
	router := newChatRouter(adapter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/gemini", strings.NewReader(`{"system":"s"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, adapter.calls)
}

func TestRelayUpstreamErrorMapsToBadGateway(t *testing.T) {
	adapter := &fakeAdapter{
		id:         provider.Gemini,
		configured: true,
		err:        &provider.UpstreamError{Provider: "gemini", Status: 429, Message: "rate limited"},
	}
	router := newChatRouter(adapter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/gemini", strings.NewReader(`{"userContent":"hola"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "EXTERNAL_API_ERROR", gjson.Get(rec.Body.String(), "error").String())
	assert.Contains(t, gjson.Get(rec.Body.String(), "message").String(), "429")
	assert.Equal(t, 1, adapter.calls)
}

func TestRelayStreamsPlainText(t *testing.T) {
	adapter := &fakeAdapter{id: provider.Gemini, configured: true, response: "Hola desde el núcleo"}
	router := newChatRouter(adapter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/gemini", strings.NewReader(`{"userContent":"hola"}`))
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "Hola desde el núcleo", rec.Body.String())
	assert.Equal(t, 1, adapter.calls)
}

func TestRelayMethodNotAllowed(t *testing.T) {
	adapter := &fakeAdapter{id: provider.Gemini, configured: true}
	router := newChatRouter(adapter)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/gemini", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "BAD_REQUEST", gjson.Get(rec.Body.String(), "error").String())
	assert.Zero(t, adapter.calls)
}

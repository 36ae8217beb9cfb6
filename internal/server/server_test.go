package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flagbot/internal/models"
	"flagbot/internal/pipeline"
)

type stubScorer struct{}

func (stubScorer) Submit(context.Context, []models.RawMessage) (*pipeline.Result, error) {
	return &pipeline.Result{Reports: []models.ReportEntry{}, Audit: []models.ScoredMessage{}}, nil
}

type stubFlags struct{}

func (stubFlags) SaveFlagRecords(string, []models.ScoredMessage) error { return nil }
func (stubFlags) GetRecentFlagRecords(int) ([]models.FlagRecord, error) {
	return []models.FlagRecord{}, nil
}

type stubChannels struct{}

func (stubChannels) ListChannels(models.ChannelKind) ([]models.Channel, error) {
	return []models.Channel{}, nil
}
func (stubChannels) AddChannel(*models.Channel) error { return nil }
func (stubChannels) RemoveChannel(int64, models.ChannelKind) (bool, error) {
	return false, nil
}

func newTestServer(secret string) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(Deps{
		Scorer:      stubScorer{},
		ChannelRepo: stubChannels{},
		FlagRepo:    stubFlags{},
		JWTSecret:   secret,
	}, zap.NewNop())
}

func get(h http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPingAndMetrics(t *testing.T) {
	h := newTestServer("secret").Handler()

	w := get(h, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())

	w = get(h, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAPIRequiresTokenWhenSecretSet(t *testing.T) {
	h := newTestServer("secret").Handler()

	w := get(h, "/api/v1/flags", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.Claims{
		Role:             "moderator",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	w = get(h, "/api/v1/flags", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func signed(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return "Bearer " + token
}

func postScan(h http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", strings.NewReader(`{"messages":[]}`))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestScanRequiresModeratorRole(t *testing.T) {
	h := newTestServer("secret").Handler()

	w := postScan(h, signed(t, models.RoleViewer))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(h, "/api/v1/flags", signed(t, models.RoleViewer))
	assert.Equal(t, http.StatusOK, w.Code, "viewers may still read")

	w = postScan(h, signed(t, models.RoleModerator))
	assert.Equal(t, http.StatusOK, w.Code)

	w = postScan(h, signed(t, models.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIOpenWithoutSecret(t *testing.T) {
	h := newTestServer("").Handler()

	w := get(h, "/api/v1/channels", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/macrolog/backend/config"
	"github.com/pageza/macrolog/backend/internal/server"
	"github.com/pageza/macrolog/backend/internal/service"
	"github.com/pageza/macrolog/backend/internal/testhelpers"
)

func testConfig(authMode string) *config.Config {
	return &config.Config{
		Environment:         config.Test,
		ServerHost:          "127.0.0.1",
		ServerPort:          "0",
		CORSOrigins:         []string{"http://localhost:5173"},
		AuthMode:            authMode,
		DevUserID:           "u1",
		JWTSecret:           "test-secret-that-is-long-enough-to-sign",
		ExtractionModel:     "o4-mini",
		RecommendationModel: "gpt-4.1-mini",
		ModelTimeout:        5 * time.Second,
		AIRateLimitPerHour:  1,
	}
}

func serve(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServerDevMode(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv := server.New(testConfig(config.AuthModeDev), logger, server.Deps{
		DB:    testhelpers.SetupTestDB(t),
		Model: &testhelpers.MockModelClient{},
	})
	h := srv.Handler()

	for _, path := range []string{"/health", "/api/health"} {
		w := serve(h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := serve(h, http.MethodPost, "/api/v1/foods", `{"name":"Apple","calories":95,"carbs":25}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(h, http.MethodGet, "/api/v1/foods", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Apple"`)

	w = serve(h, http.MethodGet, "/api/v1/foods", "", map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(h, http.MethodGet, "/api/v1/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerJWTMode(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := testConfig(config.AuthModeJWT)
	srv := server.New(cfg, logger, server.Deps{DB: testhelpers.SetupTestDB(t)})
	h := srv.Handler()

	w := serve(h, http.MethodGet, "/api/v1/days", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(h, http.MethodGet, "/api/v1/days", "", map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := service.NewTokenService(cfg.JWTSecret, time.Hour).GenerateToken("u1")
	require.NoError(t, err)
	w = serve(h, http.MethodGet, "/api/v1/days", "", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	// health stays public
	w = serve(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerWithoutModelFailsAIRoutes(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv := server.New(testConfig(config.AuthModeDev), logger, server.Deps{DB: testhelpers.SetupTestDB(t)})
	h := srv.Handler()

	w := serve(h, http.MethodPost, "/api/v1/foods", `{"name":"Oats","calories":150}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = serve(h, http.MethodPost, "/api/v1/days", `{"date":"2025-06-01"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = serve(h, http.MethodPost, "/api/v1/days/2025-06-01/meals", `{"name":"Breakfast"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(h, http.MethodGet, "/api/v1/days/2025-06-01/meals/Breakfast/recs", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestServerRateLimitsAIRoutes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger, _ := test.NewNullLogger()
	srv := server.New(testConfig(config.AuthModeDev), logger, server.Deps{
		DB:    testhelpers.SetupTestDB(t),
		Redis: client,
	})
	h := srv.Handler()

	// unknown day: the request still counts against the limit
	w := serve(h, http.MethodGet, "/api/v1/days/2025-06-01/meals/Lunch/recs", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = serve(h, http.MethodGet, "/api/v1/days/2025-06-01/meals/Lunch/recs", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// catalog routes are not limited
	w = serve(h, http.MethodGet, "/api/v1/foods", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

package middleware

import (
	"bytes"
	"encoding/json"
	"fundverse/config"
	"fundverse/internal/global/jwt"
	"fundverse/internal/global/response"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(log *slog.Logger) *gin.Engine {
	c := config.Default()
	c.JWT.AccessSecret = "middleware-test"
	config.Set(&c)

	r := gin.New()
	r.Use(RequestID(), Logger(log), Recovery())
	r.POST("/login", func(c *gin.Context) {
		response.Success(c, gin.H{"token": "secret-jwt", "user": "a"})
	})
	r.GET("/students", Auth("student"), func(c *gin.Context) {
		p, _ := jwt.GetUserPayload(c)
		response.Success(c, p.UserID)
	})
	r.GET("/maybe", OptionalAuth(), func(c *gin.Context) {
		_, ok := jwt.GetUserPayload(c)
		response.Success(c, ok)
	})
	return r
}

func get(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogger_FiltersToken(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(slog.New(slog.NewJSONHandler(&buf, nil)))

	w := get(r, http.MethodPost, "/login", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "secret-jwt")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry["response_body"], "secret-jwt")
	assert.Contains(t, entry["response_body"], "[filtered]")
	assert.Equal(t, w.Header().Get(RequestIDHeader), entry["request_id"])
}

func TestRequestID_KeepsCallerID(t *testing.T) {
	r := newEngine(slog.New(slog.DiscardHandler))
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = get(r, http.MethodPost, "/login", "")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestAuth(t *testing.T) {
	r := newEngine(slog.New(slog.DiscardHandler))

	assert.Equal(t, http.StatusUnauthorized, get(r, http.MethodGet, "/students", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, http.MethodGet, "/students", "garbage").Code)

	company := jwt.CreateToken(jwt.Payload{UserID: "c1", Role: "company"})
	assert.Equal(t, http.StatusForbidden, get(r, http.MethodGet, "/students", company).Code)

	student := jwt.CreateToken(jwt.Payload{UserID: "s1", Role: "student"})
	w := get(r, http.MethodGet, "/students", student)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"s1"`)

	assert.Contains(t, get(r, http.MethodGet, "/maybe", "").Body.String(), `"data":false`)
	assert.Contains(t, get(r, http.MethodGet, "/maybe", "garbage").Body.String(), `"data":false`)
	assert.Contains(t, get(r, http.MethodGet, "/maybe", student).Body.String(), `"data":true`)
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezze/backend/internal/infrastructure/auth"
	"github.com/mezze/backend/internal/infrastructure/config"
)

func newTestJWTService(expiration time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret",
		Expiration: expiration,
		Issuer:     "mezze-backend",
	})
}

func newJWTRouter(cfg JWTMiddlewareConfig) *gin.Engine {
	engine := gin.New()
	engine.Use(JWTAuthMiddlewareWithConfig(cfg))
	handle := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"operator": GetOperator(c)})
	}
	engine.GET("/orders", handle)
	engine.GET("/healthz", handle)
	engine.GET("/debug/pprof", handle)
	return engine
}

func authedRequest(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	}
	return req
}

func TestJWTAuthMiddleware(t *testing.T) {
	svc := newTestJWTService(time.Hour)
	engine := newJWTRouter(DefaultJWTConfig(svc))

	t.Run("valid token sets operator", func(t *testing.T) {
		issued, err := svc.GenerateToken("dana")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, authedRequest("/orders", issued.Token))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"dana"`)
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, authedRequest("/orders", ""))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Missing authorization header")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set(AuthHeaderKey, "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, authedRequest("/orders", "not.a.jwt"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_INVALID")
	})

	t.Run("expired token", func(t *testing.T) {
		expired := newTestJWTService(-time.Minute)
		issued, err := expired.GenerateToken("dana")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, authedRequest("/orders", issued.Token))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := auth.NewJWTService(config.JWTConfig{
			Secret:     "other-secret",
			Expiration: time.Hour,
			Issuer:     "mezze-backend",
		})
		issued, err := other.GenerateToken("dana")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, authedRequest("/orders", issued.Token))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("skip paths pass through", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, authedRequest("/healthz", ""))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, authedRequest("/debug/pprof", ""))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestJWTAuthMiddlewareBlacklist(t *testing.T) {
	svc := newTestJWTService(time.Hour)
	blacklist := auth.NewInMemoryTokenBlacklist()
	cfg := DefaultJWTConfig(svc)
	cfg.TokenBlacklist = blacklist
	engine := newJWTRouter(cfg)

	issued, err := svc.GenerateToken("dana")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, authedRequest("/orders", issued.Token))
	require.Equal(t, http.StatusOK, w.Code)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)
	require.NoError(t, blacklist.Revoke(context.Background(), claims.ID, time.Hour))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, authedRequest("/orders", issued.Token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REVOKED")
}

func TestJWTAuthMiddlewareOnError(t *testing.T) {
	svc := newTestJWTService(time.Hour)
	cfg := DefaultJWTConfig(svc)
	cfg.OnError = func(c *gin.Context, _ error) {
		c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"custom": true})
	}
	engine := newJWTRouter(cfg)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, authedRequest("/orders", ""))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Contains(t, w.Body.String(), "custom")
}

func TestGetJWTClaims(t *testing.T) {
	svc := newTestJWTService(time.Hour)
	issued, err := svc.GenerateToken("sam")
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(JWTAuthMiddleware(svc))
	engine.GET("/whoami", func(c *gin.Context) {
		claims := GetJWTClaims(c)
		require.NotNil(t, claims)
		c.JSON(http.StatusOK, gin.H{"operator": claims.Operator})
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, authedRequest("/whoami", issued.Token))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sam"`)
}

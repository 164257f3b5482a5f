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

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type authStub struct {
	claims *models.JWTClaims
	tokens []string
}

func (a *authStub) Authenticate(ctx context.Context, token string) (*models.JWTClaims, error) {
	a.tokens = append(a.tokens, token)
	if a.claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return a.claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/grievances/:id", handlers...)
	return r
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/grievances/g-1", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	auth := &authStub{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleCitizen}}
	r := newRouter(JWT(auth))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Basic abc").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer tok-1").Code)
	assert.Equal(t, []string{"tok-1"}, auth.tokens)

	auth.claims = nil
	assert.Equal(t, http.StatusUnauthorized, serve(r, "bearer tok-2").Code)
}

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		name   string
		claims *models.JWTClaims
		want   int
	}{
		{"officer allowed", &models.JWTClaims{UserID: "o", Role: models.RoleOfficer}, http.StatusNoContent},
		{"citizen forbidden", &models.JWTClaims{UserID: "c", Role: models.RoleCitizen}, http.StatusForbidden},
		{"superuser allowed", &models.JWTClaims{UserID: "s", Role: models.RoleCitizen, IsSuperuser: true}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(JWT(&authStub{claims: tc.claims}), RequireRoles(models.RoleOfficer))
			assert.Equal(t, tc.want, serve(r, "Bearer x").Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	r := newRouter(JWT(&authStub{claims: &models.JWTClaims{UserID: "o", Role: models.RoleOfficer}}), RequireAdmin())
	assert.Equal(t, http.StatusForbidden, serve(r, "Bearer x").Code)

	r = newRouter(JWT(&authStub{claims: &models.JWTClaims{UserID: "s", IsStaff: true}}), RequireAdmin())
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer x").Code)

	r = newRouter(RequireAdmin())
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
}

func TestRateLimiterPerUser(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	auth := &authStub{claims: &models.JWTClaims{UserID: "u-1"}}
	r := newRouter(JWT(auth), limiter.Middleware())

	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer x").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer x").Code)
	w := serve(r, "Bearer x")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	auth.claims = &models.JWTClaims{UserID: "u-2"}
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer x").Code)

	now = now.Add(time.Second)
	auth.claims = &models.JWTClaims{UserID: "u-1"}
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer x").Code)
}

func TestRateLimiterSweepDropsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	auth := &authStub{claims: &models.JWTClaims{UserID: "u-1"}}
	r := newRouter(JWT(auth), limiter.Middleware())
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer x").Code)

	now = now.Add(limiterIdleTTL + time.Minute)
	auth.claims = &models.JWTClaims{UserID: "u-2"}
	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer x").Code)
	// Only sweep evicts.
	assert.Len(t, limiter.visitors, 2)

	assert.Equal(t, 1, limiter.sweep())
	assert.Len(t, limiter.visitors, 1)
	assert.Contains(t, limiter.visitors, "user:u-2")
	assert.Zero(t, limiter.sweep())
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRouter(NewRateLimiter(0, 0).Middleware())
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, "").Code)
	}
}

func TestResponseMetaRecordsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, meta)
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, "processing_time_ms")
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"elixir/internal/model"
	"elixir/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, sub uuid.UUID, role string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub.String(),
		"role": role,
		"typ":  "access",
		"exp":  time.Now().Add(ttl).Unix(),
	})
	s, err := token.SignedString(GetJWTSecret())
	require.NoError(t, err)
	return s
}

func perform(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestParseToken(t *testing.T) {
	SetJWTSecret("test-secret")
	id := uuid.New()

	claims, err := ParseToken(signToken(t, id, model.RolGerente, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, model.RolGerente, claims.Rol)

	_, err = ParseToken(signToken(t, id, model.RolGerente, -time.Minute))
	assert.Error(t, err)

	_, err = ParseToken("garbage")
	assert.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	SetJWTSecret("test-secret")
	r := gin.New()
	r.GET("/", RequireRole(model.RolGerente, model.RolAdminSistema), func(c *gin.Context) {
		id, ok := CurrentUserID(c)
		assert.True(t, ok)
		assert.NotEqual(t, uuid.Nil, id)
		c.String(http.StatusOK, CurrentRol(c))
	})

	assert.Equal(t, http.StatusUnauthorized, perform(r, "").Code)
	assert.Equal(t, http.StatusForbidden, perform(r, signToken(t, uuid.New(), model.RolCliente, time.Hour)).Code)

	w := perform(r, signToken(t, uuid.New(), model.RolGerente, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.RolGerente, w.Body.String())
}

func TestRequireAuthReadsCookie(t *testing.T) {
	SetJWTSecret("test-secret")
	r := gin.New()
	r.GET("/", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: signToken(t, uuid.New(), model.RolCliente, time.Hour)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	SetJWTSecret("test-secret")
	r := gin.New()
	r.GET("/", OptionalAuth(), func(c *gin.Context) {
		_, ok := CurrentUserID(c)
		if ok {
			c.String(http.StatusOK, "user")
			return
		}
		c.String(http.StatusOK, "anon")
	})

	assert.Equal(t, "anon", perform(r, "").Body.String())
	assert.Equal(t, "anon", perform(r, "bad-token").Body.String())
	assert.Equal(t, "user", perform(r, signToken(t, uuid.New(), model.RolCliente, time.Hour)).Body.String())
}

func TestRequirePermission(t *testing.T) {
	SetJWTSecret("test-secret")
	db := testutil.NewDB(t)
	InitPermissionMiddleware(db)
	ClearPermissionCache("")
	t.Cleanup(func() { ClearPermissionCache("") })

	r := gin.New()
	r.GET("/", RequirePermission(model.PermAuditoriaRead), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, signToken(t, uuid.New(), model.RolAdminSistema, time.Hour)).Code)
	assert.Equal(t, http.StatusForbidden, perform(r, signToken(t, uuid.New(), model.RolGerente, time.Hour)).Code)

	perms, err := getPermissionsForRole(model.RolGerente)
	require.NoError(t, err)
	assert.ElementsMatch(t, model.DefaultRolePermissions[model.RolGerente], perms)
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := perform(r, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), "Error interno del servidor")
}

func TestRateLimitBlocksAfterQuota(t *testing.T) {
	limit, err := RateLimit("2-M", "test", nil)
	require.NoError(t, err)

	r := gin.New()
	r.POST("/login", limit, func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	_, err = RateLimit("nonsense", "test", nil)
	assert.Error(t, err)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"partnerpipeline/internal/authz"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity(), ReadOnlyGuard())
	echo := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString("user_id"), "role": c.GetInt("role_id")})
	}
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/items", echo)
	r.POST("/items", echo)
	r.POST("/commission/resolve", echo)
	r.GET("/forecast", RequireAction(authz.ActionViewForecast), echo)
	return r
}

func do(r http.Handler, method, path, user, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	if role != "" {
		req.Header.Set(HeaderRoleID, role)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdentity(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/items", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/items", "u-1", "abc").Code)

	w := do(r, http.MethodGet, "/items", "u-1", "10")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"u-1","role":10}`, w.Body.String())
}

func TestIdentity_QueryOnlyForWebSocket(t *testing.T) {
	r := newRouter()

	w := do(r, http.MethodGet, "/items?user_id=u-1&role_id=10", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/items?user_id=u-1&role_id=10", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadOnlyGuard(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/items", "aud", "30").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/items", "aud", "30").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/commission/resolve", "aud", "30").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/items", "s", "10").Code)
}

func TestRequireAction(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/forecast", "s", "10").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/forecast", "m", "40").Code)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTenantTestRouter(cfg TenantMiddlewareConfig) *gin.Engine {
	r := gin.New()
	r.Use(TenantMiddlewareWithConfig(cfg))
	r.GET("/resource", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant_id": GetTenantID(c)})
	})
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/webhooks/GOOGLE_ADS", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestTenantMiddleware_HeaderExtraction(t *testing.T) {
	tenantID := uuid.New().String()
	r := newTenantTestRouter(DefaultTenantConfig())

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set(TenantHeaderKey, tenantID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), tenantID)
}

func TestTenantMiddleware_MissingTenantRejected(t *testing.T) {
	r := newTenantTestRouter(DefaultTenantConfig())

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Tenant identification required")
}

func TestTenantMiddleware_InvalidFormatRejected(t *testing.T) {
	r := newTenantTestRouter(DefaultTenantConfig())

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	req.Header.Set(TenantHeaderKey, "not-a-uuid")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid tenant ID format")
}

func TestTenantMiddleware_SkipPaths(t *testing.T) {
	r := newTenantTestRouter(DefaultTenantConfig())

	// Health endpoint needs no tenant
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Webhook endpoints need no tenant either
	req = httptest.NewRequest(http.MethodPost, "/webhooks/GOOGLE_ADS", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTenantMiddleware_Optional(t *testing.T) {
	r := gin.New()
	r.Use(OptionalTenantMiddleware())
	r.GET("/resource", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetTenantUUID(t *testing.T) {
	tenantID := uuid.New()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(TenantIDKey, tenantID.String())

	got, err := GetTenantUUID(c)
	require.NoError(t, err)
	assert.Equal(t, tenantID, got)
}

func TestGetTenantUUID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	got, err := GetTenantUUID(c)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, got)
}

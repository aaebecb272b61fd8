package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterRegister(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("integrations", "/integrations")
	r.Register(group)

	assert.Len(t, r.registrars, 1)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	group := NewDomainGroup("integrations", "/integrations")
	group.GET("", func(c *gin.Context) {
		c.String(http.StatusOK, "listed")
	})

	r.Register(group)
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v1/integrations", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "listed", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("integrations", "/integrations")
		assert.Equal(t, "integrations", g.Name())
		assert.Equal(t, "/integrations", g.Prefix())
	})

	t.Run("registers GET route", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("integrations", "/integrations")
		g.GET("/:platform", func(c *gin.Context) {
			c.String(http.StatusOK, c.Param("platform"))
		})

		api := engine.Group("/api/v1")
		g.RegisterRoutes(api)

		req := httptest.NewRequest("GET", "/api/v1/integrations/GOOGLE_ADS", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "GOOGLE_ADS", w.Body.String())
	})

	t.Run("registers POST route", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("integrations", "/integrations")
		g.POST("/:platform/connect", func(c *gin.Context) {
			c.String(http.StatusCreated, "connected")
		})

		api := engine.Group("/api/v1")
		g.RegisterRoutes(api)

		req := httptest.NewRequest("POST", "/api/v1/integrations/FACEBOOK_ADS/connect", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("registers PUT route", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("integrations", "/integrations")
		g.PUT("/:platform/config", func(c *gin.Context) {
			c.String(http.StatusOK, "updated")
		})

		api := engine.Group("/api/v1")
		g.RegisterRoutes(api)

		req := httptest.NewRequest("PUT", "/api/v1/integrations/TIKTOK/config", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("registers PATCH route", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("integrations", "/integrations")
		g.PATCH("/:platform/config", func(c *gin.Context) {
			c.String(http.StatusOK, "patched")
		})

		api := engine.Group("/api/v1")
		g.RegisterRoutes(api)

		req := httptest.NewRequest("PATCH", "/api/v1/integrations/LINKEDIN/config", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("registers DELETE route", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("integrations", "/integrations")
		g.DELETE("/:platform", func(c *gin.Context) {
			c.String(http.StatusNoContent, "")
		})

		api := engine.Group("/api/v1")
		g.RegisterRoutes(api)

		req := httptest.NewRequest("DELETE", "/api/v1/integrations/WHATSAPP", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("applies middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("integrations", "/integrations")

		g.Use(func(c *gin.Context) {
			c.Header("X-Request-ID", "test-id")
			c.Next()
		})

		g.GET("", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		api := engine.Group("/api/v1")
		g.RegisterRoutes(api)

		req := httptest.NewRequest("GET", "/api/v1/integrations", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, "test-id", w.Header().Get("X-Request-ID"))
	})

	t.Run("creates subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("integrations", "/integrations")

		connections := g.Group("connections", "/:platform")
		connections.GET("", func(c *gin.Context) {
			c.String(http.StatusOK, "connection detail")
		})
		connections.GET("/sync-history", func(c *gin.Context) {
			c.String(http.StatusOK, "sync history")
		})

		api := engine.Group("/api/v1")
		g.RegisterRoutes(api)

		req1 := httptest.NewRequest("GET", "/api/v1/integrations/GOOGLE_ADS", nil)
		w1 := httptest.NewRecorder()
		engine.ServeHTTP(w1, req1)
		assert.Equal(t, http.StatusOK, w1.Code)
		assert.Equal(t, "connection detail", w1.Body.String())

		req2 := httptest.NewRequest("GET", "/api/v1/integrations/GOOGLE_ADS/sync-history", nil)
		w2 := httptest.NewRecorder()
		engine.ServeHTTP(w2, req2)
		assert.Equal(t, http.StatusOK, w2.Code)
		assert.Equal(t, "sync history", w2.Body.String())
	})
}

func TestMultipleDomainGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	integrations := NewDomainGroup("integrations", "/integrations")
	integrations.GET("", func(c *gin.Context) {
		c.String(http.StatusOK, "integrations")
	})

	webhooks := NewDomainGroup("webhooks", "/webhooks")
	webhooks.POST("/:platform", func(c *gin.Context) {
		c.String(http.StatusAccepted, "received")
	})

	r.Register(integrations).Register(webhooks)
	r.Setup()

	req1 := httptest.NewRequest("GET", "/api/v1/integrations", nil)
	w1 := httptest.NewRecorder()
	engine.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "integrations", w1.Body.String())

	req2 := httptest.NewRequest("POST", "/api/v1/webhooks/FACEBOOK_ADS", nil)
	w2 := httptest.NewRecorder()
	engine.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusAccepted, w2.Code)
	assert.Equal(t, "received", w2.Body.String())
}

func TestChainedMethodCalls(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	g := NewDomainGroup("integrations", "/integrations")
	g.GET("", func(c *gin.Context) { c.String(http.StatusOK, "list") }).
		POST("/:platform/connect", func(c *gin.Context) { c.String(http.StatusOK, "connect") }).
		POST("/:platform/sync", func(c *gin.Context) { c.String(http.StatusOK, "sync") })

	r.Register(g).Setup()

	tests := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/integrations"},
		{"POST", "/api/v1/integrations/GOOGLE_ADS/connect"},
		{"POST", "/api/v1/integrations/GOOGLE_ADS/sync"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "Route %s %s should work", tt.method, tt.path)
	}
}

package handler

import (
	"github.com/gin-gonic/gin"

	appintegration "github.com/adboard/backend/internal/application/integration"
)

// IntegrationHandler handles platform connection API endpoints
type IntegrationHandler struct {
	BaseHandler
	service *appintegration.ConnectionService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(service *appintegration.ConnectionService) *IntegrationHandler {
	return &IntegrationHandler{service: service}
}

// RegisterRoutes registers integration routes on the given router group
func (h *IntegrationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("/integrations")
	{
		grp.GET("", h.List)
		grp.GET("/:platform", h.Get)
		grp.POST("/:platform/connect", h.Connect)
		grp.POST("/:platform/disconnect", h.Disconnect)
		grp.POST("/:platform/sync", h.TriggerSync)
		grp.PUT("/:platform/config", h.UpdateSyncConfig)
	}
}

// List returns every supported platform with its connection state for the
// tenant, including disconnected placeholders.
func (h *IntegrationHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	platforms, err := h.service.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, platforms)
}

// Get returns the connection detail for a single platform, served from the
// status projection
func (h *IntegrationHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	code, err := getPlatformCode(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	snap, err := h.service.Get(c.Request.Context(), tenantID, code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appintegration.NewConnectionResponseFromSnapshot(snap))
}

// Connect exchanges an authorization code and brings the platform
// connection to CONNECTED
func (h *IntegrationHandler) Connect(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	code, err := getPlatformCode(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req appintegration.ConnectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	conn, err := h.service.Connect(c.Request.Context(), tenantID, code, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, appintegration.NewConnectionResponse(conn))
}

// Disconnect revokes the credential, cancels pending syncs, and removes
// the webhook subscription
func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	code, err := getPlatformCode(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	conn, err := h.service.Disconnect(c.Request.Context(), tenantID, code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appintegration.NewConnectionResponse(conn))
}

// TriggerSync enqueues a manual sync job for the platform connection
func (h *IntegrationHandler) TriggerSync(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	code, err := getPlatformCode(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req appintegration.TriggerSyncRequest
	if c.Request.ContentLength > 0 {
		if !h.bindJSON(c, &req) {
			return
		}
	}

	job, err := h.service.TriggerSync(c.Request.Context(), tenantID, code, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, appintegration.NewSyncJobResponse(job))
}

// UpdateSyncConfig updates the sync schedule for the platform connection
func (h *IntegrationHandler) UpdateSyncConfig(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	code, err := getPlatformCode(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req appintegration.UpdateSyncConfigRequest
	if !h.bindJSON(c, &req) {
		return
	}

	conn, err := h.service.UpdateSyncConfig(c.Request.Context(), tenantID, code, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appintegration.NewConnectionResponse(conn))
}

package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	appintegration "github.com/adboard/backend/internal/application/integration"
)

// Signature header names. Meta platforms sign with X-Hub-Signature-256;
// the remaining platforms use a plain X-Signature header.
const (
	metaSignatureHeader    = "X-Hub-Signature-256"
	defaultSignatureHeader = "X-Signature"
)

// WebhookHandler receives inbound platform notifications. These routes are
// unauthenticated; the per-platform signature check is the authentication.
type WebhookHandler struct {
	BaseHandler
	service *appintegration.WebhookService
	ingest  []gin.HandlerFunc
}

// NewWebhookHandler creates a new WebhookHandler. Optional middleware, such
// as a delivery rate limiter, runs before Receive.
func NewWebhookHandler(service *appintegration.WebhookService, ingest ...gin.HandlerFunc) *WebhookHandler {
	return &WebhookHandler{service: service, ingest: ingest}
}

// RegisterRoutes registers webhook routes on the given router group
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	handlers := append(append([]gin.HandlerFunc{}, h.ingest...), h.Receive)
	rg.POST("/webhooks/:platform", handlers...)
}

// Receive verifies and dispatches one webhook delivery. Duplicate
// deliveries are acknowledged with 200 so the platform stops retrying.
func (h *WebhookHandler) Receive(c *gin.Context) {
	code, err := getPlatformCode(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	event, err := h.service.HandleDelivery(c.Request.Context(), code, payload, signatureFrom(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if event == nil {
		// Already processed delivery
		h.Success(c, gin.H{"status": "duplicate"})
		return
	}
	h.Success(c, gin.H{"status": "accepted", "event_id": event.EventID})
}

// signatureFrom picks the signature header for the delivery
func signatureFrom(c *gin.Context) string {
	if sig := c.GetHeader(metaSignatureHeader); sig != "" {
		return sig
	}
	return c.GetHeader(defaultSignatureHeader)
}

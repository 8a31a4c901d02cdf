package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bank-webhook-gateway/internal/model"
)

// SignatureHeader carries the finbank delivery signature.
const SignatureHeader = "X-Finbank-Signature"

// HandleFinbankWebhook processes one finbank event delivery.
//
// The body is read raw before any parsing: the signature covers the exact
// bytes sent, and any re-serialization would invalidate it.
func (h *Handler) HandleFinbankWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	deliveryID := uuid.NewString()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.l.Errorf(ctx, "delivery %s: failed to read body: %v", deliveryID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	sub, ok := h.subs.Current()
	if !ok {
		h.l.Warnf(ctx, "delivery %s: no active subscription, dropping", deliveryID)
		c.JSON(http.StatusNotFound, gin.H{"error": "no active subscription"})
		return
	}

	// Verify signature. When no secret exists the delivery is accepted but
	// the warning fires on every delivery, not just once: the forgeability
	// risk is ongoing.
	if sub.HasSecret() {
		if err := h.verifier.Verify(sub.Secret, c.GetHeader(SignatureHeader), body); err != nil {
			h.l.Warnf(ctx, "delivery %s: signature rejected: %v", deliveryID, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
	} else {
		h.l.Warnf(ctx, "delivery %s: signature validation disabled — no secret configured, webhook is forgeable", deliveryID)
	}

	// Check rate limit
	if err := h.limiter.Allow("finbank"); err != nil {
		h.l.Warnf(ctx, "delivery %s: %v", deliveryID, err)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	var payload model.EventPayload
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		h.l.Warnf(ctx, "delivery %s: empty or unparseable payload", deliveryID)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	for _, name := range h.resolveEventTypes(payload.ResourceType) {
		result := NormalizeTransaction(payload, h.operationFilter)
		if result.Ignored() {
			h.l.Infof(ctx, "delivery %s: event %s ignored: %s", deliveryID, name, result.IgnoredReason)
			continue
		}

		// Process in background; finbank must not wait on downstream.
		go h.consumeAsync(NormalizedEvent{Name: name, DeliveryID: deliveryID, Fields: result.Fields})
	}

	// Acknowledge immediately, including authenticated-but-ignored events.
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// resolveEventTypes maps the payload resource type to the logical event
// names to notify. Unknown or absent types fall back to the configured
// default so unannounced provider additions keep flowing; an empty default
// makes them ignored instead.
func (h *Handler) resolveEventTypes(resourceType string) []string {
	switch strings.ToLower(resourceType) {
	case string(model.EventTransaction):
		return []string{string(model.EventTransaction)}
	}
	if h.defaultEventType != "" {
		return []string{h.defaultEventType}
	}
	return nil
}

func (h *Handler) consumeAsync(event NormalizedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	h.consumer.Consume(ctx, event)
}

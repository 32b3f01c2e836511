package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentwebhook "github.com/lumamail/backend/internal/payment/webhook"
)

// Gateway payloads are small JSON envelopes; anything past this is abuse.
const maxWebhookBodyBytes = 1 << 20

// HandlePaymentWebhook authenticates the delivery with the body signature
// before any parsing; nothing is mutated until the signature checks out.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.webhookVerifier.Verify(payload, c.GetHeader(paymentwebhook.SignatureHeader)); err != nil {
		AbortWithError(c, err)
		return
	}

	event, err := paymentwebhook.ParseEvent(payload)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.paymentSvc.Reconcile(c.Request.Context(), event, payload); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentEvent(event.Type)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package httpserver

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"printarcade/internal/domain"
	"printarcade/internal/fulfillment"
	"printarcade/internal/metrics"
	"printarcade/internal/payment"
	"printarcade/internal/service/fulfillmentsync"
)

const maxWebhookBody = 1 << 20

// paymentWebhook acknowledges every signed delivery so the gateway stops
// retrying; the outcome is reported in the body and in metrics. The
// fulfillment webhook follows the same rule once its token checks out.
func (h *handlers) paymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: domain.KindValidation, Detail: "unreadable body"})
		return
	}

	res, err := h.deps.Settlement.HandlePaymentEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		metrics.RecordWebhook(payment.ProviderName, "rejected")
		if domain.IsKind(err, domain.KindAuthentication) {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: domain.KindAuthentication, Detail: "webhook signature verification failed"})
			return
		}
		h.writeError(c, err)
		return
	}
	metrics.RecordWebhook(payment.ProviderName, string(res.Outcome))
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": res.Outcome, "orderId": res.OrderID})
}

func (h *handlers) fulfillmentWebhook(c *gin.Context) {
	if err := h.deps.FulfillmentSync.Authenticate(c.Query("token")); err != nil {
		metrics.RecordWebhook(fulfillment.ProviderName, "rejected")
		h.writeError(c, err)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: domain.KindValidation, Detail: "unreadable body"})
		return
	}
	ev, err := fulfillment.ParseEvent(payload)
	if err != nil {
		metrics.RecordWebhook(fulfillment.ProviderName, "malformed")
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: domain.KindValidation, Detail: "malformed webhook payload"})
		return
	}

	res, err := h.deps.FulfillmentSync.HandleEvent(c.Request.Context(), ev)
	if err != nil {
		h.logger.Printf("fulfillment webhook: type=%s fulfillment_id=%s outcome=%s error=%v", ev.Type, ev.OrderID, fulfillmentsync.OutcomeError, err)
		res.Outcome = fulfillmentsync.OutcomeError
	}
	metrics.RecordWebhook(fulfillment.ProviderName, string(res.Outcome))
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": res.Outcome})
}

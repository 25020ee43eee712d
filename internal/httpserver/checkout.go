package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"printarcade/internal/service/checkout"
)

// createCheckoutSession binds loosely; field rules are enforced by the
// checkout service so every transport reports the same validation errors.
func (h *handlers) createCheckoutSession(c *gin.Context) {
	var in checkout.CreateSessionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeBindError(c, err)
		return
	}
	sess, err := h.deps.Checkout.CreateSession(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *handlers) getCheckoutSession(c *gin.Context) {
	st, err := h.deps.Checkout.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

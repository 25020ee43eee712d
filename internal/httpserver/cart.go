package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"printarcade/internal/domain"
)

type cartSyncRequest struct {
	SessionToken   string                          `json:"sessionToken" binding:"required,sessiontoken"`
	Items          []domain.CartItem               `json:"items" binding:"max=100"`
	DiscountGrants map[string]domain.DiscountGrant `json:"discountGrants"`
}

func (h *handlers) syncCart(c *gin.Context) {
	var req cartSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}
	cart, err := h.deps.SessionCart.Sync(c.Request.Context(), req.SessionToken, domain.SessionCart{
		Items:          req.Items,
		DiscountGrants: req.DiscountGrants,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.deps.SessionCart.Load(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.deps.SessionCart.Clear(c.Request.Context(), c.Param("token")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

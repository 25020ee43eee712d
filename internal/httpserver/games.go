package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"printarcade/internal/metrics"
	"printarcade/internal/service/discount"
)

type gameCompleteRequest struct {
	SessionToken string   `json:"sessionToken" binding:"required,sessiontoken"`
	GameType     string   `json:"gameType" binding:"required,max=64"`
	ProductID    string   `json:"productId" binding:"required,max=64"`
	Score        *float64 `json:"score" binding:"required,gte=0"`
}

func (h *handlers) completeGame(c *gin.Context) {
	var req gameCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}
	earned, err := h.deps.Discount.RecordCompletion(c.Request.Context(), discount.CompletionInput{
		SessionToken: req.SessionToken,
		GameType:     req.GameType,
		ProductID:    req.ProductID,
		Score:        *req.Score,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	metrics.RecordDiscount(req.GameType, earned)
	c.JSON(http.StatusOK, gin.H{"discountEarned": earned})
}

func (h *handlers) gameStats(c *gin.Context) {
	totals, err := h.deps.Discount.SessionTotals(c.Request.Context(), c.Param("sessionToken"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sketch_club/internal/middleware"
	"sketch_club/internal/service"
)

type RoundHandler struct {
	roundService *service.RoundService
}

func NewRoundHandler(roundService *service.RoundService) *RoundHandler {
	return &RoundHandler{roundService: roundService}
}

// SubmitGuess 是受信任的猜題判定端點；回合已結束時回傳 correct=false
func (h *RoundHandler) SubmitGuess(c *gin.Context) {
	var input struct {
		Guess    string `json:"guess" binding:"required"`
		PlayerID string `json:"player_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.roundService.SubmitGuess(c.Request.Context(), c.Param("id"), input.Guess, middleware.UserID(c), input.PlayerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Timeout 接收畫家客戶端的倒數結束訊號
func (h *RoundHandler) Timeout(c *gin.Context) {
	if err := h.roundService.HandleTimeout(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

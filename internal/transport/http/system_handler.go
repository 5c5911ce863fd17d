package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"peace-cake-service/internal/app"
	"peace-cake-service/internal/config"
)

type systemHandler struct {
	game  *app.GameService
	rules config.Game
}

func (h *systemHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"active_sessions": h.game.ActiveSessions(),
	})
}

func (h *systemHandler) config(c *gin.Context) {
	c.JSON(http.StatusOK, h.rules)
}

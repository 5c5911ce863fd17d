package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"peace-cake-service/internal/app"
	"peace-cake-service/internal/domain"
)

type sessionHandler struct {
	game *app.GameService
	ws   *WSHandler
}

type teamRequest struct {
	Name string `json:"name"`
}

type createSessionRequest struct {
	QuizID       string        `json:"quiz_id"`
	Teams        []teamRequest `json:"teams"`
	TimerSeconds int           `json:"timer_seconds"`
}

func (h *sessionHandler) create(c *gin.Context) {
	var req createSessionRequest
	if !bind(c, &req) {
		return
	}
	names := make([]string, 0, len(req.Teams))
	for _, t := range req.Teams {
		names = append(names, t.Name)
	}
	snap, err := h.game.CreateSession(c.Request.Context(), req.QuizID, names, req.TimerSeconds)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *sessionHandler) get(c *gin.Context) {
	snap, err := h.game.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *sessionHandler) start(c *gin.Context) {
	snap, err := h.game.StartQuestion(c.Request.Context(), c.Param("id"), c.Param("questionID"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *sessionHandler) resolve(c *gin.Context) {
	var res domain.Resolution
	if !bind(c, &res) {
		return
	}
	snap, err := h.game.ResolveQuestion(c.Request.Context(), c.Param("id"), c.Param("questionID"), res)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *sessionHandler) setTurn(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abort(c, domain.ErrTeamIndex)
		return
	}
	snap, err := h.game.SetActiveTurn(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *sessionHandler) stream(c *gin.Context) {
	h.ws.ServeSession(c.Writer, c.Request, c.Param("id"))
}

package http

import (
	"errors"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"peace-cake-service/internal/app"
	"peace-cake-service/internal/config"
	"peace-cake-service/internal/domain"
)

// Deps are the services the router exposes.
type Deps struct {
	Game    *app.GameService
	Catalog *app.CatalogService
	Rules   config.Game

	// AllowOrigins feeds the CORS middleware; "*" or empty allows any origin.
	AllowOrigins []string
}

// NewRouter builds the gin engine serving the REST API under /api/v1, the
// session WebSocket, metrics and pprof.
func NewRouter(d Deps) *gin.Engine {
	e := gin.New()
	e.Use(gin.Logger(), gin.Recovery(), cors.New(corsConfig(d.AllowOrigins)))
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	sessions := &sessionHandler{game: d.Game, ws: NewWSHandler(d.Game)}
	catalog := &catalogHandler{catalog: d.Catalog}
	system := &systemHandler{game: d.Game, rules: d.Rules}

	v1 := e.Group("/api/v1")

	v1.GET("/system/health", system.health)
	v1.GET("/system/config", system.config)

	v1.POST("/sessions", sessions.create)
	v1.GET("/sessions/:id", sessions.get)
	v1.POST("/sessions/:id/question/:questionID/start", sessions.start)
	v1.POST("/sessions/:id/question/:questionID/resolve", sessions.resolve)
	v1.POST("/sessions/:id/turn/:index", sessions.setTurn)
	v1.GET("/sessions/:id/ws", sessions.stream)

	v1.GET("/profiles", catalog.listProfiles)
	v1.POST("/profiles", catalog.createProfile)
	v1.GET("/profiles/:id", catalog.getProfile)
	v1.PATCH("/profiles/:id", catalog.renameProfile)
	v1.DELETE("/profiles/:id", catalog.deleteProfile)
	v1.GET("/profiles/:id/quizzes", catalog.listQuizzes)
	v1.POST("/profiles/:id/quizzes", catalog.createQuiz)

	v1.GET("/quizzes/:id", catalog.getQuiz)
	v1.PUT("/quizzes/:id", catalog.updateQuiz)
	v1.DELETE("/quizzes/:id", catalog.deleteQuiz)
	v1.POST("/quizzes/:id/duplicate", catalog.duplicateQuiz)
	v1.GET("/quizzes/:id/questions", catalog.listQuestions)
	v1.POST("/quizzes/:id/questions", catalog.createQuestion)

	v1.GET("/questions/:id", catalog.getQuestion)
	v1.PUT("/questions/:id", catalog.updateQuestion)
	v1.DELETE("/questions/:id", catalog.deleteQuestion)
	v1.PATCH("/questions/:id/order", catalog.reorderQuestion)

	return e
}

type errorBody struct {
	Error string `json:"error"`
}

// statusOf maps a domain error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorBody{Error: msg})
}

// bind decodes the JSON body into dst, answering 400 on failure.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abort(c, domain.Invalid("malformed request body: %v", err))
		return false
	}
	return true
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cfg.MaxAge = 12 * time.Hour
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

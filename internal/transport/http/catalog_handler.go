package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"peace-cake-service/internal/app"
	"peace-cake-service/internal/domain"
)

type catalogHandler struct {
	catalog *app.CatalogService
}

type profileRequest struct {
	Name string `json:"name"`
}

type reorderRequest struct {
	Points     *int               `json:"points"`
	Difficulty *domain.Difficulty `json:"difficulty"`
}

// respond writes v with status, or the error mapped to its status.
func respond(c *gin.Context, status int, v any, err error) {
	if err != nil {
		abort(c, err)
		return
	}
	if v == nil {
		c.Status(status)
		return
	}
	c.JSON(status, v)
}

func (h *catalogHandler) listProfiles(c *gin.Context) {
	profiles, err := h.catalog.ListProfiles(c.Request.Context())
	respond(c, http.StatusOK, profiles, err)
}

func (h *catalogHandler) createProfile(c *gin.Context) {
	var req profileRequest
	if !bind(c, &req) {
		return
	}
	profile, err := h.catalog.CreateProfile(c.Request.Context(), req.Name)
	respond(c, http.StatusCreated, profile, err)
}

func (h *catalogHandler) getProfile(c *gin.Context) {
	detail, err := h.catalog.GetProfile(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, detail, err)
}

func (h *catalogHandler) renameProfile(c *gin.Context) {
	var req profileRequest
	if !bind(c, &req) {
		return
	}
	profile, err := h.catalog.RenameProfile(c.Request.Context(), c.Param("id"), req.Name)
	respond(c, http.StatusOK, profile, err)
}

func (h *catalogHandler) deleteProfile(c *gin.Context) {
	err := h.catalog.DeleteProfile(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusNoContent, nil, err)
}

func (h *catalogHandler) listQuizzes(c *gin.Context) {
	quizzes, err := h.catalog.ListQuizzes(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, quizzes, err)
}

func (h *catalogHandler) createQuiz(c *gin.Context) {
	var in domain.QuizInput
	if !bind(c, &in) {
		return
	}
	quiz, err := h.catalog.CreateQuiz(c.Request.Context(), c.Param("id"), in)
	respond(c, http.StatusCreated, quiz, err)
}

func (h *catalogHandler) getQuiz(c *gin.Context) {
	quiz, err := h.catalog.GetQuiz(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, quiz, err)
}

func (h *catalogHandler) updateQuiz(c *gin.Context) {
	var patch domain.QuizPatch
	if !bind(c, &patch) {
		return
	}
	quiz, err := h.catalog.UpdateQuiz(c.Request.Context(), c.Param("id"), patch)
	respond(c, http.StatusOK, quiz, err)
}

func (h *catalogHandler) deleteQuiz(c *gin.Context) {
	err := h.catalog.DeleteQuiz(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusNoContent, nil, err)
}

func (h *catalogHandler) duplicateQuiz(c *gin.Context) {
	quiz, err := h.catalog.DuplicateQuiz(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusCreated, quiz, err)
}

func (h *catalogHandler) listQuestions(c *gin.Context) {
	questions, err := h.catalog.ListQuestions(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, questions, err)
}

func (h *catalogHandler) createQuestion(c *gin.Context) {
	var in domain.QuestionInput
	if !bind(c, &in) {
		return
	}
	question, err := h.catalog.CreateQuestion(c.Request.Context(), c.Param("id"), in)
	respond(c, http.StatusCreated, question, err)
}

func (h *catalogHandler) getQuestion(c *gin.Context) {
	question, err := h.catalog.GetQuestion(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusOK, question, err)
}

func (h *catalogHandler) updateQuestion(c *gin.Context) {
	var patch domain.QuestionPatch
	if !bind(c, &patch) {
		return
	}
	question, err := h.catalog.UpdateQuestion(c.Request.Context(), c.Param("id"), patch)
	respond(c, http.StatusOK, question, err)
}

func (h *catalogHandler) deleteQuestion(c *gin.Context) {
	err := h.catalog.DeleteQuestion(c.Request.Context(), c.Param("id"))
	respond(c, http.StatusNoContent, nil, err)
}

func (h *catalogHandler) reorderQuestion(c *gin.Context) {
	var req reorderRequest
	if !bind(c, &req) {
		return
	}
	question, err := h.catalog.ReorderQuestion(c.Request.Context(), c.Param("id"), req.Points, req.Difficulty)
	respond(c, http.StatusOK, question, err)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/quizgrade/internal/model"
	"github.com/stemsi/quizgrade/internal/response"
	"github.com/stemsi/quizgrade/internal/service"
	"github.com/stemsi/quizgrade/internal/validator"
)

// QuizHandler handles question set management endpoints.
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// ReplaceQuestions godoc
// PUT /api/v1/quizzes/:id/questions
// Replaces the quiz's question set, creating the quiz if it does not exist.
func (h *QuizHandler) ReplaceQuestions(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	quiz, err := h.quizService.ReplaceQuestions(c.Request.Context(), quizID, req)
	if err != nil {
		var authoring *service.AuthoringError
		if errors.As(err, &authoring) {
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrInvalidMetadata, authoring.Fields)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, quiz)
}

// GetQuestions godoc
// GET /api/v1/quizzes/:id/questions
// Returns the quiz and its question set, answer keys included.
func (h *QuizHandler) GetQuestions(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	quiz, err := h.quizService.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, quiz)
}

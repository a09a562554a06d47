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

// AttemptHandler handles attempt submission and lookup.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// SubmitAttempt godoc
// POST /api/v1/quizzes/:id/attempts[?mode=sync]
// Records an attempt. In sync mode the graded attempt is returned (201);
// otherwise it is queued and returned PENDING (202).
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sync := c.Query("mode") == "sync"
	attempt, err := h.attemptService.Submit(c.Request.Context(), quizID, req, sync)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuizNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	status := http.StatusAccepted
	if sync {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"attempt": attempt})
}

// GetAttempt godoc
// GET /api/v1/attempts/:id
// Returns an attempt's status, totals and per-question details.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

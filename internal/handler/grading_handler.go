package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizgrade/internal/model"
	"github.com/stemsi/quizgrade/internal/response"
	"github.com/stemsi/quizgrade/internal/service"
	"github.com/stemsi/quizgrade/internal/validator"
)

// GradingHandler handles stateless grading endpoints.
type GradingHandler struct {
	gradingService *service.GradingService
}

// NewGradingHandler creates a new GradingHandler.
func NewGradingHandler(gradingService *service.GradingService) *GradingHandler {
	return &GradingHandler{gradingService: gradingService}
}

// Grade godoc
// POST /api/v1/grade
// Grades one question against one response. Nothing is stored.
func (h *GradingHandler) Grade(c *gin.Context) {
	var req model.GradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	detail := h.gradingService.Grade(*req.Question, req.Response)
	response.Success(c, http.StatusOK, gin.H{"detail": detail})
}

// GradeBatch godoc
// POST /api/v1/grade/batch
// Grades a question set against responses keyed by question id.
func (h *GradingHandler) GradeBatch(c *gin.Context) {
	var req model.GradeBatchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result := h.gradingService.GradeBatch(req.Questions, req.Responses)
	response.Success(c, http.StatusOK, result)
}

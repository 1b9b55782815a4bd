package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/catherinevee/mdcagent/internal/models"
	apperrors "github.com/catherinevee/mdcagent/internal/shared/errors"
	"github.com/catherinevee/mdcagent/internal/validation"
)

const contentTypeJSON = "application/json; charset=utf-8"

// errorResponse is the body of every failed request.
type errorResponse struct {
	ErrorCode apperrors.Kind         `json:"error_code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details"`
}

// getParams binds the single recommendation route.
type getParams struct {
	ID             string `uri:"id" form:"-" binding:"required,max=256"`
	SubscriptionID string `form:"subscription_id" binding:"omitempty,subscription_id"`
}

// listRecommendations handles GET /v1/recommendations. The query is mapped
// without binding validation so enumeration errors are reported before
// range errors.
func (s *Server) listRecommendations(c *gin.Context) {
	q := models.NewListQuery()
	if err := binding.MapFormWithTag(&q, c.Request.URL.Query(), "form"); err != nil {
		s.renderError(c, apperrors.NewValidationError("", "Invalid query parameters").
			WithDetails("reason", err.Error()))
		return
	}

	result, err := s.service.List(c.Request.Context(), q)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.Data(http.StatusOK, contentTypeJSON, result.Body)
}

// getRecommendation handles GET /v1/recommendations/:id.
func (s *Server) getRecommendation(c *gin.Context) {
	var params getParams
	if err := c.ShouldBindUri(&params); err != nil {
		s.renderError(c, validation.FromValidationError(err))
		return
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		s.renderError(c, validation.FromValidationError(err))
		return
	}

	result, err := s.service.Get(c.Request.Context(), params.SubscriptionID, params.ID)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.Data(http.StatusOK, contentTypeJSON, result.Body)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "mdcagent",
	})
}

func (s *Server) notFound(c *gin.Context) {
	s.renderError(c, apperrors.NewError(apperrors.KindResourceNotFound, "Route not found").
		WithDetails("path", c.Request.URL.Path).
		Build())
}

// renderError writes the classified error body and counts it.
func (s *Server) renderError(c *gin.Context, err error) {
	appErr := apperrors.Classifier{Verbose: s.verbose.Load()}.Classify(err)
	if appErr == nil {
		appErr = apperrors.NewInternalError(nil)
	}

	status := appErr.Status
	if status == 0 {
		status = appErr.Kind.DefaultStatus()
	}
	if retryAfter, ok := appErr.Details["retry_after"].(string); ok && retryAfter != "" {
		c.Header("Retry-After", retryAfter)
	}

	details := appErr.Details
	if details == nil {
		details = map[string]interface{}{}
	}

	s.metrics.IncError(string(appErr.Kind))
	c.AbortWithStatusJSON(status, errorResponse{
		ErrorCode: appErr.Kind,
		Message:   appErr.Message,
		Details:   details,
	})
}

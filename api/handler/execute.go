package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skylarkhq/gleaner/engine"
	"github.com/skylarkhq/gleaner/models"
)

// Execute returns the handler for POST /api/v1/execute.
//
// Flow:
//  1. Parse & validate request (binding + script-xor-config contract).
//  2. Engine.Execute runs the whole pipeline and always yields an
//     envelope.
//  3. The envelope's error category picks the HTTP status; diagnostic
//     categories stay 200 because the request itself was served.
func Execute(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExecuteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExecuteResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Category: models.CategoryInternal,
					Message:  err.Error(),
				},
			})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, models.ExecuteResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Category: models.CategoryInternal,
					Message:  err.Error(),
				},
			})
			return
		}

		resp := eng.Execute(c.Request.Context(), &req)
		c.JSON(statusFor(resp), resp)
	}
}

// statusFor maps the response's error category to an HTTP status.
// Zero-item outcomes with a diagnostic are successful requests that
// found nothing, not transport failures, so they stay 200.
func statusFor(resp *models.ExecuteResponse) int {
	if resp.Error == nil {
		return http.StatusOK
	}
	switch resp.Error.Category {
	case models.CategoryTimeout:
		return http.StatusGatewayTimeout // 504
	case models.CategoryNetwork, models.CategoryHTTP:
		return http.StatusBadGateway // 502
	case models.CategorySyntax, models.CategorySelector:
		return http.StatusBadRequest // 400
	case models.CategoryScript:
		return http.StatusUnprocessableEntity // 422
	case models.CategoryInternal:
		return http.StatusInternalServerError // 500
	default:
		// Diagnostic categories (antibot, empty_page, ...).
		return http.StatusOK
	}
}

package api

import (
	"net/http"

	"ai-video-generator/apperrors"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint returns
type Response struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	StatusCode int    `json:"status_code"`
}

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data, StatusCode: http.StatusOK})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: message, StatusCode: status})
}

func badRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, message)
}

// statusFor maps error types to HTTP status codes.
func statusFor(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.TypeUnavailable, apperrors.TypeNotFound:
		return http.StatusNotFound
	case apperrors.TypeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondErr(c *gin.Context, err error) {
	respondError(c, statusFor(err), err.Error())
}

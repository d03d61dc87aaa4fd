package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/super-videotheque/backend/pkg/apperror"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// TooManyRequests sends 429.
func TooManyRequests(c *gin.Context, err string) {
	c.JSON(http.StatusTooManyRequests, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}

// Error maps an apperror kind to its status. Operational errors are logged at warn and
// echo their message; anything else is logged in full and reported opaquely.
func Error(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperror.KindOf(err)
	if !apperror.IsOperational(err) {
		logger.Error("unhandled error", zap.Error(err), zap.String("kind", string(kind)), zap.String("path", c.Request.URL.Path))
		c.JSON(http.StatusInternalServerError, Body{Success: false, Error: "internal server error"})
		return
	}
	logger.Warn("operational error", zap.Error(err), zap.String("kind", string(kind)), zap.String("path", c.Request.URL.Path))
	c.JSON(apperror.HTTPStatus(kind), Body{Success: false, Error: apperror.MessageOf(err), Code: string(kind)})
}

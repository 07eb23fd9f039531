package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hashpay/pkg/apperr"
	"hashpay/pkg/middleware"
)

type Error struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

func newErrorResponse(c *gin.Context, statusCode int, kind apperr.Kind, message string) {
	entry := logrus.WithFields(logrus.Fields{
		"request_id": middleware.GetRequestID(c),
		"status":     statusCode,
		"kind":       kind.String(),
	})
	if statusCode >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Warn(message)
	}
	c.AbortWithStatusJSON(statusCode, Error{Message: message, Kind: kind.String()})
}

// errorResponse maps an application error to its HTTP status.
func errorResponse(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	newErrorResponse(c, statusFor(kind), kind, apperr.Message(err))
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotConnected:
		return http.StatusPreconditionRequired
	case apperr.KindPermission:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindRPC:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, message string) {
	newErrorResponse(c, http.StatusBadRequest, apperr.KindValidation, message)
}

func wrapOkJSON(c *gin.Context, response map[string]interface{}) {
	c.JSON(http.StatusOK, response)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

package handlers

import (
	"errors"
	"net/http"

	"awards-voting-backend/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusByKind = map[service.ErrorKind]int{
	service.KindNotFound:          http.StatusNotFound,
	service.KindStatePrecondition: http.StatusConflict,
	service.KindValidation:        http.StatusBadRequest,
	service.KindEligibility:       http.StatusForbidden,
	service.KindConflict:          http.StatusConflict,
	service.KindNotAvailable:      http.StatusForbidden,
}

// respondError writes a service failure. Unclassified errors are logged and
// hidden behind a 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status, ok := statusByKind[svcErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	body := gin.H{"error": svcErr.Message, "kind": svcErr.Kind}
	if len(svcErr.Details) > 0 {
		body["details"] = svcErr.Details
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

package api

import (
	"github.com/gin-gonic/gin"

	errx "github.com/doctor-appointment-agent/server/internal/core/error"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
)

type ErrorBody struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := errx.StatusOf(err)
	kind := errx.KindOf(err)
	if kind == errx.KindInternal {
		logx.Error().Err(err).Str("path", c.FullPath()).Str("request_id", c.GetString(requestIDKey)).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, ErrorBody{Code: string(kind), Message: errx.PublicMessage(err)})
}

func badRequest(c *gin.Context, message string) {
	writeError(c, errx.Validation("%s", message))
}

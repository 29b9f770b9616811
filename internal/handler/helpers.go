package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xxxsen/papershelf/internal/middleware"
	"github.com/xxxsen/papershelf/internal/pkg/errcode"
	appErr "github.com/xxxsen/papershelf/internal/pkg/errors"
	"github.com/xxxsen/papershelf/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, code, message := classifyError(err)
	if ce := logutil.GetLogger(c.Request.Context()).Check(errorLogLevel(status), "request failed"); ce != nil {
		ce.Write(
			zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	response.Error(c, status, code, message)
}

// errorLogLevel keeps Error for server-side failures; client mistakes are Warn.
func errorLogLevel(status int) zapcore.Level {
	if status >= http.StatusInternalServerError {
		return zapcore.ErrorLevel
	}
	return zapcore.WarnLevel
}

func classifyError(err error) (int, int, string) {
	switch {
	case errors.Is(err, appErr.ErrSectionNotFound):
		return http.StatusNotFound, errcode.ErrSectionNotFound, "section not found"
	case errors.Is(err, appErr.ErrDocumentNotFound):
		return http.StatusNotFound, errcode.ErrDocumentNotFound, "paper not found"
	case appErr.IsNotFound(err):
		return http.StatusNotFound, errcode.ErrNotFound, "not found"
	case appErr.IsInvalid(err):
		return http.StatusBadRequest, errcode.ErrInvalid, err.Error()
	case appErr.IsConflict(err):
		return http.StatusConflict, errcode.ErrConflict, "conflict"
	case errors.Is(err, appErr.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, errcode.ErrStorageUnavailable, "storage unavailable"
	case errors.Is(err, appErr.ErrMalformedRecord):
		return http.StatusInternalServerError, errcode.ErrMalformedRecord, "malformed record"
	default:
		return http.StatusInternalServerError, errcode.ErrInternal, "internal error"
	}
}

func invalidRequest(c *gin.Context, message string) {
	response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, message)
}

package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/legalvault/internal/pkg/errcode"
	appErr "github.com/xxxsen/legalvault/internal/pkg/errors"
	"github.com/xxxsen/legalvault/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, appErr.ErrInvalidQuery):
		response.Error(c, errcode.ErrInvalidQuery, err.Error())
	case errors.Is(err, appErr.ErrCacheUnavailable):
		response.Error(c, errcode.ErrCacheUnavailable, "similarity index is not ready")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	default:
		requestID, _ := c.Get("request_id")
		logutil.GetLogger(c.Request.Context()).Error("request failed",
			zap.Any("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

func parseTopK(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, appErr.ErrInvalid
	}
	return v, nil
}

package handlers

import (
	"net/http"

	"github.com/kataras/iris/v12"
	"github.com/relayhq/relay-server/pkg/errors"
	"github.com/relayhq/relay-server/pkg/logger"
)

func JSONError(ctx iris.Context, status int, code, message string) {
	ctx.StatusCode(status)
	ctx.JSON(iris.Map{"error": code, "message": message})
}

// WriteAppError maps an application error onto the HTTP surface. Storage and
// unknown failures are logged and collapsed into a generic 500.
func WriteAppError(ctx iris.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		logger.Error("unhandled error", "error", err)
		JSONError(ctx, http.StatusInternalServerError, errors.ErrCodeInternalError, "something went wrong")
		return
	}

	switch appErr.Code {
	case errors.ErrCodeNotAuthenticated:
		JSONError(ctx, http.StatusUnauthorized, appErr.Code, appErr.Message)
	case errors.ErrCodeNotFound:
		JSONError(ctx, http.StatusNotFound, appErr.Code, appErr.Message)
	case errors.ErrCodeSelfResponseForbidden, errors.ErrCodeForbidden:
		JSONError(ctx, http.StatusForbidden, appErr.Code, appErr.Message)
	case errors.ErrCodeAlreadyResponded:
		JSONError(ctx, http.StatusConflict, appErr.Code, appErr.Message)
	case errors.ErrCodeRequestClosed:
		JSONError(ctx, http.StatusGone, appErr.Code, appErr.Message)
	case errors.ErrCodeValidationFailed:
		JSONError(ctx, http.StatusBadRequest, appErr.Code, appErr.Message)
	case errors.ErrCodeRateLimitExceeded:
		JSONError(ctx, http.StatusTooManyRequests, appErr.Code, appErr.Message)
	default:
		logger.Error("storage or internal failure", "code", appErr.Code, "error", appErr)
		JSONError(ctx, http.StatusInternalServerError, appErr.Code, "something went wrong")
	}
}

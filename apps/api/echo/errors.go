package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/user"
)

const internalErrorMessage = "internal server error"

type (
	dataResponse struct {
		Data interface{} `json:"data"`
	}

	errorBody struct {
		Code    core.ErrorCode    `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	}

	errorResponse struct {
		Error errorBody `json:"error"`
	}
)

// httpErrorCode classifies errors raised by echo itself (routing, binding, limiter).
func httpErrorCode(status int) core.ErrorCode {
	switch {
	case status == http.StatusUnauthorized:
		return core.CodeUnauthorized
	case status == http.StatusForbidden:
		return core.CodeForbidden
	case status == http.StatusNotFound, status == http.StatusMethodNotAllowed:
		return core.CodeNotFound
	case status == http.StatusConflict:
		return core.CodeConflict
	case status == http.StatusTooManyRequests:
		return core.CodeRateLimited
	case status >= 400 && status < 500:
		return core.CodeValidation
	}
	return core.CodeServiceUnavailable
}

func validationMessage(err error) string {
	if vErr, ok := errors.Cause(err).(*core.ValidationError); ok {
		if msg := vErr.Error(); msg != "" {
			return msg
		}
	}
	return "invalid input"
}

// newAppHTTPErrorHandler returns an echo.HTTPErrorHandler writing the error envelope.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var status int
		var body errorBody

		if code := core.ErrorCodeOf(err); code != "" {
			status = code.Status()
			body.Code = code
			body.Details = core.ErrorDetails(err)
			if code == core.CodeValidation {
				body.Message = validationMessage(err)
			} else {
				body.Message = errors.Cause(err).Error()
			}
		} else if herr, ok := errors.Cause(err).(*echo.HTTPError); ok {
			if inner, ok := herr.Internal.(*echo.HTTPError); ok {
				herr = inner
			}
			status = herr.Code
			body.Code = httpErrorCode(status)
			if msg, ok := herr.Message.(string); ok {
				body.Message = msg
			} else {
				body.Message = http.StatusText(status)
			}
		} else { // any other error is a server error
			status = http.StatusInternalServerError
			body.Code = core.CodeServiceUnavailable
			body.Message = internalErrorMessage

			args := []interface{}{errors.Wrap(err, internalErrorMessage)}
			if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
				args = append(args, usr)
			}
			args = append(args, map[string]interface{}{
				"method": ctx.Request().Method,
				"path":   ctx.Path(),
			})
			logger.Error(internalErrorMessage, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if status >= http.StatusInternalServerError && ctx.Echo().Debug {
			body.Message = err.Error()
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(status)
		} else {
			err = ctx.JSON(status, errorResponse{Error: body})
		}
		if err != nil {
			logger.Error("writing error response", err)
		}
	}
}

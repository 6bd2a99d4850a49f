package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/auth"
	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/enroll"
	"github.com/darasa-lms/darasa/core/submission"
	"github.com/darasa-lms/darasa/core/user"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHTTPForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHTTPNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
)

func isNotFoundErr(err error) bool {
	switch err {
	case user.ErrNotFound,
		course.ErrNotFound,
		course.ErrLessonNotFound,
		course.ErrAssignmentNotFound,
		enroll.ErrNotFound,
		enroll.ErrCourseNotFound,
		submission.ErrNotFound:
		return true
	}
	return false
}

func isBadRequestErr(err error) bool {
	switch err {
	case user.ErrEmailExists,
		user.ErrInvalidCredentials,
		user.ErrAlreadyConfirmed,
		user.ErrInvalidToken,
		user.ErrTokenExpired:
		return true
	}
	return false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, getClaims func(echo.Context) (Claims, error), signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch {
			case cause == auth.ErrForbidden:
				code = http.StatusForbidden
				message = cause.Error()
			case cause == user.ErrEmailNotConfirmed:
				code = http.StatusForbidden
				message = cause.Error()
			case isNotFoundErr(cause):
				code = http.StatusNotFound
				message = cause.Error()
			case isBadRequestErr(cause):
				code = http.StatusBadRequest
				message = cause.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Name = claims.Name
					usr.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

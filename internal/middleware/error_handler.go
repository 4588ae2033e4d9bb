package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"recordbook_app_echo/internal/engine"
)

// errorResponse is the JSON body every failed request returns.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// CustomErrorHandler maps errors onto HTTP status codes and a structured
// JSON body. Engine errors carry their taxonomy: validation failures are
// 400, illegal state transitions are 409, a schedule that cannot amortize
// is 422.
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	body := errorResponse{Error: "something went wrong, please try again later"}

	var (
		validationErr *engine.ValidationError
		stateErr      *engine.InvalidStateError
		httpErr       *echo.HTTPError
	)
	switch {
	case errors.As(err, &validationErr):
		code = http.StatusBadRequest
		body = errorResponse{Error: validationErr.Error(), Field: validationErr.Field}
	case errors.As(err, &stateErr):
		code = http.StatusConflict
		body = errorResponse{Error: stateErr.Error()}
	case errors.Is(err, engine.ErrInstallmentTooSmall):
		code = http.StatusUnprocessableEntity
		body = errorResponse{Error: err.Error()}
	case errors.Is(err, gorm.ErrRecordNotFound):
		code = http.StatusNotFound
		body = errorResponse{Error: "not found"}
	case errors.As(err, &httpErr):
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok && msg != "" {
			body = errorResponse{Error: msg}
		} else {
			body = errorResponse{Error: http.StatusText(code)}
		}
	}

	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, body)
	}
	if writeErr != nil {
		c.Logger().Error(writeErr)
	}
}

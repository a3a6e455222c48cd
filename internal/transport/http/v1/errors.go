package v1

import (
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/labstack/echo/v4"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

type errorResponse struct {
	Error domain.ErrorBody `json:"error"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError writes err as a JSON error body. Server-side failures are
// logged; their messages are still returned since they carry no user data.
func writeError(c echo.Context, err error) error {
	kind := domain.Kind(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		clog.FromContext(c.Request().Context()).Errorf("request failed: %v", err)
	}
	return c.JSON(status, errorResponse{Error: domain.ErrorBody{Kind: kind, Message: err.Error()}})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: domain.ErrorBody{Kind: domain.KindInvalidArgument, Message: msg}})
}

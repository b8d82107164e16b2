package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/healthify/internal/healthify/service"
	"github.com/aussiebroadwan/healthify/internal/healthify/store"
	"github.com/aussiebroadwan/healthify/pkg/httpx"
	"github.com/aussiebroadwan/healthify/pkg/slogx"
)

const (
	errCodeInvalidRequest      = "invalid_request"
	errCodeNotFound            = "not_found"
	errCodeServerError         = "server_error"
	errCodeUnauthorized        = "unauthorized"
	errCodeNotReady            = "session_not_ready"
	errCodeDeviceNotAuthorized = "device_not_authorized"
)

// writeServiceError maps a service error to its HTTP response. Anything
// unexpected is logged and answered with 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, err.Error())
	case errors.Is(err, service.ErrDeviceNotAuthorized):
		httpx.WriteError(w, http.StatusForbidden, errCodeDeviceNotAuthorized, "Device health data has not been authorized")
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, errCodeNotFound, "Resource not found")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, errCodeServerError, "Internal server error")
	}
}

func writeBadRequest(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, err.Error())
}

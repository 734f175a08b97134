package httpapi

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"spacelens/internal/assets"
	"spacelens/internal/sam3d"
	"spacelens/internal/session"
	"spacelens/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	var remote *sam3d.Error
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case session.IsLayoutUnknown(err), errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrInvalidAsset), errors.Is(err, assets.ErrBadCursor),
		errors.Is(err, assets.ErrOutsideLibrary), errors.Is(err, assets.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, assets.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.As(err, &remote), sam3d.IsContractViolation(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusConflict {
		IncrementRejection(rejectionReason(err))
	}
	writeJSONError(w, status, err.Error())
}

// writeUpstreamError answers 502 for a failed call to the remote service and
// logs the remote status when there is one.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	if zlog != nil {
		ev := zlog.Warn().Err(err).Str("route", routePatternOrPath(r))
		if st := sam3d.StatusOf(err); st != 0 {
			ev = ev.Int("remote_status", st)
		}
		ev.Msg("upstream call failed")
	}
	writeJSONError(w, http.StatusBadGateway, err.Error())
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package dav

import (
	"errors"
	"net/http"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
)

// statusForErr maps an internal error kind to the HTTP status §7
// prescribes. Errors that carry no kerr kind (for example a cancelled
// context out of storage.RetryBusy, or a raw driver error) fall back to 500.
func statusForErr(err error) int {
	var parseErr *kerr.ParseErr
	var authErr *kerr.AuthErr
	var conflictErr *kerr.ConflictErr
	var storageErr *kerr.StorageErr

	switch {
	case errors.As(err, &parseErr):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		switch authErr.Kind {
		case kerr.Replay:
			return http.StatusForbidden
		default:
			return http.StatusUnauthorized
		}
	case errors.As(err, &conflictErr):
		switch conflictErr.Reason {
		case kerr.QuotaExceeded:
			return http.StatusInsufficientStorage
		case kerr.MissingIfMatch, kerr.EtagMismatch:
			return http.StatusPreconditionFailed
		default:
			return http.StatusConflict
		}
	case errors.As(err, &storageErr):
		// §7: storage failures have no lesser "try again" response defined.
		return http.StatusHTTPVersionNotSupported
	case errors.Is(err, kerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, kerr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, kerr.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, kerr.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

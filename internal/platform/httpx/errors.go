// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/procureflow/procureflow/internal/ledger"
	"github.com/procureflow/procureflow/internal/tablestore"
)

// RespondError maps infrastructure errors to RFC7807 responses. Domain
// handlers check their own sentinels first and fall back here.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tablestore.ErrMissingTable):
		Problem(w, http.StatusInternalServerError, "Storage Misconfigured", err.Error())
	case errors.Is(err, tablestore.ErrStoreUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", "")
	case errors.Is(err, ledger.ErrLockTimeout):
		Problem(w, http.StatusServiceUnavailable, "Busy", "serial allocation timed out, retry")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

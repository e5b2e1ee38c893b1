package v1

import (
	"errors"
	"net/http"

	"github.com/ipupy-tesoreria/backend/internal/authz"
	"github.com/ipupy-tesoreria/backend/internal/models"
)

type httpError struct {
	Error string `json:"error" example:"An ID specified in the query string was not a valid UUID"`
}

// status returns the appropriate HTTP status for an error.
//
// Stale versions, illegal state transitions and idempotency keys that are
// still running map to 409 since the request may succeed on a retry with
// fresh data. A movement the balance does not cover maps to 422, retrying
// it unchanged can never succeed.
func status(err error) int {
	if errors.Is(err, models.ErrGeneral) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) {
		return http.StatusNotFound
	}

	if errors.Is(err, authz.ErrForbidden) {
		return http.StatusForbidden
	}

	for _, conflict := range []error{
		models.ErrReportState,
		models.ErrReportVersionStale,
		models.ErrReportProcessed,
		models.ErrIdempotencyInFlight,
		models.ErrMovementImmutable,
		models.ErrNoteImmutable,
	} {
		if errors.Is(err, conflict) {
			return http.StatusConflict
		}
	}

	if errors.Is(err, models.ErrInsufficientFunds) {
		return http.StatusUnprocessableEntity
	}

	return http.StatusBadRequest
}

// Cleanup errors
var (
	errCleanupConfirmation = errors.New("the confirmation for the cleanup API call was incorrect")
)

// Report errors
var (
	errVersionRequired         = errors.New("the version the change is based on must be set")
	errReportStateFilter       = errors.New("the specified report state is invalid")
	errReportIdentityImmutable = errors.New("the church and period of a report can not be changed")
)

// Movement errors
var errMovementUseTransfer = errors.New("transfers are created through the transfers endpoint")

// Transaction errors
var errTransactionChurchImmutable = errors.New("the church of a transaction can not be changed")

// Reconciliation errors
var (
	errPeriodRequired   = errors.New("the year and month query parameters must be set")
	errToleranceInvalid = errors.New("the tolerance must be a non-negative decimal number")
)

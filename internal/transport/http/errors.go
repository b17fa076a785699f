package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/saachiraju/Team-07-Spacio/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidDate         = "invalid_date"
	codeInvalidID           = "invalid_id"
	codeUnauthorized        = "unauthorized"
	codeListingNotFound     = "listing_not_found"
	codeReservationNotFound = "reservation_not_found"
	codeInvalidRange        = "invalid_range"
	codeBeforeAvailable     = "before_available"
	codeAfterAvailable      = "after_available"
	codePastDeadline        = "past_deadline"
	codeCapacityExceeded    = "capacity_exceeded"
	codeSelfBookingDenied   = "self_booking_denied"
	codeInvalidSqft         = "invalid_sqft"
	codeInvalidCapacity     = "invalid_capacity"
	codeInvalidPrice        = "invalid_price"
	codeTitleRequired       = "listing_title_required"
	codeHoldExpired         = "hold_expired"
	codeAlreadyDecided      = "already_decided"
	codeListingHasBookings  = "listing_has_bookings"
	codeConflict            = "conflict"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// AvailableSqft is set on capacity rejections so clients can show
	// "N sqft remain".
	AvailableSqft  *int     `json:"available_sqft,omitempty"`
	ConflictingIDs []string `json:"conflicting_reservation_ids,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
// Everything here is recoverable at the request boundary.
func writeDomainError(w http.ResponseWriter, err error) {
	if ce, ok := domain.IsCapacityExceeded(err); ok {
		available := ce.AvailableSqft
		writeErrorResponse(w, http.StatusConflict, errorResponse{
			Error:          ce.Error(),
			Code:           codeCapacityExceeded,
			AvailableSqft:  &available,
			ConflictingIDs: ce.ConflictingIDs,
		})
		return
	}

	var status int
	var code string
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		status, code = http.StatusNotFound, codeListingNotFound
	case errors.Is(err, domain.ErrReservationNotFound):
		status, code = http.StatusNotFound, codeReservationNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusForbidden, codeUnauthorized
	case errors.Is(err, domain.ErrInvalidRange):
		status, code = http.StatusBadRequest, codeInvalidRange
	case errors.Is(err, domain.ErrBeforeAvailable):
		status, code = http.StatusBadRequest, codeBeforeAvailable
	case errors.Is(err, domain.ErrAfterAvailable):
		status, code = http.StatusBadRequest, codeAfterAvailable
	case errors.Is(err, domain.ErrPastDeadline):
		status, code = http.StatusBadRequest, codePastDeadline
	case errors.Is(err, domain.ErrSelfBookingDenied):
		status, code = http.StatusForbidden, codeSelfBookingDenied
	case errors.Is(err, domain.ErrInvalidSqft):
		status, code = http.StatusBadRequest, codeInvalidSqft
	case errors.Is(err, domain.ErrInvalidCapacity):
		status, code = http.StatusBadRequest, codeInvalidCapacity
	case errors.Is(err, domain.ErrInvalidPrice):
		status, code = http.StatusBadRequest, codeInvalidPrice
	case errors.Is(err, domain.ErrListingTitleRequired):
		status, code = http.StatusBadRequest, codeTitleRequired
	case errors.Is(err, domain.ErrHoldExpired):
		status, code = http.StatusConflict, codeHoldExpired
	case errors.Is(err, domain.ErrAlreadyDecided):
		status, code = http.StatusConflict, codeAlreadyDecided
	case errors.Is(err, domain.ErrListingHasBookings):
		status, code = http.StatusConflict, codeListingHasBookings
	case errors.Is(err, domain.ErrWriteConflict):
		status, code = http.StatusConflict, codeConflict
	case errors.Is(err, domain.ErrInvalidID):
		status, code = http.StatusBadRequest, codeInvalidID
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	writeError(w, status, code, err.Error())
}

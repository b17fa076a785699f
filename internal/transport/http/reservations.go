package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/saachiraju/Team-07-Spacio/internal/app"
	"github.com/saachiraju/Team-07-Spacio/internal/domain"
	"github.com/saachiraju/Team-07-Spacio/internal/metrics"
)

// ReservationCollectionService covers the /reservations collection:
// booking creation and the caller's reservation list.
type ReservationCollectionService interface {
	CreateReservation(ctx context.Context, in app.CreateReservationInput) (domain.Reservation, error)
	ListReservationsFor(ctx context.Context, userID string, isHost bool) ([]domain.Reservation, error)
}

// ReservationDecisionService covers per-reservation actions.
type ReservationDecisionService interface {
	Approve(ctx context.Context, reservationID, actingHostID string) (domain.Reservation, error)
	Decline(ctx context.Context, reservationID, actingHostID string) (domain.Reservation, error)
	Cancel(ctx context.Context, reservationID, actingUserID string) error
}

// HandleReservations returns the handler for POST and GET /reservations.
func HandleReservations(svc ReservationCollectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
			return
		}

		switch r.Method {
		case http.MethodPost:
			var req createReservationRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			in, err := req.toInput(identity.UserID)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidDate, err.Error())
				return
			}

			res, err := svc.CreateReservation(r.Context(), in)
			if err != nil {
				metrics.ReservationsRejected.WithLabelValues(rejectionReason(err)).Inc()
				writeDomainError(w, err)
				return
			}
			metrics.ReservationsCreated.Inc()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toReservationResponse(res))
			return
		case http.MethodGet:
			reservations, err := svc.ListReservationsFor(r.Context(), identity.UserID, identity.IsHost)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]reservationResponse, 0, len(reservations))
			for _, res := range reservations {
				resp = append(resp, toReservationResponse(res))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleReservationActions routes /reservations/{id} (DELETE = cancel) and
// /reservations/{id}/approve|decline (POST, host decision).
func HandleReservationActions(svc ReservationDecisionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
			return
		}

		reservationID, action, ok := parseReservationPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodDelete:
			if err := svc.Cancel(r.Context(), reservationID, identity.UserID); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		case action == "approve" && r.Method == http.MethodPost:
			res, err := svc.Approve(r.Context(), reservationID, identity.UserID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toReservationResponse(res))
			return
		case action == "decline" && r.Method == http.MethodPost:
			res, err := svc.Decline(r.Context(), reservationID, identity.UserID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toReservationResponse(res))
			return
		case action == "":
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
	}
}

func parseReservationPath(path string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "reservations" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[1], "", true
	}
	if parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type createReservationRequest struct {
	ListingID     string `json:"listing_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	SqftRequested int    `json:"sqft_requested"`
	AddInsurance  bool   `json:"add_insurance"`
}

func (r createReservationRequest) toInput(renterID string) (app.CreateReservationInput, error) {
	start, err := parseDate(r.StartDate)
	if err != nil {
		return app.CreateReservationInput{}, errors.New("invalid start_date")
	}
	end, err := parseDate(r.EndDate)
	if err != nil {
		return app.CreateReservationInput{}, errors.New("invalid end_date")
	}
	return app.CreateReservationInput{
		ListingID:     r.ListingID,
		RenterID:      renterID,
		StartDate:     start,
		EndDate:       end,
		SqftRequested: r.SqftRequested,
		AddInsurance:  r.AddInsurance,
	}, nil
}

// parseDate accepts calendar dates or full RFC3339 timestamps.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

type reservationResponse struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listing_id"`
	RenterID      string    `json:"renter_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	SqftRequested int       `json:"sqft_requested"`
	Status        string    `json:"status"`
	BasePrice     float64   `json:"base_price"`
	ServiceFee    float64   `json:"service_fee"`
	Insurance     float64   `json:"insurance"`
	TotalPrice    float64   `json:"total_price"`
	HoldExpiresAt time.Time `json:"hold_expires_at"`
	CreatedAt     time.Time `json:"created_at"`
	PaymentStatus string    `json:"payment_status"`
}

func toReservationResponse(res domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:            res.ID,
		ListingID:     res.ListingID,
		RenterID:      res.RenterID,
		StartDate:     res.Range.Start,
		EndDate:       res.Range.End,
		SqftRequested: res.SqftRequested,
		Status:        string(res.Status),
		BasePrice:     res.BasePrice,
		ServiceFee:    res.ServiceFee,
		Insurance:     res.Insurance,
		TotalPrice:    res.TotalPrice,
		HoldExpiresAt: res.HoldExpiresAt,
		CreatedAt:     res.CreatedAt,
		PaymentStatus: res.PaymentStatus,
	}
}

func rejectionReason(err error) string {
	if _, ok := domain.IsCapacityExceeded(err); ok {
		return codeCapacityExceeded
	}
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		return codeInvalidRange
	case errors.Is(err, domain.ErrBeforeAvailable):
		return codeBeforeAvailable
	case errors.Is(err, domain.ErrAfterAvailable):
		return codeAfterAvailable
	case errors.Is(err, domain.ErrPastDeadline):
		return codePastDeadline
	case errors.Is(err, domain.ErrSelfBookingDenied):
		return codeSelfBookingDenied
	case errors.Is(err, domain.ErrInvalidSqft):
		return codeInvalidSqft
	case errors.Is(err, domain.ErrWriteConflict):
		return codeConflict
	case errors.Is(err, domain.ErrListingNotFound):
		return codeListingNotFound
	default:
		return codeInternalError
	}
}

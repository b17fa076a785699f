package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/saachiraju/Team-07-Spacio/internal/app"
	"github.com/saachiraju/Team-07-Spacio/internal/domain"
)

// ListingCollectionService covers GET (search) and POST /listings.
type ListingCollectionService interface {
	CreateListing(ctx context.Context, in app.CreateListingInput) (domain.Listing, error)
	SearchListings(ctx context.Context, filter domain.ListingFilter) ([]app.ListingSummary, error)
}

// ListingItemService covers per-listing reads, updates and deletion.
type ListingItemService interface {
	GetListing(ctx context.Context, listingID string) (domain.Listing, error)
	UpdateListing(ctx context.Context, in app.UpdateListingInput) (domain.Listing, error)
	DeleteListing(ctx context.Context, listingID, actorID string) error
}

// CapacityService exposes the read-only availability projection.
type CapacityService interface {
	AvailableCapacity(ctx context.Context, listingID string, asOf time.Time) (int, error)
}

// HandleListings returns the handler for the /listings collection. Search
// is public; creation requires a host identity.
func HandleListings(svc ListingCollectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			filter, err := parseListingFilter(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
				return
			}
			summaries, err := svc.SearchListings(r.Context(), filter)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]listingSummaryResponse, 0, len(summaries))
			for _, s := range summaries {
				resp = append(resp, toListingSummaryResponse(s))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		case http.MethodPost:
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
				return
			}
			var req createListingRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			in, err := req.toInput(identity)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidDate, err.Error())
				return
			}

			listing, err := svc.CreateListing(r.Context(), in)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(toListingResponse(listing))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleListingItem routes /listings/{id} and /listings/{id}/availability.
func HandleListingItem(svc ListingItemService, capacity CapacityService, clockNow func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, sub, ok := parseListingPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		if sub == "availability" {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			asOf := clockNow()
			if raw := r.URL.Query().Get("as_of"); raw != "" {
				parsed, err := parseDate(raw)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidDate, "invalid as_of")
					return
				}
				asOf = parsed
			}
			available, err := capacity.AvailableCapacity(r.Context(), listingID, asOf)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(availabilityResponse{
				ListingID:     listingID,
				AsOf:          asOf,
				AvailableSqft: available,
			})
			return
		}

		switch r.Method {
		case http.MethodGet:
			listing, err := svc.GetListing(r.Context(), listingID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toListingResponse(listing))
			return
		case http.MethodPatch:
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
				return
			}
			var req updateListingRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			in, err := req.toInput(listingID, identity.UserID)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidDate, err.Error())
				return
			}
			listing, err := svc.UpdateListing(r.Context(), in)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toListingResponse(listing))
			return
		case http.MethodDelete:
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
				return
			}
			if err := svc.DeleteListing(r.Context(), listingID, identity.UserID); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

func parseListingPath(path string) (id, sub string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "listings" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[1], "", true
	}
	if parts[2] != "availability" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func parseListingFilter(r *http.Request) (domain.ListingFilter, error) {
	q := r.URL.Query()
	filter := domain.ListingFilter{ZipCode: q.Get("zip_code")}

	if raw := q.Get("size"); raw != "" {
		switch domain.SizeBucket(raw) {
		case domain.SizeSmall, domain.SizeMedium, domain.SizeLarge:
			filter.Size = domain.SizeBucket(raw)
		default:
			return domain.ListingFilter{}, errInvalidFilter("size")
		}
	}
	if raw := q.Get("price_min"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return domain.ListingFilter{}, errInvalidFilter("price_min")
		}
		filter.PriceMin = &v
	}
	if raw := q.Get("price_max"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return domain.ListingFilter{}, errInvalidFilter("price_max")
		}
		filter.PriceMax = &v
	}
	return filter, nil
}

type filterError string

func errInvalidFilter(field string) error { return filterError(field) }

func (e filterError) Error() string { return "invalid " + string(e) }

type createListingRequest struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	SizeSqft        int     `json:"size_sqft"`
	PricePerMonth   float64 `json:"price_per_month"`
	AddressSummary  string  `json:"address_summary"`
	ZipCode         string  `json:"zip_code"`
	Rating          float64 `json:"rating"`
	AvailableFrom   string  `json:"available_from"`
	AvailableTo     string  `json:"available_to"`
	BookingDeadline string  `json:"booking_deadline"`
}

func (r createListingRequest) toInput(identity Identity) (app.CreateListingInput, error) {
	in := app.CreateListingInput{
		HostID:         identity.UserID,
		IsHost:         identity.IsHost,
		Title:          r.Title,
		Description:    r.Description,
		SizeSqft:       r.SizeSqft,
		PricePerMonth:  r.PricePerMonth,
		AddressSummary: r.AddressSummary,
		ZipCode:        r.ZipCode,
		Rating:         r.Rating,
	}
	var err error
	if in.AvailableFrom, err = parseOptionalDate(r.AvailableFrom, "available_from"); err != nil {
		return app.CreateListingInput{}, err
	}
	if in.AvailableTo, err = parseOptionalDate(r.AvailableTo, "available_to"); err != nil {
		return app.CreateListingInput{}, err
	}
	if in.BookingDeadline, err = parseOptionalDate(r.BookingDeadline, "booking_deadline"); err != nil {
		return app.CreateListingInput{}, err
	}
	return in, nil
}

type updateListingRequest struct {
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	SizeSqft        *int     `json:"size_sqft"`
	PricePerMonth   *float64 `json:"price_per_month"`
	AvailableFrom   *string  `json:"available_from"`
	AvailableTo     *string  `json:"available_to"`
	BookingDeadline *string  `json:"booking_deadline"`
}

func (r updateListingRequest) toInput(listingID, actorID string) (app.UpdateListingInput, error) {
	in := app.UpdateListingInput{
		ListingID:     listingID,
		ActorID:       actorID,
		Title:         r.Title,
		Description:   r.Description,
		SizeSqft:      r.SizeSqft,
		PricePerMonth: r.PricePerMonth,
	}
	var err error
	if r.AvailableFrom != nil {
		if in.AvailableFrom, err = parseOptionalDate(*r.AvailableFrom, "available_from"); err != nil {
			return app.UpdateListingInput{}, err
		}
	}
	if r.AvailableTo != nil {
		if in.AvailableTo, err = parseOptionalDate(*r.AvailableTo, "available_to"); err != nil {
			return app.UpdateListingInput{}, err
		}
	}
	if r.BookingDeadline != nil {
		if in.BookingDeadline, err = parseOptionalDate(*r.BookingDeadline, "booking_deadline"); err != nil {
			return app.UpdateListingInput{}, err
		}
	}
	return in, nil
}

func parseOptionalDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, errInvalidFilter(field)
	}
	return &t, nil
}

type listingResponse struct {
	ID              string     `json:"id"`
	HostID          string     `json:"host_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	SizeSqft        int        `json:"size_sqft"`
	Size            string     `json:"size"`
	PricePerMonth   float64    `json:"price_per_month"`
	AddressSummary  string     `json:"address_summary"`
	ZipCode         string     `json:"zip_code"`
	Rating          float64    `json:"rating"`
	AvailableFrom   *time.Time `json:"available_from,omitempty"`
	AvailableTo     *time.Time `json:"available_to,omitempty"`
	BookingDeadline *time.Time `json:"booking_deadline,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toListingResponse(l domain.Listing) listingResponse {
	return listingResponse{
		ID:              l.ID,
		HostID:          l.HostID,
		Title:           l.Title,
		Description:     l.Description,
		SizeSqft:        l.SizeSqft,
		Size:            string(l.Size),
		PricePerMonth:   l.PricePerMonth,
		AddressSummary:  l.AddressSummary,
		ZipCode:         l.ZipCode,
		Rating:          l.Rating,
		AvailableFrom:   l.AvailableFrom,
		AvailableTo:     l.AvailableTo,
		BookingDeadline: l.BookingDeadline,
		CreatedAt:       l.CreatedAt,
	}
}

type listingSummaryResponse struct {
	listingResponse
	HostVerified  bool `json:"host_verified"`
	AvailableSqft int  `json:"available_sqft"`
}

func toListingSummaryResponse(s app.ListingSummary) listingSummaryResponse {
	return listingSummaryResponse{
		listingResponse: toListingResponse(s.Listing),
		HostVerified:    s.HostVerified,
		AvailableSqft:   s.AvailableSqft,
	}
}

type availabilityResponse struct {
	ListingID     string    `json:"listing_id"`
	AsOf          time.Time `json:"as_of"`
	AvailableSqft int       `json:"available_sqft"`
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/chenbitou/RoomAppt/internal/domain"
)

// AvailabilityReader is the minimal interface needed for the availability
// endpoint.
type AvailabilityReader interface {
	DayAvailability(ctx context.Context, categoryID, day string) (domain.DayAvailability, error)
}

// BookingsReader is the minimal interface needed for the day bookings
// endpoint.
type BookingsReader interface {
	DayReservations(ctx context.Context, categoryID, day string) ([]domain.Reservation, error)
}

// HandleAvailability returns an HTTP handler for the per-day availability
// grid of a category.
func HandleAvailability(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		categoryID, day, ok := dayQuery(w, r)
		if !ok {
			return
		}

		avail, err := svc.DayAvailability(r.Context(), categoryID, day)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		resources := make([]resourceSlotsResponse, 0, len(avail.Resources))
		for _, res := range avail.Resources {
			slots := make([]slotResponse, 0, len(res.Slots))
			for _, s := range res.Slots {
				slots = append(slots, slotResponse{Hour: s.Hour, Price: s.Price})
			}
			resources = append(resources, resourceSlotsResponse{
				ResourceID: res.ResourceID,
				Title:      res.Title,
				Slots:      slots,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(availabilityResponse{
			Day:       day,
			MaxDay:    avail.MaxDay,
			StartHour: avail.StartHour,
			EndHour:   avail.EndHour,
			Resources: resources,
		})
	}
}

// HandleDayBookings returns an HTTP handler listing the day's active
// reservations across a category, so clients can paint taken hour-points.
func HandleDayBookings(svc BookingsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		categoryID, day, ok := dayQuery(w, r)
		if !ok {
			return
		}

		reservations, err := svc.DayReservations(r.Context(), categoryID, day)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		resp := make([]bookingResponse, 0, len(reservations))
		for _, res := range reservations {
			resp = append(resp, bookingResponse{
				ResourceID: res.ResourceID,
				Day:        res.Day,
				StartHour:  res.StartHour,
				EndHour:    res.EndHour,
				EndPoint:   res.EndPoint,
				Status:     string(res.Status),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// dayQuery extracts and validates the category_id and day query parameters
// shared by the read endpoints.
func dayQuery(w http.ResponseWriter, r *http.Request) (categoryID, day string, ok bool) {
	categoryID = r.URL.Query().Get("category_id")
	if categoryID == "" {
		writeError(w, http.StatusBadRequest, codeCategoryRequired, domain.ErrCategoryRequired.Error())
		return "", "", false
	}
	day = r.URL.Query().Get("day")
	if _, err := time.Parse(domain.DayFormat, day); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidDay, domain.ErrInvalidDay.Error())
		return "", "", false
	}
	return categoryID, day, true
}

type availabilityResponse struct {
	Day       string                  `json:"day"`
	MaxDay    string                  `json:"max_day"`
	StartHour int                     `json:"start_hour"`
	EndHour   int                     `json:"end_hour"`
	Resources []resourceSlotsResponse `json:"resources"`
}

type resourceSlotsResponse struct {
	ResourceID string         `json:"resource_id"`
	Title      string         `json:"title"`
	Slots      []slotResponse `json:"slots"`
}

type slotResponse struct {
	Hour  int `json:"hour"`
	Price int `json:"price"`
}

type bookingResponse struct {
	ResourceID string `json:"resource_id"`
	Day        string `json:"day"`
	StartHour  int    `json:"start_hour"`
	EndHour    int    `json:"end_hour"`
	EndPoint   string `json:"end_point"`
	Status     string `json:"status"`
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/chenbitou/RoomAppt/internal/app"
	"github.com/chenbitou/RoomAppt/internal/domain"
)

const userIDHeader = "X-User-ID"

// ReservationCreator is the minimal interface needed to create a reservation.
type ReservationCreator interface {
	Create(ctx context.Context, in app.CreateReservationInput) (domain.Reservation, error)
}

// ReservationManager is the minimal interface needed for the single
// reservation endpoint (view and edit).
type ReservationManager interface {
	Get(ctx context.Context, userID, reservationID string) (domain.Reservation, error)
	Edit(ctx context.Context, in app.EditReservationInput) error
}

// ReservationCanceller is the minimal interface needed to cancel a
// reservation.
type ReservationCanceller interface {
	Cancel(ctx context.Context, userID, reservationID string) error
}

// HandleCreateReservation returns an HTTP handler for booking an hour range.
func HandleCreateReservation(svc ReservationCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			writeError(w, http.StatusBadRequest, codeUserRequired, domain.ErrUserRequired.Error())
			return
		}

		var req createReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.ResourceID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}

		res, err := svc.Create(r.Context(), app.CreateReservationInput{
			UserID:     userID,
			ResourceID: req.ResourceID,
			Day:        req.Day,
			StartHour:  req.StartHour,
			EndHour:    req.EndHour,
			EndPoint:   req.EndPoint,
			Price:      req.Price,
			Forms:      req.Forms,
		})
		if err != nil {
			writeReservationError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(newReservationResponse(res))
	}
}

// HandleReservationByID returns an HTTP handler for viewing and editing a
// single reservation.
func HandleReservationByID(svc ReservationManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservationID, ok := parseReservationPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			writeError(w, http.StatusBadRequest, codeUserRequired, domain.ErrUserRequired.Error())
			return
		}

		switch r.Method {
		case http.MethodGet:
			res, err := svc.Get(r.Context(), userID, reservationID)
			if err != nil {
				writeReservationError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(newReservationResponse(res))
			return
		case http.MethodPut:
			var req editReservationRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.ResourceID == "" {
				writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
				return
			}

			err := svc.Edit(r.Context(), app.EditReservationInput{
				UserID:        userID,
				ResourceID:    req.ResourceID,
				ReservationID: reservationID,
				Forms:         req.Forms,
			})
			if err != nil {
				writeReservationError(w, err)
				return
			}

			res, err := svc.Get(r.Context(), userID, reservationID)
			if err != nil {
				writeReservationError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(newReservationResponse(res))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleCancelReservation returns an HTTP handler for cancelling a
// reservation.
func HandleCancelReservation(svc ReservationCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		reservationID, ok := parseCancelPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			writeError(w, http.StatusBadRequest, codeUserRequired, domain.ErrUserRequired.Error())
			return
		}

		if err := svc.Cancel(r.Context(), userID, reservationID); err != nil {
			writeReservationError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cancelResponse{Status: string(domain.StatusCancelled)})
	}
}

// writeReservationError maps domain errors of the reservation lifecycle onto
// HTTP statuses and stable error codes.
func writeReservationError(w http.ResponseWriter, err error) {
	if conflict, ok := domain.AsConflict(err); ok {
		writeError(w, http.StatusConflict, codeSlotConflict, conflict.Error())
		return
	}

	switch err {
	case domain.ErrUserRequired:
		writeError(w, http.StatusBadRequest, codeUserRequired, err.Error())
	case domain.ErrInvalidDay:
		writeError(w, http.StatusBadRequest, codeInvalidDay, err.Error())
	case domain.ErrInvalidRange:
		writeError(w, http.StatusBadRequest, codeInvalidRange, err.Error())
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case domain.ErrResourceNotFound:
		writeError(w, http.StatusNotFound, codeResourceNotFound, err.Error())
	case domain.ErrReservationNotFound:
		writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
	case domain.ErrCheckedIn:
		writeError(w, http.StatusForbidden, codeCheckedIn, err.Error())
	case domain.ErrEditNotAllowed:
		writeError(w, http.StatusForbidden, codeEditNotAllowed, err.Error())
	case domain.ErrCancelNotAllowed:
		writeError(w, http.StatusForbidden, codeCancelNotAllowed, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func parseReservationPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 {
		return "", false
	}
	if parts[0] != "reservations" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func parseCancelPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	if parts[0] != "reservations" || parts[2] != "cancel" {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type createReservationRequest struct {
	ResourceID string          `json:"resource_id"`
	Day        string          `json:"day"`
	StartHour  int             `json:"start_hour"`
	EndHour    int             `json:"end_hour"`
	EndPoint   string          `json:"end_point,omitempty"`
	Price      int             `json:"price"`
	Forms      json.RawMessage `json:"forms,omitempty"`
}

type editReservationRequest struct {
	ResourceID string          `json:"resource_id"`
	Forms      json.RawMessage `json:"forms,omitempty"`
}

type reservationResponse struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	ResourceID    string          `json:"resource_id"`
	ResourceTitle string          `json:"resource_title"`
	CategoryID    string          `json:"category_id"`
	CategoryName  string          `json:"category_name"`
	Day           string          `json:"day"`
	StartHour     int             `json:"start_hour"`
	EndHour       int             `json:"end_hour"`
	EndPoint      string          `json:"end_point"`
	Price         int             `json:"price"`
	Forms         json.RawMessage `json:"forms"`
	Status        string          `json:"status"`
	CheckedIn     bool            `json:"checked_in"`
	StartAt       time.Time       `json:"start_at"`
	EndAt         time.Time       `json:"end_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

func newReservationResponse(res domain.Reservation) reservationResponse {
	forms := res.Forms
	if len(forms) == 0 {
		forms = json.RawMessage(`[]`)
	}
	return reservationResponse{
		ID:            res.ID,
		Code:          res.Code,
		ResourceID:    res.ResourceID,
		ResourceTitle: res.ResourceTitle,
		CategoryID:    res.CategoryID,
		CategoryName:  res.CategoryName,
		Day:           res.Day,
		StartHour:     res.StartHour,
		EndHour:       res.EndHour,
		EndPoint:      res.EndPoint,
		Price:         res.Price,
		Forms:         forms,
		Status:        string(res.Status),
		CheckedIn:     res.CheckedIn,
		StartAt:       res.StartAt,
		EndAt:         res.EndAt,
		CreatedAt:     res.CreatedAt,
	}
}

type cancelResponse struct {
	Status string `json:"status"`
}

package domain

import (
	"encoding/json"
	"time"
)

type ReservationStatus string

const (
	// StatusWaiting is the initial status of a freshly created reservation.
	// Both waiting and confirmed count as active everywhere; confirmation
	// belongs to the check-in flow, which is outside this service.
	StatusWaiting        ReservationStatus = "waiting"
	StatusConfirmed      ReservationStatus = "confirmed"
	StatusCancelled      ReservationStatus = "cancelled"
	StatusAdminCancelled ReservationStatus = "admin_cancelled"
)

// DayFormat is the calendar-date layout used for reservation days.
const DayFormat = "2006-01-02"

// Reservation occupies the inclusive hour range [StartHour, EndHour] on a
// resource's day. Rows are never deleted; cancellation is a status change.
type Reservation struct {
	ID            string
	Code          string
	UserID        string
	ResourceID    string
	CategoryID    string
	CategoryName  string
	ResourceTitle string
	Day           string
	StartHour     int
	EndHour       int
	// EndPoint is the display form of when the booking ends, e.g. "11:00"
	// for a range ending at hour-point 10.
	EndPoint string
	Price    int
	// Forms is the submitted form payload, opaque to the engine.
	Forms json.RawMessage
	Status ReservationStatus
	// CheckedIn marks a consumed reservation; it is permanently locked
	// against edit and cancel.
	CheckedIn bool
	StartAt   time.Time
	EndAt     time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the reservation occupies its hour-points.
func (r Reservation) Active() bool {
	return r.Status == StatusWaiting || r.Status == StatusConfirmed
}

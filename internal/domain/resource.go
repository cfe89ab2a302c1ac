package domain

import "time"

type ResourceStatus string

const (
	ResourceStatusOpen   ResourceStatus = "open"
	ResourceStatusClosed ResourceStatus = "closed"
)

// Resource is a bookable venue exposing a per-day grid of reservable hours.
type Resource struct {
	ID           string
	Title        string
	CategoryID   string
	CategoryName string
	Status       ResourceStatus
	DisplayOrder int
	// EditPolicy and CancelPolicy hold the policy codes evaluated against
	// the current time when a reservation is edited or cancelled.
	EditPolicy   int
	CancelPolicy int
	// ActiveCount caches the number of waiting/confirmed reservations.
	// Recomputed after every create/cancel; may drift transiently.
	ActiveCount int
	CreatedAt   time.Time
}

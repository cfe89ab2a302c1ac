package app

import (
	"sort"

	"github.com/chenbitou/RoomAppt/internal/domain"
)

// findConflict checks a candidate inclusive hour range against the active
// reservations already holding hour-points on the same resource-day.
//
// Ranges are inclusive on both ends: a booking from hour 9 to hour 10
// occupies points 9 AND 10, so a later booking may start at 11 but not at 10.
// Existing reservations are scanned in ascending start order and the first
// shared hour-point decides; the returned ConflictError carries that hour.
// Returns nil when the candidate range is free.
func findConflict(startHour, endHour int, existing []domain.Reservation) error {
	sorted := make([]domain.Reservation, len(existing))
	copy(sorted, existing)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartHour < sorted[j].StartHour
	})

	for _, res := range sorted {
		for h := startHour; h <= endHour; h++ {
			if h >= res.StartHour && h <= res.EndHour {
				return &domain.ConflictError{Hour: h}
			}
		}
	}
	return nil
}

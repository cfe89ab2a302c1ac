package app

import "github.com/chenbitou/RoomAppt/internal/domain"

// BuildSlotGrid expands the configured time windows of one resource-day into
// the flat list of reservable hour-points with their prices. Both window ends
// are inclusive, so {start: 9, end: 11} yields hours 9, 10 and 11. Windows are
// kept in configured order and are not deduplicated: a later window touching
// an hour already emitted emits it again, and callers treat the result as a
// multiset.
func BuildSlotGrid(windows []domain.TimeWindow) []domain.Slot {
	var slots []domain.Slot
	for _, w := range windows {
		for h := w.StartHour; h <= w.EndHour; h++ {
			slots = append(slots, domain.Slot{Hour: h, Price: w.Price})
		}
	}
	return slots
}

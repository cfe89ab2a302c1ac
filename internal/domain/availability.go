package domain

// ResourceSlots is one resource's slot grid within a day availability result.
type ResourceSlots struct {
	ResourceID string
	Title      string
	Slots      []Slot
}

// DayAvailability is the availability envelope for a category on one day.
// StartHour/EndHour keep their sentinel seeds (23, 0) when no resource
// contributed any slot.
type DayAvailability struct {
	// MaxDay is the farthest day with a configured window, "" for no cap.
	MaxDay    string
	StartHour int
	EndHour   int
	Resources []ResourceSlots
}

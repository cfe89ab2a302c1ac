package domain

// TimeWindow is one configured reservable stretch on a resource's day,
// inclusive of both end hours.
type TimeWindow struct {
	StartHour int
	EndHour   int
	Price     int
}

// Slot is one reservable hour-point with its price.
type Slot struct {
	Hour  int
	Price int
}

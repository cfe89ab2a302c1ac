package app

import (
	"time"

	"github.com/chenbitou/RoomAppt/internal/domain"
)

// Policy codes carried on a resource. Codes are cumulative only in the sense
// that unknown codes fall through to "allowed"; 1 is the conventional value
// for that.
const (
	policyForbidden   = 0
	policyBeforeStart = 2
	policyBeforeEnd   = 3
	// Codes above policyDayCutoffBase (cancel only) mean "allowed until
	// code-20 days before the booking's end date".
	policyDayCutoffBase = 20
)

// editAllowed decides whether the reservation's form payload may still be
// edited under the resource's edit policy code at the given instant.
// A checked-in reservation is locked regardless of code.
func editAllowed(code int, now time.Time, res domain.Reservation) error {
	if res.CheckedIn {
		return domain.ErrCheckedIn
	}
	switch code {
	case policyForbidden:
		return domain.ErrEditNotAllowed
	case policyBeforeStart:
		if !now.Before(res.StartAt) {
			return domain.ErrEditNotAllowed
		}
	case policyBeforeEnd:
		if !now.Before(res.EndAt) {
			return domain.ErrEditNotAllowed
		}
	}
	return nil
}

// cancelAllowed decides whether the reservation may still be cancelled under
// the resource's cancel policy code at the given instant. Codes above 20
// impose an N-day cutoff: cancelling is allowed only while today's calendar
// date is at most (end date - (code-20)) days. The cutoff is anchored on the
// reservation's end timestamp.
func cancelAllowed(code int, now time.Time, res domain.Reservation) error {
	if res.CheckedIn {
		return domain.ErrCheckedIn
	}
	switch {
	case code == policyForbidden:
		return domain.ErrCancelNotAllowed
	case code == policyBeforeStart:
		if !now.Before(res.StartAt) {
			return domain.ErrCancelNotAllowed
		}
	case code == policyBeforeEnd:
		if !now.Before(res.EndAt) {
			return domain.ErrCancelNotAllowed
		}
	case code > policyDayCutoffBase:
		step := code - policyDayCutoffBase
		cutoff := truncateToDay(res.EndAt).AddDate(0, 0, -step)
		if truncateToDay(now).After(cutoff) {
			return domain.ErrCancelNotAllowed
		}
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

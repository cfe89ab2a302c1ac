package app

import (
	"context"

	"github.com/chenbitou/RoomAppt/internal/domain"
)

// AvailabilityRepository is the read-side storage needed to aggregate a
// day's availability for a category.
type AvailabilityRepository interface {
	// ListOpenResources returns the category's open resources ordered by
	// display order then creation time, both ascending. The ordering is a
	// public contract: the UI relies on it for stable rendering.
	ListOpenResources(ctx context.Context, categoryID string) ([]domain.Resource, error)
	// GetDayWindows returns the configured windows for a resource-day,
	// nil when the day has no configuration.
	GetDayWindows(ctx context.Context, resourceID, day string) ([]domain.TimeWindow, error)
	// GetAnyDayWindows returns windows for the resource regardless of day.
	// Only used in demo mode.
	GetAnyDayWindows(ctx context.Context, resourceID string) ([]domain.TimeWindow, error)
	// MaxConfiguredDay returns the greatest configured day >= fromDay in
	// the category, "" when none exists.
	MaxConfiguredDay(ctx context.Context, categoryID, fromDay string) (string, error)
	// ListActiveByCategoryDay returns the category's waiting/confirmed
	// reservations on the day.
	ListActiveByCategoryDay(ctx context.Context, categoryID, day string) ([]domain.Reservation, error)
}

// Seeds for the availability envelope. With zero contributing slots the
// envelope keeps these values, which callers recognise as "nothing bookable".
const (
	earliestSeed = 23
	latestSeed   = 0
)

type AvailabilityService struct {
	repo AvailabilityRepository
	demo bool
}

func NewAvailabilityService(repo AvailabilityRepository, opts ...AvailabilityServiceOption) *AvailabilityService {
	svc := &AvailabilityService{repo: repo}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type AvailabilityServiceOption func(*AvailabilityService)

// WithDemoMode makes window lookups ignore the requested day, so a sandbox
// deployment with a single configured day still shows slots everywhere. The
// flag is explicit here rather than read from ambient config so its effect is
// visible at the call site.
func WithDemoMode(enabled bool) AvailabilityServiceOption {
	return func(s *AvailabilityService) {
		s.demo = enabled
	}
}

// DayAvailability recomputes the category's availability for one day from
// scratch. No caching: a reservation written a moment ago is reflected in the
// very next call.
func (s *AvailabilityService) DayAvailability(ctx context.Context, categoryID, day string) (domain.DayAvailability, error) {
	resources, err := s.repo.ListOpenResources(ctx, categoryID)
	if err != nil {
		return domain.DayAvailability{}, err
	}

	out := domain.DayAvailability{
		StartHour: earliestSeed,
		EndHour:   latestSeed,
		Resources: []domain.ResourceSlots{},
	}

	for _, res := range resources {
		windows, err := s.windowsFor(ctx, res.ID, day)
		if err != nil {
			return domain.DayAvailability{}, err
		}

		for _, w := range windows {
			if w.StartHour < out.StartHour {
				out.StartHour = w.StartHour
			}
			if w.EndHour > out.EndHour {
				out.EndHour = w.EndHour
			}
		}

		slots := BuildSlotGrid(windows)
		if len(slots) == 0 {
			// Resources with nothing bookable are dropped entirely.
			continue
		}
		out.Resources = append(out.Resources, domain.ResourceSlots{
			ResourceID: res.ID,
			Title:      res.Title,
			Slots:      slots,
		})
	}

	maxDay, err := s.repo.MaxConfiguredDay(ctx, categoryID, day)
	if err != nil {
		return domain.DayAvailability{}, err
	}
	out.MaxDay = maxDay

	return out, nil
}

// DayReservations returns the day's active reservations across the whole
// category, used to paint already-taken hour-points.
func (s *AvailabilityService) DayReservations(ctx context.Context, categoryID, day string) ([]domain.Reservation, error) {
	return s.repo.ListActiveByCategoryDay(ctx, categoryID, day)
}

func (s *AvailabilityService) windowsFor(ctx context.Context, resourceID, day string) ([]domain.TimeWindow, error) {
	if s.demo {
		return s.repo.GetAnyDayWindows(ctx, resourceID)
	}
	return s.repo.GetDayWindows(ctx, resourceID, day)
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chenbitou/RoomAppt/internal/clock"
	"github.com/chenbitou/RoomAppt/internal/domain"
)

// ReservationRepository is the storage needed by the reservation lifecycle.
type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// LockResourceDay serialises writers on one resource-day for the rest
	// of the surrounding transaction. Without it two concurrent creates can
	// both pass the conflict scan and double-book.
	LockResourceDay(ctx context.Context, resourceID, day string) error
	// GetOpenResource returns the resource only when it exists and is open.
	GetOpenResource(ctx context.Context, resourceID string) (domain.Resource, error)
	// GetResource returns the resource in any status.
	GetResource(ctx context.Context, resourceID string) (domain.Resource, error)
	GetDayWindows(ctx context.Context, resourceID, day string) ([]domain.TimeWindow, error)
	GetAnyDayWindows(ctx context.Context, resourceID string) ([]domain.TimeWindow, error)
	ListActiveByResourceDay(ctx context.Context, resourceID, day string) ([]domain.Reservation, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
	// GetOwnedReservation returns the user's reservation in any status.
	GetOwnedReservation(ctx context.Context, userID, reservationID string) (domain.Reservation, error)
	UpdateForms(ctx context.Context, reservationID string, forms json.RawMessage, updatedAt time.Time) error
	// MarkCancelled transitions the reservation to cancelled and clears the
	// checked-in flag.
	MarkCancelled(ctx context.Context, reservationID string, updatedAt time.Time) error
	CountActive(ctx context.Context, resourceID string) (int, error)
	UpdateActiveCount(ctx context.Context, resourceID string, count int) error
}

// EventPublisher pushes lifecycle events to the message broker.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type ReservationService struct {
	repo   ReservationRepository
	clock  clock.Clock
	logger *log.Logger
	events EventPublisher
	demo   bool
}

func NewReservationService(repo ReservationRepository, clk clock.Clock, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		repo:   repo,
		clock:  clk,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithEventPublisher enables best-effort lifecycle events. Without it, no
// events are published.
func WithEventPublisher(pub EventPublisher) ReservationServiceOption {
	return func(s *ReservationService) {
		s.events = pub
	}
}

// WithLogger overrides the logger used for swallowed best-effort failures.
func WithLogger(logger *log.Logger) ReservationServiceOption {
	return func(s *ReservationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDemoWindows makes grid validation look up windows regardless of day,
// mirroring the demo mode of the availability side.
func WithDemoWindows(enabled bool) ReservationServiceOption {
	return func(s *ReservationService) {
		s.demo = enabled
	}
}

type CreateReservationInput struct {
	UserID     string
	ResourceID string
	Day        string
	StartHour  int
	EndHour    int
	// EndPoint is the caller's display form of the booking end ("11:00");
	// derived from EndHour when empty.
	EndPoint string
	Price    int
	Forms    json.RawMessage
}

// Create books the inclusive hour range on the resource-day. The conflict
// scan and insert run inside one transaction holding the per-resource-day
// advisory lock, so concurrent creates for the same key serialise.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (domain.Reservation, error) {
	if in.UserID == "" {
		return domain.Reservation{}, domain.ErrUserRequired
	}
	if _, err := time.Parse(domain.DayFormat, in.Day); err != nil {
		return domain.Reservation{}, domain.ErrInvalidDay
	}
	if in.StartHour < 0 || in.EndHour > 23 || in.StartHour > in.EndHour {
		return domain.Reservation{}, domain.ErrInvalidRange
	}

	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		resource, err := s.repo.GetOpenResource(txCtx, in.ResourceID)
		if err != nil {
			return err
		}

		if err := s.repo.LockResourceDay(txCtx, in.ResourceID, in.Day); err != nil {
			return err
		}

		windows, err := s.windowsFor(txCtx, in.ResourceID, in.Day)
		if err != nil {
			return err
		}
		if err := validateAgainstGrid(in.StartHour, in.EndHour, windows); err != nil {
			return err
		}

		existing, err := s.repo.ListActiveByResourceDay(txCtx, in.ResourceID, in.Day)
		if err != nil {
			return err
		}
		if err := findConflict(in.StartHour, in.EndHour, existing); err != nil {
			return err
		}

		endPoint := in.EndPoint
		if endPoint == "" {
			endPoint = fmt.Sprintf("%02d:00", in.EndHour+1)
		}

		res := domain.Reservation{
			ID:            uuid.NewString(),
			Code:          newReceiptCode(),
			UserID:        in.UserID,
			ResourceID:    resource.ID,
			CategoryID:    resource.CategoryID,
			CategoryName:  resource.CategoryName,
			ResourceTitle: resource.Title,
			Day:           in.Day,
			StartHour:     in.StartHour,
			EndHour:       in.EndHour,
			EndPoint:      endPoint,
			Price:         in.Price,
			Forms:         in.Forms,
			Status:        domain.StatusWaiting,
			StartAt:       dayAtHour(in.Day, in.StartHour),
			EndAt:         dayAtPoint(in.Day, endPoint, in.EndHour),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := s.repo.CreateReservation(txCtx, res); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.refreshActiveCount(ctx, in.ResourceID)
	s.publish(ctx, "reservation.created", reservationEvent(result))

	return result, nil
}

type EditReservationInput struct {
	UserID        string
	ResourceID    string
	ReservationID string
	Forms         json.RawMessage
}

// Edit replaces the form payload of an active reservation. Day, hours and
// price are immutable once booked; moving a booking is cancel + create.
func (s *ReservationService) Edit(ctx context.Context, in EditReservationInput) error {
	if in.UserID == "" {
		return domain.ErrUserRequired
	}

	res, err := s.repo.GetOwnedReservation(ctx, in.UserID, in.ReservationID)
	if err != nil {
		return err
	}
	if !res.Active() || res.ResourceID != in.ResourceID {
		return domain.ErrReservationNotFound
	}

	resource, err := s.repo.GetOpenResource(ctx, in.ResourceID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if err := editAllowed(resource.EditPolicy, now, res); err != nil {
		return err
	}

	return s.repo.UpdateForms(ctx, res.ID, in.Forms, now)
}

// Get returns the user's reservation in any status.
func (s *ReservationService) Get(ctx context.Context, userID, reservationID string) (domain.Reservation, error) {
	if userID == "" {
		return domain.Reservation{}, domain.ErrUserRequired
	}
	return s.repo.GetOwnedReservation(ctx, userID, reservationID)
}

// Cancel transitions an active reservation to cancelled, subject to the
// resource's cancel policy and the checked-in lock.
func (s *ReservationService) Cancel(ctx context.Context, userID, reservationID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}

	res, err := s.repo.GetOwnedReservation(ctx, userID, reservationID)
	if err != nil {
		return err
	}
	if !res.Active() {
		return domain.ErrReservationNotFound
	}

	resource, err := s.repo.GetResource(ctx, res.ResourceID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if err := cancelAllowed(resource.CancelPolicy, now, res); err != nil {
		return err
	}

	if err := s.repo.MarkCancelled(ctx, res.ID, now); err != nil {
		return err
	}

	s.refreshActiveCount(ctx, res.ResourceID)
	s.publish(ctx, "reservation.cancelled", reservationEvent(res))

	return nil
}

// refreshActiveCount recomputes the resource's cached active reservation
// count. Best-effort: a failure here must not fail the booking or the
// cancellation that triggered it, so it is logged and swallowed.
func (s *ReservationService) refreshActiveCount(ctx context.Context, resourceID string) {
	count, err := s.repo.CountActive(ctx, resourceID)
	if err != nil {
		s.logger.Printf("WARN: count active reservations for %s: %v", resourceID, err)
		return
	}
	if err := s.repo.UpdateActiveCount(ctx, resourceID, count); err != nil {
		s.logger.Printf("WARN: update active count for %s: %v", resourceID, err)
	}
}

func (s *ReservationService) publish(ctx context.Context, key string, v any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(ctx, key, v); err != nil {
		s.logger.Printf("WARN: publish %s: %v", key, err)
	}
}

func (s *ReservationService) windowsFor(ctx context.Context, resourceID, day string) ([]domain.TimeWindow, error) {
	if s.demo {
		return s.repo.GetAnyDayWindows(ctx, resourceID)
	}
	return s.repo.GetDayWindows(ctx, resourceID, day)
}

// validateAgainstGrid rejects hour ranges not fully covered by the
// resource's configured slot grid for the day.
func validateAgainstGrid(startHour, endHour int, windows []domain.TimeWindow) error {
	offered := make(map[int]struct{})
	for _, slot := range BuildSlotGrid(windows) {
		offered[slot.Hour] = struct{}{}
	}
	for h := startHour; h <= endHour; h++ {
		if _, ok := offered[h]; !ok {
			return domain.ErrInvalidRange
		}
	}
	return nil
}

func dayAtHour(day string, hour int) time.Time {
	t, _ := time.Parse(domain.DayFormat, day)
	return t.Add(time.Duration(hour) * time.Hour)
}

// dayAtPoint resolves a display end point like "11:00" against the day,
// falling back to the hour after the last occupied hour-point.
func dayAtPoint(day, point string, endHour int) time.Time {
	hh, mm, ok := strings.Cut(point, ":")
	if ok {
		h, herr := strconv.Atoi(strings.TrimSpace(hh))
		m, merr := strconv.Atoi(strings.TrimSpace(mm))
		if herr == nil && merr == nil && h >= 0 && h <= 24 && m >= 0 && m < 60 {
			t, _ := time.Parse(domain.DayFormat, day)
			return t.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
		}
	}
	return dayAtHour(day, endHour+1)
}

type lifecycleEvent struct {
	ReservationID string `json:"reservation_id"`
	Code          string `json:"code"`
	UserID        string `json:"user_id"`
	ResourceID    string `json:"resource_id"`
	ResourceTitle string `json:"resource_title"`
	Day           string `json:"day"`
	StartHour     int    `json:"start_hour"`
	EndHour       int    `json:"end_hour"`
	Price         int    `json:"price"`
}

func reservationEvent(res domain.Reservation) lifecycleEvent {
	return lifecycleEvent{
		ReservationID: res.ID,
		Code:          res.Code,
		UserID:        res.UserID,
		ResourceID:    res.ResourceID,
		ResourceTitle: res.ResourceTitle,
		Day:           res.Day,
		StartHour:     res.StartHour,
		EndHour:       res.EndHour,
		Price:         res.Price,
	}
}

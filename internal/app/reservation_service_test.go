package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/chenbitou/RoomAppt/internal/clock"
	"github.com/chenbitou/RoomAppt/internal/domain"
)

func TestReservationService_Create(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	const day = "2025-06-10"

	openCourt := domain.Resource{
		ID:           "res-1",
		Title:        "Court A",
		CategoryID:   "cate-1",
		CategoryName: "Courts",
		Status:       domain.ResourceStatusOpen,
		CancelPolicy: 1,
		EditPolicy:   1,
	}

	makeSvc := func(repo *fakeReservationRepo, opts ...ReservationServiceOption) *ReservationService {
		opts = append(opts, WithLogger(log.New(io.Discard, "", 0)))
		return NewReservationService(repo, clock.NewFixed(now), opts...)
	}

	t.Run("books a free range and snapshots the resource", func(t *testing.T) {
		repo := newFakeReservationRepo(openCourt)
		repo.setWindows("res-1", day, domain.TimeWindow{StartHour: 9, EndHour: 11, Price: 50})
		pub := &fakePublisher{}
		svc := makeSvc(repo, WithEventPublisher(pub))

		res, err := svc.Create(context.Background(), CreateReservationInput{
			UserID:     "user-1",
			ResourceID: "res-1",
			Day:        day,
			StartHour:  9,
			EndHour:    10,
			Price:      100,
			Forms:      json.RawMessage(`[{"name":"联系人","val":"A"}]`),
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if res.ID == "" || res.Code == "" {
			t.Fatalf("expected id and receipt code to be set, got %+v", res)
		}
		if res.Status != domain.StatusWaiting {
			t.Fatalf("expected status waiting, got %s", res.Status)
		}
		if res.ResourceTitle != "Court A" || res.CategoryID != "cate-1" || res.CategoryName != "Courts" {
			t.Fatalf("expected resource snapshot, got %+v", res)
		}
		wantStart := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
		if !res.StartAt.Equal(wantStart) {
			t.Fatalf("expected start at %v, got %v", wantStart, res.StartAt)
		}
		if res.EndPoint != "11:00" {
			t.Fatalf("expected derived end point 11:00, got %q", res.EndPoint)
		}
		wantEnd := time.Date(2025, 6, 10, 11, 0, 0, 0, time.UTC)
		if !res.EndAt.Equal(wantEnd) {
			t.Fatalf("expected end at %v, got %v", wantEnd, res.EndAt)
		}
		if repo.lockCalls != 1 {
			t.Fatalf("expected one resource-day lock, got %d", repo.lockCalls)
		}
		if got := repo.resources["res-1"].ActiveCount; got != 1 {
			t.Fatalf("expected active count 1, got %d", got)
		}
		if len(pub.published) != 1 || pub.published[0] != "reservation.created" {
			t.Fatalf("expected reservation.created event, got %v", pub.published)
		}
	})

	t.Run("inclusive boundary scenario on one window", func(t *testing.T) {
		repo := newFakeReservationRepo(openCourt)
		repo.setWindows("res-1", day, domain.TimeWindow{StartHour: 9, EndHour: 11, Price: 50})
		svc := makeSvc(repo)

		book := func(start, end int) error {
			_, err := svc.Create(context.Background(), CreateReservationInput{
				UserID:     "user-1",
				ResourceID: "res-1",
				Day:        day,
				StartHour:  start,
				EndHour:    end,
			})
			return err
		}

		if err := book(9, 10); err != nil {
			t.Fatalf("first booking: expected no error, got %v", err)
		}

		err := book(10, 11)
		ce, ok := domain.AsConflict(err)
		if !ok {
			t.Fatalf("second booking: expected ConflictError, got %v", err)
		}
		if ce.Hour != 10 {
			t.Fatalf("second booking: expected conflicting hour 10, got %d", ce.Hour)
		}

		// Point 11 was only in the rejected request's range, never booked.
		if err := book(11, 11); err != nil {
			t.Fatalf("third booking: expected no error, got %v", err)
		}

		if got := repo.resources["res-1"].ActiveCount; got != 2 {
			t.Fatalf("expected active count 2 after two successful bookings, got %d", got)
		}
	})

	t.Run("missing or closed resource", func(t *testing.T) {
		closed := openCourt
		closed.ID = "res-closed"
		closed.Status = domain.ResourceStatusClosed
		repo := newFakeReservationRepo(closed)
		svc := makeSvc(repo)

		for _, id := range []string{"res-closed", "res-unknown"} {
			_, err := svc.Create(context.Background(), CreateReservationInput{
				UserID:     "user-1",
				ResourceID: id,
				Day:        day,
				StartHour:  9,
				EndHour:    10,
			})
			if err != domain.ErrResourceNotFound {
				t.Fatalf("resource %s: expected ErrResourceNotFound, got %v", id, err)
			}
		}
	})

	t.Run("rejects malformed and off-grid ranges", func(t *testing.T) {
		repo := newFakeReservationRepo(openCourt)
		repo.setWindows("res-1", day, domain.TimeWindow{StartHour: 9, EndHour: 11, Price: 50})
		svc := makeSvc(repo)

		cases := []struct{ start, end int }{
			{10, 9},  // start after end
			{-1, 5},  // below the clock
			{12, 13}, // outside the configured grid
			{11, 12}, // partially outside
		}
		for _, tc := range cases {
			_, err := svc.Create(context.Background(), CreateReservationInput{
				UserID:     "user-1",
				ResourceID: "res-1",
				Day:        day,
				StartHour:  tc.start,
				EndHour:    tc.end,
			})
			if err != domain.ErrInvalidRange {
				t.Fatalf("range (%d,%d): expected ErrInvalidRange, got %v", tc.start, tc.end, err)
			}
		}
	})

	t.Run("rejects a day without window config", func(t *testing.T) {
		repo := newFakeReservationRepo(openCourt)
		svc := makeSvc(repo)

		_, err := svc.Create(context.Background(), CreateReservationInput{
			UserID:     "user-1",
			ResourceID: "res-1",
			Day:        day,
			StartHour:  9,
			EndHour:    10,
		})
		if err != domain.ErrInvalidRange {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
	})

	t.Run("rejects malformed day", func(t *testing.T) {
		repo := newFakeReservationRepo(openCourt)
		svc := makeSvc(repo)

		_, err := svc.Create(context.Background(), CreateReservationInput{
			UserID:     "user-1",
			ResourceID: "res-1",
			Day:        "10/06/2025",
			StartHour:  9,
			EndHour:    10,
		})
		if err != domain.ErrInvalidDay {
			t.Fatalf("expected ErrInvalidDay, got %v", err)
		}
	})

	t.Run("demo windows validate against any configured day", func(t *testing.T) {
		repo := newFakeReservationRepo(openCourt)
		repo.setWindows("res-1", "2025-01-01", domain.TimeWindow{StartHour: 9, EndHour: 11, Price: 50})
		svc := makeSvc(repo, WithDemoWindows(true))

		_, err := svc.Create(context.Background(), CreateReservationInput{
			UserID:     "user-1",
			ResourceID: "res-1",
			Day:        day,
			StartHour:  9,
			EndHour:    10,
		})
		if err != nil {
			t.Fatalf("expected no error in demo mode, got %v", err)
		}
	})

	t.Run("count refresh failure does not fail the booking", func(t *testing.T) {
		repo := newFakeReservationRepo(openCourt)
		repo.setWindows("res-1", day, domain.TimeWindow{StartHour: 9, EndHour: 11, Price: 50})
		repo.countErr = errors.New("stats store down")
		svc := makeSvc(repo)

		_, err := svc.Create(context.Background(), CreateReservationInput{
			UserID:     "user-1",
			ResourceID: "res-1",
			Day:        day,
			StartHour:  9,
			EndHour:    10,
		})
		if err != nil {
			t.Fatalf("expected booking to succeed, got %v", err)
		}
	})

	t.Run("publish failure does not fail the booking", func(t *testing.T) {
		repo := newFakeReservationRepo(openCourt)
		repo.setWindows("res-1", day, domain.TimeWindow{StartHour: 9, EndHour: 11, Price: 50})
		pub := &fakePublisher{err: errors.New("broker down")}
		svc := makeSvc(repo, WithEventPublisher(pub))

		_, err := svc.Create(context.Background(), CreateReservationInput{
			UserID:     "user-1",
			ResourceID: "res-1",
			Day:        day,
			StartHour:  9,
			EndHour:    10,
		})
		if err != nil {
			t.Fatalf("expected booking to succeed, got %v", err)
		}
	})
}

func TestReservationService_Edit(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)

	resource := domain.Resource{
		ID:         "res-1",
		Title:      "Court A",
		CategoryID: "cate-1",
		Status:     domain.ResourceStatusOpen,
		EditPolicy: 1,
	}
	booking := domain.Reservation{
		ID:         "join-1",
		UserID:     "user-1",
		ResourceID: "res-1",
		Day:        "2025-06-10",
		StartHour:  9,
		EndHour:    10,
		Status:     domain.StatusWaiting,
		Forms:      json.RawMessage(`[]`),
		StartAt:    time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2025, 6, 10, 11, 0, 0, 0, time.UTC),
	}

	makeSvc := func(repo *fakeReservationRepo) *ReservationService {
		return NewReservationService(repo, clock.NewFixed(now), WithLogger(log.New(io.Discard, "", 0)))
	}

	t.Run("overwrites only the form payload", func(t *testing.T) {
		repo := newFakeReservationRepo(resource)
		repo.addReservation(booking)
		svc := makeSvc(repo)

		forms := json.RawMessage(`[{"name":"联系人","val":"B"}]`)
		err := svc.Edit(context.Background(), EditReservationInput{
			UserID:        "user-1",
			ResourceID:    "res-1",
			ReservationID: "join-1",
			Forms:         forms,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got := repo.reservations["join-1"]
		if string(got.Forms) != string(forms) {
			t.Fatalf("expected forms replaced, got %s", got.Forms)
		}
		if got.StartHour != 9 || got.EndHour != 10 || got.Day != "2025-06-10" {
			t.Fatalf("expected slot fields untouched, got %+v", got)
		}
		if !got.UpdatedAt.Equal(now) {
			t.Fatalf("expected updated_at bumped to %v, got %v", now, got.UpdatedAt)
		}
	})

	t.Run("unknown or foreign reservation", func(t *testing.T) {
		repo := newFakeReservationRepo(resource)
		repo.addReservation(booking)
		svc := makeSvc(repo)

		err := svc.Edit(context.Background(), EditReservationInput{
			UserID:        "user-2",
			ResourceID:    "res-1",
			ReservationID: "join-1",
		})
		if err != domain.ErrReservationNotFound {
			t.Fatalf("expected ErrReservationNotFound for foreign user, got %v", err)
		}
	})

	t.Run("resource mismatch is treated as missing", func(t *testing.T) {
		repo := newFakeReservationRepo(resource)
		repo.addReservation(booking)
		svc := makeSvc(repo)

		err := svc.Edit(context.Background(), EditReservationInput{
			UserID:        "user-1",
			ResourceID:    "res-other",
			ReservationID: "join-1",
		})
		if err != domain.ErrReservationNotFound {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})

	t.Run("cancelled reservation is not editable", func(t *testing.T) {
		cancelled := booking
		cancelled.Status = domain.StatusCancelled
		repo := newFakeReservationRepo(resource)
		repo.addReservation(cancelled)
		svc := makeSvc(repo)

		err := svc.Edit(context.Background(), EditReservationInput{
			UserID:        "user-1",
			ResourceID:    "res-1",
			ReservationID: "join-1",
		})
		if err != domain.ErrReservationNotFound {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})

	t.Run("edit policy 2 forbids after start", func(t *testing.T) {
		strict := resource
		strict.EditPolicy = 2
		started := booking
		started.StartAt = now.Add(-time.Hour)
		repo := newFakeReservationRepo(strict)
		repo.addReservation(started)
		svc := makeSvc(repo)

		err := svc.Edit(context.Background(), EditReservationInput{
			UserID:        "user-1",
			ResourceID:    "res-1",
			ReservationID: "join-1",
		})
		if err != domain.ErrEditNotAllowed {
			t.Fatalf("expected ErrEditNotAllowed, got %v", err)
		}
	})

	t.Run("checked-in reservation is locked", func(t *testing.T) {
		locked := booking
		locked.CheckedIn = true
		repo := newFakeReservationRepo(resource)
		repo.addReservation(locked)
		svc := makeSvc(repo)

		err := svc.Edit(context.Background(), EditReservationInput{
			UserID:        "user-1",
			ResourceID:    "res-1",
			ReservationID: "join-1",
		})
		if err != domain.ErrCheckedIn {
			t.Fatalf("expected ErrCheckedIn, got %v", err)
		}
	})
}

func TestReservationService_Cancel(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)

	resource := domain.Resource{
		ID:           "res-1",
		Title:        "Court A",
		Status:       domain.ResourceStatusOpen,
		CancelPolicy: 1,
	}
	booking := domain.Reservation{
		ID:         "join-1",
		UserID:     "user-1",
		ResourceID: "res-1",
		Day:        "2025-06-10",
		StartHour:  9,
		EndHour:    10,
		Status:     domain.StatusConfirmed,
		CheckedIn:  false,
		StartAt:    time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2025, 6, 10, 11, 0, 0, 0, time.UTC),
	}

	makeSvc := func(repo *fakeReservationRepo, opts ...ReservationServiceOption) *ReservationService {
		opts = append(opts, WithLogger(log.New(io.Discard, "", 0)))
		return NewReservationService(repo, clock.NewFixed(now), opts...)
	}

	t.Run("cancels and refreshes the count", func(t *testing.T) {
		repo := newFakeReservationRepo(resource)
		repo.addReservation(booking)
		repo.resources["res-1"] = withCount(repo.resources["res-1"], 1)
		pub := &fakePublisher{}
		svc := makeSvc(repo, WithEventPublisher(pub))

		if err := svc.Cancel(context.Background(), "user-1", "join-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got := repo.reservations["join-1"]
		if got.Status != domain.StatusCancelled {
			t.Fatalf("expected status cancelled, got %s", got.Status)
		}
		if got.CheckedIn {
			t.Fatalf("expected checked-in flag cleared")
		}
		if repo.resources["res-1"].ActiveCount != 0 {
			t.Fatalf("expected active count back to 0, got %d", repo.resources["res-1"].ActiveCount)
		}
		if len(pub.published) != 1 || pub.published[0] != "reservation.cancelled" {
			t.Fatalf("expected reservation.cancelled event, got %v", pub.published)
		}
	})

	t.Run("policy 0 always forbids", func(t *testing.T) {
		strict := resource
		strict.CancelPolicy = 0
		repo := newFakeReservationRepo(strict)
		repo.addReservation(booking)
		svc := makeSvc(repo)

		if err := svc.Cancel(context.Background(), "user-1", "join-1"); err != domain.ErrCancelNotAllowed {
			t.Fatalf("expected ErrCancelNotAllowed, got %v", err)
		}
		if repo.reservations["join-1"].Status != domain.StatusConfirmed {
			t.Fatalf("expected reservation untouched")
		}
	})

	t.Run("checked-in reservation is locked", func(t *testing.T) {
		locked := booking
		locked.CheckedIn = true
		repo := newFakeReservationRepo(resource)
		repo.addReservation(locked)
		svc := makeSvc(repo)

		if err := svc.Cancel(context.Background(), "user-1", "join-1"); err != domain.ErrCheckedIn {
			t.Fatalf("expected ErrCheckedIn, got %v", err)
		}
	})

	t.Run("already cancelled reservation is not actionable", func(t *testing.T) {
		cancelled := booking
		cancelled.Status = domain.StatusCancelled
		repo := newFakeReservationRepo(resource)
		repo.addReservation(cancelled)
		svc := makeSvc(repo)

		if err := svc.Cancel(context.Background(), "user-1", "join-1"); err != domain.ErrReservationNotFound {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})

	t.Run("day cutoff policy honours the calendar", func(t *testing.T) {
		strict := resource
		strict.CancelPolicy = 23
		repo := newFakeReservationRepo(strict)
		repo.addReservation(booking)

		// 4 days before the end date: allowed.
		early := NewReservationService(repo, clock.NewFixed(time.Date(2025, 6, 6, 12, 0, 0, 0, time.UTC)),
			WithLogger(log.New(io.Discard, "", 0)))
		if err := early.Cancel(context.Background(), "user-1", "join-1"); err != nil {
			t.Fatalf("expected cancel 4 days out to succeed, got %v", err)
		}

		// Reset and try again 2 days before: forbidden.
		repo.addReservation(booking)
		late := NewReservationService(repo, clock.NewFixed(time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)),
			WithLogger(log.New(io.Discard, "", 0)))
		if err := late.Cancel(context.Background(), "user-1", "join-1"); err != domain.ErrCancelNotAllowed {
			t.Fatalf("expected ErrCancelNotAllowed 2 days out, got %v", err)
		}
	})
}

func withCount(res domain.Resource, count int) domain.Resource {
	res.ActiveCount = count
	return res
}

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) PublishJSON(_ context.Context, key string, _ any) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, key)
	return nil
}

type fakeReservationRepo struct {
	resources    map[string]domain.Resource
	windows      map[string][]domain.TimeWindow
	reservations map[string]domain.Reservation
	countErr     error
	lockCalls    int
}

func newFakeReservationRepo(resources ...domain.Resource) *fakeReservationRepo {
	f := &fakeReservationRepo{
		resources:    make(map[string]domain.Resource),
		windows:      make(map[string][]domain.TimeWindow),
		reservations: make(map[string]domain.Reservation),
	}
	for _, res := range resources {
		f.resources[res.ID] = res
	}
	return f
}

func (f *fakeReservationRepo) setWindows(resourceID, day string, windows ...domain.TimeWindow) {
	f.windows[resourceID+"|"+day] = windows
}

func (f *fakeReservationRepo) addReservation(res domain.Reservation) {
	f.reservations[res.ID] = res
}

func (f *fakeReservationRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeReservationRepo) LockResourceDay(_ context.Context, resourceID, day string) error {
	f.lockCalls++
	return nil
}

func (f *fakeReservationRepo) GetOpenResource(_ context.Context, resourceID string) (domain.Resource, error) {
	res, ok := f.resources[resourceID]
	if !ok || res.Status != domain.ResourceStatusOpen {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return res, nil
}

func (f *fakeReservationRepo) GetResource(_ context.Context, resourceID string) (domain.Resource, error) {
	res, ok := f.resources[resourceID]
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return res, nil
}

func (f *fakeReservationRepo) GetDayWindows(_ context.Context, resourceID, day string) ([]domain.TimeWindow, error) {
	return f.windows[resourceID+"|"+day], nil
}

func (f *fakeReservationRepo) GetAnyDayWindows(_ context.Context, resourceID string) ([]domain.TimeWindow, error) {
	for key, windows := range f.windows {
		if len(key) > len(resourceID) && key[:len(resourceID)+1] == resourceID+"|" {
			return windows, nil
		}
	}
	return nil, nil
}

func (f *fakeReservationRepo) ListActiveByResourceDay(_ context.Context, resourceID, day string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, res := range f.reservations {
		if res.ResourceID == resourceID && res.Day == day && res.Active() {
			out = append(out, res)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) CreateReservation(_ context.Context, res domain.Reservation) error {
	f.reservations[res.ID] = res
	return nil
}

func (f *fakeReservationRepo) GetOwnedReservation(_ context.Context, userID, reservationID string) (domain.Reservation, error) {
	res, ok := f.reservations[reservationID]
	if !ok || res.UserID != userID {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return res, nil
}

func (f *fakeReservationRepo) UpdateForms(_ context.Context, reservationID string, forms json.RawMessage, updatedAt time.Time) error {
	res, ok := f.reservations[reservationID]
	if !ok {
		return domain.ErrReservationNotFound
	}
	res.Forms = forms
	res.UpdatedAt = updatedAt
	f.reservations[reservationID] = res
	return nil
}

func (f *fakeReservationRepo) MarkCancelled(_ context.Context, reservationID string, updatedAt time.Time) error {
	res, ok := f.reservations[reservationID]
	if !ok {
		return domain.ErrReservationNotFound
	}
	res.Status = domain.StatusCancelled
	res.CheckedIn = false
	res.UpdatedAt = updatedAt
	f.reservations[reservationID] = res
	return nil
}

func (f *fakeReservationRepo) CountActive(_ context.Context, resourceID string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	count := 0
	for _, res := range f.reservations {
		if res.ResourceID == resourceID && res.Active() {
			count++
		}
	}
	return count, nil
}

func (f *fakeReservationRepo) UpdateActiveCount(_ context.Context, resourceID string, count int) error {
	res, ok := f.resources[resourceID]
	if !ok {
		return domain.ErrResourceNotFound
	}
	res.ActiveCount = count
	f.resources[resourceID] = res
	return nil
}

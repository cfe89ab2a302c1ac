package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chenbitou/RoomAppt/internal/clock"
	"github.com/chenbitou/RoomAppt/internal/domain"
)

// CatalogRepository is the storage needed for catalog management.
type CatalogRepository interface {
	CreateResource(ctx context.Context, res domain.Resource) error
	// ListResources returns the category's resources in display order
	// regardless of status.
	ListResources(ctx context.Context, categoryID string) ([]domain.Resource, error)
	GetResource(ctx context.Context, resourceID string) (domain.Resource, error)
	// ReplaceDayWindows overwrites the window list of one resource-day.
	ReplaceDayWindows(ctx context.Context, resourceID, day string, windows []domain.TimeWindow) error
}

// CatalogService owns resources and their day window configuration. The
// booking engine only reads what this service writes.
type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type CreateResourceInput struct {
	Title        string
	CategoryID   string
	CategoryName string
	DisplayOrder int
	EditPolicy   int
	CancelPolicy int
}

func (s *CatalogService) CreateResource(ctx context.Context, in CreateResourceInput) (domain.Resource, error) {
	if in.Title == "" {
		return domain.Resource{}, domain.ErrTitleRequired
	}
	if in.CategoryID == "" {
		return domain.Resource{}, domain.ErrCategoryRequired
	}
	if in.EditPolicy < 0 || in.CancelPolicy < 0 {
		return domain.Resource{}, domain.ErrInvalidPolicy
	}

	res := domain.Resource{
		ID:           uuid.NewString(),
		Title:        in.Title,
		CategoryID:   in.CategoryID,
		CategoryName: in.CategoryName,
		Status:       domain.ResourceStatusOpen,
		DisplayOrder: in.DisplayOrder,
		EditPolicy:   in.EditPolicy,
		CancelPolicy: in.CancelPolicy,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.repo.CreateResource(ctx, res); err != nil {
		return domain.Resource{}, err
	}
	return res, nil
}

func (s *CatalogService) ListResources(ctx context.Context, categoryID string) ([]domain.Resource, error) {
	if categoryID == "" {
		return nil, domain.ErrCategoryRequired
	}
	return s.repo.ListResources(ctx, categoryID)
}

// SetDayWindows replaces the configured windows for a resource-day.
func (s *CatalogService) SetDayWindows(ctx context.Context, resourceID, day string, windows []domain.TimeWindow) error {
	if _, err := time.Parse(domain.DayFormat, day); err != nil {
		return domain.ErrInvalidDay
	}
	for _, w := range windows {
		if w.StartHour < 0 || w.EndHour > 23 || w.StartHour > w.EndHour || w.Price < 0 {
			return domain.ErrInvalidWindow
		}
	}

	if _, err := s.repo.GetResource(ctx, resourceID); err != nil {
		return err
	}
	return s.repo.ReplaceDayWindows(ctx, resourceID, day, windows)
}

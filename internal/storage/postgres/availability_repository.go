package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chenbitou/RoomAppt/internal/domain"
)

// AvailabilityRepository serves the read side of day availability. All
// queries run against the live tables; freshness over caching.
type AvailabilityRepository struct {
	pool *pgxpool.Pool
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func (r *AvailabilityRepository) ListOpenResources(ctx context.Context, categoryID string) ([]domain.Resource, error) {
	return listResources(ctx, r.query, categoryID, true)
}

func (r *AvailabilityRepository) GetDayWindows(ctx context.Context, resourceID, day string) ([]domain.TimeWindow, error) {
	const query = `
SELECT start_hour, end_hour, price
FROM resource_day_windows
WHERE resource_id = $1 AND day = $2
ORDER BY position`
	return queryWindows(ctx, r.query, query, resourceID, day)
}

func (r *AvailabilityRepository) GetAnyDayWindows(ctx context.Context, resourceID string) ([]domain.TimeWindow, error) {
	const query = `
SELECT start_hour, end_hour, price
FROM resource_day_windows
WHERE resource_id = $1
ORDER BY day, position`
	return queryWindows(ctx, r.query, query, resourceID)
}

func (r *AvailabilityRepository) MaxConfiguredDay(ctx context.Context, categoryID, fromDay string) (string, error) {
	const query = `
SELECT COALESCE(MAX(w.day), '')
FROM resource_day_windows w
JOIN resources r ON r.id = w.resource_id
WHERE r.category_id = $1 AND w.day >= $2`

	var day string
	if err := r.queryRow(ctx, query, categoryID, fromDay).Scan(&day); err != nil {
		return "", fmt.Errorf("max configured day: %w", err)
	}
	return day, nil
}

func (r *AvailabilityRepository) ListActiveByCategoryDay(ctx context.Context, categoryID, day string) ([]domain.Reservation, error) {
	query := `
SELECT ` + reservationColumns + `
FROM reservations
WHERE category_id = $1 AND day = $2 AND status IN ('waiting', 'confirmed')
ORDER BY start_hour`
	return queryReservations(ctx, r.query, query, categoryID, day)
}

func (r *AvailabilityRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *AvailabilityRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

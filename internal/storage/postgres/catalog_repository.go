package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chenbitou/RoomAppt/internal/domain"
)

// CatalogRepository persists resources and their day window configuration.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreateResource(ctx context.Context, res domain.Resource) error {
	const stmt = `
INSERT INTO resources (id, title, category_id, category_name, status, display_order,
	edit_policy, cancel_policy, active_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.exec(ctx, stmt,
		res.ID,
		res.Title,
		res.CategoryID,
		res.CategoryName,
		res.Status,
		res.DisplayOrder,
		res.EditPolicy,
		res.CancelPolicy,
		res.ActiveCount,
		res.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListResources(ctx context.Context, categoryID string) ([]domain.Resource, error) {
	return listResources(ctx, r.query, categoryID, false)
}

func (r *CatalogRepository) GetResource(ctx context.Context, resourceID string) (domain.Resource, error) {
	return getResource(ctx, r.queryRow, resourceID, false)
}

// ReplaceDayWindows swaps the whole window list for a resource-day in one
// transaction so availability readers never observe a half-written day.
func (r *CatalogRepository) ReplaceDayWindows(ctx context.Context, resourceID, day string, windows []domain.TimeWindow) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		if _, err := r.exec(txCtx,
			`DELETE FROM resource_day_windows WHERE resource_id = $1 AND day = $2`,
			resourceID, day,
		); err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("clear day windows: %w", err)
		}

		const stmt = `
INSERT INTO resource_day_windows (resource_id, day, position, start_hour, end_hour, price)
VALUES ($1, $2, $3, $4, $5, $6)`

		for i, w := range windows {
			if _, err := r.exec(txCtx, stmt, resourceID, day, i, w.StartHour, w.EndHour, w.Price); err != nil {
				return fmt.Errorf("insert day window: %w", err)
			}
		}
		return nil
	})
}

func (r *CatalogRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *CatalogRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *CatalogRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

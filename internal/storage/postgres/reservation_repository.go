package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chenbitou/RoomAppt/internal/domain"
)

const reservationColumns = `id, code, user_id, resource_id, category_id, category_name, resource_title,
day, start_hour, end_hour, end_point, price, forms, status, checked_in, start_at, end_at, created_at, updated_at`

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// LockResourceDay takes the transaction-scoped advisory lock for one
// resource-day, serialising concurrent creates so the check-then-insert
// sequence cannot interleave. Must run inside WithTx.
func (r *ReservationRepository) LockResourceDay(ctx context.Context, resourceID, day string) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("lock resource day: no transaction in context")
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, resourceID+"|"+day); err != nil {
		return fmt.Errorf("lock resource day: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetOpenResource(ctx context.Context, resourceID string) (domain.Resource, error) {
	return getResource(ctx, r.queryRow, resourceID, true)
}

func (r *ReservationRepository) GetResource(ctx context.Context, resourceID string) (domain.Resource, error) {
	return getResource(ctx, r.queryRow, resourceID, false)
}

func (r *ReservationRepository) GetDayWindows(ctx context.Context, resourceID, day string) ([]domain.TimeWindow, error) {
	const query = `
SELECT start_hour, end_hour, price
FROM resource_day_windows
WHERE resource_id = $1 AND day = $2
ORDER BY position`
	return queryWindows(ctx, r.query, query, resourceID, day)
}

// GetAnyDayWindows drops the day filter; demo deployments configure a single
// day and show it everywhere.
func (r *ReservationRepository) GetAnyDayWindows(ctx context.Context, resourceID string) ([]domain.TimeWindow, error) {
	const query = `
SELECT start_hour, end_hour, price
FROM resource_day_windows
WHERE resource_id = $1
ORDER BY day, position`
	return queryWindows(ctx, r.query, query, resourceID)
}

func (r *ReservationRepository) ListActiveByResourceDay(ctx context.Context, resourceID, day string) ([]domain.Reservation, error) {
	query := `
SELECT ` + reservationColumns + `
FROM reservations
WHERE resource_id = $1 AND day = $2 AND status IN ('waiting', 'confirmed')
ORDER BY start_hour`
	return queryReservations(ctx, r.query, query, resourceID, day)
}

func (r *ReservationRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, code, user_id, resource_id, category_id, category_name, resource_title,
	day, start_hour, end_hour, end_point, price, forms, status, checked_in, start_at, end_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	forms := res.Forms
	if len(forms) == 0 {
		forms = json.RawMessage(`[]`)
	}

	_, err := r.exec(ctx, stmt,
		res.ID,
		res.Code,
		res.UserID,
		res.ResourceID,
		res.CategoryID,
		res.CategoryName,
		res.ResourceTitle,
		res.Day,
		res.StartHour,
		res.EndHour,
		res.EndPoint,
		res.Price,
		forms,
		res.Status,
		res.CheckedIn,
		res.StartAt,
		res.EndAt,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetOwnedReservation(ctx context.Context, userID, reservationID string) (domain.Reservation, error) {
	query := `
SELECT ` + reservationColumns + `
FROM reservations
WHERE id = $1 AND user_id = $2`

	res, err := scanReservation(r.queryRow(ctx, query, reservationID, userID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get owned reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) UpdateForms(ctx context.Context, reservationID string, forms json.RawMessage, updatedAt time.Time) error {
	if len(forms) == 0 {
		forms = json.RawMessage(`[]`)
	}
	tag, err := r.exec(ctx,
		`UPDATE reservations SET forms = $2, updated_at = $3 WHERE id = $1`,
		reservationID, forms, updatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update forms: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) MarkCancelled(ctx context.Context, reservationID string, updatedAt time.Time) error {
	tag, err := r.exec(ctx,
		`UPDATE reservations SET status = 'cancelled', checked_in = FALSE, updated_at = $2 WHERE id = $1`,
		reservationID, updatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("mark cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) CountActive(ctx context.Context, resourceID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM reservations
WHERE resource_id = $1 AND status IN ('waiting', 'confirmed')`

	var count int
	if err := r.queryRow(ctx, query, resourceID).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count active: %w", err)
	}
	return count, nil
}

func (r *ReservationRepository) UpdateActiveCount(ctx context.Context, resourceID string, count int) error {
	tag, err := r.exec(ctx,
		`UPDATE resources SET active_count = $2 WHERE id = $1`,
		resourceID, count,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update active count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chenbitou/RoomAppt/internal/domain"
)

// Query helpers shared by the repositories in this package. Each repository
// exposes tx-aware query/queryRow methods; these helpers do the scanning.

type rowQuerier func(ctx context.Context, sql string, args ...any) pgx.Row

type rowsQuerier func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)

const resourceColumns = `id, title, category_id, category_name, status, display_order,
edit_policy, cancel_policy, active_count, created_at`

func getResource(ctx context.Context, q rowQuerier, resourceID string, openOnly bool) (domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	if openOnly {
		query += ` AND status = 'open'`
	}

	res, err := scanResource(q(ctx, query, resourceID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Resource{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return res, nil
}

func listResources(ctx context.Context, q rowsQuerier, categoryID string, openOnly bool) ([]domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE category_id = $1`
	if openOnly {
		query += ` AND status = 'open'`
	}
	// Display order then creation time, both ascending: the ordering the UI
	// depends on.
	query += ` ORDER BY display_order, created_at`

	rows, err := q(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []domain.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return out, nil
}

func queryWindows(ctx context.Context, q rowsQuerier, query string, args ...any) ([]domain.TimeWindow, error) {
	rows, err := q(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer rows.Close()

	var windows []domain.TimeWindow
	for rows.Next() {
		var w domain.TimeWindow
		if err := rows.Scan(&w.StartHour, &w.EndHour, &w.Price); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list windows: %w", err)
	}
	return windows, nil
}

func queryReservations(ctx context.Context, q rowsQuerier, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := q(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return out, nil
}

func scanResource(row pgx.Row) (domain.Resource, error) {
	var res domain.Resource
	err := row.Scan(
		&res.ID,
		&res.Title,
		&res.CategoryID,
		&res.CategoryName,
		&res.Status,
		&res.DisplayOrder,
		&res.EditPolicy,
		&res.CancelPolicy,
		&res.ActiveCount,
		&res.CreatedAt,
	)
	return res, err
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var res domain.Reservation
	err := row.Scan(
		&res.ID,
		&res.Code,
		&res.UserID,
		&res.ResourceID,
		&res.CategoryID,
		&res.CategoryName,
		&res.ResourceTitle,
		&res.Day,
		&res.StartHour,
		&res.EndHour,
		&res.EndPoint,
		&res.Price,
		&res.Forms,
		&res.Status,
		&res.CheckedIn,
		&res.StartAt,
		&res.EndAt,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	return res, err
}

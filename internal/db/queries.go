package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/chartd/internal/chart"
	"github.com/hpungsan/chartd/internal/errors"
)

// Every saved_charts statement is scoped by user_id: the store, not the
// caller, enforces that an identity only sees and removes its own rows.

// InsertChart stores a new saved chart. The store assigns c.ID and
// c.CreatedAt; any values already set on c are overwritten.
func InsertChart(ctx context.Context, db *sql.DB, c *chart.SavedChart) error {
	id, err := NewID()
	if err != nil {
		return errors.NewInternal(err)
	}
	now := time.Now().UnixMilli()

	query := `
		INSERT INTO saved_charts (
			id, user_id, title, chart_type, config, width, height, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		id, c.OwnerID, c.Title, c.ChartType, string(c.Config),
		toNullInt(c.Width), toNullInt(c.Height), now,
	)
	if err != nil {
		if isCheckConstraintError(err) {
			return errors.NewValidation("config", "chart configuration was rejected by the store")
		}
		return errors.NewStoreUnavailable("create", err)
	}

	c.ID = id
	c.CreatedAt = now
	return nil
}

// ListChartsByOwner returns an owner's saved charts, newest first. Rows
// created in the same millisecond keep insertion order via rowid.
func ListChartsByOwner(ctx context.Context, db *sql.DB, ownerID string) ([]chart.SavedChart, error) {
	query := `
		SELECT id, user_id, title, chart_type, config, width, height, created_at
		FROM saved_charts
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`

	rows, err := db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, errors.NewStoreUnavailable("list", err)
	}
	defer rows.Close()

	charts := make([]chart.SavedChart, 0)
	for rows.Next() {
		c, err := scanChart(rows)
		if err != nil {
			return nil, errors.NewStoreUnavailable("list", err)
		}
		charts = append(charts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreUnavailable("list", err)
	}

	return charts, nil
}

// GetChart retrieves one of the owner's charts by ID.
func GetChart(ctx context.Context, db *sql.DB, ownerID, id string) (*chart.SavedChart, error) {
	query := `
		SELECT id, user_id, title, chart_type, config, width, height, created_at
		FROM saved_charts
		WHERE id = ? AND user_id = ?
	`

	c, err := scanChart(db.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("chart", id)
	}
	if err != nil {
		return nil, errors.NewStoreUnavailable("get", err)
	}
	return c, nil
}

// DeleteChart removes one of the owner's charts. It reports whether a row
// was deleted; a missing or foreign ID is not an error.
func DeleteChart(ctx context.Context, db *sql.DB, ownerID, id string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM saved_charts WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return false, errors.NewStoreUnavailable("remove", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewStoreUnavailable("remove", err)
	}
	return rowsAffected > 0, nil
}

// CountChartsByOwner returns how many charts the owner has.
func CountChartsByOwner(ctx context.Context, db *sql.DB, ownerID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM saved_charts WHERE user_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, errors.NewStoreUnavailable("count", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanChart scans a single row into a SavedChart.
func scanChart(row rowScanner) (*chart.SavedChart, error) {
	var (
		c      chart.SavedChart
		config string
		width  sql.NullInt64
		height sql.NullInt64
	)

	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Title, &c.ChartType, &config,
		&width, &height, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Config = []byte(config)
	c.Width = fromNullInt(width)
	c.Height = fromNullInt(height)
	return &c, nil
}

// toNullInt converts an *int to sql.NullInt64.
func toNullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

// fromNullInt converts a sql.NullInt64 to *int.
func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isCheckConstraintError reports a SQLite CHECK constraint violation, which on
// saved_charts means the config column failed json_valid or json_type.
func isCheckConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}

package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gwh-ap/invoice-agent/internal/common"
)

// DashboardSummary aggregates invoice counts and values for the dashboard.
type DashboardSummary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	ByRegion map[string]int `json:"by_region"`
	Monthly  []MonthlyStat  `json:"monthly"`
}

// MonthlyStat is the invoice count and total value for one month.
type MonthlyStat struct {
	Month string  `json:"month"` // YYYY-MM
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type DashboardRepository interface {
	Summary(ctx context.Context, from, to time.Time) (*DashboardSummary, error)
}

type dashboardRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDashboardRepository(pool *pgxpool.Pool, logger *slog.Logger) DashboardRepository {
	return &dashboardRepository{pool: pool, logger: logger}
}

func (r *dashboardRepository) Summary(ctx context.Context, from, to time.Time) (*DashboardSummary, error) {
	s := &DashboardSummary{
		ByStatus: map[string]int{},
		ByRegion: map[string]int{},
	}

	rows, err := r.pool.Query(ctx, `
		SELECT status, count(*)
		FROM invoice_headers
		WHERE invoice_receipt_date BETWEEN $1 AND $2
		GROUP BY status`, from, to)
	if err != nil {
		r.logger.Error("failed to aggregate by status", "error", err)
		return nil, common.WrapError(err, "aggregate by status")
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, common.WrapError(err, "scan status aggregate")
		}
		s.ByStatus[status] = n
		s.Total += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "aggregate by status")
	}

	rows, err = r.pool.Query(ctx, `
		SELECT COALESCE(region, 'UNKNOWN'), count(*)
		FROM invoice_headers
		WHERE invoice_receipt_date BETWEEN $1 AND $2
		GROUP BY 1`, from, to)
	if err != nil {
		r.logger.Error("failed to aggregate by region", "error", err)
		return nil, common.WrapError(err, "aggregate by region")
	}
	for rows.Next() {
		var region string
		var n int
		if err := rows.Scan(&region, &n); err != nil {
			rows.Close()
			return nil, common.WrapError(err, "scan region aggregate")
		}
		s.ByRegion[region] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "aggregate by region")
	}

	rows, err = r.pool.Query(ctx, `
		SELECT to_char(date_trunc('month', invoice_receipt_date), 'YYYY-MM'),
			count(*), COALESCE(sum(total), 0)
		FROM invoice_headers
		WHERE invoice_receipt_date BETWEEN $1 AND $2
		GROUP BY 1
		ORDER BY 1`, from, to)
	if err != nil {
		r.logger.Error("failed to aggregate monthly", "error", err)
		return nil, common.WrapError(err, "aggregate monthly")
	}
	defer rows.Close()
	for rows.Next() {
		var m MonthlyStat
		if err := rows.Scan(&m.Month, &m.Count, &m.Value); err != nil {
			return nil, common.WrapError(err, "scan monthly aggregate")
		}
		s.Monthly = append(s.Monthly, m)
	}
	return s, rows.Err()
}

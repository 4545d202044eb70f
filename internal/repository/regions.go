package repository

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
)

// RegionSummary is one reporting region with its country count.
type RegionSummary struct {
	RegionCode   string `json:"region_code"`
	CountryCount int    `json:"country_count"`
}

type RegionRepository interface {
	ListRegions(ctx context.Context) ([]*RegionSummary, error)
	ListCountries(ctx context.Context, regionCode string) ([]*entity.RegionCountry, error)
}

type regionRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewRegionRepository(pool *pgxpool.Pool, logger *slog.Logger) RegionRepository {
	return &regionRepository{pool: pool, logger: logger}
}

func (r *regionRepository) ListRegions(ctx context.Context) ([]*RegionSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT region_code, count(*)
		FROM regions
		GROUP BY region_code
		ORDER BY region_code`)
	if err != nil {
		r.logger.Error("failed to list regions", "error", err)
		return nil, common.WrapError(err, "list regions")
	}
	defer rows.Close()

	var out []*RegionSummary
	for rows.Next() {
		var s RegionSummary
		if err := rows.Scan(&s.RegionCode, &s.CountryCount); err != nil {
			return nil, common.WrapError(err, "scan region")
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *regionRepository) ListCountries(ctx context.Context, regionCode string) ([]*entity.RegionCountry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT region_code, country_code, country_name
		FROM regions
		WHERE region_code = $1
		ORDER BY country_name`, regionCode)
	if err != nil {
		r.logger.Error("failed to list region countries", "region_code", regionCode, "error", err)
		return nil, common.WrapError(err, "list region countries")
	}
	defer rows.Close()

	var out []*entity.RegionCountry
	for rows.Next() {
		var rc entity.RegionCountry
		if err := rows.Scan(&rc.RegionCode, &rc.CountryCode, &rc.CountryName); err != nil {
			return nil, common.WrapError(err, "scan region country")
		}
		out = append(out, &rc)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
)

// RegistryStats summarizes the prompt registry contents.
type RegistryStats struct {
	TemplateCount int            `json:"template_count"`
	ActiveCount   int            `json:"active_count"`
	Countries     int            `json:"countries"`
	Brands        int            `json:"brands"`
	ByMethod      map[string]int `json:"by_method"`
}

type PromptRepository interface {
	// GetPromptTemplate and GetBrandFeedback satisfy registry.Store.
	GetPromptTemplate(ctx context.Context, countryCode, brandName, method string) (*entity.PromptTemplate, error)
	GetBrandFeedback(ctx context.Context, countryCode, brandName string) (*entity.BrandFeedback, error)

	UpsertBrandFeedback(ctx context.Context, fb *entity.BrandFeedback) error
	ListTemplates(ctx context.Context, countryCode, brandName string) ([]*entity.PromptTemplate, error)
	CreateTemplate(ctx context.Context, tpl *entity.PromptTemplate) error
	OverwriteTemplate(ctx context.Context, tpl *entity.PromptTemplate) error
	UpdateTemplate(ctx context.Context, tpl *entity.PromptTemplate) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	ListCountries(ctx context.Context) ([]string, error)
	ListBrands(ctx context.Context, countryCode string) ([]string, error)
	Stats(ctx context.Context) (*RegistryStats, error)
}

type promptRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPromptRepository(pool *pgxpool.Pool, logger *slog.Logger) PromptRepository {
	return &promptRepository{pool: pool, logger: logger}
}

const promptColumns = `id, country_code, brand_name, processing_method, schema_json,
	prompt, special_instructions, is_active, version, created_at, updated_at`

func (r *promptRepository) GetPromptTemplate(ctx context.Context, countryCode, brandName, method string) (*entity.PromptTemplate, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+promptColumns+`
		FROM prompt_registry
		WHERE country_code = $1 AND lower(brand_name) = lower($2)
			AND processing_method = $3 AND is_active
		ORDER BY version DESC
		LIMIT 1`,
		countryCode, brandName, method)

	tpl, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to load prompt template",
			"country_code", countryCode, "brand_name", brandName, "method", method, "error", err)
		return nil, common.WrapError(err, "load prompt template")
	}
	return tpl, nil
}

func (r *promptRepository) GetBrandFeedback(ctx context.Context, countryCode, brandName string) (*entity.BrandFeedback, error) {
	var fb entity.BrandFeedback
	err := r.pool.QueryRow(ctx, `
		SELECT id, country_code, brand_name, feedback, created_at, updated_at
		FROM brand_feedback
		WHERE country_code = $1 AND lower(brand_name) = lower($2)`,
		countryCode, brandName).
		Scan(&fb.ID, &fb.CountryCode, &fb.BrandName, &fb.Feedback, &fb.CreatedAt, &fb.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "load brand feedback")
	}
	return &fb, nil
}

func (r *promptRepository) ListTemplates(ctx context.Context, countryCode, brandName string) ([]*entity.PromptTemplate, error) {
	query := "SELECT " + promptColumns + " FROM prompt_registry"
	var (
		where []string
		args  []any
	)
	if countryCode != "" {
		args = append(args, countryCode)
		where = append(where, "country_code = $1")
	}
	if brandName != "" {
		args = append(args, brandName)
		if len(args) == 1 {
			where = append(where, "lower(brand_name) = lower($1)")
		} else {
			where = append(where, "lower(brand_name) = lower($2)")
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY country_code, brand_name, processing_method, version DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list prompt templates", "error", err)
		return nil, common.WrapError(err, "list prompt templates")
	}
	defer rows.Close()

	var out []*entity.PromptTemplate
	for rows.Next() {
		tpl, serr := scanTemplate(rows)
		if serr != nil {
			return nil, common.WrapError(serr, "scan prompt template")
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

// CreateTemplate inserts a new version and deactivates prior versions of the
// same (country, brand, method) triple.
func (r *promptRepository) CreateTemplate(ctx context.Context, tpl *entity.PromptTemplate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return common.WrapError(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM prompt_registry
		WHERE country_code = $1 AND lower(brand_name) = lower($2) AND processing_method = $3`,
		tpl.CountryCode, tpl.BrandName, tpl.ProcessingMethod).Scan(&version)
	if err != nil {
		return common.WrapError(err, "next template version")
	}

	if _, err = tx.Exec(ctx, `
		UPDATE prompt_registry SET is_active = false, updated_at = now()
		WHERE country_code = $1 AND lower(brand_name) = lower($2) AND processing_method = $3`,
		tpl.CountryCode, tpl.BrandName, tpl.ProcessingMethod); err != nil {
		return common.WrapError(err, "deactivate prior versions")
	}

	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	tpl.Version = version
	tpl.IsActive = true
	if _, err = tx.Exec(ctx, `
		INSERT INTO prompt_registry (
			id, country_code, brand_name, processing_method, schema_json,
			prompt, special_instructions, is_active, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())`,
		tpl.ID, tpl.CountryCode, strings.ToLower(tpl.BrandName), tpl.ProcessingMethod,
		[]byte(tpl.SchemaJSON), tpl.Prompt, tpl.SpecialInstructions, tpl.IsActive, tpl.Version); err != nil {
		r.logger.Error("failed to create prompt template",
			"country_code", tpl.CountryCode, "brand_name", tpl.BrandName, "error", err)
		return common.WrapError(err, "create prompt template")
	}

	if err := tx.Commit(ctx); err != nil {
		return common.WrapError(err, "commit prompt template")
	}
	r.logger.Info("prompt template created",
		"country_code", tpl.CountryCode, "brand_name", tpl.BrandName,
		"processing_method", tpl.ProcessingMethod, "version", tpl.Version)
	return nil
}

// OverwriteTemplate replaces the latest active version in place instead of
// cutting a new one.
func (r *promptRepository) OverwriteTemplate(ctx context.Context, tpl *entity.PromptTemplate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE prompt_registry SET
			schema_json = $4, prompt = $5, special_instructions = $6, updated_at = now()
		WHERE country_code = $1 AND lower(brand_name) = lower($2)
			AND processing_method = $3 AND is_active`,
		tpl.CountryCode, tpl.BrandName, tpl.ProcessingMethod,
		[]byte(tpl.SchemaJSON), tpl.Prompt, tpl.SpecialInstructions)
	if err != nil {
		return common.WrapError(err, "overwrite prompt template")
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundErrorf("no active template for %s/%s/%s",
			tpl.CountryCode, tpl.BrandName, tpl.ProcessingMethod)
	}
	return nil
}

func (r *promptRepository) UpdateTemplate(ctx context.Context, tpl *entity.PromptTemplate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE prompt_registry SET
			schema_json = $2, prompt = $3, special_instructions = $4,
			is_active = $5, updated_at = now()
		WHERE id = $1`,
		tpl.ID, []byte(tpl.SchemaJSON), tpl.Prompt, tpl.SpecialInstructions, tpl.IsActive)
	if err != nil {
		return common.WrapError(err, "update prompt template")
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundErrorf("template %s not found", tpl.ID)
	}
	return nil
}

func (r *promptRepository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM prompt_registry WHERE id = $1`, id)
	if err != nil {
		return common.WrapError(err, "delete prompt template")
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundErrorf("template %s not found", id)
	}
	return nil
}

func (r *promptRepository) ListCountries(ctx context.Context) ([]string, error) {
	return r.stringList(ctx, `SELECT DISTINCT country_code FROM prompt_registry ORDER BY country_code`)
}

func (r *promptRepository) ListBrands(ctx context.Context, countryCode string) ([]string, error) {
	return r.stringList(ctx,
		`SELECT DISTINCT brand_name FROM prompt_registry WHERE country_code = $1 ORDER BY brand_name`,
		countryCode)
}

func (r *promptRepository) Stats(ctx context.Context) (*RegistryStats, error) {
	stats := &RegistryStats{ByMethod: map[string]int{}}
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE is_active),
			count(DISTINCT country_code),
			count(DISTINCT brand_name)
		FROM prompt_registry`).
		Scan(&stats.TemplateCount, &stats.ActiveCount, &stats.Countries, &stats.Brands)
	if err != nil {
		return nil, common.WrapError(err, "registry stats")
	}

	rows, err := r.pool.Query(ctx,
		`SELECT processing_method, count(*) FROM prompt_registry GROUP BY processing_method`)
	if err != nil {
		return nil, common.WrapError(err, "registry stats by method")
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var n int
		if err := rows.Scan(&method, &n); err != nil {
			return nil, common.WrapError(err, "scan registry stats")
		}
		stats.ByMethod[method] = n
	}
	return stats, rows.Err()
}

func (r *promptRepository) stringList(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, common.WrapError(err, "list values")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, common.WrapError(err, "scan value")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanTemplate(row pgx.Row) (*entity.PromptTemplate, error) {
	var tpl entity.PromptTemplate
	var schema []byte
	err := row.Scan(&tpl.ID, &tpl.CountryCode, &tpl.BrandName, &tpl.ProcessingMethod,
		&schema, &tpl.Prompt, &tpl.SpecialInstructions, &tpl.IsActive, &tpl.Version,
		&tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tpl.SchemaJSON = schema
	return &tpl, nil
}

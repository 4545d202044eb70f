package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
)

// UpsertBrandFeedback stores reviewer feedback for a (country, brand) pair,
// replacing any previous note.
func (r *promptRepository) UpsertBrandFeedback(ctx context.Context, fb *entity.BrandFeedback) error {
	if fb.ID == uuid.Nil {
		fb.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO brand_feedback (id, country_code, brand_name, feedback, created_at, updated_at)
		VALUES ($1,$2,$3,$4,now(),now())
		ON CONFLICT (country_code, brand_name)
		DO UPDATE SET feedback = EXCLUDED.feedback, updated_at = now()`,
		fb.ID, fb.CountryCode, strings.ToLower(fb.BrandName), fb.Feedback)
	if err != nil {
		r.logger.Error("failed to upsert brand feedback",
			"country_code", fb.CountryCode, "brand_name", fb.BrandName, "error", err)
		return common.WrapError(err, "upsert brand feedback")
	}
	return nil
}

// Package registry resolves the extraction configuration (JSON schema and
// prompt instructions) for a supplier: brand-specific entries first, then the
// country default, with reviewer feedback folded into the instructions.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
)

// Store reads registry rows. Implementations: the pgx repository and the
// in-memory store below.
type Store interface {
	// GetPromptTemplate returns the active template for the exact
	// (country, brand, method) triple, or common.ErrNotFound.
	GetPromptTemplate(ctx context.Context, countryCode, brandName, method string) (*entity.PromptTemplate, error)
	// GetBrandFeedback returns feedback for the brand, or common.ErrNotFound.
	GetBrandFeedback(ctx context.Context, countryCode, brandName string) (*entity.BrandFeedback, error)
}

// Config is a resolved extraction configuration.
type Config struct {
	Schema       map[string]any
	Instructions string
	BrandName    string // brand the template row matched ("default" on fallback)
}

// Resolver composes Store lookups into extraction configs.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

func NewResolver(store Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve looks up the configuration for (countryCode, brandName, method).
// Brand names are matched lowercased. When no brand-specific row exists the
// country's "default" row is used; when that is missing too the error wraps
// common.ErrConfigNotFound.
func (r *Resolver) Resolve(ctx context.Context, countryCode, brandName, method string) (*Config, error) {
	brand := strings.ToLower(strings.TrimSpace(brandName))

	tpl, err := r.store.GetPromptTemplate(ctx, countryCode, brand, method)
	if errors.Is(err, common.ErrNotFound) {
		r.logger.Info("registry.brand_fallback",
			"country_code", countryCode, "brand_name", brand, "method", method)
		tpl, err = r.store.GetPromptTemplate(ctx, countryCode, "default", method)
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewAppError("CONFIG_NOT_FOUND",
				fmt.Sprintf("no configuration for country=%s method=%s", countryCode, method),
				common.ErrConfigNotFound)
		}
	}
	if err != nil {
		return nil, common.WrapError(err, "load prompt template")
	}

	var schema map[string]any
	if err := json.Unmarshal(tpl.SchemaJSON, &schema); err != nil {
		return nil, common.WrapError(err, "decode schema_json")
	}

	instructions := tpl.Prompt
	if tpl.SpecialInstructions != nil && *tpl.SpecialInstructions != "" {
		instructions += "\n\nSpecial Instructions:\n" + *tpl.SpecialInstructions
	}

	fb, err := r.store.GetBrandFeedback(ctx, countryCode, brand)
	switch {
	case err == nil && fb.Feedback != "":
		instructions += "\n\nFeedback Notes from end users during previous episodes:\n" + fb.Feedback
	case err != nil && !errors.Is(err, common.ErrNotFound):
		// Feedback is additive; a lookup failure should not sink the run.
		r.logger.Warn("registry.feedback_lookup_failed",
			"country_code", countryCode, "brand_name", brand, "error", err)
	}

	return &Config{
		Schema:       schema,
		Instructions: instructions,
		BrandName:    tpl.BrandName,
	}, nil
}

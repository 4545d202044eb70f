package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
)

type promptPayload struct {
	CountryCode         string          `json:"country_code"`
	BrandName           string          `json:"brand_name"`
	ProcessingMethod    string          `json:"processing_method"`
	SchemaJSON          json.RawMessage `json:"schema_json"`
	Prompt              string          `json:"prompt"`
	SpecialInstructions *string         `json:"special_instructions,omitempty"`
	IsActive            *bool           `json:"is_active,omitempty"`
}

func (p promptPayload) validate() error {
	v := common.NewValidator()
	v.Field("country_code", p.CountryCode, common.Required, common.CountryCode)
	v.Field("brand_name", p.BrandName, common.Required)
	v.Field("processing_method", p.ProcessingMethod, common.Required, common.OneOf("text", "image"))
	v.Field("prompt", p.Prompt, common.Required)
	v.Field("schema_json", string(p.SchemaJSON), common.Required)
	if err := v.Error(); err != nil {
		return err
	}
	if !json.Valid(p.SchemaJSON) {
		return common.InvalidArgumentError("schema_json must be valid JSON")
	}
	return nil
}

func (p promptPayload) toTemplate() *entity.PromptTemplate {
	return &entity.PromptTemplate{
		CountryCode:         p.CountryCode,
		BrandName:           p.BrandName,
		ProcessingMethod:    p.ProcessingMethod,
		SchemaJSON:          p.SchemaJSON,
		Prompt:              p.Prompt,
		SpecialInstructions: p.SpecialInstructions,
	}
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	templates, err := s.prompts.ListTemplates(r.Context(),
		r.URL.Query().Get("country"), r.URL.Query().Get("brand"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if templates == nil {
		templates = []*entity.PromptTemplate{}
	}
	s.writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	var payload promptPayload
	if err := s.decode(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}
	if err := payload.validate(); err != nil {
		s.writeError(w, err)
		return
	}

	tpl := payload.toTemplate()
	if err := s.prompts.CreateTemplate(r.Context(), tpl); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleOverwritePrompt(w http.ResponseWriter, r *http.Request) {
	var payload promptPayload
	if err := s.decode(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}
	if err := payload.validate(); err != nil {
		s.writeError(w, err)
		return
	}

	tpl := payload.toTemplate()
	if err := s.prompts.OverwriteTemplate(r.Context(), tpl); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, common.InvalidArgumentErrorf("invalid template id: %v", err))
		return
	}

	var payload promptPayload
	if err := s.decode(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}
	if err := payload.validate(); err != nil {
		s.writeError(w, err)
		return
	}

	tpl := payload.toTemplate()
	tpl.ID = id
	tpl.IsActive = payload.IsActive == nil || *payload.IsActive
	if err := s.prompts.UpdateTemplate(r.Context(), tpl); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, common.InvalidArgumentErrorf("invalid template id: %v", err))
		return
	}
	if err := s.prompts.DeleteTemplate(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPromptCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.prompts.ListCountries(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if countries == nil {
		countries = []string{}
	}
	s.writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleListPromptBrands(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		s.writeError(w, common.InvalidArgumentError("country query parameter is required"))
		return
	}
	brands, err := s.prompts.ListBrands(r.Context(), country)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if brands == nil {
		brands = []string{}
	}
	s.writeJSON(w, http.StatusOK, brands)
}

func (s *Server) handlePromptStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.prompts.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

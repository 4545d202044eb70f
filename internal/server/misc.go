package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
)

func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	brand := r.URL.Query().Get("brand")
	if country == "" || brand == "" {
		s.writeError(w, common.InvalidArgumentError("country and brand query parameters are required"))
		return
	}

	fb, err := s.prompts.GetBrandFeedback(r.Context(), country, brand)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, fb)
}

func (s *Server) handleUpsertFeedback(w http.ResponseWriter, r *http.Request) {
	var fb entity.BrandFeedback
	if err := s.decode(r, &fb); err != nil {
		s.writeError(w, err)
		return
	}

	v := common.NewValidator()
	v.Field("country_code", fb.CountryCode, common.Required, common.CountryCode)
	v.Field("brand_name", fb.BrandName, common.Required)
	v.Field("feedback", fb.Feedback, common.Required)
	if err := v.Error(); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.prompts.UpsertBrandFeedback(r.Context(), &fb); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, fb)
}

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.regions.ListRegions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, regions)
}

func (s *Server) handleListRegionCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.regions.ListCountries(r.Context(), chi.URLParam(r, "regionCode"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, countries)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	to := time.Now().UTC()
	from := to.AddDate(-1, 0, 0)
	if v := q.Get("from"); v != "" {
		ts, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.writeError(w, common.InvalidArgumentErrorf("invalid from: %v", err))
			return
		}
		from = ts
	}
	if v := q.Get("to"); v != "" {
		ts, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.writeError(w, common.InvalidArgumentErrorf("invalid to: %v", err))
			return
		}
		// inclusive end of day
		to = ts.Add(24*time.Hour - time.Nanosecond)
	}

	summary, err := s.dashboard.Summary(r.Context(), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

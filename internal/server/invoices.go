package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
	"github.com/gwh-ap/invoice-agent/internal/repository"
)

func searchFilterFromQuery(r *http.Request) (repository.SearchFilter, error) {
	q := r.URL.Query()
	filter := repository.SearchFilter{
		Region:        q.Get("region"),
		CountryCode:   q.Get("country"),
		SupplierName:  q.Get("supplier"),
		BrandName:     q.Get("brand"),
		PONumber:      q.Get("po_number"),
		InvoiceNumber: q.Get("invoice_number"),
		Status:        q.Get("status"),
		SortBy:        q.Get("sort_by"),
		SortDir:       q.Get("sort_dir"),
	}

	for name, dst := range map[string]**time.Time{
		"received_from": &filter.ReceivedFrom,
		"received_to":   &filter.ReceivedTo,
	} {
		if v := q.Get(name); v != "" {
			ts, err := time.Parse("2006-01-02", v)
			if err != nil {
				return filter, common.InvalidArgumentErrorf("invalid %s: %v", name, err)
			}
			*dst = &ts
		}
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, common.InvalidArgumentErrorf("invalid page: %v", err)
		}
		filter.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, common.InvalidArgumentErrorf("invalid page_size: %v", err)
		}
		filter.PageSize = n
	}
	return filter, nil
}

func (s *Server) handleSearchInvoices(w http.ResponseWriter, r *http.Request) {
	filter, err := searchFilterFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	invoices, total, err := s.invoices.Search(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if invoices == nil {
		invoices = []*entity.InvoiceHeader{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total":    total,
		"invoices": invoices,
	})
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.invoices.GetByInvoiceNumber(r.Context(), chi.URLParam(r, "invoiceNumber"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleGetInvoiceByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, common.InvalidArgumentErrorf("invalid invoice id: %v", err))
		return
	}
	inv, err := s.invoices.GetByInvoiceNumberAndID(r.Context(), chi.URLParam(r, "invoiceNumber"), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleExportInvoices(w http.ResponseWriter, r *http.Request) {
	filter, err := searchFilterFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	data, err := s.exporter.ExportInvoicesXLSX(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write export", "error", err)
	}
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, common.InvalidArgumentErrorf("invalid invoice id: %v", err))
		return
	}

	var pm entity.InvoicePayment
	if err := s.decode(r, &pm); err != nil {
		s.writeError(w, err)
		return
	}
	pm.InvoiceHeaderID = id
	if pm.Amount <= 0 {
		s.writeError(w, common.InvalidArgumentError("payment amount must be positive"))
		return
	}
	if pm.Currency == "" {
		s.writeError(w, common.InvalidArgumentError("payment currency is required"))
		return
	}
	if pm.PaidAt.IsZero() {
		pm.PaidAt = time.Now().UTC()
	}

	// The invoice must exist before a payment can attach to it.
	if _, err := s.invoices.GetByInvoiceNumberAndID(r.Context(), chi.URLParam(r, "invoiceNumber"), id); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.payments.Create(r.Context(), &pm); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, pm)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.payments.ListAll(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if payments == nil {
		payments = []*entity.InvoicePayment{}
	}
	s.writeJSON(w, http.StatusOK, payments)
}

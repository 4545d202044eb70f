package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwh-ap/invoice-agent/internal/common"
)

func testServer() *Server {
	return &Server{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestSearchFilterFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/api/v1/invoices?region=EMEA&country=DE&supplier=acme&status=Processed"+
			"&received_from=2026-01-01&received_to=2026-06-30&page=2&page_size=25"+
			"&sort_by=total&sort_dir=asc", nil)

	filter, err := searchFilterFromQuery(r)
	require.NoError(t, err)

	assert.Equal(t, "EMEA", filter.Region)
	assert.Equal(t, "DE", filter.CountryCode)
	assert.Equal(t, "acme", filter.SupplierName)
	assert.Equal(t, "Processed", filter.Status)
	require.NotNil(t, filter.ReceivedFrom)
	assert.Equal(t, "2026-01-01", filter.ReceivedFrom.Format("2006-01-02"))
	require.NotNil(t, filter.ReceivedTo)
	assert.Equal(t, 2, filter.Page)
	assert.Equal(t, 25, filter.PageSize)
	assert.Equal(t, "total", filter.SortBy)
	assert.Equal(t, "asc", filter.SortDir)
}

func TestSearchFilterFromQueryRejectsBadDates(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/invoices?received_from=January", nil)
	_, err := searchFilterFromQuery(r)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, common.HTTPStatus(err))
}

func TestWriteErrorMapsAppErrors(t *testing.T) {
	s := testServer()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", common.NotFoundError("invoice X not found"), http.StatusNotFound},
		{"invalid input", common.InvalidArgumentError("bad page"), http.StatusBadRequest},
		{"internal", common.InternalError("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.writeError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestPromptPayloadValidate(t *testing.T) {
	valid := promptPayload{
		CountryCode:      "US",
		BrandName:        "acme",
		ProcessingMethod: "text",
		SchemaJSON:       json.RawMessage(`{"type":"object"}`),
		Prompt:           "Extract the fields.",
	}
	require.NoError(t, valid.validate())

	bad := valid
	bad.ProcessingMethod = "ocr"
	require.Error(t, bad.validate())

	bad = valid
	bad.CountryCode = "usa"
	require.Error(t, bad.validate())

	bad = valid
	bad.SchemaJSON = json.RawMessage(`{`)
	require.Error(t, bad.validate())
}

package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gwh-ap/invoice-agent/internal/repository"
)

// Service produces XLSX bytes for invoice exports.
type Service struct {
	invoices repository.InvoiceRepository
	logger   *slog.Logger
}

func NewService(invoices repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, logger: logger}
}

var exportHeaders = []string{
	"Invoice Number",
	"Brand",
	"Supplier",
	"Invoice Type",
	"Issue Date",
	"Region",
	"Country",
	"Subtotal",
	"Tax",
	"Total",
	"Currency",
	"Status",
}

// ExportInvoicesXLSX returns a workbook with one row per invoice matching
// the filter. Pagination in the filter is ignored: exports cover the full
// result set.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, filter repository.SearchFilter) ([]byte, error) {
	start := time.Now()

	filter.Page = 1
	filter.PageSize = 10000
	invoices, _, err := s.invoices.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, err
	}
	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	row := 2
	for _, inv := range invoices {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, deref(inv.InvoiceNumber))
		write(2, deref(inv.BrandName))
		write(3, deref(inv.SupplierName))
		write(4, deref(inv.InvoiceType))
		write(5, deref(inv.IssueDate))
		write(6, deref(inv.Region))
		write(7, deref(inv.SupplierCountry))
		writeAmount(write, 8, inv.Subtotal)
		writeAmount(write, 9, inv.Tax)
		writeAmount(write, 10, inv.Total)
		write(11, deref(inv.Currency))
		write(12, inv.Status)

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 20) // invoice number
	_ = f.SetColWidth(sheet, "B", "C", 26) // brand, supplier
	_ = f.SetColWidth(sheet, "D", "E", 14) // type, date
	_ = f.SetColWidth(sheet, "F", "G", 10) // region, country
	_ = f.SetColWidth(sheet, "H", "J", 14) // amounts
	_ = f.SetColWidth(sheet, "K", "L", 12) // currency, status

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(invoices),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeAmount(write func(int, any), col int, v *float64) {
	if v == nil {
		write(col, "")
		return
	}
	write(col, *v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

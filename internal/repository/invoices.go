package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gwh-ap/invoice-agent/constants"
	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
	"github.com/gwh-ap/invoice-agent/internal/pipeline"
)

// headerColumns is the scan order used by every header query.
const headerColumns = `id, brand_name, supplier_name, invoice_type, invoice_number,
	issue_date, due_date, tax_point_date, invoice_receipt_date, po_number,
	supplier_tax_id, buyer_company_reg_id, buyer_tax_id,
	supplier_details, supplier_country_code, buyer_details, buyer_country_code,
	ship_to_details, ship_to_country_code, payment_information, payment_terms,
	subtotal, tax, total, currency, notes, delivery_note, exchange_rate,
	system_routing, region, status, feedback, extraction_method,
	processing_method, created_at, updated_at`

// SearchFilter narrows an invoice search. Zero values mean "no filter".
type SearchFilter struct {
	Region        string
	CountryCode   string
	SupplierName  string
	BrandName     string
	PONumber      string
	InvoiceNumber string
	Status        string
	ReceivedFrom  *time.Time
	ReceivedTo    *time.Time

	Page     int
	PageSize int
	SortBy   string
	SortDir  string
}

type InvoiceRepository interface {
	pipeline.Checkpointer

	InsertFileForInvoice(ctx context.Context, file *entity.InvoiceFile) error
	Search(ctx context.Context, filter SearchFilter) ([]*entity.InvoiceHeader, int, error)
	GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*entity.InvoiceHeader, error)
	GetByInvoiceNumberAndID(ctx context.Context, invoiceNumber string, id uuid.UUID) (*entity.InvoiceHeader, error)
}

type invoiceRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewInvoiceRepository(pool *pgxpool.Pool, logger *slog.Logger) InvoiceRepository {
	return &invoiceRepository{pool: pool, logger: logger}
}

func (r *invoiceRepository) InsertInitialHeader(ctx context.Context, snap pipeline.HeaderSnapshot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO invoice_headers (
			id, brand_name, supplier_name, supplier_details, buyer_details,
			ship_to_details, supplier_country_code, buyer_country_code,
			ship_to_country_code, region, extraction_method, processing_method,
			status, feedback, invoice_receipt_date, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,'',now(),now(),now())
		ON CONFLICT (id) DO NOTHING`,
		snap.ID, snap.BrandName, snap.SupplierName, snap.SupplierDetails,
		snap.BuyerDetails, snap.ShipToDetails,
		nilIfEmpty(snap.SupplierCountry), nilIfEmpty(snap.BuyerCountry),
		nilIfEmpty(snap.ShipToCountry), snap.Region,
		snap.ExtractionMethod, snap.ProcessingMethod, string(snap.Status))
	if err != nil {
		r.logger.Error("failed to insert initial header", "header_id", snap.ID, "error", err)
		return common.WrapError(err, "insert initial header")
	}
	return nil
}

func (r *invoiceRepository) UpdateHeaderWithInvoiceNumber(ctx context.Context, headerID, invoiceNumber string, status constants.InvoiceStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE invoice_headers
		SET invoice_number = $2, status = $3, updated_at = now()
		WHERE id = $1`,
		headerID, invoiceNumber, string(status))
	if err != nil {
		r.logger.Error("failed to update header invoice number",
			"header_id", headerID, "invoice_number", invoiceNumber, "error", err)
		return common.WrapError(err, "update header invoice number")
	}
	return nil
}

func (r *invoiceRepository) UpdateInvoiceStatusByID(ctx context.Context, headerID string, status constants.InvoiceStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE invoice_headers SET status = $2, updated_at = now() WHERE id = $1`,
		headerID, string(status))
	if err != nil {
		r.logger.Error("failed to update invoice status",
			"header_id", headerID, "status", string(status), "error", err)
		return common.WrapError(err, "update invoice status")
	}
	return nil
}

// UpdateFullInvoiceData writes the extracted invoice onto the header and
// replaces its line items, in one transaction.
func (r *invoiceRepository) UpdateFullInvoiceData(ctx context.Context, headerID string, invoice map[string]any, processingMethod, extractionMethod string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return common.WrapError(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE invoice_headers SET
			invoice_number = COALESCE($2, invoice_number),
			invoice_type = $3,
			issue_date = $4,
			due_date = $5,
			tax_point_date = $6,
			po_number = $7,
			supplier_tax_id = $8,
			buyer_company_reg_id = $9,
			buyer_tax_id = $10,
			payment_information = $11,
			payment_terms = $12,
			subtotal = $13,
			tax = $14,
			total = $15,
			currency = $16,
			notes = $17,
			delivery_note = $18,
			exchange_rate = $19,
			system_routing = $20,
			extraction_method = $21,
			processing_method = $22,
			status = $23,
			updated_at = now()
		WHERE id = $1`,
		headerID,
		anyString(invoice["invoice_number"]),
		anyString(invoice["invoice_type"]),
		anyString(invoice["issue_date"]),
		anyString(invoice["due_date"]),
		anyString(invoice["tax_point_date"]),
		anyString(invoice["po_number"]),
		anyString(invoice["supplier_tax_id"]),
		anyString(invoice["buyer_company_reg_id"]),
		anyString(invoice["buyer_tax_id"]),
		anyString(invoice["payment_information"]),
		anyString(invoice["payment_terms"]),
		anyFloat(invoice["subtotal"]),
		anyFloat(invoice["tax"]),
		anyFloat(invoice["total"]),
		anyString(invoice["currency"]),
		anyString(invoice["notes"]),
		anyString(invoice["delivery_note"]),
		anyFloat(invoice["exchange_rate"]),
		anyString(invoice["system_routing"]),
		extractionMethod, processingMethod,
		string(constants.InvoiceStatusProcessed))
	if err != nil {
		r.logger.Error("failed to update invoice header", "header_id", headerID, "error", err)
		return common.WrapError(err, "update invoice header")
	}

	if _, err = tx.Exec(ctx, `DELETE FROM invoice_line_items WHERE invoice_header_id = $1`, headerID); err != nil {
		return common.WrapError(err, "clear line items")
	}

	items, _ := invoice["line_items"].([]map[string]any)
	for n, item := range items {
		_, err = tx.Exec(ctx, `
			INSERT INTO invoice_line_items (
				id, invoice_header_id, line_number, item_number, item_code,
				description, quantity, unit_of_measure, unit_price, amount,
				price_per, amount_gross_per_line, amount_net_per_line,
				tax_amount_per_line, tax_rate, delivery_note, material_number,
				customer_po, po_number, currency_per_line, is_additional_charge,
				source_page, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,now(),now())`,
			uuid.New(), headerID, n+1,
			anyString(item["item_number"]),
			anyString(item["item_code"]),
			anyString(item["description"]),
			anyFloat(item["quantity"]),
			anyString(item["unit_of_measure"]),
			anyFloat(item["unit_price"]),
			anyFloat(item["amount"]),
			anyFloat(item["price_per"]),
			anyFloat(item["amount_gross_per_line"]),
			anyFloat(item["amount_net_per_line"]),
			anyFloat(item["tax_amount_per_line"]),
			anyFloat(item["tax_rate"]),
			anyString(item["delivery_note"]),
			anyString(item["material_number"]),
			anyString(item["customer_po"]),
			anyString(item["po_number"]),
			anyString(item["currency_per_line"]),
			anyBool(item["is_additional_charge"]),
			anyInt(item["_source_page"]))
		if err != nil {
			r.logger.Error("failed to insert line item",
				"header_id", headerID, "line_number", n+1, "error", err)
			return common.WrapError(err, "insert line item")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return common.WrapError(err, "commit invoice data")
	}
	r.logger.Info("invoice data persisted", "header_id", headerID, "line_items", len(items))
	return nil
}

func (r *invoiceRepository) InsertFileForInvoice(ctx context.Context, file *entity.InvoiceFile) error {
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO invoice_files (
			id, invoice_header_id, original_file_path, file_name, file_size,
			file_base64_content, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,now(),now())`,
		file.ID, file.InvoiceHeaderID, file.OriginalFilePath,
		file.FileName, file.FileSize, file.FileBase64)
	if err != nil {
		r.logger.Error("failed to insert invoice file",
			"header_id", file.InvoiceHeaderID, "file_name", file.FileName, "error", err)
		return common.WrapError(err, "insert invoice file")
	}
	return nil
}

// sortColumns whitelists sortable columns; anything else falls back to the
// received date.
var sortColumns = map[string]string{
	"invoice_number":       "invoice_number",
	"brand_name":           "brand_name",
	"supplier_name":        "supplier_name",
	"issue_date":           "issue_date",
	"total":                "total",
	"status":               "status",
	"region":               "region",
	"invoice_receipt_date": "invoice_receipt_date",
}

func (r *invoiceRepository) Search(ctx context.Context, filter SearchFilter) ([]*entity.InvoiceHeader, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.Region != "" {
		add("region = $%d", filter.Region)
	}
	if filter.CountryCode != "" {
		add("supplier_country_code = $%d", filter.CountryCode)
	}
	if filter.SupplierName != "" {
		add("supplier_name ILIKE $%d", "%"+filter.SupplierName+"%")
	}
	if filter.BrandName != "" {
		add("brand_name ILIKE $%d", "%"+filter.BrandName+"%")
	}
	if filter.PONumber != "" {
		add("po_number = $%d", filter.PONumber)
	}
	if filter.InvoiceNumber != "" {
		add("invoice_number = $%d", filter.InvoiceNumber)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.ReceivedFrom != nil {
		add("invoice_receipt_date >= $%d", *filter.ReceivedFrom)
	}
	if filter.ReceivedTo != nil {
		add("invoice_receipt_date <= $%d", *filter.ReceivedTo)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM invoice_headers"+clause, args...).Scan(&total); err != nil {
		r.logger.Error("failed to count invoices", "error", err)
		return nil, 0, common.WrapError(err, "count invoices")
	}

	sortCol, ok := sortColumns[filter.SortBy]
	if !ok {
		sortCol = "invoice_receipt_date"
	}
	dir := "DESC"
	if strings.EqualFold(filter.SortDir, "asc") {
		dir = "ASC"
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, pageSize, (page-1)*pageSize)

	query := fmt.Sprintf("SELECT %s FROM invoice_headers%s ORDER BY %s %s NULLS LAST LIMIT $%d OFFSET $%d",
		headerColumns, clause, sortCol, dir, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to search invoices", "error", err)
		return nil, 0, common.WrapError(err, "search invoices")
	}
	defer rows.Close()

	var headers []*entity.InvoiceHeader
	for rows.Next() {
		h, serr := scanHeader(rows)
		if serr != nil {
			return nil, 0, common.WrapError(serr, "scan invoice header")
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, common.WrapError(err, "search invoices")
	}
	return headers, total, nil
}

func (r *invoiceRepository) GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*entity.InvoiceHeader, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM invoice_headers WHERE invoice_number = $1 ORDER BY invoice_receipt_date DESC LIMIT 1", headerColumns),
		invoiceNumber)
	return r.loadHeader(ctx, row, invoiceNumber)
}

func (r *invoiceRepository) GetByInvoiceNumberAndID(ctx context.Context, invoiceNumber string, id uuid.UUID) (*entity.InvoiceHeader, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM invoice_headers WHERE invoice_number = $1 AND id = $2", headerColumns),
		invoiceNumber, id)
	return r.loadHeader(ctx, row, invoiceNumber)
}

func (r *invoiceRepository) loadHeader(ctx context.Context, row pgx.Row, invoiceNumber string) (*entity.InvoiceHeader, error) {
	h, err := scanHeader(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundErrorf("invoice %s not found", invoiceNumber)
	}
	if err != nil {
		r.logger.Error("failed to load invoice", "invoice_number", invoiceNumber, "error", err)
		return nil, common.WrapError(err, "load invoice")
	}

	if err := r.loadLineItems(ctx, h); err != nil {
		return nil, err
	}
	if err := r.loadPayments(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (r *invoiceRepository) loadLineItems(ctx context.Context, h *entity.InvoiceHeader) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_header_id, line_number, item_number, item_code,
			description, quantity, unit_of_measure, unit_price, amount,
			price_per, amount_gross_per_line, amount_net_per_line,
			tax_amount_per_line, tax_rate, delivery_note, material_number,
			customer_po, po_number, currency_per_line, is_additional_charge,
			source_page, created_at, updated_at
		FROM invoice_line_items
		WHERE invoice_header_id = $1
		ORDER BY line_number`, h.ID)
	if err != nil {
		return common.WrapError(err, "load line items")
	}
	defer rows.Close()

	for rows.Next() {
		var li entity.InvoiceLineItem
		if err := rows.Scan(
			&li.ID, &li.InvoiceHeaderID, &li.LineNumber, &li.ItemNumber,
			&li.ItemCode, &li.Description, &li.Quantity, &li.UnitOfMeasure,
			&li.UnitPrice, &li.Amount, &li.PricePer, &li.AmountGrossPerLine,
			&li.AmountNetPerLine, &li.TaxAmountPerLine, &li.TaxRate,
			&li.DeliveryNote, &li.MaterialNumber, &li.CustomerPO, &li.PONumber,
			&li.CurrencyPerLine, &li.IsAdditionalCharge, &li.SourcePage,
			&li.CreatedAt, &li.UpdatedAt,
		); err != nil {
			return common.WrapError(err, "scan line item")
		}
		h.LineItems = append(h.LineItems, li)
	}
	return rows.Err()
}

func (r *invoiceRepository) loadPayments(ctx context.Context, h *entity.InvoiceHeader) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_header_id, amount, currency, paid_at, method,
			reference, created_at
		FROM invoice_payments
		WHERE invoice_header_id = $1
		ORDER BY paid_at`, h.ID)
	if err != nil {
		return common.WrapError(err, "load payments")
	}
	defer rows.Close()

	for rows.Next() {
		var pm entity.InvoicePayment
		if err := rows.Scan(&pm.ID, &pm.InvoiceHeaderID, &pm.Amount, &pm.Currency,
			&pm.PaidAt, &pm.Method, &pm.Reference, &pm.CreatedAt); err != nil {
			return common.WrapError(err, "scan payment")
		}
		h.Payments = append(h.Payments, pm)
	}
	return rows.Err()
}

func scanHeader(row pgx.Row) (*entity.InvoiceHeader, error) {
	var h entity.InvoiceHeader
	err := row.Scan(
		&h.ID, &h.BrandName, &h.SupplierName, &h.InvoiceType, &h.InvoiceNumber,
		&h.IssueDate, &h.DueDate, &h.TaxPointDate, &h.InvoiceReceiptDate,
		&h.PONumber, &h.SupplierTaxID, &h.BuyerCompanyRegID, &h.BuyerTaxID,
		&h.SupplierDetails, &h.SupplierCountry, &h.BuyerDetails, &h.BuyerCountry,
		&h.ShipToDetails, &h.ShipToCountry, &h.PaymentInformation, &h.PaymentTerms,
		&h.Subtotal, &h.Tax, &h.Total, &h.Currency, &h.Notes, &h.DeliveryNote,
		&h.ExchangeRate, &h.SystemRouting, &h.Region, &h.Status, &h.Feedback,
		&h.ExtractionMethod, &h.ProcessingMethod, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// anyString coerces extracted values to a nullable text column value.
func anyString(v any) *string {
	switch typed := v.(type) {
	case string:
		return nilIfEmpty(typed)
	case float64:
		s := strconv.FormatFloat(typed, 'f', -1, 64)
		return &s
	case int:
		s := strconv.Itoa(typed)
		return &s
	default:
		return nil
	}
}

func anyFloat(v any) *float64 {
	switch typed := v.(type) {
	case float64:
		return &typed
	case int:
		f := float64(typed)
		return &f
	case int64:
		f := float64(typed)
		return &f
	case string:
		if f, err := strconv.ParseFloat(typed, 64); err == nil {
			return &f
		}
	}
	return nil
}

func anyInt(v any) *int {
	switch typed := v.(type) {
	case int:
		return &typed
	case int64:
		n := int(typed)
		return &n
	case float64:
		n := int(typed)
		return &n
	}
	return nil
}

func anyBool(v any) bool {
	b, _ := v.(bool)
	return b
}

package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
)

type PaymentRepository interface {
	Create(ctx context.Context, pm *entity.InvoicePayment) error
	ListAll(ctx context.Context) ([]*entity.InvoicePayment, error)
}

type paymentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPaymentRepository(pool *pgxpool.Pool, logger *slog.Logger) PaymentRepository {
	return &paymentRepository{pool: pool, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, pm *entity.InvoicePayment) error {
	if pm.ID == uuid.Nil {
		pm.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO invoice_payments (
			id, invoice_header_id, amount, currency, paid_at, method, reference, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,now())`,
		pm.ID, pm.InvoiceHeaderID, pm.Amount, pm.Currency, pm.PaidAt, pm.Method, pm.Reference)
	if err != nil {
		r.logger.Error("failed to create payment",
			"header_id", pm.InvoiceHeaderID, "error", err)
		return common.WrapError(err, "create payment")
	}
	return nil
}

func (r *paymentRepository) ListAll(ctx context.Context) ([]*entity.InvoicePayment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_header_id, amount, currency, paid_at, method, reference, created_at
		FROM invoice_payments
		ORDER BY paid_at DESC`)
	if err != nil {
		r.logger.Error("failed to list payments", "error", err)
		return nil, common.WrapError(err, "list payments")
	}
	defer rows.Close()

	var out []*entity.InvoicePayment
	for rows.Next() {
		var pm entity.InvoicePayment
		if err := rows.Scan(&pm.ID, &pm.InvoiceHeaderID, &pm.Amount, &pm.Currency,
			&pm.PaidAt, &pm.Method, &pm.Reference, &pm.CreatedAt); err != nil {
			return nil, common.WrapError(err, "scan payment")
		}
		out = append(out, &pm)
	}
	return out, rows.Err()
}

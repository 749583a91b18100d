package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrPaymentAlreadyExists surfaces the unique index on work_order_id. It
	// is the serialization point for concurrent requests racing on creation.
	ErrPaymentAlreadyExists = errors.New("payment already exists")
)

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			id, work_order_id, payer_id, amount, status,
			external_payment_id, external_order_id, payment_method,
			qr_code, qr_code_base64, error_message,
			created_at, processed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.WorkOrderID,
		payment.PayerID,
		payment.Amount,
		string(payment.Status),
		nullableStringValue(payment.ExternalPaymentID),
		nullableStringValue(payment.ExternalOrderID),
		nullableStringValue(payment.PaymentMethod),
		nullableStringValue(payment.QRCode),
		nullableStringValue(payment.QRCodeBase64),
		nullableStringValue(payment.ErrorMessage),
		payment.CreatedAt,
		nullableTimeValue(payment.ProcessedAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	query := `
		UPDATE payments SET
			status = ?,
			external_payment_id = ?,
			external_order_id = ?,
			payment_method = ?,
			qr_code = ?,
			qr_code_base64 = ?,
			error_message = ?,
			processed_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(payment.Status),
		nullableStringValue(payment.ExternalPaymentID),
		nullableStringValue(payment.ExternalOrderID),
		nullableStringValue(payment.PaymentMethod),
		nullableStringValue(payment.QRCode),
		nullableStringValue(payment.QRCodeBase64),
		nullableStringValue(payment.ErrorMessage),
		nullableTimeValue(payment.ProcessedAt),
		payment.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *PaymentRepository) FindByWorkOrderID(ctx context.Context, workOrderID string) (*entity.Payment, error) {
	query := `
		SELECT id, work_order_id, payer_id, amount, status,
			external_payment_id, external_order_id, payment_method,
			qr_code, qr_code_base64, error_message,
			created_at, processed_at
		FROM payments
		WHERE work_order_id = ?
		LIMIT 1
	`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, workOrderID), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *PaymentRepository) ListStaleProcessing(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error) {
	query := `
		SELECT id, work_order_id, payer_id, amount, status,
			external_payment_id, external_order_id, payment_method,
			qr_code, qr_code_base64, error_message,
			created_at, processed_at
		FROM payments
		WHERE status = ?
		  AND external_order_id IS NOT NULL
		  AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, string(entity.StatusProcessing), before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var status string
	var externalPaymentID sql.NullString
	var externalOrderID sql.NullString
	var paymentMethod sql.NullString
	var qrCode sql.NullString
	var qrCodeBase64 sql.NullString
	var errorMessage sql.NullString
	var processedAt sql.NullTime

	err := scan.Scan(
		&payment.ID,
		&payment.WorkOrderID,
		&payment.PayerID,
		&payment.Amount,
		&status,
		&externalPaymentID,
		&externalOrderID,
		&paymentMethod,
		&qrCode,
		&qrCodeBase64,
		&errorMessage,
		&payment.CreatedAt,
		&processedAt,
	)
	if err != nil {
		return err
	}

	payment.Status = entity.PaymentStatus(status)
	payment.ExternalPaymentID = stringPtrFromNull(externalPaymentID)
	payment.ExternalOrderID = stringPtrFromNull(externalOrderID)
	payment.PaymentMethod = stringPtrFromNull(paymentMethod)
	payment.QRCode = stringPtrFromNull(qrCode)
	payment.QRCodeBase64 = stringPtrFromNull(qrCodeBase64)
	payment.ErrorMessage = stringPtrFromNull(errorMessage)
	payment.ProcessedAt = timePtrFromNull(processedAt)

	return nil
}

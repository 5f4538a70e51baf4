package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/edupay/remit-orders/internal/domain"
	"github.com/edupay/remit-orders/internal/models"
)

// DBTX is the subset of pgxpool.Pool and pgx.Tx the repository needs.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides persistence for orders, senders, beneficiaries,
// uploads and the audit trail.
type Repository struct {
	db DBTX
}

func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

const orderColumns = `id, purpose, amount, currency, country, reference_rate, margin, settlement_rate,
	bank_charge_bearer, has_education_loan, customer_rate, local_amount, bank_fee,
	tax_on_conversion, tax_collected_at_source, total_payable, status, fx_rate_overridden,
	sender_id, beneficiary_id, created_by, quoted_at, created_at, updated_at`

func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `INSERT INTO orders (id, purpose, amount, currency, country, reference_rate, margin,
			bank_charge_bearer, has_education_loan, customer_rate, local_amount, bank_fee,
			tax_on_conversion, tax_collected_at_source, total_payable, status, fx_rate_overridden,
			created_by, quoted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		order.ID, order.Purpose, order.Amount, order.Currency, order.Country,
		order.ReferenceRate, order.Margin, string(order.Bearer), order.HasEducationLoan,
		order.CustomerRate, order.LocalAmount, order.BankFee,
		order.TaxOnConversion, order.TaxCollectedAtSource, order.TotalPayable,
		string(order.Status), order.FxRateOverridden, order.CreatedBy, order.QuotedAt,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// UpdateOrderPricing persists the pricing inputs and the recomputed
// breakdown in one statement. Workflow fields are untouched.
func (r *Repository) UpdateOrderPricing(ctx context.Context, order *models.Order) error {
	var settlement decimal.NullDecimal
	if order.SettlementRate != nil {
		settlement = decimal.NewNullDecimal(*order.SettlementRate)
	}
	tag, err := r.db.Exec(ctx, `UPDATE orders SET
			purpose = $2, amount = $3, currency = $4, country = $5,
			reference_rate = $6, margin = $7, settlement_rate = $8,
			bank_charge_bearer = $9, has_education_loan = $10,
			customer_rate = $11, local_amount = $12, bank_fee = $13,
			tax_on_conversion = $14, tax_collected_at_source = $15, total_payable = $16,
			fx_rate_overridden = $17, quoted_at = $18, updated_at = NOW()
		WHERE id = $1`,
		order.ID, order.Purpose, order.Amount, order.Currency, order.Country,
		order.ReferenceRate, order.Margin, settlement,
		string(order.Bearer), order.HasEducationLoan,
		order.CustomerRate, order.LocalAmount, order.BankFee,
		order.TaxOnConversion, order.TaxCollectedAtSource, order.TotalPayable,
		order.FxRateOverridden, order.QuotedAt,
	)
	if err != nil {
		return fmt.Errorf("update order pricing: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

// TransitionOrderStatus updates the status and writes the audit row
// in one transaction.
func (r *Repository) TransitionOrderStatus(ctx context.Context, id uuid.UUID, next domain.Status, rec models.AuditRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(next))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}

	if err := insertAudit(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

func (r *Repository) SetOrderSender(ctx context.Context, orderID, senderID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET sender_id = $2, updated_at = NOW() WHERE id = $1`, orderID, senderID)
	if err != nil {
		return fmt.Errorf("set order sender: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) SetOrderBeneficiary(ctx context.Context, orderID, beneficiaryID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET beneficiary_id = $2, updated_at = NOW() WHERE id = $1 AND sender_id IS NOT NULL`, orderID, beneficiaryID)
	if err != nil {
		return fmt.Errorf("set order beneficiary: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

// ListStaleQuotedOrders returns orders still in a pre-document status
// whose quoted rate is older than the cutoff.
func (r *Repository) ListStaleQuotedOrders(ctx context.Context, cutoff time.Time, limit int32) ([]models.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE status IN ($1, $2, $3) AND quoted_at < $4
		ORDER BY quoted_at ASC
		LIMIT $5`,
		string(domain.StatusReceived), string(domain.StatusQuoteDownloaded), string(domain.StatusPending),
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale quoted orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (r *Repository) CreateSender(ctx context.Context, sender *models.Sender) error {
	query := `INSERT INTO senders (id, order_id, student_name, student_email, student_phone,
			payer_relationship, payer_name, payer_pan, funds_source,
			address_line1, address_line2, city, state, postal_code, residency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		sender.ID, sender.OrderID, sender.StudentName, sender.StudentEmail, sender.StudentPhone,
		sender.PayerRelationship, sender.PayerName, sender.PayerPAN, sender.FundsSource,
		sender.AddressLine1, sender.AddressLine2, sender.City, sender.State, sender.PostalCode, sender.Residency,
	).Scan(&sender.CreatedAt, &sender.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create sender: %w", err)
	}
	return nil
}

const senderColumns = `id, order_id, student_name, student_email, student_phone,
	payer_relationship, payer_name, payer_pan, funds_source,
	address_line1, address_line2, city, state, postal_code, residency, created_at, updated_at`

func (r *Repository) GetSender(ctx context.Context, id uuid.UUID) (*models.Sender, error) {
	row := r.db.QueryRow(ctx, `SELECT `+senderColumns+` FROM senders WHERE id = $1`, id)
	return scanSender(row, "get sender")
}

func (r *Repository) GetSenderByOrder(ctx context.Context, orderID uuid.UUID) (*models.Sender, error) {
	row := r.db.QueryRow(ctx, `SELECT `+senderColumns+` FROM senders WHERE order_id = $1`, orderID)
	return scanSender(row, "get sender by order")
}

func (r *Repository) UpdateSender(ctx context.Context, sender *models.Sender) error {
	tag, err := r.db.Exec(ctx, `UPDATE senders SET
			student_name = $2, student_email = $3, student_phone = $4,
			payer_relationship = $5, payer_name = $6, payer_pan = $7, funds_source = $8,
			address_line1 = $9, address_line2 = $10, city = $11, state = $12,
			postal_code = $13, residency = $14, updated_at = NOW()
		WHERE id = $1`,
		sender.ID, sender.StudentName, sender.StudentEmail, sender.StudentPhone,
		sender.PayerRelationship, sender.PayerName, sender.PayerPAN, sender.FundsSource,
		sender.AddressLine1, sender.AddressLine2, sender.City, sender.State,
		sender.PostalCode, sender.Residency,
	)
	if err != nil {
		return fmt.Errorf("update sender: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

const beneficiaryColumns = `id, name, country, bank_name, bank_country, account_number, swift_code,
	iban, sort_code, transit_number, bsb_code, routing_number,
	intermediary_bank_name, intermediary_swift_code, intermediary_account_number,
	active, created_by, created_at, updated_at`

func (r *Repository) CreateBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	var interName, interSwift, interAccount string
	if b.Intermediary != nil {
		interName = b.Intermediary.BankName
		interSwift = b.Intermediary.SwiftCode
		interAccount = b.Intermediary.AccountNumber
	}
	query := `INSERT INTO beneficiaries (id, name, country, bank_name, bank_country, account_number, swift_code,
			iban, sort_code, transit_number, bsb_code, routing_number,
			intermediary_bank_name, intermediary_swift_code, intermediary_account_number,
			active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		b.ID, b.Name, b.Country, b.BankName, b.BankCountry, b.AccountNumber, b.SwiftCode,
		b.IBAN, b.SortCode, b.TransitNumber, b.BSBCode, b.RoutingNumber,
		interName, interSwift, interAccount,
		b.Active, b.CreatedBy,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create beneficiary: %w", err)
	}
	return nil
}

func (r *Repository) GetBeneficiary(ctx context.Context, id uuid.UUID) (*models.Beneficiary, error) {
	row := r.db.QueryRow(ctx, `SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE id = $1`, id)
	b, err := scanBeneficiary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get beneficiary: %w", err)
	}
	return b, nil
}

func (r *Repository) UpdateBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	var interName, interSwift, interAccount string
	if b.Intermediary != nil {
		interName = b.Intermediary.BankName
		interSwift = b.Intermediary.SwiftCode
		interAccount = b.Intermediary.AccountNumber
	}
	tag, err := r.db.Exec(ctx, `UPDATE beneficiaries SET
			name = $2, country = $3, bank_name = $4, bank_country = $5,
			account_number = $6, swift_code = $7, iban = $8, sort_code = $9,
			transit_number = $10, bsb_code = $11, routing_number = $12,
			intermediary_bank_name = $13, intermediary_swift_code = $14, intermediary_account_number = $15,
			updated_at = NOW()
		WHERE id = $1`,
		b.ID, b.Name, b.Country, b.BankName, b.BankCountry,
		b.AccountNumber, b.SwiftCode, b.IBAN, b.SortCode,
		b.TransitNumber, b.BSBCode, b.RoutingNumber,
		interName, interSwift, interAccount,
	)
	if err != nil {
		return fmt.Errorf("update beneficiary: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) ListActiveBeneficiaries(ctx context.Context, limit, offset int32) ([]models.Beneficiary, error) {
	rows, err := r.db.Query(ctx, `SELECT `+beneficiaryColumns+` FROM beneficiaries
		WHERE active ORDER BY name ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list active beneficiaries: %w", err)
	}
	defer rows.Close()

	var out []models.Beneficiary
	for rows.Next() {
		b, err := scanBeneficiary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan beneficiary: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *Repository) SetBeneficiaryActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE beneficiaries SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set beneficiary active: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteBeneficiary(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM beneficiaries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete beneficiary: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateUpload(ctx context.Context, u *models.Upload) error {
	err := r.db.QueryRow(ctx, `INSERT INTO uploads (id, order_id, object_key, status, created_at)
		VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`,
		u.ID, u.OrderID, u.ObjectKey, u.Status,
	).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create upload: %w", err)
	}
	return nil
}

func (r *Repository) ListPendingUploadsBefore(ctx context.Context, cutoff time.Time, limit int32) ([]models.Upload, error) {
	rows, err := r.db.Query(ctx, `SELECT id, order_id, object_key, status, created_at FROM uploads
		WHERE status = $1 AND created_at < $2 ORDER BY created_at ASC LIMIT $3`,
		models.UploadStatusPending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending uploads: %w", err)
	}
	defer rows.Close()

	var out []models.Upload
	for rows.Next() {
		var u models.Upload
		if err := rows.Scan(&u.ID, &u.OrderID, &u.ObjectKey, &u.Status, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repository) MarkUploadsSubmitted(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE uploads SET status = $2 WHERE order_id = $1 AND status = $3`,
		orderID, models.UploadStatusSubmitted, models.UploadStatusPending)
	if err != nil {
		return fmt.Errorf("mark uploads submitted: %w", err)
	}
	return nil
}

func (r *Repository) DeleteUpload(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound
	}
	return nil
}

// InsertAuditLog writes a single immutable audit record.
func (r *Repository) InsertAuditLog(ctx context.Context, rec models.AuditRecord) error {
	return insertAudit(ctx, r.db, rec)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertAudit(ctx context.Context, db execer, rec models.AuditRecord) error {
	_, err := db.Exec(ctx, `INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
		rec.EntityType, rec.EntityID, rec.ActorID, rec.Action,
		textParam(rec.PrevState), textParam(rec.NextState), rec.Metadata,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func textParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		order      models.Order
		bearer     string
		status     string
		settlement decimal.NullDecimal
	)
	err := row.Scan(
		&order.ID, &order.Purpose, &order.Amount, &order.Currency, &order.Country,
		&order.ReferenceRate, &order.Margin, &settlement,
		&bearer, &order.HasEducationLoan,
		&order.CustomerRate, &order.LocalAmount, &order.BankFee,
		&order.TaxOnConversion, &order.TaxCollectedAtSource, &order.TotalPayable,
		&status, &order.FxRateOverridden,
		&order.SenderID, &order.BeneficiaryID, &order.CreatedBy,
		&order.QuotedAt, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Bearer = domain.ChargeBearer(bearer)
	order.Status = domain.Status(status)
	if settlement.Valid {
		order.SettlementRate = &settlement.Decimal
	}
	return &order, nil
}

func scanSender(row rowScanner, op string) (*models.Sender, error) {
	var s models.Sender
	err := row.Scan(
		&s.ID, &s.OrderID, &s.StudentName, &s.StudentEmail, &s.StudentPhone,
		&s.PayerRelationship, &s.PayerName, &s.PayerPAN, &s.FundsSource,
		&s.AddressLine1, &s.AddressLine2, &s.City, &s.State, &s.PostalCode, &s.Residency,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

func scanBeneficiary(row rowScanner) (*models.Beneficiary, error) {
	var (
		b                                 models.Beneficiary
		interName, interSwift, interAccnt string
	)
	err := row.Scan(
		&b.ID, &b.Name, &b.Country, &b.BankName, &b.BankCountry, &b.AccountNumber, &b.SwiftCode,
		&b.IBAN, &b.SortCode, &b.TransitNumber, &b.BSBCode, &b.RoutingNumber,
		&interName, &interSwift, &interAccnt,
		&b.Active, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if interName != "" || interSwift != "" {
		b.Intermediary = &models.IntermediaryBank{
			BankName:      interName,
			SwiftCode:     interSwift,
			AccountNumber: interAccnt,
		}
	}
	return &b, nil
}

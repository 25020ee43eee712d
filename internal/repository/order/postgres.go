package order

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"printarcade/internal/domain"
)

const uniqueViolation = "23505"

const orderColumns = `
id, customer_name, customer_email, customer_phone,
shipping_address1, shipping_address2, shipping_city, shipping_state_code, shipping_country_code, shipping_zip,
subtotal_cents, discount_cents, shipping_cents, total_cents,
COALESCE(external_fulfillment_order_id, ''), external_fulfillment_status,
payment_session_id, payment_intent_id, tracking_number, tracking_url, carrier,
created_at, confirmed_at, shipped_at
`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := r.fetchOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("order repo: get id=%s error=%v", id, err)
		}
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) GetByFulfillmentID(ctx context.Context, fulfillmentOrderID string) (*domain.Order, error) {
	o, err := r.fetchOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE external_fulfillment_order_id = $1`, fulfillmentOrderID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("order repo: get fulfillment_id=%s error=%v", fulfillmentOrderID, err)
		}
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListItems(ctx context.Context, orderID string) ([]domain.OrderLineItem, error) {
	const q = `
SELECT order_id, product_id, variant_id, name, unit_price_cents, quantity, discount_percent::float8, subtotal_cents, external_variant_id
FROM order_items
WHERE order_id = $1
ORDER BY id
`
	rows, err := r.pool.Query(ctx, q, orderID)
	if err != nil {
		r.logger.Printf("order repo: list items order_id=%s error=%v", orderID, err)
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderLineItem
	for rows.Next() {
		var it domain.OrderLineItem
		if err := rows.Scan(&it.OrderID, &it.ProductID, &it.VariantID, &it.Name, &it.UnitPriceCents,
			&it.Quantity, &it.DiscountPercent, &it.SubtotalCents, &it.ExternalVariantID); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("order repo: list items rows order_id=%s error=%v", orderID, err)
		return nil, err
	}
	return items, nil
}

// CreateWithItems inserts the order and all of its items in one transaction.
// A second insert of the same order id (or fulfillment id) yields
// domain.ErrAlreadyExists and leaves the first write untouched.
func (r *postgresRepo) CreateWithItems(ctx context.Context, o *domain.Order) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	status := o.Status
	if status == "" {
		status = domain.StatusDraft
	}
	var fulfillmentID *string
	if o.FulfillmentOrderID != "" {
		fulfillmentID = &o.FulfillmentOrderID
	}

	const insertOrder = `
INSERT INTO orders (
    id, customer_name, customer_email, customer_phone,
    shipping_address1, shipping_address2, shipping_city, shipping_state_code, shipping_country_code, shipping_zip,
    subtotal_cents, discount_cents, shipping_cents, total_cents,
    external_fulfillment_order_id, external_fulfillment_status, payment_session_id, payment_intent_id
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING created_at
`
	a := o.ShippingAddress
	if err := tx.QueryRow(ctx, insertOrder,
		o.ID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		a.Address1, a.Address2, a.City, a.StateCode, a.CountryCode, a.Zip,
		o.SubtotalCents, o.DiscountCents, o.ShippingCents, o.TotalCents,
		fulfillmentID, string(status), o.PaymentSessionID, o.PaymentIntentID,
	).Scan(&o.CreatedAt); err != nil {
		return r.mapInsertErr(o.ID, err)
	}

	const insertItem = `
INSERT INTO order_items (order_id, product_id, variant_id, name, unit_price_cents, quantity, discount_percent, subtotal_cents, external_variant_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	batch := &pgx.Batch{}
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		batch.Queue(insertItem, it.OrderID, it.ProductID, it.VariantID, it.Name, it.UnitPriceCents,
			it.Quantity, it.DiscountPercent, it.SubtotalCents, it.ExternalVariantID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Printf("order repo: insert items order_id=%s error=%v", o.ID, err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return r.mapInsertErr(o.ID, err)
	}
	o.Status = status
	r.logger.Printf("order repo: created id=%s items=%d total_cents=%d", o.ID, len(o.Items), o.TotalCents)
	return nil
}

func (r *postgresRepo) MarkConfirmed(ctx context.Context, id string, at time.Time) error {
	const q = `
UPDATE orders
SET external_fulfillment_status = $2, confirmed_at = $3
WHERE id = $1
`
	return r.execOne(ctx, "mark confirmed", id, q, id, string(domain.StatusConfirmed), at)
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	const q = `
UPDATE orders
SET external_fulfillment_status = $2
WHERE id = $1
`
	return r.execOne(ctx, "update status", id, q, id, string(status))
}

func (r *postgresRepo) AttachShipment(ctx context.Context, id string, s domain.Shipment) error {
	const q = `
UPDATE orders
SET tracking_number = $2, tracking_url = $3, carrier = $4, shipped_at = $5
WHERE id = $1
`
	return r.execOne(ctx, "attach shipment", id, q, id, s.TrackingNumber, s.TrackingURL, s.Carrier, s.ShippedAt)
}

func (r *postgresRepo) execOne(ctx context.Context, action, id, q string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		r.logger.Printf("order repo: %s id=%s error=%v", action, id, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) mapInsertErr(id string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrAlreadyExists
	}
	r.logger.Printf("order repo: create id=%s error=%v", id, err)
	return err
}

func (r *postgresRepo) fetchOrder(ctx context.Context, q string, arg string) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	a := &o.ShippingAddress
	if err := r.pool.QueryRow(ctx, q, arg).Scan(
		&o.ID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&a.Address1, &a.Address2, &a.City, &a.StateCode, &a.CountryCode, &a.Zip,
		&o.SubtotalCents, &o.DiscountCents, &o.ShippingCents, &o.TotalCents,
		&o.FulfillmentOrderID, &status,
		&o.PaymentSessionID, &o.PaymentIntentID, &o.TrackingNumber, &o.TrackingURL, &o.Carrier,
		&o.CreatedAt, &o.ConfirmedAt, &o.ShippedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.OrderStatus(status)

	items, err := r.ListItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

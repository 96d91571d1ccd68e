package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new canonical order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `id, connection_id, owner_id, platform_type, platform_order_id, order_date, status,
		customer, billing_address, shipping_address, subtotal, shipping_amount, tax_amount,
		total_amount, currency, tracking_number, carrier, status_history, platform_details,
		created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	customer, err := json.Marshal(order.Customer)
	if err != nil {
		return err
	}
	billing, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return err
	}
	shipping, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}
	history, err := json.Marshal(order.StatusHistory)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = tx.ExecContext(ctx, query,
		order.ID,
		order.ConnectionID,
		order.OwnerID,
		order.PlatformType,
		order.PlatformOrderID,
		order.OrderDate,
		order.Status,
		customer,
		billing,
		shipping,
		order.Subtotal,
		order.ShippingAmount,
		order.TaxAmount,
		order.TotalAmount,
		order.Currency,
		order.TrackingNumber,
		order.Carrier,
		history,
		[]byte(order.PlatformDetails),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", zap.Error(err))
		return err
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_title, sku, quantity, unit_price, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		_, err = tx.ExecContext(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductTitle,
			item.SKU,
			item.Quantity,
			item.UnitPrice,
			item.Currency,
		)
		if err != nil {
			r.logger.Error("Failed to create order item", zap.Error(err))
			return err
		}
	}

	return tx.Commit()
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Error(err))
		return nil, err
	}

	items, err := r.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// FindByPlatformOrderID is the de-duplication lookup. Items are not loaded:
// the sync update path only touches status, tracking and history.
func (r *orderRepository) FindByPlatformOrderID(ctx context.Context, connectionID uuid.UUID, platformOrderID string) (*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE connection_id = $1 AND platform_order_id = $2
	`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, connectionID, platformOrderID))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: platformOrderID}
	}
	if err != nil {
		r.logger.Error("Failed to find order by platform order ID", zap.Error(err))
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE owner_id = $1
		ORDER BY order_date DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error("Failed to scan order row", zap.Error(err))
			continue
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

func (r *orderRepository) UpdateFromSync(ctx context.Context, order *domain.Order) error {
	history, err := json.Marshal(order.StatusHistory)
	if err != nil {
		return err
	}

	query := `
		UPDATE orders
		SET status = $2, tracking_number = $3, carrier = $4, status_history = $5, updated_at = $6
		WHERE id = $1
	`

	order.UpdatedAt = time.Now()
	_, err = r.db.ExecContext(ctx, query,
		order.ID,
		order.Status,
		order.TrackingNumber,
		order.Carrier,
		history,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update order from sync", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, entry domain.StatusHistoryEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	query := `
		UPDATE orders
		SET status = $2,
		    status_history = status_history || $3::jsonb,
		    updated_at = $4
		WHERE id = $1
	`

	_, err = r.db.ExecContext(ctx, query, id, status, entryJSON, time.Now())
	if err != nil {
		r.logger.Error("Failed to update order status", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) UpdateTracking(ctx context.Context, id uuid.UUID, carrier, trackingNumber *string, entry domain.StatusHistoryEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	query := `
		UPDATE orders
		SET status = $2,
		    carrier = $3,
		    tracking_number = $4,
		    status_history = status_history || $5::jsonb,
		    updated_at = $6
		WHERE id = $1
	`

	_, err = r.db.ExecContext(ctx, query, id, entry.Status, carrier, trackingNumber, entryJSON, time.Now())
	if err != nil {
		r.logger.Error("Failed to update order tracking", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_title, sku, quantity, unit_price, currency
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get order items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		var sku sql.NullString
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductTitle,
			&sku,
			&item.Quantity,
			&item.UnitPrice,
			&item.Currency,
		)
		if err != nil {
			continue
		}
		if sku.Valid {
			item.SKU = &sku.String
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order           domain.Order
		customer        []byte
		billing         []byte
		shipping        []byte
		history         []byte
		platformDetails []byte
		trackingNumber  sql.NullString
		carrier         sql.NullString
	)

	err := row.Scan(
		&order.ID,
		&order.ConnectionID,
		&order.OwnerID,
		&order.PlatformType,
		&order.PlatformOrderID,
		&order.OrderDate,
		&order.Status,
		&customer,
		&billing,
		&shipping,
		&order.Subtotal,
		&order.ShippingAmount,
		&order.TaxAmount,
		&order.TotalAmount,
		&order.Currency,
		&trackingNumber,
		&carrier,
		&history,
		&platformDetails,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(customer) > 0 {
		if err := json.Unmarshal(customer, &order.Customer); err != nil {
			return nil, err
		}
	}
	if len(billing) > 0 {
		if err := json.Unmarshal(billing, &order.BillingAddress); err != nil {
			return nil, err
		}
	}
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &order.ShippingAddress); err != nil {
			return nil, err
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &order.StatusHistory); err != nil {
			return nil, err
		}
	}
	order.PlatformDetails = platformDetails
	if trackingNumber.Valid {
		order.TrackingNumber = &trackingNumber.String
	}
	if carrier.Valid {
		order.Carrier = &carrier.String
	}

	return &order, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
	"github.com/lorrc/pizza-orders-backend/internal/core/utils"
)

const orderColumns = `id, customer_id, phone, address, payment_type, status, created_at, updated_at`

type OrderRepository struct {
	pool *pgxpool.Pool
	tx   ports.TransactionManager
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

func NewOrderRepository(pool *pgxpool.Pool, tx ports.TransactionManager) ports.OrderRepository {
	return &OrderRepository{
		pool: pool,
		tx:   tx,
	}
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o           domain.Order
		paymentType string
		status      string
		updatedAt   pgtype.Timestamptz
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.Phone, &o.Address, &paymentType, &status, &o.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	o.UpdatedAt = utils.FromNullTimestamptz(updatedAt)
	o.PaymentType = domain.PaymentType(paymentType)
	o.Status = domain.OrderStatus(status)
	return &o, nil
}

// Create inserts the order and its lines in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	var created *domain.Order

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		db := GetDBTX(ctx, r.pool)

		row := db.QueryRow(ctx, `
			INSERT INTO orders (customer_id, phone, address, payment_type, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+orderColumns,
			order.CustomerID, order.Phone, order.Address,
			string(order.PaymentType), string(order.Status), order.CreatedAt,
		)

		var err error
		created, err = scanOrder(row)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i, item := range order.Items {
			if _, err := db.Exec(ctx, `
				INSERT INTO order_items (order_id, position, item_id, name, size, price_cents, quantity)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				created.ID, i, item.ItemID, item.Name, string(item.Size), item.PriceCents, item.Quantity,
			); err != nil {
				return fmt.Errorf("insert order item %d: %w", i, err)
			}
		}
		created.Items = append([]domain.OrderItem(nil), order.Items...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := GetDBTX(ctx, r.pool).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus) (*domain.Order, error) {
	db := GetDBTX(ctx, r.pool)
	row := db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4
		RETURNING `+orderColumns,
		order.ID, string(order.Status), utils.ToNullTimestamptz(order.UpdatedAt), string(from),
	)

	updated, err := scanOrder(row)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		// Either the order is gone or its status moved since it was read.
		var exists bool
		if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.ErrInvalidStatusTransition
	}
	updated.Items = order.Items
	return updated, nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC`, customerID)
}

func (r *OrderRepository) ListOpen(ctx context.Context) ([]*domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status <> 'completed'
		ORDER BY created_at DESC, id DESC`)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the lines of every order with a single query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*domain.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = make([]domain.OrderItem, 0)
	}

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, `
		SELECT order_id, item_id, name, size, price_cents, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			item    domain.OrderItem
			size    string
		)
		if err := rows.Scan(&orderID, &item.ItemID, &item.Name, &size, &item.PriceCents, &item.Quantity); err != nil {
			return err
		}
		item.Size = domain.ItemSize(size)
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

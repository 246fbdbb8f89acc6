package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/pizza-orders-backend/internal/core/domain"
	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

const menuColumns = `id, name, image, price_cents, size`

type MenuRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MenuRepository = (*MenuRepository)(nil)

func NewMenuRepository(pool *pgxpool.Pool) ports.MenuRepository {
	return &MenuRepository{
		pool: pool,
	}
}

func scanMenuItem(row pgx.Row) (*domain.MenuItem, error) {
	var (
		item domain.MenuItem
		size string
	)
	if err := row.Scan(&item.ID, &item.Name, &item.Image, &item.PriceCents, &size); err != nil {
		return nil, err
	}
	item.Size = domain.ItemSize(size)
	return &item, nil
}

func (r *MenuRepository) Create(ctx context.Context, item *domain.MenuItem) (*domain.MenuItem, error) {
	row := GetDBTX(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO menu_items (name, image, price_cents, size)
		VALUES ($1, $2, $3, $4)
		RETURNING `+menuColumns,
		item.Name, item.Image, item.PriceCents, string(item.Size),
	)
	return scanMenuItem(row)
}

func (r *MenuRepository) Update(ctx context.Context, item *domain.MenuItem) (*domain.MenuItem, error) {
	row := GetDBTX(ctx, r.pool).QueryRow(ctx, `
		UPDATE menu_items SET name = $2, image = $3, price_cents = $4, size = $5
		WHERE id = $1
		RETURNING `+menuColumns,
		item.ID, item.Name, item.Image, item.PriceCents, string(item.Size),
	)

	updated, err := scanMenuItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrItemNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (r *MenuRepository) GetByID(ctx context.Context, id int64) (*domain.MenuItem, error) {
	row := GetDBTX(ctx, r.pool).QueryRow(ctx,
		`SELECT `+menuColumns+` FROM menu_items WHERE id = $1`, id)

	item, err := scanMenuItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// GetByIDs returns the items that exist among ids, in no particular order.
func (r *MenuRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domain.MenuItem, error) {
	if len(ids) == 0 {
		return []*domain.MenuItem{}, nil
	}
	return r.list(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id = ANY($1)`, ids)
}

func (r *MenuRepository) List(ctx context.Context) ([]*domain.MenuItem, error) {
	return r.list(ctx, `SELECT `+menuColumns+` FROM menu_items ORDER BY id`)
}

func (r *MenuRepository) list(ctx context.Context, query string, args ...any) ([]*domain.MenuItem, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.MenuItem, 0)
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listItems = `
SELECT id, user_id, name, price, is_active, created_at, updated_at
FROM items
WHERE user_id = $1 AND is_active = true
ORDER BY name
`

func (q *Queries) ListItems(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	rows, err := q.db.Query(ctx, listItems, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.Price, &i.IsActive, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getItem = `
SELECT id, user_id, name, price, is_active, created_at, updated_at
FROM items
WHERE id = $1 AND user_id = $2 AND is_active = true
`

type GetItemParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) GetItem(ctx context.Context, arg GetItemParams) (Item, error) {
	row := q.db.QueryRow(ctx, getItem, arg.ID, arg.UserID)
	var i Item
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.Price, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createItem = `
INSERT INTO items (user_id, name, price)
VALUES ($1, $2, $3)
RETURNING id, user_id, name, price, is_active, created_at, updated_at
`

type CreateItemParams struct {
	UserID uuid.UUID
	Name   string
	Price  pgtype.Numeric
}

func (q *Queries) CreateItem(ctx context.Context, arg CreateItemParams) (Item, error) {
	row := q.db.QueryRow(ctx, createItem, arg.UserID, arg.Name, arg.Price)
	var i Item
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.Price, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const updateItem = `
UPDATE items
SET name = $3, price = $4, updated_at = now()
WHERE id = $1 AND user_id = $2 AND is_active = true
RETURNING id, user_id, name, price, is_active, created_at, updated_at
`

type UpdateItemParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
	Price  pgtype.Numeric
}

func (q *Queries) UpdateItem(ctx context.Context, arg UpdateItemParams) (Item, error) {
	row := q.db.QueryRow(ctx, updateItem, arg.ID, arg.UserID, arg.Name, arg.Price)
	var i Item
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.Price, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const softDeleteItem = `
UPDATE items
SET is_active = false, updated_at = now()
WHERE id = $1 AND user_id = $2 AND is_active = true
RETURNING id
`

type SoftDeleteItemParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) SoftDeleteItem(ctx context.Context, arg SoftDeleteItemParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeleteItem, arg.ID, arg.UserID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const getItemsForOrder = `
SELECT id, name, price
FROM items
WHERE user_id = $1 AND id = ANY($2::uuid[]) AND is_active = true
`

type GetItemsForOrderParams struct {
	UserID  uuid.UUID
	ItemIds []uuid.UUID
}

type GetItemsForOrderRow struct {
	ID    uuid.UUID
	Name  string
	Price pgtype.Numeric
}

func (q *Queries) GetItemsForOrder(ctx context.Context, arg GetItemsForOrderParams) ([]GetItemsForOrderRow, error) {
	rows, err := q.db.Query(ctx, getItemsForOrder, arg.UserID, arg.ItemIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetItemsForOrderRow
	for rows.Next() {
		var i GetItemsForOrderRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Price); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

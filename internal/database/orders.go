package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, order_number, customer_phone, status, payment_method,
subtotal, gst_amount, cgst, sgst, grand_total, psg_marked, printed, printed_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.OrderNumber, &o.CustomerPhone, &o.Status, &o.PaymentMethod,
		&o.Subtotal, &o.GstAmount, &o.Cgst, &o.Sgst, &o.GrandTotal,
		&o.PsgMarked, &o.Printed, &o.PrintedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const getLastOrderNumberForDay = `
SELECT order_number
FROM orders
WHERE order_number LIKE $1 || '%'
ORDER BY order_number DESC
LIMIT 1
`

// GetLastOrderNumberForDay returns the highest order number sharing the given
// day prefix. Fixed-width zero padding makes the lexicographic max the numeric max.
func (q *Queries) GetLastOrderNumberForDay(ctx context.Context, dayPrefix string) (string, error) {
	row := q.db.QueryRow(ctx, getLastOrderNumberForDay, dayPrefix)
	var orderNumber string
	err := row.Scan(&orderNumber)
	return orderNumber, err
}

const createOrder = `
INSERT INTO orders (
    user_id, order_number, customer_phone, status, payment_method,
    subtotal, gst_amount, cgst, sgst, grand_total, psg_marked
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID        uuid.UUID
	OrderNumber   string
	CustomerPhone pgtype.Text
	Status        OrderStatus
	PaymentMethod NullPaymentMethod
	Subtotal      pgtype.Numeric
	GstAmount     pgtype.Numeric
	Cgst          pgtype.Numeric
	Sgst          pgtype.Numeric
	GrandTotal    pgtype.Numeric
	PsgMarked     bool
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID, arg.OrderNumber, arg.CustomerPhone, arg.Status, arg.PaymentMethod,
		arg.Subtotal, arg.GstAmount, arg.Cgst, arg.Sgst, arg.GrandTotal, arg.PsgMarked,
	)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, item_id, quantity, unit_price, total_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, item_id, quantity, unit_price, total_price
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	ItemID     uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ItemID, arg.Quantity, arg.UnitPrice, arg.TotalPrice,
	)
	var oi OrderItem
	err := row.Scan(&oi.ID, &oi.OrderID, &oi.ItemID, &oi.Quantity, &oi.UnitPrice, &oi.TotalPrice)
	return oi, err
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND user_id = $2
`

type GetOrderParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.UserID))
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1
  AND ($2::order_status IS NULL OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

type ListOrdersParams struct {
	UserID uuid.UUID
	Status NullOrderStatus
	Limit  int32
	Offset int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.UserID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const countOrders = `
SELECT COUNT(*)
FROM orders
WHERE user_id = $1
  AND ($2::order_status IS NULL OR status = $2)
`

type CountOrdersParams struct {
	UserID uuid.UUID
	Status NullOrderStatus
}

func (q *Queries) CountOrders(ctx context.Context, arg CountOrdersParams) (int64, error) {
	row := q.db.QueryRow(ctx, countOrders, arg.UserID, arg.Status)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listOrderItemsByOrder = `
SELECT oi.id, oi.order_id, oi.item_id, oi.quantity, oi.unit_price, oi.total_price, i.name AS item_name
FROM order_items oi
JOIN items i ON i.id = oi.item_id
WHERE oi.order_id = $1
ORDER BY oi.id
`

type ListOrderItemsByOrderRow struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	ItemID     uuid.UUID
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
	ItemName   string
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderItemsByOrderRow
	for rows.Next() {
		var i ListOrderItemsByOrderRow
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ItemID, &i.Quantity, &i.UnitPrice, &i.TotalPrice, &i.ItemName); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateOrder = `
UPDATE orders
SET customer_phone = $3,
    status = $4,
    payment_method = $5,
    subtotal = $6,
    gst_amount = $7,
    cgst = $8,
    sgst = $9,
    grand_total = $10,
    psg_marked = $11,
    updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + orderColumns

type UpdateOrderParams struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	CustomerPhone pgtype.Text
	Status        OrderStatus
	PaymentMethod NullPaymentMethod
	Subtotal      pgtype.Numeric
	GstAmount     pgtype.Numeric
	Cgst          pgtype.Numeric
	Sgst          pgtype.Numeric
	GrandTotal    pgtype.Numeric
	PsgMarked     bool
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrder,
		arg.ID, arg.UserID, arg.CustomerPhone, arg.Status, arg.PaymentMethod,
		arg.Subtotal, arg.GstAmount, arg.Cgst, arg.Sgst, arg.GrandTotal, arg.PsgMarked,
	)
	return scanOrder(row)
}

const deleteOrderItemsByOrder = `
DELETE FROM order_items WHERE order_id = $1
`

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderItemsByOrder, orderID)
	return err
}

const deleteOrder = `
DELETE FROM orders
WHERE id = $1 AND user_id = $2
RETURNING id
`

type DeleteOrderParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) DeleteOrder(ctx context.Context, arg DeleteOrderParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteOrder, arg.ID, arg.UserID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const markOrderPrinted = `
UPDATE orders
SET printed = true, printed_at = now(), updated_at = now()
WHERE id = $1 AND user_id = $2 AND status = 'completed'
RETURNING ` + orderColumns

type MarkOrderPrintedParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) MarkOrderPrinted(ctx context.Context, arg MarkOrderPrintedParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderPrinted, arg.ID, arg.UserID))
}

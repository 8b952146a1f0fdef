package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// CompletedOrderLineRow is one order line joined with its order and item,
// scoped to completed orders. The report aggregator accumulates over these.
type CompletedOrderLineRow struct {
	OrderID        uuid.UUID
	OrderNumber    string
	OrderCreatedAt time.Time
	PsgMarked      bool
	ItemID         uuid.UUID
	ItemName       string
	Quantity       int32
	UnitPrice      pgtype.Numeric
	TotalPrice     pgtype.Numeric
}

const completedOrderLineColumns = `
SELECT o.id, o.order_number, o.created_at, o.psg_marked,
       oi.item_id, i.name, oi.quantity, oi.unit_price, oi.total_price
FROM orders o
JOIN order_items oi ON oi.order_id = o.id
JOIN items i ON i.id = oi.item_id
`

const listCompletedOrderLines = completedOrderLineColumns + `
WHERE o.user_id = $1 AND o.status = 'completed'
  AND o.created_at >= $2 AND o.created_at <= $3
ORDER BY o.created_at, o.id, oi.id
`

type ListCompletedOrderLinesParams struct {
	UserID uuid.UUID
	From   time.Time
	To     time.Time
}

func (q *Queries) ListCompletedOrderLines(ctx context.Context, arg ListCompletedOrderLinesParams) ([]CompletedOrderLineRow, error) {
	return q.queryOrderLines(ctx, listCompletedOrderLines, arg.UserID, arg.From, arg.To)
}

const listPSGOrderLines = completedOrderLineColumns + `
WHERE o.user_id = $1 AND o.status = 'completed' AND o.psg_marked = true
  AND o.created_at >= $2 AND o.created_at <= $3
ORDER BY o.created_at, o.id, oi.id
`

type ListPSGOrderLinesParams struct {
	UserID uuid.UUID
	From   time.Time
	To     time.Time
}

func (q *Queries) ListPSGOrderLines(ctx context.Context, arg ListPSGOrderLinesParams) ([]CompletedOrderLineRow, error) {
	return q.queryOrderLines(ctx, listPSGOrderLines, arg.UserID, arg.From, arg.To)
}

func (q *Queries) queryOrderLines(ctx context.Context, sql string, args ...interface{}) ([]CompletedOrderLineRow, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []CompletedOrderLineRow
	for rows.Next() {
		var r CompletedOrderLineRow
		if err := rows.Scan(
			&r.OrderID, &r.OrderNumber, &r.OrderCreatedAt, &r.PsgMarked,
			&r.ItemID, &r.ItemName, &r.Quantity, &r.UnitPrice, &r.TotalPrice,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

const listPSGOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1 AND status = 'completed' AND psg_marked = true
  AND created_at >= $2 AND created_at <= $3
ORDER BY created_at DESC
LIMIT $4 OFFSET $5
`

type ListPSGOrdersParams struct {
	UserID uuid.UUID
	From   time.Time
	To     time.Time
	Limit  int32
	Offset int32
}

func (q *Queries) ListPSGOrders(ctx context.Context, arg ListPSGOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listPSGOrders, arg.UserID, arg.From, arg.To, arg.Limit, arg.Offset)
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

const countPSGOrders = `
SELECT COUNT(*)
FROM orders
WHERE user_id = $1 AND status = 'completed' AND psg_marked = true
  AND created_at >= $2 AND created_at <= $3
`

type CountPSGOrdersParams struct {
	UserID uuid.UUID
	From   time.Time
	To     time.Time
}

func (q *Queries) CountPSGOrders(ctx context.Context, arg CountPSGOrdersParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countPSGOrders, arg.UserID, arg.From, arg.To).Scan(&count)
	return count, err
}

// PSGItemLineRow is one line of a given item across PSG-marked completed
// orders, with the order's payment method for the detail view.
type PSGItemLineRow struct {
	OrderID        uuid.UUID
	OrderNumber    string
	OrderCreatedAt time.Time
	PaymentMethod  NullPaymentMethod
	Quantity       int32
	UnitPrice      pgtype.Numeric
	TotalPrice     pgtype.Numeric
}

const listPSGItemLines = `
SELECT o.id, o.order_number, o.created_at, o.payment_method,
       oi.quantity, oi.unit_price, oi.total_price
FROM orders o
JOIN order_items oi ON oi.order_id = o.id
WHERE o.user_id = $1 AND o.status = 'completed' AND o.psg_marked = true
  AND oi.item_id = $2
  AND o.created_at >= $3 AND o.created_at <= $4
ORDER BY o.created_at DESC, oi.id
`

type ListPSGItemLinesParams struct {
	UserID uuid.UUID
	ItemID uuid.UUID
	From   time.Time
	To     time.Time
}

func (q *Queries) ListPSGItemLines(ctx context.Context, arg ListPSGItemLinesParams) ([]PSGItemLineRow, error) {
	rows, err := q.db.Query(ctx, listPSGItemLines, arg.UserID, arg.ItemID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []PSGItemLineRow
	for rows.Next() {
		var r PSGItemLineRow
		if err := rows.Scan(
			&r.OrderID, &r.OrderNumber, &r.OrderCreatedAt, &r.PaymentMethod,
			&r.Quantity, &r.UnitPrice, &r.TotalPrice,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

const getOrderReportSummary = `
SELECT COUNT(*), COALESCE(SUM(subtotal), 0), COALESCE(SUM(gst_amount), 0), COALESCE(SUM(grand_total), 0)
FROM orders
WHERE user_id = $1 AND status = 'completed'
  AND created_at >= $2 AND created_at <= $3
  AND ($4::payment_method IS NULL OR payment_method = $4)
`

type GetOrderReportSummaryParams struct {
	UserID        uuid.UUID
	From          time.Time
	To            time.Time
	PaymentMethod NullPaymentMethod
}

type GetOrderReportSummaryRow struct {
	TotalOrders   int64
	TotalSubtotal pgtype.Numeric
	TotalGst      pgtype.Numeric
	TotalAmount   pgtype.Numeric
}

func (q *Queries) GetOrderReportSummary(ctx context.Context, arg GetOrderReportSummaryParams) (GetOrderReportSummaryRow, error) {
	row := q.db.QueryRow(ctx, getOrderReportSummary, arg.UserID, arg.From, arg.To, arg.PaymentMethod)
	var r GetOrderReportSummaryRow
	err := row.Scan(&r.TotalOrders, &r.TotalSubtotal, &r.TotalGst, &r.TotalAmount)
	return r, err
}

const getPaymentBreakdown = `
SELECT payment_method, COUNT(*), COALESCE(SUM(grand_total), 0)
FROM orders
WHERE user_id = $1 AND status = 'completed'
  AND created_at >= $2 AND created_at <= $3
GROUP BY payment_method
ORDER BY payment_method
`

type GetPaymentBreakdownParams struct {
	UserID uuid.UUID
	From   time.Time
	To     time.Time
}

type GetPaymentBreakdownRow struct {
	PaymentMethod NullPaymentMethod
	OrderCount    int64
	TotalAmount   pgtype.Numeric
}

func (q *Queries) GetPaymentBreakdown(ctx context.Context, arg GetPaymentBreakdownParams) ([]GetPaymentBreakdownRow, error) {
	rows, err := q.db.Query(ctx, getPaymentBreakdown, arg.UserID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []GetPaymentBreakdownRow
	for rows.Next() {
		var r GetPaymentBreakdownRow
		if err := rows.Scan(&r.PaymentMethod, &r.OrderCount, &r.TotalAmount); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

const listOrdersForReport = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1 AND status = 'completed'
  AND created_at >= $2 AND created_at <= $3
  AND ($4::payment_method IS NULL OR payment_method = $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6
`

type ListOrdersForReportParams struct {
	UserID        uuid.UUID
	From          time.Time
	To            time.Time
	PaymentMethod NullPaymentMethod
	Limit         int32
	Offset        int32
}

func (q *Queries) ListOrdersForReport(ctx context.Context, arg ListOrdersForReportParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersForReport,
		arg.UserID, arg.From, arg.To, arg.PaymentMethod, arg.Limit, arg.Offset,
	)
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

const getDailySales = `
SELECT to_char(created_at, $4) AS period,
       COUNT(*),
       COALESCE(SUM(subtotal), 0),
       COALESCE(SUM(gst_amount), 0),
       COALESCE(SUM(grand_total), 0),
       COALESCE(AVG(grand_total), 0)
FROM orders
WHERE user_id = $1 AND status = 'completed'
  AND created_at >= $2 AND created_at <= $3
GROUP BY period
ORDER BY period
`

type GetDailySalesParams struct {
	UserID uuid.UUID
	From   time.Time
	To     time.Time
	// PeriodFormat is a to_char format: YYYY-MM-DD, IYYY-IW or YYYY-MM.
	PeriodFormat string
}

type GetDailySalesRow struct {
	Period        string
	OrderCount    int64
	Subtotal      pgtype.Numeric
	GstAmount     pgtype.Numeric
	TotalAmount   pgtype.Numeric
	AvgOrderValue pgtype.Numeric
}

func (q *Queries) GetDailySales(ctx context.Context, arg GetDailySalesParams) ([]GetDailySalesRow, error) {
	rows, err := q.db.Query(ctx, getDailySales, arg.UserID, arg.From, arg.To, arg.PeriodFormat)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []GetDailySalesRow
	for rows.Next() {
		var r GetDailySalesRow
		if err := rows.Scan(&r.Period, &r.OrderCount, &r.Subtotal, &r.GstAmount, &r.TotalAmount, &r.AvgOrderValue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

const getTopSellingItems = `
SELECT oi.item_id, i.name, SUM(oi.quantity)::bigint, COALESCE(SUM(oi.total_price), 0)
FROM orders o
JOIN order_items oi ON oi.order_id = o.id
JOIN items i ON i.id = oi.item_id
WHERE o.user_id = $1 AND o.status = 'completed'
  AND o.created_at >= $2 AND o.created_at <= $3
GROUP BY oi.item_id, i.name
ORDER BY SUM(oi.quantity) DESC
LIMIT $4
`

type GetTopSellingItemsParams struct {
	UserID uuid.UUID
	From   time.Time
	To     time.Time
	Limit  int32
}

type GetTopSellingItemsRow struct {
	ItemID        uuid.UUID
	ItemName      string
	TotalQuantity int64
	TotalAmount   pgtype.Numeric
}

func (q *Queries) GetTopSellingItems(ctx context.Context, arg GetTopSellingItemsParams) ([]GetTopSellingItemsRow, error) {
	rows, err := q.db.Query(ctx, getTopSellingItems, arg.UserID, arg.From, arg.To, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []GetTopSellingItemsRow
	for rows.Next() {
		var r GetTopSellingItemsRow
		if err := rows.Scan(&r.ItemID, &r.ItemName, &r.TotalQuantity, &r.TotalAmount); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

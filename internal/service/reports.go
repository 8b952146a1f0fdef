package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/finova-pos/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ReportsStore defines the DB methods needed by the report service.
// Satisfied by *database.Queries.
type ReportsStore interface {
	ListCompletedOrderLines(ctx context.Context, arg database.ListCompletedOrderLinesParams) ([]database.CompletedOrderLineRow, error)
	ListPSGOrderLines(ctx context.Context, arg database.ListPSGOrderLinesParams) ([]database.CompletedOrderLineRow, error)
	ListPSGOrders(ctx context.Context, arg database.ListPSGOrdersParams) ([]database.Order, error)
	CountPSGOrders(ctx context.Context, arg database.CountPSGOrdersParams) (int64, error)
	ListPSGItemLines(ctx context.Context, arg database.ListPSGItemLinesParams) ([]database.PSGItemLineRow, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	GetItem(ctx context.Context, arg database.GetItemParams) (database.Item, error)
	GetOrderReportSummary(ctx context.Context, arg database.GetOrderReportSummaryParams) (database.GetOrderReportSummaryRow, error)
	GetPaymentBreakdown(ctx context.Context, arg database.GetPaymentBreakdownParams) ([]database.GetPaymentBreakdownRow, error)
	ListOrdersForReport(ctx context.Context, arg database.ListOrdersForReportParams) ([]database.Order, error)
	GetDailySales(ctx context.Context, arg database.GetDailySalesParams) ([]database.GetDailySalesRow, error)
	GetTopSellingItems(ctx context.Context, arg database.GetTopSellingItemsParams) ([]database.GetTopSellingItemsRow, error)
}

// ReportService aggregates completed-order data into report views.
type ReportService struct {
	store ReportsStore
}

func NewReportService(store ReportsStore) *ReportService {
	return &ReportService{store: store}
}

// ItemReport is the per-item sales aggregate.
type ItemReport struct {
	ItemID        uuid.UUID
	ItemName      string
	TotalQuantity int64
	TotalRevenue  decimal.Decimal
	AveragePrice  decimal.Decimal
	OrderCount    int64
}

// ItemReportSummary totals the aggregated items.
type ItemReportSummary struct {
	TotalItems    int
	TotalQuantity int64
	TotalRevenue  decimal.Decimal
}

// ItemReportResult is the full item report response.
type ItemReportResult struct {
	Items   []ItemReport
	Summary ItemReportSummary
}

// itemAccumulator collects per-item state while walking order lines.
type itemAccumulator struct {
	report    ItemReport
	priceSum  decimal.Decimal
	lineCount int64
	orders    map[uuid.UUID]struct{}
}

// ItemReports aggregates completed order lines per item within the window.
// Items sort by total quantity descending; ties keep first-seen order.
func (s *ReportService) ItemReports(ctx context.Context, userID uuid.UUID, from, to time.Time) (*ItemReportResult, error) {
	rows, err := s.store.ListCompletedOrderLines(ctx, database.ListCompletedOrderLinesParams{
		UserID: userID,
		From:   from,
		To:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}

	byItem := make(map[uuid.UUID]*itemAccumulator)
	var seen []uuid.UUID
	for _, row := range rows {
		acc, ok := byItem[row.ItemID]
		if !ok {
			acc = &itemAccumulator{
				report: ItemReport{ItemID: row.ItemID, ItemName: row.ItemName},
				orders: make(map[uuid.UUID]struct{}),
			}
			byItem[row.ItemID] = acc
			seen = append(seen, row.ItemID)
		}
		acc.report.TotalQuantity += int64(row.Quantity)
		acc.report.TotalRevenue = acc.report.TotalRevenue.Add(numericToDecimal(row.TotalPrice))
		acc.priceSum = acc.priceSum.Add(numericToDecimal(row.UnitPrice))
		acc.lineCount++
		acc.orders[row.OrderID] = struct{}{}
	}

	result := &ItemReportResult{Items: make([]ItemReport, 0, len(seen))}
	for _, id := range seen {
		acc := byItem[id]
		acc.report.AveragePrice = acc.priceSum.Div(decimal.NewFromInt(acc.lineCount)).Round(2)
		acc.report.OrderCount = int64(len(acc.orders))
		result.Items = append(result.Items, acc.report)
		result.Summary.TotalQuantity += acc.report.TotalQuantity
		result.Summary.TotalRevenue = result.Summary.TotalRevenue.Add(acc.report.TotalRevenue)
	}
	result.Summary.TotalItems = len(result.Items)

	sort.SliceStable(result.Items, func(i, j int) bool {
		return result.Items[i].TotalQuantity > result.Items[j].TotalQuantity
	})
	return result, nil
}

// PSGOrderRef is one order that contributed to a PSG item aggregate.
type PSGOrderRef struct {
	OrderID     uuid.UUID
	OrderNumber string
	Quantity    int64
	Amount      decimal.Decimal
	OrderDate   time.Time
}

// PSGItemReport is the per-item aggregate over PSG-marked orders, with the
// contributing orders listed.
type PSGItemReport struct {
	ItemID        uuid.UUID
	ItemName      string
	TotalQuantity int64
	TotalAmount   decimal.Decimal
	Orders        []PSGOrderRef
}

// PSGSummary totals the PSG report.
type PSGSummary struct {
	TotalOrders   int64
	TotalItems    int
	TotalQuantity int64
	TotalAmount   decimal.Decimal
}

// PSGReportResult is the full PSG report response.
type PSGReportResult struct {
	Items   []PSGItemReport
	Summary PSGSummary
}

// PSGReports aggregates lines from completed PSG-marked orders per item.
// Contributing orders list in creation order.
func (s *ReportService) PSGReports(ctx context.Context, userID uuid.UUID, from, to time.Time) (*PSGReportResult, error) {
	rows, err := s.store.ListPSGOrderLines(ctx, database.ListPSGOrderLinesParams{
		UserID: userID,
		From:   from,
		To:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("list psg order lines: %w", err)
	}

	byItem := make(map[uuid.UUID]*PSGItemReport)
	var seen []uuid.UUID
	allOrders := make(map[uuid.UUID]struct{})
	for _, row := range rows {
		agg, ok := byItem[row.ItemID]
		if !ok {
			agg = &PSGItemReport{ItemID: row.ItemID, ItemName: row.ItemName}
			byItem[row.ItemID] = agg
			seen = append(seen, row.ItemID)
		}
		amount := numericToDecimal(row.TotalPrice)
		agg.TotalQuantity += int64(row.Quantity)
		agg.TotalAmount = agg.TotalAmount.Add(amount)
		agg.Orders = append(agg.Orders, PSGOrderRef{
			OrderID:     row.OrderID,
			OrderNumber: row.OrderNumber,
			Quantity:    int64(row.Quantity),
			Amount:      amount,
			OrderDate:   row.OrderCreatedAt,
		})
		allOrders[row.OrderID] = struct{}{}
	}

	result := &PSGReportResult{Items: make([]PSGItemReport, 0, len(seen))}
	for _, id := range seen {
		agg := byItem[id]
		result.Items = append(result.Items, *agg)
		result.Summary.TotalQuantity += agg.TotalQuantity
		result.Summary.TotalAmount = result.Summary.TotalAmount.Add(agg.TotalAmount)
	}
	result.Summary.TotalOrders = int64(len(allOrders))
	result.Summary.TotalItems = len(result.Items)

	sort.SliceStable(result.Items, func(i, j int) bool {
		return result.Items[i].TotalQuantity > result.Items[j].TotalQuantity
	})
	return result, nil
}

// PSGOrderHistoryRequest filters one page of the PSG order history.
type PSGOrderHistoryRequest struct {
	UserID uuid.UUID
	From   time.Time
	To     time.Time
	Limit  int32
	Offset int32
}

// PSGOrderHistoryResult is a page of completed PSG-marked orders with their
// lines, newest first.
type PSGOrderHistoryResult struct {
	Orders []OrderResult
	Total  int64
}

// PSGOrderHistory pages through completed PSG-marked orders in the window.
func (s *ReportService) PSGOrderHistory(ctx context.Context, req PSGOrderHistoryRequest) (*PSGOrderHistoryResult, error) {
	total, err := s.store.CountPSGOrders(ctx, database.CountPSGOrdersParams{
		UserID: req.UserID,
		From:   req.From,
		To:     req.To,
	})
	if err != nil {
		return nil, fmt.Errorf("count psg orders: %w", err)
	}

	orders, err := s.store.ListPSGOrders(ctx, database.ListPSGOrdersParams{
		UserID: req.UserID,
		From:   req.From,
		To:     req.To,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list psg orders: %w", err)
	}

	result := &PSGOrderHistoryResult{
		Orders: make([]OrderResult, 0, len(orders)),
		Total:  total,
	}
	for _, o := range orders {
		items, err := s.store.ListOrderItemsByOrder(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("list order items: %w", err)
		}
		result.Orders = append(result.Orders, OrderResult{Order: o, Items: items})
	}
	return result, nil
}

// PSGItemOrder is one PSG order that included the item under inspection.
type PSGItemOrder struct {
	OrderID       uuid.UUID
	OrderNumber   string
	Quantity      int64
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
	OrderDate     time.Time
	PaymentMethod string
}

// PSGItemDetailResult is the per-item drill-down over PSG-marked orders.
type PSGItemDetailResult struct {
	Item            database.Item
	TotalQuantity   int64
	TotalAmount     decimal.Decimal
	AverageQuantity decimal.Decimal
	OrderCount      int64
	Orders          []PSGItemOrder
}

// PSGItemDetails returns one item's statistics and per-order rows across
// completed PSG-marked orders in the window, newest order first. The item
// must exist, be active, and belong to the user.
func (s *ReportService) PSGItemDetails(ctx context.Context, userID, itemID uuid.UUID, from, to time.Time) (*PSGItemDetailResult, error) {
	item, err := s.store.GetItem(ctx, database.GetItemParams{ID: itemID, UserID: userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	rows, err := s.store.ListPSGItemLines(ctx, database.ListPSGItemLinesParams{
		UserID: userID,
		ItemID: itemID,
		From:   from,
		To:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("list psg item lines: %w", err)
	}

	result := &PSGItemDetailResult{
		Item:   item,
		Orders: make([]PSGItemOrder, 0, len(rows)),
	}
	distinctOrders := make(map[uuid.UUID]struct{})
	for _, row := range rows {
		method := ""
		if row.PaymentMethod.Valid {
			method = string(row.PaymentMethod.PaymentMethod)
		}
		result.TotalQuantity += int64(row.Quantity)
		result.TotalAmount = result.TotalAmount.Add(numericToDecimal(row.TotalPrice))
		result.Orders = append(result.Orders, PSGItemOrder{
			OrderID:       row.OrderID,
			OrderNumber:   row.OrderNumber,
			Quantity:      int64(row.Quantity),
			UnitPrice:     numericToDecimal(row.UnitPrice),
			TotalPrice:    numericToDecimal(row.TotalPrice),
			OrderDate:     row.OrderCreatedAt,
			PaymentMethod: method,
		})
		distinctOrders[row.OrderID] = struct{}{}
	}
	result.OrderCount = int64(len(distinctOrders))
	if result.OrderCount > 0 {
		result.AverageQuantity = decimal.NewFromInt(result.TotalQuantity).
			Div(decimal.NewFromInt(result.OrderCount)).Round(2)
	}
	return result, nil
}

// PaymentBreakdown is per-payment-method totals in the order report.
type PaymentBreakdown struct {
	PaymentMethod string
	OrderCount    int64
	TotalAmount   decimal.Decimal
}

// OrderReportSummary totals completed orders in the window.
type OrderReportSummary struct {
	TotalOrders   int64
	TotalSubtotal decimal.Decimal
	TotalGST      decimal.Decimal
	TotalAmount   decimal.Decimal
}

// OrderReportResult is the order report response.
type OrderReportResult struct {
	Summary  OrderReportSummary
	Payments []PaymentBreakdown
	Orders   []database.Order
}

// OrderReportRequest filters the order report.
type OrderReportRequest struct {
	UserID        uuid.UUID
	From          time.Time
	To            time.Time
	PaymentMethod string
	Limit         int32
	Offset        int32
}

// OrderReports returns completed-order totals, the payment method breakdown,
// and a page of the underlying orders.
func (s *ReportService) OrderReports(ctx context.Context, req OrderReportRequest) (*OrderReportResult, error) {
	payment, err := resolvePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	summary, err := s.store.GetOrderReportSummary(ctx, database.GetOrderReportSummaryParams{
		UserID:        req.UserID,
		From:          req.From,
		To:            req.To,
		PaymentMethod: payment,
	})
	if err != nil {
		return nil, fmt.Errorf("get order summary: %w", err)
	}

	breakdown, err := s.store.GetPaymentBreakdown(ctx, database.GetPaymentBreakdownParams{
		UserID: req.UserID,
		From:   req.From,
		To:     req.To,
	})
	if err != nil {
		return nil, fmt.Errorf("get payment breakdown: %w", err)
	}

	orders, err := s.store.ListOrdersForReport(ctx, database.ListOrdersForReportParams{
		UserID:        req.UserID,
		From:          req.From,
		To:            req.To,
		PaymentMethod: payment,
		Limit:         req.Limit,
		Offset:        req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	result := &OrderReportResult{
		Summary: OrderReportSummary{
			TotalOrders:   summary.TotalOrders,
			TotalSubtotal: numericToDecimal(summary.TotalSubtotal),
			TotalGST:      numericToDecimal(summary.TotalGst),
			TotalAmount:   numericToDecimal(summary.TotalAmount),
		},
		Orders: orders,
	}
	for _, b := range breakdown {
		method := ""
		if b.PaymentMethod.Valid {
			method = string(b.PaymentMethod.PaymentMethod)
		}
		result.Payments = append(result.Payments, PaymentBreakdown{
			PaymentMethod: method,
			OrderCount:    b.OrderCount,
			TotalAmount:   numericToDecimal(b.TotalAmount),
		})
	}
	return result, nil
}

// SalesPeriod is a bucketed sales rollup row.
type SalesPeriod struct {
	Period        string
	OrderCount    int64
	Subtotal      decimal.Decimal
	GSTAmount     decimal.Decimal
	TotalAmount   decimal.Decimal
	AvgOrderValue decimal.Decimal
}

// periodFormats maps the groupBy parameter to a to_char format.
var periodFormats = map[string]string{
	"day":   "YYYY-MM-DD",
	"week":  "IYYY-IW",
	"month": "YYYY-MM",
}

// ErrInvalidGroupBy is returned for an unknown rollup granularity.
var ErrInvalidGroupBy = fmt.Errorf("group_by must be one of day, week, month")

// SalesByPeriod rolls completed orders up into day, week, or month buckets.
func (s *ReportService) SalesByPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time, groupBy string) ([]SalesPeriod, error) {
	if groupBy == "" {
		groupBy = "day"
	}
	format, ok := periodFormats[groupBy]
	if !ok {
		return nil, ErrInvalidGroupBy
	}

	rows, err := s.store.GetDailySales(ctx, database.GetDailySalesParams{
		UserID:       userID,
		From:         from,
		To:           to,
		PeriodFormat: format,
	})
	if err != nil {
		return nil, fmt.Errorf("get sales rollup: %w", err)
	}

	periods := make([]SalesPeriod, 0, len(rows))
	for _, row := range rows {
		periods = append(periods, SalesPeriod{
			Period:        row.Period,
			OrderCount:    row.OrderCount,
			Subtotal:      numericToDecimal(row.Subtotal),
			GSTAmount:     numericToDecimal(row.GstAmount),
			TotalAmount:   numericToDecimal(row.TotalAmount),
			AvgOrderValue: numericToDecimal(row.AvgOrderValue).Round(2),
		})
	}
	return periods, nil
}

// TopItem is one row of the top-selling items report.
type TopItem struct {
	ItemID        uuid.UUID
	ItemName      string
	TotalQuantity int64
	TotalAmount   decimal.Decimal
}

// TopItems returns the best-selling items by quantity within the window.
func (s *ReportService) TopItems(ctx context.Context, userID uuid.UUID, from, to time.Time, limit int32) ([]TopItem, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.store.GetTopSellingItems(ctx, database.GetTopSellingItemsParams{
		UserID: userID,
		From:   from,
		To:     to,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("get top items: %w", err)
	}

	items := make([]TopItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, TopItem{
			ItemID:        row.ItemID,
			ItemName:      row.ItemName,
			TotalQuantity: row.TotalQuantity,
			TotalAmount:   numericToDecimal(row.TotalAmount),
		})
	}
	return items, nil
}

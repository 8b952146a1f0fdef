package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finova-pos/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems            = errors.New("items are required")
	ErrInvalidQuantity       = errors.New("quantity must be > 0")
	ErrInvalidItemID         = errors.New("invalid item_id")
	ErrItemNotFound          = errors.New("item not found")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidPaymentMethod  = errors.New("invalid payment_method")
	ErrPaymentMethodRequired = errors.New("payment_method is required to complete an order")
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderNotDeletable     = errors.New("only draft orders can be deleted")
	ErrOrderNotCompleted     = errors.New("only completed orders can be printed")
	ErrOrderNumberExhausted  = errors.New("could not allocate order number")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetLastOrderNumberForDay(ctx context.Context, dayPrefix string) (string, error)
	GetItemsForOrder(ctx context.Context, arg database.GetItemsForOrderParams) ([]database.GetItemsForOrderRow, error)
	GetBusinessProfile(ctx context.Context, userID uuid.UUID) (database.BusinessProfile, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteOrder(ctx context.Context, arg database.DeleteOrderParams) (uuid.UUID, error)
	MarkOrderPrinted(ctx context.Context, arg database.MarkOrderPrintedParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderLineRequest is a single item line in an order request.
type OrderLineRequest struct {
	ItemID   string
	Quantity int32
}

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	UserID        uuid.UUID
	CustomerPhone string
	Status        string
	PaymentMethod string
	PsgMarked     bool
	Items         []OrderLineRequest
}

// UpdateOrderRequest patches an existing order. Nil pointer fields keep the
// stored value; a nil Items slice keeps the stored lines.
type UpdateOrderRequest struct {
	OrderID       uuid.UUID
	UserID        uuid.UUID
	CustomerPhone *string
	Status        *string
	PaymentMethod *string
	PsgMarked     *bool
	Items         []OrderLineRequest
}

// OrderResult is an order with its line items.
type OrderResult struct {
	Order database.Order
	Items []database.ListOrderItemsByOrderRow
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, now: time.Now}
}

// pricedLineParams is a resolved line ready to insert.
type pricedLineParams struct {
	itemID     uuid.UUID
	quantity   int32
	unitPrice  decimal.Decimal
	totalPrice decimal.Decimal
}

// CreateOrder validates, prices, numbers, and creates an order atomically.
// Retries on order_number unique constraint violations (concurrent
// transactions reading the same daily maximum); the final attempt switches to
// a clock-derived number.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	status, err := resolveStatus(req.Status)
	if err != nil {
		return nil, err
	}
	payment, err := resolvePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if status == database.OrderStatusCompleted && !payment.Valid {
		return nil, ErrPaymentMethodRequired
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	var lastErr error
	for attempt := 0; attempt <= maxOrderNumberRetries; attempt++ {
		useFallback := attempt == maxOrderNumberRetries
		result, err := s.createOrderTx(ctx, req, status, payment, useFallback)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrOrderNumberExhausted, lastErr)
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

// createOrderTx executes one order creation attempt in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, status database.OrderStatus, payment database.NullPaymentMethod, useFallback bool) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Lines must resolve and price before a number is taken; a rejected
	// request should never consume a slot in the daily sequence.
	lines, totals, err := s.priceLines(ctx, store, req.UserID, req.Items)
	if err != nil {
		return nil, err
	}

	orderNumber, err := s.allocateOrderNumber(ctx, store, useFallback)
	if err != nil {
		return nil, err
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:        req.UserID,
		OrderNumber:   orderNumber,
		CustomerPhone: textOrNull(req.CustomerPhone),
		Status:        status,
		PaymentMethod: payment,
		Subtotal:      decimalToNumeric(totals.Subtotal),
		GstAmount:     decimalToNumeric(totals.GSTAmount),
		Cgst:          decimalToNumeric(totals.CGST),
		Sgst:          decimalToNumeric(totals.SGST),
		GrandTotal:    decimalToNumeric(totals.GrandTotal),
		PsgMarked:     req.PsgMarked,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.insertLines(ctx, store, order.ID, lines); err != nil {
		return nil, err
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: items}, nil
}

// allocateOrderNumber picks the next sequential number for today, or a
// clock-derived one when useFallback is set.
func (s *OrderService) allocateOrderNumber(ctx context.Context, store OrderStore, useFallback bool) (string, error) {
	now := s.now()
	dayPrefix := orderNumberDayPrefix(now)

	if useFallback {
		return fallbackOrderNumber(dayPrefix, now), nil
	}

	last, err := store.GetLastOrderNumberForDay(ctx, dayPrefix)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return buildOrderNumber(dayPrefix, 1), nil
		}
		return "", fmt.Errorf("get last order number: %w", err)
	}
	return buildOrderNumber(dayPrefix, parseOrderSequence(last)+1), nil
}

// priceLines resolves the requested lines against the item catalog and prices
// the order using the business GST rate.
func (s *OrderService) priceLines(ctx context.Context, store OrderStore, userID uuid.UUID, reqItems []OrderLineRequest) ([]pricedLineParams, Totals, error) {
	itemIDs := make([]uuid.UUID, 0, len(reqItems))
	for i, line := range reqItems {
		if line.Quantity <= 0 {
			return nil, Totals{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		id, err := uuid.Parse(line.ItemID)
		if err != nil {
			return nil, Totals{}, fmt.Errorf("item[%d]: %w", i, ErrInvalidItemID)
		}
		itemIDs = append(itemIDs, id)
	}

	catalog, err := store.GetItemsForOrder(ctx, database.GetItemsForOrderParams{
		UserID:  userID,
		ItemIds: itemIDs,
	})
	if err != nil {
		return nil, Totals{}, fmt.Errorf("get items: %w", err)
	}
	prices := make(map[uuid.UUID]decimal.Decimal, len(catalog))
	for _, it := range catalog {
		prices[it.ID] = numericToDecimal(it.Price)
	}

	lines := make([]pricedLineParams, 0, len(reqItems))
	priced := make([]PricedLine, 0, len(reqItems))
	for i, id := range itemIDs {
		price, ok := prices[id]
		if !ok {
			return nil, Totals{}, fmt.Errorf("item[%d]: %w", i, ErrItemNotFound)
		}
		qty := reqItems[i].Quantity
		lines = append(lines, pricedLineParams{
			itemID:     id,
			quantity:   qty,
			unitPrice:  price,
			totalPrice: LineTotal(price, qty),
		})
		priced = append(priced, PricedLine{UnitPrice: price, Quantity: qty})
	}

	gst, err := s.gstPercentage(ctx, store, userID)
	if err != nil {
		return nil, Totals{}, err
	}
	return lines, PriceOrder(priced, gst), nil
}

// gstPercentage reads the business GST rate; a missing profile means no GST.
func (s *OrderService) gstPercentage(ctx context.Context, store OrderStore, userID uuid.UUID) (decimal.Decimal, error) {
	profile, err := store.GetBusinessProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("get business profile: %w", err)
	}
	return numericToDecimal(profile.GstPercentage), nil
}

func (s *OrderService) insertLines(ctx context.Context, store OrderStore, orderID uuid.UUID, lines []pricedLineParams) error {
	for _, line := range lines {
		_, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:    orderID,
			ItemID:     line.itemID,
			Quantity:   line.quantity,
			UnitPrice:  decimalToNumeric(line.unitPrice),
			TotalPrice: decimalToNumeric(line.totalPrice),
		})
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}
	return nil
}

// UpdateOrder patches an order. When new lines are supplied the stored lines
// are replaced wholesale and the totals repriced at current item prices and
// GST rate.
func (s *OrderService) UpdateOrder(ctx context.Context, req UpdateOrderRequest) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrder(ctx, database.GetOrderParams{ID: req.OrderID, UserID: req.UserID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	status := current.Status
	if req.Status != nil {
		status, err = resolveStatus(*req.Status)
		if err != nil {
			return nil, err
		}
	}

	payment := current.PaymentMethod
	if req.PaymentMethod != nil {
		payment, err = resolvePaymentMethod(*req.PaymentMethod)
		if err != nil {
			return nil, err
		}
	}
	if status == database.OrderStatusCompleted && !payment.Valid {
		return nil, ErrPaymentMethodRequired
	}

	customerPhone := current.CustomerPhone
	if req.CustomerPhone != nil {
		customerPhone = textOrNull(*req.CustomerPhone)
	}

	psgMarked := current.PsgMarked
	if req.PsgMarked != nil {
		psgMarked = *req.PsgMarked
	}

	params := database.UpdateOrderParams{
		ID:            current.ID,
		UserID:        req.UserID,
		CustomerPhone: customerPhone,
		Status:        status,
		PaymentMethod: payment,
		Subtotal:      current.Subtotal,
		GstAmount:     current.GstAmount,
		Cgst:          current.Cgst,
		Sgst:          current.Sgst,
		GrandTotal:    current.GrandTotal,
		PsgMarked:     psgMarked,
	}

	if req.Items != nil {
		if len(req.Items) == 0 {
			return nil, ErrEmptyItems
		}
		lines, totals, err := s.priceLines(ctx, store, req.UserID, req.Items)
		if err != nil {
			return nil, err
		}
		if err := store.DeleteOrderItemsByOrder(ctx, current.ID); err != nil {
			return nil, fmt.Errorf("delete order items: %w", err)
		}
		if err := s.insertLines(ctx, store, current.ID, lines); err != nil {
			return nil, err
		}
		params.Subtotal = decimalToNumeric(totals.Subtotal)
		params.GstAmount = decimalToNumeric(totals.GSTAmount)
		params.Cgst = decimalToNumeric(totals.CGST)
		params.Sgst = decimalToNumeric(totals.SGST)
		params.GrandTotal = decimalToNumeric(totals.GrandTotal)
	}

	order, err := store.UpdateOrder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{Order: order, Items: items}, nil
}

// DeleteOrder removes a draft order and its lines. Completed orders are
// immutable history and cannot be deleted.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID, userID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, database.GetOrderParams{ID: orderID, UserID: userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	if order.Status != database.OrderStatusDraft {
		return ErrOrderNotDeletable
	}

	if _, err := store.DeleteOrder(ctx, database.DeleteOrderParams{ID: orderID, UserID: userID}); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	return tx.Commit(ctx)
}

// MarkPrinted flags a completed order as printed. Calling it again refreshes
// the printed timestamp.
func (s *OrderService) MarkPrinted(ctx context.Context, orderID, userID uuid.UUID) (*OrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.MarkOrderPrinted(ctx, database.MarkOrderPrintedParams{ID: orderID, UserID: userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing order from one that is still a draft.
			if _, getErr := store.GetOrder(ctx, database.GetOrderParams{ID: orderID, UserID: userID}); getErr != nil {
				if errors.Is(getErr, pgx.ErrNoRows) {
					return nil, ErrOrderNotFound
				}
				return nil, fmt.Errorf("get order: %w", getErr)
			}
			return nil, ErrOrderNotCompleted
		}
		return nil, fmt.Errorf("mark printed: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderResult{Order: order, Items: items}, nil
}

// --- Helpers ---

func resolveStatus(s string) (database.OrderStatus, error) {
	switch s {
	case "", string(database.OrderStatusDraft):
		return database.OrderStatusDraft, nil
	case string(database.OrderStatusCompleted):
		return database.OrderStatusCompleted, nil
	}
	return "", ErrInvalidStatus
}

func resolvePaymentMethod(s string) (database.NullPaymentMethod, error) {
	switch s {
	case "":
		return database.NullPaymentMethod{}, nil
	case string(database.PaymentMethodCash), string(database.PaymentMethodOnline):
		return database.NullPaymentMethod{PaymentMethod: database.PaymentMethod(s), Valid: true}, nil
	}
	return database.NullPaymentMethod{}, ErrInvalidPaymentMethod
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/finova-pos/api/internal/database"
	"github.com/finova-pos/api/internal/middleware"
	"github.com/finova-pos/api/internal/service"
	"github.com/finova-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	UpdateOrder(ctx context.Context, req service.UpdateOrderRequest) (*service.OrderResult, error)
	DeleteOrder(ctx context.Context, orderID, userID uuid.UUID) error
	MarkPrinted(ctx context.Context, orderID, userID uuid.UUID) (*service.OrderResult, error)
}

// OrderStore defines the database methods needed by the order read endpoints.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	CountOrders(ctx context.Context, arg database.CountOrdersParams) (int64, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	hub   *ws.Hub
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub *ws.Hub) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/print", h.MarkPrinted)
}

// --- Request / Response types ---

type orderLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int32  `json:"quantity"`
}

type createOrderRequest struct {
	CustomerPhone string             `json:"customer_phone"`
	Status        string             `json:"status"`
	PaymentMethod string             `json:"payment_method"`
	PsgMarked     bool               `json:"psg_marked"`
	Items         []orderLineRequest `json:"items"`
}

type updateOrderRequest struct {
	CustomerPhone *string            `json:"customer_phone"`
	Status        *string            `json:"status"`
	PaymentMethod *string            `json:"payment_method"`
	PsgMarked     *bool              `json:"psg_marked"`
	Items         []orderLineRequest `json:"items"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	CustomerPhone *string             `json:"customer_phone"`
	Status        string              `json:"status"`
	PaymentMethod *string             `json:"payment_method"`
	Subtotal      string              `json:"subtotal"`
	GstAmount     string              `json:"gst_amount"`
	Cgst          string              `json:"cgst"`
	Sgst          string              `json:"sgst"`
	GrandTotal    string              `json:"grand_total"`
	PsgMarked     bool                `json:"psg_marked"`
	Printed       bool                `json:"printed"`
	PrintedAt     *time.Time          `json:"printed_at"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Items         []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	ItemID     uuid.UUID `json:"item_id"`
	ItemName   string    `json:"item_name"`
	Quantity   int32     `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
	TotalPrice string    `json:"total_price"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}
	for i, line := range req.Items {
		if line.ItemID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "item_id is required")})
			return
		}
		if line.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "quantity must be > 0")})
			return
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		UserID:        claims.UserID,
		CustomerPhone: req.CustomerPhone,
		Status:        req.Status,
		PaymentMethod: req.PaymentMethod,
		PsgMarked:     req.PsgMarked,
		Items:         toServiceLines(req.Items),
	})
	if err != nil {
		h.writeServiceError(w, "create order", err)
		return
	}

	h.broadcastOrderEvent(claims.UserID, "order.created", result.Order)
	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		UserID: claims.UserID,
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	countParams := database.CountOrdersParams{UserID: claims.UserID}

	if s := r.URL.Query().Get("status"); s != "" {
		if s != string(database.OrderStatusDraft) && s != string(database.OrderStatusCompleted) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		filter := database.NullOrderStatus{OrderStatus: database.OrderStatus(s), Valid: true}
		params.Status = filter
		countParams.Status = filter
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total, err := h.store.CountOrders(r.Context(), countParams)
	if err != nil {
		log.Printf("ERROR: count orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o, nil)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, UserID: claims.UserID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order, items))
}

// Update handles PUT /orders/{id}. Supplying items replaces the lines and
// reprices the order at current catalog prices.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq := service.UpdateOrderRequest{
		OrderID:       orderID,
		UserID:        claims.UserID,
		CustomerPhone: req.CustomerPhone,
		Status:        req.Status,
		PaymentMethod: req.PaymentMethod,
		PsgMarked:     req.PsgMarked,
	}
	if req.Items != nil {
		svcReq.Items = toServiceLines(req.Items)
	}

	result, err := h.svc.UpdateOrder(r.Context(), svcReq)
	if err != nil {
		h.writeServiceError(w, "update order", err)
		return
	}

	if result.Order.Status == database.OrderStatusCompleted {
		h.broadcastOrderEvent(claims.UserID, "order.completed", result.Order)
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// Delete handles DELETE /orders/{id}. Only draft orders can be deleted.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), orderID, claims.UserID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotDeletable):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: delete order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

// MarkPrinted handles POST /orders/{id}/print.
func (h *OrderHandler) MarkPrinted(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.svc.MarkPrinted(r.Context(), orderID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrOrderNotCompleted):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: mark printed: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.broadcastOrderEvent(claims.UserID, "order.printed", result.Order)
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// --- Helpers ---

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}

func toServiceLines(lines []orderLineRequest) []service.OrderLineRequest {
	out := make([]service.OrderLineRequest, len(lines))
	for i, line := range lines {
		out[i] = service.OrderLineRequest{ItemID: line.ItemID, Quantity: line.Quantity}
	}
	return out
}

// writeServiceError maps known order service errors to HTTP status codes.
func (h *OrderHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNumberExhausted):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "could not allocate order number, please retry"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidItemID) ||
		errors.Is(err, service.ErrItemNotFound) ||
		errors.Is(err, service.ErrInvalidStatus) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrPaymentMethodRequired)
}

// broadcastOrderEvent pushes an order event to the owner's connected clients.
// Broadcast failures never affect the HTTP response.
func (h *OrderHandler) broadcastOrderEvent(userID uuid.UUID, eventType string, order database.Order) {
	if h.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"id":           order.ID,
		"order_number": order.OrderNumber,
		"status":       string(order.Status),
		"grand_total":  numericToString(order.GrandTotal),
	})
	if err != nil {
		log.Printf("ERROR: marshal order event: %v", err)
		return
	}
	h.hub.BroadcastToUser(userID, ws.Event{Type: eventType, Payload: payload})
}

func toOrderResponse(result *service.OrderResult) orderResponse {
	return dbOrderToResponse(result.Order, result.Items)
}

func dbOrderToResponse(o database.Order, items []database.ListOrderItemsByOrderRow) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		Subtotal:    numericToString(o.Subtotal),
		GstAmount:   numericToString(o.GstAmount),
		Cgst:        numericToString(o.Cgst),
		Sgst:        numericToString(o.Sgst),
		GrandTotal:  numericToString(o.GrandTotal),
		PsgMarked:   o.PsgMarked,
		Printed:     o.Printed,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.CustomerPhone.Valid {
		resp.CustomerPhone = &o.CustomerPhone.String
	}
	if o.PaymentMethod.Valid {
		s := string(o.PaymentMethod.PaymentMethod)
		resp.PaymentMethod = &s
	}
	if o.PrintedAt.Valid {
		resp.PrintedAt = &o.PrintedAt.Time
	}

	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = orderItemResponse{
			ID:         item.ID,
			ItemID:     item.ItemID,
			ItemName:   item.ItemName,
			Quantity:   item.Quantity,
			UnitPrice:  numericToString(item.UnitPrice),
			TotalPrice: numericToString(item.TotalPrice),
		}
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

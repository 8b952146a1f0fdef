package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/finova-pos/api/internal/middleware"
	"github.com/finova-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PSGReportServicer defines the service methods needed by PSG report handlers.
// Satisfied by *service.ReportService; narrow interface for testability.
type PSGReportServicer interface {
	PSGReports(ctx context.Context, userID uuid.UUID, from, to time.Time) (*service.PSGReportResult, error)
	PSGOrderHistory(ctx context.Context, req service.PSGOrderHistoryRequest) (*service.PSGOrderHistoryResult, error)
	PSGItemDetails(ctx context.Context, userID, itemID uuid.UUID, from, to time.Time) (*service.PSGItemDetailResult, error)
}

// PSGHandler handles the PIN-gated PSG report endpoints.
type PSGHandler struct {
	svc PSGReportServicer
}

// NewPSGHandler creates a new PSGHandler.
func NewPSGHandler(svc PSGReportServicer) *PSGHandler {
	return &PSGHandler{svc: svc}
}

// RegisterRoutes registers PSG endpoints on the given Chi router.
// Expected to be mounted behind RequireReportsPin.
func (h *PSGHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports", h.Reports)
	r.Get("/orders", h.Orders)
	r.Get("/items/{id}", h.ItemDetails)
}

// --- Response types ---

type psgOrderRefResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Quantity    int64     `json:"quantity"`
	Amount      string    `json:"amount"`
	OrderDate   time.Time `json:"order_date"`
}

type psgItemReportResponse struct {
	ItemID        uuid.UUID             `json:"item_id"`
	ItemName      string                `json:"item_name"`
	TotalQuantity int64                 `json:"total_quantity"`
	TotalAmount   string                `json:"total_amount"`
	Orders        []psgOrderRefResponse `json:"orders"`
}

type psgSummaryResponse struct {
	TotalOrders   int64  `json:"total_orders"`
	TotalItems    int    `json:"total_items"`
	TotalQuantity int64  `json:"total_quantity"`
	TotalAmount   string `json:"total_amount"`
}

type psgReportResponse struct {
	Items   []psgItemReportResponse `json:"items"`
	Summary psgSummaryResponse      `json:"summary"`
	Range   dateRangeResponse       `json:"range"`
}

type psgOrderHistoryResponse struct {
	Orders []orderResponse   `json:"orders"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Range  dateRangeResponse `json:"range"`
}

type psgItemRefResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price string    `json:"price"`
}

type psgItemStatsResponse struct {
	TotalQuantity   int64  `json:"total_quantity"`
	TotalAmount     string `json:"total_amount"`
	AverageQuantity string `json:"average_quantity"`
	OrderCount      int64  `json:"order_count"`
}

type psgItemOrderResponse struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	Quantity      int64     `json:"quantity"`
	UnitPrice     string    `json:"unit_price"`
	TotalPrice    string    `json:"total_price"`
	OrderDate     time.Time `json:"order_date"`
	PaymentMethod *string   `json:"payment_method"`
}

type psgItemDetailResponse struct {
	Item       psgItemRefResponse     `json:"item"`
	Statistics psgItemStatsResponse   `json:"statistics"`
	Orders     []psgItemOrderResponse `json:"orders"`
	Range      dateRangeResponse      `json:"range"`
}

// --- Handlers ---

// Reports handles GET /psg/reports.
func (h *PSGHandler) Reports(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	from, to, err := parseDateTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.svc.PSGReports(r.Context(), claims.UserID, from, to)
	if err != nil {
		log.Printf("ERROR: psg reports: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := psgReportResponse{
		Items: make([]psgItemReportResponse, len(result.Items)),
		Summary: psgSummaryResponse{
			TotalOrders:   result.Summary.TotalOrders,
			TotalItems:    result.Summary.TotalItems,
			TotalQuantity: result.Summary.TotalQuantity,
			TotalAmount:   decimalString(result.Summary.TotalAmount),
		},
		Range: dateRangeResponse{From: from, To: to},
	}
	for i, item := range result.Items {
		orders := make([]psgOrderRefResponse, len(item.Orders))
		for j, ref := range item.Orders {
			orders[j] = psgOrderRefResponse{
				OrderID:     ref.OrderID,
				OrderNumber: ref.OrderNumber,
				Quantity:    ref.Quantity,
				Amount:      decimalString(ref.Amount),
				OrderDate:   ref.OrderDate,
			}
		}
		resp.Items[i] = psgItemReportResponse{
			ItemID:        item.ItemID,
			ItemName:      item.ItemName,
			TotalQuantity: item.TotalQuantity,
			TotalAmount:   decimalString(item.TotalAmount),
			Orders:        orders,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Orders handles GET /psg/orders.
func (h *PSGHandler) Orders(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	from, to, err := parseDateTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
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

	result, err := h.svc.PSGOrderHistory(r.Context(), service.PSGOrderHistoryRequest{
		UserID: claims.UserID,
		From:   from,
		To:     to,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: psg order history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := psgOrderHistoryResponse{
		Orders: make([]orderResponse, len(result.Orders)),
		Total:  result.Total,
		Limit:  limit,
		Offset: offset,
		Range:  dateRangeResponse{From: from, To: to},
	}
	for i, o := range result.Orders {
		resp.Orders[i] = dbOrderToResponse(o.Order, o.Items)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ItemDetails handles GET /psg/items/{id}.
func (h *PSGHandler) ItemDetails(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	from, to, err := parseDateTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.svc.PSGItemDetails(r.Context(), claims.UserID, itemID, from, to)
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: psg item details: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := psgItemDetailResponse{
		Item: psgItemRefResponse{
			ID:    result.Item.ID,
			Name:  result.Item.Name,
			Price: numericToString(result.Item.Price),
		},
		Statistics: psgItemStatsResponse{
			TotalQuantity:   result.TotalQuantity,
			TotalAmount:     decimalString(result.TotalAmount),
			AverageQuantity: decimalString(result.AverageQuantity),
			OrderCount:      result.OrderCount,
		},
		Orders: make([]psgItemOrderResponse, len(result.Orders)),
		Range:  dateRangeResponse{From: from, To: to},
	}
	for i, o := range result.Orders {
		row := psgItemOrderResponse{
			OrderID:     o.OrderID,
			OrderNumber: o.OrderNumber,
			Quantity:    o.Quantity,
			UnitPrice:   decimalString(o.UnitPrice),
			TotalPrice:  decimalString(o.TotalPrice),
			OrderDate:   o.OrderDate,
		}
		if o.PaymentMethod != "" {
			m := o.PaymentMethod
			row.PaymentMethod = &m
		}
		resp.Orders[i] = row
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// parseDateTimeRange reads start_date/end_date like parseDateRange but also
// accepts RFC3339 values, so PSG windows can cut within a day. A date-only
// end value still expands to the end of that day.
func parseDateTimeRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.Add(24*time.Hour - time.Nanosecond)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, _, err := parseDateOrDateTime(s, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start_date format, use YYYY-MM-DD or RFC3339")
		}
		from = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, dateOnly, err := parseDateOrDateTime(s, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end_date format, use YYYY-MM-DD or RFC3339")
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = t
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("end_date must not be before start_date")
	}
	return from, to, nil
}

func parseDateOrDateTime(s string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}

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
	"github.com/shopspring/decimal"
)

// ReportServicer defines the service methods needed by report handlers.
// Satisfied by *service.ReportService; narrow interface for testability.
type ReportServicer interface {
	ItemReports(ctx context.Context, userID uuid.UUID, from, to time.Time) (*service.ItemReportResult, error)
	OrderReports(ctx context.Context, req service.OrderReportRequest) (*service.OrderReportResult, error)
	SalesByPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time, groupBy string) ([]service.SalesPeriod, error)
	TopItems(ctx context.Context, userID uuid.UUID, from, to time.Time, limit int32) ([]service.TopItem, error)
}

// ReportHandler handles the PIN-gated report endpoints.
type ReportHandler struct {
	svc ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(svc ReportServicer) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// Expected to be mounted behind RequireReportsPin.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/items", h.Items)
	r.Get("/orders", h.Orders)
	r.Get("/sales", h.Sales)
	r.Get("/top-items", h.TopItems)
}

// --- Response types ---

type itemReportResponse struct {
	ItemID        uuid.UUID `json:"item_id"`
	ItemName      string    `json:"item_name"`
	TotalQuantity int64     `json:"total_quantity"`
	TotalRevenue  string    `json:"total_revenue"`
	AveragePrice  string    `json:"average_price"`
	OrderCount    int64     `json:"order_count"`
}

type itemReportListResponse struct {
	Items   []itemReportResponse      `json:"items"`
	Summary itemReportSummaryResponse `json:"summary"`
	Range   dateRangeResponse         `json:"range"`
}

type itemReportSummaryResponse struct {
	TotalItems    int    `json:"total_items"`
	TotalQuantity int64  `json:"total_quantity"`
	TotalRevenue  string `json:"total_revenue"`
}

type dateRangeResponse struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type orderReportResponse struct {
	Summary  orderReportSummaryResponse `json:"summary"`
	Payments []paymentBreakdownResponse `json:"payments"`
	Orders   []orderResponse            `json:"orders"`
	Range    dateRangeResponse          `json:"range"`
}

type orderReportSummaryResponse struct {
	TotalOrders   int64  `json:"total_orders"`
	TotalSubtotal string `json:"total_subtotal"`
	TotalGst      string `json:"total_gst"`
	TotalAmount   string `json:"total_amount"`
}

type paymentBreakdownResponse struct {
	PaymentMethod string `json:"payment_method"`
	OrderCount    int64  `json:"order_count"`
	TotalAmount   string `json:"total_amount"`
}

type salesPeriodResponse struct {
	Period        string `json:"period"`
	OrderCount    int64  `json:"order_count"`
	Subtotal      string `json:"subtotal"`
	GstAmount     string `json:"gst_amount"`
	TotalAmount   string `json:"total_amount"`
	AvgOrderValue string `json:"avg_order_value"`
}

type topItemResponse struct {
	ItemID        uuid.UUID `json:"item_id"`
	ItemName      string    `json:"item_name"`
	TotalQuantity int64     `json:"total_quantity"`
	TotalAmount   string    `json:"total_amount"`
}

// --- Handlers ---

// Items handles GET /reports/items.
func (h *ReportHandler) Items(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := h.svc.ItemReports(r.Context(), claims.UserID, from, to)
	if err != nil {
		log.Printf("ERROR: item reports: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := itemReportListResponse{
		Items: make([]itemReportResponse, len(result.Items)),
		Summary: itemReportSummaryResponse{
			TotalItems:    result.Summary.TotalItems,
			TotalQuantity: result.Summary.TotalQuantity,
			TotalRevenue:  decimalString(result.Summary.TotalRevenue),
		},
		Range: dateRangeResponse{From: from, To: to},
	}
	for i, item := range result.Items {
		resp.Items[i] = itemReportResponse{
			ItemID:        item.ItemID,
			ItemName:      item.ItemName,
			TotalQuantity: item.TotalQuantity,
			TotalRevenue:  decimalString(item.TotalRevenue),
			AveragePrice:  decimalString(item.AveragePrice),
			OrderCount:    item.OrderCount,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Orders handles GET /reports/orders.
func (h *ReportHandler) Orders(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 200 {
		limit = 200
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	result, err := h.svc.OrderReports(r.Context(), service.OrderReportRequest{
		UserID:        claims.UserID,
		From:          from,
		To:            to,
		PaymentMethod: r.URL.Query().Get("payment_method"),
		Limit:         int32(limit),
		Offset:        int32(offset),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidPaymentMethod) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: order reports: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := orderReportResponse{
		Summary: orderReportSummaryResponse{
			TotalOrders:   result.Summary.TotalOrders,
			TotalSubtotal: decimalString(result.Summary.TotalSubtotal),
			TotalGst:      decimalString(result.Summary.TotalGST),
			TotalAmount:   decimalString(result.Summary.TotalAmount),
		},
		Orders: make([]orderResponse, len(result.Orders)),
		Range:  dateRangeResponse{From: from, To: to},
	}
	for _, p := range result.Payments {
		resp.Payments = append(resp.Payments, paymentBreakdownResponse{
			PaymentMethod: p.PaymentMethod,
			OrderCount:    p.OrderCount,
			TotalAmount:   decimalString(p.TotalAmount),
		})
	}
	for i, o := range result.Orders {
		resp.Orders[i] = dbOrderToResponse(o, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Sales handles GET /reports/sales.
func (h *ReportHandler) Sales(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	periods, err := h.svc.SalesByPeriod(r.Context(), claims.UserID, from, to, r.URL.Query().Get("group_by"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidGroupBy) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]salesPeriodResponse, len(periods))
	for i, p := range periods {
		resp[i] = salesPeriodResponse{
			Period:        p.Period,
			OrderCount:    p.OrderCount,
			Subtotal:      decimalString(p.Subtotal),
			GstAmount:     decimalString(p.GSTAmount),
			TotalAmount:   decimalString(p.TotalAmount),
			AvgOrderValue: decimalString(p.AvgOrderValue),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"periods": resp,
		"range":   dateRangeResponse{From: from, To: to},
	})
}

// TopItems handles GET /reports/top-items.
func (h *ReportHandler) TopItems(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	items, err := h.svc.TopItems(r.Context(), claims.UserID, from, to, int32(limit))
	if err != nil {
		log.Printf("ERROR: top items report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]topItemResponse, len(items))
	for i, item := range items {
		resp[i] = topItemResponse{
			ItemID:        item.ItemID,
			ItemName:      item.ItemName,
			TotalQuantity: item.TotalQuantity,
			TotalAmount:   decimalString(item.TotalAmount),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": resp,
		"range": dateRangeResponse{From: from, To: to},
	})
}

// --- Helpers ---

// parseDateRange reads start_date/end_date query params (YYYY-MM-DD,
// inclusive). Both default to today.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start_date format, use YYYY-MM-DD")
		}
		from = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end_date format, use YYYY-MM-DD")
		}
		to = t
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("end_date must not be before start_date")
	}

	// Window covers the whole of the end day.
	to = to.Add(24*time.Hour - time.Nanosecond)
	return from, to, nil
}

func decimalString(d decimal.Decimal) string {
	return d.StringFixed(2)
}

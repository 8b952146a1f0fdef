package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/finova-pos/api/internal/database"
	"github.com/finova-pos/api/internal/middleware"
	"github.com/finova-pos/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// BusinessStore defines the database methods needed by business profile handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type BusinessStore interface {
	GetBusinessProfile(ctx context.Context, userID uuid.UUID) (database.BusinessProfile, error)
	UpsertBusinessProfile(ctx context.Context, arg database.UpsertBusinessProfileParams) (database.BusinessProfile, error)
	SetReportsPin(ctx context.Context, arg database.SetReportsPinParams) (uuid.UUID, error)
}

// BusinessHandler handles business profile endpoints.
type BusinessHandler struct {
	store BusinessStore
}

// NewBusinessHandler creates a new BusinessHandler.
func NewBusinessHandler(store BusinessStore) *BusinessHandler {
	return &BusinessHandler{store: store}
}

// RegisterRoutes registers business profile endpoints on the given Chi router.
func (h *BusinessHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/", h.Upsert)
	r.Put("/reports-pin", h.SetReportsPin)
}

// --- Request / Response types ---

type businessProfileRequest struct {
	BusinessName  string `json:"business_name"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Gstin         string `json:"gstin"`
	GstPercentage string `json:"gst_percentage"`
}

type businessProfileResponse struct {
	ID            uuid.UUID `json:"id"`
	BusinessName  *string   `json:"business_name"`
	Phone         *string   `json:"phone"`
	Address       *string   `json:"address"`
	Gstin         *string   `json:"gstin"`
	GstPercentage string    `json:"gst_percentage"`
	PinConfigured bool      `json:"pin_configured"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type setPinRequest struct {
	Pin string `json:"pin"`
}

// --- Handlers ---

// Get handles GET /business.
func (h *BusinessHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	profile, err := h.store.GetBusinessProfile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "business profile not found"})
			return
		}
		log.Printf("ERROR: get business profile: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbProfileToResponse(profile))
}

// Upsert handles PUT /business. Creates the profile on first call and
// updates it afterwards.
func (h *BusinessHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req businessProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	gst := pgtype.Numeric{}
	if req.GstPercentage != "" {
		d, err := decimal.NewFromString(req.GstPercentage)
		if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "gst_percentage must be between 0 and 100"})
			return
		}
		_ = gst.Scan(d.StringFixed(2))
	}

	profile, err := h.store.UpsertBusinessProfile(r.Context(), database.UpsertBusinessProfileParams{
		UserID:        claims.UserID,
		BusinessName:  textFromString(req.BusinessName),
		Phone:         textFromString(req.Phone),
		Address:       textFromString(req.Address),
		Gstin:         textFromString(req.Gstin),
		GstPercentage: gst,
	})
	if err != nil {
		log.Printf("ERROR: upsert business profile: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbProfileToResponse(profile))
}

// SetReportsPin handles PUT /business/reports-pin.
func (h *BusinessHandler) SetReportsPin(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req setPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	hash, err := service.HashReportsPin(req.Pin)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPinFormat) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: hash reports pin: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if _, err := h.store.SetReportsPin(r.Context(), database.SetReportsPinParams{
		UserID:         claims.UserID,
		ReportsPinHash: pgtype.Text{String: hash, Valid: true},
	}); err != nil {
		log.Printf("ERROR: set reports pin: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "reports pin updated"})
}

// --- Helpers ---

func textFromString(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func dbProfileToResponse(p database.BusinessProfile) businessProfileResponse {
	resp := businessProfileResponse{
		ID:            p.ID,
		GstPercentage: numericToString(p.GstPercentage),
		PinConfigured: p.ReportsPinHash.Valid && p.ReportsPinHash.String != "",
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.BusinessName.Valid {
		resp.BusinessName = &p.BusinessName.String
	}
	if p.Phone.Valid {
		resp.Phone = &p.Phone.String
	}
	if p.Address.Valid {
		resp.Address = &p.Address.String
	}
	if p.Gstin.Valid {
		resp.Gstin = &p.Gstin.String
	}
	return resp
}

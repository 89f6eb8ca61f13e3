package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/medistore/api/internal/database"
	"github.com/shopspring/decimal"
)

// MedicineStore defines the database methods needed by medicine handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MedicineStore interface {
	ListMedicines(ctx context.Context, arg database.ListMedicinesParams) ([]database.Medicine, error)
	GetMedicine(ctx context.Context, id uuid.UUID) (database.Medicine, error)
	CreateMedicine(ctx context.Context, arg database.CreateMedicineParams) (database.Medicine, error)
	UpdateMedicine(ctx context.Context, arg database.UpdateMedicineParams) (database.Medicine, error)
	SoftDeleteMedicine(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// MedicineHandler handles catalog CRUD endpoints.
type MedicineHandler struct {
	store MedicineStore
}

// NewMedicineHandler creates a new MedicineHandler.
func NewMedicineHandler(store MedicineStore) *MedicineHandler {
	return &MedicineHandler{store: store}
}

// RegisterRoutes registers read endpoints, mounted at /medicines.
func (h *MedicineHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers catalog write endpoints (ADMIN only).
func (h *MedicineHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createMedicineRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	Price             string `json:"price"`
	TotalQuantity     int32  `json:"total_quantity"`
	LowStockThreshold int32  `json:"low_stock_threshold"`
	ExpiryDate        string `json:"expiry_date"` // YYYY-MM-DD
}

type updateMedicineRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Category          string `json:"category"`
	Price             string `json:"price"`
	TotalQuantity     int32  `json:"total_quantity"`
	CurrentQuantity   int32  `json:"current_quantity"`
	LowStockThreshold int32  `json:"low_stock_threshold"`
	ExpiryDate        string `json:"expiry_date"`
}

type medicineResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Description       *string   `json:"description"`
	Category          string    `json:"category"`
	Price             string    `json:"price"`
	TotalQuantity     int32     `json:"total_quantity"`
	CurrentQuantity   int32     `json:"current_quantity"`
	LowStockThreshold int32     `json:"low_stock_threshold"`
	LowStock          bool      `json:"low_stock"`
	ExpiryDate        *string   `json:"expiry_date"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toMedicineResponse(m database.Medicine) medicineResponse {
	resp := medicineResponse{
		ID:                m.ID,
		Name:              m.Name,
		Category:          m.Category,
		Price:             numericString(m.Price),
		TotalQuantity:     m.TotalQuantity,
		CurrentQuantity:   m.CurrentQuantity,
		LowStockThreshold: m.LowStockThreshold,
		LowStock:          m.CurrentQuantity <= m.LowStockThreshold,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.Description.Valid {
		resp.Description = &m.Description.String
	}
	if m.ExpiryDate.Valid {
		s := m.ExpiryDate.Time.Format("2006-01-02")
		resp.ExpiryDate = &s
	}
	return resp
}

// --- Helpers ---

var errNegativePrice = errors.New("negative price")

func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativePrice
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func parseExpiryDate(s string) (pgtype.Date, error) {
	if s == "" {
		return pgtype.Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return pgtype.Date{}, err
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

// numericDecimal converts a pgtype.Numeric to a decimal, zero if invalid.
func numericDecimal(n pgtype.Numeric) decimal.Decimal {
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

// numericString formats a pgtype.Numeric as money with 2 decimal places.
func numericString(n pgtype.Numeric) string {
	return numericDecimal(n).StringFixed(2)
}

// parsePagination reads limit/offset query params: default limit 20, cap 100.
func parsePagination(r *http.Request) (limit, offset int32) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			if v > 100 {
				v = 100
			}
			limit = int32(v)
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = int32(v)
		}
	}
	return limit, offset
}

// --- Handlers ---

// List returns active medicines with optional search/category/low_stock/price
// range filters and limit/offset pagination.
func (h *MedicineHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := parsePagination(r)

	params := database.ListMedicinesParams{Limit: limit, Offset: offset}
	if s := q.Get("search"); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
	}
	if c := q.Get("category"); c != "" {
		params.Category = pgtype.Text{String: c, Valid: true}
	}
	if q.Get("low_stock") == "true" {
		params.LowStock = pgtype.Bool{Bool: true, Valid: true}
	}
	if s := q.Get("min_price"); s != "" {
		p, err := parsePrice(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid min_price"})
			return
		}
		params.MinPrice = p
	}
	if s := q.Get("max_price"); s != "" {
		p, err := parsePrice(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid max_price"})
			return
		}
		params.MaxPrice = p
	}

	medicines, err := h.store.ListMedicines(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list medicines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]medicineResponse, len(medicines))
	for i, m := range medicines {
		resp[i] = toMedicineResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single active medicine by ID.
func (h *MedicineHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid medicine ID"})
		return
	}

	medicine, err := h.store.GetMedicine(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "medicine not found"})
			return
		}
		log.Printf("ERROR: get medicine: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMedicineResponse(medicine))
}

// Create adds a medicine to the catalog. Current stock starts equal to the
// total quantity.
func (h *MedicineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMedicineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Category == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category is required"})
		return
	}
	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return
	}
	if req.TotalQuantity < 0 || req.LowStockThreshold < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantities must be >= 0"})
		return
	}
	expiry, err := parseExpiryDate(req.ExpiryDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expiry_date, want YYYY-MM-DD"})
		return
	}

	desc := pgtype.Text{}
	if req.Description != "" {
		desc = pgtype.Text{String: req.Description, Valid: true}
	}

	medicine, err := h.store.CreateMedicine(r.Context(), database.CreateMedicineParams{
		Name:              req.Name,
		Description:       desc,
		Category:          req.Category,
		Price:             price,
		TotalQuantity:     req.TotalQuantity,
		LowStockThreshold: req.LowStockThreshold,
		ExpiryDate:        expiry,
	})
	if err != nil {
		log.Printf("ERROR: create medicine: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMedicineResponse(medicine))
}

// Update modifies an existing medicine.
func (h *MedicineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid medicine ID"})
		return
	}

	var req updateMedicineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Category == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category is required"})
		return
	}
	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return
	}
	if req.TotalQuantity < 0 || req.CurrentQuantity < 0 || req.LowStockThreshold < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantities must be >= 0"})
		return
	}
	expiry, err := parseExpiryDate(req.ExpiryDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expiry_date, want YYYY-MM-DD"})
		return
	}

	desc := pgtype.Text{}
	if req.Description != "" {
		desc = pgtype.Text{String: req.Description, Valid: true}
	}

	medicine, err := h.store.UpdateMedicine(r.Context(), database.UpdateMedicineParams{
		ID:                id,
		Name:              req.Name,
		Description:       desc,
		Category:          req.Category,
		Price:             price,
		TotalQuantity:     req.TotalQuantity,
		CurrentQuantity:   req.CurrentQuantity,
		LowStockThreshold: req.LowStockThreshold,
		ExpiryDate:        expiry,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "medicine not found"})
			return
		}
		log.Printf("ERROR: update medicine: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMedicineResponse(medicine))
}

// Delete soft-deletes a medicine by setting is_active=false.
func (h *MedicineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid medicine ID"})
		return
	}

	if _, err := h.store.SoftDeleteMedicine(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "medicine not found"})
			return
		}
		log.Printf("ERROR: delete medicine: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

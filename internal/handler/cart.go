package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medistore/api/internal/cart"
	"github.com/medistore/api/internal/database"
)

// CartStore is the Redis-backed cart. Satisfied by *cart.Store; an in-memory
// fake is used in tests.
type CartStore interface {
	Get(ctx context.Context, userID uuid.UUID) ([]cart.Item, error)
	Add(ctx context.Context, userID uuid.UUID, item cart.Item) (cart.Item, error)
	UpdateQuantity(ctx context.Context, userID uuid.UUID, medicineID uuid.UUID, quantity int32) (cart.Item, bool, error)
	Remove(ctx context.Context, userID uuid.UUID, medicineID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// CartCatalog is the slice of the catalog the cart needs for snapshots.
type CartCatalog interface {
	GetMedicine(ctx context.Context, id uuid.UUID) (database.Medicine, error)
}

// CartHandler handles per-user shopping cart endpoints.
type CartHandler struct {
	carts   CartStore
	catalog CartCatalog
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts CartStore, catalog CartCatalog) *CartHandler {
	return &CartHandler{carts: carts, catalog: catalog}
}

// RegisterRoutes registers cart endpoints, mounted at /users/{id}/cart.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/items", h.AddItem)
	r.Put("/items/{mid}", h.UpdateItem)
	r.Delete("/items/{mid}", h.RemoveItem)
	r.Delete("/", h.Clear)
}

// --- Request / Response types ---

type addCartItemRequest struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int32  `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int32 `json:"quantity"`
}

type cartItemResponse struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Price      string    `json:"price"`
	Quantity   int32     `json:"quantity"`
	Subtotal   string    `json:"subtotal"`
}

type cartResponse struct {
	Items []cartItemResponse `json:"items"`
	Total string             `json:"total"`
}

func toCartResponse(items []cart.Item) cartResponse {
	resp := cartResponse{
		Items: make([]cartItemResponse, len(items)),
		Total: cart.Total(items).StringFixed(2),
	}
	for i, item := range items {
		resp.Items[i] = cartItemResponse{
			MedicineID: item.MedicineID,
			Name:       item.Name,
			Category:   item.Category,
			Price:      item.Price.StringFixed(2),
			Quantity:   item.Quantity,
			Subtotal:   item.Subtotal().StringFixed(2),
		}
	}
	return resp
}

// --- Handlers ---

// Get returns the cart with the computed total.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	items, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: get cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(items))
}

// AddItem snapshots the medicine and puts it in the cart. Adding a medicine
// already in the cart accumulates the quantity.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be > 0"})
		return
	}
	medicineID, err := uuid.Parse(req.MedicineID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid medicine_id"})
		return
	}

	medicine, err := h.catalog.GetMedicine(r.Context(), medicineID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "medicine not found"})
			return
		}
		log.Printf("ERROR: get medicine: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	item, err := h.carts.Add(r.Context(), userID, cart.Item{
		MedicineID: medicine.ID,
		Name:       medicine.Name,
		Category:   medicine.Category,
		Price:      numericDecimal(medicine.Price),
		Quantity:   req.Quantity,
	})
	if err != nil {
		log.Printf("ERROR: add cart item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, cartItemResponse{
		MedicineID: item.MedicineID,
		Name:       item.Name,
		Category:   item.Category,
		Price:      item.Price.StringFixed(2),
		Quantity:   item.Quantity,
		Subtotal:   item.Subtotal().StringFixed(2),
	})
}

// UpdateItem sets the quantity of a cart line. Quantity 0 removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}
	medicineID, err := uuid.Parse(chi.URLParam(r, "mid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid medicine ID"})
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be >= 0"})
		return
	}

	item, found, err := h.carts.UpdateQuantity(r.Context(), userID, medicineID, req.Quantity)
	if err != nil {
		log.Printf("ERROR: update cart item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not in cart"})
		return
	}
	if req.Quantity == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, cartItemResponse{
		MedicineID: item.MedicineID,
		Name:       item.Name,
		Category:   item.Category,
		Price:      item.Price.StringFixed(2),
		Quantity:   item.Quantity,
		Subtotal:   item.Subtotal().StringFixed(2),
	})
}

// RemoveItem deletes one line from the cart.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}
	medicineID, err := uuid.Parse(chi.URLParam(r, "mid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid medicine ID"})
		return
	}

	if err := h.carts.Remove(r.Context(), userID, medicineID); err != nil {
		log.Printf("ERROR: remove cart item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear empties the cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	if err := h.carts.Clear(r.Context(), userID); err != nil {
		log.Printf("ERROR: clear cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/medistore/api/internal/database"
	"github.com/medistore/api/internal/enum"
	mw "github.com/medistore/api/internal/middleware"
	"github.com/medistore/api/internal/service"
	"github.com/medistore/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.PlaceOrderResult, error)
	UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, newStatus string) (*service.StatusUpdateResult, error)
	Reorder(ctx context.Context, userID, orderID uuid.UUID) (*service.PlaceOrderResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.ListOrdersRow, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// Broadcaster pushes realtime events to a user's room.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToUser(userID uuid.UUID, event ws.Event)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	carts CartStore
	hub   Broadcaster
}

// NewOrderHandler creates a new OrderHandler. carts may be nil when cart
// clearing on checkout is not wanted (e.g. in tests).
func NewOrderHandler(svc OrderServicer, store OrderStore, carts CartStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, carts: carts, hub: hub}
}

// RegisterRoutes registers user-scoped order endpoints, mounted at
// /users/{id}/orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Place)
	r.Get("/", h.List)
	r.Get("/{oid}", h.Get)
	r.Post("/{oid}/reorder", h.Reorder)
	r.With(mw.RequireRole(enum.UserRoleAdmin)).Patch("/{oid}/status", h.UpdateStatus)
}

// RegisterAdminRoutes registers the cross-user order list (ADMIN only).
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/orders", h.AdminList)
}

// --- Request / Response types ---

type placeOrderRequest struct {
	PaymentMethod   string                  `json:"payment_method"`
	DeliveryAddress string                  `json:"delivery_address"`
	ReminderDays    int32                   `json:"reminder_days"`
	Items           []placeOrderItemRequest `json:"items"`
}

type placeOrderItemRequest struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int32  `json:"quantity"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          string              `json:"status"`
	PaymentMethod   string              `json:"payment_method"`
	TotalAmount     string              `json:"total_amount"`
	DeliveryAddress *string             `json:"delivery_address"`
	ReminderDays    *int32              `json:"reminder_days"`
	IsReorder       bool                `json:"is_reorder"`
	OriginalOrderID *uuid.UUID          `json:"original_order_id"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Items           []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID           uuid.UUID `json:"id"`
	MedicineID   uuid.UUID `json:"medicine_id"`
	MedicineName string    `json:"medicine_name"`
	UnitPrice    string    `json:"unit_price"`
	Quantity     int32     `json:"quantity"`
	Subtotal     string    `json:"subtotal"`
}

// adminOrderResponse adds customer contact fields to the order for the
// admin list view.
type adminOrderResponse struct {
	orderResponse
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	UserMobile string `json:"user_mobile"`
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		TotalAmount:   numericString(o.TotalAmount),
		IsReorder:     o.IsReorder,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.DeliveryAddress.Valid {
		resp.DeliveryAddress = &o.DeliveryAddress.String
	}
	if o.ReminderDays.Valid {
		d := o.ReminderDays.Int32
		resp.ReminderDays = &d
	}
	if o.OriginalOrderID.Valid {
		id := uuid.UUID(o.OriginalOrderID.Bytes)
		resp.OriginalOrderID = &id
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toOrderItemResponse(item))
	}
	return resp
}

func toOrderItemResponse(item database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:           item.ID,
		MedicineID:   item.MedicineID,
		MedicineName: item.MedicineName,
		UnitPrice:    numericString(item.UnitPrice),
		Quantity:     item.Quantity,
		Subtotal:     numericString(item.Subtotal),
	}
}

// --- Handlers ---

// Place creates an order from the submitted items. The Redis cart is
// cleared afterwards, best effort: the order is already committed, so a
// cart failure only logs.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.PlaceOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.PlaceOrderItemRequest{
			MedicineID: item.MedicineID,
			Quantity:   item.Quantity,
		}
	}

	result, err := h.svc.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		UserID:          userID,
		PaymentMethod:   req.PaymentMethod,
		DeliveryAddress: req.DeliveryAddress,
		ReminderDays:    req.ReminderDays,
		Items:           items,
	})
	if err != nil {
		h.writeServiceError(w, err, "place order")
		return
	}

	if h.carts != nil {
		if err := h.carts.Clear(r.Context(), userID); err != nil {
			log.Printf("ERROR: clearing cart after order %s: %v", result.Order.OrderNumber, err)
		}
	}

	h.broadcast(userID, "order.placed", map[string]any{
		"order_id":     result.Order.ID,
		"order_number": result.Order.OrderNumber,
		"total_amount": numericString(result.Order.TotalAmount),
	})

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, result.Items))
}

// List returns the user's orders, newest first.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	orders, err := h.store.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single order with its item snapshots.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, UserID: userID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// Reorder clones a delivered order as a new pending one.
func (h *OrderHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.svc.Reorder(r.Context(), userID, orderID)
	if err != nil {
		h.writeServiceError(w, err, "reorder")
		return
	}

	h.broadcast(userID, "order.placed", map[string]any{
		"order_id":     result.Order.ID,
		"order_number": result.Order.OrderNumber,
		"total_amount": numericString(result.Order.TotalAmount),
		"is_reorder":   true,
	})

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, result.Items))
}

// UpdateStatus transitions an order (ADMIN only; enforced at the router).
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.UpdateStatus(r.Context(), userID, orderID, req.Status)
	if err != nil {
		h.writeServiceError(w, err, "update order status")
		return
	}

	h.broadcast(userID, "order.status_updated", map[string]any{
		"order_id":     result.Order.ID,
		"order_number": result.Order.OrderNumber,
		"status":       result.Order.Status,
	})
	h.broadcast(userID, "notification.created", map[string]any{
		"notification_id": result.Notification.ID,
		"title":           result.Notification.Title,
		"message":         result.Notification.Message,
	})

	writeJSON(w, http.StatusOK, toOrderResponse(result.Order, nil))
}

// AdminList returns orders across all users with customer contact fields.
func (h *OrderHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	status := pgtype.Text{}
	if s := r.URL.Query().Get("status"); s != "" {
		switch s {
		case enum.OrderStatusPending, enum.OrderStatusDelivered, enum.OrderStatusCancelled:
			status = pgtype.Text{String: s, Valid: true}
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
	}

	rows, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		log.Printf("ERROR: list all orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]adminOrderResponse, len(rows))
	for i, row := range rows {
		resp[i] = adminOrderResponse{
			orderResponse: toOrderResponse(row.Order, nil),
			UserName:      row.UserName,
			UserEmail:     row.UserEmail,
			UserMobile:    row.UserMobile,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// writeServiceError maps order service sentinel errors to HTTP status codes.
func (h *OrderHandler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidMedicineID),
		errors.Is(err, service.ErrInvalidPayment),
		errors.Is(err, service.ErrInvalidReminderDays),
		errors.Is(err, service.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrMedicineNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrStatusConflict),
		errors.Is(err, service.ErrNotReorderable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// broadcast pushes an event to the user's ws room. Payload marshalling
// failures only log; realtime is best effort.
func (h *OrderHandler) broadcast(userID uuid.UUID, eventType string, payload map[string]any) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshaling %s event: %v", eventType, err)
		return
	}
	h.hub.BroadcastToUser(userID, ws.Event{Type: eventType, Payload: data})
}

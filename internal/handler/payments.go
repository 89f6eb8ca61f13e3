package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/medistore/api/internal/database"
	"github.com/medistore/api/internal/payment"
	"github.com/shopspring/decimal"
)

// PaymentStore defines the database methods needed by payment handlers.
// Satisfied by *database.Queries.
type PaymentStore interface {
	ListPayments(ctx context.Context, arg database.ListPaymentsParams) ([]database.Payment, error)
}

// PaymentHandler handles the payment log and UPI intent endpoints.
type PaymentHandler struct {
	store PaymentStore
	upi   payment.UPIConfig
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(store PaymentStore, upi payment.UPIConfig) *PaymentHandler {
	return &PaymentHandler{store: store, upi: upi}
}

// RegisterRoutes registers endpoints available to any authenticated user.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/payments/upi-intent", h.UPIIntent)
}

// RegisterAdminRoutes registers the payment log (ADMIN only).
func (h *PaymentHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/payments", h.List)
}

// --- Response types ---

type paymentResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	Amount    string    `json:"amount"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
}

type upiIntentResponse struct {
	Link   string `json:"link"`
	QRCode string `json:"qr_code"`
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID.String(),
		OrderID:   p.OrderID.String(),
		UserName:  p.UserName,
		UserEmail: p.UserEmail,
		Amount:    numericString(p.Amount),
		Method:    p.Method,
		CreatedAt: p.CreatedAt,
	}
}

// --- Handlers ---

// List returns the payment log, newest first. start_date and end_date are
// optional YYYY-MM-DD bounds; end_date is exclusive of the following day.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListPaymentsParams{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date, expected YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: start, Valid: true}
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date, expected YYYY-MM-DD"})
			return
		}
		// Inclusive end date: bump to the next midnight.
		params.EndDate = pgtype.Timestamptz{Time: end.AddDate(0, 0, 1), Valid: true}
	}

	payments, err := h.store.ListPayments(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UPIIntent builds a UPI deep link and QR code for the given amount.
func (h *PaymentHandler) UPIIntent(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("amount")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount is required"})
		return
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		return
	}

	intent, err := payment.BuildIntent(h.upi, amount, r.URL.Query().Get("note"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, upiIntentResponse{
		Link:   intent.Link,
		QRCode: intent.QRCodePNG,
	})
}

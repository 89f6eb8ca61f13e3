package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/medistore/api/internal/database"
)

const (
	recentPaymentsLimit = 10
	reminderAlertDays   = 5
)

// DashboardStore defines the database methods needed by the admin
// dashboard and alert views. Satisfied by *database.Queries.
type DashboardStore interface {
	GetPaymentTotals(ctx context.Context) (database.PaymentTotalsRow, error)
	CountOrders(ctx context.Context) (int64, error)
	CountActiveCustomers(ctx context.Context) (int64, error)
	GetMedicineStockStats(ctx context.Context) (database.MedicineStockStatsRow, error)
	ListLowStockMedicines(ctx context.Context) ([]database.Medicine, error)
	ListPaymentsSince(ctx context.Context, arg database.ListPaymentsSinceParams) ([]database.Payment, error)
	ListRemindersDue(ctx context.Context, arg database.ListRemindersDueParams) ([]database.ListRemindersDueRow, error)
}

// DashboardHandler handles the admin dashboard and alert endpoints.
type DashboardHandler struct {
	store DashboardStore
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(store DashboardStore) *DashboardHandler {
	return &DashboardHandler{store: store}
}

// RegisterAdminRoutes registers dashboard endpoints, mounted at /admin.
func (h *DashboardHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/alerts/low-stock", h.LowStockAlerts)
	r.Get("/alerts/reminders", h.ReminderAlerts)
}

// --- Response types ---

type dashboardResponse struct {
	TotalRevenue    string             `json:"total_revenue"`
	PaymentCount    int64              `json:"payment_count"`
	OrderCount      int64              `json:"order_count"`
	ActiveCustomers int64              `json:"active_customers"`
	TotalMedicines  int64              `json:"total_medicines"`
	UnitsInStock    int64              `json:"units_in_stock"`
	LowStock        []medicineResponse `json:"low_stock"`
	TodaysPayments  []paymentResponse  `json:"todays_payments"`
}

type reminderAlertResponse struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	UserName     string    `json:"user_name"`
	UserEmail    string    `json:"user_email"`
	MedicineName string    `json:"medicine_name"`
	Quantity     int32     `json:"quantity"`
	DueAt        time.Time `json:"due_at"`
	Notified     bool      `json:"notified"`
}

// --- Handlers ---

// Dashboard aggregates the storefront health numbers in one response.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totals, err := h.store.GetPaymentTotals(ctx)
	if err != nil {
		log.Printf("ERROR: payment totals: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	orderCount, err := h.store.CountOrders(ctx)
	if err != nil {
		log.Printf("ERROR: count orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	activeCustomers, err := h.store.CountActiveCustomers(ctx)
	if err != nil {
		log.Printf("ERROR: count active customers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	stock, err := h.store.GetMedicineStockStats(ctx)
	if err != nil {
		log.Printf("ERROR: medicine stock stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	lowStock, err := h.store.ListLowStockMedicines(ctx)
	if err != nil {
		log.Printf("ERROR: list low stock medicines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	todays, err := h.store.ListPaymentsSince(ctx, database.ListPaymentsSinceParams{
		Since: pgtype.Timestamptz{Time: midnight, Valid: true},
		Limit: recentPaymentsLimit,
	})
	if err != nil {
		log.Printf("ERROR: list todays payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dashboardResponse{
		TotalRevenue:    numericString(totals.TotalRevenue),
		PaymentCount:    totals.PaymentCount,
		OrderCount:      orderCount,
		ActiveCustomers: activeCustomers,
		TotalMedicines:  stock.TotalMedicines,
		UnitsInStock:    stock.UnitsInStock,
		LowStock:        make([]medicineResponse, len(lowStock)),
		TodaysPayments:  make([]paymentResponse, len(todays)),
	}
	for i, m := range lowStock {
		resp.LowStock[i] = toMedicineResponse(m)
	}
	for i, p := range todays {
		resp.TodaysPayments[i] = toPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// LowStockAlerts returns medicines at or below their restock threshold.
func (h *DashboardHandler) LowStockAlerts(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.store.ListLowStockMedicines(r.Context())
	if err != nil {
		log.Printf("ERROR: list low stock medicines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]medicineResponse, len(medicines))
	for i, m := range medicines {
		resp[i] = toMedicineResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ReminderAlerts returns reminders coming due within the next five days,
// with customer contact fields so staff can follow up.
func (h *DashboardHandler) ReminderAlerts(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	rows, err := h.store.ListRemindersDue(r.Context(), database.ListRemindersDueParams{
		From: now,
		To:   now.AddDate(0, 0, reminderAlertDays),
	})
	if err != nil {
		log.Printf("ERROR: list due reminders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]reminderAlertResponse, len(rows))
	for i, row := range rows {
		resp[i] = reminderAlertResponse{
			ID:           row.ID,
			UserID:       row.UserID,
			UserName:     row.UserName,
			UserEmail:    row.UserEmail,
			MedicineName: row.MedicineName,
			Quantity:     row.Quantity,
			DueAt:        row.DueAt,
			Notified:     row.Notified,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

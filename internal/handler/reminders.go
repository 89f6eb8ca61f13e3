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
)

// ReminderStore defines the database methods needed by reminder handlers.
// Satisfied by *database.Queries.
type ReminderStore interface {
	CreateReminder(ctx context.Context, arg database.CreateReminderParams) (database.Reminder, error)
	ListRemindersByUser(ctx context.Context, arg database.ListRemindersByUserParams) ([]database.Reminder, error)
	DeleteReminder(ctx context.Context, arg database.DeleteReminderParams) (uuid.UUID, error)
}

// ReminderHandler handles restock reminder endpoints.
type ReminderHandler struct {
	store ReminderStore
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(store ReminderStore) *ReminderHandler {
	return &ReminderHandler{store: store}
}

// RegisterRoutes registers reminder endpoints, mounted at
// /users/{id}/reminders.
func (h *ReminderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/{rid}", h.Delete)
}

// --- Request / Response types ---

type createReminderRequest struct {
	MedicineID   string `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	Quantity     int32  `json:"quantity"`
	ReminderDays int32  `json:"reminder_days"`
}

type reminderResponse struct {
	ID           uuid.UUID  `json:"id"`
	OrderID      *uuid.UUID `json:"order_id"`
	MedicineID   uuid.UUID  `json:"medicine_id"`
	MedicineName string     `json:"medicine_name"`
	Quantity     int32      `json:"quantity"`
	ReminderDays int32      `json:"reminder_days"`
	OrderedAt    time.Time  `json:"ordered_at"`
	DueAt        time.Time  `json:"due_at"`
	Notified     bool       `json:"notified"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toReminderResponse(r database.Reminder) reminderResponse {
	resp := reminderResponse{
		ID:           r.ID,
		MedicineID:   r.MedicineID,
		MedicineName: r.MedicineName,
		Quantity:     r.Quantity,
		ReminderDays: r.ReminderDays,
		OrderedAt:    r.OrderedAt,
		DueAt:        r.DueAt,
		Notified:     r.Notified,
		CreatedAt:    r.CreatedAt,
	}
	if r.OrderID.Valid {
		id := uuid.UUID(r.OrderID.Bytes)
		resp.OrderID = &id
	}
	return resp
}

// --- Handlers ---

// List returns the user's reminders by due date ascending. With
// ?upcoming=true, reminders already past due are filtered out.
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	params := database.ListRemindersByUserParams{UserID: userID}
	if r.URL.Query().Get("upcoming") == "true" {
		params.DueFrom = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	}

	reminders, err := h.store.ListRemindersByUser(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list reminders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]reminderResponse, len(reminders))
	for i, rem := range reminders {
		resp[i] = toReminderResponse(rem)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a standalone reminder. The due date is computed here from
// reminder_days; clients never set it directly.
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	var req createReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	medicineID, err := uuid.Parse(req.MedicineID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid medicine ID"})
		return
	}
	if req.MedicineName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "medicine name is required"})
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}
	if req.ReminderDays <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reminder days must be positive"})
		return
	}

	now := time.Now()
	reminder, err := h.store.CreateReminder(r.Context(), database.CreateReminderParams{
		UserID:       userID,
		MedicineID:   medicineID,
		MedicineName: req.MedicineName,
		Quantity:     req.Quantity,
		ReminderDays: req.ReminderDays,
		OrderedAt:    now,
		DueAt:        now.AddDate(0, 0, int(req.ReminderDays)),
	})
	if err != nil {
		log.Printf("ERROR: create reminder: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toReminderResponse(reminder))
}

// Delete removes a reminder.
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}
	reminderID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reminder ID"})
		return
	}

	if _, err := h.store.DeleteReminder(r.Context(), database.DeleteReminderParams{
		ID:     reminderID,
		UserID: userID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "reminder not found"})
			return
		}
		log.Printf("ERROR: delete reminder: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

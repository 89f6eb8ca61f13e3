package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medistore/api/internal/database"
)

// UserStore defines the database methods needed by the admin user views.
// Satisfied by *database.Queries.
type UserStore interface {
	ListUsersWithCounts(ctx context.Context) ([]database.ListUsersWithCountsRow, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]database.Notification, error)
	ListRemindersByUser(ctx context.Context, arg database.ListRemindersByUserParams) ([]database.Reminder, error)
}

// UserHandler handles the admin user list and detail views.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterAdminRoutes registers user endpoints, mounted at /admin.
func (h *UserHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/users", h.List)
	r.Get("/users/{id}", h.Detail)
}

// --- Response types ---

type adminUserResponse struct {
	ID                uuid.UUID `json:"id"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	Mobile            string    `json:"mobile"`
	Role              string    `json:"role"`
	ReorderCount      int32     `json:"reorder_count"`
	CreatedAt         time.Time `json:"created_at"`
	LastLoginAt       time.Time `json:"last_login_at"`
	OrderCount        int64     `json:"order_count"`
	NotificationCount int64     `json:"notification_count"`
}

type adminUserDetailResponse struct {
	ID            uuid.UUID              `json:"id"`
	FullName      string                 `json:"full_name"`
	Email         string                 `json:"email"`
	Mobile        string                 `json:"mobile"`
	Role          string                 `json:"role"`
	ReorderCount  int32                  `json:"reorder_count"`
	CreatedAt     time.Time              `json:"created_at"`
	LastLoginAt   time.Time              `json:"last_login_at"`
	Orders        []orderResponse        `json:"orders"`
	Notifications []notificationResponse `json:"notifications"`
	Reminders     []reminderResponse     `json:"reminders"`
}

// --- Handlers ---

// List returns all users with their order and notification counts.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListUsersWithCounts(r.Context())
	if err != nil {
		log.Printf("ERROR: list users: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]adminUserResponse, len(rows))
	for i, row := range rows {
		resp[i] = adminUserResponse{
			ID:                row.ID,
			FullName:          row.FullName,
			Email:             row.Email,
			Mobile:            row.Mobile,
			Role:              row.Role,
			ReorderCount:      row.ReorderCount,
			CreatedAt:         row.CreatedAt,
			LastLoginAt:       row.LastLoginAt,
			OrderCount:        row.OrderCount,
			NotificationCount: row.NotificationCount,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Detail returns one user with their orders, notifications and reminders.
func (h *UserHandler) Detail(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		log.Printf("ERROR: get user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	orders, err := h.store.ListOrdersByUser(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: list user orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	notifications, err := h.store.ListNotificationsByUser(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: list user notifications: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	reminders, err := h.store.ListRemindersByUser(r.Context(), database.ListRemindersByUserParams{UserID: userID})
	if err != nil {
		log.Printf("ERROR: list user reminders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := adminUserDetailResponse{
		ID:            user.ID,
		FullName:      user.FullName,
		Email:         user.Email,
		Mobile:        user.Mobile,
		Role:          user.Role,
		ReorderCount:  user.ReorderCount,
		CreatedAt:     user.CreatedAt,
		LastLoginAt:   user.LastLoginAt,
		Orders:        make([]orderResponse, len(orders)),
		Notifications: make([]notificationResponse, len(notifications)),
		Reminders:     make([]reminderResponse, len(reminders)),
	}
	for i, o := range orders {
		resp.Orders[i] = toOrderResponse(o, nil)
	}
	for i, n := range notifications {
		resp.Notifications[i] = toNotificationResponse(n)
	}
	for i, rem := range reminders {
		resp.Reminders[i] = toReminderResponse(rem)
	}

	writeJSON(w, http.StatusOK, resp)
}

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
	"github.com/medistore/api/internal/database"
	"github.com/medistore/api/internal/enum"
	"github.com/medistore/api/internal/ws"
)

// NotificationStore defines the database methods needed by notification
// handlers. Satisfied by *database.Queries.
type NotificationStore interface {
	CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
	ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]database.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkNotificationRead(ctx context.Context, arg database.MarkNotificationReadParams) (database.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error
	DeleteNotification(ctx context.Context, arg database.DeleteNotificationParams) (uuid.UUID, error)
	ClearNotifications(ctx context.Context, userID uuid.UUID) error
}

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	store NotificationStore
	hub   Broadcaster
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store NotificationStore, hub Broadcaster) *NotificationHandler {
	return &NotificationHandler{store: store, hub: hub}
}

// RegisterRoutes registers user-scoped notification endpoints, mounted at
// /users/{id}/notifications.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Patch("/{nid}/read", h.MarkRead)
	r.Patch("/read-all", h.MarkAllRead)
	r.Delete("/{nid}", h.Delete)
	r.Delete("/", h.Clear)
}

// RegisterAdminRoutes registers the admin announcement endpoint.
func (h *NotificationHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/notifications", h.Announce)
}

// --- Request / Response types ---

type announceRequest struct {
	UserIDs []string `json:"user_ids"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
}

type notificationResponse struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Message          string     `json:"message"`
	Type             string     `json:"type"`
	OrderID          *uuid.UUID `json:"order_id"`
	HasReorderAction bool       `json:"has_reorder_action"`
	Read             bool       `json:"read"`
	CreatedAt        time.Time  `json:"created_at"`
}

type notificationListResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	UnreadCount   int64                  `json:"unread_count"`
}

func toNotificationResponse(n database.Notification) notificationResponse {
	resp := notificationResponse{
		ID:               n.ID,
		Title:            n.Title,
		Message:          n.Message,
		Type:             n.Type,
		HasReorderAction: n.HasReorderAction,
		Read:             n.Read,
		CreatedAt:        n.CreatedAt,
	}
	if n.OrderID.Valid {
		id := uuid.UUID(n.OrderID.Bytes)
		resp.OrderID = &id
	}
	return resp
}

// --- Handlers ---

// List returns the user's notifications, newest first, with the unread count.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	notifications, err := h.store.ListNotificationsByUser(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: list notifications: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	unread, err := h.store.CountUnreadNotifications(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: count unread notifications: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := notificationListResponse{
		Notifications: make([]notificationResponse, len(notifications)),
		UnreadCount:   unread,
	}
	for i, n := range notifications {
		resp.Notifications[i] = toNotificationResponse(n)
	}
	writeJSON(w, http.StatusOK, resp)
}

// MarkRead marks a single notification as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}
	notificationID, err := uuid.Parse(chi.URLParam(r, "nid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification ID"})
		return
	}

	n, err := h.store.MarkNotificationRead(r.Context(), database.MarkNotificationReadParams{
		ID:     notificationID,
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
			return
		}
		log.Printf("ERROR: mark notification read: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}

// MarkAllRead marks every notification for the user as read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	if err := h.store.MarkAllNotificationsRead(r.Context(), userID); err != nil {
		log.Printf("ERROR: mark all notifications read: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a single notification.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}
	notificationID, err := uuid.Parse(chi.URLParam(r, "nid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification ID"})
		return
	}

	if _, err := h.store.DeleteNotification(r.Context(), database.DeleteNotificationParams{
		ID:     notificationID,
		UserID: userID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
			return
		}
		log.Printf("ERROR: delete notification: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear removes all notifications for the user.
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	if err := h.store.ClearNotifications(r.Context(), userID); err != nil {
		log.Printf("ERROR: clear notifications: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Announce sends a custom notification to a list of users (ADMIN only).
// Each recipient gets a row and a realtime event; failed recipients are
// logged and skipped so one bad id does not sink the whole batch.
func (h *NotificationHandler) Announce(w http.ResponseWriter, r *http.Request) {
	var req announceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Title == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and message are required"})
		return
	}
	if len(req.UserIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one user ID is required"})
		return
	}

	userIDs := make([]uuid.UUID, len(req.UserIDs))
	for i, raw := range req.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID: " + raw})
			return
		}
		userIDs[i] = id
	}

	var created int
	for _, userID := range userIDs {
		n, err := h.store.CreateNotification(r.Context(), database.CreateNotificationParams{
			UserID:  userID,
			Title:   req.Title,
			Message: req.Message,
			Type:    enum.NotificationTypeCustom,
		})
		if err != nil {
			log.Printf("ERROR: create notification for %s: %v", userID, err)
			continue
		}
		created++

		if h.hub != nil {
			payload, err := json.Marshal(map[string]any{
				"notification_id": n.ID,
				"title":           n.Title,
				"message":         n.Message,
			})
			if err != nil {
				log.Printf("ERROR: marshaling notification event: %v", err)
				continue
			}
			h.hub.BroadcastToUser(userID, ws.Event{Type: "notification.created", Payload: payload})
		}
	}

	writeJSON(w, http.StatusCreated, map[string]int{"created": created})
}

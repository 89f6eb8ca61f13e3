package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/medistore/api/internal/database"
	"github.com/medistore/api/internal/handler"
	"github.com/medistore/api/internal/middleware"
)

// --- Mock NotificationStore ---

type mockNotificationStore struct {
	createFn      func(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
	listFn        func(ctx context.Context, userID uuid.UUID) ([]database.Notification, error)
	countUnreadFn func(ctx context.Context, userID uuid.UUID) (int64, error)
	markReadFn    func(ctx context.Context, arg database.MarkNotificationReadParams) (database.Notification, error)
	markAllFn     func(ctx context.Context, userID uuid.UUID) error
	deleteFn      func(ctx context.Context, arg database.DeleteNotificationParams) (uuid.UUID, error)
	clearFn       func(ctx context.Context, userID uuid.UUID) error
}

func (m *mockNotificationStore) CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
	if m.createFn != nil {
		return m.createFn(ctx, arg)
	}
	return database.Notification{}, nil
}

func (m *mockNotificationStore) ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]database.Notification, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []database.Notification{}, nil
}

func (m *mockNotificationStore) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.countUnreadFn != nil {
		return m.countUnreadFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockNotificationStore) MarkNotificationRead(ctx context.Context, arg database.MarkNotificationReadParams) (database.Notification, error) {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, arg)
	}
	return database.Notification{}, pgx.ErrNoRows
}

func (m *mockNotificationStore) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	if m.markAllFn != nil {
		return m.markAllFn(ctx, userID)
	}
	return nil
}

func (m *mockNotificationStore) DeleteNotification(ctx context.Context, arg database.DeleteNotificationParams) (uuid.UUID, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, arg)
	}
	return uuid.Nil, pgx.ErrNoRows
}

func (m *mockNotificationStore) ClearNotifications(ctx context.Context, userID uuid.UUID) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	return nil
}

func setupNotificationRouter(store *mockNotificationStore, hub *mockBroadcaster) *chi.Mux {
	var b handler.Broadcaster
	if hub != nil {
		b = hub
	}
	h := handler.NewNotificationHandler(store, b)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/users/{id}/notifications", func(r chi.Router) {
		r.Use(middleware.RequireSelf)
		h.RegisterRoutes(r)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole("ADMIN"))
		h.RegisterAdminRoutes(r)
	})
	return r
}

func testNotification(userID uuid.UUID, read bool) database.Notification {
	return database.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     "Order Status Updated",
		Message:   "Your order MED-000042 has been delivered.",
		Type:      "order_status",
		Read:      read,
		CreatedAt: time.Now(),
	}
}

// --- Tests ---

func TestNotificationList_WithUnreadCount(t *testing.T) {
	userID := uuid.New()
	store := &mockNotificationStore{
		listFn: func(ctx context.Context, gotUserID uuid.UUID) ([]database.Notification, error) {
			if gotUserID != userID {
				t.Errorf("user_id: got %v, want %v", gotUserID, userID)
			}
			return []database.Notification{
				testNotification(userID, false),
				testNotification(userID, true),
			}, nil
		},
		countUnreadFn: func(ctx context.Context, userID uuid.UUID) (int64, error) {
			return 1, nil
		},
	}
	router := setupNotificationRouter(store, nil)

	rr := doAuthRequest(t, router, "GET", "/users/"+userID.String()+"/notifications", nil, customerClaims(userID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	list, ok := resp["notifications"].([]interface{})
	if !ok || len(list) != 2 {
		t.Fatalf("notifications: got %v, want 2 entries", resp["notifications"])
	}
	if resp["unread_count"] != float64(1) {
		t.Errorf("unread_count: got %v, want 1", resp["unread_count"])
	}
}

func TestNotificationMarkRead(t *testing.T) {
	userID := uuid.New()
	notification := testNotification(userID, false)
	store := &mockNotificationStore{
		markReadFn: func(ctx context.Context, arg database.MarkNotificationReadParams) (database.Notification, error) {
			if arg.ID != notification.ID || arg.UserID != userID {
				t.Errorf("mark read params: got %+v", arg)
			}
			n := notification
			n.Read = true
			return n, nil
		},
	}
	router := setupNotificationRouter(store, nil)

	rr := doAuthRequest(t, router, "PATCH", "/users/"+userID.String()+"/notifications/"+notification.ID.String()+"/read", nil, customerClaims(userID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	if resp["read"] != true {
		t.Errorf("read: got %v, want true", resp["read"])
	}
}

func TestNotificationMarkRead_NotFound(t *testing.T) {
	userID := uuid.New()
	router := setupNotificationRouter(&mockNotificationStore{}, nil)

	rr := doAuthRequest(t, router, "PATCH", "/users/"+userID.String()+"/notifications/"+uuid.New().String()+"/read", nil, customerClaims(userID))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestNotificationMarkAllRead(t *testing.T) {
	userID := uuid.New()
	var called bool
	store := &mockNotificationStore{
		markAllFn: func(ctx context.Context, gotUserID uuid.UUID) error {
			called = true
			if gotUserID != userID {
				t.Errorf("user_id: got %v, want %v", gotUserID, userID)
			}
			return nil
		},
	}
	router := setupNotificationRouter(store, nil)

	rr := doAuthRequest(t, router, "PATCH", "/users/"+userID.String()+"/notifications/read-all", nil, customerClaims(userID))
	if rr.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if !called {
		t.Error("MarkAllNotificationsRead not called")
	}
}

func TestNotificationDelete(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	store := &mockNotificationStore{
		deleteFn: func(ctx context.Context, arg database.DeleteNotificationParams) (uuid.UUID, error) {
			if arg.ID != notificationID || arg.UserID != userID {
				t.Errorf("delete params: got %+v", arg)
			}
			return arg.ID, nil
		},
	}
	router := setupNotificationRouter(store, nil)

	rr := doAuthRequest(t, router, "DELETE", "/users/"+userID.String()+"/notifications/"+notificationID.String(), nil, customerClaims(userID))
	if rr.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestNotificationClear(t *testing.T) {
	userID := uuid.New()
	var called bool
	store := &mockNotificationStore{
		clearFn: func(ctx context.Context, gotUserID uuid.UUID) error {
			called = true
			return nil
		},
	}
	router := setupNotificationRouter(store, nil)

	rr := doAuthRequest(t, router, "DELETE", "/users/"+userID.String()+"/notifications", nil, customerClaims(userID))
	if rr.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if !called {
		t.Error("ClearNotifications not called")
	}
}

func TestNotificationOtherUserForbidden(t *testing.T) {
	router := setupNotificationRouter(&mockNotificationStore{}, nil)

	rr := doAuthRequest(t, router, "GET", "/users/"+uuid.New().String()+"/notifications", nil, customerClaims(uuid.New()))
	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

// --- Announce ---

func TestNotificationAnnounce_HappyPath(t *testing.T) {
	user1 := uuid.New()
	user2 := uuid.New()
	var created []database.CreateNotificationParams
	store := &mockNotificationStore{
		createFn: func(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
			created = append(created, arg)
			return database.Notification{
				ID:      uuid.New(),
				UserID:  arg.UserID,
				Title:   arg.Title,
				Message: arg.Message,
				Type:    arg.Type,
			}, nil
		},
	}
	hub := &mockBroadcaster{}
	router := setupNotificationRouter(store, hub)

	rr := doAuthRequest(t, router, "POST", "/admin/notifications", map[string]interface{}{
		"user_ids": []string{user1.String(), user2.String()},
		"title":    "Monsoon Sale",
		"message":  "Flat 20% off on all medicines this week.",
	}, adminClaims())

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	if resp["created"] != float64(2) {
		t.Errorf("created: got %v, want 2", resp["created"])
	}
	if len(created) != 2 {
		t.Fatalf("notifications created: got %d, want 2", len(created))
	}
	if created[0].Type != "custom" {
		t.Errorf("type: got %v, want custom", created[0].Type)
	}
	if got := hub.eventTypes(); len(got) != 2 || got[0] != "notification.created" {
		t.Errorf("broadcast events: got %v, want 2 notification.created", got)
	}
}

func TestNotificationAnnounce_SkipsFailedRecipient(t *testing.T) {
	user1 := uuid.New()
	user2 := uuid.New()
	store := &mockNotificationStore{
		createFn: func(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
			if arg.UserID == user1 {
				return database.Notification{}, pgx.ErrNoRows
			}
			return database.Notification{ID: uuid.New(), UserID: arg.UserID}, nil
		},
	}
	router := setupNotificationRouter(store, nil)

	rr := doAuthRequest(t, router, "POST", "/admin/notifications", map[string]interface{}{
		"user_ids": []string{user1.String(), user2.String()},
		"title":    "Notice",
		"message":  "Store closed on Sunday.",
	}, adminClaims())

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeObject(t, rr)
	if resp["created"] != float64(1) {
		t.Errorf("created: got %v, want 1", resp["created"])
	}
}

func TestNotificationAnnounce_Validation(t *testing.T) {
	router := setupNotificationRouter(&mockNotificationStore{}, nil)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing title", map[string]interface{}{"user_ids": []string{uuid.New().String()}, "message": "hi"}},
		{"missing message", map[string]interface{}{"user_ids": []string{uuid.New().String()}, "title": "hi"}},
		{"no recipients", map[string]interface{}{"user_ids": []string{}, "title": "hi", "message": "hi"}},
		{"bad user id", map[string]interface{}{"user_ids": []string{"not-a-uuid"}, "title": "hi", "message": "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, "POST", "/admin/notifications", tt.body, adminClaims())
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestNotificationAnnounce_RequiresAdmin(t *testing.T) {
	router := setupNotificationRouter(&mockNotificationStore{}, nil)

	rr := doAuthRequest(t, router, "POST", "/admin/notifications", map[string]interface{}{
		"user_ids": []string{uuid.New().String()},
		"title":    "hi",
		"message":  "hi",
	}, customerClaims(uuid.New()))

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

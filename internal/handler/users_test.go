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

// --- Mock UserStore ---

type mockUserStore struct {
	listWithCountsFn func(ctx context.Context) ([]database.ListUsersWithCountsRow, error)
	getUserByIDFn    func(ctx context.Context, id uuid.UUID) (database.User, error)
	listOrdersFn     func(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	listNotifsFn     func(ctx context.Context, userID uuid.UUID) ([]database.Notification, error)
	listRemindersFn  func(ctx context.Context, arg database.ListRemindersByUserParams) ([]database.Reminder, error)
}

func (m *mockUserStore) ListUsersWithCounts(ctx context.Context) ([]database.ListUsersWithCountsRow, error) {
	if m.listWithCountsFn != nil {
		return m.listWithCountsFn(ctx)
	}
	return []database.ListUsersWithCountsRow{}, nil
}

func (m *mockUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(ctx, id)
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockUserStore) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]database.Order, error) {
	if m.listOrdersFn != nil {
		return m.listOrdersFn(ctx, userID)
	}
	return []database.Order{}, nil
}

func (m *mockUserStore) ListNotificationsByUser(ctx context.Context, userID uuid.UUID) ([]database.Notification, error) {
	if m.listNotifsFn != nil {
		return m.listNotifsFn(ctx, userID)
	}
	return []database.Notification{}, nil
}

func (m *mockUserStore) ListRemindersByUser(ctx context.Context, arg database.ListRemindersByUserParams) ([]database.Reminder, error) {
	if m.listRemindersFn != nil {
		return m.listRemindersFn(ctx, arg)
	}
	return []database.Reminder{}, nil
}

func setupUserRouter(store *mockUserStore) *chi.Mux {
	h := handler.NewUserHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole("ADMIN"))
		h.RegisterAdminRoutes(r)
	})
	return r
}

func testUser(role string) database.User {
	now := time.Now()
	return database.User{
		ID:          uuid.New(),
		FullName:    "Asha Rao",
		Email:       "asha@example.com",
		Mobile:      "+919876543210",
		Role:        role,
		CreatedAt:   now,
		LastLoginAt: now,
	}
}

// --- Tests ---

func TestUserList(t *testing.T) {
	store := &mockUserStore{
		listWithCountsFn: func(ctx context.Context) ([]database.ListUsersWithCountsRow, error) {
			return []database.ListUsersWithCountsRow{
				{User: testUser("CUSTOMER"), OrderCount: 4, NotificationCount: 7},
				{User: testUser("ADMIN"), OrderCount: 0, NotificationCount: 0},
			}, nil
		},
	}
	router := setupUserRouter(store)

	rr := doAuthRequest(t, router, "GET", "/admin/users", nil, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeList(t, rr)
	if len(resp) != 2 {
		t.Fatalf("users count: got %d, want 2", len(resp))
	}
	if resp[0]["order_count"] != float64(4) {
		t.Errorf("order_count: got %v, want 4", resp[0]["order_count"])
	}
	if resp[0]["notification_count"] != float64(7) {
		t.Errorf("notification_count: got %v, want 7", resp[0]["notification_count"])
	}
	if _, exposed := resp[0]["hashed_password"]; exposed {
		t.Error("hashed_password must not be serialized")
	}
}

func TestUserDetail(t *testing.T) {
	user := testUser("CUSTOMER")
	store := &mockUserStore{
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			if id != user.ID {
				t.Errorf("user_id: got %v, want %v", id, user.ID)
			}
			return user, nil
		},
		listOrdersFn: func(ctx context.Context, userID uuid.UUID) ([]database.Order, error) {
			return []database.Order{testOrder(userID)}, nil
		},
		listNotifsFn: func(ctx context.Context, userID uuid.UUID) ([]database.Notification, error) {
			return []database.Notification{testNotification(userID, false)}, nil
		},
		listRemindersFn: func(ctx context.Context, arg database.ListRemindersByUserParams) ([]database.Reminder, error) {
			return []database.Reminder{testReminder(arg.UserID, time.Now().AddDate(0, 0, 5))}, nil
		},
	}
	router := setupUserRouter(store)

	rr := doAuthRequest(t, router, "GET", "/admin/users/"+user.ID.String(), nil, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	if resp["full_name"] != "Asha Rao" {
		t.Errorf("full_name: got %v, want Asha Rao", resp["full_name"])
	}
	for _, key := range []string{"orders", "notifications", "reminders"} {
		list, ok := resp[key].([]interface{})
		if !ok || len(list) != 1 {
			t.Errorf("%s: got %v, want 1 entry", key, resp[key])
		}
	}
}

func TestUserDetail_NotFound(t *testing.T) {
	router := setupUserRouter(&mockUserStore{})

	rr := doAuthRequest(t, router, "GET", "/admin/users/"+uuid.New().String(), nil, adminClaims())
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUserList_RequiresAdmin(t *testing.T) {
	router := setupUserRouter(&mockUserStore{})

	rr := doAuthRequest(t, router, "GET", "/admin/users", nil, customerClaims(uuid.New()))
	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

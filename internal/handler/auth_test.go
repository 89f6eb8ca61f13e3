package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/medistore/api/internal/auth"
	"github.com/medistore/api/internal/database"
	"github.com/medistore/api/internal/handler"
	"github.com/medistore/api/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock AuthStore ---

type mockAuthStore struct {
	createUserFn       func(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	getUserByEmailFn   func(ctx context.Context, email string) (database.User, error)
	getUserByIDFn      func(ctx context.Context, id uuid.UUID) (database.User, error)
	touchLastLoginFn   func(ctx context.Context, id uuid.UUID) error
	updatePasswordFn   func(ctx context.Context, arg database.UpdateUserPasswordParams) error
	updateByEmailFn    func(ctx context.Context, arg database.UpdateUserPasswordByEmailParams) (uuid.UUID, error)
	createResetCodeFn  func(ctx context.Context, arg database.CreatePasswordResetCodeParams) (database.PasswordResetCode, error)
	getResetCodeFn     func(ctx context.Context, arg database.GetPasswordResetCodeParams) (database.PasswordResetCode, error)
	deleteResetCodesFn func(ctx context.Context, email string) error
}

func (m *mockAuthStore) CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, arg)
	}
	return database.User{}, nil
}

func (m *mockAuthStore) GetUserByEmail(ctx context.Context, email string) (database.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(ctx, email)
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockAuthStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(ctx, id)
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *mockAuthStore) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	if m.touchLastLoginFn != nil {
		return m.touchLastLoginFn(ctx, id)
	}
	return nil
}

func (m *mockAuthStore) UpdateUserPassword(ctx context.Context, arg database.UpdateUserPasswordParams) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, arg)
	}
	return nil
}

func (m *mockAuthStore) UpdateUserPasswordByEmail(ctx context.Context, arg database.UpdateUserPasswordByEmailParams) (uuid.UUID, error) {
	if m.updateByEmailFn != nil {
		return m.updateByEmailFn(ctx, arg)
	}
	return uuid.New(), nil
}

func (m *mockAuthStore) CreatePasswordResetCode(ctx context.Context, arg database.CreatePasswordResetCodeParams) (database.PasswordResetCode, error) {
	if m.createResetCodeFn != nil {
		return m.createResetCodeFn(ctx, arg)
	}
	return database.PasswordResetCode{Email: arg.Email, Code: arg.Code, ExpiresAt: arg.ExpiresAt}, nil
}

func (m *mockAuthStore) GetPasswordResetCode(ctx context.Context, arg database.GetPasswordResetCodeParams) (database.PasswordResetCode, error) {
	if m.getResetCodeFn != nil {
		return m.getResetCodeFn(ctx, arg)
	}
	return database.PasswordResetCode{}, pgx.ErrNoRows
}

func (m *mockAuthStore) DeletePasswordResetCodes(ctx context.Context, email string) error {
	if m.deleteResetCodesFn != nil {
		return m.deleteResetCodesFn(ctx, email)
	}
	return nil
}

// --- Mock mail.Sender ---

type mockMailer struct {
	sentTo   []string
	sentCode string
	err      error
}

func (m *mockMailer) SendResetCode(to, code string) error {
	m.sentTo = append(m.sentTo, to)
	m.sentCode = code
	return m.err
}

func setupAuthRouter(store *mockAuthStore, mailer *mockMailer) *chi.Mux {
	if mailer == nil {
		mailer = &mockMailer{}
	}
	h := handler.NewAuthHandler(store, mailer, testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		h.RegisterProtectedRoutes(r)
	})
	return r
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hashed)
}

// --- Signup ---

func TestSignup_HappyPath(t *testing.T) {
	store := &mockAuthStore{
		createUserFn: func(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
			if arg.Role != "CUSTOMER" {
				t.Errorf("role: got %v, want CUSTOMER", arg.Role)
			}
			if arg.HashedPassword == "Secret123" {
				t.Error("password stored in plain text")
			}
			return database.User{
				ID:       uuid.New(),
				FullName: arg.FullName,
				Email:    arg.Email,
				Mobile:   arg.Mobile,
				Role:     arg.Role,
			}, nil
		},
	}
	router := setupAuthRouter(store, nil)

	rr := doRequest(t, router, "POST", "/auth/signup", map[string]interface{}{
		"full_name": "Asha Rao",
		"email":     "asha@example.com",
		"mobile":    "+919876543210",
		"password":  "Secret123",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeObject(t, rr)
	if resp["access_token"] == "" || resp["refresh_token"] == "" {
		t.Error("expected token pair in response")
	}
	user, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatal("user missing from response")
	}
	if user["email"] != "asha@example.com" {
		t.Errorf("email: got %v, want asha@example.com", user["email"])
	}
	if _, exposed := user["hashed_password"]; exposed {
		t.Error("hashed_password must not be serialized")
	}
}

func TestSignup_ValidationErrors(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{}, nil)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"bad email", map[string]interface{}{"full_name": "A B", "email": "nope", "mobile": "+919876543210", "password": "Secret123"}},
		{"short password", map[string]interface{}{"full_name": "A B", "email": "a@b.com", "mobile": "+919876543210", "password": "Ab1"}},
		{"digitless password", map[string]interface{}{"full_name": "A B", "email": "a@b.com", "mobile": "+919876543210", "password": "Abcdefgh"}},
		{"bad mobile", map[string]interface{}{"full_name": "A B", "email": "a@b.com", "mobile": "12ab", "password": "Secret123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, "POST", "/auth/signup", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	store := &mockAuthStore{
		createUserFn: func(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
			return database.User{}, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		},
	}
	router := setupAuthRouter(store, nil)

	rr := doRequest(t, router, "POST", "/auth/signup", map[string]interface{}{
		"full_name": "Asha Rao",
		"email":     "asha@example.com",
		"mobile":    "+919876543210",
		"password":  "Secret123",
	})

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

// --- Login ---

func TestLogin_HappyPath(t *testing.T) {
	userID := uuid.New()
	var touched bool
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			return database.User{
				ID:             userID,
				Email:          email,
				HashedPassword: hashPassword(t, "Secret123"),
				Role:           "CUSTOMER",
			}, nil
		},
		touchLastLoginFn: func(ctx context.Context, id uuid.UUID) error {
			touched = true
			return nil
		},
	}
	router := setupAuthRouter(store, nil)

	rr := doRequest(t, router, "POST", "/auth/login", map[string]interface{}{
		"email":    "asha@example.com",
		"password": "Secret123",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if !touched {
		t.Error("last login not touched")
	}

	resp := decodeObject(t, rr)
	access, _ := resp["access_token"].(string)
	claims, err := auth.ValidateToken(testJWTSecret, access)
	if err != nil {
		t.Fatalf("access token does not validate: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("token user: got %v, want %v", claims.UserID, userID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			return database.User{
				ID:             uuid.New(),
				HashedPassword: hashPassword(t, "Secret123"),
			}, nil
		},
	}
	router := setupAuthRouter(store, nil)

	rr := doRequest(t, router, "POST", "/auth/login", map[string]interface{}{
		"email":    "asha@example.com",
		"password": "WrongOne1",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{}, nil)

	rr := doRequest(t, router, "POST", "/auth/login", map[string]interface{}{
		"email":    "ghost@example.com",
		"password": "Secret123",
	})

	// Same answer as a wrong password, no account enumeration
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

// --- Refresh ---

func TestRefresh_HappyPath(t *testing.T) {
	userID := uuid.New()
	refresh, err := auth.GenerateRefreshToken(testJWTSecret, userID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	store := &mockAuthStore{
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			if id != userID {
				t.Errorf("user_id: got %v, want %v", id, userID)
			}
			return database.User{ID: id, Role: "CUSTOMER"}, nil
		},
	}
	router := setupAuthRouter(store, nil)

	rr := doRequest(t, router, "POST", "/auth/refresh", map[string]interface{}{
		"refresh_token": refresh,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeObject(t, rr)
	if resp["access_token"] == "" {
		t.Error("expected new access token")
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{}, nil)

	rr := doRequest(t, router, "POST", "/auth/refresh", map[string]interface{}{
		"refresh_token": "not.a.jwt",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

// --- Forgot / reset password ---

func TestForgotPassword_SendsCode(t *testing.T) {
	var storedCode string
	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			return database.User{ID: uuid.New(), Email: email}, nil
		},
		createResetCodeFn: func(ctx context.Context, arg database.CreatePasswordResetCodeParams) (database.PasswordResetCode, error) {
			storedCode = arg.Code
			if remaining := time.Until(arg.ExpiresAt); remaining < 9*time.Minute || remaining > 11*time.Minute {
				t.Errorf("expiry: got %v from now, want ~10m", remaining)
			}
			return database.PasswordResetCode{Email: arg.Email, Code: arg.Code, ExpiresAt: arg.ExpiresAt}, nil
		},
	}
	mailer := &mockMailer{}
	router := setupAuthRouter(store, mailer)

	rr := doRequest(t, router, "POST", "/auth/forgot-password", map[string]interface{}{
		"email": "asha@example.com",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if len(storedCode) != 6 {
		t.Errorf("code: got %q, want 6 digits", storedCode)
	}
	if len(mailer.sentTo) != 1 || mailer.sentTo[0] != "asha@example.com" {
		t.Errorf("mail recipients: got %v", mailer.sentTo)
	}
	if mailer.sentCode != storedCode {
		t.Errorf("mailed code %q does not match stored code %q", mailer.sentCode, storedCode)
	}
}

func TestForgotPassword_UnknownEmailStillOK(t *testing.T) {
	mailer := &mockMailer{}
	router := setupAuthRouter(&mockAuthStore{}, mailer)

	rr := doRequest(t, router, "POST", "/auth/forgot-password", map[string]interface{}{
		"email": "ghost@example.com",
	})

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if len(mailer.sentTo) != 0 {
		t.Errorf("no mail should be sent for unknown email, got %v", mailer.sentTo)
	}
}

func TestResetPassword_HappyPath(t *testing.T) {
	var newHash string
	var codesDeleted bool
	store := &mockAuthStore{
		getResetCodeFn: func(ctx context.Context, arg database.GetPasswordResetCodeParams) (database.PasswordResetCode, error) {
			if arg.Code != "123456" {
				t.Errorf("code: got %v, want 123456", arg.Code)
			}
			return database.PasswordResetCode{
				Email:     arg.Email,
				Code:      arg.Code,
				ExpiresAt: time.Now().Add(5 * time.Minute),
			}, nil
		},
		updateByEmailFn: func(ctx context.Context, arg database.UpdateUserPasswordByEmailParams) (uuid.UUID, error) {
			newHash = arg.HashedPassword
			return uuid.New(), nil
		},
		deleteResetCodesFn: func(ctx context.Context, email string) error {
			codesDeleted = true
			return nil
		},
	}
	router := setupAuthRouter(store, nil)

	rr := doRequest(t, router, "POST", "/auth/reset-password", map[string]interface{}{
		"email":        "asha@example.com",
		"code":         "123456",
		"new_password": "Fresh1234",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if err := bcrypt.CompareHashAndPassword([]byte(newHash), []byte("Fresh1234")); err != nil {
		t.Error("stored hash does not match new password")
	}
	if !codesDeleted {
		t.Error("reset codes not invalidated after use")
	}
}

func TestResetPassword_ExpiredCode(t *testing.T) {
	store := &mockAuthStore{
		getResetCodeFn: func(ctx context.Context, arg database.GetPasswordResetCodeParams) (database.PasswordResetCode, error) {
			return database.PasswordResetCode{
				Email:     arg.Email,
				Code:      arg.Code,
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
	}
	router := setupAuthRouter(store, nil)

	rr := doRequest(t, router, "POST", "/auth/reset-password", map[string]interface{}{
		"email":        "asha@example.com",
		"code":         "123456",
		"new_password": "Fresh1234",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestResetPassword_WrongCode(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{}, nil)

	rr := doRequest(t, router, "POST", "/auth/reset-password", map[string]interface{}{
		"email":        "asha@example.com",
		"code":         "000000",
		"new_password": "Fresh1234",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Change password ---

func TestChangePassword_HappyPath(t *testing.T) {
	userID := uuid.New()
	var updated bool
	store := &mockAuthStore{
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			return database.User{ID: id, HashedPassword: hashPassword(t, "OldSecret1")}, nil
		},
		updatePasswordFn: func(ctx context.Context, arg database.UpdateUserPasswordParams) error {
			updated = true
			if arg.ID != userID {
				t.Errorf("user_id: got %v, want %v", arg.ID, userID)
			}
			return nil
		},
	}
	router := setupAuthRouter(store, nil)

	rr := doAuthRequest(t, router, "POST", "/auth/change-password", map[string]interface{}{
		"current_password": "OldSecret1",
		"new_password":     "NewSecret1",
	}, customerClaims(userID))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if !updated {
		t.Error("password not updated")
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	userID := uuid.New()
	store := &mockAuthStore{
		getUserByIDFn: func(ctx context.Context, id uuid.UUID) (database.User, error) {
			return database.User{ID: id, HashedPassword: hashPassword(t, "OldSecret1")}, nil
		},
	}
	router := setupAuthRouter(store, nil)

	rr := doAuthRequest(t, router, "POST", "/auth/change-password", map[string]interface{}{
		"current_password": "NotTheOne1",
		"new_password":     "NewSecret1",
	}, customerClaims(userID))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestChangePassword_RequiresToken(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{}, nil)

	rr := doRequest(t, router, "POST", "/auth/change-password", map[string]interface{}{
		"current_password": "OldSecret1",
		"new_password":     "NewSecret1",
	})

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

package validate

import (
	"errors"
	"testing"
)

func TestSignupValid(t *testing.T) {
	err := Signup("Asha Rao", "asha@example.com", "+919876543210", "secret123")
	if err != nil {
		t.Fatalf("expected valid signup, got %v", err)
	}
}

func TestSignupInvalid(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		email    string
		mobile   string
		password string
	}{
		{"missing name", "", "asha@example.com", "9876543210", "secret123"},
		{"bad email", "Asha Rao", "not-an-email", "9876543210", "secret123"},
		{"bad mobile", "Asha Rao", "asha@example.com", "abc", "secret123"},
		{"short password", "Asha Rao", "asha@example.com", "9876543210", "ab1"},
		{"no digit in password", "Asha Rao", "asha@example.com", "9876543210", "allletters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Signup(tt.fullName, tt.email, tt.mobile, tt.password); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestPassword(t *testing.T) {
	if err := Password("secret123"); err != nil {
		t.Errorf("expected valid password, got %v", err)
	}
	if err := Password("short1"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := Password("12345678"); !errors.Is(err, ErrPasswordNotComplex) {
		t.Errorf("expected ErrPasswordNotComplex, got %v", err)
	}
}

func TestNewPassword(t *testing.T) {
	if err := NewPassword(""); err == nil {
		t.Error("expected error for blank password")
	}
	if err := NewPassword("secret123"); err != nil {
		t.Errorf("expected valid password, got %v", err)
	}
}

package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUserStatus_Values(t *testing.T) {
	if UserStatusActive != "active" {
		t.Errorf("UserStatusActive = %q, want %q", UserStatusActive, "active")
	}
	if UserStatusDisabled != "disabled" {
		t.Errorf("UserStatusDisabled = %q, want %q", UserStatusDisabled, "disabled")
	}
}

func TestAuthProvider_Values(t *testing.T) {
	if AuthProviderGoogle != "google" {
		t.Errorf("AuthProviderGoogle = %q, want %q", AuthProviderGoogle, "google")
	}
	if AuthProviderEmail != "email" {
		t.Errorf("AuthProviderEmail = %q, want %q", AuthProviderEmail, "email")
	}
}

func TestUser_JSONOmitsPasswordHash(t *testing.T) {
	user := User{
		ID:           "123",
		Email:        "test@example.com",
		PasswordHash: "secret-hash",
		DisplayName:  "Test User",
		Role:         UserRoleCustomer,
		Status:       UserStatusActive,
	}

	data, err := json.Marshal(user)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret-hash") {
		t.Errorf("marshaled user leaks the password hash: %s", data)
	}
	if !strings.Contains(string(data), `"role":"customer"`) {
		t.Errorf("marshaled user = %s, want role", data)
	}
}

func TestUser_EffectiveDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"display name wins", User{DisplayName: "Asha", Email: "asha.k@example.com"}, "Asha"},
		{"email local part", User{Email: "asha.k@example.com"}, "asha.k"},
		{"malformed email", User{Email: "@example.com"}, "@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.EffectiveDisplayName(); got != tt.want {
				t.Errorf("EffectiveDisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

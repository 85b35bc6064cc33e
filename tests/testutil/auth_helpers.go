package testutil

import (
	"testing"

	"gorm.io/gorm"

	"github.com/poolworks/poolcare-api/models"
	"github.com/poolworks/poolcare-api/services"
)

// TestJWTSecret is the signing secret used across the test suites.
const TestJWTSecret = "integration-test-secret"

// CreateUserWithPassword persists a user with a real bcrypt hash so login
// flows can be exercised end to end.
func CreateUserWithPassword(t *testing.T, db *gorm.DB, username, password string, role models.UserRole) *models.User {
	t.Helper()

	hash, err := services.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{Username: username, PasswordHash: hash, Role: role}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %q: %v", username, err)
	}
	return user
}

// TokenFor issues a real signed token for a user with TestJWTSecret.
func TokenFor(t *testing.T, user *models.User) string {
	t.Helper()

	token, err := services.GenerateToken(TestJWTSecret, user)
	if err != nil {
		t.Fatalf("Failed to issue token for %q: %v", user.Username, err)
	}
	return token
}

// AuthHeader formats a bearer Authorization header value for a user.
func AuthHeader(t *testing.T, user *models.User) string {
	return "Bearer " + TokenFor(t, user)
}

package auth

import (
	"testing"
	"time"

	"github.com/erazemk/achados/internal/model"
)

func TestGenerateAndValidateToken(t *testing.T) {
	iss := NewIssuer("test-secret-key", "achados", time.Hour)

	token, issued, err := iss.Generate(1, "admin", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if token == "" || issued.ID == "" {
		t.Fatal("expected non-empty token and JTI")
	}

	claims, err := iss.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != 1 {
		t.Errorf("expected user_id 1, got %d", claims.UserID)
	}
	if claims.Role != model.RoleAdmin {
		t.Errorf("expected role 'admin', got %q", claims.Role)
	}
	if claims.ID != issued.ID {
		t.Errorf("expected JTI %q, got %q", issued.ID, claims.ID)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, _ := NewIssuer("secret1", "", 0).Generate(1, "admin", model.RoleAdmin)

	if _, err := NewIssuer("secret2", "", 0).Validate(token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	token, _, _ := NewIssuer("s", "other", 0).Generate(1, "admin", model.RoleAdmin)

	if _, err := NewIssuer("s", "achados", 0).Validate(token); err == nil {
		t.Error("expected error for foreign issuer")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	if _, err := NewIssuer("secret", "", 0).Validate("not-a-token"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestTokenExpiry(t *testing.T) {
	iss := NewIssuer("test", "", 0)
	token, _, _ := iss.Generate(1, "test", model.RoleUser)
	claims, _ := iss.Validate(token)

	diff := time.Now().Add(DefaultTokenTTL).Sub(claims.ExpiresAt.Time)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	iss := NewIssuer("test", "", time.Nanosecond)
	token, _, _ := iss.Generate(1, "test", model.RoleUser)
	time.Sleep(1100 * time.Millisecond)

	if _, err := iss.Validate(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected wrong password to fail")
	}
}

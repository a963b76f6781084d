package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Faith-Anthony/presently/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "unit-test-secret",
		Issuer:            "presently-test",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	signed, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID:      userID,
		DisplayName: "Ada",
		Email:       "ada@example.com",
	})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user %s, got %s", userID, claims.UserID)
	}
	if claims.DisplayName != "Ada" {
		t.Fatalf("unexpected display name %q", claims.DisplayName)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	t.Run("missingSecret", func(t *testing.T) {
		cfg := testJWTConfig()
		cfg.Secret = ""
		if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New()}); err == nil {
			t.Fatal("expected error for missing secret")
		}
	})

	t.Run("missingUser", func(t *testing.T) {
		if _, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{}); err == nil {
			t.Fatal("expected error for missing user id")
		}
	})
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	past := time.Now().Add(-2 * time.Hour)

	signed, err := MintAccessToken(cfg, past, AccessTokenPayload{UserID: uuid.New(), JTI: "fixed-jti"})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, signed)
	if err != nil {
		t.Fatalf("expected expired parse to succeed: %v", err)
	}
	if claims.ID != "fixed-jti" {
		t.Fatalf("expected jti to round-trip, got %q", claims.ID)
	}
}

package auth

import (
	"errors"
	"testing"
	"time"
)

func TestValidateToken(t *testing.T) {
	cfg := testJWTConfig()

	token, err := GenerateToken(cfg, 7, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	tests := []struct {
		name    string
		cfg     *JWTConfig
		token   string
		wantErr bool
	}{
		{name: "valid", cfg: cfg, token: token},
		{name: "wrong secret", cfg: &JWTConfig{Secret: []byte("other"), Issuer: cfg.Issuer, Audience: cfg.Audience}, token: token, wantErr: true},
		{name: "wrong issuer", cfg: &JWTConfig{Secret: cfg.Secret, Issuer: "other", Audience: cfg.Audience}, token: token, wantErr: true},
		{name: "wrong audience", cfg: &JWTConfig{Secret: cfg.Secret, Issuer: cfg.Issuer, Audience: "other"}, token: token, wantErr: true},
		{name: "garbage", cfg: cfg, token: "not-a-token", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.cfg, tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if claims.Username != "alice" || claims.UserID != 7 {
				t.Fatalf("unexpected claims: %+v", claims)
			}
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.TTL = -time.Minute

	token, err := GenerateToken(cfg, 1, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ValidateToken(cfg, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

package sqlite

import (
	"context"
	"testing"

	"github.com/vovakirdan/wirechat-channels/internal/store"
	"github.com/vovakirdan/wirechat-channels/internal/store/storetest"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestChannelStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.ChannelStore {
		return newTestStore(t)
	})
}

func TestUsers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	users := []string{"alice", "bob", "charlie"}
	for i, u := range users {
		created, err := st.CreateUser(ctx, u, "hash-"+u)
		if err != nil {
			t.Fatalf("failed to create user %s: %v", u, err)
		}
		if created.ID != int64(i+1) {
			t.Errorf("expected id %d for %s, got %d", i+1, u, created.ID)
		}
	}

	if _, err := st.CreateUser(ctx, "alice", "again"); err != store.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	tests := []struct {
		name     string
		username string
		wantHash string
		wantErr  error
	}{
		{name: "existing user", username: "bob", wantHash: "hash-bob"},
		{name: "unknown user", username: "dave", wantErr: store.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := st.GetUserByUsername(ctx, tt.username)
			if err != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && user.PasswordHash != tt.wantHash {
				t.Errorf("expected hash %s, got %s", tt.wantHash, user.PasswordHash)
			}
		})
	}
}

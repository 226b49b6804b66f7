package tokenstore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	_ Revoker = (*Memory)(nil)
	_ Revoker = (*Redis)(nil)
)

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked_until_expiry", func(t *testing.T) {
		m := NewMemory()
		now := time.Now()
		m.now = func() time.Time { return now }

		if err := m.Revoke(ctx, "abc", now.Add(time.Hour)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		revoked, _ := m.IsRevoked(ctx, "abc")
		if !revoked {
			t.Fatal("expected token to be revoked")
		}

		now = now.Add(2 * time.Hour)
		revoked, _ = m.IsRevoked(ctx, "abc")
		if revoked {
			t.Fatal("expected revocation to lapse after expiry")
		}
	})

	t.Run("already_expired_is_ignored", func(t *testing.T) {
		m := NewMemory()
		if err := m.Revoke(ctx, "old", time.Now().Add(-time.Minute)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.revoked) != 0 {
			t.Errorf("expected no entries, got %d", len(m.revoked))
		}
	})

	t.Run("unknown_id", func(t *testing.T) {
		m := NewMemory()
		revoked, err := m.IsRevoked(ctx, "nope")
		if err != nil || revoked {
			t.Errorf("expected (false, nil), got (%v, %v)", revoked, err)
		}
	})
}

func TestNewRedis_BadURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not a url"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRedis_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	r := NewRedisWithClient(client)
	defer r.Close()

	if _, err := r.IsRevoked(context.Background(), "x"); err == nil {
		t.Fatal("expected error from unreachable redis")
	}
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	if err := s.Set(ctx, "a", []byte("alice"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "b", []byte("bob"), 0); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "a")
	if err != nil || string(got) != "alice" {
		t.Fatalf("Get(a) = %q, %v", got, err)
	}
	got[0] = 'X'
	if again, _ := s.Get(ctx, "a"); string(again) != "alice" {
		t.Error("Get returned shared storage")
	}

	now = now.Add(time.Hour)
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired entry: err = %v", err)
	}
	if _, err := s.Get(ctx, "b"); err != nil {
		t.Errorf("entry without ttl should not expire: %v", err)
	}
}

func TestMemoryStoreSweepAndDelete(t *testing.T) {
	now := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Set(ctx, "short", []byte("1"), time.Minute)
	s.Set(ctx, "long", []byte("2"), time.Hour)
	s.Set(ctx, "gone", []byte("3"), time.Hour)
	s.Delete(ctx, "gone")

	now = now.Add(2 * time.Minute)
	if n := s.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

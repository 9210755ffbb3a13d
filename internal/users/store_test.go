package users

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Register(ctx, "alice"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register(ctx, "alice"); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("second Register = %v, want ErrNameTaken", err)
	}

	ok, err := s.Exists(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("Exists(alice) = %v, %v", ok, err)
	}
	ok, err = s.Exists(ctx, "bob")
	if err != nil || ok {
		t.Fatalf("Exists(bob) = %v, %v", ok, err)
	}
}

package authctx

import (
	"context"
	"errors"
	"testing"
)

type claims struct{ ID string }

func TestSetGet(t *testing.T) {
	ctx := Set(context.Background(), &claims{ID: "u-1"})

	c, ok := Get[*claims](ctx)
	if !ok || c.ID != "u-1" {
		t.Fatalf("expected claims, got %v %v", c, ok)
	}
	if _, ok := Get[string](ctx); ok {
		t.Error("wrong type must not match")
	}
	if _, err := GetOrError[*claims](context.Background()); !errors.Is(err, ErrNoClaims) {
		t.Errorf("expected ErrNoClaims, got %v", err)
	}
}

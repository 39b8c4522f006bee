package store

import (
	"context"
	"errors"
	"testing"
)

func TestOnboard(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	p, err := svc.Onboard(context.Background(), "user-1", "Maison Verre", "maison-verre")
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if p.Verified {
		t.Fatal("new store should start unverified")
	}

	got, err := svc.GetBySlug(context.Background(), "Maison-Verre")
	if err != nil || got.ID != p.ID {
		t.Fatalf("get by slug = %+v, %v", got, err)
	}
	got, err = svc.GetByOwner(context.Background(), "user-1")
	if err != nil || got.ID != p.ID {
		t.Fatalf("get by owner = %+v, %v", got, err)
	}
}

func TestOnboardRejectsBadSlug(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	for _, slug := range []string{"", "Maison Verre", "-leading", "trailing-", "ümlaut"} {
		if _, err := svc.Onboard(context.Background(), "user-1", "Maison Verre", slug); !errors.Is(err, ErrBadSlug) {
			t.Fatalf("slug %q: err = %v, want ErrBadSlug", slug, err)
		}
	}
}

func TestOnboardRejectsDuplicateSlug(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if _, err := svc.Onboard(context.Background(), "user-1", "Maison Verre", "maison-verre"); err != nil {
		t.Fatalf("first onboard: %v", err)
	}
	_, err := svc.Onboard(context.Background(), "user-2", "Other Shop", "maison-verre")
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("err = %v, want ErrDuplicateSlug", err)
	}
}

package alert

import (
	"context"
	"errors"
	"testing"

	"luxeflow/catalog"
)

func newFixture(t *testing.T) (*Service, *catalog.MemoryRepository) {
	t.Helper()
	products := catalog.NewMemoryRepository()
	products.Seed(catalog.Product{
		ID:         "prod-1",
		SKU:        "LX-0001",
		StoreID:    "store-1",
		Name:       "Herringbone wool coat",
		PriceCents: 180000,
		Status:     catalog.StatusActive,
	})
	return NewService(NewMemoryRepository(), products, nil), products
}

func TestCreateAlert(t *testing.T) {
	svc, _ := newFixture(t)

	a, err := svc.Create(context.Background(), "user-1", "prod-1", 150000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !a.IsActive || a.TargetPriceCents != 150000 {
		t.Fatalf("alert = %+v", a)
	}
}

func TestCreateRejectsTargetAtOrAbovePrice(t *testing.T) {
	svc, _ := newFixture(t)

	for _, target := range []int64{180000, 200000} {
		if _, err := svc.Create(context.Background(), "user-1", "prod-1", target); !errors.Is(err, ErrTargetNotBelowPrice) {
			t.Fatalf("target %d: err = %v, want ErrTargetNotBelowPrice", target, err)
		}
	}
}

func TestCreateRejectsNonPositiveTarget(t *testing.T) {
	svc, _ := newFixture(t)

	for _, target := range []int64{0, -500} {
		if _, err := svc.Create(context.Background(), "user-1", "prod-1", target); !errors.Is(err, ErrBadTarget) {
			t.Fatalf("target %d: err = %v, want ErrBadTarget", target, err)
		}
	}
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	svc, _ := newFixture(t)

	if _, err := svc.Create(context.Background(), "user-1", "prod-missing", 1000); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
}

func TestSecondCreateRetargetsExistingAlert(t *testing.T) {
	svc, _ := newFixture(t)

	first, err := svc.Create(context.Background(), "user-1", "prod-1", 150000)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.Create(context.Background(), "user-1", "prod-1", 120000)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected upsert to keep alert %s, got new id %s", first.ID, second.ID)
	}
	if second.TargetPriceCents != 120000 {
		t.Fatalf("target = %d, want 120000", second.TargetPriceCents)
	}

	alerts, err := svc.List(context.Background(), "user-1")
	if err != nil || len(alerts) != 1 {
		t.Fatalf("list = %d alerts, err %v; want exactly 1", len(alerts), err)
	}
}

func TestDeleteIsSoftAndOwnerScoped(t *testing.T) {
	svc, _ := newFixture(t)

	a, _ := svc.Create(context.Background(), "user-1", "prod-1", 150000)

	if err := svc.Delete(context.Background(), "user-2", a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), "user-1", a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	alerts, _ := svc.List(context.Background(), "user-1")
	if len(alerts) != 0 {
		t.Fatalf("list after delete = %d alerts, want 0", len(alerts))
	}

	// A fresh create after the soft delete starts a new alert.
	b, err := svc.Create(context.Background(), "user-1", "prod-1", 100000)
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if b.ID == a.ID {
		t.Fatal("expected a new alert after soft delete")
	}
}

func TestDeleteByProduct(t *testing.T) {
	svc, _ := newFixture(t)

	if _, err := svc.Create(context.Background(), "user-1", "prod-1", 150000); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.DeleteByProduct(context.Background(), "user-1", "prod-1"); err != nil {
		t.Fatalf("delete by product: %v", err)
	}
	if err := svc.DeleteByProduct(context.Background(), "user-1", "prod-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

package store

import (
	"context"
	"errors"
	"testing"

	"verisyntra.org/internal/i18n"
)

func sampleActivity(tenant string) ProcessingActivity {
	return ProcessingActivity{
		TenantID:   tenant,
		Name:       i18n.T("Quản lý đơn hàng", "Order management"),
		Purpose:    i18n.T("Giao hàng", "Delivery"),
		LegalBasis: "contract",
		Categories: []DataCategory{{
			Name:   i18n.T("Thông tin cá nhân", "Personal info"),
			Fields: []string{"Họ và tên", "Email"},
		}},
		Recipients: []DataRecipient{{
			Name:    i18n.T("Đơn vị vận chuyển", "Carrier"),
			Type:    RecipientProcessor,
			Country: "VN",
		}},
		Retention: &DataRetention{Period: i18n.T("5 năm", "5 years")},
	}
}

func TestMemoryCreateGetUpdate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.CreateActivity(ctx, sampleActivity("t1"), Actor{UserID: "u1"})
	if err != nil {
		t.Fatalf("CreateActivity: %v", err)
	}
	if created.ID == "" || created.Status != StatusActive || created.Categories[0].ID == "" {
		t.Fatalf("created = %+v", created)
	}

	got, err := m.GetActivity(ctx, "t1", created.ID)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if got.Name.Vi != "Quản lý đơn hàng" || got.Retention == nil {
		t.Fatalf("got = %+v", got)
	}

	got.Purpose = i18n.T("Giao hàng và đổi trả", "")
	updated, err := m.UpdateActivity(ctx, got, Actor{UserID: "u1"})
	if err != nil {
		t.Fatalf("UpdateActivity: %v", err)
	}
	if updated.Purpose.Vi != "Giao hàng và đổi trả" || updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.CreatedAt != created.CreatedAt {
		t.Fatal("update must not change created_at")
	}
}

func TestMemoryValidation(t *testing.T) {
	m := NewMemory()
	a := sampleActivity("t1")
	a.Name.Vi = ""
	if _, err := m.CreateActivity(context.Background(), a, Actor{}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid for missing vi name", err)
	}
	a = sampleActivity("t1")
	a.LegalBasis = "vibes"
	if _, err := m.CreateActivity(context.Background(), a, Actor{}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid for unknown basis", err)
	}
}

func TestMemoryForeignRecipientImpliesCrossBorder(t *testing.T) {
	m := NewMemory()
	a := sampleActivity("t1")
	a.Recipients[0].Country = "US"
	created, err := m.CreateActivity(context.Background(), a, Actor{})
	if err != nil {
		t.Fatal(err)
	}
	if !created.Recipients[0].CrossBorder {
		t.Fatal("non-VN recipient must imply cross_border")
	}
}

func TestMemorySoftDeleteAndTenantIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	created, err := m.CreateActivity(ctx, sampleActivity("t1"), Actor{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.GetActivity(ctx, "t2", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant get = %v, want ErrNotFound", err)
	}
	if err := m.DeleteActivity(ctx, "t2", created.ID, Actor{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant delete = %v, want ErrNotFound", err)
	}

	if err := m.DeleteActivity(ctx, "t1", created.ID, Actor{}); err != nil {
		t.Fatalf("DeleteActivity: %v", err)
	}
	if _, err := m.GetActivity(ctx, "t1", created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("soft-deleted activity must not surface through Get")
	}
	if err := m.DeleteActivity(ctx, "t1", created.ID, Actor{}); !errors.Is(err, ErrNotFound) {
		t.Fatal("double delete must be ErrNotFound")
	}
	list, err := m.ListActivities(ctx, "t1", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("list after delete = %d entries", len(list))
	}
}

func TestMemoryListFiltersInactive(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a, err := m.CreateActivity(ctx, sampleActivity("t1"), Actor{})
	if err != nil {
		t.Fatal(err)
	}
	b := sampleActivity("t1")
	b.Status = StatusInactive
	if _, err := m.CreateActivity(ctx, b, Actor{}); err != nil {
		t.Fatal(err)
	}

	active, err := m.ListActivities(ctx, "t1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != a.ID {
		t.Fatalf("active list = %+v", active)
	}
	all, err := m.ListActivities(ctx, "t1", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("full list = %d entries, want 2", len(all))
	}
}

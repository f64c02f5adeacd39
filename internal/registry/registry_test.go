package registry

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "companies.json")
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return r
}

func TestAddSearchRemove(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Add(Company{
		Name:     "Shopee Vietnam",
		Aliases:  []string{"Shopee VN", "Shopee Việt Nam"},
		Industry: "ecommerce",
		Region:   "south",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Diacritic- and case-insensitive search over aliases.
	for _, q := range []string{"shopee", "SHOPEE VIET", "việt nam"} {
		if got := r.Search(q); len(got) != 1 || got[0].Name != "Shopee Vietnam" {
			t.Fatalf("Search(%q) = %v", q, got)
		}
	}

	if got := r.Search("lazada"); len(got) != 0 {
		t.Fatalf("unexpected search hit: %v", got)
	}

	if err := r.Remove("shopee vietnam", "ecommerce", "south"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := r.Remove("Shopee Vietnam", "ecommerce", "south"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddConflictsAndVocabulary(t *testing.T) {
	r := newTestRegistry(t)

	base := Company{Name: "Tiki", Industry: "ecommerce", Region: "south"}
	if err := r.Add(base); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Same canonical name in the same (industry, region) conflicts even with
	// different diacritics/case.
	if err := r.Add(Company{Name: "TIKI", Industry: "ecommerce", Region: "south"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// Alias colliding with an existing canonical name conflicts too.
	if err := r.Add(Company{Name: "Tiki Corp", Aliases: []string{"tiki"}, Industry: "ecommerce", Region: "south"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected alias conflict, got %v", err)
	}
	// Same name in a different region is allowed.
	if err := r.Add(Company{Name: "Tiki", Industry: "ecommerce", Region: "north"}); err != nil {
		t.Fatalf("Add different region: %v", err)
	}

	if err := r.Add(Company{Name: "X", Industry: "space", Region: "south"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for industry, got %v", err)
	}
	if err := r.Add(Company{Name: "X", Industry: "fintech", Region: "west"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for region, got %v", err)
	}
}

func TestStatsAndListByIndustry(t *testing.T) {
	r := newTestRegistry(t)
	seed := []Company{
		{Name: "VNPay", Industry: "fintech", Region: "north"},
		{Name: "Momo", Industry: "fintech", Region: "south"},
		{Name: "Viettel Post", Industry: "logistics", Region: "north"},
	}
	for _, c := range seed {
		if err := r.Add(c); err != nil {
			t.Fatalf("Add %s: %v", c.Name, err)
		}
	}

	st := r.Stats()
	if st.Total != 3 || st.ByIndustry["fintech"] != 2 || st.ByRegion["north"] != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.UpdatedAt.IsZero() {
		t.Fatalf("expected last-modified timestamp")
	}

	fintech, err := r.ListByIndustry("fintech")
	if err != nil || len(fintech) != 2 {
		t.Fatalf("ListByIndustry: %v %v", fintech, err)
	}
	if _, err := r.ListByIndustry("nope"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReloadSwapsAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.json")
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.Add(Company{Name: "Momo", Industry: "fintech", Region: "south"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Write a new snapshot through a second handle, as an operator would.
	other, err := Open(path)
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	if err := other.Add(Company{Name: "ZaloPay", Industry: "fintech", Region: "south"}); err != nil {
		t.Fatalf("Add through second handle: %v", err)
	}

	if r.Stats().Total != 1 {
		t.Fatalf("reload should not have happened yet")
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if r.Stats().Total != 2 {
		t.Fatalf("expected reloaded snapshot with 2 companies, got %d", r.Stats().Total)
	}
}

func TestReloadKeepsOldSnapshotOnCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.json")
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.Add(Company{Name: "Momo", Industry: "fintech", Region: "south"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("corrupt file: %v", err)
	}
	if err := r.Reload(); err == nil {
		t.Fatalf("expected reload error")
	}
	if r.Stats().Total != 1 {
		t.Fatalf("old snapshot must survive a failed reload")
	}
}

// A reload racing adds must leave the registry equal to one of the snapshots,
// never a blend.
func TestConcurrentAddAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.json")
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = r.Add(Company{Name: "Momo", Industry: "fintech", Region: "south"})
	}()
	go func() {
		defer wg.Done()
		_ = r.Reload()
	}()
	wg.Wait()

	total := r.Stats().Total
	if total != 0 && total != 1 {
		t.Fatalf("observed partial state: total=%d", total)
	}
	// Snapshot reads stay self-consistent under churn.
	snap := r.Snapshot()
	if len(snap.Entries()) != len(snap.Companies()) {
		t.Fatalf("entries and companies out of sync: %d vs %d", len(snap.Entries()), len(snap.Companies()))
	}
}

func TestExportRoundTrips(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Add(Company{Name: "FPT Software", Industry: "technology", Region: "north", AddedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	data, err := r.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	path := filepath.Join(t.TempDir(), "copy.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write copy: %v", err)
	}
	copyReg, err := Open(path)
	if err != nil {
		t.Fatalf("Open exported copy: %v", err)
	}
	if copyReg.Stats().Total != 1 {
		t.Fatalf("exported snapshot did not round trip")
	}
}

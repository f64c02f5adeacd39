package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeScanner scripts connect/discover behavior and records lifecycle calls.
type fakeScanner struct {
	mu           sync.Mutex
	connectErrs  []error
	discoverErrs []error
	assets       []Asset
	connects     int
	discovers    int
	closed       bool
}

func (f *fakeScanner) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		return err
	}
	return nil
}

func (f *fakeScanner) Discover(ctx context.Context, opts DiscoverOptions) (Discovery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discovers++
	if len(f.discoverErrs) > 0 {
		err := f.discoverErrs[0]
		f.discoverErrs = f.discoverErrs[1:]
		return Discovery{}, err
	}
	return Discovery{Assets: f.assets, Count: len(f.assets)}, nil
}

func (f *fakeScanner) Metadata(ctx context.Context, name string) (map[string]string, error) {
	return nil, nil
}

func (f *fakeScanner) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func registryWith(t *testing.T, typeName string, category Category, s Scanner) *Registry {
	t.Helper()
	r := NewRegistry()
	r.Register(typeName, category, func(map[string]string) (Scanner, error) { return s, nil })
	return r
}

func TestScanHappyPathProgressAndStamping(t *testing.T) {
	fake := &fakeScanner{assets: []Asset{{Name: "khach_hang", Location: "public.khach_hang"}}}
	m := NewManager(registryWith(t, "postgres", CategoryDatabase, fake), ManagerConfig{
		MaxRetries: 3, RetryDelay: time.Millisecond, Timeout: time.Second,
	})

	var milestones []int
	d, err := m.Scan(context.Background(), Request{ScannerType: "postgres"}, func(pct int, phase string) {
		milestones = append(milestones, pct)
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []int{20, 80, 100}
	if len(milestones) != len(want) {
		t.Fatalf("milestones = %v, want %v", milestones, want)
	}
	for i := range want {
		if milestones[i] != want[i] {
			t.Fatalf("milestones = %v, want %v", milestones, want)
		}
	}
	if d.Assets[0].Category != CategoryDatabase || d.Assets[0].ScannerType != "postgres" {
		t.Fatalf("asset not stamped: %+v", d.Assets[0])
	}
	if !fake.closed {
		t.Fatal("scanner not closed after successful scan")
	}
}

func TestScanRetriesTransientConnect(t *testing.T) {
	fake := &fakeScanner{
		connectErrs: []error{
			fmt.Errorf("%w: refused", ErrTransient),
			fmt.Errorf("%w: refused", ErrTransient),
		},
	}
	m := NewManager(registryWith(t, "postgres", CategoryDatabase, fake), ManagerConfig{
		MaxRetries: 3, RetryDelay: time.Millisecond, Timeout: time.Second,
	})
	if _, err := m.Scan(context.Background(), Request{ScannerType: "postgres"}, nil); err != nil {
		t.Fatalf("Scan should recover after transient failures: %v", err)
	}
	if fake.connects != 3 {
		t.Fatalf("connects = %d, want 3", fake.connects)
	}
}

func TestScanPermanentErrorFailsFast(t *testing.T) {
	permanent := errors.New("bad credentials")
	fake := &fakeScanner{connectErrs: []error{permanent}}
	m := NewManager(registryWith(t, "postgres", CategoryDatabase, fake), ManagerConfig{
		MaxRetries: 3, RetryDelay: time.Millisecond, Timeout: time.Second,
	})
	_, err := m.Scan(context.Background(), Request{ScannerType: "postgres"}, nil)
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want wrapped permanent error", err)
	}
	if fake.connects != 1 {
		t.Fatalf("connects = %d, want 1 (no retry on permanent error)", fake.connects)
	}
	if !fake.closed {
		t.Fatal("scanner must close even on failure")
	}
}

func TestScanRetryBudgetExhausted(t *testing.T) {
	fake := &fakeScanner{connectErrs: []error{
		fmt.Errorf("%w: a", ErrTransient),
		fmt.Errorf("%w: b", ErrTransient),
		fmt.Errorf("%w: c", ErrTransient),
	}}
	m := NewManager(registryWith(t, "postgres", CategoryDatabase, fake), ManagerConfig{
		MaxRetries: 3, RetryDelay: time.Millisecond, Timeout: time.Second,
	})
	_, err := m.Scan(context.Background(), Request{ScannerType: "postgres"}, nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient after exhaustion", err)
	}
	if fake.connects != 3 {
		t.Fatalf("connects = %d, want 3", fake.connects)
	}
}

func TestScanCancelledContextStopsRetriesAndCloses(t *testing.T) {
	fake := &fakeScanner{connectErrs: []error{fmt.Errorf("%w: refused", ErrTransient)}}
	m := NewManager(registryWith(t, "postgres", CategoryDatabase, fake), ManagerConfig{
		MaxRetries: 5, RetryDelay: time.Hour, Timeout: time.Hour,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Scan(ctx, Request{ScannerType: "postgres"}, nil)
		done <- err
	}()
	// Let the first attempt fail and the retry delay start.
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not return after cancellation")
	}
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !fake.closed {
		t.Fatal("scanner must close on cancellation")
	}
}

func TestScanUnknownType(t *testing.T) {
	m := NewManager(NewRegistry(), ManagerConfig{MaxRetries: 1, Timeout: time.Second})
	_, err := m.Scan(context.Background(), Request{ScannerType: "oracle"}, nil)
	if !errors.Is(err, ErrUnknownScanner) {
		t.Fatalf("err = %v, want ErrUnknownScanner", err)
	}
}

func TestScanAllIsolatesFailedSources(t *testing.T) {
	good := &fakeScanner{assets: []Asset{{Name: "users", Location: "public.users"}}}
	bad := &fakeScanner{connectErrs: []error{errors.New("bucket gone")}}
	r := NewRegistry()
	r.Register("postgres", CategoryDatabase, func(map[string]string) (Scanner, error) { return good, nil })
	r.Register("s3", CategoryCloud, func(map[string]string) (Scanner, error) { return bad, nil })
	m := NewManager(r, ManagerConfig{MaxRetries: 1, Timeout: time.Second, MaxConcurrent: 2})

	agg := m.ScanAll(context.Background(), []Request{
		{ScannerType: "postgres"},
		{ScannerType: "s3"},
	}, nil)

	if agg.Total() != 1 {
		t.Fatalf("total = %d, want 1", agg.Total())
	}
	if len(agg.Errors) != 1 || agg.Errors[0].ScannerType != "s3" {
		t.Fatalf("errors = %+v, want one s3 failure", agg.Errors)
	}
	if agg.Totals[CategoryDatabase] != 1 {
		t.Fatalf("database bucket = %d, want 1", agg.Totals[CategoryDatabase])
	}
}

func TestScanAllBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	r := NewRegistry()
	r.Register("slow", CategoryFilesystem, func(map[string]string) (Scanner, error) {
		return &probeScanner{inFlight: &inFlight, peak: &peak}, nil
	})
	m := NewManager(r, ManagerConfig{MaxRetries: 1, Timeout: time.Second, MaxConcurrent: 2})

	reqs := make([]Request, 8)
	for i := range reqs {
		reqs[i] = Request{ScannerType: "slow"}
	}
	agg := m.ScanAll(context.Background(), reqs, nil)
	if len(agg.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", agg.Errors)
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", got)
	}
}

type probeScanner struct {
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (p *probeScanner) Connect(ctx context.Context) error {
	cur := p.inFlight.Add(1)
	for {
		old := p.peak.Load()
		if cur <= old || p.peak.CompareAndSwap(old, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	p.inFlight.Add(-1)
	return nil
}

func (p *probeScanner) Discover(ctx context.Context, opts DiscoverOptions) (Discovery, error) {
	return Discovery{}, nil
}

func (p *probeScanner) Metadata(ctx context.Context, name string) (map[string]string, error) {
	return nil, nil
}

func (p *probeScanner) Close() error { return nil }

func TestAggregateDeduplicatesAcrossSources(t *testing.T) {
	agg := NewAggregate()
	a := Asset{Name: "users", Location: "public.users", Category: CategoryDatabase}
	agg.Add("postgres", Discovery{Assets: []Asset{a}})
	agg.Add("postgres-replica", Discovery{Assets: []Asset{a}})
	if agg.Total() != 1 {
		t.Fatalf("total = %d, want 1 after duplicate add", agg.Total())
	}
	if agg.ByScanner["postgres"] != 1 || agg.ByScanner["postgres-replica"] != 0 {
		t.Fatalf("by_scanner = %+v", agg.ByScanner)
	}
}

func TestAggregateOrdersCategories(t *testing.T) {
	agg := NewAggregate()
	agg.Add("filesystem", Discovery{Assets: []Asset{{Name: "export.csv", Location: "/tmp/export.csv", Category: CategoryFilesystem}}})
	agg.Add("s3", Discovery{Assets: []Asset{{Name: "backup.json", Location: "s3://b/backup.json", Category: CategoryCloud}}})
	agg.Add("postgres", Discovery{Assets: []Asset{{Name: "users", Location: "public.users", Category: CategoryDatabase}}})

	got := agg.Assets()
	wantOrder := []Category{CategoryDatabase, CategoryCloud, CategoryFilesystem}
	for i, cat := range wantOrder {
		if got[i].Category != cat {
			t.Fatalf("assets[%d].Category = %s, want %s", i, got[i].Category, cat)
		}
	}
}

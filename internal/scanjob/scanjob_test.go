package scanjob

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"verisyntra.org/internal/flow"
	"verisyntra.org/internal/scan"
)

func TestLifecycleHappyPath(t *testing.T) {
	m := NewManager(Limits{})
	job := m.Create("tenant-a", []scan.Request{{ScannerType: "postgres"}})
	if job.State != StatePending || !strings.HasPrefix(job.ID, "scan_") {
		t.Fatalf("created job = %+v", job)
	}

	if err := m.Start(job.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.UpdateProgress(job.ID, 20, "connected")
	m.UpdateProgress(job.ID, 80, "discovered")

	agg := scan.NewAggregate()
	agg.Add("postgres", scan.Discovery{Assets: []scan.Asset{
		{Name: "khach_hang", Location: "public.khach_hang", Category: scan.CategoryDatabase},
	}})
	report := &flow.Report{Nodes: []flow.DataAssetNode{{Name: "khach_hang", Country: "VN"}}}
	if err := m.Complete(job.ID, agg, report); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, err := m.Get("tenant-a", job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateCompleted || got.Progress != 100 || len(got.Assets) != 1 {
		t.Fatalf("completed job = %+v", got)
	}
	if got.Flow == nil || len(got.Flow.Nodes) != 1 {
		t.Fatalf("data-flow report not attached: %+v", got.Flow)
	}
	if got.FinishedAt.IsZero() || got.Duration() < 0 {
		t.Fatalf("timing not recorded: %+v", got)
	}
}

func TestProgressMonotoneAndClamped(t *testing.T) {
	m := NewManager(Limits{})
	job := m.Create("t", nil)
	if err := m.Start(job.ID); err != nil {
		t.Fatal(err)
	}

	m.UpdateProgress(job.ID, 150, "x")
	got, _ := m.Get("t", job.ID)
	if got.Progress != 100 {
		t.Fatalf("progress = %d, want clamped to 100", got.Progress)
	}

	m.UpdateProgress(job.ID, 40, "stale")
	got, _ = m.Get("t", job.ID)
	if got.Progress != 100 {
		t.Fatalf("progress moved backwards to %d", got.Progress)
	}
	if got.Phase == "stale" {
		t.Fatal("stale update must not change phase")
	}
}

func TestCancelInvokesHookAndIsTerminal(t *testing.T) {
	m := NewManager(Limits{})
	job := m.Create("t", nil)
	if err := m.Start(job.ID); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.SetCancel(job.ID, cancel); err != nil {
		t.Fatal(err)
	}
	if err := m.Cancel(job.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatal("cancel hook not invoked")
	}

	got, _ := m.Get("t", job.ID)
	if got.State != StateCancelled {
		t.Fatalf("state = %s, want cancelled", got.State)
	}
	if err := m.Cancel(job.ID); !errors.Is(err, ErrBadState) {
		t.Fatalf("second cancel = %v, want ErrBadState", err)
	}
	if err := m.Complete(job.ID, scan.NewAggregate(), nil); !errors.Is(err, ErrBadState) {
		t.Fatalf("complete after cancel = %v, want ErrBadState", err)
	}
}

func TestRecordErrorCaps(t *testing.T) {
	m := NewManager(Limits{MaxErrors: 2, MaxErrorLen: 10})
	job := m.Create("t", nil)
	if err := m.Start(job.ID); err != nil {
		t.Fatal(err)
	}

	m.RecordError(job.ID, strings.Repeat("x", 50))
	m.RecordError(job.ID, "short")
	m.RecordError(job.ID, "dropped")

	got, _ := m.Get("t", job.ID)
	if len(got.Errors) != 2 {
		t.Fatalf("errors = %d, want capped at 2", len(got.Errors))
	}
	if len([]rune(got.Errors[0])) != 11 {
		t.Fatalf("first error not truncated: %q", got.Errors[0])
	}
}

// Truncation must land on a rune boundary so Vietnamese error text stays
// valid UTF-8.
func TestRecordErrorTruncatesOnRuneBoundary(t *testing.T) {
	m := NewManager(Limits{MaxErrorLen: 10})
	job := m.Create("t", nil)
	if err := m.Start(job.ID); err != nil {
		t.Fatal(err)
	}

	m.RecordError(job.ID, strings.Repeat("ề", 7)) // 3 bytes per rune

	got, _ := m.Get("t", job.ID)
	if len(got.Errors) != 1 {
		t.Fatalf("errors = %v", got.Errors)
	}
	if !utf8.ValidString(got.Errors[0]) {
		t.Fatalf("truncated error is not valid UTF-8: %q", got.Errors[0])
	}
	if got.Errors[0] != strings.Repeat("ề", 3)+"…" {
		t.Fatalf("truncated error = %q", got.Errors[0])
	}
}

func TestCompleteTruncatesAssets(t *testing.T) {
	m := NewManager(Limits{MaxAssets: 1})
	job := m.Create("t", nil)
	if err := m.Start(job.ID); err != nil {
		t.Fatal(err)
	}
	agg := scan.NewAggregate()
	agg.Add("fs", scan.Discovery{Assets: []scan.Asset{
		{Name: "a.csv", Location: "/a.csv", Category: scan.CategoryFilesystem},
		{Name: "b.csv", Location: "/b.csv", Category: scan.CategoryFilesystem},
	}})
	if err := m.Complete(job.ID, agg, nil); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Get("t", job.ID)
	if len(got.Assets) != 1 {
		t.Fatalf("assets = %d, want truncated to 1", len(got.Assets))
	}
}

func TestTenantIsolation(t *testing.T) {
	m := NewManager(Limits{})
	job := m.Create("tenant-a", nil)
	if _, err := m.Get("tenant-b", job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant get = %v, want ErrNotFound", err)
	}
	if err := m.Delete("tenant-b", job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant delete = %v, want ErrNotFound", err)
	}
	if _, err := m.Get("tenant-a", job.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
}

func TestSweepRemovesOnlyExpiredTerminal(t *testing.T) {
	m := NewManager(Limits{})
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	old := m.Create("t", nil)
	if err := m.Start(old.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.Fail(old.ID, errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	running := m.Create("t", nil)
	if err := m.Start(running.ID); err != nil {
		t.Fatal(err)
	}

	m.now = func() time.Time { return base.Add(48 * time.Hour) }
	if n := m.Sweep(24 * time.Hour); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, err := m.Get("t", old.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("terminal job should be gone")
	}
	if _, err := m.Get("t", running.ID); err != nil {
		t.Fatalf("running job must survive sweep: %v", err)
	}
}

func TestFailRecordsHint(t *testing.T) {
	m := NewManager(Limits{})
	job := m.Create("t", nil)
	if err := m.Start(job.ID); err != nil {
		t.Fatal(err)
	}
	if err := m.Fail(job.ID, errors.New("connection refused")); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Get("t", job.ID)
	if got.State != StateFailed || got.FailureHint != "connection refused" {
		t.Fatalf("failed job = %+v", got)
	}
}

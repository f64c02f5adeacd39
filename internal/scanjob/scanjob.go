// Package scanjob tracks asynchronous scan jobs: lifecycle state, monotone
// progress, capped error collection and retention-based cleanup. Jobs live in
// memory; results are a point-in-time discovery report, not a system of
// record.
package scanjob

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"verisyntra.org/internal/flow"
	"verisyntra.org/internal/ids"
	"verisyntra.org/internal/obs"
	"verisyntra.org/internal/scan"
)

var (
	ErrNotFound = errors.New("scanjob: job not found")
	ErrBadState = errors.New("scanjob: invalid state transition")
)

// State is the job lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Job is a snapshot of one scan job. Values returned by the manager are
// copies; mutating them does not affect the tracked job.
type Job struct {
	ID          string             `json:"id"`
	TenantID    string             `json:"tenant_id"`
	State       State              `json:"state"`
	Progress    int                `json:"progress"`
	Phase       string             `json:"phase,omitempty"`
	Requests    []scan.Request     `json:"requests"`
	Assets      []scan.Asset       `json:"assets,omitempty"`
	Flow        *flow.Report       `json:"data_flow,omitempty"`
	Stats       scan.FilterStats   `json:"filter_stats"`
	Errors      []string           `json:"errors,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   time.Time          `json:"started_at,omitzero"`
	FinishedAt  time.Time          `json:"finished_at,omitzero"`
	FailureHint string             `json:"failure_hint,omitempty"`
	SourceStats []scan.SourceError `json:"source_errors,omitempty"`
}

// Duration is the elapsed run time, live for running jobs.
func (j Job) Duration() time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	if j.FinishedAt.IsZero() {
		return time.Since(j.StartedAt)
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

type tracked struct {
	job    Job
	cancel context.CancelFunc
}

// Limits caps how much a single job may accumulate.
type Limits struct {
	MaxErrors   int
	MaxErrorLen int
	MaxAssets   int
}

// Manager tracks jobs under a single mutex. All methods are safe for
// concurrent use.
type Manager struct {
	mu     sync.Mutex
	jobs   map[string]*tracked
	limits Limits
	now    func() time.Time
}

// NewManager builds a job manager with the given accumulation limits.
func NewManager(limits Limits) *Manager {
	if limits.MaxErrors <= 0 {
		limits.MaxErrors = 50
	}
	if limits.MaxErrorLen <= 0 {
		limits.MaxErrorLen = 500
	}
	return &Manager{
		jobs:   make(map[string]*tracked),
		limits: limits,
		now:    time.Now,
	}
}

// Create registers a pending job and returns its snapshot.
func (m *Manager) Create(tenantID string, reqs []scan.Request) Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := Job{
		ID:        ids.NewScanJob(),
		TenantID:  tenantID,
		State:     StatePending,
		Requests:  reqs,
		CreatedAt: m.now().UTC(),
	}
	m.jobs[job.ID] = &tracked{job: job}
	return job
}

// SetCancel installs the cooperative cancel hook for a job. Cancel invokes it
// so a running scan stops promptly.
func (m *Manager) SetCancel(id string, cancel context.CancelFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	tr.cancel = cancel
	return nil
}

// Start transitions pending → running.
func (m *Manager) Start(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if tr.job.State != StatePending {
		return fmt.Errorf("%w: start from %s", ErrBadState, tr.job.State)
	}
	tr.job.State = StateRunning
	tr.job.StartedAt = m.now().UTC()
	return nil
}

// UpdateProgress records progress for a running job. Progress is clamped to
// [0,100] and never moves backwards; stale updates are dropped silently.
func (m *Manager) UpdateProgress(id string, percent int, phase string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.jobs[id]
	if !ok || tr.job.State != StateRunning {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent < tr.job.Progress {
		return
	}
	tr.job.Progress = percent
	if phase != "" {
		tr.job.Phase = phase
	}
}

// RecordError appends a non-fatal source error, truncated and capped.
func (m *Manager) RecordError(id string, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.jobs[id]
	if !ok || tr.job.State.Terminal() {
		return
	}
	if len(tr.job.Errors) >= m.limits.MaxErrors {
		return
	}
	if len(msg) > m.limits.MaxErrorLen {
		cut := m.limits.MaxErrorLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "…"
	}
	tr.job.Errors = append(tr.job.Errors, msg)
}

// Complete transitions running → completed with the aggregated result and
// the data-flow report derived from it. Progress is forced to 100; the asset
// list is truncated to the limit.
func (m *Manager) Complete(id string, agg *scan.Aggregate, report *flow.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if tr.job.State != StateRunning {
		return fmt.Errorf("%w: complete from %s", ErrBadState, tr.job.State)
	}
	assets := agg.Assets()
	if m.limits.MaxAssets > 0 && len(assets) > m.limits.MaxAssets {
		obs.Warn("scan job asset list truncated", map[string]any{
			"job_id": id,
			"total":  len(assets),
			"kept":   m.limits.MaxAssets,
		})
		assets = assets[:m.limits.MaxAssets]
	}
	tr.job.State = StateCompleted
	tr.job.Progress = 100
	tr.job.Phase = "completed"
	tr.job.Assets = assets
	tr.job.Flow = report
	tr.job.Stats = agg.Stats
	tr.job.SourceStats = agg.Errors
	tr.job.FinishedAt = m.now().UTC()
	return nil
}

// Fail transitions a non-terminal job to failed.
func (m *Manager) Fail(id string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if tr.job.State.Terminal() {
		return fmt.Errorf("%w: fail from %s", ErrBadState, tr.job.State)
	}
	tr.job.State = StateFailed
	tr.job.Phase = "failed"
	if cause != nil {
		tr.job.FailureHint = cause.Error()
	}
	tr.job.FinishedAt = m.now().UTC()
	return nil
}

// Cancel requests cooperative cancellation of a pending or running job and
// marks it cancelled. Cancelling a terminal job is a state error.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if tr.job.State.Terminal() {
		return fmt.Errorf("%w: cancel from %s", ErrBadState, tr.job.State)
	}
	if tr.cancel != nil {
		tr.cancel()
	}
	tr.job.State = StateCancelled
	tr.job.Phase = "cancelled"
	tr.job.FinishedAt = m.now().UTC()
	return nil
}

// Get returns a copy of the job. Jobs are tenant-scoped: a mismatched tenant
// sees not-found, never another tenant's job.
func (m *Manager) Get(tenantID, id string) (Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.jobs[id]
	if !ok || tr.job.TenantID != tenantID {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return cloneJob(tr.job), nil
}

// List returns the tenant's jobs, newest first.
func (m *Manager) List(tenantID string) []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Job
	for _, tr := range m.jobs {
		if tr.job.TenantID == tenantID {
			out = append(out, cloneJob(tr.job))
		}
	}
	// ULIDs sort lexicographically by creation time.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID > out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Delete removes a job. Running jobs are cancelled first.
func (m *Manager) Delete(tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.jobs[id]
	if !ok || tr.job.TenantID != tenantID {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !tr.job.State.Terminal() && tr.cancel != nil {
		tr.cancel()
	}
	delete(m.jobs, id)
	return nil
}

// Sweep removes terminal jobs older than the retention TTL and returns how
// many were dropped.
func (m *Manager) Sweep(retention time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-retention)
	removed := 0
	for id, tr := range m.jobs {
		if tr.job.State.Terminal() && tr.job.FinishedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps on the interval until the context is done.
func (m *Manager) RunSweeper(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(retention); n > 0 {
				obs.Info("scan jobs swept", map[string]any{"removed": n})
			}
		}
	}
}

func cloneJob(j Job) Job {
	out := j
	out.Requests = append([]scan.Request(nil), j.Requests...)
	out.Assets = append([]scan.Asset(nil), j.Assets...)
	out.Errors = append([]string(nil), j.Errors...)
	out.SourceStats = append([]scan.SourceError(nil), j.SourceStats...)
	return out
}

package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"verisyntra.org/internal/obs"
)

// Progress milestones for a single-source scan.
const (
	progressConnected  = 20
	progressDiscovered = 80
	progressDone       = 100
)

// ManagerConfig bounds retries, timeouts and fan-out.
type ManagerConfig struct {
	MaxRetries    int
	RetryDelay    time.Duration
	Timeout       time.Duration
	MaxConcurrent int
	MaxAssets     int
}

// Request describes one source to scan.
type Request struct {
	ScannerType string            `json:"scanner_type"`
	Config      map[string]string `json:"config"`
	Filter      *FilterConfig     `json:"filter,omitempty"`
}

// ProgressFunc receives per-scan progress. Safe to call from any worker; the
// manager never calls it after the scan function returns.
type ProgressFunc func(percent int, phase string)

// Manager orchestrates scanner lifecycles: connect with bounded retry, a
// global per-scan timeout, progress emission and a guaranteed close.
type Manager struct {
	registry *Registry
	cfg      ManagerConfig
}

// NewManager builds a Manager over a scanner registry.
func NewManager(registry *Registry, cfg ManagerConfig) *Manager {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Manager{registry: registry, cfg: cfg}
}

// Registry exposes the scanner registry for capability listing.
func (m *Manager) Registry() *Registry { return m.registry }

// Scan runs connect→discover→close for a single source. Cancellation is
// cooperative: once ctx is done no new retry starts, and close still runs.
func (m *Manager) Scan(ctx context.Context, req Request, progress ProgressFunc) (Discovery, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	scanner, category, err := m.registry.New(req.ScannerType, req.Config)
	if err != nil {
		return Discovery{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	// Close always runs, including on cancellation and timeout.
	defer func() {
		if cerr := scanner.Close(); cerr != nil {
			obs.Warn("scanner close failed", map[string]any{
				"scanner_type": req.ScannerType,
				"error":        cerr.Error(),
			})
		}
	}()

	if err := m.withRetry(ctx, "connect", func() error { return scanner.Connect(ctx) }); err != nil {
		return Discovery{}, err
	}
	progress(progressConnected, "connected")

	var discovery Discovery
	err = m.withRetry(ctx, "discover", func() error {
		var derr error
		discovery, derr = scanner.Discover(ctx, DiscoverOptions{
			Filter:    req.Filter,
			MaxAssets: m.cfg.MaxAssets,
		})
		return derr
	})
	if err != nil {
		return Discovery{}, err
	}
	progress(progressDiscovered, "discovered")

	for i := range discovery.Assets {
		discovery.Assets[i].Category = category
		discovery.Assets[i].ScannerType = req.ScannerType
	}
	progress(progressDone, "finalized")
	return discovery, nil
}

// ScanAll fans out over a bounded worker pool and aggregates results. Failed
// sources land in the aggregate's error list, never among the items.
func (m *Manager) ScanAll(ctx context.Context, reqs []Request, progress func(index int, percent int, phase string)) *Aggregate {
	agg := NewAggregate()
	if len(reqs) == 0 {
		return agg
	}

	sem := make(chan struct{}, m.cfg.MaxConcurrent)
	var wg sync.WaitGroup
	results := make([]Discovery, len(reqs))
	errs := make([]error, len(reqs))

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			var pf ProgressFunc
			if progress != nil {
				pf = func(pct int, phase string) { progress(i, pct, phase) }
			}
			results[i], errs[i] = m.Scan(ctx, req, pf)
		}(i, req)
	}
	wg.Wait()

	// Per-source order is preserved inside each category bucket.
	for i, req := range reqs {
		if errs[i] != nil {
			agg.AddError(req.ScannerType, errs[i])
			continue
		}
		agg.Add(req.ScannerType, results[i])
	}
	return agg
}

// withRetry retries transient failures up to the configured budget with a
// fixed delay. Context cancellation stops further attempts immediately.
func (m *Manager) withRetry(ctx context.Context, phase string, fn func() error) error {
	var last error
	for attempt := 1; attempt <= m.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scan %s cancelled: %w", phase, err)
		}
		last = fn()
		if last == nil {
			return nil
		}
		if !retryable(last) {
			return last
		}
		if attempt < m.cfg.MaxRetries {
			obs.Warn("scan phase retrying", map[string]any{
				"phase":   phase,
				"attempt": attempt,
				"error":   last.Error(),
			})
			select {
			case <-ctx.Done():
				return fmt.Errorf("scan %s cancelled: %w", phase, ctx.Err())
			case <-time.After(m.cfg.RetryDelay):
			}
		}
	}
	return fmt.Errorf("scan %s failed after %d attempts: %w", phase, m.cfg.MaxRetries, last)
}

func retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

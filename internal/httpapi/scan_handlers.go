package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"verisyntra.org/internal/flow"
	"verisyntra.org/internal/obs"
	"verisyntra.org/internal/scan"
	"verisyntra.org/internal/scanjob"
)

type scanStartRequest struct {
	Sources  []scan.Request `json:"sources"`
	Template string         `json:"template,omitempty"`
}

// ScanStart launches an asynchronous multi-source scan and answers 202 with
// the job id. A named template supplies the column filter for sources that
// carry none of their own.
func (a *API) ScanStart(w http.ResponseWriter, r *http.Request) {
	var req scanStartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if len(req.Sources) == 0 {
		badRequest(w, "at least one source is required")
		return
	}
	for _, src := range req.Sources {
		if _, ok := a.scans.Registry().Category(src.ScannerType); !ok {
			fail(w, scan.ErrUnknownScanner)
			return
		}
	}
	if req.Template != "" {
		tpl, ok := a.templates.Get(req.Template)
		if !ok {
			badRequest(w, "unknown filter template "+req.Template)
			return
		}
		for i := range req.Sources {
			if req.Sources[i].Filter == nil {
				filter := tpl.Filter
				req.Sources[i].Filter = &filter
			}
		}
	}

	tenantID := a.principalTenant(r)
	job := a.jobs.Create(tenantID, req.Sources)
	ctx, cancel := context.WithCancel(context.Background())
	if err := a.jobs.SetCancel(job.ID, cancel); err != nil {
		cancel()
		fail(w, err)
		return
	}
	go a.runScan(ctx, tenantID, job.ID, req.Sources)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":  job.ID,
		"state":   job.State,
		"sources": len(req.Sources),
	})
}

// runScan drives the scan to a terminal state in the background.
func (a *API) runScan(ctx context.Context, tenantID, jobID string, reqs []scan.Request) {
	defer func() {
		if r := recover(); r != nil {
			obs.Error("scan panicked", map[string]any{"job_id": jobID, "panic": r})
			_ = a.jobs.Fail(jobID, errors.New("internal scan failure"))
		}
	}()

	if err := a.jobs.Start(jobID); err != nil {
		// Cancelled before the goroutine got scheduled.
		return
	}

	var mu sync.Mutex
	perSource := make([]int, len(reqs))
	progress := func(index, percent int, phase string) {
		mu.Lock()
		perSource[index] = percent
		sum := 0
		for _, p := range perSource {
			sum += p
		}
		overall := sum / len(perSource)
		mu.Unlock()
		a.jobs.UpdateProgress(jobID, overall, phase)
		a.hub.Publish(scanEvent{
			JobID:    jobID,
			State:    scanjob.StateRunning,
			Progress: overall,
			Phase:    phase,
		})
	}

	agg := a.scans.ScanAll(ctx, reqs, progress)
	for _, e := range agg.Errors {
		a.jobs.RecordError(jobID, e.ScannerType+": "+e.Error)
	}
	failed := make(map[string]bool, len(agg.Errors))
	for _, e := range agg.Errors {
		failed[e.ScannerType] = true
	}
	for _, req := range reqs {
		status := "ok"
		if failed[req.ScannerType] {
			status = "error"
		}
		obs.ObserveScanFinished(req.ScannerType, status)
	}

	var err error
	if len(agg.Errors) == len(reqs) {
		err = a.jobs.Fail(jobID, errors.New("all sources failed"))
	} else {
		err = a.jobs.Complete(jobID, agg, a.flowReport(agg))
	}
	// A cancelled job is already terminal; that race is fine.
	if err != nil && !errors.Is(err, scanjob.ErrBadState) {
		obs.Error("scan job finalize failed", map[string]any{
			"job_id": jobID,
			"error":  err.Error(),
		})
	}
	if job, gerr := a.jobs.Get(tenantID, jobID); gerr == nil {
		a.hub.Publish(scanEvent{
			JobID:    jobID,
			State:    job.State,
			Progress: job.Progress,
			Phase:    job.Phase,
		})
	}
}

// ScanStatus returns the job snapshot.
func (a *API) ScanStatus(w http.ResponseWriter, r *http.Request) {
	job, err := a.jobs.Get(a.principalTenant(r), r.PathValue("job_id"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ScanCancel cancels a pending or running job; an already terminal job is
// removed instead.
func (a *API) ScanCancel(w http.ResponseWriter, r *http.Request) {
	tenantID := a.principalTenant(r)
	id := r.PathValue("job_id")
	job, err := a.jobs.Get(tenantID, id)
	if err != nil {
		fail(w, err)
		return
	}
	if job.State.Terminal() {
		if err := a.jobs.Delete(tenantID, id); err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"job_id": id, "deleted": true})
		return
	}
	if err := a.jobs.Cancel(id); err != nil {
		fail(w, err)
		return
	}
	job, err = a.jobs.Get(tenantID, id)
	if err != nil {
		fail(w, err)
		return
	}
	a.hub.Publish(scanEvent{
		JobID:    job.ID,
		State:    job.State,
		Progress: job.Progress,
		Phase:    job.Phase,
	})
	writeJSON(w, http.StatusOK, job)
}

// FilterTemplates lists the column-filter catalogue.
func (a *API) FilterTemplates(w http.ResponseWriter, r *http.Request) {
	templates := a.templates.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"count":     len(templates),
	})
}

// flowReport derives the tenant's data-flow graph from the discovered
// assets: one node per asset with inferred region, country, category and the
// MPS-notification flag.
func (a *API) flowReport(agg *scan.Aggregate) *flow.Report {
	if a.inferencer == nil {
		return nil
	}
	assets := agg.Assets()
	sources := make([]flow.Source, 0, len(assets))
	for _, asset := range assets {
		sources = append(sources, flow.Source{
			Name:        asset.Name,
			Location:    asset.Location,
			Columns:     asset.Columns,
			RecordCount: asset.RecordCount,
		})
	}
	g, err := flow.Build(sources, a.inferencer)
	if err != nil {
		obs.Warn("data-flow graph build failed", map[string]any{"error": err.Error()})
		return nil
	}
	return g.Report()
}

func (a *API) principalTenant(r *http.Request) string {
	if p, ok := principalFrom(r.Context()); ok {
		return p.TenantID
	}
	return ""
}

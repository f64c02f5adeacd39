package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"verisyntra.org/internal/scanjob"
)

// scanEvent is one progress update pushed to subscribers.
type scanEvent struct {
	JobID    string        `json:"job_id"`
	State    scanjob.State `json:"state"`
	Progress int           `json:"progress"`
	Phase    string        `json:"phase,omitempty"`
}

// scanHub fans scan progress out to SSE subscribers. Slow subscribers drop
// events instead of blocking the scan.
type scanHub struct {
	mu   sync.Mutex
	subs map[chan scanEvent]struct{}
}

func newScanHub() *scanHub {
	return &scanHub{subs: make(map[chan scanEvent]struct{})}
}

// Subscribe registers a channel that closes when ctx ends.
func (h *scanHub) Subscribe(ctx context.Context) <-chan scanEvent {
	ch := make(chan scanEvent, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()
	return ch
}

// Publish delivers the event to every subscriber with room in its buffer.
func (h *scanHub) Publish(ev scanEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// ScanEvents streams one job's progress as Server-Sent Events until the job
// reaches a terminal state or the client disconnects.
func (a *API) ScanEvents(w http.ResponseWriter, r *http.Request) {
	tenantID := a.principalTenant(r)
	jobID := r.PathValue("job_id")
	job, err := a.jobs.Get(tenantID, jobID)
	if err != nil {
		fail(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal",
			"streaming unsupported", "Không hỗ trợ truyền sự kiện")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	ch := a.hub.Subscribe(ctx)

	send := func(ev scanEvent) bool {
		payload, err := json.Marshal(ev)
		if err != nil {
			return true
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			return false
		}
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
		return true
	}

	// Current snapshot first so late subscribers see the latest state.
	if !send(scanEvent{JobID: job.ID, State: job.State, Progress: job.Progress, Phase: job.Phase}) {
		return
	}
	if job.State.Terminal() {
		return
	}
	for ev := range ch {
		if ev.JobID != jobID {
			continue
		}
		if !send(ev) {
			return
		}
		if ev.State.Terminal() {
			return
		}
	}
}

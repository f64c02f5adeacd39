package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"verisyntra.org/internal/audit"
	"verisyntra.org/internal/ids"
	"verisyntra.org/internal/obs"
)

// Memory is the in-process Service used by tests and dev mode. Semantics
// mirror the postgres implementation, including soft delete.
type Memory struct {
	mu         sync.RWMutex
	activities map[string]ProcessingActivity
	now        func() time.Time
}

var _ Service = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		activities: make(map[string]ProcessingActivity),
		now:        time.Now,
	}
}

func (m *Memory) CreateActivity(ctx context.Context, a ProcessingActivity, actor Actor) (ProcessingActivity, error) {
	if err := a.Validate(); err != nil {
		return ProcessingActivity{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = ids.New()
	stampChildren(&a)
	if a.Status == "" {
		a.Status = StatusActive
	}
	now := m.now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	m.activities[a.ID] = a
	m.audit(ctx, a, actor, "activity.create")
	return a, nil
}

func (m *Memory) GetActivity(ctx context.Context, tenantID, id string) (ProcessingActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.activities[id]
	if !ok || a.TenantID != tenantID || a.Status == StatusDeleted {
		return ProcessingActivity{}, fmt.Errorf("%w: activity %s", ErrNotFound, id)
	}
	return a, nil
}

func (m *Memory) ListActivities(ctx context.Context, tenantID string, includeInactive bool) ([]ProcessingActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ProcessingActivity
	for _, a := range m.activities {
		if a.TenantID != tenantID || a.Status == StatusDeleted {
			continue
		}
		if a.Status == StatusInactive && !includeInactive {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateActivity(ctx context.Context, a ProcessingActivity, actor Actor) (ProcessingActivity, error) {
	if err := a.Validate(); err != nil {
		return ProcessingActivity{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.activities[a.ID]
	if !ok || cur.TenantID != a.TenantID || cur.Status == StatusDeleted {
		return ProcessingActivity{}, fmt.Errorf("%w: activity %s", ErrNotFound, a.ID)
	}
	if a.Status == "" || a.Status == StatusDeleted {
		a.Status = cur.Status
	}
	stampChildren(&a)
	a.CreatedAt = cur.CreatedAt
	a.UpdatedAt = m.now().UTC()
	m.activities[a.ID] = a
	m.audit(ctx, a, actor, "activity.update")
	return a, nil
}

func (m *Memory) DeleteActivity(ctx context.Context, tenantID, id string, actor Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok || a.TenantID != tenantID || a.Status == StatusDeleted {
		return fmt.Errorf("%w: activity %s", ErrNotFound, id)
	}
	a.Status = StatusDeleted
	a.UpdatedAt = m.now().UTC()
	m.activities[id] = a
	m.audit(ctx, a, actor, "activity.delete")
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) audit(ctx context.Context, a ProcessingActivity, actor Actor, action string) {
	_ = audit.LogEvent(ctx, audit.Entry{
		TenantID:   a.TenantID,
		Action:     action,
		EntityType: "processing_activity",
		EntityID:   a.ID,
		UserID:     actor.UserID,
		IPAddress:  actor.IPAddress,
		MessageVi:  "Thay đổi hoạt động xử lý dữ liệu",
	})
	obs.Info("store mutation", map[string]any{
		"action":    action,
		"tenant_id": a.TenantID,
		"entity_id": a.ID,
	})
}

// stampChildren assigns IDs to children missing one.
func stampChildren(a *ProcessingActivity) {
	for i := range a.Categories {
		if a.Categories[i].ID == "" {
			a.Categories[i].ID = ids.New()
		}
	}
	for i := range a.Subjects {
		if a.Subjects[i].ID == "" {
			a.Subjects[i].ID = ids.New()
		}
	}
	for i := range a.Recipients {
		if a.Recipients[i].ID == "" {
			a.Recipients[i].ID = ids.New()
		}
	}
	for i := range a.SecurityMeasures {
		if a.SecurityMeasures[i].ID == "" {
			a.SecurityMeasures[i].ID = ids.New()
		}
	}
	for i := range a.Locations {
		if a.Locations[i].ID == "" {
			a.Locations[i].ID = ids.New()
		}
	}
}

package ropa

import (
	"context"
	"time"

	"verisyntra.org/internal/flow"
	"verisyntra.org/internal/ids"
	"verisyntra.org/internal/obs"
	"verisyntra.org/internal/store"
)

// hcmLocation is the regulator's timezone for generation timestamps.
var hcmLocation = mustLoadLocation()

func mustLoadLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		// tzdata missing from the host; fixed offset is equivalent, Vietnam
		// has no DST.
		return time.FixedZone("ICT", 7*3600)
	}
	return loc
}

// Assembler builds documents from persisted activities.
type Assembler struct {
	store store.Service
	now   func() time.Time
}

// NewAssembler wires the assembler to a store.
func NewAssembler(s store.Service) *Assembler {
	return &Assembler{store: s, now: time.Now}
}

// Assemble composes the record for a tenant from its active activities. An
// empty tenant yields an empty document with entry_count 0, not an error.
func (a *Assembler) Assemble(ctx context.Context, tenantID string, profile TenantProfile) (Document, error) {
	activities, err := a.store.ListActivities(ctx, tenantID, false)
	if err != nil {
		return Document{}, err
	}
	doc := Document{
		ID:          ids.NewROPA(),
		TenantID:    tenantID,
		GeneratedAt: a.now().In(hcmLocation),
		Controller:  profile.Controller,
		DPO:         profile.DPO,
	}
	for _, act := range activities {
		entry := buildEntry(act)
		doc.Entries = append(doc.Entries, entry)
		if entry.HasSensitiveData {
			doc.HasSensitiveData = true
		}
		if entry.HasCrossBorder {
			doc.HasCrossBorder = true
		}
	}
	doc.EntryCount = len(doc.Entries)
	obs.Info("ropa assembled", map[string]any{
		"tenant_id":   tenantID,
		"document_id": doc.ID,
		"entry_count": doc.EntryCount,
	})
	return doc, nil
}

func buildEntry(act store.ProcessingActivity) Entry {
	entry := Entry{
		ActivityID:       act.ID,
		ActivityName:     act.Name,
		Purpose:          act.Purpose,
		LegalBasis:       act.LegalBasis,
		Categories:       act.Categories,
		Subjects:         act.Subjects,
		Recipients:       act.Recipients,
		Retention:        act.Retention,
		SecurityMeasures: act.SecurityMeasures,
		Locations:        act.Locations,
		CreatedAt:        act.CreatedAt,
		UpdatedAt:        act.UpdatedAt,
	}
	// Sensitive data counts whether the tenant ticked the flag or the
	// category names health, biometric or other Article 2.4 data.
	for _, c := range act.Categories {
		if c.Sensitive || flow.MatchesSensitiveVocab(append([]string{c.Name.Vi, c.Name.En}, c.Fields...)...) {
			entry.HasSensitiveData = true
			break
		}
	}
	for _, r := range act.Recipients {
		if r.Country != "" && r.Country != "VN" {
			entry.HasCrossBorder = true
			break
		}
	}
	return entry
}

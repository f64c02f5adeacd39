package ropa

import (
	"encoding/json"
	"os"

	"verisyntra.org/internal/i18n"
)

// writeJSON emits the full document, pretty-printed, with Vietnamese text
// untouched (no ASCII escaping).
func (e *Exporter) writeJSON(doc Document, path string, lang i18n.Language) error {
	return atomicWrite(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonDocument(doc, lang))
	})
}

// subjectRights lists the rights Decree 13 Article 9 grants every data
// subject; the export carries them with a contact point.
var subjectRights = []i18n.Text{
	i18n.T("Quyền được biết", "Right to be informed"),
	i18n.T("Quyền đồng ý", "Right to consent"),
	i18n.T("Quyền truy cập dữ liệu", "Right of access"),
	i18n.T("Quyền rút lại sự đồng ý", "Right to withdraw consent"),
	i18n.T("Quyền xóa dữ liệu", "Right to erasure"),
	i18n.T("Quyền hạn chế xử lý", "Right to restrict processing"),
	i18n.T("Quyền phản đối xử lý", "Right to object"),
	i18n.T("Quyền khiếu nại, tố cáo", "Right to complain"),
}

// jsonDocument shapes the export: a metadata block, then entries. The full
// bilingual values are preserved; lang picks the display strings.
func jsonDocument(doc Document, lang i18n.Language) map[string]any {
	entries := make([]map[string]any, 0, len(doc.Entries))
	for i, entry := range doc.Entries {
		entries = append(entries, map[string]any{
			"sequence":             i + 1,
			"activity_id":          entry.ActivityID,
			"activity_name":        entry.ActivityName,
			"purpose":              entry.Purpose,
			"legal_basis":          entry.LegalBasis,
			"data_categories":      entry.Categories,
			"data_subjects":        entry.Subjects,
			"data_recipients":      entry.Recipients,
			"cross_border":         crossBorderBlock(entry),
			"retention":            entry.Retention,
			"security_measures":    entry.SecurityMeasures,
			"processing_locations": entry.Locations,
			"data_subject_rights":  subjectRightsBlock(doc),
			"business_context":     businessContext(entry),
			"has_sensitive_data":   entry.HasSensitiveData,
			"has_cross_border":     entry.HasCrossBorder,
			"audit": map[string]any{
				"created_at": i18n.FormatDate(entry.CreatedAt, lang),
				"updated_at": i18n.FormatDate(entry.UpdatedAt, lang),
			},
		})
	}
	var dpo any
	if doc.DPO != nil {
		dpo = doc.DPO
	}
	return map[string]any{
		"metadata": map[string]any{
			"document_id":  doc.ID,
			"tenant_id":    doc.TenantID,
			"generated_at": doc.GeneratedAt,
			"language":     string(lang),
			"controller":   doc.Controller,
			"dpo":          dpo,
		},
		"entries": entries,
		"summary": map[string]any{
			"entry_count":        doc.EntryCount,
			"has_sensitive_data": doc.HasSensitiveData,
			"has_cross_border":   doc.HasCrossBorder,
			"mps_submission":     doc.MPS,
		},
	}
}

// crossBorderBlock is nil for purely domestic entries.
func crossBorderBlock(entry Entry) any {
	if !entry.HasCrossBorder {
		return nil
	}
	var countries []string
	var recipients []i18n.Text
	for _, r := range entry.Recipients {
		if r.Country == "" || r.Country == "VN" {
			continue
		}
		recipients = append(recipients, r.Name)
		if !contains(countries, r.Country) {
			countries = append(countries, r.Country)
		}
	}
	return map[string]any{
		"destination_countries": countries,
		"recipients":            recipients,
	}
}

func subjectRightsBlock(doc Document) map[string]any {
	contact := doc.Controller.Email
	if doc.DPO != nil && doc.DPO.Email != "" {
		contact = doc.DPO.Email
	}
	return map[string]any{
		"rights":        subjectRights,
		"contact_email": contact,
	}
}

func businessContext(entry Entry) map[string]any {
	var estimated int64
	children, vulnerable := false, false
	for _, s := range entry.Subjects {
		estimated += s.EstimatedCount
		children = children || s.ChildrenUnder16
		vulnerable = vulnerable || s.Vulnerable
	}
	return map[string]any{
		"estimated_data_subjects": estimated,
		"involves_children":       children,
		"vulnerable_subjects":     vulnerable,
	}
}

package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"verisyntra.org/internal/compliance"
	"verisyntra.org/internal/flow"
	"verisyntra.org/internal/i18n"
	"verisyntra.org/internal/obs"
	"verisyntra.org/internal/ropa"
	"verisyntra.org/internal/store"
)

type ropaGenerateRequest struct {
	Language   string            `json:"language,omitempty"`
	Formats    []string          `json:"formats,omitempty"`
	Controller ropa.Organization `json:"controller"`
	DPO        *ropa.Person      `json:"dpo,omitempty"`
}

// ROPAGenerate assembles the tenant's record of processing activities and
// exports it in each requested format. The readiness verdict rides along so
// callers see gaps before submitting anything.
func (a *API) ROPAGenerate(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	if !a.requireTenant(w, r, tenantID) {
		return
	}
	var req ropaGenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if len(req.Formats) == 0 {
		req.Formats = []string{string(ropa.FormatJSON)}
	}
	formats := make([]ropa.Format, 0, len(req.Formats))
	for _, raw := range req.Formats {
		format, err := ropa.ParseFormat(raw)
		if err != nil {
			fail(w, err)
			return
		}
		formats = append(formats, format)
	}
	lang := i18n.ParseLanguage(req.Language)

	profile := ropa.TenantProfile{Controller: req.Controller, DPO: req.DPO}
	doc, err := a.assembler.Assemble(r.Context(), tenantID, profile)
	if err != nil {
		fail(w, err)
		return
	}
	a.rememberProfile(tenantID, profile)

	readiness := compliance.CheckReadiness(doc)
	for _, format := range formats {
		if _, err := a.storage.Save(doc, format, lang, readiness.IsCompliant); err != nil {
			fail(w, err)
			return
		}
		obs.ObserveROPAExport(string(format))
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"ropa_id":      doc.ID,
		"tenant_id":    doc.TenantID,
		"generated_at": doc.GeneratedAt,
		"entry_count":  doc.EntryCount,
		"formats":      req.Formats,
		"language":     string(lang),
		"compliance":   readiness,
	})
}

// ROPAGet returns the document's sidecar metadata.
func (a *API) ROPAGet(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	if !a.requireTenant(w, r, tenantID) {
		return
	}
	meta, err := a.storage.Load(tenantID, r.PathValue("ropa_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found",
			"ropa document not found", "Không tìm thấy hồ sơ ROPA")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

var downloadContentTypes = map[ropa.Format]string{
	ropa.FormatJSON: "application/json; charset=utf-8",
	ropa.FormatCSV:  "text/csv; charset=utf-8",
	ropa.FormatPDF:  "application/pdf",
	ropa.FormatMPS:  "text/csv; charset=utf-8",
}

// ROPADownload streams one exported artefact.
func (a *API) ROPADownload(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	if !a.requireTenant(w, r, tenantID) {
		return
	}
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(ropa.FormatJSON)
	}
	format, err := ropa.ParseFormat(raw)
	if err != nil {
		fail(w, err)
		return
	}
	id := r.PathValue("ropa_id")
	path, err := a.storage.ArtifactPath(tenantID, id, format)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found",
			"artefact not found for format "+string(format), "Không tìm thấy tệp xuất")
		return
	}
	w.Header().Set("Content-Type", downloadContentTypes[format])
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+"."+format.Extension()+`"`)
	http.ServeFile(w, r, path)
}

// ROPAList pages the tenant's documents, newest first.
func (a *API) ROPAList(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	if !a.requireTenant(w, r, tenantID) {
		return
	}
	page := queryInt(r, "page", 1)
	size := queryInt(r, "page_size", 20)
	if page < 1 || size < 1 || size > 100 {
		badRequest(w, "page must be >= 1 and page_size between 1 and 100")
		return
	}
	docs, total, err := a.storage.List(tenantID, (page-1)*size, size)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}

// ROPADelete removes every artefact and the sidecar for a document.
func (a *API) ROPADelete(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	if !a.requireTenant(w, r, tenantID) {
		return
	}
	id := r.PathValue("ropa_id")
	if err := a.storage.Delete(tenantID, id); err != nil {
		writeError(w, http.StatusNotFound, "not_found",
			"ropa document not found", "Không tìm thấy hồ sơ ROPA")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ropa_id": id, "deleted": true})
}

// ROPAPreview assembles the current activities without persisting anything
// and reports submission readiness. The controller profile comes from the
// most recent generate call for the tenant.
func (a *API) ROPAPreview(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant_id")
	if !a.requireTenant(w, r, tenantID) {
		return
	}
	doc, err := a.assembler.Assemble(r.Context(), tenantID, a.recallProfile(tenantID))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tenant_id":    tenantID,
		"entry_count":  doc.EntryCount,
		"compliance":   compliance.CheckReadiness(doc),
		"cross_border": a.transferChecks(doc),
	})
}

type transferCheck struct {
	ActivityID string                    `json:"activity_id"`
	Recipient  i18n.Text                 `json:"recipient"`
	Country    string                    `json:"country"`
	Result     compliance.TransferResult `json:"result"`
}

// transferChecks runs the cross-border validator against every foreign
// recipient. Encryption is inferred from the entry's technical measures.
func (a *API) transferChecks(doc ropa.Document) []transferCheck {
	checks := []transferCheck{}
	for _, entry := range doc.Entries {
		encrypted := hasEncryptionMeasure(entry.SecurityMeasures)
		category := flow.CategoryBasic
		if entry.HasSensitiveData {
			category = flow.CategorySensitive
		}
		for _, rec := range entry.Recipients {
			if rec.Country == "" || rec.Country == "VN" {
				continue
			}
			result := compliance.CheckTransfer(compliance.Transfer{
				SourceCountry: "VN",
				TargetCountry: rec.Country,
				Mechanism:     rec.TransferMechanism,
				Encrypted:     encrypted,
				Category:      category,
			}, a.thresholds)
			checks = append(checks, transferCheck{
				ActivityID: entry.ActivityID,
				Recipient:  rec.Name,
				Country:    rec.Country,
				Result:     result,
			})
		}
	}
	return checks
}

func hasEncryptionMeasure(measures []store.SecurityMeasure) bool {
	for _, m := range measures {
		name := strings.ToLower(m.Name.Vi + " " + m.Name.En)
		if strings.Contains(name, "mã hóa") || strings.Contains(name, "encrypt") {
			return true
		}
	}
	return false
}

func (a *API) rememberProfile(tenantID string, p ropa.TenantProfile) {
	a.profileMu.Lock()
	defer a.profileMu.Unlock()
	a.profiles[tenantID] = p
}

func (a *API) recallProfile(tenantID string) ropa.TenantProfile {
	a.profileMu.Lock()
	defer a.profileMu.Unlock()
	return a.profiles[tenantID]
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}

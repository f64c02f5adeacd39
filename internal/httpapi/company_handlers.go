package httpapi

import (
	"net/http"
	"strings"

	"verisyntra.org/internal/registry"
)

// CompanyAdd inserts a company into the registry. Admin only.
func (a *API) CompanyAdd(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}
	var c registry.Company
	if err := decodeJSON(w, r, &c); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := a.registry.Add(c); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"added":    c.Name,
		"industry": c.Industry,
		"region":   c.Region,
	})
}

// CompanyRemove deletes a company identified by name, industry and region.
// Admin only.
func (a *API) CompanyRemove(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	industry := strings.TrimSpace(q.Get("industry"))
	region := strings.TrimSpace(q.Get("region"))
	if name == "" || industry == "" || region == "" {
		badRequest(w, "name, industry and region are required")
		return
	}
	if err := a.registry.Remove(name, industry, region); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": name})
}

// CompanySearch matches companies by name or alias, diacritic-insensitively.
func (a *API) CompanySearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		badRequest(w, "query is required")
		return
	}
	matches := a.registry.Search(query)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":     query,
		"companies": matches,
		"count":     len(matches),
	})
}

// CompanyList returns all companies in one industry.
func (a *API) CompanyList(w http.ResponseWriter, r *http.Request) {
	industry := r.PathValue("industry")
	companies, err := a.registry.ListByIndustry(industry)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"industry":  industry,
		"companies": companies,
		"count":     len(companies),
	})
}

// CompanyStats summarizes the registry by industry and region.
func (a *API) CompanyStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.registry.Stats())
}

// CompanyReload re-reads the snapshot file from disk. Admin only.
func (a *API) CompanyReload(w http.ResponseWriter, r *http.Request) {
	if !a.requireAdmin(w, r) {
		return
	}
	if err := a.registry.Reload(); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.registry.Stats())
}

// CompanyExport streams the canonical snapshot as a download.
func (a *API) CompanyExport(w http.ResponseWriter, r *http.Request) {
	data, err := a.registry.Export()
	if err != nil {
		fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="companies.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

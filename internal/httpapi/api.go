// Package httpapi exposes the service over HTTP: company registry
// administration, classification, normalization, scan orchestration, ROPA
// generation and token issuance. All error responses use a bilingual
// envelope.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"verisyntra.org/internal/auth"
	"verisyntra.org/internal/classify"
	"verisyntra.org/internal/compliance"
	"verisyntra.org/internal/flow"
	"verisyntra.org/internal/normalize"
	"verisyntra.org/internal/obs"
	"verisyntra.org/internal/registry"
	"verisyntra.org/internal/ropa"
	"verisyntra.org/internal/scan"
	"verisyntra.org/internal/scanjob"
	"verisyntra.org/internal/store"
)

// Options carries the collaborators the API dispatches to.
type Options struct {
	Registry   *registry.Registry
	Normalizer *normalize.Normalizer
	Gateway    *classify.Gateway
	Scans      *scan.Manager
	Jobs       *scanjob.Manager
	Templates  *scan.TemplateCatalogue
	Store      store.Service
	Assembler  *ropa.Assembler
	Storage    *ropa.Storage
	Tokens     *auth.TokenService
	Blacklist  *auth.Blacklist
	Users      *auth.Directory
	Inferencer *flow.Inferencer
	Thresholds compliance.Thresholds
	Version    string
}

// API routes requests to the domain services.
type API struct {
	mux *http.ServeMux

	registry   *registry.Registry
	normalizer *normalize.Normalizer
	gateway    *classify.Gateway
	scans      *scan.Manager
	jobs       *scanjob.Manager
	templates  *scan.TemplateCatalogue
	store      store.Service
	assembler  *ropa.Assembler
	storage    *ropa.Storage
	tokens     *auth.TokenService
	blacklist  *auth.Blacklist
	users      *auth.Directory
	inferencer *flow.Inferencer
	thresholds compliance.Thresholds
	version    string

	hub *scanHub

	// Last tenant profile seen by a generate call, reused by preview.
	profileMu sync.Mutex
	profiles  map[string]ropa.TenantProfile
}

// New wires the routes.
func New(opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		registry:   opts.Registry,
		normalizer: opts.Normalizer,
		gateway:    opts.Gateway,
		scans:      opts.Scans,
		jobs:       opts.Jobs,
		templates:  opts.Templates,
		store:      opts.Store,
		assembler:  opts.Assembler,
		storage:    opts.Storage,
		tokens:     opts.Tokens,
		blacklist:  opts.Blacklist,
		users:      opts.Users,
		inferencer: opts.Inferencer,
		thresholds: opts.Thresholds,
		version:    opts.Version,
		hub:        newScanHub(),
		profiles:   make(map[string]ropa.TenantProfile),
	}

	m := a.mux
	m.HandleFunc("GET /health", a.Health)
	m.Handle("GET /metrics", obs.Handler())

	m.HandleFunc("POST /v1/auth/token", a.IssueToken)
	m.HandleFunc("POST /v1/auth/refresh", a.RefreshToken)
	m.HandleFunc("POST /v1/auth/revoke", a.RevokeToken)

	m.HandleFunc("POST /admin/companies/add", a.CompanyAdd)
	m.HandleFunc("DELETE /admin/companies/remove", a.CompanyRemove)
	m.HandleFunc("GET /admin/companies/search", a.CompanySearch)
	m.HandleFunc("GET /admin/companies/list/{industry}", a.CompanyList)
	m.HandleFunc("GET /admin/companies/stats", a.CompanyStats)
	m.HandleFunc("POST /admin/companies/reload", a.CompanyReload)
	m.HandleFunc("GET /admin/companies/export", a.CompanyExport)

	m.HandleFunc("POST /classify", a.Classify)
	m.HandleFunc("POST /classify/legal_basis", a.classifyFixed(classify.ModelLegalBasis))
	m.HandleFunc("POST /classify/breach_triage", a.classifyFixed(classify.ModelBreachTriage))
	m.HandleFunc("POST /classify/cross_border", a.classifyFixed(classify.ModelCrossBorder))
	m.HandleFunc("POST /normalize", a.Normalize)
	m.HandleFunc("GET /model-status", a.ModelStatus)
	m.HandleFunc("POST /preload-model", a.PreloadModel)

	m.HandleFunc("POST /scan", a.ScanStart)
	m.HandleFunc("GET /scans/{job_id}", a.ScanStatus)
	m.HandleFunc("GET /scan-events/{job_id}", a.ScanEvents)
	m.HandleFunc("DELETE /scans/{job_id}", a.ScanCancel)
	m.HandleFunc("GET /filter-templates", a.FilterTemplates)

	m.HandleFunc("POST /{tenant_id}/ropa/generate", a.ROPAGenerate)
	m.HandleFunc("GET /{tenant_id}/ropa/list", a.ROPAList)
	m.HandleFunc("GET /{tenant_id}/ropa/preview", a.ROPAPreview)
	m.HandleFunc("GET /{tenant_id}/ropa/{ropa_id}", a.ROPAGet)
	m.HandleFunc("GET /{tenant_id}/ropa/{ropa_id}/download", a.ROPADownload)
	m.HandleFunc("DELETE /{tenant_id}/ropa/{ropa_id}", a.ROPADelete)

	return a
}

// Handler wraps the mux in the middleware chain. Order matters: metrics see
// the final status, auth runs before any handler, limits run outermost.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = obs.Instrument(h)
	h = a.withAuth(h)
	h = SecurityHeaders(h)
	h = MaxBodyBytes(h, 1<<20)
	h = Logging(h)
	return h
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "invalid_input",
		"method not allowed", "Phương thức không được hỗ trợ")
}

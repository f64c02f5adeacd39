package ropa

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"verisyntra.org/internal/i18n"
)

// Metadata is the sidecar persisted next to every generated artefact set.
// file_size_bytes is keyed by format since one document accumulates several
// artefacts.
type Metadata struct {
	ROPAID           string           `json:"ropa_id"`
	TenantID         string           `json:"tenant_id"`
	Formats          []string         `json:"format"`
	Language         i18n.Language    `json:"language"`
	GeneratedAt      time.Time        `json:"generated_at"`
	FileSizes        map[string]int64 `json:"file_size_bytes"`
	EntryCount       int              `json:"entry_count"`
	MPSCompliant     bool             `json:"mps_compliant"`
	HasSensitiveData bool             `json:"has_sensitive_data"`
	HasCrossBorder   bool             `json:"has_cross_border_transfers"`
	MPS              MPSSubmission    `json:"mps_submission"`
}

// Storage lays documents out as <root>/<tenant>/<id>.<ext> with an
// <id>.metadata.json sidecar per document.
type Storage struct {
	root     string
	exporter *Exporter
}

// NewStorage builds document storage under root.
func NewStorage(root string, exporter *Exporter) *Storage {
	return &Storage{root: root, exporter: exporter}
}

func (s *Storage) tenantDir(tenantID string) string {
	return filepath.Join(s.root, tenantID)
}

// Save exports the document in the requested format and records the sidecar.
// Repeated saves of the same document in other formats accumulate in the
// sidecar's format list and size map. mpsCompliant is the readiness verdict
// the caller computed for the document.
func (s *Storage) Save(doc Document, format Format, lang i18n.Language, mpsCompliant bool) (string, error) {
	dir := s.tenantDir(doc.TenantID)
	path, err := s.exporter.Export(doc, dir, format, lang)
	if err != nil {
		return "", err
	}

	meta, err := s.Load(doc.TenantID, doc.ID)
	if err != nil {
		meta = Metadata{
			ROPAID:           doc.ID,
			TenantID:         doc.TenantID,
			GeneratedAt:      doc.GeneratedAt,
			EntryCount:       doc.EntryCount,
			Language:         lang,
			HasSensitiveData: doc.HasSensitiveData,
			HasCrossBorder:   doc.HasCrossBorder,
			MPS:              doc.MPS,
		}
	}
	meta.MPSCompliant = mpsCompliant
	if meta.FileSizes == nil {
		meta.FileSizes = make(map[string]int64)
	}
	if fi, err := os.Stat(path); err == nil {
		meta.FileSizes[string(format)] = fi.Size()
	}
	if !contains(meta.Formats, string(format)) {
		meta.Formats = append(meta.Formats, string(format))
		sort.Strings(meta.Formats)
	}
	if err := s.writeMetadata(meta); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads a document's sidecar, tenant-scoped.
func (s *Storage) Load(tenantID, id string) (Metadata, error) {
	raw, err := os.ReadFile(s.sidecarPath(tenantID, id))
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: metadata for %s", ErrUnavailable, id)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: corrupt metadata for %s: %v", ErrUnavailable, id, err)
	}
	return meta, nil
}

// ArtifactPath resolves the stored file for a format, erroring when that
// variant was never generated.
func (s *Storage) ArtifactPath(tenantID, id string, format Format) (string, error) {
	ext, ok := extensions[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	path := filepath.Join(s.tenantDir(tenantID), id+"."+ext)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: artefact %s.%s", ErrUnavailable, id, ext)
	}
	return path, nil
}

// Delete removes every format variant and the sidecar.
func (s *Storage) Delete(tenantID, id string) error {
	dir := s.tenantDir(tenantID)
	matches, err := filepath.Glob(filepath.Join(dir, id+".*"))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("%w: document %s", ErrUnavailable, id)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove %s: %v", ErrUnavailable, m, err)
		}
	}
	return nil
}

// List pages a tenant's documents, newest first, by sidecar generation time.
func (s *Storage) List(tenantID string, offset, limit int) ([]Metadata, int, error) {
	entries, err := os.ReadDir(s.tenantDir(tenantID))
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var metas []Metadata
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".metadata.json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".metadata.json")
		meta, err := s.Load(tenantID, id)
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].GeneratedAt.After(metas[j].GeneratedAt) })
	total := len(metas)
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return metas[offset:end], total, nil
}

func (s *Storage) sidecarPath(tenantID, id string) string {
	return filepath.Join(s.tenantDir(tenantID), id+".metadata.json")
}

func (s *Storage) writeMetadata(meta Metadata) error {
	path := s.sidecarPath(meta.TenantID, meta.ROPAID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return atomicWrite(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

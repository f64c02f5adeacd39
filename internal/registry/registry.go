// Package registry keeps the process-wide set of Vietnamese company names and
// aliases used to make classifier input company-agnostic. Reads go through an
// atomically swapped snapshot; writers are serialized and persist to a JSON
// file before the swap, so readers never observe partial state.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"verisyntra.org/internal/vntext"
)

var (
	ErrNotFound     = errors.New("registry: company not found")
	ErrConflict     = errors.New("registry: company already exists")
	ErrInvalidInput = errors.New("registry: invalid input")
	ErrUnavailable  = errors.New("registry: snapshot store unavailable")
)

// Industries is the closed vocabulary for the industry tag.
var Industries = []string{
	"ecommerce", "fintech", "banking", "telecom", "retail",
	"logistics", "healthcare", "education", "technology",
	"manufacturing", "real_estate", "other",
}

// Regions is the closed vocabulary for the Vietnamese region tag.
var Regions = []string{"north", "central", "south"}

// Company is one registry record. Name is canonical and unique within
// (industry, region); aliases are matched case- and diacritic-insensitively.
type Company struct {
	Name     string            `json:"name"`
	Aliases  []string          `json:"aliases,omitempty"`
	Industry string            `json:"industry"`
	Region   string            `json:"region"`
	Metadata map[string]string `json:"metadata,omitempty"`
	AddedAt  time.Time         `json:"added_at"`
}

// Entry is one matchable surface form (canonical name or alias) pointing back
// to its canonical company name. The normalizer consumes these.
type Entry struct {
	Surface   string
	Canonical string
}

// Snapshot is an immutable view of the registry.
type Snapshot struct {
	companies []Company
	entries   []Entry
	updatedAt time.Time
}

// Companies returns a copy of all companies in the snapshot.
func (s *Snapshot) Companies() []Company {
	out := make([]Company, len(s.companies))
	copy(out, s.companies)
	return out
}

// Entries returns every surface form with its canonical name.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// UpdatedAt reports when the snapshot content last changed.
func (s *Snapshot) UpdatedAt() time.Time { return s.updatedAt }

// Stats summarizes the registry for the admin surface.
type Stats struct {
	Total      int            `json:"total"`
	ByIndustry map[string]int `json:"by_industry"`
	ByRegion   map[string]int `json:"by_region"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Registry is the mutable, hot-reloadable company set.
type Registry struct {
	path string

	mu   sync.Mutex // serializes writers; readers go through snap
	snap atomic.Pointer[Snapshot]
}

type snapshotFile struct {
	UpdatedAt time.Time `json:"updated_at"`
	Companies []Company `json:"companies"`
}

// Open loads the registry from its snapshot file. A missing file yields an
// empty registry; a corrupt file is an error.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path}
	file, err := readSnapshotFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.snap.Store(buildSnapshot(nil, time.Time{}))
			return r, nil
		}
		return nil, err
	}
	snap, err := buildValidated(file.Companies, file.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.snap.Store(snap)
	return r, nil
}

// Snapshot returns the current immutable view.
func (r *Registry) Snapshot() *Snapshot { return r.snap.Load() }

// Add inserts a company. It fails with ErrInvalidInput on vocabulary
// violations, ErrConflict when any surface form collides within the same
// (industry, region), and ErrUnavailable when persisting fails.
func (r *Registry) Add(c Company) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !contains(Industries, c.Industry) {
		return fmt.Errorf("%w: unknown industry %q", ErrInvalidInput, c.Industry)
	}
	if !contains(Regions, c.Region) {
		return fmt.Errorf("%w: unknown region %q", ErrInvalidInput, c.Region)
	}
	for i, a := range c.Aliases {
		c.Aliases[i] = strings.TrimSpace(a)
		if c.Aliases[i] == "" {
			return fmt.Errorf("%w: empty alias", ErrInvalidInput)
		}
	}
	if c.AddedAt.IsZero() {
		c.AddedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	taken := surfaceKeys(cur.companies)
	for _, surface := range surfaces(c) {
		if _, ok := taken[scopedKey(c.Industry, c.Region, surface)]; ok {
			return fmt.Errorf("%w: %q in %s/%s", ErrConflict, surface, c.Industry, c.Region)
		}
	}

	next := append(cur.Companies(), c)
	return r.commit(next)
}

// Remove deletes a company by canonical name within (industry, region).
func (r *Registry) Remove(name, industry, region string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	key := vntext.Fold(strings.TrimSpace(name))
	next := make([]Company, 0, len(cur.companies))
	found := false
	for _, c := range cur.companies {
		if vntext.Fold(c.Name) == key && c.Industry == industry && c.Region == region {
			found = true
			continue
		}
		next = append(next, c)
	}
	if !found {
		return ErrNotFound
	}
	return r.commit(next)
}

// Search scans canonical names and aliases for a case- and
// diacritic-insensitive substring match. Linear scan; the registry holds
// hundreds to low thousands of entries.
func (r *Registry) Search(query string) []Company {
	q := vntext.Fold(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []Company
	for _, c := range r.snap.Load().companies {
		if strings.Contains(vntext.Fold(c.Name), q) {
			out = append(out, c)
			continue
		}
		for _, a := range c.Aliases {
			if strings.Contains(vntext.Fold(a), q) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// ListByIndustry returns companies with the given industry tag.
func (r *Registry) ListByIndustry(industry string) ([]Company, error) {
	if !contains(Industries, industry) {
		return nil, fmt.Errorf("%w: unknown industry %q", ErrInvalidInput, industry)
	}
	var out []Company
	for _, c := range r.snap.Load().companies {
		if c.Industry == industry {
			out = append(out, c)
		}
	}
	return out, nil
}

// Stats returns registry totals and breakdowns.
func (r *Registry) Stats() Stats {
	snap := r.snap.Load()
	st := Stats{
		Total:      len(snap.companies),
		ByIndustry: map[string]int{},
		ByRegion:   map[string]int{},
		UpdatedAt:  snap.updatedAt,
	}
	for _, c := range snap.companies {
		st.ByIndustry[c.Industry]++
		st.ByRegion[c.Region]++
	}
	return st
}

// Export serializes the current snapshot in the on-disk format.
func (r *Registry) Export() ([]byte, error) {
	snap := r.snap.Load()
	return json.MarshalIndent(snapshotFile{
		UpdatedAt: snap.updatedAt,
		Companies: snap.companies,
	}, "", "  ")
}

// Reload rebuilds the in-memory state from the snapshot file and swaps it in
// atomically. On any failure the previous snapshot stays in place.
func (r *Registry) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := readSnapshotFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.snap.Store(buildSnapshot(nil, time.Time{}))
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	snap, err := buildValidated(file.Companies, file.UpdatedAt)
	if err != nil {
		return err
	}
	r.snap.Store(snap)
	return nil
}

// commit persists the company set and swaps the snapshot. Callers hold r.mu.
func (r *Registry) commit(companies []Company) error {
	now := time.Now().UTC()
	if err := writeSnapshotFile(r.path, snapshotFile{UpdatedAt: now, Companies: companies}); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.snap.Store(buildSnapshot(companies, now))
	return nil
}

func buildValidated(companies []Company, updatedAt time.Time) (*Snapshot, error) {
	taken := map[string]string{}
	for _, c := range companies {
		if !contains(Industries, c.Industry) {
			return nil, fmt.Errorf("%w: unknown industry %q", ErrInvalidInput, c.Industry)
		}
		if !contains(Regions, c.Region) {
			return nil, fmt.Errorf("%w: unknown region %q", ErrInvalidInput, c.Region)
		}
		for _, surface := range surfaces(c) {
			key := scopedKey(c.Industry, c.Region, surface)
			if owner, ok := taken[key]; ok && owner != c.Name {
				return nil, fmt.Errorf("%w: %q claimed by %q and %q", ErrConflict, surface, owner, c.Name)
			}
			taken[key] = c.Name
		}
	}
	return buildSnapshot(companies, updatedAt), nil
}

func buildSnapshot(companies []Company, updatedAt time.Time) *Snapshot {
	entries := make([]Entry, 0, len(companies)*2)
	for _, c := range companies {
		entries = append(entries, Entry{Surface: c.Name, Canonical: c.Name})
		for _, a := range c.Aliases {
			entries = append(entries, Entry{Surface: a, Canonical: c.Name})
		}
	}
	// Longer surfaces first so "Shopee Vietnam" wins over "Shopee".
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Surface) > len(entries[j].Surface)
	})
	return &Snapshot{companies: companies, entries: entries, updatedAt: updatedAt}
}

func readSnapshotFile(path string) (snapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshotFile{}, err
	}
	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return snapshotFile{}, fmt.Errorf("decode registry snapshot: %w", err)
	}
	return file, nil
}

// writeSnapshotFile writes atomically: temp file in the same directory, fsync,
// rename. Readers of the file never see a partial snapshot.
func writeSnapshotFile(path string, file snapshotFile) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".companies-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func surfaces(c Company) []string {
	out := make([]string, 0, len(c.Aliases)+1)
	out = append(out, vntext.Fold(c.Name))
	for _, a := range c.Aliases {
		out = append(out, vntext.Fold(a))
	}
	return out
}

func surfaceKeys(companies []Company) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, c := range companies {
		for _, surface := range surfaces(c) {
			keys[scopedKey(c.Industry, c.Region, surface)] = struct{}{}
		}
	}
	return keys
}

func scopedKey(industry, region, foldedSurface string) string {
	return industry + "|" + region + "|" + foldedSurface
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

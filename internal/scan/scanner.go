// Package scan implements personal-data discovery across heterogeneous
// sources: the scanner contract and registry, column filtering, the retrying
// scan manager with bounded fan-out, and result aggregation.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownScanner = errors.New("scan: unknown scanner type")
	ErrInvalidConfig  = errors.New("scan: invalid scanner config")

	// ErrTransient marks failures worth retrying (connection refused,
	// timeouts). Scanners wrap such errors; everything else fails fast.
	ErrTransient = errors.New("scan: transient failure")
)

// Category groups scanner implementations by the kind of source they read.
type Category string

const (
	CategoryDatabase   Category = "database"
	CategoryCloud      Category = "cloud"
	CategoryFilesystem Category = "filesystem"
)

// Asset is one discovered data holding. Key() identifies it across sources
// for deduplication (table FQN, object key, file path).
type Asset struct {
	Name                string            `json:"name"`
	Location            string            `json:"location"`
	Category            Category          `json:"category"`
	ScannerType         string            `json:"scanner_type"`
	Columns             []string          `json:"columns,omitempty"`
	AllColumnsCount     int               `json:"all_columns_count"`
	ScannedColumnsCount int               `json:"scanned_columns_count"`
	ReductionPercentage float64           `json:"reduction_percentage"`
	RecordCount         int64             `json:"record_count,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// Key identifies the asset across sources.
func (a Asset) Key() string {
	return string(a.Category) + "|" + a.Location + "|" + a.Name
}

// DiscoverOptions parameterizes a discovery pass. Database scanners apply the
// column filter themselves; cloud and filesystem scanners receive the options
// unchanged and may ignore the filter.
type DiscoverOptions struct {
	Filter    *FilterConfig
	MaxAssets int
}

// Discovery is the result of one scanner pass.
type Discovery struct {
	Assets   []Asset           `json:"assets"`
	Count    int               `json:"count"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Stats    FilterStats       `json:"filter_stats"`
}

// Scanner is the uniform contract every source implementation satisfies. All
// names a scanner returns must be valid UTF-8.
type Scanner interface {
	Connect(ctx context.Context) error
	Discover(ctx context.Context, opts DiscoverOptions) (Discovery, error)
	Metadata(ctx context.Context, assetName string) (map[string]string, error)
	Close() error
}

// Factory constructs a scanner from its connection config.
type Factory func(config map[string]string) (Scanner, error)

type registration struct {
	category Category
	factory  Factory
}

// Registry maps scanner-type strings to factories. Construction is lazy: a
// factory runs only when a scan actually needs the implementation.
type Registry struct {
	mu    sync.RWMutex
	types map[string]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]registration)}
}

// Register adds or replaces a scanner type.
func (r *Registry) Register(typeName string, category Category, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typeName] = registration{category: category, factory: factory}
}

// New constructs a scanner for the type. Unknown types are invalid input.
func (r *Registry) New(typeName string, config map[string]string) (Scanner, Category, error) {
	r.mu.RLock()
	reg, ok := r.types[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownScanner, typeName)
	}
	s, err := reg.factory(config)
	if err != nil {
		return nil, "", err
	}
	return s, reg.category, nil
}

// Category reports the category for a registered type.
func (r *Registry) Category(typeName string) (Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.types[typeName]
	return reg.category, ok
}

// Types lists registered scanner types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	return out
}

// DefaultRegistry returns a registry with the built-in implementations.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("postgres", CategoryDatabase, NewPostgresScanner)
	r.Register("filesystem", CategoryFilesystem, NewFilesystemScanner)
	r.Register("s3", CategoryCloud, NewS3Scanner)
	return r
}

package scan

import (
	"regexp"
	"strings"

	"verisyntra.org/internal/obs"
)

// FilterMode selects the column filter semantics.
type FilterMode string

const (
	FilterAll     FilterMode = "all"
	FilterInclude FilterMode = "include"
	FilterExclude FilterMode = "exclude"
)

// FilterConfig is the wire shape of a column filter.
type FilterConfig struct {
	Mode          FilterMode `json:"mode" yaml:"mode"`
	Patterns      []string   `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	UseRegex      bool       `json:"use_regex,omitempty" yaml:"use_regex,omitempty"`
	CaseSensitive bool       `json:"case_sensitive,omitempty" yaml:"case_sensitive,omitempty"`
}

// FilterStats reports the effect of filtering on one table.
type FilterStats struct {
	ColumnsDiscovered   int     `json:"columns_discovered"`
	ColumnsRetained     int     `json:"columns_retained"`
	ColumnsFiltered     int     `json:"columns_filtered"`
	ReductionPercentage float64 `json:"reduction_percentage"`
}

// Merge accumulates stats across tables.
func (s *FilterStats) Merge(other FilterStats) {
	s.ColumnsDiscovered += other.ColumnsDiscovered
	s.ColumnsRetained += other.ColumnsRetained
	s.ColumnsFiltered += other.ColumnsFiltered
	if s.ColumnsDiscovered > 0 {
		s.ReductionPercentage = 100 * float64(s.ColumnsFiltered) / float64(s.ColumnsDiscovered)
	}
}

// ColumnFilter is a compiled filter. A regex pattern that fails to compile is
// logged and skipped; it never fails the scan.
type ColumnFilter struct {
	mode     FilterMode
	literals []string
	regexps  []*regexp.Regexp
	caseSens bool
}

// NewColumnFilter compiles a config. A nil config accepts everything.
func NewColumnFilter(cfg *FilterConfig) *ColumnFilter {
	if cfg == nil || cfg.Mode == "" || cfg.Mode == FilterAll {
		return &ColumnFilter{mode: FilterAll}
	}
	f := &ColumnFilter{mode: cfg.Mode, caseSens: cfg.CaseSensitive}
	for _, p := range cfg.Patterns {
		if p == "" {
			continue
		}
		if cfg.UseRegex {
			expr := p
			if !cfg.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				obs.Warn("column filter pattern skipped", map[string]any{
					"pattern": p,
					"error":   err.Error(),
				})
				continue
			}
			f.regexps = append(f.regexps, re)
			continue
		}
		if cfg.CaseSensitive {
			f.literals = append(f.literals, p)
		} else {
			f.literals = append(f.literals, strings.ToLower(p))
		}
	}
	return f
}

// Accept reports whether the column survives the filter.
func (f *ColumnFilter) Accept(column string) bool {
	switch f.mode {
	case FilterInclude:
		return f.matches(column)
	case FilterExclude:
		return !f.matches(column)
	default:
		return true
	}
}

// Apply filters a column set and returns the retained columns with stats.
func (f *ColumnFilter) Apply(columns []string) ([]string, FilterStats) {
	kept := make([]string, 0, len(columns))
	for _, c := range columns {
		if f.Accept(c) {
			kept = append(kept, c)
		}
	}
	stats := FilterStats{
		ColumnsDiscovered: len(columns),
		ColumnsRetained:   len(kept),
		ColumnsFiltered:   len(columns) - len(kept),
	}
	if stats.ColumnsDiscovered > 0 {
		stats.ReductionPercentage = 100 * float64(stats.ColumnsFiltered) / float64(stats.ColumnsDiscovered)
	}
	return kept, stats
}

func (f *ColumnFilter) matches(column string) bool {
	probe := column
	if !f.caseSens {
		probe = strings.ToLower(column)
	}
	for _, lit := range f.literals {
		if probe == lit || strings.Contains(probe, lit) {
			return true
		}
	}
	for _, re := range f.regexps {
		if re.MatchString(column) {
			return true
		}
	}
	return false
}

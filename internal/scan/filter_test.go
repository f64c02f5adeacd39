package scan

import (
	"math"
	"testing"
)

func TestFilterIncludeReduction(t *testing.T) {
	f := NewColumnFilter(&FilterConfig{
		Mode:     FilterInclude,
		Patterns: []string{"ho_ten", "email"},
	})
	columns := []string{"id", "ho_ten", "email", "created_at", "updated_at"}

	kept, stats := f.Apply(columns)
	if len(kept) != 2 || kept[0] != "ho_ten" || kept[1] != "email" {
		t.Fatalf("kept = %v, want [ho_ten email]", kept)
	}
	if stats.ColumnsDiscovered != 5 || stats.ColumnsRetained != 2 || stats.ColumnsFiltered != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	if math.Abs(stats.ReductionPercentage-60.0) > 1e-9 {
		t.Fatalf("reduction = %v, want 60.0", stats.ReductionPercentage)
	}
}

func TestFilterExcludeComplementsInclude(t *testing.T) {
	columns := []string{"id", "ho_ten", "email", "luong", "so_the", "created_at"}
	patterns := []string{"ho_ten", "email"}

	include := NewColumnFilter(&FilterConfig{Mode: FilterInclude, Patterns: patterns})
	exclude := NewColumnFilter(&FilterConfig{Mode: FilterExclude, Patterns: patterns})

	seen := map[string]int{}
	for _, c := range columns {
		if include.Accept(c) {
			seen[c]++
		}
		if exclude.Accept(c) {
			seen[c]++
		}
	}
	for _, c := range columns {
		if seen[c] != 1 {
			t.Fatalf("column %q accepted %d times across include+exclude, want exactly 1", c, seen[c])
		}
	}
}

func TestFilterCaseInsensitiveByDefault(t *testing.T) {
	f := NewColumnFilter(&FilterConfig{Mode: FilterInclude, Patterns: []string{"Email"}})
	if !f.Accept("CUSTOMER_EMAIL") {
		t.Fatal("case-insensitive substring should accept CUSTOMER_EMAIL")
	}
	strict := NewColumnFilter(&FilterConfig{Mode: FilterInclude, Patterns: []string{"Email"}, CaseSensitive: true})
	if strict.Accept("email") {
		t.Fatal("case-sensitive filter should reject lowercase email")
	}
}

func TestFilterRegex(t *testing.T) {
	f := NewColumnFilter(&FilterConfig{
		Mode:     FilterInclude,
		Patterns: []string{`^(ho_ten|email)$`},
		UseRegex: true,
	})
	if !f.Accept("ho_ten") || !f.Accept("EMAIL") {
		t.Fatal("anchored regex should accept exact names case-insensitively")
	}
	if f.Accept("customer_email") {
		t.Fatal("anchored regex should reject customer_email")
	}
}

func TestFilterBadRegexSkippedNotFatal(t *testing.T) {
	f := NewColumnFilter(&FilterConfig{
		Mode:     FilterInclude,
		Patterns: []string{`([unclosed`, "email"},
		UseRegex: true,
	})
	if !f.Accept("email") {
		t.Fatal("valid pattern should still work when a sibling fails to compile")
	}
	if f.Accept("ho_ten") {
		t.Fatal("broken pattern must not accept anything")
	}
}

func TestFilterNilConfigAcceptsAll(t *testing.T) {
	f := NewColumnFilter(nil)
	kept, stats := f.Apply([]string{"a", "b"})
	if len(kept) != 2 || stats.ColumnsFiltered != 0 || stats.ReductionPercentage != 0 {
		t.Fatalf("nil config should pass everything: kept=%v stats=%+v", kept, stats)
	}
}

func TestFilterStatsMerge(t *testing.T) {
	var total FilterStats
	total.Merge(FilterStats{ColumnsDiscovered: 5, ColumnsRetained: 2, ColumnsFiltered: 3})
	total.Merge(FilterStats{ColumnsDiscovered: 5, ColumnsRetained: 5, ColumnsFiltered: 0})
	if total.ColumnsDiscovered != 10 || total.ColumnsFiltered != 3 {
		t.Fatalf("merged = %+v", total)
	}
	if math.Abs(total.ReductionPercentage-30.0) > 1e-9 {
		t.Fatalf("merged reduction = %v, want 30.0", total.ReductionPercentage)
	}
}

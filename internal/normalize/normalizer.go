// Package normalize rewrites mentions of known companies (and optionally
// person names and locations) to fixed tokens before classification. One
// model trained on tokenized text then serves every tenant.
package normalize

import (
	"strings"
	"sync"

	"verisyntra.org/internal/registry"
	"verisyntra.org/internal/vntext"
)

const (
	CompanyToken  = "[COMPANY]"
	PersonToken   = "[PERSON]"
	LocationToken = "[LOCATION]"
)

// Options selects which normalizers run.
type Options struct {
	Companies bool
	Persons   bool
	Locations bool
}

// Result is the normalized text plus the registry entries that matched, kept
// for explainability in API responses.
type Result struct {
	Text      string
	Companies []string
}

// Normalizer matches registry surfaces diacritics- and case-insensitively,
// longest surface first, respecting word boundaries. It captures the registry
// by reference: a registry reload is picked up on the next call.
type Normalizer struct {
	reg *registry.Registry

	mu       sync.Mutex
	snap     *registry.Snapshot
	compiled []pattern
}

type pattern struct {
	folded    []rune
	canonical string
	token     string
}

// New returns a Normalizer bound to the registry.
func New(reg *registry.Registry) *Normalizer {
	return &Normalizer{reg: reg}
}

// Companies rewrites every company mention to [COMPANY].
func (n *Normalizer) Companies(text string) Result {
	return n.Normalize(text, Options{Companies: true})
}

// Normalize applies the selected normalizers. Company matching uses the
// current registry snapshot; person and location matching use the built-in
// lexicons.
func (n *Normalizer) Normalize(text string, opts Options) Result {
	patterns := make([]pattern, 0, 64)
	if opts.Companies {
		patterns = append(patterns, n.companyPatterns()...)
	}
	if opts.Persons {
		patterns = append(patterns, lexiconPatterns(personLexicon, PersonToken)...)
	}
	if opts.Locations {
		patterns = append(patterns, lexiconPatterns(locationLexicon, LocationToken)...)
	}
	if len(patterns) == 0 {
		return Result{Text: text}
	}
	// Longest-first across all sources so "Shopee Vietnam" beats "Shopee".
	sortPatterns(patterns)
	return replaceAll(text, patterns)
}

// companyPatterns compiles the current snapshot, reusing the compiled set
// while the snapshot pointer is unchanged.
func (n *Normalizer) companyPatterns() []pattern {
	snap := n.reg.Snapshot()

	n.mu.Lock()
	defer n.mu.Unlock()
	if snap == n.snap {
		return n.compiled
	}
	entries := snap.Entries()
	compiled := make([]pattern, 0, len(entries))
	for _, e := range entries {
		folded := []rune(vntext.Fold(e.Surface))
		if len(folded) == 0 {
			continue
		}
		compiled = append(compiled, pattern{folded: folded, canonical: e.Canonical, token: CompanyToken})
	}
	n.snap = snap
	n.compiled = compiled
	return compiled
}

func lexiconPatterns(lexicon []string, token string) []pattern {
	out := make([]pattern, 0, len(lexicon))
	for _, s := range lexicon {
		out = append(out, pattern{folded: []rune(vntext.Fold(s)), canonical: s, token: token})
	}
	return out
}

func sortPatterns(ps []pattern) {
	// Insertion sort by descending length; pattern sets are small and mostly
	// pre-sorted from the snapshot.
	for i := 1; i < len(ps); i++ {
		for j := i; j > 0 && len(ps[j].folded) > len(ps[j-1].folded); j-- {
			ps[j], ps[j-1] = ps[j-1], ps[j]
		}
	}
}

// foldedView maps each folded rune back to the byte span of the original rune
// that produced it, so replacements splice the original string precisely.
type foldedView struct {
	runes []rune
	start []int // byte offset of originating rune
	end   []int // byte offset one past originating rune
}

func foldText(text string) foldedView {
	var v foldedView
	for i, r := range text {
		next := i + len(string(r))
		for _, fr := range vntext.Fold(string(r)) {
			v.runes = append(v.runes, fr)
			v.start = append(v.start, i)
			v.end = append(v.end, next)
		}
	}
	return v
}

func replaceAll(text string, patterns []pattern) Result {
	view := foldText(text)
	var b strings.Builder
	var matched []string
	seen := map[string]struct{}{}

	written := 0 // byte offset into text already emitted
	i := 0
	for i < len(view.runes) {
		p, ok := matchAt(view, patterns, i)
		if !ok {
			i++
			continue
		}
		from := view.start[i]
		to := view.end[i+len(p.folded)-1]
		b.WriteString(text[written:from])
		b.WriteString(p.token)
		written = to
		if _, dup := seen[p.canonical]; !dup && p.token == CompanyToken {
			seen[p.canonical] = struct{}{}
			matched = append(matched, p.canonical)
		}
		i += len(p.folded)
	}
	if written == 0 {
		return Result{Text: text, Companies: matched}
	}
	b.WriteString(text[written:])
	return Result{Text: b.String(), Companies: matched}
}

// matchAt returns the longest pattern matching at folded position i with
// word-like boundaries on both sides.
func matchAt(view foldedView, patterns []pattern, i int) (pattern, bool) {
	for _, p := range patterns {
		end := i + len(p.folded)
		if end > len(view.runes) {
			continue
		}
		match := true
		for k, pr := range p.folded {
			if view.runes[i+k] != pr {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		if i > 0 && vntext.IsWordRune(view.runes[i-1]) && vntext.IsWordRune(p.folded[0]) {
			continue
		}
		if end < len(view.runes) && vntext.IsWordRune(view.runes[end]) && vntext.IsWordRune(p.folded[len(p.folded)-1]) {
			continue
		}
		return p, true
	}
	return pattern{}, false
}

// Package i18n models the bilingual field shape used throughout the
// regulator-facing data model: Vietnamese is authoritative, English optional.
package i18n

import (
	"strings"
	"time"
)

// Language selects the output language for user-facing text.
type Language string

const (
	Vietnamese Language = "vi"
	English    Language = "en"
)

// ParseLanguage maps a request value to a supported language, defaulting to
// Vietnamese.
func ParseLanguage(raw string) Language {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "en", "english":
		return English
	default:
		return Vietnamese
	}
}

// Text is a bilingual value. Vi is required on regulator-facing fields; En is
// optional. Never auto-translate: a missing side falls back to the other.
type Text struct {
	Vi string `json:"vi"`
	En string `json:"en,omitempty"`
}

// T builds a Text from both sides.
func T(vi, en string) Text { return Text{Vi: vi, En: en} }

// In returns the value in the requested language, falling back to the other
// side when the requested one is empty.
func (t Text) In(lang Language) string {
	if lang == English {
		if t.En != "" {
			return t.En
		}
		return t.Vi
	}
	if t.Vi != "" {
		return t.Vi
	}
	return t.En
}

// IsZero reports whether both sides are empty.
func (t Text) IsZero() bool { return t.Vi == "" && t.En == "" }

// FormatDate renders a date in the conventional format for the language:
// dd/mm/yyyy for Vietnamese, yyyy-mm-dd for English.
func FormatDate(ts time.Time, lang Language) string {
	if ts.IsZero() {
		return ""
	}
	if lang == English {
		return ts.Format("2006-01-02")
	}
	return ts.Format("02/01/2006")
}

// YesNo renders a boolean for regulator documents.
func YesNo(v bool, lang Language) string {
	if lang == English {
		if v {
			return "Yes"
		}
		return "No"
	}
	if v {
		return "Có"
	}
	return "Không"
}

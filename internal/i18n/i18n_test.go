package i18n

import (
	"testing"
	"time"
)

func TestTextFallback(t *testing.T) {
	both := T("Giao hàng", "Delivery")
	if both.In(Vietnamese) != "Giao hàng" || both.In(English) != "Delivery" {
		t.Fatalf("both sides: %+v", both)
	}

	viOnly := T("Giao hàng", "")
	if viOnly.In(English) != "Giao hàng" {
		t.Fatal("missing English must fall back to Vietnamese")
	}
	enOnly := T("", "Delivery")
	if enOnly.In(Vietnamese) != "Delivery" {
		t.Fatal("missing Vietnamese must fall back to English")
	}
	if !T("", "").IsZero() || viOnly.IsZero() {
		t.Fatal("IsZero")
	}
}

func TestParseLanguageDefaultsToVietnamese(t *testing.T) {
	for raw, want := range map[string]Language{
		"vi":      Vietnamese,
		"en":      English,
		"English": English,
		"":        Vietnamese,
		"fr":      Vietnamese,
	} {
		if got := ParseLanguage(raw); got != want {
			t.Errorf("ParseLanguage(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestFormatDatePerLanguage(t *testing.T) {
	ts := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	if got := FormatDate(ts, Vietnamese); got != "09/03/2025" {
		t.Fatalf("vi date = %q", got)
	}
	if got := FormatDate(ts, English); got != "2025-03-09" {
		t.Fatalf("en date = %q", got)
	}
	if FormatDate(time.Time{}, Vietnamese) != "" {
		t.Fatal("zero time must render empty")
	}
}

func TestYesNo(t *testing.T) {
	if YesNo(true, Vietnamese) != "Có" || YesNo(false, Vietnamese) != "Không" {
		t.Fatal("vietnamese yes/no")
	}
	if YesNo(true, English) != "Yes" || YesNo(false, English) != "No" {
		t.Fatal("english yes/no")
	}
}

package vntext

import "testing"

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Việt Nam":          "viet nam",
		"VIỆT NAM":          "viet nam",
		"Đà Nẵng":           "da nang",
		"Công ty TNHH ABC":  "cong ty tnhh abc",
		"Shopee VN":         "shopee vn",
		"already-folded 09": "already-folded 09",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Fatalf("Fold(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestFoldIdempotent(t *testing.T) {
	for _, s := range []string{"Tiếng Việt", "Hà Nội", "Thành phố Hồ Chí Minh"} {
		once := Fold(s)
		if twice := Fold(once); twice != once {
			t.Fatalf("fold not idempotent: %q -> %q -> %q", s, once, twice)
		}
	}
}

package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                  "/",
		"/metrics":                          "/metrics",
		"/scans/01J8X2M0YQK3":               "/scans/:id",
		"/scans/abc?x=1":                    "/scans/:id",
		"/acme/ropa/generate":               "/:tenant/ropa/generate",
		"/acme/ropa/01J8X2M0YQK3":           "/:tenant/ropa/:id",
		"/acme/ropa/01J8X2M0YQK3/download":  "/:tenant/ropa/:id/download",
		"/acme/ropa/list":                   "/:tenant/ropa/list",
		"/admin/companies/stats":            "/admin/companies/stats",
		"/admin/companies/list/fintech":     "/admin/companies/list/:industry",
		"/classify":                         "/classify",
		"/admin/companies/search?query=abc": "/admin/companies/search",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

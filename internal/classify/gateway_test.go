package classify

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"verisyntra.org/internal/normalize"
	"verisyntra.org/internal/registry"
)

func testGateway(t *testing.T) (*Gateway, *registry.Registry) {
	t.Helper()
	reg, err := registry.Open(filepath.Join(t.TempDir(), "companies.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := reg.Add(registry.Company{
		Name:     "Shopee Vietnam",
		Aliases:  []string{"Shopee VN", "Shopee Việt Nam"},
		Industry: "ecommerce",
		Region:   "south",
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return NewGateway(normalize.New(reg), nil), reg
}

func TestClassifyLegalBasisContract(t *testing.T) {
	g, _ := testGateway(t)

	res, err := g.Classify("Shopee VN thu thap email dua tren hop dong mua ban voi khách hàng", ModelLegalBasis)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !strings.HasPrefix(res.NormalizedText, normalize.CompanyToken) {
		t.Fatalf("normalized text = %q", res.NormalizedText)
	}
	if len(res.DetectedCompanies) != 1 || res.DetectedCompanies[0] != "Shopee Vietnam" {
		t.Fatalf("detected companies = %v", res.DetectedCompanies)
	}
	if res.CategoryName != "Contract Performance" || res.CategoryID != 1 {
		t.Fatalf("prediction = %s (%d)", res.CategoryName, res.CategoryID)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Fatalf("confidence out of range: %f", res.Confidence)
	}
}

// Predictions must not depend on which registered company is mentioned.
func TestClassifyStableUnderCompanySubstitution(t *testing.T) {
	g, reg := testGateway(t)
	if err := reg.Add(registry.Company{Name: "Tiki", Industry: "ecommerce", Region: "south"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	template := "%s thu thập số điện thoại để thực hiện hợp đồng với khách hàng"
	var baseline *Result
	for _, company := range []string{"Shopee Vietnam", "Shopee VN", "Tiki"} {
		text := strings.Replace(template, "%s", company, 1)
		res, err := g.Classify(text, ModelLegalBasis)
		if err != nil {
			t.Fatalf("Classify(%s): %v", company, err)
		}
		if baseline == nil {
			b := res
			baseline = &b
			continue
		}
		if res.CategoryID != baseline.CategoryID || res.CategoryName != baseline.CategoryName {
			t.Fatalf("prediction changed for %s: %s vs %s", company, res.CategoryName, baseline.CategoryName)
		}
		if math.Abs(res.Confidence-baseline.Confidence) > 1e-9 {
			t.Fatalf("confidence drifted for %s: %f vs %f", company, res.Confidence, baseline.Confidence)
		}
	}
}

func TestUnknownModelType(t *testing.T) {
	g, _ := testGateway(t)
	if _, err := g.Classify("text", ModelType("sentiment")); !errors.Is(err, ErrInvalidModelType) {
		t.Fatalf("expected ErrInvalidModelType, got %v", err)
	}
	if err := g.Preload(ModelType("sentiment")); !errors.Is(err, ErrInvalidModelType) {
		t.Fatalf("expected ErrInvalidModelType, got %v", err)
	}
}

func TestLoaderFailureIsUnavailableAndRetried(t *testing.T) {
	reg, err := registry.Open(filepath.Join(t.TempDir(), "companies.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	calls := 0
	loader := func(mt ModelType) (Model, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("weights missing")
		}
		return KeywordLoader(mt)
	}
	g := NewGateway(normalize.New(reg), loader)

	if _, err := g.Classify("text", ModelLegalBasis); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := g.Classify("hop dong", ModelLegalBasis); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	// Third call hits the cached model.
	if _, err := g.Classify("hop dong", ModelLegalBasis); err != nil || calls != 2 {
		t.Fatalf("load not idempotent: calls=%d err=%v", calls, err)
	}
}

func TestStatusReportsCatalogue(t *testing.T) {
	g, _ := testGateway(t)
	if err := g.Preload(ModelLegalBasis); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	statuses := g.Status()
	if len(statuses) != len(KnownModelTypes()) {
		t.Fatalf("expected full catalogue, got %d", len(statuses))
	}
	var loaded int
	for _, st := range statuses {
		if st.Loaded {
			loaded++
			if st.ModelType != ModelLegalBasis || st.LoadedAt == nil {
				t.Fatalf("unexpected loaded entry: %+v", st)
			}
		}
	}
	if loaded != 1 {
		t.Fatalf("expected exactly one loaded model, got %d", loaded)
	}
}

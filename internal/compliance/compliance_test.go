package compliance

import (
	"strings"
	"testing"

	"verisyntra.org/internal/flow"
	"verisyntra.org/internal/i18n"
	"verisyntra.org/internal/ropa"
	"verisyntra.org/internal/store"
)

func compliantDocument() ropa.Document {
	return ropa.Document{
		ID:       "ropa_test",
		TenantID: "abc",
		Controller: ropa.Organization{
			Name:  i18n.T("Công ty TNHH ABC", "ABC Co., Ltd"),
			TaxID: "0123456789",
		},
		DPO: &ropa.Person{Name: "Nguyễn Văn An"},
		Entries: []ropa.Entry{{
			ActivityID:   "act-1",
			ActivityName: i18n.T("Giao hàng", "Delivery"),
			Purpose:      i18n.T("Giao hàng", "Delivery"),
			LegalBasis:   "contract",
			Categories: []store.DataCategory{{
				Name:   i18n.T("Thông tin cá nhân", "Personal info"),
				Fields: []string{"Họ và tên", "Email"},
			}},
			Retention:        &store.DataRetention{Period: i18n.T("5 năm", "5 years")},
			SecurityMeasures: []store.SecurityMeasure{{Type: "technical", Name: i18n.T("Mã hóa", "Encryption")}},
		}},
		EntryCount: 1,
	}
}

func TestReadinessCompliant(t *testing.T) {
	res := CheckReadiness(compliantDocument())
	if !res.IsCompliant || res.Status != StatusCompliant {
		t.Fatalf("result = %+v, want compliant", res)
	}
	if len(res.MissingFields) != 0 {
		t.Fatalf("missing fields = %+v", res.MissingFields)
	}
}

// Removing any one mandatory field must flip is_compliant.
func TestReadinessMandatoryFieldRemovalFlips(t *testing.T) {
	mutations := map[string]func(*ropa.Document){
		"controller name": func(d *ropa.Document) { d.Controller.Name.Vi = "" },
		"tax id":          func(d *ropa.Document) { d.Controller.TaxID = "" },
		"activity name":   func(d *ropa.Document) { d.Entries[0].ActivityName.Vi = "" },
		"purpose":         func(d *ropa.Document) { d.Entries[0].Purpose.Vi = "" },
		"legal basis":     func(d *ropa.Document) { d.Entries[0].LegalBasis = "" },
		"categories":      func(d *ropa.Document) { d.Entries[0].Categories = nil },
		"retention":       func(d *ropa.Document) { d.Entries[0].Retention = nil },
	}
	for name, mutate := range mutations {
		doc := compliantDocument()
		mutate(&doc)
		res := CheckReadiness(doc)
		if res.IsCompliant || res.Status != StatusNonCompliant {
			t.Fatalf("%s removed but still %s", name, res.Status)
		}
		if len(res.MissingFields) == 0 {
			t.Fatalf("%s removed but no missing field reported", name)
		}
		if res.MissingFields[0].Message.Vi == "" || res.MissingFields[0].Message.En == "" {
			t.Fatalf("%s finding not bilingual: %+v", name, res.MissingFields[0])
		}
	}
}

func TestReadinessForeignRecipientNeedsMechanism(t *testing.T) {
	doc := compliantDocument()
	doc.Entries[0].Recipients = []store.DataRecipient{{
		Name:    i18n.T("Đối tác", "Partner"),
		Type:    store.RecipientForeignEntity,
		Country: "US",
	}}
	res := CheckReadiness(doc)
	if res.IsCompliant {
		t.Fatal("foreign recipient without mechanism must not be compliant")
	}
	found := false
	for _, f := range res.MissingFields {
		if strings.Contains(f.Field, "transfer_mechanism") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing fields = %+v, want transfer_mechanism", res.MissingFields)
	}
}

// A document with every mandatory field present stays compliant even when
// warnings are raised; the warnings ride along under requires_review.
func TestReadinessWarningsOnlyRequiresReview(t *testing.T) {
	doc := compliantDocument()
	doc.DPO = nil
	res := CheckReadiness(doc)
	if !res.IsCompliant || res.Status != StatusRequiresReview {
		t.Fatalf("result = %+v, want compliant with requires_review", res)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("missing DPO must be reported as a warning")
	}
}

func TestTransferDomesticPasses(t *testing.T) {
	res := CheckTransfer(Transfer{SourceCountry: "VN", TargetCountry: "VN"}, Thresholds{})
	if !res.IsCompliant || res.Status != StatusCompliant || len(res.Issues) != 0 {
		t.Fatalf("domestic transfer = %+v", res)
	}
}

func TestTransferOutsideVietnamInapplicable(t *testing.T) {
	res := CheckTransfer(Transfer{SourceCountry: "US", TargetCountry: "SG"}, Thresholds{})
	if !res.IsCompliant || res.Status != StatusInapplicable {
		t.Fatalf("foreign-to-foreign transfer = %+v", res)
	}
}

func TestTransferNonCompliantVNToUS(t *testing.T) {
	res := CheckTransfer(Transfer{
		SourceCountry: "VN",
		TargetCountry: "US",
		Encrypted:     false,
	}, Thresholds{Category1: 10_000, Category2: 1_000})
	if res.IsCompliant || res.Status != StatusNonCompliant {
		t.Fatalf("result = %+v, want non_compliant", res)
	}
	var mechanism, encryption bool
	for _, issue := range res.Issues {
		switch issue.Field {
		case "transfer_mechanism":
			mechanism = true
		case "encryption":
			encryption = true
		}
	}
	if !mechanism || !encryption {
		t.Fatalf("issues = %+v, want both mechanism and encryption findings", res.Issues)
	}
}

func TestTransferMechanismSetClosed(t *testing.T) {
	base := Transfer{
		SourceCountry: "VN", TargetCountry: "SG",
		Encrypted: true, Protocol: "HTTPS",
	}
	base.Mechanism = "handshake_agreement"
	if res := CheckTransfer(base, Thresholds{}); res.IsCompliant {
		t.Fatal("unknown mechanism must not be compliant")
	}
	base.Mechanism = "standard_contractual_clauses"
	if res := CheckTransfer(base, Thresholds{}); !res.IsCompliant {
		t.Fatalf("SCC transfer = %+v", res)
	}
}

func TestTransferInsecureProtocol(t *testing.T) {
	res := CheckTransfer(Transfer{
		SourceCountry: "VN", TargetCountry: "SG",
		Mechanism: "explicit_consent", Encrypted: true, Protocol: "FTP",
	}, Thresholds{})
	if res.IsCompliant {
		t.Fatal("FTP must not be accepted")
	}
	res = CheckTransfer(Transfer{
		SourceCountry: "VN", TargetCountry: "SG",
		Mechanism: "explicit_consent", Encrypted: true, Protocol: "sftp",
	}, Thresholds{})
	if !res.IsCompliant {
		t.Fatalf("sftp (any case) should pass: %+v", res)
	}
}

func TestTransferVolumeThresholds(t *testing.T) {
	limits := Thresholds{Category1: 10_000, Category2: 1_000}
	ok := Transfer{
		SourceCountry: "VN", TargetCountry: "SG",
		Mechanism: "explicit_consent", Encrypted: true, Protocol: "TLS",
	}

	ok.Category = flow.CategoryBasic
	ok.Volume = 9_999
	if res := CheckTransfer(ok, limits); res.RequiresMPSNotification {
		t.Fatal("below threshold must not require notification")
	}
	ok.Volume = 10_000
	res := CheckTransfer(ok, limits)
	if !res.RequiresMPSNotification || res.Status != StatusPendingMPSApproval {
		t.Fatalf("at threshold = %+v, want pending_mps_approval", res)
	}

	ok.Category = flow.CategorySensitive
	ok.Volume = 1_000
	res = CheckTransfer(ok, limits)
	if !res.RequiresMPSNotification || res.Status != StatusPendingMPSApproval {
		t.Fatalf("sensitive at threshold = %+v", res)
	}
}

package flow

import (
	"strings"

	"verisyntra.org/internal/vntext"
)

// Purpose is a processing-purpose tag.
type Purpose string

const (
	PurposeCustomerService   Purpose = "customer_service"
	PurposeMarketing         Purpose = "marketing"
	PurposeAnalytics         Purpose = "analytics"
	PurposeFraudPrevention   Purpose = "fraud_prevention"
	PurposeLegalCompliance   Purpose = "legal_compliance"
	PurposeHRManagement      Purpose = "hr_management"
	PurposeServiceDelivery   Purpose = "service_delivery"
	PurposeResearch          Purpose = "research"
	PurposeThirdPartySharing Purpose = "third_party_sharing"
	PurposeUnknown           Purpose = "unknown"
)

// purposeKeywords maps each purpose to folded Vietnamese and English cues.
var purposeKeywords = map[Purpose][]string{
	PurposeCustomerService: {
		"cham soc khach hang", "ho tro khach hang", "customer service",
		"customer support", "helpdesk", "tong dai",
	},
	PurposeMarketing: {
		"marketing", "quang cao", "khuyen mai", "tiep thi", "campaign",
		"newsletter", "email marketing",
	},
	PurposeAnalytics: {
		"phan tich", "thong ke", "analytics", "bao cao", "report",
		"dashboard", "metric",
	},
	PurposeFraudPrevention: {
		"gian lan", "phong chong gian lan", "fraud", "rui ro", "risk",
		"anti-fraud", "chong rua tien", "aml",
	},
	PurposeLegalCompliance: {
		"tuan thu", "phap ly", "compliance", "legal", "quy dinh",
		"kiem toan", "audit", "thue", "tax",
	},
	PurposeHRManagement: {
		"nhan su", "tuyen dung", "luong", "hr", "payroll", "recruitment",
		"cham cong",
	},
	PurposeServiceDelivery: {
		"cung cap dich vu", "giao hang", "van chuyen", "delivery",
		"shipping", "don hang", "order fulfillment", "thanh toan",
		"payment",
	},
	PurposeResearch: {
		"nghien cuu", "khao sat", "research", "survey", "thu nghiem",
		"experiment",
	},
	PurposeThirdPartySharing: {
		"chia se", "ben thu ba", "doi tac", "third party", "partner",
		"sharing", "cung cap cho",
	},
}

// ClassifyPurpose scores a free-form description against each purpose's
// keywords and returns the best match with confidence min(1, 0.3·matches).
// An empty or unmatched description yields PurposeUnknown with zero
// confidence.
func ClassifyPurpose(description string) (Purpose, float64) {
	folded := vntext.Fold(description)
	if strings.TrimSpace(folded) == "" {
		return PurposeUnknown, 0
	}
	best := PurposeUnknown
	bestMatches := 0
	for _, p := range purposeOrder {
		matches := 0
		for _, kw := range purposeKeywords[p] {
			if strings.Contains(folded, kw) {
				matches++
			}
		}
		if matches > bestMatches {
			best = p
			bestMatches = matches
		}
	}
	if bestMatches == 0 {
		return PurposeUnknown, 0
	}
	confidence := 0.3 * float64(bestMatches)
	if confidence > 1 {
		confidence = 1
	}
	return best, confidence
}

// purposeOrder fixes iteration order so ties resolve deterministically.
var purposeOrder = []Purpose{
	PurposeCustomerService,
	PurposeMarketing,
	PurposeAnalytics,
	PurposeFraudPrevention,
	PurposeLegalCompliance,
	PurposeHRManagement,
	PurposeServiceDelivery,
	PurposeResearch,
	PurposeThirdPartySharing,
}

// BasisRecommendation is the legal-basis suggestion for an edge.
type BasisRecommendation struct {
	Primary      string   `json:"primary"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// basisTable keys on purpose and whether the flowing data is sensitive. The
// first basis is primary; the rest are viable alternatives.
var basisTable = map[Purpose]struct {
	normal    []string
	sensitive []string
}{
	PurposeCustomerService: {
		normal:    []string{"contract", "legitimate_interest"},
		sensitive: []string{"consent"},
	},
	PurposeMarketing: {
		normal:    []string{"consent", "legitimate_interest"},
		sensitive: []string{"consent"},
	},
	PurposeAnalytics: {
		normal:    []string{"legitimate_interest", "consent"},
		sensitive: []string{"consent"},
	},
	PurposeFraudPrevention: {
		normal:    []string{"legitimate_interest", "legal_obligation"},
		sensitive: []string{"legal_obligation", "consent"},
	},
	PurposeLegalCompliance: {
		normal:    []string{"legal_obligation"},
		sensitive: []string{"legal_obligation"},
	},
	PurposeHRManagement: {
		normal:    []string{"contract", "legal_obligation"},
		sensitive: []string{"legal_obligation", "consent"},
	},
	PurposeServiceDelivery: {
		normal:    []string{"contract"},
		sensitive: []string{"contract", "consent"},
	},
	PurposeResearch: {
		normal:    []string{"consent", "public_task"},
		sensitive: []string{"consent"},
	},
	PurposeThirdPartySharing: {
		normal:    []string{"consent", "contract"},
		sensitive: []string{"consent"},
	},
}

// RecommendLegalBasis resolves the decision table. Unknown purposes default
// to consent, the safest basis under the decree.
func RecommendLegalBasis(purpose Purpose, sensitive bool) BasisRecommendation {
	row, ok := basisTable[purpose]
	if !ok {
		return BasisRecommendation{Primary: "consent"}
	}
	bases := row.normal
	if sensitive {
		bases = row.sensitive
	}
	rec := BasisRecommendation{Primary: bases[0]}
	if len(bases) > 1 {
		rec.Alternatives = bases[1:]
	}
	return rec
}

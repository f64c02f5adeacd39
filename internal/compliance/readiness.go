// Package compliance validates regulator-facing artefacts: ROPA completeness
// for MPS submission and cross-border transfer legality under PDPL 2025 and
// Decree 13/2023/ND-CP.
package compliance

import (
	"fmt"

	"verisyntra.org/internal/i18n"
	"verisyntra.org/internal/ropa"
)

// Status summarizes a validation outcome.
type Status string

const (
	StatusCompliant      Status = "compliant"
	StatusRequiresReview Status = "requires_review"
	StatusNonCompliant   Status = "non_compliant"
)

// Finding is one bilingual issue or recommendation.
type Finding struct {
	Field   string    `json:"field,omitempty"`
	Message i18n.Text `json:"message"`
}

// ReadinessResult reports whether a document can go to the MPS as-is.
type ReadinessResult struct {
	IsCompliant     bool      `json:"is_compliant"`
	Status          Status    `json:"status"`
	MissingFields   []Finding `json:"missing_fields,omitempty"`
	Warnings        []Finding `json:"warnings,omitempty"`
	Recommendations []Finding `json:"recommendations,omitempty"`
}

// CheckReadiness verifies every field the submission format mandates.
// is_compliant depends only on mandatory field presence; warnings alone
// leave the document requires_review but still compliant.
func CheckReadiness(doc ropa.Document) ReadinessResult {
	var res ReadinessResult

	if doc.Controller.Name.Vi == "" {
		res.missing("controller.name.vi",
			"Thiếu tên bên kiểm soát (tiếng Việt)",
			"Controller name (Vietnamese) is missing")
	}
	if doc.Controller.TaxID == "" {
		res.missing("controller.tax_id",
			"Thiếu mã số thuế của bên kiểm soát",
			"Controller tax ID is missing")
	}
	if doc.DPO == nil || doc.DPO.Name == "" {
		res.warn("dpo",
			"Chưa chỉ định nhân sự bảo vệ dữ liệu",
			"No data protection officer designated")
	}

	for i, entry := range doc.Entries {
		prefix := fmt.Sprintf("entries[%d]", i)
		if entry.ActivityName.Vi == "" {
			res.missing(prefix+".activity_name.vi",
				"Thiếu tên hoạt động xử lý (tiếng Việt)",
				"Activity name (Vietnamese) is missing")
		}
		if entry.Purpose.Vi == "" {
			res.missing(prefix+".purpose.vi",
				"Thiếu mục đích xử lý",
				"Processing purpose is missing")
		}
		if entry.LegalBasis == "" {
			res.missing(prefix+".legal_basis",
				"Thiếu cơ sở pháp lý",
				"Legal basis is missing")
		}
		if len(entry.Categories) == 0 {
			res.missing(prefix+".data_categories",
				"Chưa khai báo danh mục dữ liệu",
				"No data categories declared")
		}
		for j, c := range entry.Categories {
			if c.Name.Vi == "" {
				res.missing(fmt.Sprintf("%s.data_categories[%d].name.vi", prefix, j),
					"Thiếu tên danh mục dữ liệu (tiếng Việt)",
					"Data category name (Vietnamese) is missing")
			}
		}
		if entry.Retention == nil || entry.Retention.Period.Vi == "" {
			res.missing(prefix+".retention.period",
				"Thiếu thời hạn lưu trữ",
				"Retention period is not stated")
		}
		for j, r := range entry.Recipients {
			if !r.CrossBorder && (r.Country == "" || r.Country == "VN") {
				continue
			}
			rp := fmt.Sprintf("%s.data_recipients[%d]", prefix, j)
			if r.Country == "" {
				res.missing(rp+".country",
					"Thiếu quốc gia đích của bên nhận nước ngoài",
					"Destination country for the foreign recipient is missing")
			}
			if r.TransferMechanism == "" {
				res.missing(rp+".transfer_mechanism",
					"Thiếu cơ chế chuyển dữ liệu ra nước ngoài",
					"Cross-border transfer mechanism is missing")
			}
		}
		if len(entry.SecurityMeasures) == 0 {
			res.warn(prefix+".security_measures",
				"Chưa khai báo biện pháp bảo mật",
				"No security measures documented")
		}
	}

	if doc.EntryCount == 0 {
		res.recommend("entries",
			"Hồ sơ chưa có hoạt động xử lý nào",
			"The record contains no processing activities")
	}

	res.IsCompliant = len(res.MissingFields) == 0
	switch {
	case len(res.MissingFields) > 0:
		res.Status = StatusNonCompliant
	case len(res.Warnings) > 0:
		res.Status = StatusRequiresReview
	default:
		res.Status = StatusCompliant
	}
	return res
}

func (r *ReadinessResult) missing(field, vi, en string) {
	r.MissingFields = append(r.MissingFields, Finding{Field: field, Message: i18n.T(vi, en)})
}

func (r *ReadinessResult) warn(field, vi, en string) {
	r.Warnings = append(r.Warnings, Finding{Field: field, Message: i18n.T(vi, en)})
}

func (r *ReadinessResult) recommend(field, vi, en string) {
	r.Recommendations = append(r.Recommendations, Finding{Field: field, Message: i18n.T(vi, en)})
}

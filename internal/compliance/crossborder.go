package compliance

import (
	"strings"

	"verisyntra.org/internal/flow"
	"verisyntra.org/internal/i18n"
)

// Cross-border statuses beyond the shared base set.
const (
	StatusInapplicable       Status = "inapplicable"
	StatusPendingMPSApproval Status = "pending_mps_approval"
)

// TransferMechanisms is the closed set Decree 13 accepts for transfers out
// of Vietnam.
var TransferMechanisms = map[string]bool{
	"adequate_protection":          true,
	"standard_contractual_clauses": true,
	"binding_corporate_rules":      true,
	"explicit_consent":             true,
	"public_interest":              true,
}

// secureProtocols is the closed set of accepted transport protocols.
var secureProtocols = map[string]bool{
	"HTTPS": true, "TLS": true, "SSL": true, "SFTP": true, "SSH": true, "FTPS": true,
}

// Transfer describes one cross-border movement to validate.
type Transfer struct {
	SourceCountry string
	TargetCountry string
	Mechanism     string
	Encrypted     bool
	Protocol      string
	Volume        int64
	Category      flow.DataCategory
}

// TransferResult is the outcome of one transfer check.
type TransferResult struct {
	IsCompliant             bool      `json:"is_compliant"`
	Status                  Status    `json:"status"`
	Issues                  []Finding `json:"issues,omitempty"`
	RequiresMPSNotification bool      `json:"requires_mps_notification"`
}

// Thresholds carries the per-category MPS notification volumes.
type Thresholds struct {
	Category1 int64
	Category2 int64
}

// CheckTransfer validates a single transfer. Domestic transfers pass
// immediately; transfers entirely outside Vietnam are out of PDPL scope and
// reported inapplicable without failing.
func CheckTransfer(t Transfer, limits Thresholds) TransferResult {
	if t.SourceCountry == "VN" && t.TargetCountry == "VN" {
		return TransferResult{IsCompliant: true, Status: StatusCompliant}
	}
	if t.SourceCountry != "VN" && t.TargetCountry != "VN" {
		return TransferResult{
			IsCompliant: true,
			Status:      StatusInapplicable,
			Issues: []Finding{{Message: i18n.T(
				"Luồng dữ liệu không bắt nguồn từ Việt Nam, PDPL không áp dụng",
				"Transfer does not originate in Vietnam; PDPL does not apply")}},
		}
	}

	var res TransferResult
	if !TransferMechanisms[t.Mechanism] {
		res.Issues = append(res.Issues, Finding{
			Field: "transfer_mechanism",
			Message: i18n.T(
				"Chuyển dữ liệu ra nước ngoài cần cơ chế pháp lý hợp lệ",
				"Cross-border transfer requires a legal mechanism"),
		})
	}
	if !t.Encrypted {
		res.Issues = append(res.Issues, Finding{
			Field: "encryption",
			Message: i18n.T(
				"Dữ liệu chuyển ra nước ngoài phải được mã hóa",
				"Cross-border transfers must be encrypted"),
		})
	}
	if t.Protocol != "" && !secureProtocols[strings.ToUpper(t.Protocol)] {
		res.Issues = append(res.Issues, Finding{
			Field: "protocol",
			Message: i18n.T(
				"Giao thức truyền không nằm trong danh sách an toàn",
				"Transport protocol is not in the secure set"),
		})
	}

	switch t.Category {
	case flow.CategoryBasic:
		res.RequiresMPSNotification = limits.Category1 > 0 && t.Volume >= limits.Category1
	case flow.CategorySensitive:
		res.RequiresMPSNotification = limits.Category2 > 0 && t.Volume >= limits.Category2
	}

	switch {
	case len(res.Issues) > 0:
		res.Status = StatusNonCompliant
	case res.RequiresMPSNotification:
		res.Status = StatusPendingMPSApproval
		res.IsCompliant = true
	default:
		res.Status = StatusCompliant
		res.IsCompliant = true
	}
	return res
}

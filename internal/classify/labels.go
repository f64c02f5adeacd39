package classify

// ModelType identifies one classifier in the fixed catalogue. Each type has
// its own label vocabulary; label order fixes the category ids.
type ModelType string

const (
	ModelPrinciples       ModelType = "principles"
	ModelLegalBasis       ModelType = "legal_basis"
	ModelBreachTriage     ModelType = "breach_triage"
	ModelCrossBorder      ModelType = "cross_border"
	ModelConsentType      ModelType = "consent_type"
	ModelDataSensitivity  ModelType = "data_sensitivity"
	ModelDPOTasks         ModelType = "dpo_tasks"
	ModelRiskLevel        ModelType = "risk_level"
	ModelComplianceStatus ModelType = "compliance_status"
	ModelRegional         ModelType = "regional"
	ModelIndustry         ModelType = "industry"
)

// labelCatalogue maps every supported model type to its ordered labels.
var labelCatalogue = map[ModelType][]string{
	ModelPrinciples: {
		"Lawfulness", "Purpose Limitation", "Data Minimization", "Accuracy",
		"Storage Limitation", "Security", "Accountability", "Transparency",
	},
	ModelLegalBasis: {
		"Consent", "Contract Performance", "Legal Obligation",
		"Vital Interests", "Public Task", "Legitimate Interest",
	},
	ModelBreachTriage: {
		"No Breach", "Low Severity", "Notifiable Breach", "Critical Breach",
	},
	ModelCrossBorder: {
		"Domestic Only", "Cross-Border Compliant", "Cross-Border Non-Compliant",
	},
	ModelConsentType: {
		"Explicit Consent", "Implied Consent", "Parental Consent", "No Consent",
	},
	ModelDataSensitivity: {
		"Non-Personal", "Basic Personal", "Sensitive Personal",
	},
	ModelDPOTasks: {
		"Advisory", "Monitoring", "Training", "Liaison", "Documentation",
	},
	ModelRiskLevel: {
		"Low", "Medium", "High", "Critical",
	},
	ModelComplianceStatus: {
		"Compliant", "Requires Review", "Non-Compliant",
	},
	ModelRegional: {
		"North", "Central", "South",
	},
	ModelIndustry: {
		"E-commerce", "Fintech", "Banking", "Telecom", "Healthcare", "Other",
	},
}

// Labels returns the ordered label vocabulary for a model type.
func Labels(mt ModelType) ([]string, bool) {
	labels, ok := labelCatalogue[mt]
	return labels, ok
}

// KnownModelTypes lists the catalogue in a stable order.
func KnownModelTypes() []ModelType {
	return []ModelType{
		ModelPrinciples, ModelLegalBasis, ModelBreachTriage, ModelCrossBorder,
		ModelConsentType, ModelDataSensitivity, ModelDPOTasks, ModelRiskLevel,
		ModelComplianceStatus, ModelRegional, ModelIndustry,
	}
}

// keywordVocab maps labels of selected model types to diacritics-folded
// Vietnamese and English cue phrases used by the bundled scorer.
var keywordVocab = map[ModelType]map[string][]string{
	ModelLegalBasis: {
		"Consent":              {"dong y", "chap thuan", "su dong y", "consent", "opt-in"},
		"Contract Performance": {"hop dong", "thoa thuan", "mua ban", "giao dich", "contract", "agreement"},
		"Legal Obligation":     {"nghia vu phap ly", "phap luat yeu cau", "quy dinh phap luat", "legal obligation", "required by law"},
		"Vital Interests":      {"tinh mang", "suc khoe khan cap", "cap cuu", "vital interest", "life threatening"},
		"Public Task":          {"nhiem vu cong", "co quan nha nuoc", "loi ich cong cong", "public task", "public authority"},
		"Legitimate Interest":  {"loi ich chinh dang", "loi ich hop phap", "legitimate interest"},
	},
	ModelBreachTriage: {
		"No Breach":         {"khong co su co", "binh thuong", "no incident"},
		"Low Severity":      {"ro ri nho", "anh huong thap", "minor leak", "low impact"},
		"Notifiable Breach": {"ro ri du lieu", "lo lot du lieu", "xam nhap", "data breach", "unauthorized access"},
		"Critical Breach":   {"ro ri nghiem trong", "du lieu nhay cam bi lo", "tan cong", "ransomware", "mass breach"},
	},
	ModelCrossBorder: {
		"Domestic Only":              {"trong nuoc", "tai viet nam", "noi dia", "domestic"},
		"Cross-Border Compliant":     {"chuyen ra nuoc ngoai", "hop dong chuyen giao", "co che bao ve", "transfer mechanism", "scc"},
		"Cross-Border Non-Compliant": {"chuyen du lieu trai phep", "khong co co che", "unprotected transfer"},
	},
	ModelDataSensitivity: {
		"Non-Personal":       {"du lieu tong hop", "an danh", "aggregated", "anonymous"},
		"Basic Personal":     {"ho ten", "dia chi", "so dien thoai", "email", "name", "phone"},
		"Sensitive Personal": {"suc khoe", "tai chinh", "sinh trac hoc", "ton giao", "health", "biometric", "financial"},
	},
}

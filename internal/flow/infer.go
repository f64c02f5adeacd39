package flow

import (
	"net/netip"
	"regexp"
	"strings"

	"verisyntra.org/internal/obs"
	"verisyntra.org/internal/vntext"
)

// cityRegions maps folded Vietnamese city keywords to the administrative
// region used in regulator documents.
var cityRegions = map[string]string{
	"ha noi":      "north",
	"hanoi":       "north",
	"hai phong":   "north",
	"quang ninh":  "north",
	"bac ninh":    "north",
	"da nang":     "central",
	"danang":      "central",
	"hue":         "central",
	"quang nam":   "central",
	"nha trang":   "central",
	"khanh hoa":   "central",
	"ho chi minh": "south",
	"hcmc":        "south",
	"sai gon":     "south",
	"saigon":      "south",
	"can tho":     "south",
	"binh duong":  "south",
	"dong nai":    "south",
	"vung tau":    "south",
}

// foreignHints maps folded location substrings to a country code when the
// location names an obviously foreign site.
var foreignHints = map[string]string{
	"us-east":        "US",
	"us-west":        "US",
	"eu-west":        "IE",
	"eu-central":     "DE",
	"ap-southeast-1": "SG",
	"ap-northeast-1": "JP",
	"singapore":      "SG",
	"tokyo":          "JP",
	"frankfurt":      "DE",
	"virginia":       "US",
	"oregon":         "US",
}

var ipv4Pattern = regexp.MustCompile(`\b(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\b`)

// basicVocab marks Category 1 (basic personal data) column and table names.
var basicVocab = []string{
	"ho_ten", "ho ten", "ten", "name", "email", "phone", "dien_thoai",
	"dien thoai", "sdt", "dia_chi", "dia chi", "address", "ngay_sinh",
	"ngay sinh", "birth", "gioi_tinh", "gioi tinh", "gender", "cmnd",
	"cccd", "passport", "quoc_tich", "nationality", "khach_hang",
	"khach hang", "customer", "nhan_vien", "nhan vien", "employee", "user",
}

// sensitiveVocab marks Category 2 (sensitive personal data) names per
// Decree 13 Article 2.4.
var sensitiveVocab = []string{
	"suc_khoe", "suc khoe", "health", "benh_an", "benh an", "medical",
	"sinh_trac", "sinh trac", "biometric", "van_tay", "van tay",
	"fingerprint", "gen", "genetic", "ton_giao", "ton giao", "religion",
	"chinh_tri", "chinh tri", "political", "tin_dung", "tin dung",
	"credit", "tai_khoan_ngan_hang", "bank_account", "vi_tri", "vi tri",
	"location", "gps", "tien_an", "tien an", "criminal",
}

// Inferencer derives node attributes from raw scan metadata. CIDRs and MPS
// thresholds come from configuration.
type Inferencer struct {
	cidrs         []netip.Prefix
	cat1Threshold int64
	cat2Threshold int64
}

// NewInferencer parses the Vietnamese ISP CIDR list. Unparseable entries are
// logged and skipped.
func NewInferencer(vietnamCIDRs []string, cat1Threshold, cat2Threshold int64) *Inferencer {
	inf := &Inferencer{cat1Threshold: cat1Threshold, cat2Threshold: cat2Threshold}
	for _, raw := range vietnamCIDRs {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(raw))
		if err != nil {
			obs.Warn("invalid vietnam cidr skipped", map[string]any{
				"cidr":  raw,
				"error": err.Error(),
			})
			continue
		}
		inf.cidrs = append(inf.cidrs, prefix)
	}
	return inf
}

// Node builds a graph node from a scanned source, inferring region, country,
// data category and the MPS-notification flag.
func (inf *Inferencer) Node(src Source) DataAssetNode {
	category, sensitive := inf.Categorize(src.Name, src.Columns)
	node := DataAssetNode{
		Name:        src.Name,
		Location:    src.Location,
		Region:      inf.Region(src.Location),
		Country:     inf.Country(src.Location),
		Category:    category,
		Sensitive:   sensitive,
		RecordCount: src.RecordCount,
	}
	node.RequiresMPS = inf.RequiresMPSNotification(category, src.RecordCount)
	return node
}

// Region derives the Vietnamese region from city keywords in the location,
// empty when no keyword matches.
func (inf *Inferencer) Region(location string) string {
	folded := vntext.Fold(location)
	for city, region := range cityRegions {
		if strings.Contains(folded, city) {
			return region
		}
	}
	return ""
}

// Country derives the country code for a location. An IP literal inside a
// Vietnamese ISP range is VN; recognizable foreign site names map to their
// country; everything ambiguous falls back to VN.
func (inf *Inferencer) Country(location string) string {
	if m := ipv4Pattern.FindString(location); m != "" {
		if addr, err := netip.ParseAddr(m); err == nil {
			if addr.IsPrivate() || addr.IsLoopback() {
				return "VN"
			}
			for _, prefix := range inf.cidrs {
				if prefix.Contains(addr) {
					return "VN"
				}
			}
		}
	}
	folded := vntext.Fold(location)
	for hint, country := range foreignHints {
		if strings.Contains(folded, hint) {
			return country
		}
	}
	return "VN"
}

// MatchesSensitiveVocab reports whether any of the given names or field
// labels matches the Decree 13 Article 2.4 sensitive-data vocabulary.
func MatchesSensitiveVocab(texts ...string) bool {
	for _, t := range texts {
		folded := vntext.Fold(t)
		for _, kw := range sensitiveVocab {
			if strings.Contains(folded, kw) {
				return true
			}
		}
	}
	return false
}

// Categorize scans the asset name and its columns against the basic and
// sensitive vocabularies. Any sensitive hit wins.
func (inf *Inferencer) Categorize(name string, columns []string) (DataCategory, bool) {
	if MatchesSensitiveVocab(append([]string{name}, columns...)...) {
		return CategorySensitive, true
	}
	for _, raw := range append([]string{name}, columns...) {
		probe := vntext.Fold(raw)
		for _, kw := range basicVocab {
			if strings.Contains(probe, kw) {
				return CategoryBasic, false
			}
		}
	}
	return CategoryNonPersonal, false
}

// RequiresMPSNotification applies the per-category record thresholds.
func (inf *Inferencer) RequiresMPSNotification(category DataCategory, recordCount int64) bool {
	switch category {
	case CategoryBasic:
		return inf.cat1Threshold > 0 && recordCount >= inf.cat1Threshold
	case CategorySensitive:
		return inf.cat2Threshold > 0 && recordCount >= inf.cat2Threshold
	default:
		return false
	}
}

package ropa

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"verisyntra.org/internal/i18n"
)

// mpsColumnCount is fixed by Circular 09/2024/TT-BCA.
const mpsColumnCount = 17

var mpsHeaders = map[i18n.Language][]string{
	i18n.Vietnamese: {
		"STT", "Tên tổ chức", "Mã số thuế", "Hoạt động xử lý",
		"Mục đích", "Cơ sở pháp lý", "Danh mục dữ liệu", "Chủ thể dữ liệu",
		"Bên nhận", "Chuyển ra nước ngoài", "Quốc gia đích",
		"Thời hạn lưu trữ", "Biện pháp bảo mật", "Địa điểm xử lý",
		"Nhân sự bảo vệ dữ liệu", "Ngày tạo", "Ngày cập nhật",
	},
	i18n.English: {
		"No.", "Organization Name", "Tax ID", "Processing Activity",
		"Purpose", "Legal Basis", "Data Categories", "Data Subjects",
		"Recipients", "Cross-Border", "Destination Country",
		"Retention", "Security Measures", "Processing Location",
		"DPO", "Created", "Updated",
	},
}

// writeMPS produces the submission pair: the 17-column CSV at path and a
// companion JSON with metadata, entries and summary sections.
func (e *Exporter) writeMPS(doc Document, path string, lang i18n.Language) error {
	if err := atomicWrite(path, func(f *os.File) error {
		if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return err
		}
		w := csv.NewWriter(f)
		if err := w.Write(mpsHeaders[lang]); err != nil {
			return err
		}
		for i, entry := range doc.Entries {
			if err := w.Write(mpsRow(i+1, doc, entry, lang)); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	}); err != nil {
		return err
	}

	jsonPath := strings.TrimSuffix(path, ".csv") + ".json"
	return atomicWrite(jsonPath, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(mpsJSON(doc, lang))
	})
}

func mpsRow(seq int, doc Document, entry Entry, lang i18n.Language) []string {
	dpo := ""
	if doc.DPO != nil {
		dpo = doc.DPO.Name
	}
	destination := ""
	for _, r := range entry.Recipients {
		if r.Country != "" && r.Country != "VN" {
			destination = r.Country
			break
		}
	}
	row := make([]string, 0, mpsColumnCount)
	row = append(row,
		strconv.Itoa(seq),
		doc.Controller.Name.In(lang),
		doc.Controller.TaxID,
		entry.ActivityName.In(lang),
		entry.Purpose.In(lang),
		entry.LegalBasis,
		joinTexts(categoriesTexts(entry.Categories), lang),
		joinSubjects(entry.Subjects),
		joinTexts(recipientTexts(entry.Recipients), lang),
		i18n.YesNo(entry.HasCrossBorder, lang),
		destination,
		retentionPeriod(entry.Retention, lang),
		joinTexts(measureTexts(entry.SecurityMeasures), lang),
		strings.Join(locationSummaries(entry.Locations), "; "),
		dpo,
		i18n.FormatDate(entry.CreatedAt, lang),
		i18n.FormatDate(entry.UpdatedAt, lang),
	)
	return row
}

// mpsEntryKeys localizes the JSON entry field names for the submission.
var mpsEntryKeys = map[i18n.Language][]string{
	i18n.Vietnamese: {
		"stt", "hoat_dong", "muc_dich", "co_so_phap_ly", "danh_muc_du_lieu",
		"chu_the_du_lieu", "ben_nhan", "chuyen_nuoc_ngoai", "quoc_gia_dich",
		"thoi_han_luu_tru", "bien_phap_bao_mat",
	},
	i18n.English: {
		"sequence", "activity", "purpose", "legal_basis", "data_categories",
		"data_subjects", "recipients", "cross_border", "destination_country",
		"retention", "security_measures",
	},
}

func mpsJSON(doc Document, lang i18n.Language) map[string]any {
	keys := mpsEntryKeys[lang]
	entries := make([]map[string]any, 0, len(doc.Entries))
	for i, entry := range doc.Entries {
		destination := ""
		for _, r := range entry.Recipients {
			if r.Country != "" && r.Country != "VN" {
				destination = r.Country
				break
			}
		}
		entries = append(entries, map[string]any{
			keys[0]:  i + 1,
			keys[1]:  entry.ActivityName.In(lang),
			keys[2]:  entry.Purpose.In(lang),
			keys[3]:  entry.LegalBasis,
			keys[4]:  joinTexts(categoriesTexts(entry.Categories), lang),
			keys[5]:  joinSubjects(entry.Subjects),
			keys[6]:  joinTexts(recipientTexts(entry.Recipients), lang),
			keys[7]:  entry.HasCrossBorder,
			keys[8]:  destination,
			keys[9]:  retentionPeriod(entry.Retention, lang),
			keys[10]: joinTexts(measureTexts(entry.SecurityMeasures), lang),
		})
	}
	return map[string]any{
		"metadata": map[string]any{
			"document_id":  doc.ID,
			"tenant_id":    doc.TenantID,
			"generated_at": doc.GeneratedAt,
			"circular":     "09/2024/TT-BCA",
			"organization": doc.Controller,
			"language":     string(lang),
		},
		"entries": entries,
		"summary": map[string]any{
			"entry_count":        doc.EntryCount,
			"has_sensitive_data": doc.HasSensitiveData,
			"has_cross_border":   doc.HasCrossBorder,
			"submission":         doc.MPS,
		},
	}
}

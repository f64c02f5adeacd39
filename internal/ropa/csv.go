package ropa

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"verisyntra.org/internal/i18n"
	"verisyntra.org/internal/store"
)

// csvColumnCount is the fixed width of the spreadsheet export.
const csvColumnCount = 20

var csvHeaders = map[i18n.Language][]string{
	i18n.Vietnamese: {
		"STT", "Tên hoạt động", "Mục đích xử lý", "Cơ sở pháp lý",
		"Danh mục dữ liệu", "Trường dữ liệu", "Dữ liệu nhạy cảm",
		"Chủ thể dữ liệu", "Số lượng ước tính", "Bên nhận dữ liệu",
		"Quốc gia bên nhận", "Chuyển ra nước ngoài", "Cơ chế chuyển giao",
		"Thời hạn lưu trữ", "Thủ tục xóa", "Biện pháp bảo mật",
		"Địa điểm xử lý", "Nhân sự bảo vệ dữ liệu", "Ngày tạo", "Ngày cập nhật",
	},
	i18n.English: {
		"No.", "Activity Name", "Processing Purpose", "Legal Basis",
		"Data Categories", "Data Fields", "Sensitive Data",
		"Data Subjects", "Estimated Count", "Data Recipients",
		"Recipient Countries", "Cross-Border Transfer", "Transfer Mechanism",
		"Retention Period", "Deletion Procedure", "Security Measures",
		"Processing Locations", "Data Protection Officer", "Created", "Updated",
	},
}

// writeCSV emits one quoted row per entry, BOM first so spreadsheet tools
// detect UTF-8.
func (e *Exporter) writeCSV(doc Document, path string, lang i18n.Language) error {
	return atomicWrite(path, func(f *os.File) error {
		if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return err
		}
		w := csv.NewWriter(f)
		if err := w.Write(csvHeaders[lang]); err != nil {
			return err
		}
		dpo := ""
		if doc.DPO != nil {
			dpo = doc.DPO.Name
		}
		for i, entry := range doc.Entries {
			if err := w.Write(csvRow(i+1, entry, dpo, lang)); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

func csvRow(seq int, entry Entry, dpo string, lang i18n.Language) []string {
	row := make([]string, 0, csvColumnCount)
	row = append(row,
		strconv.Itoa(seq),
		entry.ActivityName.In(lang),
		entry.Purpose.In(lang),
		entry.LegalBasis,
		joinTexts(categoriesTexts(entry.Categories), lang),
		strings.Join(categoryFields(entry.Categories), "; "),
		i18n.YesNo(entry.HasSensitiveData, lang),
		joinSubjects(entry.Subjects),
		strconv.FormatInt(subjectCount(entry.Subjects), 10),
		joinTexts(recipientTexts(entry.Recipients), lang),
		strings.Join(recipientCountries(entry.Recipients), "; "),
		i18n.YesNo(entry.HasCrossBorder, lang),
		strings.Join(transferMechanisms(entry.Recipients), "; "),
		retentionPeriod(entry.Retention, lang),
		retentionDeletion(entry.Retention, lang),
		joinTexts(measureTexts(entry.SecurityMeasures), lang),
		strings.Join(locationSummaries(entry.Locations), "; "),
		dpo,
		i18n.FormatDate(entry.CreatedAt, lang),
		i18n.FormatDate(entry.UpdatedAt, lang),
	)
	return row
}

func joinTexts(texts []i18n.Text, lang i18n.Language) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if v := t.In(lang); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, "; ")
}

func categoriesTexts(cats []store.DataCategory) []i18n.Text {
	out := make([]i18n.Text, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.Name)
	}
	return out
}

func categoryFields(cats []store.DataCategory) []string {
	var out []string
	for _, c := range cats {
		out = append(out, c.Fields...)
	}
	return out
}

func joinSubjects(subjects []store.DataSubject) string {
	parts := make([]string, 0, len(subjects))
	for _, s := range subjects {
		parts = append(parts, string(s.Category))
	}
	return strings.Join(parts, "; ")
}

func subjectCount(subjects []store.DataSubject) int64 {
	var total int64
	for _, s := range subjects {
		total += s.EstimatedCount
	}
	return total
}

func recipientTexts(recipients []store.DataRecipient) []i18n.Text {
	out := make([]i18n.Text, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, r.Name)
	}
	return out
}

func recipientCountries(recipients []store.DataRecipient) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range recipients {
		if r.Country != "" && !seen[r.Country] {
			seen[r.Country] = true
			out = append(out, r.Country)
		}
	}
	return out
}

func transferMechanisms(recipients []store.DataRecipient) []string {
	var out []string
	for _, r := range recipients {
		if r.TransferMechanism != "" {
			out = append(out, r.TransferMechanism)
		}
	}
	return out
}

func retentionPeriod(r *store.DataRetention, lang i18n.Language) string {
	if r == nil {
		return ""
	}
	return r.Period.In(lang)
}

func retentionDeletion(r *store.DataRetention, lang i18n.Language) string {
	if r == nil {
		return ""
	}
	return r.DeletionProcedure.In(lang)
}

func measureTexts(measures []store.SecurityMeasure) []i18n.Text {
	out := make([]i18n.Text, 0, len(measures))
	for _, m := range measures {
		out = append(out, m.Name)
	}
	return out
}

func locationSummaries(locations []store.ProcessingLocation) []string {
	out := make([]string, 0, len(locations))
	for _, l := range locations {
		s := l.Country
		if l.Region != "" {
			s += " (" + l.Region + ")"
		}
		if l.CloudProvider != "" {
			s += " " + l.CloudProvider
			if l.CloudRegion != "" {
				s += "/" + l.CloudRegion
			}
		}
		out = append(out, s)
	}
	return out
}

package ropa

import (
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"

	"verisyntra.org/internal/i18n"
	"verisyntra.org/internal/obs"
)

// pdfMargin is 2cm in millimeters.
const pdfMargin = 20.0

var pdfLabels = map[i18n.Language]struct {
	title, controller, taxID, dpo, summary, entryCount, sensitive, crossBorder, activities string
}{
	i18n.Vietnamese: {
		title:       "HỒ SƠ HOẠT ĐỘNG XỬ LÝ DỮ LIỆU CÁ NHÂN",
		controller:  "Bên kiểm soát dữ liệu",
		taxID:       "Mã số thuế",
		dpo:         "Nhân sự bảo vệ dữ liệu",
		summary:     "Tổng quan",
		entryCount:  "Số hoạt động",
		sensitive:   "Có dữ liệu nhạy cảm",
		crossBorder: "Có chuyển dữ liệu ra nước ngoài",
		activities:  "Danh sách hoạt động",
	},
	i18n.English: {
		title:       "RECORD OF PROCESSING ACTIVITIES",
		controller:  "Data Controller",
		taxID:       "Tax ID",
		dpo:         "Data Protection Officer",
		summary:     "Summary",
		entryCount:  "Activities",
		sensitive:   "Has sensitive data",
		crossBorder: "Has cross-border transfers",
		activities:  "Processing Activities",
	},
}

// writePDF renders the document on A4 with 2cm margins. The configured
// Vietnamese TTF is registered when present; otherwise rendering continues
// on the built-in face with a logged warning (diacritics may degrade).
func (e *Exporter) writePDF(doc Document, path string, lang i18n.Language) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)

	font := "Helvetica"
	if e.FontPath != "" {
		if _, err := os.Stat(e.FontPath); err == nil {
			name := e.FontName
			if name == "" {
				name = "VietnameseSans"
			}
			pdf.AddUTF8Font(name, "", e.FontPath)
			pdf.AddUTF8Font(name, "B", e.FontPath)
			font = name
		} else {
			obs.Warn("pdf font missing, using fallback face", map[string]any{
				"font_path": e.FontPath,
			})
		}
	} else {
		obs.Warn("pdf font not configured, using fallback face", nil)
	}

	labels := pdfLabels[lang]
	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 2*pdfMargin

	// Title page.
	pdf.AddPage()
	pdf.SetFont(font, "B", 16)
	pdf.MultiCell(usable, 10, labels.title, "", "C", false)
	pdf.Ln(4)
	pdf.SetFont(font, "", 11)
	pdf.MultiCell(usable, 7, doc.Controller.Name.In(lang), "", "C", false)
	pdf.MultiCell(usable, 7, i18n.FormatDate(doc.GeneratedAt, lang), "", "C", false)
	pdf.Ln(8)

	// Controller table.
	e.kvTable(pdf, font, usable, labels.controller, [][2]string{
		{labels.controller, doc.Controller.Name.In(lang)},
		{labels.taxID, doc.Controller.TaxID},
		{"Email", doc.Controller.Email},
	})
	if doc.DPO != nil {
		e.kvTable(pdf, font, usable, labels.dpo, [][2]string{
			{labels.dpo, doc.DPO.Name},
			{"Email", doc.DPO.Email},
		})
	}
	e.kvTable(pdf, font, usable, labels.summary, [][2]string{
		{labels.entryCount, fmt.Sprintf("%d", doc.EntryCount)},
		{labels.sensitive, i18n.YesNo(doc.HasSensitiveData, lang)},
		{labels.crossBorder, i18n.YesNo(doc.HasCrossBorder, lang)},
	})

	// Activities, one block per entry; auto page break paginates.
	pdf.AddPage()
	pdf.SetFont(font, "B", 13)
	pdf.MultiCell(usable, 8, labels.activities, "", "L", false)
	pdf.Ln(2)
	for i, entry := range doc.Entries {
		pdf.SetFont(font, "B", 11)
		pdf.MultiCell(usable, 7, fmt.Sprintf("%d. %s", i+1, entry.ActivityName.In(lang)), "1", "L", false)
		pdf.SetFont(font, "", 10)
		rows := [][2]string{
			{csvHeaders[lang][2], entry.Purpose.In(lang)},
			{csvHeaders[lang][3], entry.LegalBasis},
			{csvHeaders[lang][4], joinTexts(categoriesTexts(entry.Categories), lang)},
			{csvHeaders[lang][7], joinSubjects(entry.Subjects)},
			{csvHeaders[lang][9], joinTexts(recipientTexts(entry.Recipients), lang)},
			{csvHeaders[lang][11], i18n.YesNo(entry.HasCrossBorder, lang)},
			{csvHeaders[lang][13], retentionPeriod(entry.Retention, lang)},
			{csvHeaders[lang][15], joinTexts(measureTexts(entry.SecurityMeasures), lang)},
		}
		for _, row := range rows {
			e.wrappedRow(pdf, usable, row[0], row[1])
		}
		pdf.Ln(3)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("%w: render pdf: %v", ErrUnavailable, err)
	}
	return atomicWrite(path, func(f *os.File) error {
		return pdf.Output(f)
	})
}

// kvTable renders a titled two-column table with wrapped values.
func (e *Exporter) kvTable(pdf *fpdf.Fpdf, font string, usable float64, title string, rows [][2]string) {
	pdf.SetFont(font, "B", 12)
	pdf.MultiCell(usable, 8, title, "", "L", false)
	pdf.SetFont(font, "", 10)
	for _, row := range rows {
		e.wrappedRow(pdf, usable, row[0], row[1])
	}
	pdf.Ln(4)
}

// wrappedRow draws a label cell and a word-wrapped value cell on one line.
func (e *Exporter) wrappedRow(pdf *fpdf.Fpdf, usable float64, label, value string) {
	labelWidth := usable * 0.35
	x, y := pdf.GetXY()
	pdf.MultiCell(labelWidth, 6, label, "1", "L", false)
	endY := pdf.GetY()
	pdf.SetXY(x+labelWidth, y)
	pdf.MultiCell(usable-labelWidth, 6, value, "1", "L", false)
	if pdf.GetY() < endY {
		pdf.SetY(endY)
	}
}

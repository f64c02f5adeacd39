package ropa

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"verisyntra.org/internal/i18n"
)

var (
	ErrUnknownFormat = errors.New("ropa: unknown export format")

	// ErrUnavailable wraps I/O failures while writing artefacts.
	ErrUnavailable = errors.New("ropa: export unavailable")
)

// Format selects an export writer.
type Format string

const (
	FormatJSON Format = "JSON"
	FormatCSV  Format = "CSV"
	FormatPDF  Format = "PDF"
	FormatMPS  Format = "MPS_FORMAT"
)

// extensions maps each format to its primary file extension.
var extensions = map[Format]string{
	FormatJSON: "json",
	FormatCSV:  "csv",
	FormatPDF:  "pdf",
	FormatMPS:  "mps.csv",
}

// Extension returns the file extension artefacts of this format carry.
func (f Format) Extension() string { return extensions[f] }

// writer emits one format. Writers are pure functions of the document, the
// output path and the language.
type writer func(e *Exporter, doc Document, path string, lang i18n.Language) error

// writers is the dispatch table; format selection never branches on type.
var writers = map[Format]writer{
	FormatJSON: (*Exporter).writeJSON,
	FormatCSV:  (*Exporter).writeCSV,
	FormatPDF:  (*Exporter).writePDF,
	FormatMPS:  (*Exporter).writeMPS,
}

// ParseFormat normalizes a request value.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatJSON, FormatCSV, FormatPDF, FormatMPS:
		return Format(raw), nil
	}
	switch raw {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "pdf":
		return FormatPDF, nil
	case "mps", "mps_format":
		return FormatMPS, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
}

// Exporter renders documents to files. FontPath/FontName configure the
// embedded Vietnamese face for PDF output.
type Exporter struct {
	FontPath string
	FontName string
}

// Export writes the document in the given format and returns the artefact
// path. The parent directory is created when missing.
func (e *Exporter) Export(doc Document, dir string, format Format, lang i18n.Language) (string, error) {
	w, ok := writers[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: mkdir %s: %v", ErrUnavailable, dir, err)
	}
	path := filepath.Join(dir, doc.ID+"."+extensions[format])
	if err := w(e, doc, path, lang); err != nil {
		return "", err
	}
	return path, nil
}

// atomicWrite writes through a temp file and renames into place so a crashed
// export never leaves a truncated artefact.
func atomicWrite(path string, render func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ropa-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer os.Remove(tmp.Name())
	if err := render(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

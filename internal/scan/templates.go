package scan

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"verisyntra.org/internal/i18n"
)

// Template is a named, reusable column filter preset.
type Template struct {
	Name        string       `json:"name" yaml:"name"`
	Description i18n.Text    `json:"description" yaml:"description"`
	Filter      FilterConfig `json:"filter" yaml:"filter"`
}

// builtinTemplates cover the common discovery postures. Pattern matching is
// case-insensitive substring, so "email" also catches "customer_email".
var builtinTemplates = []Template{
	{
		Name: "all_columns",
		Description: i18n.Text{
			Vi: "Quét toàn bộ các cột, không lọc",
			En: "Scan every column without filtering",
		},
		Filter: FilterConfig{Mode: FilterAll},
	},
	{
		Name: "personal_data_only",
		Description: i18n.Text{
			Vi: "Chỉ quét các cột chứa dữ liệu cá nhân",
			En: "Scan only columns holding personal data",
		},
		Filter: FilterConfig{
			Mode: FilterInclude,
			Patterns: []string{
				"ho_ten", "ten", "name", "email", "phone", "dien_thoai",
				"sdt", "dia_chi", "address", "cmnd", "cccd", "passport",
				"ngay_sinh", "birth", "gioi_tinh", "gender",
			},
		},
	},
	{
		Name: "contact_info_only",
		Description: i18n.Text{
			Vi: "Chỉ quét thông tin liên hệ",
			En: "Scan only contact information columns",
		},
		Filter: FilterConfig{
			Mode: FilterInclude,
			Patterns: []string{
				"email", "phone", "dien_thoai", "sdt", "dia_chi", "address",
				"fax", "zalo",
			},
		},
	},
	{
		Name: "financial_data_only",
		Description: i18n.Text{
			Vi: "Chỉ quét dữ liệu tài chính",
			En: "Scan only financial data columns",
		},
		Filter: FilterConfig{
			Mode: FilterInclude,
			Patterns: []string{
				"tai_khoan", "account", "so_the", "card", "iban", "swift",
				"luong", "salary", "thu_nhap", "income", "so_du", "balance",
			},
		},
	},
	{
		Name: "exclude_system_columns",
		Description: i18n.Text{
			Vi: "Bỏ qua các cột hệ thống",
			En: "Skip bookkeeping and system columns",
		},
		Filter: FilterConfig{
			Mode: FilterExclude,
			Patterns: []string{
				"created_at", "updated_at", "deleted_at", "id", "uuid",
				"version", "etag", "checksum",
			},
		},
	},
}

// TemplateCatalogue holds named filter presets. The built-ins are always
// present; a YAML file may add to or override them.
type TemplateCatalogue struct {
	templates map[string]Template
}

// NewTemplateCatalogue returns a catalogue seeded with the built-ins.
func NewTemplateCatalogue() *TemplateCatalogue {
	c := &TemplateCatalogue{templates: make(map[string]Template, len(builtinTemplates))}
	for _, t := range builtinTemplates {
		c.templates[t.Name] = t
	}
	return c
}

// LoadTemplates merges templates from a YAML file into the catalogue.
// Entries with the same name replace built-ins.
func (c *TemplateCatalogue) LoadTemplates(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read templates %q: %w", path, err)
	}
	var doc struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse templates %q: %w", path, err)
	}
	for _, t := range doc.Templates {
		if t.Name == "" {
			return fmt.Errorf("parse templates %q: template without name", path)
		}
		c.templates[t.Name] = t
	}
	return nil
}

// Get looks a template up by name.
func (c *TemplateCatalogue) Get(name string) (Template, bool) {
	t, ok := c.templates[name]
	return t, ok
}

// List returns all templates sorted by name.
func (c *TemplateCatalogue) List() []Template {
	out := make([]Template, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

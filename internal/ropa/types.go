// Package ropa assembles the Record of Processing Activities for a tenant
// and exports it in the formats regulators and DPOs consume: JSON, CSV, PDF
// and the MPS submission format under Circular 09/2024/TT-BCA.
package ropa

import (
	"time"

	"verisyntra.org/internal/i18n"
	"verisyntra.org/internal/store"
)

// Organization identifies the data controller in regulator documents.
type Organization struct {
	Name    i18n.Text `json:"name"`
	TaxID   string    `json:"tax_id"`
	Address i18n.Text `json:"address,omitzero"`
	Email   string    `json:"email,omitempty"`
	Phone   string    `json:"phone,omitempty"`
}

// Person is a named contact, used for the DPO.
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// TenantProfile carries the controller identity and optional DPO that frame
// every document generated for the tenant.
type TenantProfile struct {
	Controller Organization `json:"controller"`
	DPO        *Person      `json:"dpo,omitempty"`
}

// Entry is one activity's row in the record.
type Entry struct {
	ActivityID   string    `json:"activity_id"`
	ActivityName i18n.Text `json:"activity_name"`
	Purpose      i18n.Text `json:"purpose"`
	LegalBasis   string    `json:"legal_basis"`

	Categories       []store.DataCategory       `json:"data_categories,omitempty"`
	Subjects         []store.DataSubject        `json:"data_subjects,omitempty"`
	Recipients       []store.DataRecipient      `json:"data_recipients,omitempty"`
	Retention        *store.DataRetention       `json:"retention,omitempty"`
	SecurityMeasures []store.SecurityMeasure    `json:"security_measures,omitempty"`
	Locations        []store.ProcessingLocation `json:"processing_locations,omitempty"`

	HasSensitiveData bool `json:"has_sensitive_data"`
	HasCrossBorder   bool `json:"has_cross_border"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MPSSubmission tracks whether and when the document went to the Ministry of
// Public Security.
type MPSSubmission struct {
	Submitted bool      `json:"submitted"`
	Date      time.Time `json:"date,omitzero"`
	Reference string    `json:"reference,omitempty"`
}

// Document is the assembled record for one tenant at one point in time.
type Document struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Controller Organization `json:"controller"`
	DPO        *Person      `json:"dpo,omitempty"`

	Entries    []Entry `json:"entries"`
	EntryCount int     `json:"entry_count"`

	HasSensitiveData bool `json:"has_sensitive_data"`
	HasCrossBorder   bool `json:"has_cross_border"`

	MPS MPSSubmission `json:"mps_submission"`
}

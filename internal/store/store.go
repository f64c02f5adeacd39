// Package store persists the ROPA source-of-truth: processing activities and
// their child collections, tenant-isolated, with an audit row written for
// every mutation. Deletes are soft; deleted activities never surface through
// reads.
package store

import (
	"context"
	"errors"
	"time"

	"verisyntra.org/internal/i18n"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrInvalid  = errors.New("store: invalid entity")
)

// ActivityStatus is the lifecycle state of a processing activity.
type ActivityStatus string

const (
	StatusActive   ActivityStatus = "active"
	StatusInactive ActivityStatus = "inactive"
	StatusDeleted  ActivityStatus = "deleted"
)

// LegalBasis values follow Decree 13 Article 8.
var LegalBases = []string{
	"consent", "contract", "legal_obligation", "vital_interests",
	"public_task", "legitimate_interest",
}

// ValidLegalBasis reports whether the tag is one of the decree's bases.
func ValidLegalBasis(tag string) bool {
	for _, b := range LegalBases {
		if b == tag {
			return true
		}
	}
	return false
}

// DataCategory is one group of personal data fields inside an activity.
// DiscoveredFields/IncludedFields record filter scope for MPS transparency.
type DataCategory struct {
	ID               string    `json:"id"`
	Name             i18n.Text `json:"name"`
	Type             string    `json:"type"`
	Fields           []string  `json:"fields,omitempty"`
	Sensitive        bool      `json:"sensitive"`
	DiscoveredFields int       `json:"discovered_fields,omitempty"`
	IncludedFields   int       `json:"included_fields,omitempty"`
}

// SubjectCategory tags who the data is about.
type SubjectCategory string

const (
	SubjectCustomers       SubjectCategory = "customers"
	SubjectEmployees       SubjectCategory = "employees"
	SubjectSuppliers       SubjectCategory = "suppliers"
	SubjectPartners        SubjectCategory = "partners"
	SubjectWebsiteVisitors SubjectCategory = "website_visitors"
	SubjectChildren        SubjectCategory = "children"
)

// DataSubject describes one subject group.
type DataSubject struct {
	ID              string          `json:"id"`
	Category        SubjectCategory `json:"category"`
	EstimatedCount  int64           `json:"estimated_count,omitempty"`
	ChildrenUnder16 bool            `json:"children_under_16"`
	Vulnerable      bool            `json:"vulnerable"`
}

// RecipientType tags who receives the data.
type RecipientType string

const (
	RecipientController      RecipientType = "controller"
	RecipientProcessor       RecipientType = "processor"
	RecipientThirdParty      RecipientType = "third_party"
	RecipientPublicAuthority RecipientType = "public_authority"
	RecipientForeignEntity   RecipientType = "foreign_entity"
)

// DataRecipient describes one receiving party. A non-VN country implies
// cross-border transfer with mechanism and safeguards required.
type DataRecipient struct {
	ID                string        `json:"id"`
	Name              i18n.Text     `json:"name"`
	Type              RecipientType `json:"type"`
	Country           string        `json:"country"`
	CrossBorder       bool          `json:"cross_border"`
	TransferMechanism string        `json:"transfer_mechanism,omitempty"`
	Safeguards        i18n.Text     `json:"safeguards,omitzero"`
}

// DataRetention is the activity's retention policy (one per activity).
type DataRetention struct {
	Period            i18n.Text `json:"period"`
	Days              int       `json:"days,omitempty"`
	DeletionProcedure i18n.Text `json:"deletion_procedure,omitzero"`
	ReviewCadence     string    `json:"review_cadence,omitempty"`
}

// SecurityMeasure is one safeguard applied to the activity's data.
type SecurityMeasure struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Name i18n.Text `json:"name"`
}

// ProcessingLocation records where processing physically happens.
type ProcessingLocation struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Country       string `json:"country"`
	Region        string `json:"region,omitempty"`
	CloudProvider string `json:"cloud_provider,omitempty"`
	CloudRegion   string `json:"cloud_region,omitempty"`
}

// ProcessingActivity is the ROPA root entity. Child collections are stored
// and updated with the activity as one unit.
type ProcessingActivity struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Name       i18n.Text      `json:"name"`
	Purpose    i18n.Text      `json:"purpose"`
	LegalBasis string         `json:"legal_basis"`
	Status     ActivityStatus `json:"status"`

	Categories       []DataCategory       `json:"data_categories,omitempty"`
	Subjects         []DataSubject        `json:"data_subjects,omitempty"`
	Recipients       []DataRecipient      `json:"data_recipients,omitempty"`
	Retention        *DataRetention       `json:"retention,omitempty"`
	SecurityMeasures []SecurityMeasure    `json:"security_measures,omitempty"`
	Locations        []ProcessingLocation `json:"processing_locations,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the invariants enforced on every write.
func (a *ProcessingActivity) Validate() error {
	if a.TenantID == "" {
		return errors.New("store: tenant_id required")
	}
	if a.Name.Vi == "" {
		return errors.New("store: activity name (vi) required")
	}
	if !ValidLegalBasis(a.LegalBasis) {
		return errors.New("store: unknown legal basis " + a.LegalBasis)
	}
	for i := range a.Recipients {
		r := &a.Recipients[i]
		if r.Name.Vi == "" {
			return errors.New("store: recipient name (vi) required")
		}
		if r.Country != "" && r.Country != "VN" {
			r.CrossBorder = true
		}
	}
	return nil
}

// Actor identifies who performed a mutation, for the audit trail.
type Actor struct {
	UserID    string
	IPAddress string
}

// Service is the persistence contract. Every read and write is scoped to a
// tenant; an entity belonging to another tenant is ErrNotFound, never a leak.
type Service interface {
	CreateActivity(ctx context.Context, a ProcessingActivity, actor Actor) (ProcessingActivity, error)
	GetActivity(ctx context.Context, tenantID, id string) (ProcessingActivity, error)
	ListActivities(ctx context.Context, tenantID string, includeInactive bool) ([]ProcessingActivity, error)
	UpdateActivity(ctx context.Context, a ProcessingActivity, actor Actor) (ProcessingActivity, error)
	DeleteActivity(ctx context.Context, tenantID, id string, actor Actor) error
	Close() error
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxPhotos is the hard cap on photo attachments per report.
const MaxPhotos = 5

// ReportStatus is the lifecycle state of a service report.
type ReportStatus string

const (
	StatusReported   ReportStatus = "reported"
	StatusScheduled  ReportStatus = "scheduled"
	StatusInProgress ReportStatus = "in_progress"
	StatusCompleted  ReportStatus = "completed"
)

// IsValid reports whether the status is one of the known lifecycle states
func (s ReportStatus) IsValid() bool {
	switch s {
	case StatusReported, StatusScheduled, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ReportPriority is how urgently a service call should be handled.
type ReportPriority string

const (
	PriorityUrgent   ReportPriority = "URGENT"
	PrioritySameWeek ReportPriority = "SAME WEEK"
	PriorityNextWeek ReportPriority = "NEXT WEEK"
)

// IsValid reports whether the priority is one of the known values
func (p ReportPriority) IsValid() bool {
	switch p {
	case PriorityUrgent, PrioritySameWeek, PriorityNextWeek:
		return true
	}
	return false
}

// ModificationEntry is one immutable audit record describing what changed
// on a report, by whom, and when.
type ModificationEntry struct {
	ModifiedAt     time.Time `json:"modified_at"`
	ModifiedBy     string    `json:"modified_by"`
	ModifiedByRole UserRole  `json:"modified_by_role"`
	Changes        []string  `json:"changes"`
}

// ServiceReport is the central entity: one maintenance visit request
// tracked from the initial report through completion.
//
// GrossProfit is never persisted. It is recomputed from TotalCost and
// PartsCost on every read so a stale client-held value can never drift
// into storage.
type ServiceReport struct {
	ID                  string                                   `gorm:"primaryKey;size:36" json:"id"`
	ClientID            string                                   `gorm:"not null;index;size:36" json:"client_id"`
	ClientName          string                                   `json:"client_name"`
	EmployeeID          string                                   `gorm:"not null;index;size:36" json:"employee_id"`
	EmployeeName        string                                   `json:"employee_name"`
	Description         string                                   `gorm:"type:text;not null" json:"description"`
	Priority            ReportPriority                           `gorm:"not null" json:"priority"`
	Status              ReportStatus                             `gorm:"not null;default:'reported'" json:"status"`
	Photos              datatypes.JSONSlice[string]              `json:"photos"`
	EmployeeNotes       string                                   `gorm:"type:text" json:"employee_notes"`
	AdminNotes          string                                   `gorm:"type:text" json:"admin_notes"`
	TotalCost           *float64                                 `json:"total_cost"`
	PartsCost           *float64                                 `json:"parts_cost"`
	GrossProfit         float64                                  `gorm:"-" json:"gross_profit"`
	RequestDate         time.Time                                `json:"request_date"`
	CompletionDate      *time.Time                               `json:"completion_date"`
	ModificationHistory datatypes.JSONSlice[ModificationEntry]   `json:"modification_history"`
	CreatedAt           time.Time                                `json:"created_at"`
	UpdatedAt           time.Time                                `json:"last_modified"`
	DeletedAt           gorm.DeletedAt                           `gorm:"index" json:"-"`
}

// TableName specifies the table name for the ServiceReport model
func (ServiceReport) TableName() string {
	return "service_reports"
}

// BeforeCreate assigns an ID when none was provided
func (r *ServiceReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// AfterFind recomputes derived fields so reads never trust a stored value
func (r *ServiceReport) AfterFind(tx *gorm.DB) error {
	r.Recompute()
	return nil
}

// Recompute refreshes GrossProfit from the cost operands.
func (r *ServiceReport) Recompute() {
	r.GrossProfit = DeriveGrossProfit(r.TotalCost, r.PartsCost)
}

// Clone returns a deep copy of the report. Patch application works on
// copies so the audit diff always compares two independent values.
func (r *ServiceReport) Clone() *ServiceReport {
	clone := *r

	clone.Photos = make(datatypes.JSONSlice[string], len(r.Photos))
	copy(clone.Photos, r.Photos)

	clone.ModificationHistory = make(datatypes.JSONSlice[ModificationEntry], len(r.ModificationHistory))
	for i, entry := range r.ModificationHistory {
		changes := make([]string, len(entry.Changes))
		copy(changes, entry.Changes)
		entry.Changes = changes
		clone.ModificationHistory[i] = entry
	}

	if r.TotalCost != nil {
		v := *r.TotalCost
		clone.TotalCost = &v
	}
	if r.PartsCost != nil {
		v := *r.PartsCost
		clone.PartsCost = &v
	}
	if r.CompletionDate != nil {
		v := *r.CompletionDate
		clone.CompletionDate = &v
	}

	return &clone
}

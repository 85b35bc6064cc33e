package services

import (
	"github.com/poolworks/poolcare-api/models"
)

// Mutable report field names as they appear in patches, gate errors and
// audit entries.
const (
	FieldDescription   = "description"
	FieldPriority      = "priority"
	FieldPhotos        = "photos"
	FieldEmployeeNotes = "employee_notes"
	FieldAdminNotes    = "admin_notes"
	FieldTotalCost     = "total_cost"
	FieldPartsCost     = "parts_cost"
	FieldStatus        = "status"
)

// PatchOp is one variant of a report patch. The access gate matches on the
// concrete variant rather than inspecting arbitrary key presence, so a
// loosely-typed patch object can never slip an unauthorized field through.
type PatchOp interface {
	isPatchOp()
}

// StatusChange moves the report to another lifecycle state.
type StatusChange struct {
	Status models.ReportStatus
}

func (StatusChange) isPatchOp() {}

// NotesChange replaces one of the free-text notes fields. Field must be
// FieldEmployeeNotes or FieldAdminNotes.
type NotesChange struct {
	Field string
	Value string
}

func (NotesChange) isPatchOp() {}

// FinancialChange sets the cost estimate and/or the cost of service.
type FinancialChange struct {
	TotalCost *float64
	PartsCost *float64
}

func (FinancialChange) isPatchOp() {}

// ContentEdit updates the descriptive fields of the report.
type ContentEdit struct {
	Description *string
	Priority    *models.ReportPriority
	Photos      *[]string
}

func (ContentEdit) isPatchOp() {}

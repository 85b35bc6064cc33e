package services

import (
	"github.com/poolworks/poolcare-api/models"
)

// Authorize checks every op in a patch against the actor's role before any
// of them is applied. A single violation rejects the whole patch, so a
// partially-permitted update can never be applied silently.
func Authorize(actor *models.User, report *models.ServiceReport, ops []PatchOp) error {
	for _, op := range ops {
		switch v := op.(type) {
		case StatusChange:
			if !actor.IsAdministrator() {
				return &PermissionError{Field: FieldStatus, RequiredRole: models.RoleAdministrator}
			}
		case FinancialChange:
			if !actor.IsAdministrator() {
				field := FieldTotalCost
				if v.TotalCost == nil && v.PartsCost != nil {
					field = FieldPartsCost
				}
				return &PermissionError{Field: field, RequiredRole: models.RoleAdministrator}
			}
		case NotesChange:
			if v.Field == FieldAdminNotes {
				if !actor.IsAdministrator() {
					return &PermissionError{Field: FieldAdminNotes, RequiredRole: models.RoleAdministrator}
				}
			} else if !canEditContent(actor, report) {
				return &PermissionError{Field: v.Field, RequiredRole: models.RoleAdministrator}
			}
		case ContentEdit:
			if !canEditContent(actor, report) {
				return &PermissionError{Field: contentEditField(v), RequiredRole: models.RoleAdministrator}
			}
		}
	}
	return nil
}

// canEditContent reports whether the actor may touch the descriptive fields:
// the creating employee or any administrator.
func canEditContent(actor *models.User, report *models.ServiceReport) bool {
	return actor.IsAdministrator() || actor.ID == report.EmployeeID
}

// contentEditField names the first field a ContentEdit touches, for the
// PermissionError.
func contentEditField(edit ContentEdit) string {
	switch {
	case edit.Description != nil:
		return FieldDescription
	case edit.Priority != nil:
		return FieldPriority
	case edit.Photos != nil:
		return FieldPhotos
	}
	return FieldDescription
}

// Scrub hides admin-only fields from a report rendered to a non-admin.
// The gate is dual-purpose: it protects writes and it removes admin_notes
// and the financial fields from reads entirely.
func Scrub(actor *models.User, report *models.ServiceReport) {
	if actor.IsAdministrator() {
		return
	}
	report.AdminNotes = ""
	report.TotalCost = nil
	report.PartsCost = nil
	report.GrossProfit = 0
}

// ScrubAll applies Scrub to a slice of reports in place.
func ScrubAll(actor *models.User, reports []models.ServiceReport) {
	for i := range reports {
		Scrub(actor, &reports[i])
	}
}

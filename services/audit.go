package services

import (
	"fmt"
	"time"

	"github.com/poolworks/poolcare-api/models"
)

// DescribeChanges compares two report values structurally and renders one
// human-readable description per changed field. Derived fields
// (gross_profit) and bookkeeping fields (last_modified,
// modification_history) are excluded, so an idempotent update yields an
// empty slice and no audit entry.
func DescribeChanges(before, after *models.ServiceReport) []string {
	var changes []string

	if before.Description != after.Description {
		changes = append(changes, "description updated")
	}
	if before.Priority != after.Priority {
		changes = append(changes, fmt.Sprintf("priority: %s → %s", before.Priority, after.Priority))
	}
	if !photosEqual(before.Photos, after.Photos) {
		changes = append(changes, fmt.Sprintf("photos updated (%d)", len(after.Photos)))
	}
	if before.Status != after.Status {
		changes = append(changes, fmt.Sprintf("status: %s → %s", before.Status, after.Status))
	}
	if before.CompletionDate == nil && after.CompletionDate != nil {
		changes = append(changes, "completion_date set")
	}
	if before.EmployeeNotes != after.EmployeeNotes {
		changes = append(changes, "employee_notes updated")
	}
	if before.AdminNotes != after.AdminNotes {
		changes = append(changes, "admin_notes updated")
	}
	if desc := describeMoneyChange(FieldTotalCost, before.TotalCost, after.TotalCost); desc != "" {
		changes = append(changes, desc)
	}
	if desc := describeMoneyChange(FieldPartsCost, before.PartsCost, after.PartsCost); desc != "" {
		changes = append(changes, desc)
	}

	return changes
}

// NewModificationEntry stamps a set of change descriptions with the acting
// user's identity, role and the current time.
func NewModificationEntry(actor *models.User, changes []string) models.ModificationEntry {
	return models.ModificationEntry{
		ModifiedAt:     time.Now().UTC(),
		ModifiedBy:     actor.Username,
		ModifiedByRole: actor.Role,
		Changes:        changes,
	}
}

func describeMoneyChange(field string, before, after *float64) string {
	switch {
	case before == nil && after == nil:
		return ""
	case before == nil:
		return fmt.Sprintf("%s set to %.2f", field, *after)
	case after == nil:
		return fmt.Sprintf("%s cleared", field)
	case *before != *after:
		return fmt.Sprintf("%s: %.2f → %.2f", field, *before, *after)
	}
	return ""
}

func photosEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/poolworks/poolcare-api/models"
)

// CreateReportInput carries the fields an employee supplies when reporting
// a service call.
type CreateReportInput struct {
	ClientID    string
	Description string
	Priority    models.ReportPriority
	Photos      []string
}

// CreateReport validates the input, resolves the client, and persists a new
// report with status "reported" and the acting user stamped as creator.
func CreateReport(db *gorm.DB, actor *models.User, input CreateReportInput) (*models.ServiceReport, error) {
	if strings.TrimSpace(input.Description) == "" {
		return nil, &ValidationError{Field: FieldDescription, Message: "description is required"}
	}
	if !input.Priority.IsValid() {
		return nil, &ValidationError{Field: FieldPriority, Message: "priority must be URGENT, SAME WEEK or NEXT WEEK"}
	}
	if len(input.Photos) > models.MaxPhotos {
		return nil, &ValidationError{Field: FieldPhotos, Message: "a report may carry at most 5 photos"}
	}

	var client models.Client
	if err := db.First(&client, "id = ?", input.ClientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &ValidationError{Field: "client_id", Message: "client not found"}
		}
		return nil, err
	}

	now := time.Now().UTC()
	report := &models.ServiceReport{
		ID:           uuid.NewString(),
		ClientID:     client.ID,
		ClientName:   client.Name,
		EmployeeID:   actor.ID,
		EmployeeName: actor.Username,
		Description:  input.Description,
		Priority:     input.Priority,
		Status:       models.StatusReported,
		Photos:       input.Photos,
		RequestDate:  now,
	}

	if ps := GetPhotoService(); ps != nil && len(report.Photos) > 0 {
		stored, err := ps.Offload(report.ID, report.Photos)
		if err != nil {
			return nil, err
		}
		report.Photos = stored
	}

	if err := db.Create(report).Error; err != nil {
		return nil, err
	}

	report.Recompute()
	return report, nil
}

// ApplyPatch applies a set of patch ops to a report and returns the new
// value together with the change descriptions for the audit trail. The
// input report is never mutated; the diff is computed between the original
// and the copy so it can be trusted.
//
// Validation failures reject the whole patch before anything is reported
// as changed.
func ApplyPatch(report *models.ServiceReport, ops []PatchOp, actor *models.User) (*models.ServiceReport, []string, error) {
	updated := report.Clone()

	for _, op := range ops {
		if err := applyOp(updated, op); err != nil {
			return nil, nil, err
		}
	}

	updated.Recompute()
	changes := DescribeChanges(report, updated)
	return updated, changes, nil
}

func applyOp(report *models.ServiceReport, op PatchOp) error {
	switch v := op.(type) {
	case StatusChange:
		return applyStatusChange(report, v)
	case NotesChange:
		switch v.Field {
		case FieldEmployeeNotes:
			report.EmployeeNotes = v.Value
		case FieldAdminNotes:
			report.AdminNotes = v.Value
		default:
			return &ValidationError{Field: v.Field, Message: "unknown notes field"}
		}
	case FinancialChange:
		if v.TotalCost != nil {
			if *v.TotalCost < 0 {
				return &ValidationError{Field: FieldTotalCost, Message: "must not be negative"}
			}
			amount := models.Round2(*v.TotalCost)
			report.TotalCost = &amount
		}
		if v.PartsCost != nil {
			if *v.PartsCost < 0 {
				return &ValidationError{Field: FieldPartsCost, Message: "must not be negative"}
			}
			amount := models.Round2(*v.PartsCost)
			report.PartsCost = &amount
		}
	case ContentEdit:
		if v.Description != nil {
			if strings.TrimSpace(*v.Description) == "" {
				return &ValidationError{Field: FieldDescription, Message: "description is required"}
			}
			report.Description = *v.Description
		}
		if v.Priority != nil {
			if !v.Priority.IsValid() {
				return &ValidationError{Field: FieldPriority, Message: "priority must be URGENT, SAME WEEK or NEXT WEEK"}
			}
			report.Priority = *v.Priority
		}
		if v.Photos != nil {
			if len(*v.Photos) > models.MaxPhotos {
				return &ValidationError{Field: FieldPhotos, Message: "a report may carry at most 5 photos"}
			}
			report.Photos = *v.Photos
		}
	}
	return nil
}

// applyStatusChange moves the report to another lifecycle state. Any valid
// target status is accepted for an administrator, sequential or not; the
// first entry into "completed" stamps the completion date and a repeat
// entry never overwrites it.
func applyStatusChange(report *models.ServiceReport, change StatusChange) error {
	if !change.Status.IsValid() {
		return &ValidationError{Field: FieldStatus, Message: "unknown status"}
	}
	report.Status = change.Status
	if change.Status == models.StatusCompleted && report.CompletionDate == nil {
		now := time.Now().UTC()
		report.CompletionDate = &now
	}
	return nil
}

// UpdateReport runs the whole accepted-mutation pipeline: load, authorize,
// apply, audit, persist. An idempotent patch (nothing actually changed)
// appends no audit entry and issues no write at all.
func UpdateReport(db *gorm.DB, actor *models.User, reportID string, ops []PatchOp) (*models.ServiceReport, error) {
	var report models.ServiceReport
	if err := db.First(&report, "id = ?", reportID).Error; err != nil {
		return nil, err
	}

	if err := Authorize(actor, &report, ops); err != nil {
		return nil, err
	}

	// Offload replacement photos before the diff so the stored entries are
	// what the audit trail compares against
	if ps := GetPhotoService(); ps != nil {
		for i, op := range ops {
			edit, ok := op.(ContentEdit)
			if !ok || edit.Photos == nil {
				continue
			}
			stored, err := ps.Offload(report.ID, *edit.Photos)
			if err != nil {
				return nil, err
			}
			edit.Photos = &stored
			ops[i] = edit
		}
	}

	updated, changes, err := ApplyPatch(&report, ops, actor)
	if err != nil {
		return nil, err
	}

	if len(changes) == 0 {
		report.Recompute()
		return &report, nil
	}

	updated.ModificationHistory = append(updated.ModificationHistory, NewModificationEntry(actor, changes))
	if err := db.Save(updated).Error; err != nil {
		return nil, err
	}

	updated.Recompute()
	return updated, nil
}

// CheckUnmodifiedSince is the optimistic-concurrency hook: callers that
// carry the last_modified timestamp they based their edit on can reject
// the update when the report moved on in the meantime.
func CheckUnmodifiedSince(report *models.ServiceReport, expected time.Time) error {
	if !report.UpdatedAt.Equal(expected) {
		return &ConflictError{Message: "report was modified by someone else"}
	}
	return nil
}

package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/poolworks/poolcare-api/models"
)

func setupReportTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Client{}, &models.ServiceReport{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	SetPhotoService(&InlinePhotoService{})
	return db
}

func seedReportFixtures(t *testing.T, db *gorm.DB) (*models.User, *models.User, *models.Client) {
	admin := &models.User{Username: "admin", PasswordHash: "x", Role: models.RoleAdministrator}
	employee := &models.User{Username: "jorge", PasswordHash: "x", Role: models.RoleEmployee}
	client := &models.Client{Name: "Lakeside HOA", Address: "12 Shore Dr"}

	for _, record := range []interface{}{admin, employee, client} {
		if err := db.Create(record).Error; err != nil {
			t.Fatalf("Failed to seed fixture: %v", err)
		}
	}
	return admin, employee, client
}

func TestCreateReport(t *testing.T) {
	db := setupReportTestDB(t)
	_, employee, client := seedReportFixtures(t, db)

	tests := []struct {
		name          string
		input         CreateReportInput
		expectedField string // empty means success
	}{
		{
			name: "valid report",
			input: CreateReportInput{
				ClientID:    client.ID,
				Description: "green water, needs shock treatment",
				Priority:    models.PriorityUrgent,
				Photos:      []string{"photo-1", "photo-2"},
			},
		},
		{
			name: "missing description",
			input: CreateReportInput{
				ClientID: client.ID,
				Priority: models.PriorityUrgent,
			},
			expectedField: FieldDescription,
		},
		{
			name: "whitespace description",
			input: CreateReportInput{
				ClientID:    client.ID,
				Description: "   ",
				Priority:    models.PriorityUrgent,
			},
			expectedField: FieldDescription,
		},
		{
			name: "invalid priority",
			input: CreateReportInput{
				ClientID:    client.ID,
				Description: "green water",
				Priority:    models.ReportPriority("ASAP"),
			},
			expectedField: FieldPriority,
		},
		{
			name: "too many photos",
			input: CreateReportInput{
				ClientID:    client.ID,
				Description: "green water",
				Priority:    models.PriorityUrgent,
				Photos:      []string{"1", "2", "3", "4", "5", "6"},
			},
			expectedField: FieldPhotos,
		},
		{
			name: "unknown client",
			input: CreateReportInput{
				ClientID:    "no-such-client",
				Description: "green water",
				Priority:    models.PriorityUrgent,
			},
			expectedField: "client_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := CreateReport(db, employee, tt.input)

			if tt.expectedField != "" {
				var valErr *ValidationError
				assert.ErrorAs(t, err, &valErr)
				assert.Equal(t, tt.expectedField, valErr.Field)
				return
			}

			assert.NoError(t, err)
			assert.NotEmpty(t, report.ID)
			assert.Equal(t, models.StatusReported, report.Status)
			assert.Equal(t, client.ID, report.ClientID)
			assert.Equal(t, client.Name, report.ClientName)
			assert.Equal(t, employee.ID, report.EmployeeID)
			assert.Equal(t, employee.Username, report.EmployeeName)
			assert.False(t, report.RequestDate.IsZero())
			assert.Nil(t, report.CompletionDate)
			assert.Empty(t, report.ModificationHistory)

			var stored models.ServiceReport
			assert.NoError(t, db.First(&stored, "id = ?", report.ID).Error)
		})
	}
}

func TestApplyPatchDoesNotMutateOriginal(t *testing.T) {
	actor := &models.User{ID: "emp-1", Username: "jorge", Role: models.RoleEmployee}
	report := &models.ServiceReport{
		ID:          "r1",
		Description: "green water",
		Priority:    models.PriorityNextWeek,
		Status:      models.StatusReported,
	}

	updated, changes, err := ApplyPatch(report, []PatchOp{
		NotesChange{Field: FieldEmployeeNotes, Value: "shocked the pool"},
	}, actor)

	assert.NoError(t, err)
	assert.Equal(t, []string{"employee_notes updated"}, changes)
	assert.Equal(t, "shocked the pool", updated.EmployeeNotes)
	assert.Empty(t, report.EmployeeNotes)
}

func TestApplyPatchIdempotent(t *testing.T) {
	actor := &models.User{ID: "emp-1", Username: "jorge", Role: models.RoleEmployee}
	report := &models.ServiceReport{
		ID:            "r1",
		Description:   "green water",
		Priority:      models.PriorityNextWeek,
		Status:        models.StatusReported,
		EmployeeNotes: "shocked the pool",
	}

	_, changes, err := ApplyPatch(report, []PatchOp{
		NotesChange{Field: FieldEmployeeNotes, Value: "shocked the pool"},
		ContentEdit{Description: strPtr("green water")},
	}, actor)

	assert.NoError(t, err)
	assert.Empty(t, changes)
}

func TestApplyPatchValidation(t *testing.T) {
	actor := &models.User{ID: "admin-1", Username: "admin", Role: models.RoleAdministrator}

	tests := []struct {
		name          string
		ops           []PatchOp
		expectedField string
	}{
		{"negative total cost", []PatchOp{FinancialChange{TotalCost: money(-1)}}, FieldTotalCost},
		{"negative parts cost", []PatchOp{FinancialChange{PartsCost: money(-0.01)}}, FieldPartsCost},
		{"empty description", []PatchOp{ContentEdit{Description: strPtr("  ")}}, FieldDescription},
		{"invalid priority", []PatchOp{ContentEdit{Priority: priorityPtr("TOMORROW")}}, FieldPriority},
		{"too many photos", []PatchOp{ContentEdit{Photos: photosPtr("1", "2", "3", "4", "5", "6")}}, FieldPhotos},
		{"unknown notes field", []PatchOp{NotesChange{Field: "secret_notes", Value: "x"}}, "secret_notes"},
		{"unknown status", []PatchOp{StatusChange{Status: models.ReportStatus("done")}}, FieldStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &models.ServiceReport{Description: "green water", Priority: models.PriorityUrgent, Status: models.StatusReported}

			updated, changes, err := ApplyPatch(report, tt.ops, actor)

			var valErr *ValidationError
			assert.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.expectedField, valErr.Field)
			assert.Nil(t, updated)
			assert.Nil(t, changes)
		})
	}
}

func TestApplyPatchRejectsWholePatchOnOneBadOp(t *testing.T) {
	actor := &models.User{ID: "admin-1", Username: "admin", Role: models.RoleAdministrator}
	report := &models.ServiceReport{Description: "green water", Priority: models.PriorityUrgent, Status: models.StatusReported}

	updated, _, err := ApplyPatch(report, []PatchOp{
		NotesChange{Field: FieldAdminNotes, Value: "valid part"},
		FinancialChange{TotalCost: money(-10)},
	}, actor)

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
	assert.Nil(t, updated)
	assert.Empty(t, report.AdminNotes)
}

func TestCompletionDateStampedOnce(t *testing.T) {
	actor := &models.User{ID: "admin-1", Username: "admin", Role: models.RoleAdministrator}
	report := &models.ServiceReport{Description: "filter swap", Priority: models.PriorityNextWeek, Status: models.StatusInProgress}

	completed, changes, err := ApplyPatch(report, []PatchOp{StatusChange{Status: models.StatusCompleted}}, actor)
	assert.NoError(t, err)
	assert.NotNil(t, completed.CompletionDate)
	assert.Contains(t, changes, "completion_date set")
	firstCompletion := *completed.CompletionDate

	// Move backwards, then complete again: the original date survives
	reopened, _, err := ApplyPatch(completed, []PatchOp{StatusChange{Status: models.StatusInProgress}}, actor)
	assert.NoError(t, err)
	assert.Equal(t, firstCompletion, *reopened.CompletionDate)

	recompleted, changes, err := ApplyPatch(reopened, []PatchOp{StatusChange{Status: models.StatusCompleted}}, actor)
	assert.NoError(t, err)
	assert.Equal(t, firstCompletion, *recompleted.CompletionDate)
	assert.NotContains(t, changes, "completion_date set")
}

func TestUpdateReportFinancials(t *testing.T) {
	db := setupReportTestDB(t)
	admin, employee, client := seedReportFixtures(t, db)

	report, err := CreateReport(db, employee, CreateReportInput{
		ClientID:    client.ID,
		Description: "heater not firing",
		Priority:    models.PrioritySameWeek,
	})
	assert.NoError(t, err)

	updated, err := UpdateReport(db, admin, report.ID, []PatchOp{
		FinancialChange{TotalCost: money(150.00), PartsCost: money(40.00)},
	})
	assert.NoError(t, err)
	assert.Equal(t, 150.00, *updated.TotalCost)
	assert.Equal(t, 40.00, *updated.PartsCost)
	assert.Equal(t, 110.00, updated.GrossProfit)

	// One audit entry stamped with the acting admin
	assert.Len(t, updated.ModificationHistory, 1)
	entry := updated.ModificationHistory[0]
	assert.Equal(t, "admin", entry.ModifiedBy)
	assert.Equal(t, models.RoleAdministrator, entry.ModifiedByRole)
	assert.Equal(t, []string{"total_cost set to 150.00", "parts_cost set to 40.00"}, entry.Changes)

	var stored models.ServiceReport
	assert.NoError(t, db.First(&stored, "id = ?", report.ID).Error)
	assert.Equal(t, 110.00, stored.GrossProfit)
	assert.Len(t, stored.ModificationHistory, 1)
}

func TestUpdateReportIdempotentPatchWritesNothing(t *testing.T) {
	db := setupReportTestDB(t)
	admin, employee, client := seedReportFixtures(t, db)

	report, err := CreateReport(db, employee, CreateReportInput{
		ClientID:    client.ID,
		Description: "heater not firing",
		Priority:    models.PrioritySameWeek,
	})
	assert.NoError(t, err)

	_, err = UpdateReport(db, admin, report.ID, []PatchOp{
		NotesChange{Field: FieldAdminNotes, Value: "quoted 150"},
	})
	assert.NoError(t, err)

	// Replaying the identical patch changes nothing and leaves no trace
	updated, err := UpdateReport(db, admin, report.ID, []PatchOp{
		NotesChange{Field: FieldAdminNotes, Value: "quoted 150"},
	})
	assert.NoError(t, err)
	assert.Len(t, updated.ModificationHistory, 1)

	var stored models.ServiceReport
	assert.NoError(t, db.First(&stored, "id = ?", report.ID).Error)
	assert.Len(t, stored.ModificationHistory, 1)
}

func TestUpdateReportPermissionDeniedLeavesReportUntouched(t *testing.T) {
	db := setupReportTestDB(t)
	_, employee, client := seedReportFixtures(t, db)

	report, err := CreateReport(db, employee, CreateReportInput{
		ClientID:    client.ID,
		Description: "heater not firing",
		Priority:    models.PrioritySameWeek,
	})
	assert.NoError(t, err)

	_, err = UpdateReport(db, employee, report.ID, []PatchOp{
		NotesChange{Field: FieldEmployeeNotes, Value: "swapped igniter"},
		StatusChange{Status: models.StatusCompleted},
	})

	var permErr *PermissionError
	assert.ErrorAs(t, err, &permErr)

	var stored models.ServiceReport
	assert.NoError(t, db.First(&stored, "id = ?", report.ID).Error)
	assert.Equal(t, models.StatusReported, stored.Status)
	assert.Empty(t, stored.EmployeeNotes)
	assert.Empty(t, stored.ModificationHistory)
}

func TestUpdateReportNotFound(t *testing.T) {
	db := setupReportTestDB(t)
	admin, _, _ := seedReportFixtures(t, db)

	_, err := UpdateReport(db, admin, "no-such-report", []PatchOp{
		NotesChange{Field: FieldAdminNotes, Value: "x"},
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCheckUnmodifiedSince(t *testing.T) {
	now := time.Now()
	report := &models.ServiceReport{UpdatedAt: now}

	assert.NoError(t, CheckUnmodifiedSince(report, now))

	var conflict *ConflictError
	err := CheckUnmodifiedSince(report, now.Add(-time.Second))
	assert.ErrorAs(t, err, &conflict)
}

func priorityPtr(p models.ReportPriority) *models.ReportPriority {
	return &p
}

func photosPtr(photos ...string) *[]string {
	return &photos
}

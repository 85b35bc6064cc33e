package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/poolworks/poolcare-api/config"
	"github.com/poolworks/poolcare-api/middleware"
	"github.com/poolworks/poolcare-api/models"
	"github.com/poolworks/poolcare-api/services"
)

// CreateReportRequest represents the request body for creating a service report
type CreateReportRequest struct {
	ClientID    string   `json:"client_id" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Priority    string   `json:"priority" binding:"required"`
	Photos      []string `json:"photos" binding:"omitempty"`
}

// UpdateReportRequest represents a partial patch to a service report. Any
// subset of the mutable fields may be present; absent fields are untouched.
type UpdateReportRequest struct {
	Description   *string   `json:"description"`
	Priority      *string   `json:"priority"`
	Photos        *[]string `json:"photos"`
	EmployeeNotes *string   `json:"employee_notes"`
	AdminNotes    *string   `json:"admin_notes"`
	TotalCost     *float64  `json:"total_cost"`
	PartsCost     *float64  `json:"parts_cost"`
	Status        *string   `json:"status"`

	// ExpectedLastModified, when present, rejects the patch with a conflict
	// if the report changed since the caller last read it
	ExpectedLastModified *time.Time `json:"expected_last_modified"`
}

// CreateReport handles POST /api/v1/reports - reports a new service call
func CreateReport(c *gin.Context) {
	actor, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()
	report, err := services.CreateReport(db, actor, services.CreateReportInput{
		ClientID:    req.ClientID,
		Description: req.Description,
		Priority:    models.ReportPriority(req.Priority),
		Photos:      req.Photos,
	})
	if err != nil {
		respondReportError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    report,
	})
}

// ListReports handles GET /api/v1/reports - administrators see every
// report, employees only their own. Admin-only fields are removed from the
// response for non-administrators, not merely write-protected.
func ListReports(c *gin.Context) {
	actor, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	db := config.GetDB()
	query := db.Order("created_at desc")
	if !actor.IsAdministrator() {
		query = query.Where("employee_id = ?", actor.ID)
	}

	var reports []models.ServiceReport
	if err := query.Find(&reports).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load reports",
			},
		})
		return
	}

	services.ScrubAll(actor, reports)

	if ps := services.GetPhotoService(); ps != nil {
		for i := range reports {
			resolved, err := ps.Resolve(reports[i].Photos)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "PHOTO_ERROR",
						"message": "Failed to resolve report photos",
					},
				})
				return
			}
			reports[i].Photos = resolved
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reports,
	})
}

// UpdateReport handles PUT /api/v1/reports/:id - applies a partial patch
// through the access gate and the lifecycle engine
func UpdateReport(c *gin.Context) {
	actor, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	var req UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()
	reportID := c.Param("id")

	if req.ExpectedLastModified != nil {
		var current models.ServiceReport
		if err := db.First(&current, "id = ?", reportID).Error; err != nil {
			respondReportError(c, err)
			return
		}
		if err := services.CheckUnmodifiedSince(&current, *req.ExpectedLastModified); err != nil {
			respondReportError(c, err)
			return
		}
	}

	report, err := services.UpdateReport(db, actor, reportID, buildPatchOps(req))
	if err != nil {
		respondReportError(c, err)
		return
	}

	services.Scrub(actor, report)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

// buildPatchOps translates a partial update request into typed patch ops
// for the gate to match on
func buildPatchOps(req UpdateReportRequest) []services.PatchOp {
	var ops []services.PatchOp

	if req.Description != nil || req.Priority != nil || req.Photos != nil {
		edit := services.ContentEdit{
			Description: req.Description,
			Photos:      req.Photos,
		}
		if req.Priority != nil {
			priority := models.ReportPriority(*req.Priority)
			edit.Priority = &priority
		}
		ops = append(ops, edit)
	}
	if req.EmployeeNotes != nil {
		ops = append(ops, services.NotesChange{Field: services.FieldEmployeeNotes, Value: *req.EmployeeNotes})
	}
	if req.AdminNotes != nil {
		ops = append(ops, services.NotesChange{Field: services.FieldAdminNotes, Value: *req.AdminNotes})
	}
	if req.TotalCost != nil || req.PartsCost != nil {
		ops = append(ops, services.FinancialChange{TotalCost: req.TotalCost, PartsCost: req.PartsCost})
	}
	if req.Status != nil {
		ops = append(ops, services.StatusChange{Status: models.ReportStatus(*req.Status)})
	}

	return ops
}

// respondReportError maps engine errors onto the API error envelope
func respondReportError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var permissionErr *services.PermissionError
	var conflictErr *services.ConflictError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": validationErr.Error(),
			},
		})
	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PERMISSION_DENIED",
				"message": permissionErr.Error(),
			},
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CONFLICT",
				"message": conflictErr.Error(),
			},
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "REPORT_NOT_FOUND",
				"message": "Report not found",
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to process report",
			},
		})
	}
}

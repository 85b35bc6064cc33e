package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poolworks/poolcare-api/config"
	"github.com/poolworks/poolcare-api/models"
	"github.com/poolworks/poolcare-api/utils"
)

// CreateClientRequest represents the request body for creating a client
type CreateClientRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address" binding:"required"`
	Phone   string `json:"phone" binding:"omitempty"`
	Email   string `json:"email" binding:"omitempty,email"`
}

// CreateClient handles POST /api/v1/clients - creates a client (administrators only)
func CreateClient(c *gin.Context) {
	var req CreateClientRequest
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

	client := models.Client{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
	}

	db := config.GetDB()
	if err := db.Create(&client).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create client",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    client,
	})
}

// ListClients handles GET /api/v1/clients - lists clients alphabetically
func ListClients(c *gin.Context) {
	db := config.GetDB()
	var clients []models.Client
	if err := db.Order("name asc").Find(&clients).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load clients",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    clients,
	})
}

// DeleteClient handles DELETE /api/v1/clients/:id - removes a client (administrators only)
func DeleteClient(c *gin.Context) {
	db := config.GetDB()
	result := db.Delete(&models.Client{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete client",
			},
		})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CLIENT_NOT_FOUND",
				"message": "Client not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Client deleted successfully",
		},
	})
}

// ImportClientsExcel handles POST /api/v1/clients/import-excel - bulk
// imports clients from an uploaded .xlsx workbook (administrators only)
func ImportClientsExcel(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "An .xlsx file is required",
			},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE",
				"message": "Could not open uploaded file",
			},
		})
		return
	}
	defer file.Close()

	rows, err := utils.ParseClientRows(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "IMPORT_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()
	clients := make([]models.Client, 0, len(rows))
	for _, row := range rows {
		clients = append(clients, models.Client{Name: row.Name, Address: row.Address})
	}
	if len(clients) > 0 {
		if err := db.Create(&clients).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to import clients",
				},
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": fmt.Sprintf("Successfully imported %d clients", len(clients)),
		},
	})
}

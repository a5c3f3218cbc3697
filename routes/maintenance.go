package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/homie-api/events"
	"github.com/sidhant-sriv/homie-api/middleware"
	"github.com/sidhant-sriv/homie-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaintenanceRoutes sets up the maintenance request routes
func (h *Handler) MaintenanceRoutes(group *gin.RouterGroup, tenant, landlord []gin.HandlerFunc) {
	// Tenant routes
	group.POST("", with(tenant, middleware.WithPrincipal(h.CreateMaintenanceRequest))...)
	group.GET("/tenant", with(tenant, middleware.WithPrincipal(h.TenantMaintenanceRequests))...)

	// Landlord routes
	group.GET("/landlord", with(landlord, middleware.WithPrincipal(h.LandlordMaintenanceRequests))...)
	group.PUT("/:id/status", with(landlord, middleware.WithPrincipal(h.UpdateMaintenanceStatus))...)
}

type maintenanceRequest struct {
	PropertyID  uint                       `json:"propertyId" binding:"required"`
	Title       string                     `json:"title" binding:"required"`
	Description string                     `json:"description" binding:"required"`
	Priority    models.MaintenancePriority `json:"priority"`
}

// CreateMaintenanceRequest handles POST /api/maintenance.
func (h *Handler) CreateMaintenanceRequest(c *gin.Context, p middleware.Principal) {
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityLow
	}

	var request models.MaintenanceRequest
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		property, err := findProperty(tx, req.PropertyID)
		if err != nil {
			return err
		}
		request = models.MaintenanceRequest{
			PropertyID:  property.ID,
			TenantID:    p.UserID,
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			Priority:    req.Priority,
			Status:      models.MaintenancePending,
		}
		if err := tx.Omit(clause.Associations).Create(&request).Error; err != nil {
			return err
		}
		return notify(tx, property.LandlordID, kindMaintenanceCreated,
			fmt.Sprintf("New %s priority maintenance request for %s: %s", request.Priority, property.Title, request.Title))
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.publish(c, events.MaintenanceCreated, gin.H{
		"requestId":  request.ID,
		"propertyId": request.PropertyID,
		"tenantId":   request.TenantID,
		"priority":   request.Priority,
	})
	c.JSON(http.StatusCreated, request)
}

// TenantMaintenanceRequests lists the caller's requests, newest first.
func (h *Handler) TenantMaintenanceRequests(c *gin.Context, p middleware.Principal) {
	requests := []models.MaintenanceRequest{}
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Property").
		Where("tenant_id = ?", p.UserID).
		Order("created_at DESC").Order("id DESC").
		Find(&requests).Error
	if err != nil {
		fail(c, fmt.Errorf("list tenant maintenance requests: %w", err))
		return
	}
	c.JSON(http.StatusOK, requests)
}

// LandlordMaintenanceRequests lists requests filed against the caller's properties.
func (h *Handler) LandlordMaintenanceRequests(c *gin.Context, p middleware.Principal) {
	db := h.DB.WithContext(c.Request.Context())
	requests := []models.MaintenanceRequest{}
	err := db.Preload("Property").Preload("Tenant").
		Where("property_id IN (?)", ownedPropertyIDs(db, p.UserID)).
		Order("created_at DESC").Order("id DESC").
		Find(&requests).Error
	if err != nil {
		fail(c, fmt.Errorf("list landlord maintenance requests: %w", err))
		return
	}
	c.JSON(http.StatusOK, requests)
}

// UpdateMaintenanceStatus moves a request forward. Only the landlord owning
// the property may do so.
func (h *Handler) UpdateMaintenanceStatus(c *gin.Context, p middleware.Principal) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req struct {
		Status models.MaintenanceStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	var (
		request  models.MaintenanceRequest
		previous models.MaintenanceStatus
	)
	err = h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NotFound("Maintenance request not found")
			}
			return err
		}
		property, err := findProperty(tx, request.PropertyID)
		if err != nil {
			return err
		}
		if !property.OwnedBy(p.UserID) {
			return models.Forbidden("Not authorized to update this request")
		}
		if !request.Status.CanTransitionTo(req.Status) {
			return models.InvalidTransition(fmt.Sprintf("Cannot change maintenance status from %s to %s", request.Status, req.Status))
		}

		previous = request.Status
		if err := tx.Model(&request).Update("status", req.Status).Error; err != nil {
			return err
		}
		request.Status = req.Status
		request.Property = property
		return notify(tx, request.TenantID, kindMaintenanceUpdated,
			fmt.Sprintf("Maintenance request %q is now %s", request.Title, request.Status))
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.publish(c, events.MaintenanceStatusChanged, gin.H{
		"requestId":  request.ID,
		"propertyId": request.PropertyID,
		"tenantId":   request.TenantID,
		"from":       previous,
		"status":     request.Status,
	})
	c.JSON(http.StatusOK, request)
}

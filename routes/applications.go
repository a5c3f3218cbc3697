package routes

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/homie-api/events"
	"github.com/sidhant-sriv/homie-api/middleware"
	"github.com/sidhant-sriv/homie-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplicationRoutes sets up the rental application routes
func (h *Handler) ApplicationRoutes(group *gin.RouterGroup, tenant, landlord []gin.HandlerFunc) {
	// Tenant routes
	group.POST("", with(tenant, middleware.WithPrincipal(h.SubmitApplication))...)
	group.GET("/tenant", with(tenant, middleware.WithPrincipal(h.TenantApplications))...)

	// Landlord routes
	group.GET("/landlord", with(landlord, middleware.WithPrincipal(h.LandlordApplications))...)
	group.PUT("/:id/status", with(landlord, middleware.WithPrincipal(h.UpdateApplicationStatus))...)
}

// lockForUpdate takes a row lock on stores that support it. sqlite
// serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// ownedPropertyIDs selects the ids of the landlord's properties, for use as a subquery.
func ownedPropertyIDs(db *gorm.DB, landlordID uint) *gorm.DB {
	return db.Model(&models.Property{}).Select("id").Where("landlord_id = ?", landlordID)
}

// SubmitApplication handles POST /api/applications.
func (h *Handler) SubmitApplication(c *gin.Context, p middleware.Principal) {
	var req struct {
		PropertyID uint `json:"propertyId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	var (
		application models.Application
		property    *models.Property
	)
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		if property, err = findProperty(tx, req.PropertyID); err != nil {
			return err
		}
		if property.Status != models.PropertyAvailable {
			return models.Conflict("Property is not available for rent")
		}

		var existing int64
		if err := tx.Model(&models.Application{}).
			Where("property_id = ? AND tenant_id = ?", property.ID, p.UserID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return models.Conflict("You have already applied for this property")
		}

		application = models.Application{
			PropertyID:  property.ID,
			TenantID:    p.UserID,
			Status:      models.ApplicationPending,
			SubmittedAt: h.now(),
		}
		if err := tx.Omit(clause.Associations).Create(&application).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.Conflict("You have already applied for this property")
			}
			return err
		}
		return notify(tx, property.LandlordID, kindApplicationSubmitted,
			fmt.Sprintf("%s applied for %s", p.Name, property.Title))
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.publish(c, events.ApplicationSubmitted, gin.H{
		"applicationId": application.ID,
		"propertyId":    application.PropertyID,
		"tenantId":      application.TenantID,
		"landlordId":    property.LandlordID,
	})
	c.JSON(http.StatusCreated, application)
}

// TenantApplications lists the caller's applications, newest first.
func (h *Handler) TenantApplications(c *gin.Context, p middleware.Principal) {
	applications := []models.Application{}
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Property").
		Where("tenant_id = ?", p.UserID).
		Order("submitted_at DESC").Order("id DESC").
		Find(&applications).Error
	if err != nil {
		fail(c, fmt.Errorf("list tenant applications: %w", err))
		return
	}
	c.JSON(http.StatusOK, applications)
}

// LandlordApplications lists applications for the caller's properties.
func (h *Handler) LandlordApplications(c *gin.Context, p middleware.Principal) {
	db := h.DB.WithContext(c.Request.Context())
	applications := []models.Application{}
	err := db.Preload("Property").Preload("Tenant").
		Where("property_id IN (?)", ownedPropertyIDs(db, p.UserID)).
		Order("submitted_at DESC").Order("id DESC").
		Find(&applications).Error
	if err != nil {
		fail(c, fmt.Errorf("list landlord applications: %w", err))
		return
	}
	c.JSON(http.StatusOK, applications)
}

// UpdateApplicationStatus decides a pending application. Approval rents out
// the property and rejects every other pending application for it; the whole
// cascade commits or rolls back together.
func (h *Handler) UpdateApplicationStatus(c *gin.Context, p middleware.Principal) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req struct {
		Status models.ApplicationStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindError(err))
		return
	}

	application, rejected, err := h.decideApplication(c, p.UserID, id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}

	middleware.Logger(c).Info("application decided",
		"application_id", application.ID,
		"status", application.Status,
		"auto_rejected", len(rejected))
	h.publish(c, events.ApplicationStatusChanged, gin.H{
		"applicationId": application.ID,
		"propertyId":    application.PropertyID,
		"tenantId":      application.TenantID,
		"status":        application.Status,
		"rejected":      rejected,
	})
	c.JSON(http.StatusOK, application)
}

// decideApplication runs the status change in one transaction. It returns the
// updated application and the ids of siblings rejected by an approval.
func (h *Handler) decideApplication(c *gin.Context, landlordID, id uint, next models.ApplicationStatus) (*models.Application, []uint, error) {
	var (
		application models.Application
		rejected    []uint
	)
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var probe models.Application
		if err := tx.First(&probe, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NotFound("Application not found")
			}
			return err
		}

		// Lock the property first, then re-read the application so a
		// concurrent decision on a sibling is observed.
		property, err := findProperty(lockForUpdate(tx), probe.PropertyID)
		if err != nil {
			return err
		}
		if err := tx.First(&application, id).Error; err != nil {
			return err
		}

		if !property.OwnedBy(landlordID) {
			return models.Forbidden("Not authorized to update this application")
		}
		if !application.Status.CanTransitionTo(next) {
			return models.InvalidTransition(fmt.Sprintf("Cannot change application status from %s to %s", application.Status, next))
		}
		if next == models.ApplicationApproved && property.Status != models.PropertyAvailable {
			return models.Conflict("Property is not available for rent")
		}

		if err := tx.Model(&application).Update("status", next).Error; err != nil {
			return err
		}
		application.Status = next
		if err := notify(tx, application.TenantID, kindApplicationDecided,
			fmt.Sprintf("Your application for %s was %s", property.Title, next)); err != nil {
			return err
		}

		if next == models.ApplicationApproved {
			if err := tx.Model(property).Update("status", models.PropertyRented).Error; err != nil {
				return err
			}
			property.Status = models.PropertyRented

			var siblings []models.Application
			if err := tx.Where("property_id = ? AND id <> ? AND status = ?", property.ID, application.ID, models.ApplicationPending).
				Find(&siblings).Error; err != nil {
				return err
			}
			if len(siblings) > 0 {
				for _, s := range siblings {
					rejected = append(rejected, s.ID)
				}
				if err := tx.Model(&models.Application{}).Where("id IN ?", rejected).
					Update("status", models.ApplicationRejected).Error; err != nil {
					return err
				}
				for _, s := range siblings {
					if err := notify(tx, s.TenantID, kindApplicationDecided,
						fmt.Sprintf("Your application for %s was %s", property.Title, models.ApplicationRejected)); err != nil {
						return err
					}
				}
			}
		}

		application.Property = property
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &application, rejected, nil
}

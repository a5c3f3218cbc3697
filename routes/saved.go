package routes

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/homie-api/middleware"
	"github.com/sidhant-sriv/homie-api/models"
	"gorm.io/gorm"
)

// SaveProperty adds the property to the caller's saved list.
func (h *Handler) SaveProperty(c *gin.Context, p middleware.Principal) {
	property, err := h.propertyFromParam(c)
	if err != nil {
		fail(c, err)
		return
	}

	saved, err := h.isSaved(c, p.UserID, property.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if saved {
		fail(c, models.Conflict("Property already saved"))
		return
	}

	entry := models.SavedProperty{UserID: p.UserID, PropertyID: property.ID}
	if err := h.DB.WithContext(c.Request.Context()).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			fail(c, models.Conflict("Property already saved"))
			return
		}
		fail(c, fmt.Errorf("save property: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property saved successfully"})
}

// UnsaveProperty removes the property from the caller's saved list.
func (h *Handler) UnsaveProperty(c *gin.Context, p middleware.Principal) {
	property, err := h.propertyFromParam(c)
	if err != nil {
		fail(c, err)
		return
	}

	res := h.DB.WithContext(c.Request.Context()).
		Where("user_id = ? AND property_id = ?", p.UserID, property.ID).
		Delete(&models.SavedProperty{})
	if res.Error != nil {
		fail(c, fmt.Errorf("unsave property: %w", res.Error))
		return
	}
	if res.RowsAffected == 0 {
		fail(c, models.Conflict("Property not saved"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property removed from saved"})
}

// IsPropertySaved reports whether the property is on the caller's saved list.
func (h *Handler) IsPropertySaved(c *gin.Context, p middleware.Principal) {
	property, err := h.propertyFromParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	saved, err := h.isSaved(c, p.UserID, property.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

func (h *Handler) isSaved(c *gin.Context, userID, propertyID uint) (bool, error) {
	var n int64
	err := h.DB.WithContext(c.Request.Context()).Model(&models.SavedProperty{}).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check saved property: %w", err)
	}
	return n > 0, nil
}

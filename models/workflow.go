package models

import "time"

type Application struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	PropertyID  uint              `gorm:"not null;uniqueIndex:idx_applications_property_tenant" json:"propertyId"`
	Property    *Property         `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	TenantID    uint              `gorm:"not null;index;uniqueIndex:idx_applications_property_tenant" json:"tenantId"`
	Tenant      *UserSummary      `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Status      ApplicationStatus `gorm:"size:16;index;not null;default:pending" json:"status"`
	SubmittedAt time.Time         `gorm:"index" json:"submittedAt"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type MaintenanceRequest struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	PropertyID  uint                `gorm:"index;not null" json:"propertyId"`
	Property    *Property           `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	TenantID    uint                `gorm:"index;not null" json:"tenantId"`
	Tenant      *UserSummary        `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Title       string              `gorm:"size:255;not null" json:"title"`
	Description string              `gorm:"type:text;not null" json:"description"`
	Priority    MaintenancePriority `gorm:"size:16;not null;default:low" json:"priority"`
	Status      MaintenanceStatus   `gorm:"size:16;index;not null;default:pending" json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Transaction records money moving between a tenant and a landlord. The API
// only reads them.
type Transaction struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	PropertyID uint              `gorm:"index;not null" json:"propertyId"`
	Property   *Property         `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	TenantID   uint              `gorm:"index;not null" json:"tenantId"`
	Tenant     *UserSummary      `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	LandlordID uint              `gorm:"index;not null" json:"landlordId"`
	Landlord   *UserSummary      `gorm:"foreignKey:LandlordID" json:"landlord,omitempty"`
	Amount     float64           `gorm:"not null" json:"amount"`
	Type       TransactionType   `gorm:"size:16;not null" json:"type"`
	Status     TransactionStatus `gorm:"size:16;not null;default:pending" json:"status"`
	Date       time.Time         `gorm:"not null" json:"date"`
	CreatedAt  time.Time         `gorm:"index" json:"createdAt"`
}

package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:128;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password     string    `gorm:"size:255;not null" json:"-"` // hide from JSON response
	Role         Role      `gorm:"size:16;index;not null;default:tenant" json:"role"`
	ProfileImage string    `gorm:"size:512" json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the public projection of a user that gets populated into
// properties, applications and transactions.
type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (UserSummary) TableName() string { return "users" }

// SavedProperty is one entry of a user's saved list.
type SavedProperty struct {
	UserID     uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	PropertyID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"propertyId"`
	CreatedAt  time.Time `json:"savedAt"`
}

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	Kind      string    `gorm:"size:64;not null" json:"kind"`
	Message   string    `gorm:"size:512;not null" json:"message"`
	Read      bool      `gorm:"index;not null;default:false" json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

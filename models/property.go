package models

import (
	"time"

	"gorm.io/datatypes"
)

type Price struct {
	Amount    float64         `gorm:"not null" json:"amount" validate:"gt=0"`
	Frequency *PriceFrequency `gorm:"size:16" json:"frequency"`
	Type      PriceType       `gorm:"size:16;not null;default:fixed" json:"type"`
}

type Coordinates struct {
	Lat *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
}

type Location struct {
	Address     string      `gorm:"size:255;not null" json:"address" validate:"required"`
	City        string      `gorm:"size:128;not null;index" json:"city" validate:"required"`
	State       string      `gorm:"size:128;not null" json:"state" validate:"required"`
	ZipCode     string      `gorm:"size:32;not null" json:"zipCode" validate:"required"`
	Coordinates Coordinates `gorm:"embedded;embeddedPrefix:coord_" json:"coordinates"`
	Geohash     string      `gorm:"size:12;index" json:"geohash,omitempty"`
}

type Features struct {
	Bedrooms     int    `gorm:"not null" json:"bedrooms" validate:"gte=0"`
	Bathrooms    int    `gorm:"not null" json:"bathrooms" validate:"gte=0"`
	SquareFeet   int    `gorm:"not null" json:"squareFeet" validate:"gte=0"`
	PropertyType string `gorm:"size:64;not null" json:"propertyType" validate:"required"`
	YearBuilt    *int   `json:"yearBuilt,omitempty" validate:"omitempty,yearbuilt"`
	Parking      int    `gorm:"not null;default:0" json:"parking" validate:"gte=0"`
	Furnished    bool   `gorm:"not null;default:false" json:"furnished"`
}

// Image points at a file held by the media store. PublicID is the handle
// used to release it.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type Property struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	Title       string                      `gorm:"size:255;not null" json:"title"`
	Description string                      `gorm:"type:text;not null" json:"description"`
	ListingType ListingType                 `gorm:"size:8;index;not null" json:"listingType"`
	Price       Price                       `gorm:"embedded;embeddedPrefix:price_" json:"price"`
	Location    Location                    `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Features    Features                    `gorm:"embedded;embeddedPrefix:features_" json:"features"`
	Amenities   datatypes.JSONSlice[string] `json:"amenities"`
	Images      datatypes.JSONSlice[Image]  `json:"images"`
	LandlordID  uint                        `gorm:"index;not null" json:"landlordId"`
	Landlord    *UserSummary                `gorm:"foreignKey:LandlordID" json:"landlord,omitempty"`
	Status      PropertyStatus              `gorm:"size:16;index;not null;default:available" json:"status"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

// OwnedBy reports whether userID is the property's landlord.
func (p *Property) OwnedBy(userID uint) bool {
	return p.LandlordID == userID
}

// HasAmenities reports whether every wanted amenity is listed.
func (p *Property) HasAmenities(wanted []string) bool {
	have := make(map[string]struct{}, len(p.Amenities))
	for _, a := range p.Amenities {
		have[a] = struct{}{}
	}
	for _, w := range wanted {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

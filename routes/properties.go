package routes

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/homie-api/events"
	"github.com/sidhant-sriv/homie-api/media"
	"github.com/sidhant-sriv/homie-api/middleware"
	"github.com/sidhant-sriv/homie-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PropertyRoutes sets up the routes for the property catalog
func (h *Handler) PropertyRoutes(group *gin.RouterGroup, tenant, landlord []gin.HandlerFunc) {
	// Public routes
	group.GET("", h.ListProperties())
	group.GET("/:id", h.GetProperty())

	// Landlord routes
	group.POST("", with(landlord, middleware.WithPrincipal(h.CreateProperty))...)
	group.PUT("/:id", with(landlord, middleware.WithPrincipal(h.UpdateProperty))...)
	group.DELETE("/:id", with(landlord, middleware.WithPrincipal(h.DeleteProperty))...)

	// Tenant routes
	group.POST("/:id/save", with(tenant, middleware.WithPrincipal(h.SaveProperty))...)
	group.DELETE("/:id/save", with(tenant, middleware.WithPrincipal(h.UnsaveProperty))...)
	group.GET("/:id/saved", with(tenant, middleware.WithPrincipal(h.IsPropertySaved))...)
}

// findProperty loads a property without associations.
func findProperty(db *gorm.DB, id uint) (*models.Property, error) {
	var property models.Property
	if err := db.First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NotFound("Property not found")
		}
		return nil, fmt.Errorf("find property %d: %w", id, err)
	}
	return &property, nil
}

// propertyFromParam resolves the :id path parameter to a stored property.
func (h *Handler) propertyFromParam(c *gin.Context) (*models.Property, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	return findProperty(h.DB.WithContext(c.Request.Context()), id)
}

// CreateProperty handles POST /api/properties (multipart with images). New
// listings always start available; a status in the payload is rejected.
func (h *Handler) CreateProperty(c *gin.Context, p middleware.Principal) {
	doc, files, err := readPropertyDoc(c)
	if err != nil {
		fail(c, err)
		return
	}
	if _, ok := doc["status"]; ok {
		fail(c, models.Validation("Validation Error", models.FieldError{
			Field:   "status",
			Message: "cannot be set when creating a property",
		}))
		return
	}
	if len(files) == 0 {
		fail(c, models.Validation("At least one image is required"))
		return
	}
	if len(files) > maxImages {
		fail(c, models.Validation(fmt.Sprintf("At most %d images are allowed", maxImages)))
		return
	}

	in, err := decodeProperty(doc)
	if err != nil {
		fail(c, err)
		return
	}

	images, err := h.uploadImages(c, files)
	if err != nil {
		fail(c, err)
		return
	}

	property := models.Property{LandlordID: p.UserID}
	in.apply(&property)
	property.Status = models.PropertyAvailable
	property.Images = images

	if err := h.DB.WithContext(c.Request.Context()).Omit(clause.Associations).Create(&property).Error; err != nil {
		h.releaseImages(c, images)
		fail(c, fmt.Errorf("create property: %w", err))
		return
	}

	middleware.Logger(c).Info("property created", "property_id", property.ID, "landlord_id", p.UserID, "images", len(images))
	h.publish(c, events.PropertyCreated, gin.H{
		"propertyId":  property.ID,
		"landlordId":  property.LandlordID,
		"listingType": property.ListingType,
		"city":        property.Location.City,
	})
	c.JSON(http.StatusCreated, property)
}

// propertyFilter holds the list query. Every field is optional.
type propertyFilter struct {
	Location       string   `form:"location"`
	ListingType    string   `form:"listingType"`
	MinPrice       *float64 `form:"minPrice" binding:"omitempty,gte=0"`
	MaxPrice       *float64 `form:"maxPrice" binding:"omitempty,gte=0"`
	PriceFrequency string   `form:"priceFrequency"`
	Bedrooms       *int     `form:"bedrooms" binding:"omitempty,gte=0"`
	Bathrooms      *int     `form:"bathrooms" binding:"omitempty,gte=0"`
	PropertyType   string   `form:"propertyType"`
	Furnished      *bool    `form:"furnished"`
	Amenities      []string `form:"amenities"`
	Status         string   `form:"status"`
	Page           int      `form:"page" binding:"omitempty,gte=1"`
	PageSize       int      `form:"page_size" binding:"omitempty,gte=1,lte=100"`
}

// amenities flattens repeated and comma separated values.
func (f *propertyFilter) amenities() []string {
	var out []string
	for _, v := range f.Amenities {
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				out = append(out, a)
			}
		}
	}
	return out
}

// scope applies every filter that the store can evaluate.
func (f *propertyFilter) scope(q *gorm.DB) (*gorm.DB, error) {
	if f.Location != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(f.Location)) + "%"
		q = q.Where("(LOWER(location_address) LIKE ? OR LOWER(location_city) LIKE ? OR LOWER(location_state) LIKE ?)", like, like, like)
	}
	if f.ListingType != "" {
		lt, err := models.ParseListingType(f.ListingType)
		if err != nil {
			return nil, err
		}
		q = q.Where("listing_type = ?", lt)
	}
	if f.MinPrice != nil {
		q = q.Where("price_amount >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price_amount <= ?", *f.MaxPrice)
	}
	if f.PriceFrequency != "" {
		freq, err := models.ParsePriceFrequency(f.PriceFrequency)
		if err != nil {
			return nil, err
		}
		q = q.Where("price_frequency = ?", freq)
	}
	if f.Bedrooms != nil {
		q = q.Where("features_bedrooms = ?", *f.Bedrooms)
	}
	if f.Bathrooms != nil {
		q = q.Where("features_bathrooms = ?", *f.Bathrooms)
	}
	if f.PropertyType != "" {
		q = q.Where("features_property_type = ?", f.PropertyType)
	}
	if f.Furnished != nil {
		q = q.Where("features_furnished = ?", *f.Furnished)
	}
	if f.Status != "" {
		status, err := models.ParsePropertyStatus(f.Status)
		if err != nil {
			return nil, err
		}
		q = q.Where("status = ?", status)
	}
	return q, nil
}

// ListProperties handles GET /api/properties. Amenities are matched after the
// query because they are stored as a JSON column.
func (h *Handler) ListProperties() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter propertyFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			fail(c, bindQueryError(c, err))
			return
		}
		if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
			fail(c, models.Validation("minPrice must not exceed maxPrice"))
			return
		}

		q, err := filter.scope(h.DB.WithContext(c.Request.Context()).Model(&models.Property{}))
		if err != nil {
			fail(c, err)
			return
		}
		q = q.Session(&gorm.Session{})
		ordered := q.Order("created_at DESC").Order("id DESC").Preload("Landlord")

		paginate := filter.PageSize > 0 || filter.Page > 0
		page, pageSize := max(filter.Page, 1), filter.PageSize
		if pageSize == 0 {
			pageSize = 10
		}

		amenities := filter.amenities()
		var properties []models.Property
		var total int64

		if len(amenities) > 0 || !paginate {
			if err := ordered.Find(&properties).Error; err != nil {
				fail(c, fmt.Errorf("list properties: %w", err))
				return
			}
			if len(amenities) > 0 {
				properties = filterAmenities(properties, amenities)
			}
			total = int64(len(properties))
			if paginate {
				properties = pageOf(properties, page, pageSize)
			}
		} else {
			if err := q.Count(&total).Error; err != nil {
				fail(c, fmt.Errorf("count properties: %w", err))
				return
			}
			if err := ordered.Offset((page - 1) * pageSize).Limit(pageSize).Find(&properties).Error; err != nil {
				fail(c, fmt.Errorf("list properties: %w", err))
				return
			}
		}

		if properties == nil {
			properties = []models.Property{}
		}
		c.Header("X-Total-Count", strconv.FormatInt(total, 10))
		c.JSON(http.StatusOK, properties)
	}
}

func filterAmenities(properties []models.Property, wanted []string) []models.Property {
	out := properties[:0]
	for _, p := range properties {
		if p.HasAmenities(wanted) {
			out = append(out, p)
		}
	}
	return out
}

func pageOf[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+pageSize, len(items))]
}

// GetProperty retrieves a property by ID with its landlord populated
func (h *Handler) GetProperty() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			fail(c, err)
			return
		}
		property, err := findProperty(h.DB.WithContext(c.Request.Context()).Preload("Landlord"), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, property)
	}
}

// UpdateProperty handles PUT /api/properties/:id. Fields are optional; the
// merged result is validated as a whole. New images replace the stored ones.
func (h *Handler) UpdateProperty(c *gin.Context, p middleware.Principal) {
	property, err := h.propertyFromParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	if !property.OwnedBy(p.UserID) {
		fail(c, models.Forbidden("Not authorized to update this property"))
		return
	}

	patch, files, err := readPropertyDoc(c)
	if err != nil {
		fail(c, err)
		return
	}
	if len(files) > maxImages {
		fail(c, models.Validation(fmt.Sprintf("At most %d images are allowed", maxImages)))
		return
	}

	base, err := propertyDoc(property)
	if err != nil {
		fail(c, err)
		return
	}
	if _, err := decodeProperty(mergeDoc(base, patch)); err != nil {
		fail(c, err)
		return
	}

	var uploaded []models.Image
	if len(files) > 0 {
		if uploaded, err = h.uploadImages(c, files); err != nil {
			fail(c, err)
			return
		}
	}

	// Uploads take a while. Re-read the row under lock so a status written
	// meanwhile (an approval renting it out) is merged, not overwritten.
	var previous []models.Image
	err = h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		current, err := findProperty(lockForUpdate(tx), property.ID)
		if err != nil {
			return err
		}
		if !current.OwnedBy(p.UserID) {
			return models.Forbidden("Not authorized to update this property")
		}
		base, err := propertyDoc(current)
		if err != nil {
			return err
		}
		in, err := decodeProperty(mergeDoc(base, patch))
		if err != nil {
			return err
		}

		previous = current.Images
		in.apply(current)
		if len(uploaded) > 0 {
			current.Images = uploaded
		}
		if err := tx.Omit(clause.Associations).Save(current).Error; err != nil {
			return fmt.Errorf("update property %d: %w", current.ID, err)
		}
		property = current
		return nil
	})
	if err != nil {
		h.releaseImages(c, uploaded)
		fail(c, err)
		return
	}
	if len(uploaded) > 0 {
		h.releaseImages(c, previous)
	}

	c.JSON(http.StatusOK, property)
}

// DeleteProperty releases the stored images and deletes the property together
// with the saved-list entries pointing at it.
func (h *Handler) DeleteProperty(c *gin.Context, p middleware.Principal) {
	property, err := h.propertyFromParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	if !property.OwnedBy(p.UserID) {
		fail(c, models.Forbidden("Not authorized to delete this property"))
		return
	}

	h.releaseImages(c, property.Images)

	err = h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", property.ID).Delete(&models.SavedProperty{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Property{}, property.ID).Error
	})
	if err != nil {
		fail(c, fmt.Errorf("delete property %d: %w", property.ID, err))
		return
	}

	h.publish(c, events.PropertyDeleted, gin.H{"propertyId": property.ID, "landlordId": property.LandlordID})
	c.JSON(http.StatusOK, gin.H{"message": "Property deleted successfully"})
}

// uploadImages stores every part in order. On failure the images stored so
// far are released.
func (h *Handler) uploadImages(c *gin.Context, files []*multipart.FileHeader) ([]models.Image, error) {
	images := make([]models.Image, 0, len(files))
	for _, fh := range files {
		img, err := h.uploadImage(c, fh)
		if err != nil {
			h.releaseImages(c, images)
			if errors.Is(err, media.ErrUnsupportedImage) {
				return nil, models.Validation("Validation Error", models.FieldError{
					Field:   "images",
					Message: fmt.Sprintf("%s is not a supported image", fh.Filename),
				})
			}
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func (h *Handler) uploadImage(c *gin.Context, fh *multipart.FileHeader) (models.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return models.Image{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	return h.Media.Upload(c.Request.Context(), fh.Filename, f)
}

// releaseImages destroys each image once. Failures are logged and skipped.
func (h *Handler) releaseImages(c *gin.Context, images []models.Image) {
	for _, img := range images {
		if err := h.Media.Destroy(c.Request.Context(), img.PublicID); err != nil {
			middleware.Logger(c).Warn("release image", "public_id", img.PublicID, "error", err)
		}
	}
}

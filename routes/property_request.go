package routes

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmcloughlin/geohash"
	"github.com/sidhant-sriv/homie-api/models"
	"github.com/sidhant-sriv/homie-api/schemas"
	"gorm.io/datatypes"
)

const (
	maxImages        = 10
	minYearBuilt     = 1800
	geohashPrecision = 9
)

// Multipart bodies carry nested objects as JSON strings.
var (
	scalarFields     = []string{"title", "description", "listingType", "status"}
	structuredFields = []string{"price", "location", "features", "amenities"}
)

// propertyInput is the typed form of a create or update payload.
type propertyInput struct {
	Title       string                `json:"title" validate:"required"`
	Description string                `json:"description" validate:"required"`
	ListingType models.ListingType    `json:"listingType" validate:"required"`
	Price       models.Price          `json:"price"`
	Location    models.Location       `json:"location"`
	Features    models.Features       `json:"features"`
	Amenities   []string              `json:"amenities"`
	Status      models.PropertyStatus `json:"status,omitempty"`
}

var propertyValidate = newPropertyValidator()

func newPropertyValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("yearbuilt", func(fl validator.FieldLevel) bool {
		year := fl.Field().Int()
		return year >= minYearBuilt && year <= int64(time.Now().Year())
	})
	v.RegisterStructValidation(rentNeedsFrequency, propertyInput{})
	return v
}

func rentNeedsFrequency(sl validator.StructLevel) {
	in := sl.Current().Interface().(propertyInput)
	if in.ListingType == models.ListingRent && in.Price.Frequency == nil {
		sl.ReportError(in.Price.Frequency, "price.frequency", "Frequency", "rentfrequency", "")
	}
}

// readPropertyDoc reads a multipart or JSON body into a generic document and
// returns any uploaded image parts.
func readPropertyDoc(c *gin.Context) (map[string]any, []*multipart.FileHeader, error) {
	doc := make(map[string]any)
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBindJSON(&doc); err != nil {
			return nil, nil, bindError(err)
		}
		return doc, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, models.Validation("Invalid multipart form")
	}
	for _, key := range scalarFields {
		if v := form.Value[key]; len(v) > 0 {
			doc[key] = v[0]
		}
	}
	for _, key := range structuredFields {
		v := form.Value[key]
		if len(v) == 0 {
			continue
		}
		parsed, err := parseStructured(key, v)
		if err != nil {
			return nil, nil, err
		}
		doc[key] = parsed
	}
	return doc, form.File["images"], nil
}

// parseStructured decodes one JSON-string form field. Amenities may also be
// sent as a comma separated list or as repeated fields.
func parseStructured(key string, values []string) (any, error) {
	var parsed any
	if err := json.Unmarshal([]byte(values[0]), &parsed); err == nil {
		if key != "amenities" || len(values) == 1 {
			return parsed, nil
		}
	} else if key != "amenities" {
		return nil, models.Validation("Validation Error", models.FieldError{Field: key, Message: "must be valid JSON"})
	}

	list := []any{}
	for _, v := range values {
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				list = append(list, a)
			}
		}
	}
	return list, nil
}

// decodeProperty validates doc against the property schema and the struct
// rules, in that order.
func decodeProperty(doc map[string]any) (*propertyInput, error) {
	if err := schemas.ValidateProperty(doc); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode property document: %w", err)
	}
	var in propertyInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, bindError(err)
	}
	if err := propertyValidate.Struct(&in); err != nil {
		return nil, bindError(err)
	}
	return &in, nil
}

// propertyDoc renders a stored property as the document an update is merged into.
func propertyDoc(p *models.Property) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode property: %w", err)
	}
	doc := make(map[string]any)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode property: %w", err)
	}
	if doc["amenities"] == nil {
		doc["amenities"] = []any{}
	}
	return doc, nil
}

// mergeDoc overlays patch on base. Nested objects are merged one level deep so
// a partial update of, say, price.amount keeps the stored frequency.
func mergeDoc(base, patch map[string]any) map[string]any {
	for key, v := range patch {
		nested, ok := v.(map[string]any)
		current, isMap := base[key].(map[string]any)
		if !ok || !isMap {
			base[key] = v
			continue
		}
		for k, nv := range nested {
			current[k] = nv
		}
	}
	return base
}

// apply copies the validated input onto p. The status is left alone unless
// the input names one.
func (in *propertyInput) apply(p *models.Property) {
	p.Title = strings.TrimSpace(in.Title)
	p.Description = in.Description
	p.ListingType = in.ListingType

	p.Price = in.Price
	if p.Price.Type == "" {
		p.Price.Type = models.PriceFixed
	}

	p.Location = in.Location
	p.Location.Geohash = ""
	if c := p.Location.Coordinates; c.Lat != nil && c.Lng != nil {
		p.Location.Geohash = geohash.EncodeWithPrecision(*c.Lat, *c.Lng, geohashPrecision)
	}

	p.Features = in.Features

	amenities := make([]string, 0, len(in.Amenities))
	for _, a := range in.Amenities {
		if a = strings.TrimSpace(a); a != "" {
			amenities = append(amenities, a)
		}
	}
	p.Amenities = datatypes.JSONSlice[string](amenities)

	if in.Status != "" {
		p.Status = in.Status
	}
}

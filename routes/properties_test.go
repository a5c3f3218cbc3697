package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/sidhant-sriv/homie-api/events"
	"github.com/sidhant-sriv/homie-api/models"
)

func TestCreateProperty(t *testing.T) {
	s := newTestServer(t)
	landlord, token := s.user(models.RoleLandlord, "landlord@homie.test")

	property := s.createProperty(token, map[string]string{
		"location": `{"address":"1 Main St","city":"Springfield","state":"IL","zipCode":"62701","coordinates":{"lat":39.7817,"lng":-89.6501}}`,
		"features": `{"bedrooms":2,"bathrooms":1,"squareFeet":900,"propertyType":"apartment","yearBuilt":1995}`,
	}, 1)

	if property.Status != models.PropertyAvailable {
		t.Errorf("status = %q, want available", property.Status)
	}
	if property.LandlordID != landlord.ID {
		t.Errorf("landlordId = %d, want %d", property.LandlordID, landlord.ID)
	}
	if len(property.Images) != 1 || property.Images[0].PublicID == "" {
		t.Errorf("images = %+v", property.Images)
	}
	if property.Price.Type != models.PriceFixed {
		t.Errorf("price type = %q, want fixed", property.Price.Type)
	}
	if len(property.Location.Geohash) != geohashPrecision {
		t.Errorf("geohash = %q", property.Location.Geohash)
	}
	if s.events.published(events.PropertyCreated) != 1 {
		t.Error("property.created not published")
	}

	w := s.do(http.MethodGet, "/api/properties/"+strconv.Itoa(int(property.ID)), "", nil)
	expectStatus(t, w, http.StatusOK)
	got := decode[models.Property](t, w)
	if got.Landlord == nil || got.Landlord.Email != landlord.Email {
		t.Errorf("landlord not populated: %+v", got.Landlord)
	}

	w = s.do(http.MethodGet, "/api/properties/999", "", nil)
	expectStatus(t, w, http.StatusNotFound)
	if msg := decode[errorBody](t, w).Message; msg != "Property not found" {
		t.Errorf("message = %q", msg)
	}
}

func TestCreateProperty_Rejected(t *testing.T) {
	s := newTestServer(t)
	_, landlord := s.user(models.RoleLandlord, "landlord@homie.test")
	_, tenant := s.user(models.RoleTenant, "tenant@homie.test")

	cases := []struct {
		name      string
		overrides map[string]string
		images    int
		field     string
		message   string
	}{
		{name: "no images", images: 0, message: "At least one image is required"},
		{name: "too many images", images: 11},
		{name: "rent without frequency", overrides: map[string]string{"price": `{"amount":1200}`}, images: 1, field: "price.frequency"},
		{name: "rent with null frequency", overrides: map[string]string{"price": `{"amount":1200,"frequency":null}`}, images: 1, field: "price.frequency"},
		{name: "zero price", overrides: map[string]string{"price": `{"amount":0,"frequency":"monthly"}`}, images: 1, field: "price.amount"},
		{name: "unknown listing type", overrides: map[string]string{"listingType": "lease"}, images: 1, field: "listingType"},
		{name: "negative bedrooms", overrides: map[string]string{"features": `{"bedrooms":-1,"bathrooms":1,"squareFeet":900,"propertyType":"apartment"}`}, images: 1, field: "features.bedrooms"},
		{name: "year built too early", overrides: map[string]string{"features": `{"bedrooms":1,"bathrooms":1,"squareFeet":900,"propertyType":"apartment","yearBuilt":1700}`}, images: 1, field: "features.yearBuilt"},
		{name: "missing city", overrides: map[string]string{"location": `{"address":"1 Main St","state":"IL","zipCode":"62701"}`}, images: 1, field: "location"},
		{name: "status on create", overrides: map[string]string{"status": "sold"}, images: 1, field: "status"},
		{name: "malformed features", overrides: map[string]string{"features": `{bedrooms`}, images: 1, field: "features"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.form(http.MethodPost, "/api/properties", landlord, propertyFields(tc.overrides), tc.images)
			expectStatus(t, w, http.StatusBadRequest)
			body := decode[errorBody](t, w)
			if tc.field != "" && !body.hasField(tc.field) {
				t.Errorf("errors = %+v, want field %q", body.Errors, tc.field)
			}
			if tc.message != "" && body.Message != tc.message {
				t.Errorf("message = %q, want %q", body.Message, tc.message)
			}
		})
	}
	if n := s.media.uploads(); n != 0 {
		t.Errorf("rejected payloads uploaded %d images", n)
	}

	sale := s.createProperty(landlord, map[string]string{"listingType": "sale", "price": `{"amount":250000}`}, 1)
	if sale.Price.Frequency != nil {
		t.Errorf("sale frequency = %v, want nil", *sale.Price.Frequency)
	}

	w := s.form(http.MethodPost, "/api/properties", tenant, propertyFields(nil), 1)
	expectStatus(t, w, http.StatusForbidden)
	w = s.form(http.MethodPost, "/api/properties", "", propertyFields(nil), 1)
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestCreateProperty_UnsupportedImageReleasesUploads(t *testing.T) {
	s := newTestServer(t)
	_, landlord := s.user(models.RoleLandlord, "landlord@homie.test")

	// The fake store rejects empty parts as undecodable.
	req := newMultipart(t, http.MethodPost, "/api/properties", propertyFields(nil), [][]byte{[]byte("jpeg-bytes"), {}})
	w := s.serve(req, landlord)
	expectStatus(t, w, http.StatusBadRequest)
	if !decode[errorBody](t, w).hasField("images") {
		t.Errorf("body = %s", w.Body.String())
	}
	if counts := s.media.destroyCounts(); counts["img-1"] != 1 {
		t.Errorf("destroys = %v, want img-1 released once", counts)
	}
}

func TestListProperties_Filters(t *testing.T) {
	s := newTestServer(t)
	_, landlord := s.user(models.RoleLandlord, "landlord@homie.test")

	s.createProperty(landlord, map[string]string{"title": "Springfield flat"}, 1)
	s.createProperty(landlord, map[string]string{
		"title":     "Shelbyville house",
		"price":     `{"amount":2500,"frequency":"monthly"}`,
		"location":  `{"address":"9 Oak Ave","city":"Shelbyville","state":"IL","zipCode":"62565"}`,
		"features":  `{"bedrooms":4,"bathrooms":2,"squareFeet":2000,"propertyType":"house","furnished":true}`,
		"amenities": `["wifi","pool"]`,
	}, 1)
	s.createProperty(landlord, map[string]string{
		"title":       "Capital loft",
		"listingType": "sale",
		"price":       `{"amount":300000}`,
		"location":    `{"address":"5 State St","city":"Chicago","state":"IL","zipCode":"60601"}`,
		"amenities":   `wifi, gym`,
	}, 1)

	cases := []struct {
		query string
		want  []string
	}{
		{"", []string{"Capital loft", "Shelbyville house", "Springfield flat"}},
		{"?location=SPRING", []string{"Springfield flat"}},
		{"?location=oak", []string{"Shelbyville house"}},
		{"?listingType=sale", []string{"Capital loft"}},
		{"?minPrice=2000&maxPrice=3000", []string{"Shelbyville house"}},
		{"?priceFrequency=monthly&bedrooms=2", []string{"Springfield flat"}},
		{"?propertyType=house&furnished=true", []string{"Shelbyville house"}},
		{"?amenities=wifi", []string{"Capital loft", "Shelbyville house", "Springfield flat"}},
		{"?amenities=wifi,pool", []string{"Shelbyville house"}},
		{"?amenities=wifi&amenities=gym", []string{"Capital loft"}},
		{"?status=rented", []string{}},
		{"?page=2&page_size=2", []string{"Springfield flat"}},
		{"?amenities=wifi&page=1&page_size=1", []string{"Capital loft"}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/properties"+tc.query, "", nil)
			expectStatus(t, w, http.StatusOK)
			got := decode[[]models.Property](t, w)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d properties, want %v", len(got), tc.want)
			}
			for i, p := range got {
				if p.Title != tc.want[i] {
					t.Errorf("[%d] = %q, want %q", i, p.Title, tc.want[i])
				}
				if p.Landlord == nil {
					t.Errorf("[%d] landlord not populated", i)
				}
			}
		})
	}

	w := s.do(http.MethodGet, "/api/properties?page=1&page_size=2", "", nil)
	if total := w.Header().Get("X-Total-Count"); total != "3" {
		t.Errorf("X-Total-Count = %q, want 3", total)
	}

	for _, bad := range []string{"?listingType=lease", "?minPrice=abc", "?page_size=500", "?minPrice=10&maxPrice=5", "?status=gone"} {
		w := s.do(http.MethodGet, "/api/properties"+bad, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", bad, w.Code)
		}
	}

	unparsable := []struct {
		query, field, message string
	}{
		{"?minPrice=abc", "minPrice", "must be a number"},
		{"?location=x&bedrooms=two", "bedrooms", "must be a number"},
		{"?furnished=maybe", "furnished", "must be true or false"},
	}
	for _, tc := range unparsable {
		w := s.do(http.MethodGet, "/api/properties"+tc.query, "", nil)
		expectStatus(t, w, http.StatusBadRequest)
		body := decode[errorBody](t, w)
		if len(body.Errors) != 1 || body.Errors[0].Field != tc.field || body.Errors[0].Message != tc.message {
			t.Errorf("%s: errors = %+v, want %s %q", tc.query, body.Errors, tc.field, tc.message)
		}
		if strings.Contains(w.Body.String(), "strconv") {
			t.Errorf("%s: body exposes parser error: %s", tc.query, w.Body.String())
		}
	}
}

func TestUpdateProperty(t *testing.T) {
	s := newTestServer(t)
	_, owner := s.user(models.RoleLandlord, "owner@homie.test")
	_, other := s.user(models.RoleLandlord, "other@homie.test")
	property := s.createProperty(owner, nil, 2)
	path := "/api/properties/" + strconv.Itoa(int(property.ID))

	w := s.do(http.MethodPut, path, other, obj{"title": "Mine now"})
	expectStatus(t, w, http.StatusForbidden)
	if msg := decode[errorBody](t, w).Message; msg != "Not authorized to update this property" {
		t.Errorf("message = %q", msg)
	}

	// Partial nested update keeps the stored frequency.
	w = s.do(http.MethodPut, path, owner, obj{"price": obj{"amount": 1350}, "status": "pending"})
	expectStatus(t, w, http.StatusOK)
	updated := decode[models.Property](t, w)
	if updated.Price.Amount != 1350 || updated.Price.Frequency == nil || *updated.Price.Frequency != models.FrequencyMonthly {
		t.Errorf("price = %+v", updated.Price)
	}
	if updated.Status != models.PropertyPending {
		t.Errorf("status = %q, want pending", updated.Status)
	}
	if len(s.media.destroyCounts()) != 0 {
		t.Error("update without images released images")
	}

	w = s.do(http.MethodPut, path, owner, obj{"price": obj{"frequency": nil}})
	expectStatus(t, w, http.StatusBadRequest)

	old := updated.Images
	w = s.form(http.MethodPut, path, owner, map[string]string{"title": "Renovated flat"}, 3)
	expectStatus(t, w, http.StatusOK)
	updated = decode[models.Property](t, w)
	if updated.Title != "Renovated flat" || len(updated.Images) != 3 {
		t.Errorf("updated = %q with %d images", updated.Title, len(updated.Images))
	}

	counts := s.media.destroyCounts()
	if len(counts) != len(old) {
		t.Errorf("destroys = %v, want one per old image", counts)
	}
	for _, img := range old {
		if counts[img.PublicID] != 1 {
			t.Errorf("image %s destroyed %d times, want 1", img.PublicID, counts[img.PublicID])
		}
	}

	w = s.do(http.MethodPut, "/api/properties/999", owner, obj{"title": "x"})
	expectStatus(t, w, http.StatusNotFound)
}

func TestDeleteProperty(t *testing.T) {
	s := newTestServer(t)
	_, owner := s.user(models.RoleLandlord, "owner@homie.test")
	_, other := s.user(models.RoleLandlord, "other@homie.test")
	_, tenant := s.user(models.RoleTenant, "tenant@homie.test")
	property := s.createProperty(owner, nil, 2)
	path := "/api/properties/" + strconv.Itoa(int(property.ID))

	expectStatus(t, s.do(http.MethodPost, path+"/save", tenant, nil), http.StatusOK)

	w := s.do(http.MethodDelete, path, other, nil)
	expectStatus(t, w, http.StatusForbidden)
	if len(s.media.destroyCounts()) != 0 {
		t.Fatal("forbidden delete released images")
	}

	w = s.do(http.MethodDelete, path, owner, nil)
	expectStatus(t, w, http.StatusOK)

	counts := s.media.destroyCounts()
	for _, img := range property.Images {
		if counts[img.PublicID] != 1 {
			t.Errorf("image %s destroyed %d times, want 1", img.PublicID, counts[img.PublicID])
		}
	}
	expectStatus(t, s.do(http.MethodGet, path, "", nil), http.StatusNotFound)

	var saved int64
	s.db.Model(&models.SavedProperty{}).Where("property_id = ?", property.ID).Count(&saved)
	if saved != 0 {
		t.Errorf("saved entries left: %d", saved)
	}
	if s.events.published(events.PropertyDeleted) != 1 {
		t.Error("property.deleted not published")
	}
}

func TestSaveUnsaveProperty(t *testing.T) {
	s := newTestServer(t)
	_, landlord := s.user(models.RoleLandlord, "landlord@homie.test")
	_, tenant := s.user(models.RoleTenant, "tenant@homie.test")
	property := s.createProperty(landlord, nil, 1)
	path := "/api/properties/" + strconv.Itoa(int(property.ID))

	isSaved := func() bool {
		t.Helper()
		w := s.do(http.MethodGet, path+"/saved", tenant, nil)
		expectStatus(t, w, http.StatusOK)
		return decode[struct {
			Saved bool `json:"saved"`
		}](t, w).Saved
	}

	if isSaved() {
		t.Fatal("saved before saving")
	}
	expectStatus(t, s.do(http.MethodPost, path+"/save", tenant, nil), http.StatusOK)
	if !isSaved() {
		t.Fatal("not saved after saving")
	}

	w := s.do(http.MethodPost, path+"/save", tenant, nil)
	expectStatus(t, w, http.StatusBadRequest)
	if msg := decode[errorBody](t, w).Message; msg != "Property already saved" {
		t.Errorf("message = %q", msg)
	}

	expectStatus(t, s.do(http.MethodDelete, path+"/save", tenant, nil), http.StatusOK)
	if isSaved() {
		t.Fatal("still saved after unsaving")
	}
	w = s.do(http.MethodDelete, path+"/save", tenant, nil)
	expectStatus(t, w, http.StatusBadRequest)
	if msg := decode[errorBody](t, w).Message; msg != "Property not saved" {
		t.Errorf("message = %q", msg)
	}

	expectStatus(t, s.do(http.MethodPost, "/api/properties/999/save", tenant, nil), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodPost, path+"/save", landlord, nil), http.StatusForbidden)
}

func TestUpdateProperty_KeepsStatusWrittenDuringUpload(t *testing.T) {
	s := newTestServer(t)
	_, landlord := s.user(models.RoleLandlord, "landlord@homie.test")
	_, first := s.user(models.RoleTenant, "first@homie.test")
	_, second := s.user(models.RoleTenant, "second@homie.test")
	_, late := s.user(models.RoleTenant, "late@homie.test")
	property := s.createProperty(landlord, nil, 1)
	approved := s.apply(first, property.ID)
	sibling := s.apply(second, property.ID)

	// The landlord approves an application while the update's images upload.
	s.media.onUpload = func() {
		w := s.do(http.MethodPut, fmt.Sprintf("/api/applications/%d/status", approved.ID), landlord, obj{"status": "approved"})
		if w.Code != http.StatusOK {
			t.Errorf("approve during upload: status %d: %s", w.Code, w.Body.String())
		}
	}
	path := "/api/properties/" + strconv.Itoa(int(property.ID))
	w := s.form(http.MethodPut, path, landlord, map[string]string{"title": "Renovated flat"}, 1)
	expectStatus(t, w, http.StatusOK)
	updated := decode[models.Property](t, w)
	if updated.Title != "Renovated flat" || updated.Status != models.PropertyRented {
		t.Errorf("updated = %q %q, want the new title and rented", updated.Title, updated.Status)
	}

	var stored models.Property
	s.db.First(&stored, property.ID)
	if stored.Status != models.PropertyRented {
		t.Fatalf("stored status = %q, want rented", stored.Status)
	}

	w = s.do(http.MethodPost, "/api/applications", late, obj{"propertyId": property.ID})
	expectStatus(t, w, http.StatusBadRequest)
	w = s.do(http.MethodPut, fmt.Sprintf("/api/applications/%d/status", sibling.ID), landlord, obj{"status": "approved"})
	expectStatus(t, w, http.StatusBadRequest)

	var approvedCount int64
	s.db.Model(&models.Application{}).
		Where("property_id = ? AND status = ?", property.ID, models.ApplicationApproved).
		Count(&approvedCount)
	if approvedCount != 1 {
		t.Errorf("approved applications = %d, want 1", approvedCount)
	}
}

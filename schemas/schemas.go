// Package schemas holds the JSON schemas request documents are checked
// against before they are decoded into typed values.
package schemas

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sidhant-sriv/homie-api/models"
)

//go:embed *.json
var files embed.FS

var (
	compileOnce sync.Once
	property    *jsonschema.Schema
	compileErr  error
)

func compile() {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	f, err := files.Open("property.json")
	if err != nil {
		compileErr = fmt.Errorf("open property schema: %w", err)
		return
	}
	defer f.Close()

	if err := compiler.AddResource("property.json", f); err != nil {
		compileErr = fmt.Errorf("add property schema: %w", err)
		return
	}
	property, compileErr = compiler.Compile("property.json")
}

// ValidateProperty checks a decoded JSON document (maps, slices, float64,
// string, bool, nil) against the property schema. Violations are returned as
// a models validation error listing every failing field.
func ValidateProperty(doc any) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}

	err := property.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	return models.Validation("Validation Error", fieldErrors(ve)...)
}

// fieldErrors flattens the basic output into one entry per instance location,
// keeping the leaf messages only.
func fieldErrors(ve *jsonschema.ValidationError) []models.FieldError {
	seen := make(map[string]string)
	for _, e := range ve.BasicOutput().Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		field := strings.ReplaceAll(strings.TrimPrefix(e.InstanceLocation, "/"), "/", ".")
		if field == "" {
			field = "body"
		}
		if _, ok := seen[field]; !ok {
			seen[field] = e.Error
		}
	}

	out := make([]models.FieldError, 0, len(seen))
	for field, msg := range seen {
		out = append(out, models.FieldError{Field: field, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

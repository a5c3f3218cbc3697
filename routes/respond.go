package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sidhant-sriv/homie-api/middleware"
	"github.com/sidhant-sriv/homie-api/models"
)

// fail writes err as a JSON error body. Errors without a models kind are
// logged and reported as a bare 500.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrInvalidTransition):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		middleware.Logger(c).Error("request failed",
			"http_method", c.Request.Method,
			"http_path", c.FullPath(),
			"error", err)
		c.AbortWithStatusJSON(status, gin.H{"message": "Internal Server Error"})
		return
	}

	body := gin.H{"message": err.Error()}
	var apiErr *models.Error
	if errors.As(err, &apiErr) {
		body["message"] = apiErr.Message
		if apiErr.Message == "" {
			body["message"] = apiErr.Kind.Error()
		}
		if len(apiErr.Fields) > 0 {
			body["errors"] = apiErr.Fields
		}
	}
	c.AbortWithStatusJSON(status, body)
}

// bindError converts a gin binding failure into a validation error.
func bindError(err error) error {
	var apiErr *models.Error
	if errors.As(err, &apiErr) {
		return err
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]models.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, models.FieldError{Field: fieldPath(fe), Message: ruleMessage(fe)})
		}
		return models.Validation("Validation Error", fields...)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return models.Validation("Request body is required")
	case errors.As(err, &syntaxErr):
		return models.Validation("Malformed JSON body")
	case errors.As(err, &typeErr):
		return models.Validation("Validation Error", models.FieldError{Field: typeErr.Field, Message: "must be a " + typeErr.Type.String()})
	}
	return models.Validation("Invalid input")
}

// bindQueryError converts a query binding failure into a validation error.
// gin reports unparsable values without the parameter name, so the name is
// recovered from the raw query.
func bindQueryError(c *gin.Context, err error) error {
	var numErr *strconv.NumError
	if !errors.As(err, &numErr) {
		return bindError(err)
	}
	message := "must be a number"
	if numErr.Func == "ParseBool" {
		message = "must be true or false"
	}
	return models.Validation("Validation Error", models.FieldError{
		Field:   queryKey(c, numErr.Num),
		Message: message,
	})
}

// queryKey returns the first query parameter, in key order, holding value.
func queryKey(c *gin.Context, value string) string {
	query := c.Request.URL.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if slices.Contains(query[k], value) {
			return k
		}
	}
	return "query"
}

// ruleMessage renders a failed validator rule for API clients.
func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "yearbuilt":
		return "must be between 1800 and the current year"
	case "rentfrequency":
		return "is required when listingType is rent"
	case "latitude", "longitude":
		return "must be a valid " + fe.Tag()
	}
	return "failed the " + fe.Tag() + " rule"
}

// parseID reads a numeric path parameter.
func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, models.Validation("Invalid " + name)
	}
	return uint(id), nil
}

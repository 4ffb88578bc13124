package items

import (
	"github.com/go-playground/validator/v10"
)

// Validator instance for request validation
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateRequest runs struct-tag validation and returns field-level
// violation messages keyed by field name
func ValidateRequest(req interface{}) map[string][]string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string][]string{"request": {"invalid request"}}
	}

	details := make(map[string][]string)
	for _, fe := range validationErrors {
		details[fieldName(fe)] = append(details[fieldName(fe)], fieldMessage(fe))
	}
	return details
}

// fieldName maps a struct field to its wire name
func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		return "name"
	case "Category":
		return "category"
	case "Condition":
		return "condition"
	case "AgeDays":
		return "age_days"
	case "Description":
		return "description"
	}
	return fe.Field()
}

// fieldMessage turns a validation tag into a human-readable message
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fieldName(fe) + " is required"
	case "gte":
		return fieldName(fe) + " must be at least " + fe.Param()
	}
	return fieldName(fe) + " is invalid"
}

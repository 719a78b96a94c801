package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/taskwise/internal/models"
	"github.com/go-playground/validator/v10"
)

const (
	// MaxTitleLength is the maximum length for a task title
	MaxTitleLength = 10000
	// MaxDescriptionLength is the maximum length for a task description
	MaxDescriptionLength = 10000
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("recurrence", validateRecurrence); err != nil {
		panic(fmt.Sprintf("failed to register recurrence validator: %v", err))
	}
}

// validateRecurrence validates that a string is a valid Recurrence enum value
func validateRecurrence(fl validator.FieldLevel) bool {
	return models.Recurrence(fl.Field().String()).Valid()
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return strings.TrimSpace(sanitized.String())
}

// FieldError describes the first rule a TaskInput broke
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NormalizeTaskInput sanitizes the input in place and checks it.
// Missing category falls back to the default, missing recurrence means none.
func NormalizeTaskInput(in *models.TaskInput) *FieldError {
	in.Title = SanitizeText(in.Title)
	in.Description = SanitizeText(in.Description)
	in.Category = in.Category.Normalize()
	if r, ok := models.ParseRecurrence(string(in.Recurrence)); ok {
		in.Recurrence = r
	}

	if in.Title == "" {
		return &FieldError{Field: "title", Message: "title cannot be empty"}
	}

	if err := Validate.Struct(in); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				return &FieldError{Field: jsonFieldName(fieldError.Field()), Message: describe(fieldError)}
			}
		}
		return &FieldError{Field: "input", Message: "validation failed"}
	}

	return nil
}

// ValidateRecurrence validates a Recurrence string value
func ValidateRecurrence(value string) error {
	if _, ok := models.ParseRecurrence(value); !ok {
		return fmt.Errorf("invalid recurrence: %s (must be 'none', 'daily', 'weekly', or 'monthly')", value)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("exceeds maximum length of %s characters", fe.Param())
	case "recurrence":
		return fmt.Sprintf("invalid recurrence %q (must be 'none', 'daily', 'weekly', or 'monthly')", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func jsonFieldName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"topomap/internal/domain"
)

// newValidator registers the topology enum tags
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("devicetype", func(fl validator.FieldLevel) bool {
		return domain.DeviceType(fl.Field().String()).Valid()
	})
	v.RegisterValidation("nodestatus", func(fl validator.FieldLevel) bool {
		return domain.NodeStatus(fl.Field().String()).Valid()
	})
	v.RegisterValidation("portstatus", func(fl validator.FieldLevel) bool {
		return domain.PortStatus(fl.Field().String()).Valid()
	})
	v.RegisterValidation("linktype", func(fl validator.FieldLevel) bool {
		return domain.LinkType(fl.Field().String()).Valid()
	})
	v.RegisterValidation("linkstatus", func(fl validator.FieldLevel) bool {
		return domain.LinkStatus(fl.Field().String()).Valid()
	})
	return v
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// formatFieldError formats a single field validation error
func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s is out of range", field)
	case "hexcolor":
		return fmt.Sprintf("%s must be a hex color", field)
	case "devicetype":
		return fmt.Sprintf("%s must be a known device type", field)
	case "nodestatus", "portstatus", "linkstatus":
		return fmt.Sprintf("%s is not a valid status", field)
	case "linktype":
		return fmt.Sprintf("%s must be fiber, utp, wireless or virtual", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

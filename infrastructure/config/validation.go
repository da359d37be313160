package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New()

// FieldError describes one invalid field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every invalid field of a document.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "machine config validation failed: " + strings.Join(parts, "; ")
}

// Validate checks the struct tags of m and the memory layout.
func (m *Machine) Validate() error {
	var fields []FieldError

	if err := validate.Struct(m); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return fmt.Errorf("machine config validation failed: %w", err)
		}
		for _, fe := range ve {
			fields = append(fields, FieldError{
				Field:   fe.Namespace(),
				Message: describe(fe),
			})
		}
	}

	if m.Memory.MaxAllocation > m.Memory.PhysicalSize {
		fields = append(fields, FieldError{
			Field:   "Machine.Memory.MaxAllocation",
			Message: "exceeds physical_size",
		})
	}
	if m.RootPointer != 0 && m.RootPointer >= m.Memory.PhysicalSize {
		fields = append(fields, FieldError{
			Field:   "Machine.RootPointer",
			Message: "outside physical memory",
		})
	}
	for i, r := range m.Memory.Regions {
		if r.Address >= m.Memory.PhysicalSize {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("Machine.Memory.Regions[%d].Address", i),
				Message: "outside physical memory",
			})
		}
		if r.Hex != "" {
			if _, err := r.Bytes(m); err != nil {
				fields = append(fields, FieldError{
					Field:   fmt.Sprintf("Machine.Memory.Regions[%d].Hex", i),
					Message: "must be hexadecimal",
				})
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "excluded_with":
		return "cannot be combined with " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

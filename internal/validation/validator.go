package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/bluetooth-registry/bt-registry-server/pkg/btcore"
)

// Validator validates structs
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a struct using `validate` tags
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct")
	}

	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("validate")

		if tag == "" {
			continue
		}

		if err := v.validateField(field, tag); err != nil {
			return fmt.Errorf("%s: %w", fieldType.Name, err)
		}
	}

	return nil
}

// validateField validates a single field
func (v *Validator) validateField(field reflect.Value, tag string) error {
	rules := strings.Split(tag, ",")

	for _, rule := range rules {
		parts := strings.SplitN(rule, "=", 2)
		ruleName := parts[0]

		arg := 0
		if len(parts) == 2 {
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				return fmt.Errorf("bad validate tag argument %q", parts[1])
			}
			arg = n
		}

		switch ruleName {
		case "required":
			if field.IsZero() {
				return fmt.Errorf("field is required")
			}

		case "email":
			if field.Kind() == reflect.String {
				email := field.String()
				at := strings.Index(email, "@")
				if at < 1 || at == len(email)-1 {
					return fmt.Errorf("invalid email format")
				}
			}

		case "min":
			if n, ok := fieldLen(field); ok && n < arg {
				return fmt.Errorf("minimum length is %d", arg)
			}

		case "max":
			if n, ok := fieldLen(field); ok && n > arg {
				return fmt.Errorf("maximum length is %d", arg)
			}

		case "len":
			if n, ok := fieldLen(field); ok && n != arg {
				return fmt.Errorf("length must be exactly %d", arg)
			}

		case "mac":
			if field.Kind() == reflect.String && field.String() != "" {
				if _, err := btcore.ParseBDAddr(field.String()); err != nil {
					return fmt.Errorf("invalid MAC address")
				}
			}
		}
	}

	return nil
}

func fieldLen(field reflect.Value) (int, bool) {
	switch field.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return field.Len(), true
	default:
		return 0, false
	}
}

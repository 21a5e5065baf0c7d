// Package validation wraps struct-tag validation of request bodies.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]{3,30}$`)

// Validator checks request bodies and reports failures as field errors.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator reporting fields by their JSON names.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates s and returns a *ValidationError describing every failed field.
func (v *Validator) Struct(s interface{}) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &serviceErrors.ValidationError{}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, modeldto.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

// Var validates a single value against tag.
func (v *Validator) Var(field string, value interface{}, tag string) error {
	err := v.v.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return serviceErrors.NewValidationError(field, message(fieldErrs[0]))
	}
	return err
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "username":
		return "must be 3-30 letters, digits, '_' or '.'"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "http_url":
		return "must be an http(s) URL"
	case "alpha":
		return "must contain letters only"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

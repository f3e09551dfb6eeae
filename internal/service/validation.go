package service

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrFieldRequired = errors.New("this field is required")
	ErrFieldBlank    = errors.New("this field may not be blank")
	ErrFieldTooShort = errors.New("value is too short")
	ErrFieldTooLong  = errors.New("value is too long")
	ErrFieldInvalid  = errors.New("value is invalid")
	ErrInvalidEmail  = errors.New("enter a valid email address")

	ErrPriceTooLarge      = errors.New("ensure there are no more than 5 digits in total")
	ErrPriceDecimalPlaces = errors.New("ensure there are no more than 2 decimal places")
)

var maxPrice = decimal.RequireFromString("999.99")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError collects per-field input errors. errors.Is reaches the
// individual field errors.
type ValidationError struct {
	Fields map[string]error
}

// Add records err for field; the first error recorded for a field wins.
func (e *ValidationError) Add(field string, err error) {
	if e.Fields == nil {
		e.Fields = make(map[string]error)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = err
	}
}

// OrNil returns e when any field failed and nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) sortedFields() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, name := range e.sortedFields() {
		parts = append(parts, name+": "+e.Fields[name].Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, name := range e.sortedFields() {
		errs = append(errs, e.Fields[name])
	}
	return errs
}

// checkStruct validates v's struct tags and records failures on ve.
func checkStruct(ve *ValidationError, v any) {
	err := validate.Struct(v)
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		ve.Add("non_field_errors", err)
		return
	}
	for _, fe := range verrs {
		ve.Add(fe.Field(), fieldError(fe))
	}
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.String {
			return ErrFieldBlank
		}
		return ErrFieldRequired
	case "min":
		if fe.Kind() == reflect.String && fe.Param() == "1" {
			return ErrFieldBlank
		}
		return fmt.Errorf("%w: ensure this field has at least %s characters", ErrFieldTooShort, fe.Param())
	case "max":
		return fmt.Errorf("%w: ensure this field has no more than %s characters", ErrFieldTooLong, fe.Param())
	case "email":
		return ErrInvalidEmail
	default:
		return fmt.Errorf("%w: failed %q check", ErrFieldInvalid, fe.Tag())
	}
}

// checkPrice enforces a DECIMAL(5,2) column: at most two decimal places and
// an absolute value no larger than 999.99.
func checkPrice(ve *ValidationError, p decimal.Decimal) {
	switch {
	case !p.Equal(p.Round(2)):
		ve.Add("price", ErrPriceDecimalPlaces)
	case p.Abs().GreaterThan(maxPrice):
		ve.Add("price", ErrPriceTooLarge)
	}
}

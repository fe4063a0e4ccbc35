package stats

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput is matched by every *InvalidInputError.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a count (or alpha) that violates the
// calculator's preconditions. Field uses the external name, for example
// "impressions_a".
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s (got %v)", e.Field, e.Reason, e.Value)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// counts mirrors the two samples with their external field names so
// validation errors can name the offending field.
type counts struct {
	ImpressionsA int `json:"impressions_a" validate:"gt=0"`
	ConversionsA int `json:"conversions_a" validate:"gte=0,ltefield=ImpressionsA"`
	ImpressionsB int `json:"impressions_b" validate:"gt=0"`
	ConversionsB int `json:"conversions_b" validate:"gte=0,ltefield=ImpressionsB"`
}

var countsValidate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validate(a, b Sample, alpha float64) error {
	err := countsValidate.Struct(counts{
		ImpressionsA: a.Impressions,
		ConversionsA: a.Conversions,
		ImpressionsB: b.Impressions,
		ConversionsB: b.Conversions,
	})
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return fmt.Errorf("validate counts: %w", err)
		}
		fe := verrs[0]
		return &InvalidInputError{
			Field:  fe.Field(),
			Value:  fe.Value(),
			Reason: reasonFor(fe),
		}
	}

	// NaN fails both comparisons.
	if !(alpha > 0 && alpha < 1) {
		return &InvalidInputError{Field: "alpha", Value: alpha, Reason: "must be between 0 and 1"}
	}

	return nil
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be negative"
	case "ltefield":
		return "must not exceed " + strings.Replace(fe.Field(), "conversions", "impressions", 1)
	}
	return "failed " + fe.Tag()
}

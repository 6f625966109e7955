package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"

	"github.com/farmstand-app/orderflow/internal/monitoring"
)

// phoneRegion is the default region for parsing customer phone numbers.
var phoneRegion = "US"

// securityFields always fail validation hard, regardless of strictness
// classification, because accepting a malformed value here is a risk rather
// than an inconvenience.
var securityFields = map[string]bool{
	"Password": true,
	"Token":    true,
	"Secret":   true,
	"APIKey":   true,
	"Role":     true,
}

// New returns a configured validator with the custom phone rule and the
// struct-level fulfillment validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", phoneValidation)
	v.RegisterStructValidation(submitOrderStructValidation, SubmitOrderRequest{})
	return v
}

// phoneValidation accepts numbers libphonenumber considers valid for the
// default region, or anything with a plausible digit count when the parser
// rejects the raw formatting.
func phoneValidation(fl validatorv10.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	if raw == "" {
		return false
	}
	if num, err := libphonenumber.Parse(raw, phoneRegion); err == nil && libphonenumber.IsValidNumber(num) {
		return true
	}
	digits := NormalizePhone(raw)
	return len(digits) >= 10 && len(digits) <= 15
}

// submitOrderStructValidation enforces the fulfillment cross-field rules:
// delivery needs an address, pickup needs a date and a time.
func submitOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(SubmitOrderRequest)
	switch req.FulfillmentMode {
	case "delivery":
		if strings.TrimSpace(req.DeliveryAddress) == "" {
			sl.ReportError(req.DeliveryAddress, "delivery_address", "DeliveryAddress",
				"fulfillment", "delivery orders require a delivery address")
		}
	case "pickup":
		if strings.TrimSpace(req.PickupDate) == "" {
			sl.ReportError(req.PickupDate, "pickup_date", "PickupDate",
				"fulfillment", "pickup orders require a pickup date")
		}
		if strings.TrimSpace(req.PickupTime) == "" {
			sl.ReportError(req.PickupTime, "pickup_time", "PickupTime",
				"fulfillment", "pickup orders require a pickup time")
		}
	}
}

// ValidateStruct runs the full pipeline on an already-typed value:
// sanitize, shape-check, optionally transform. The outcome reports every
// step taken; mon observes every failure and success.
func ValidateStruct[T any](mon *monitoring.Monitor, v *validatorv10.Validate, in T, opts Options) Outcome[T] {
	out := Outcome[T]{}
	out.Sanitized = sanitizeValue(reflect.ValueOf(&in).Elem())

	hadViolations := false
	if err := v.Struct(in); err != nil {
		hadViolations = true
		critical, minor := splitViolations(err, opts)
		switch opts.Strictness {
		case Strict:
			out.Errors = append(critical, minor...)
			mon.RecordValidationError(opts.Scope, out.Errors)
			return out
		case Lenient:
			out.Warnings = append(critical, minor...)
			mon.RecordValidationError(opts.Scope, out.Warnings)
		default: // Moderate
			if len(critical) > 0 {
				out.Errors = critical
				out.Warnings = minor
				mon.RecordValidationError(opts.Scope, critical)
				return out
			}
			out.Warnings = minor
		}
	}

	if opts.Transform {
		out.Transformed = transformValue(reflect.ValueOf(&in).Elem())
	}
	out.Success = true
	out.Data = &in
	if !hadViolations {
		mon.RecordPatternSuccess(opts.Scope)
	}
	return out
}

// ValidateRecord runs the pipeline on a loosely-typed record: sanitize the
// raw map, coerce numeric strings, decode into T, then shape-check. The
// caller's map is never mutated.
func ValidateRecord[T any](mon *monitoring.Monitor, v *validatorv10.Validate, raw map[string]any, opts Options) Outcome[T] {
	rec := cloneRecord(raw)
	sanitized := sanitizeRecord(rec)
	coerced := false
	if opts.Transform {
		coerced = CoerceNumericStrings(rec)
	}

	in, err := decodeRecord[T](rec)
	if err != nil {
		msg := fmt.Sprintf("record does not match the expected shape: %v", err)
		mon.RecordValidationError(opts.Scope, []string{msg})
		return Outcome[T]{Errors: []string{msg}, Sanitized: sanitized, Transformed: coerced}
	}

	out := ValidateStruct(mon, v, in, opts)
	out.Sanitized = out.Sanitized || sanitized
	out.Transformed = out.Transformed || coerced
	return out
}

// MustValidate validates with moderate strictness and transformation and
// returns either usable data or a plain error joining every message, so call
// sites that just want validated data can use ordinary error handling.
func MustValidate[T any](mon *monitoring.Monitor, v *validatorv10.Validate, in T, scope string) (T, error) {
	return mustValidate(mon, v, in, Options{Strictness: Moderate, Transform: true, Scope: scope})
}

// MustValidateStrict rejects on any violation.
func MustValidateStrict[T any](mon *monitoring.Monitor, v *validatorv10.Validate, in T, scope string) (T, error) {
	return mustValidate(mon, v, in, Options{Strictness: Strict, Transform: true, Scope: scope})
}

// MustValidateLenient returns sanitized data whenever possible.
func MustValidateLenient[T any](mon *monitoring.Monitor, v *validatorv10.Validate, in T, scope string) (T, error) {
	return mustValidate(mon, v, in, Options{Strictness: Lenient, Transform: true, Scope: scope})
}

func mustValidate[T any](mon *monitoring.Monitor, v *validatorv10.Validate, in T, opts Options) (T, error) {
	out := ValidateStruct(mon, v, in, opts)
	if !out.Success {
		var zero T
		return zero, errors.New(strings.Join(out.Errors, "; "))
	}
	return *out.Data, nil
}

func splitViolations(err error, opts Options) (critical, minor []string) {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}, nil
	}
	for _, fe := range ve {
		msg := messageFor(fe, opts.FieldMessages)
		if isCritical(fe) {
			critical = append(critical, msg)
		} else {
			minor = append(minor, msg)
		}
	}
	return critical, minor
}

// isCritical classifies a violation: missing required fields, fulfillment
// prerequisites and security-sensitive fields are critical; bounds and
// format violations are recoverable.
func isCritical(fe validatorv10.FieldError) bool {
	if securityFields[fe.StructField()] {
		return true
	}
	switch fe.Tag() {
	case "required", "required_if", "required_with", "fulfillment":
		return true
	}
	return false
}

func messageFor(fe validatorv10.FieldError, overrides map[string]string) string {
	field := fe.Field()
	if ov, ok := overrides[field]; ok {
		return ov
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "phone":
		return fmt.Sprintf("%s must be a valid phone number", field)
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array || fe.Kind() == reflect.Map {
			return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array || fe.Kind() == reflect.Map {
			return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have length %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "fulfillment":
		if fe.Param() != "" {
			return fe.Param()
		}
		return fmt.Sprintf("%s is required for the selected fulfillment mode", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

package core

// validation.go derives per-field validation rules from variants.
//
// Rules are chosen at two levels:
//  1. Variant: email, phone, numeric and boolean variants have fixed rules
//  2. Runtime type: everything else is validated by the Go type of the
//     field's current value (number, bool, nil, otherwise text)
//
// Invalid values never panic. They are reported as per-field messages that
// the editor shows inline.

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// MinPhoneLength is the minimum accepted length of phone numbers.
const MinPhoneLength = 10

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// FieldErrors maps field names to their validation message.
type FieldErrors map[string]string

// Error joins the messages in field order.
func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = ValidationError{Field: f, Message: e[f]}.Error()
	}
	return "invalid field values: " + strings.Join(parts, "; ")
}

// List returns the errors as ValidationErrors sorted by field.
func (e FieldErrors) List() []ValidationError {
	out := make([]ValidationError, 0, len(e))
	for f, msg := range e {
		out = append(out, ValidationError{Field: f, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

var (
	errNotNumber = errors.New("Must be a number")
	errNotBool   = errors.New("Must be true or false")
	errNotText   = errors.New("Must be text")
	errNotDate   = errors.New("Invalid date")
)

// RuleFor returns the validation rules of a field with variant v whose current
// value is sample.
func RuleFor(v Variant, sample any) []validation.Rule {
	switch v {
	case Email:
		return []validation.Rule{validation.By(stringOnly), is.EmailFormat.Error("Invalid email address")}
	case Phone:
		return []validation.Rule{validation.By(stringOnly), validation.Length(MinPhoneLength, 0).Error("Phone number is too short")}
	case Currency, Percentage, Progress, Rating, Sentiment:
		return []validation.Rule{validation.By(numberRule)}
	case Boolean, Verified:
		return []validation.Rule{validation.By(boolRule)}
	case Avatar:
		return nil
	case EmailList:
		return []validation.Rule{validation.By(emailListRule)}
	case Date:
		return []validation.Rule{validation.By(dateRule)}
	case Badge, Status, Icon, Flag, Username, Image, Tag, Role, Location, RichText, Color, Custom:
		return ruleForSample(sample)
	default:
		return ruleForSample(sample)
	}
}

// ruleForSample picks a rule from the runtime type of the current value.
func ruleForSample(sample any) []validation.Rule {
	switch sample.(type) {
	case nil:
		return nil
	case bool:
		return []validation.Rule{validation.By(boolRule)}
	case time.Time:
		return []validation.Rule{validation.By(dateRule)}
	case string:
		return []validation.Rule{validation.By(stringOnly)}
	}
	if IsNumber(sample) {
		return []validation.Rule{validation.By(numberRule)}
	}
	// Structured values (media, badges, lists) are edited through dedicated
	// inputs and are not constrained further.
	return nil
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

func numberRule(value any) error {
	if isBlank(value) {
		return nil
	}
	if _, ok := ToFloat(value); !ok {
		return errNotNumber
	}
	return nil
}

func boolRule(value any) error {
	switch b := value.(type) {
	case nil, bool:
		return nil
	case string:
		if isBlank(b) {
			return nil
		}
		if _, ok := ParseBool(b); ok {
			return nil
		}
	}
	return errNotBool
}

func dateRule(value any) error {
	switch d := value.(type) {
	case nil, time.Time:
		return nil
	case string:
		if isBlank(d) {
			return nil
		}
		if _, ok := ParseDate(d); ok {
			return nil
		}
	}
	return errNotDate
}

func stringOnly(value any) error {
	switch value.(type) {
	case nil, string:
		return nil
	default:
		return errNotText
	}
}

func emailListRule(value any) error {
	items, ok := normalizeList(value).([]string)
	if !ok {
		if isBlank(value) {
			return nil
		}
		return errNotText
	}
	for _, item := range items {
		if err := validation.Validate(item, is.EmailFormat); err != nil {
			return fmt.Errorf("Invalid email address: %s", item)
		}
	}
	return nil
}

// valueKind is the value type a submitted field is coerced to.
type valueKind int

const (
	kindAny valueKind = iota
	kindText
	kindNumber
	kindBool
	kindDate
	kindList
)

func kindOf(v Variant, sample any) valueKind {
	switch v {
	case Currency, Percentage, Progress, Rating, Sentiment:
		return kindNumber
	case Boolean, Verified:
		return kindBool
	case Email, Phone:
		return kindText
	case EmailList:
		return kindList
	case Date:
		return kindDate
	case Avatar:
		return kindAny
	}

	switch sample.(type) {
	case bool:
		return kindBool
	case time.Time:
		return kindDate
	case string:
		return kindText
	}
	if IsNumber(sample) {
		return kindNumber
	}
	return kindAny
}

// coerce converts a validated submitted value to its field's value type.
// Numeric fields become float64 and dates time.Time, both nil when blank.
// Boolean fields become bool (blank becomes false) and email lists []string.
func coerce(kind valueKind, value any) any {
	switch kind {
	case kindNumber:
		if isBlank(value) {
			return nil
		}
		f, _ := ToFloat(value)
		return f
	case kindBool:
		if isBlank(value) {
			return false
		}
		if s, ok := value.(string); ok {
			b, _ := ParseBool(s)
			return b
		}
		return value
	case kindDate:
		if isBlank(value) {
			return nil
		}
		return normalizeDate(value)
	case kindList:
		if isBlank(value) {
			return []string{}
		}
		return normalizeList(value)
	default:
		return value
	}
}

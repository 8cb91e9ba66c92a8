package core

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Default editor button labels.
const (
	DefaultSubmitLabel = "Submit"
	DefaultCancelLabel = "Cancel"
)

// FormField is one generated input of a Form.
type FormField struct {
	Name    string
	Label   string
	Variant Variant
	Input   InputKind
	Value   any // Variant-normalized value
	Options []DropdownOption
	Error   string

	kind  valueKind
	rules []validation.Rule
}

// Form is a validated editor generated from a record and a variant map.
// It does not talk to the backend: Submit only validates and returns values.
type Form struct {
	Fields      []FormField
	SubmitLabel string
	CancelLabel string
	ReadOnly    bool
}

// FormOption customizes BuildForm.
type FormOption func(*Form)

// WithSubmitLabel sets the submit button label.
func WithSubmitLabel(label string) FormOption {
	return func(f *Form) { f.SubmitLabel = label }
}

// WithCancelLabel sets the cancel button label.
func WithCancelLabel(label string) FormOption {
	return func(f *Form) { f.CancelLabel = label }
}

// ReadOnly disables every input and the submit button.
func ReadOnly() FormOption {
	return func(f *Form) { f.ReadOnly = true }
}

// WithFieldLabels overrides the humanized label of the given fields.
func WithFieldLabels(labels map[string]string) FormOption {
	return func(f *Form) {
		for i := range f.Fields {
			if l, ok := labels[f.Fields[i].Name]; ok && l != "" {
				f.Fields[i].Label = l
			}
		}
	}
}

// BuildForm creates one field per key of record, in key order. Initial values
// are the variant-normalized values of record. Rules are derived from the
// variant, or from the runtime type of the raw value for generic fields.
func BuildForm(record Record, variants VariantMap, options DropdownOptions, opts ...FormOption) *Form {
	f := &Form{
		Fields:      make([]FormField, 0, record.Len()),
		SubmitLabel: DefaultSubmitLabel,
		CancelLabel: DefaultCancelLabel,
	}

	for _, p := range record.Pairs() {
		v := variants.Of(p.Key)
		field := FormField{
			Name:    p.Key,
			Label:   Humanize(p.Key),
			Variant: v,
			Input:   InputKindFor(v, p.Value),
			Value:   Normalize(v, p.Value),
			kind:    kindOf(v, p.Value),
			rules:   RuleFor(v, p.Value),
		}
		if opts := options.For(p.Key); len(opts) > 0 && field.Input.IsPicker() {
			field.Options = opts
		}
		f.Fields = append(f.Fields, field)
	}

	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Field returns the field named name.
func (f *Form) Field(name string) (*FormField, bool) {
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			return &f.Fields[i], true
		}
	}
	return nil, false
}

// Values returns the current field values in field order.
func (f *Form) Values() Record {
	var r Record
	for _, field := range f.Fields {
		r.Set(field.Name, field.Value)
	}
	return r
}

// Submit validates the submitted values of the form's fields. Keys that are not
// form fields are ignored; absent fields are not validated. On success it
// returns the submitted values with numeric and boolean fields coerced to
// their Go types. On failure it returns per-field messages and records them,
// together with the submitted values, on the form so it can be shown again.
func (f *Form) Submit(values Record) (Record, FieldErrors) {
	if f == nil {
		panic("core: Submit on nil Form")
	}

	var out Record
	errs := make(FieldErrors)

	for i := range f.Fields {
		field := &f.Fields[i]
		field.Error = ""

		raw, ok := values.Get(field.Name)
		if !ok {
			continue
		}
		if err := validation.Validate(raw, field.rules...); err != nil {
			field.Error = fieldMessage(err)
			errs[field.Name] = field.Error
			field.Value = raw
			continue
		}
		out.Set(field.Name, coerce(field.kind, raw))
	}

	if len(errs) > 0 {
		return Record{}, errs
	}
	return out, nil
}

// fieldMessage extracts the user message of a rule error.
func fieldMessage(err error) string {
	var ve validation.Error
	if errors.As(err, &ve) {
		return ve.Message()
	}
	return err.Error()
}

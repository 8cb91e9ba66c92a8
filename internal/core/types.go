// Package core holds the variant-driven table domain: records, variants,
// column generation, the data editor and preview, and the table
// orchestrator. It has no transport or storage dependencies.
package core

import (
	"context"
)

// DropdownOption is one (value, label) choice of a picker input or filter.
type DropdownOption struct {
	Value string `koanf:"value" json:"value"`
	Label string `koanf:"label" json:"label"`
}

// DropdownOptions maps field names to their option sets.
type DropdownOptions map[string][]DropdownOption

// For returns the options of field, or nil.
func (d DropdownOptions) For(field string) []DropdownOption {
	return d[field]
}

// FieldSpec declares one field of a registered table.
type FieldSpec struct {
	Name     string           // Record key and database column
	Label    string           // Display label; humanized Name when empty
	Variant  Variant          // Display/edit kind
	Default  any              // Value in the create template
	Editable bool             // Editable inline in the grid
	Hidden   bool             // Excluded from the preview
	Options  []DropdownOption // Picker choices
	Search   bool             // Included in rich search
}

// TableInfo contains display information about a table.
type TableInfo struct {
	Key         string // Unique identifier and database table: "influencers"
	Group       string // Navigation group: "Databases", "Payments"
	Label       string // Display name: "Influencers"
	Description string
}

// Features toggles orchestrator capabilities.
type Features struct {
	Create         bool `koanf:"create"`
	Edit           bool `koanf:"edit"`
	Delete         bool `koanf:"delete"`
	RowSelection   bool `koanf:"row_selection"`
	Filtering      bool `koanf:"filtering"`
	ColumnOrdering bool `koanf:"column_ordering"`
	Pagination     bool `koanf:"pagination"`
	Preview        bool `koanf:"preview"`
	CSVImport      bool `koanf:"csv_import"`
}

// DefaultFeatures enables everything except CSV import.
func DefaultFeatures() Features {
	return Features{
		Create:         true,
		Edit:           true,
		Delete:         true,
		RowSelection:   true,
		Filtering:      true,
		ColumnOrdering: true,
		Pagination:     true,
		Preview:        true,
	}
}

// ActionFunc is the behavior of a row or bulk action.
type ActionFunc func(ctx context.Context, rows []Record) error

// Action describes a custom row action or bulk action.
type Action struct {
	Label string
	Icon  string
	Color string
	Run   ActionFunc
}

// TableDefinition contains everything needed to present and edit a table.
type TableDefinition struct {
	Info       TableInfo
	FieldSpecs []FieldSpec
	Features   Features

	// PageSize is the number of rows per grid page (default 10).
	PageSize int

	// OrderColumn orders queries newest-first (default created_at).
	OrderColumn string

	// Returning limits the columns read back from the backend ("*" when empty).
	Returning []string

	// RPC, when set, loads rows from a server procedure instead of the table.
	RPC       string
	RPCParams map[string]any

	// PerRowDelete deletes selected rows one call at a time.
	PerRowDelete bool

	// Prepare, when set, cleans a row before it is written to the backend.
	Prepare func(Record) Record

	StatusMap     StatusMap
	PreviewLabels map[string]string
	EmptyState    string

	BulkActions   []Action
	CustomActions []Action
}

// DefaultPageSize is used when a definition leaves PageSize unset.
const DefaultPageSize = 10

// DefaultOrderColumn is the conventional creation timestamp.
const DefaultOrderColumn = "created_at"

// DefaultEmptyState is shown when a table has no rows.
const DefaultEmptyState = "No records found"

// Template returns the create template built from field defaults.
func (t TableDefinition) Template() Record {
	var r Record
	for _, f := range t.FieldSpecs {
		r.Set(f.Name, f.Default)
	}
	return r
}

// Variants returns the table's variant map.
func (t TableDefinition) Variants() VariantMap {
	m := make(VariantMap, len(t.FieldSpecs))
	for _, f := range t.FieldSpecs {
		m[f.Name] = f.Variant
	}
	return m
}

// EditableFields returns the names of inline-editable fields.
func (t TableDefinition) EditableFields() []string {
	var out []string
	for _, f := range t.FieldSpecs {
		if f.Editable {
			out = append(out, f.Name)
		}
	}
	return out
}

// Dropdowns returns the option sets declared by field specs.
func (t TableDefinition) Dropdowns() DropdownOptions {
	d := make(DropdownOptions)
	for _, f := range t.FieldSpecs {
		if len(f.Options) > 0 {
			d[f.Name] = f.Options
		}
	}
	return d
}

// Labels returns explicit labels merged over PreviewLabels.
func (t TableDefinition) Labels() map[string]string {
	out := make(map[string]string, len(t.PreviewLabels))
	for k, v := range t.PreviewLabels {
		out[k] = v
	}
	for _, f := range t.FieldSpecs {
		if f.Label != "" {
			out[f.Name] = f.Label
		}
	}
	return out
}

// HiddenFields returns fields excluded from the preview.
func (t TableDefinition) HiddenFields() []string {
	var out []string
	for _, f := range t.FieldSpecs {
		if f.Hidden {
			out = append(out, f.Name)
		}
	}
	return out
}

// SearchColumns returns the fields searched by rich search. Text-like
// fields are used when none is flagged.
func (t TableDefinition) SearchColumns() []string {
	var out []string
	for _, f := range t.FieldSpecs {
		if f.Search {
			out = append(out, f.Name)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, f := range t.FieldSpecs {
		switch f.Variant {
		case Custom, Email, Username, Location, Role, Status, Tag:
			if f.Name != IDField {
				out = append(out, f.Name)
			}
		}
	}
	return out
}

// Columns returns the field names in declaration order.
func (t TableDefinition) Columns() []string {
	out := make([]string, len(t.FieldSpecs))
	for i, f := range t.FieldSpecs {
		out[i] = f.Name
	}
	return out
}

// Config builds the orchestrator configuration for the table.
func (t TableDefinition) Config() TableConfig {
	pageSize := t.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	empty := t.EmptyState
	if empty == "" {
		empty = DefaultEmptyState
	}
	return TableConfig{
		Title:          t.Info.Label,
		Variants:       t.Variants(),
		Template:       t.Template(),
		EditableFields: t.EditableFields(),
		Dropdowns:      t.Dropdowns(),
		Features:       t.Features,
		PageSize:       pageSize,
		StatusMap:      t.StatusMap,
		PreviewExclude: t.HiddenFields(),
		PreviewLabels:  t.Labels(),
		EmptyState:     empty,
		BulkActions:    t.BulkActions,
		CustomActions:  t.CustomActions,
	}
}

// FilterOperator represents a comparison operator for grid column filters.
type FilterOperator string

const (
	OpContains   FilterOperator = "contains"
	OpEquals     FilterOperator = "eq"
	OpStartsWith FilterOperator = "starts"
	OpEndsWith   FilterOperator = "ends"
	OpGreaterEq  FilterOperator = "gte"
	OpLessEq     FilterOperator = "lte"
	OpGreater    FilterOperator = "gt"
	OpLess       FilterOperator = "lt"
	OpIn         FilterOperator = "in"
)

// ColumnFilter represents a single filter condition on a column.
type ColumnFilter struct {
	Column   string         // Record key
	Operator FilterOperator // Comparison operator
	Value    string         // Filter value (comma-separated for OpIn)
}

// SortSpec represents a single sort column and direction.
type SortSpec struct {
	Column string // Record key
	Dir    string // "asc" or "desc"
}

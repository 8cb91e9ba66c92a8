package core

// EditKind is how an editable column is edited inline in the grid.
type EditKind string

const (
	EditNone   EditKind = ""
	EditText   EditKind = "text"
	EditSelect EditKind = "select"
)

// ColumnDef is a derived grid column. It is recomputed from the current rows
// and variant map and never persisted.
type ColumnDef struct {
	Key      string
	Header   string
	Variant  Variant
	Editable bool
	EditKind EditKind
	Input    InputKind
	Options  []DropdownOption

	statusMap StatusMap
}

// Cell normalizes the column's value in row and describes how to render it.
func (c ColumnDef) Cell(row Record) DisplayValue {
	return Display(c.Variant, row.Value(c.Key), DisplayOptions{StatusMap: c.statusMap})
}

// ColumnOption customizes GenerateColumns.
type ColumnOption func(*columnOptions)

type columnOptions struct {
	statusMap StatusMap
	dropdowns DropdownOptions
	labels    map[string]string
}

// WithStatusMap sets the status map used by status columns.
func WithStatusMap(m StatusMap) ColumnOption {
	return func(o *columnOptions) { o.statusMap = m }
}

// WithDropdowns attaches option sets to picker and select-edited columns.
func WithDropdowns(d DropdownOptions) ColumnOption {
	return func(o *columnOptions) { o.dropdowns = d }
}

// WithHeaders overrides the humanized header of the given fields.
func WithHeaders(labels map[string]string) ColumnOption {
	return func(o *columnOptions) { o.labels = labels }
}

// GenerateColumns derives one column per key of the first sample record, in
// that record's key order. It returns nil when samples is empty. Editability
// is exactly the editable set.
func GenerateColumns(samples []Record, variants VariantMap, editable []string, opts ...ColumnOption) []ColumnDef {
	if len(samples) == 0 {
		return nil
	}

	var o columnOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.statusMap == nil {
		o.statusMap = DefaultStatusMap()
	}

	editSet := make(map[string]bool, len(editable))
	for _, f := range editable {
		editSet[f] = true
	}

	first := samples[0]
	cols := make([]ColumnDef, 0, first.Len())
	for _, key := range first.Keys() {
		v := variants.Of(key)
		header := o.labels[key]
		if header == "" {
			header = Humanize(key)
		}

		col := ColumnDef{
			Key:       key,
			Header:    header,
			Variant:   v,
			Editable:  editSet[key],
			Input:     InputKindFor(v, first.Value(key)),
			Options:   o.dropdowns.For(key),
			statusMap: o.statusMap,
		}
		if col.Editable {
			col.EditKind = EditText
			if len(col.Options) > 0 {
				col.EditKind = EditSelect
			}
		}
		cols = append(cols, col)
	}
	return cols
}

// Column returns the column with key, or false.
func Column(cols []ColumnDef, key string) (ColumnDef, bool) {
	for _, c := range cols {
		if c.Key == key {
			return c, true
		}
	}
	return ColumnDef{}, false
}

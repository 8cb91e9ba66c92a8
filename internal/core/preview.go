package core

// Layout is a presentation strategy for a Preview. Layouts differ only in
// presentation; they show the same fields.
type Layout string

const (
	LayoutTable Layout = "table"
	LayoutCard  Layout = "card"
	LayoutGrid  Layout = "grid"
)

// ParseLayout returns the layout named s, defaulting to LayoutTable.
func ParseLayout(s string) Layout {
	switch Layout(s) {
	case LayoutCard:
		return LayoutCard
	case LayoutGrid:
		return LayoutGrid
	default:
		return LayoutTable
	}
}

// DefaultPreviewTitle is used when PreviewOptions.Title is unset.
const DefaultPreviewTitle = "Data Preview"

// PreviewOptions controls BuildPreview.
type PreviewOptions struct {
	Exclude   []string
	Labels    map[string]string
	Layout    Layout
	StatusMap StatusMap

	// Title is shown above the fields. Nil uses DefaultPreviewTitle; an empty
	// string hides the title.
	Title *string
}

// PreviewField is one labeled, rendered field of a Preview.
type PreviewField struct {
	Key     string
	Label   string
	Variant Variant
	Value   DisplayValue
}

// Preview is a read-only labeled view of a record.
type Preview struct {
	Title  string
	Layout Layout
	Fields []PreviewField
}

// BuildPreview renders every key of record not in opts.Exclude, in key order.
// Each field is labeled from opts.Labels or by humanizing its key, and
// rendered with the same Display dispatch used by table cells.
func BuildPreview(record Record, variants VariantMap, opts PreviewOptions) Preview {
	exclude := make(map[string]bool, len(opts.Exclude))
	for _, f := range opts.Exclude {
		exclude[f] = true
	}

	title := DefaultPreviewTitle
	if opts.Title != nil {
		title = *opts.Title
	}
	layout := opts.Layout
	if layout == "" {
		layout = LayoutTable
	}

	p := Preview{Title: title, Layout: layout}
	for _, pair := range record.Pairs() {
		if exclude[pair.Key] {
			continue
		}
		label, ok := opts.Labels[pair.Key]
		if !ok {
			label = Humanize(pair.Key)
		}
		v := variants.Of(pair.Key)
		p.Fields = append(p.Fields, PreviewField{
			Key:     pair.Key,
			Label:   label,
			Variant: v,
			Value:   Display(v, pair.Value, DisplayOptions{StatusMap: opts.StatusMap}),
		})
	}
	return p
}

// Rows splits the fields into rows of n for the grid layout.
func (p Preview) Rows(n int) [][]PreviewField {
	if n <= 0 {
		n = 2
	}
	var rows [][]PreviewField
	for i := 0; i < len(p.Fields); i += n {
		end := min(i+n, len(p.Fields))
		rows = append(rows, p.Fields[i:end])
	}
	return rows
}

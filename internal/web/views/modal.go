package views

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/fastro/internal/core"
)

// ModalParams describes the open modal of a table.
type ModalParams struct {
	Table  string
	Modal  core.Modal
	Upload bool // Object storage available for media inputs
}

func (p ModalParams) base() string {
	return "/tables/" + url.PathEscape(p.Table)
}

// Modal renders the table's open modal, or an empty slot when none is open.
func Modal(p ModalParams) templ.Component {
	return component(func(_ context.Context, b *builder) error {
		m := p.Modal
		if !m.Open() {
			b.printf(`<div id="%s"></div>`, ModalID)
			return nil
		}

		b.printf(`<div id="%s" class="modal" role="dialog" aria-modal="true"`, ModalID)
		if m.Form != nil {
			b.attr("data-signals", formSignals(m.Form))
		}
		b.WriteString(`><div class="modal-body"><header><h2>`)
		b.text(m.Title)
		b.printf(`</h2><button class="close" data-on:click="@post('%s/close')">×</button></header>`, p.base())

		if m.Err != nil {
			if _, ok := m.Err.(core.FieldErrors); !ok {
				msg := core.MapError(m.Err)
				b.WriteString(`<div class="alert alert-error"><p>`)
				b.text(msg.Message)
				b.WriteString("</p></div>")
			}
		}

		switch m.Kind {
		case core.ModalCreate:
			form(b, p, m.Form, p.base()+"/create")
		case core.ModalEdit:
			form(b, p, m.Form, p.base()+"/rows/"+url.PathEscape(m.RowID)+"/edit")
		case core.ModalConfirm:
			confirm(b, p, m.Confirm)
		case core.ModalPreview:
			if m.Preview != nil {
				preview(b, *m.Preview)
			}
		case core.ModalImport:
			importForm(b, p)
		}
		b.WriteString("</div></div>")
		return nil
	})
}

// formSignals seeds the form signal object with the fields' current values.
func formSignals(f *core.Form) string {
	values := make(map[string]any, len(f.Fields))
	for _, field := range f.Fields {
		values[field.Name] = inputValue(field.Variant, field.Value)
	}
	raw, err := json.Marshal(map[string]any{"form": values})
	if err != nil {
		return `{"form":{}}`
	}
	return string(raw)
}

// inputValue converts a normalized value to what an input edits. Date
// fields edit the day; other timestamps keep their full precision.
func inputValue(variant core.Variant, v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case core.Media:
		return t.Src
	case core.BadgeValue:
		return t.Label
	case time.Time:
		if variant == core.Date {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339Nano)
	case []string:
		return strings.Join(t, ", ")
	case bool, float64, int, int64, string:
		return t
	default:
		return core.ToText(t)
	}
}

func form(b *builder, p ModalParams, f *core.Form, action string) {
	if f == nil {
		return
	}
	b.WriteString(`<form class="editor" data-on:submit__prevent="@post('`)
	b.text(action)
	b.WriteString(`')">`)

	for _, field := range f.Fields {
		name := "form." + field.Name
		b.WriteString(`<label class="field"><span>`)
		b.text(field.Label)
		b.WriteString("</span>")

		switch field.Input {
		case core.InputSelect:
			b.WriteString("<select")
			b.attr("data-bind", name)
			disabled(b, f)
			b.WriteString(`><option value=""></option>`)
			current := core.ToText(inputValue(field.Variant, field.Value))
			for _, o := range field.Options {
				b.WriteString("<option")
				b.attr("value", o.Value)
				if o.Value == current {
					b.WriteString(" selected")
				}
				b.WriteString(">")
				b.text(o.Label)
				b.WriteString("</option>")
			}
			b.WriteString("</select>")
		case core.InputCheckbox:
			b.WriteString(`<input type="checkbox"`)
			b.attr("data-bind", name)
			disabled(b, f)
			b.WriteString(">")
		case core.InputRichText:
			b.WriteString(`<textarea rows="6"`)
			b.attr("data-bind", name)
			disabled(b, f)
			b.WriteString("></textarea>")
		default:
			b.WriteString("<input")
			b.attr("type", inputType(field.Input))
			b.attr("data-bind", name)
			if field.Input == core.InputNumber {
				b.WriteString(` step="any"`)
			}
			disabled(b, f)
			b.WriteString(">")
			if p.Upload && (field.Input == core.InputAvatar || field.Input == core.InputImage) {
				b.WriteString(`<small class="hint">Paste an image URL or upload a file to storage first.</small>`)
			}
		}

		if field.Error != "" {
			b.WriteString(`<small class="field-error">`)
			b.text(field.Error)
			b.WriteString("</small>")
		}
		b.WriteString("</label>")
	}

	b.WriteString(`<footer><button type="button"`)
	b.attr("data-on:click", "@post('"+p.base()+"/close')")
	b.WriteString(">")
	b.text(f.CancelLabel)
	b.WriteString(`</button>`)
	if !f.ReadOnly {
		b.WriteString(`<button type="submit" class="primary">`)
		b.text(f.SubmitLabel)
		b.WriteString("</button>")
	}
	b.WriteString("</footer></form>")
}

func disabled(b *builder, f *core.Form) {
	if f.ReadOnly {
		b.WriteString(" disabled")
	}
}

func inputType(k core.InputKind) string {
	switch k {
	case core.InputNumber:
		return "number"
	case core.InputDate:
		return "date"
	case core.InputColor:
		return "color"
	case core.InputAvatar, core.InputImage:
		return "url"
	default:
		return "text"
	}
}

func confirm(b *builder, p ModalParams, c *core.ConfirmPrompt) {
	if c == nil {
		return
	}
	b.WriteString(`<p class="confirm-message">`)
	b.text(c.Message)
	b.WriteString(`</p><footer><button`)
	b.attr("data-on:click", "@post('"+p.base()+"/cancel')")
	b.WriteString(">")
	b.text(c.CancelLabel)
	b.WriteString(`</button><button class="danger"`)
	b.attr("data-on:click", "@post('"+p.base()+"/confirm')")
	b.WriteString(">")
	b.text(c.ConfirmLabel)
	b.WriteString("</button></footer>")
}

func preview(b *builder, p core.Preview) {
	if p.Title != "" {
		b.WriteString("<h3>")
		b.text(p.Title)
		b.WriteString("</h3>")
	}
	switch p.Layout {
	case core.LayoutGrid:
		b.WriteString(`<div class="preview-grid">`)
		for _, row := range p.Rows(2) {
			b.WriteString(`<div class="preview-row">`)
			for _, f := range row {
				previewField(b, f, "div")
			}
			b.WriteString("</div>")
		}
		b.WriteString("</div>")
	case core.LayoutCard:
		b.WriteString(`<dl class="preview-card">`)
		for _, f := range p.Fields {
			b.WriteString("<dt>")
			b.text(f.Label)
			b.WriteString("</dt><dd>")
			cell(b, f.Value)
			b.WriteString("</dd>")
		}
		b.WriteString("</dl>")
	default:
		b.WriteString(`<table class="preview-table"><tbody>`)
		for _, f := range p.Fields {
			previewField(b, f, "tr")
		}
		b.WriteString("</tbody></table>")
	}
}

func previewField(b *builder, f core.PreviewField, tag string) {
	if tag == "tr" {
		b.WriteString("<tr><th>")
		b.text(f.Label)
		b.WriteString("</th><td>")
		cell(b, f.Value)
		b.WriteString("</td></tr>")
		return
	}
	b.WriteString(`<div class="preview-field"><span class="label">`)
	b.text(f.Label)
	b.WriteString("</span>")
	cell(b, f.Value)
	b.WriteString("</div>")
}

func importForm(b *builder, p ModalParams) {
	b.WriteString(`<form class="import" method="post" enctype="multipart/form-data"`)
	b.attr("action", p.base()+"/import")
	b.WriteString(`><label class="field"><span>CSV file</span><input type="file" name="file" accept=".csv,text/csv" required></label>`)
	b.WriteString(`<label class="field"><span>Delimiter</span><input name="delimiter" value="," maxlength="1"></label>`)
	b.WriteString(`<label class="field"><input type="checkbox" name="skipHeader" value="true" checked> First row is a header</label>`)
	b.WriteString(`<label class="field"><input type="checkbox" name="useBatchProcessing" value="true"> Use batch processing</label>`)
	b.WriteString(`<footer><button type="submit" class="primary">Import</button></footer></form>`)
}

package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Variant is the display/edit kind of a field. The set is closed: every
// dispatch over Variant is a switch with one case per constant and a default
// arm that falls back to Custom behavior.
type Variant int

const (
	Custom Variant = iota
	Avatar
	Badge
	Progress
	Status
	Icon
	Date
	Rating
	Flag
	Verified
	Currency
	Percentage
	Email
	Phone
	Username
	Image
	Tag
	Boolean
	Role
	Location
	RichText
	Color
	Sentiment
	EmailList
)

// variantTags maps each variant to its canonical tag.
var variantTags = [...]string{
	Custom:     "custom",
	Avatar:     "avatar",
	Badge:      "badge",
	Progress:   "progress",
	Status:     "status",
	Icon:       "icon",
	Date:       "date",
	Rating:     "rating",
	Flag:       "flag",
	Verified:   "verified",
	Currency:   "currency",
	Percentage: "percentage",
	Email:      "email",
	Phone:      "phone",
	Username:   "username",
	Image:      "image",
	Tag:        "tag",
	Boolean:    "boolean",
	Role:       "role",
	Location:   "location",
	RichText:   "rich-text",
	Color:      "color",
	Sentiment:  "sentiment",
	EmailList:  "email-list",
}

// variantAliases are additional tags accepted by ParseVariant.
var variantAliases = map[string]Variant{
	"rich-editor": RichText,
	"richtext":    RichText,
	"bool":        Boolean,
	"emaillist":   EmailList,
	"text":        Custom,
}

// AllVariants returns every variant in declaration order.
func AllVariants() []Variant {
	out := make([]Variant, len(variantTags))
	for i := range variantTags {
		out[i] = Variant(i)
	}
	return out
}

// String returns the variant's canonical tag.
func (v Variant) String() string {
	if v < 0 || int(v) >= len(variantTags) {
		return variantTags[Custom]
	}
	return variantTags[v]
}

// ParseVariant resolves a tag to a Variant. Unknown tags resolve to Custom
// and ok=false; they are never an error.
func ParseVariant(tag string) (Variant, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for i, t := range variantTags {
		if t == tag {
			return Variant(i), true
		}
	}
	if v, ok := variantAliases[tag]; ok {
		return v, true
	}
	return Custom, false
}

// MarshalText implements encoding.TextMarshaler.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown tags decode to
// Custom.
func (v *Variant) UnmarshalText(b []byte) error {
	*v, _ = ParseVariant(string(b))
	return nil
}

// VariantMap maps field names to variants. Absent fields are Custom.
type VariantMap map[string]Variant

// Of returns the variant for field.
func (m VariantMap) Of(field string) Variant {
	if v, ok := m[field]; ok {
		return v
	}
	return Custom
}

// ParseVariantMap builds a VariantMap from tags. Unknown tags map to Custom.
func ParseVariantMap(tags map[string]string) VariantMap {
	m := make(VariantMap, len(tags))
	for field, tag := range tags {
		m[field], _ = ParseVariant(tag)
	}
	return m
}

// Media is the canonical shape of avatar and image values.
type Media struct {
	Src  string `json:"src"`
	Name string `json:"name,omitempty"`
}

// BadgeValue is the canonical shape of badge values.
type BadgeValue struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// DefaultAvatarName is the alt text given to avatars supplied as a bare URL.
const DefaultAvatarName = "User Avatar"

// DefaultBadgeColor is the color given to badges supplied as a bare label.
const DefaultBadgeColor = "blue"

// Normalize coerces raw into the canonical Go value for variant v.
//
// Normalize is idempotent: Normalize(v, Normalize(v, x)) == Normalize(v, x).
// Values that cannot be coerced normalize to nil rather than failing.
func Normalize(v Variant, raw any) any {
	if raw == nil {
		return nil
	}

	switch v {
	case Currency, Percentage, Progress, Rating, Sentiment:
		return normalizeNumber(raw)
	case Boolean, Verified:
		return normalizeBool(raw)
	case Avatar:
		return normalizeMedia(raw, DefaultAvatarName)
	case Image:
		return normalizeMedia(raw, "")
	case Badge:
		return normalizeBadge(raw)
	case Date:
		return normalizeDate(raw)
	case EmailList:
		return normalizeList(raw)
	case Tag:
		return normalizeTags(raw)
	case Email, Phone, Username, Color, Flag, Icon, Role, Location, Status:
		if s, ok := raw.(string); ok {
			return strings.TrimSpace(s)
		}
		return raw
	case RichText, Custom:
		return raw
	default:
		return raw
	}
}

// StorageValue shapes value for a column of variant v before it is written.
// Blank numbers and dates become nil, email lists become []string (empty
// when blank), and parseable text becomes a float64, bool or time.Time.
// Values that do not parse and other variants pass through unchanged.
func StorageValue(v Variant, value any) any {
	switch {
	case v.IsNumeric(), v == Date:
		if isBlank(value) {
			return nil
		}
	case v == EmailList:
		if isBlank(value) {
			return []string{}
		}
	case v.IsBoolean():
		if isBlank(value) {
			return false
		}
	default:
		return value
	}
	if out := Normalize(v, value); out != nil {
		return out
	}
	return value
}

func normalizeNumber(raw any) any {
	if b, ok := raw.(bool); ok {
		if b {
			return float64(1)
		}
		return float64(0)
	}
	if f, ok := ToFloat(raw); ok {
		return f
	}
	return nil
}

func normalizeBool(raw any) any {
	switch b := raw.(type) {
	case bool:
		return b
	case string:
		if v, ok := ParseBool(b); ok {
			return v
		}
		return nil
	default:
		if f, ok := ToFloat(raw); ok {
			return f != 0
		}
		return nil
	}
}

func normalizeMedia(raw any, defaultName string) any {
	switch m := raw.(type) {
	case Media:
		if m.Src == "" {
			return nil
		}
		return m
	case *Media:
		if m == nil || m.Src == "" {
			return nil
		}
		return *m
	case string:
		src := strings.TrimSpace(m)
		if src == "" {
			return nil
		}
		return Media{Src: src, Name: defaultName}
	case map[string]any:
		src := ToText(firstOf(m, "src", "url", "uri"))
		if src == "" {
			return nil
		}
		name := ToText(firstOf(m, "name", "alt"))
		if name == "" {
			name = defaultName
		}
		return Media{Src: src, Name: name}
	default:
		return nil
	}
}

var badgeKeyColors = [][2]string{{"true", "green"}, {"false", "red"}, {"neutral", "gray"}}

func normalizeBadge(raw any) any {
	switch b := raw.(type) {
	case BadgeValue:
		return b
	case string:
		label := strings.TrimSpace(b)
		if label == "" {
			return nil
		}
		return BadgeValue{Label: label, Color: DefaultBadgeColor}
	case bool:
		if b {
			return BadgeValue{Label: "Yes", Color: "green"}
		}
		return BadgeValue{Label: "No", Color: "red"}
	case map[string]any:
		// {true: "Verified"} style badges pick their color from the key.
		for _, kc := range badgeKeyColors {
			if label, ok := b[kc[0]]; ok {
				return BadgeValue{Label: ToText(label), Color: kc[1]}
			}
		}
		label := ToText(b["label"])
		if label == "" {
			return nil
		}
		color := ToText(b["color"])
		if color == "" {
			color = DefaultBadgeColor
		}
		return BadgeValue{Label: label, Color: color}
	default:
		if label := ToText(raw); label != "" {
			return BadgeValue{Label: label, Color: DefaultBadgeColor}
		}
		return nil
	}
}

func normalizeDate(raw any) any {
	switch d := raw.(type) {
	case time.Time:
		return d
	case *time.Time:
		if d == nil {
			return nil
		}
		return *d
	case string:
		if strings.TrimSpace(d) == "" {
			return nil
		}
		if t, ok := ParseDate(d); ok {
			return t
		}
		return d
	default:
		return raw
	}
}

func normalizeList(raw any) any {
	switch l := raw.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s := ToText(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return splitList(l)
	default:
		return raw
	}
}

func normalizeTags(raw any) any {
	switch t := raw.(type) {
	case []any, []string:
		return normalizeList(t)
	default:
		return raw
	}
}

func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// InputKind is the kind of form input used to edit a field.
type InputKind string

const (
	InputText      InputKind = "input"
	InputNumber    InputKind = "number"
	InputSelect    InputKind = "select"
	InputCheckbox  InputKind = "checkbox"
	InputDate      InputKind = "date"
	InputAvatar    InputKind = "avatar"
	InputImage     InputKind = "image"
	InputRichText  InputKind = "rich-editor"
	InputColor     InputKind = "color"
	InputEmailList InputKind = "email-list-input"
)

// IsPicker reports whether the input chooses from dropdown options.
func (k InputKind) IsPicker() bool {
	return k == InputSelect
}

// InputKind returns the input kind declared for the variant.
func (v Variant) InputKind() InputKind {
	switch v {
	case Avatar:
		return InputAvatar
	case Badge, Status, Role:
		return InputSelect
	case Progress, Rating, Currency, Percentage, Sentiment:
		return InputNumber
	case Verified, Boolean:
		return InputCheckbox
	case Date:
		return InputDate
	case Image:
		return InputImage
	case RichText:
		return InputRichText
	case Color:
		return InputColor
	case EmailList:
		return InputEmailList
	case Icon, Flag, Email, Phone, Username, Tag, Location, Custom:
		return InputText
	default:
		return InputText
	}
}

// InputKindFor picks the input for a field. The sample value's runtime type
// wins over the declared variant, so a Custom field holding a number still
// gets a numeric input.
func InputKindFor(v Variant, sample any) InputKind {
	switch sample.(type) {
	case bool:
		return InputCheckbox
	}
	if IsNumber(sample) {
		return InputNumber
	}
	return v.InputKind()
}

// IsNumeric reports whether the variant holds numbers.
func (v Variant) IsNumeric() bool {
	switch v {
	case Currency, Percentage, Progress, Rating, Sentiment:
		return true
	default:
		return false
	}
}

// IsBoolean reports whether the variant holds booleans.
func (v Variant) IsBoolean() bool {
	return v == Boolean || v == Verified
}

// formatJSON renders structured values for Custom cells.
func formatJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

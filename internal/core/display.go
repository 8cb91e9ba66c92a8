package core

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/dustin/go-humanize"
)

// DisplayKind tells a renderer which visual primitive to draw.
type DisplayKind string

const (
	DisplayEmpty    DisplayKind = "empty"
	DisplayText     DisplayKind = "text"
	DisplayLink     DisplayKind = "link"
	DisplayImage    DisplayKind = "image"
	DisplayBadge    DisplayKind = "badge"
	DisplayProgress DisplayKind = "progress"
	DisplayList     DisplayKind = "list"
	DisplaySwatch   DisplayKind = "swatch"
)

// EmptyText is shown for nil values.
const EmptyText = "—"

// MaxListItems is how many email-list entries are shown before "+N more".
const MaxListItems = 5

// richTextExcerpt is the rune budget of a rich text cell.
const richTextExcerpt = 120

// DisplayValue is a renderer-neutral description of a cell.
type DisplayValue struct {
	Kind    DisplayKind
	Text    string
	Href    string
	Src     string
	Color   string
	Icon    string
	Percent float64
	Items   []string
	More    int
}

// StatusStyle is the icon and color shown for one status value.
type StatusStyle struct {
	Icon  string `koanf:"icon" json:"icon"`
	Color string `koanf:"color" json:"color"`
}

// StatusMap maps status values to their style.
type StatusMap map[string]StatusStyle

// DefaultStatusMap is used when a status column has no caller-supplied map.
func DefaultStatusMap() StatusMap {
	return StatusMap{
		"complete": {Icon: "✅", Color: "green"},
		"pending":  {Icon: "⏳", Color: "orange"},
		"failed":   {Icon: "❌", Color: "red"},
	}
}

// DisplayOptions carries per-column rendering inputs.
type DisplayOptions struct {
	StatusMap StatusMap
}

// Display normalizes value for variant v and describes how to render it.
// It is the single renderer shared by table cells and the preview.
func Display(v Variant, value any, opts DisplayOptions) DisplayValue {
	value = Normalize(v, value)
	if value == nil {
		return DisplayValue{Kind: DisplayEmpty, Text: EmptyText}
	}

	switch v {
	case Avatar, Image:
		if m, ok := value.(Media); ok {
			return DisplayValue{Kind: DisplayImage, Src: m.Src, Text: m.Name}
		}
		return textValue(value)
	case Badge:
		if b, ok := value.(BadgeValue); ok {
			return DisplayValue{Kind: DisplayBadge, Text: b.Label, Color: b.Color}
		}
		return textValue(value)
	case Status:
		return statusValue(ToText(value), opts.StatusMap)
	case Role:
		return DisplayValue{Kind: DisplayBadge, Text: ToText(value), Color: "purple"}
	case Verified:
		if b, ok := value.(bool); ok && b {
			return DisplayValue{Kind: DisplayBadge, Text: "Verified", Color: "green", Icon: "✔"}
		}
		return DisplayValue{Kind: DisplayBadge, Text: "Unverified", Color: "gray"}
	case Boolean:
		if b, ok := value.(bool); ok && b {
			return DisplayValue{Kind: DisplayText, Text: "Yes"}
		}
		return DisplayValue{Kind: DisplayText, Text: "No"}
	case Currency:
		return DisplayValue{Kind: DisplayText, Text: FormatCurrency(value.(float64))}
	case Percentage:
		return DisplayValue{Kind: DisplayText, Text: trimFloat(value.(float64)) + "%"}
	case Progress:
		pct := math.Max(0, math.Min(100, value.(float64)))
		return DisplayValue{Kind: DisplayProgress, Percent: pct, Text: trimFloat(pct) + "%"}
	case Rating:
		return DisplayValue{Kind: DisplayText, Text: fmt.Sprintf("%.1f/5", value.(float64)), Icon: "★"}
	case Sentiment:
		return sentimentValue(value.(float64))
	case Date:
		if t, ok := value.(time.Time); ok {
			return DisplayValue{Kind: DisplayText, Text: t.Format("Jan 2, 2006")}
		}
		return textValue(value)
	case Email:
		s := ToText(value)
		return DisplayValue{Kind: DisplayLink, Text: s, Href: "mailto:" + s}
	case Phone:
		s := ToText(value)
		return DisplayValue{Kind: DisplayLink, Text: s, Href: "tel:" + strings.ReplaceAll(s, " ", "")}
	case Username:
		return DisplayValue{Kind: DisplayText, Text: "@" + strings.TrimPrefix(ToText(value), "@")}
	case Color:
		c := "#" + strings.TrimPrefix(ToText(value), "#")
		return DisplayValue{Kind: DisplaySwatch, Text: c, Color: c}
	case Flag:
		code := strings.ToUpper(ToText(value))
		return DisplayValue{Kind: DisplayText, Text: code, Icon: flagEmoji(code)}
	case Icon:
		return DisplayValue{Kind: DisplayText, Icon: ToText(value), Text: ToText(value)}
	case Location:
		return DisplayValue{Kind: DisplayText, Text: ToText(value), Icon: "📍"}
	case EmailList:
		if items, ok := value.([]string); ok {
			return listValue(items, MaxListItems)
		}
		return textValue(value)
	case Tag:
		switch t := value.(type) {
		case []string:
			return listValue(t, len(t))
		case string:
			items := splitList(t)
			return listValue(items, len(items))
		}
		return textValue(value)
	case RichText:
		return DisplayValue{Kind: DisplayText, Text: RichTextExcerpt(ToText(value), richTextExcerpt)}
	case Custom:
		return textValue(value)
	default:
		return textValue(value)
	}
}

func textValue(value any) DisplayValue {
	switch value.(type) {
	case map[string]any, []any, Record:
		return DisplayValue{Kind: DisplayText, Text: formatJSON(value)}
	case string:
		return DisplayValue{Kind: DisplayText, Text: value.(string)}
	default:
		return DisplayValue{Kind: DisplayText, Text: ToText(value)}
	}
}

func statusValue(status string, m StatusMap) DisplayValue {
	if m == nil {
		m = DefaultStatusMap()
	}
	style, ok := m[status]
	if !ok {
		style, ok = m[strings.ToLower(status)]
	}
	if !ok {
		style = StatusStyle{Color: "gray"}
	}
	return DisplayValue{Kind: DisplayBadge, Text: status, Icon: style.Icon, Color: style.Color}
}

func sentimentValue(score float64) DisplayValue {
	switch {
	case score >= 0.66:
		return DisplayValue{Kind: DisplayBadge, Text: "Positive", Color: "green", Icon: "😊"}
	case score >= 0.33:
		return DisplayValue{Kind: DisplayBadge, Text: "Neutral", Color: "gray", Icon: "😐"}
	default:
		return DisplayValue{Kind: DisplayBadge, Text: "Negative", Color: "red", Icon: "😞"}
	}
}

func listValue(items []string, max int) DisplayValue {
	if len(items) <= max {
		return DisplayValue{Kind: DisplayList, Items: items}
	}
	return DisplayValue{Kind: DisplayList, Items: items[:max], More: len(items) - max}
}

// FormatCurrency formats an amount in dollars with thousands separators.
func FormatCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", amount)
}

func trimFloat(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%d", int64(f))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

// flagEmoji converts an ISO 3166 alpha-2 code to its regional-indicator flag.
func flagEmoji(code string) string {
	if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return ""
	}
	const base = 0x1F1E6
	return string([]rune{rune(base + int(code[0]-'A')), rune(base + int(code[1]-'A'))})
}

// RichTextExcerpt converts rich text HTML to a single-line plain excerpt of at
// most limit runes.
func RichTextExcerpt(html string, limit int) string {
	text := html
	if strings.Contains(html, "<") {
		if md, err := htmltomarkdown.ConvertString(html); err == nil {
			text = md
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplay(t *testing.T) {
	tests := []struct {
		name    string
		variant Variant
		value   any
		want    DisplayValue
	}{
		{"nil is empty", Currency, nil, DisplayValue{Kind: DisplayEmpty, Text: EmptyText}},
		{"invalid currency is empty", Currency, "abc", DisplayValue{Kind: DisplayEmpty, Text: EmptyText}},
		{"currency", Currency, "1234.5", DisplayValue{Kind: DisplayText, Text: "$1,234.50"}},
		{"negative currency", Currency, -12, DisplayValue{Kind: DisplayText, Text: "-$12.00"}},
		{"percentage", Percentage, 12.5, DisplayValue{Kind: DisplayText, Text: "12.5%"}},
		{"progress clamps", Progress, 140, DisplayValue{Kind: DisplayProgress, Percent: 100, Text: "100%"}},
		{"rating", Rating, 4, DisplayValue{Kind: DisplayText, Text: "4.0/5", Icon: "★"}},
		{"boolean yes", Boolean, "true", DisplayValue{Kind: DisplayText, Text: "Yes"}},
		{"boolean no", Boolean, false, DisplayValue{Kind: DisplayText, Text: "No"}},
		{"username", Username, "ada", DisplayValue{Kind: DisplayText, Text: "@ada"}},
		{"username keeps single at", Username, "@ada", DisplayValue{Kind: DisplayText, Text: "@ada"}},
		{"color", Color, "ff0000", DisplayValue{Kind: DisplaySwatch, Text: "#ff0000", Color: "#ff0000"}},
		{"email", Email, "a@x.com", DisplayValue{Kind: DisplayLink, Text: "a@x.com", Href: "mailto:a@x.com"}},
		{"phone", Phone, "555 123 4567", DisplayValue{Kind: DisplayLink, Text: "555 123 4567", Href: "tel:5551234567"}},
		{"sentiment positive", Sentiment, 0.9, DisplayValue{Kind: DisplayBadge, Text: "Positive", Color: "green", Icon: "😊"}},
		{"sentiment neutral", Sentiment, 0.5, DisplayValue{Kind: DisplayBadge, Text: "Neutral", Color: "gray", Icon: "😐"}},
		{"sentiment negative", Sentiment, 0.1, DisplayValue{Kind: DisplayBadge, Text: "Negative", Color: "red", Icon: "😞"}},
		{"avatar", Avatar, "https://x/a.png", DisplayValue{Kind: DisplayImage, Src: "https://x/a.png", Text: DefaultAvatarName}},
		{"badge", Badge, "New", DisplayValue{Kind: DisplayBadge, Text: "New", Color: DefaultBadgeColor}},
		{"flag", Flag, "us", DisplayValue{Kind: DisplayText, Text: "US", Icon: "🇺🇸"}},
		{"custom object renders json", Custom, map[string]any{"a": 1.0}, DisplayValue{Kind: DisplayText, Text: `{"a":1}`}},
		{"custom number", Custom, 42, DisplayValue{Kind: DisplayText, Text: "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Display(tt.variant, tt.value, DisplayOptions{}))
		})
	}
}

func TestDisplayDate(t *testing.T) {
	got := Display(Date, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), DisplayOptions{})
	assert.Equal(t, "Mar 5, 2024", got.Text)

	got = Display(Date, "not a date", DisplayOptions{})
	assert.Equal(t, "not a date", got.Text)
}

func TestDisplayStatus(t *testing.T) {
	got := Display(Status, "pending", DisplayOptions{})
	assert.Equal(t, DisplayValue{Kind: DisplayBadge, Text: "pending", Icon: "⏳", Color: "orange"}, got)

	custom := StatusMap{"shipped": {Icon: "🚚", Color: "teal"}}
	got = Display(Status, "shipped", DisplayOptions{StatusMap: custom})
	assert.Equal(t, "teal", got.Color)

	got = Display(Status, "unknown", DisplayOptions{StatusMap: custom})
	assert.Equal(t, "gray", got.Color)
	assert.Equal(t, "unknown", got.Text)
}

func TestDisplayEmailListTruncates(t *testing.T) {
	emails := []any{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com", "f@x.com", "g@x.com"}
	got := Display(EmailList, emails, DisplayOptions{})
	assert.Equal(t, DisplayList, got.Kind)
	assert.Len(t, got.Items, MaxListItems)
	assert.Equal(t, 2, got.More)
}

func TestDisplayUnknownVariantFallsBack(t *testing.T) {
	v, _ := ParseVariant("not-yet-defined")
	assert.NotPanics(t, func() {
		got := Display(v, []any{"x", 1.0}, DisplayOptions{})
		assert.Equal(t, `["x",1]`, got.Text)
	})
	assert.NotPanics(t, func() {
		Display(Variant(-3), "x", DisplayOptions{})
	})
}

func TestRichTextExcerpt(t *testing.T) {
	got := RichTextExcerpt("<p>Hello <strong>world</strong></p>", 120)
	assert.Equal(t, "Hello **world**", got)

	long := strings.Repeat("word ", 40)
	got = RichTextExcerpt(long, 20)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), 21)
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCurrency(0))
	assert.Equal(t, "$1,000,000.00", FormatCurrency(1e6))
	assert.Equal(t, "-$3.50", FormatCurrency(-3.5))
}

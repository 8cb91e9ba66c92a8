package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariant(t *testing.T) {
	for _, v := range AllVariants() {
		got, ok := ParseVariant(v.String())
		assert.True(t, ok, v.String())
		assert.Equal(t, v, got)
	}

	v, ok := ParseVariant("Rich-Editor")
	assert.True(t, ok)
	assert.Equal(t, RichText, v)

	v, ok = ParseVariant("hologram")
	assert.False(t, ok)
	assert.Equal(t, Custom, v)
}

func TestVariantText(t *testing.T) {
	var v Variant
	require.NoError(t, v.UnmarshalText([]byte("email-list")))
	assert.Equal(t, EmailList, v)

	require.NoError(t, v.UnmarshalText([]byte("not-a-variant")))
	assert.Equal(t, Custom, v)

	b, err := Currency.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "currency", string(b))

	assert.Equal(t, "custom", Variant(999).String())
}

func TestVariantMapOf(t *testing.T) {
	m := ParseVariantMap(map[string]string{"email": "email", "score": "sparkle"})
	assert.Equal(t, Email, m.Of("email"))
	assert.Equal(t, Custom, m.Of("score"))
	assert.Equal(t, Custom, m.Of("missing"))
}

func TestNormalizeNumeric(t *testing.T) {
	assert.Equal(t, 12.5, Normalize(Currency, "12.5"))
	assert.Nil(t, Normalize(Currency, "abc"))
	assert.Equal(t, 1234.5, Normalize(Currency, "$1,234.50"))
	assert.Equal(t, -20.0, Normalize(Currency, "(20)"))
	assert.Equal(t, 45.0, Normalize(Percentage, "45%"))
	assert.Equal(t, 3.0, Normalize(Rating, 3))
	assert.Equal(t, 1.0, Normalize(Progress, true))
	assert.Nil(t, Normalize(Progress, nil))
}

func TestNormalizeBoolean(t *testing.T) {
	assert.Equal(t, true, Normalize(Boolean, "TRUE"))
	assert.Equal(t, false, Normalize(Boolean, "false"))
	assert.Equal(t, true, Normalize(Verified, true))
	assert.Equal(t, true, Normalize(Boolean, 1))
	assert.Nil(t, Normalize(Boolean, "maybe"))
}

func TestNormalizeMedia(t *testing.T) {
	assert.Equal(t, Media{Src: "https://x/a.png", Name: DefaultAvatarName}, Normalize(Avatar, "https://x/a.png"))
	assert.Equal(t, Media{Src: "https://x/a.png", Name: "Ada"}, Normalize(Avatar, map[string]any{"src": "https://x/a.png", "name": "Ada"}))
	assert.Equal(t, Media{Src: "https://x/b.png"}, Normalize(Image, "https://x/b.png"))
	assert.Nil(t, Normalize(Image, ""))
	assert.Nil(t, Normalize(Avatar, 42))
}

func TestNormalizeBadge(t *testing.T) {
	assert.Equal(t, BadgeValue{Label: "New", Color: DefaultBadgeColor}, Normalize(Badge, "New"))
	assert.Equal(t, BadgeValue{Label: "Yes", Color: "green"}, Normalize(Badge, true))
	assert.Equal(t, BadgeValue{Label: "Verified", Color: "green"}, Normalize(Badge, map[string]any{"true": "Verified"}))
	assert.Equal(t, BadgeValue{Label: "Hot", Color: "red"}, Normalize(Badge, map[string]any{"label": "Hot", "color": "red"}))
}

func TestNormalizeDateAndLists(t *testing.T) {
	d, ok := Normalize(Date, "2024-03-15").(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, "someday", Normalize(Date, "someday"))

	assert.Equal(t, []string{"a@x.com", "b@x.com"}, Normalize(EmailList, "a@x.com, b@x.com"))
	assert.Equal(t, []string{"a@x.com"}, Normalize(EmailList, []any{"a@x.com", ""}))
	assert.Equal(t, []string{"go", "sql"}, Normalize(Tag, []any{"go", "sql"}))
}

func TestStorageValue(t *testing.T) {
	tests := []struct {
		name    string
		variant Variant
		in      any
		want    any
	}{
		{"email list text", EmailList, "a@x.com, b@x.com", []string{"a@x.com", "b@x.com"}},
		{"blank email list", EmailList, "", []string{}},
		{"nil email list", EmailList, nil, []string{}},
		{"blank date", Date, "", nil},
		{"date text", Date, "2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"unparsed date kept", Date, "someday", "someday"},
		{"blank currency", Currency, " ", nil},
		{"currency text", Currency, "$1,200", 1200.0},
		{"bool text", Boolean, "yes", true},
		{"blank bool", Verified, "", false},
		{"text untouched", Custom, " x ", " x "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StorageValue(tt.variant, tt.in))
		})
	}
}

func TestNormalizeCustomIsIdentity(t *testing.T) {
	nested := map[string]any{"a": 1.0}
	assert.Equal(t, nested, Normalize(Custom, nested))
	assert.Equal(t, "  spaced  ", Normalize(Custom, "  spaced  "))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []any{
		nil, "", "12.5", "abc", "$1,000", "true", "no", 7, 3.25, true,
		"https://x/a.png", "2024-01-02", "someday", "a@x.com, b@x.com",
		map[string]any{"src": "https://x/a.png"},
		map[string]any{"label": "Hot"},
		[]any{"x", "y"},
	}
	for _, v := range AllVariants() {
		for _, in := range inputs {
			once := Normalize(v, in)
			twice := Normalize(v, once)
			assert.Equal(t, once, twice, "variant %s input %#v", v, in)
		}
	}
}

func TestInputKindFor(t *testing.T) {
	assert.Equal(t, InputNumber, InputKindFor(Custom, 42))
	assert.Equal(t, InputNumber, InputKindFor(Custom, 4.2))
	assert.Equal(t, InputCheckbox, InputKindFor(Custom, false))
	assert.Equal(t, InputText, InputKindFor(Custom, "x"))
	assert.Equal(t, InputSelect, InputKindFor(Status, "pending"))
	assert.Equal(t, InputRichText, InputKindFor(RichText, "<p>x</p>"))
	assert.Equal(t, InputEmailList, InputKindFor(EmailList, nil))
	// The sample type wins over the declared variant.
	assert.Equal(t, InputCheckbox, InputKindFor(Email, true))
}

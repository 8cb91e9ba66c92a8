package core

import (
	"encoding/json"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ParseNumber Tests
// ----------------------------------------------------------------------------

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		want      float64
	}{
		// Valid: Basic integers
		{name: "positive integer", input: "123", wantValid: true, want: 123},
		{name: "zero", input: "0", wantValid: true, want: 0},
		{name: "negative integer", input: "-456", wantValid: true, want: -456},

		// Valid: Decimals
		{name: "decimal number", input: "123.45", wantValid: true, want: 123.45},
		{name: "leading decimal point", input: ".99", wantValid: true, want: 0.99},
		{name: "trailing decimal point", input: "99.", wantValid: true, want: 99},

		// Valid: Currency symbols
		{name: "dollar sign", input: "$1,234.56", wantValid: true, want: 1234.56},
		{name: "euro sign", input: "€1234.56", wantValid: true, want: 1234.56},
		{name: "pound sign", input: "£1234.56", wantValid: true, want: 1234.56},

		// Valid: Separators, percent and accounting negatives
		{name: "thousands separators", input: "1,234,567.89", wantValid: true, want: 1234567.89},
		{name: "percent suffix", input: "42%", wantValid: true, want: 42},
		{name: "accounting negative", input: "(123.45)", wantValid: true, want: -123.45},
		{name: "accounting negative with currency", input: "($1,000)", wantValid: true, want: -1000},
		{name: "scientific notation", input: "1.5e3", wantValid: true, want: 1500},
		{name: "surrounding whitespace", input: "  999.99  ", wantValid: true, want: 999.99},
		{name: "excel formula", input: `="42"`, wantValid: true, want: 42},

		// Invalid
		{name: "empty string", input: "", wantValid: false},
		{name: "whitespace only", input: "   ", wantValid: false},
		{name: "letters", input: "abc", wantValid: false},
		{name: "mixed letters and digits", input: "12abc", wantValid: false},
		{name: "two decimal points", input: "1.2.3", wantValid: false},
		{name: "bare sign", input: "-", wantValid: false},
		{name: "overflow", input: "1e400", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			if ok != tt.wantValid {
				t.Fatalf("ParseNumber(%q) ok = %v, want %v", tt.input, ok, tt.wantValid)
			}
			if ok && got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseDate Tests
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantYear  int
		wantMonth time.Month
		wantDay   int
	}{
		// ISO formats
		{name: "ISO date", input: "2024-01-15", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},
		{name: "RFC3339", input: "2024-03-10T10:30:00Z", wantValid: true, wantYear: 2024, wantMonth: time.March, wantDay: 10},
		{name: "datetime with space", input: "2024-03-10 10:30:00", wantValid: true, wantYear: 2024, wantMonth: time.March, wantDay: 10},
		{name: "slashed ISO", input: "2024/06/30", wantValid: true, wantYear: 2024, wantMonth: time.June, wantDay: 30},
		{name: "compact", input: "20240102", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 2},

		// US formats
		{name: "US with leading zeros", input: "01/15/2024", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 15},
		{name: "US without leading zeros", input: "1/5/2024", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 5},
		{name: "US dashed", input: "12-25-2023", wantValid: true, wantYear: 2023, wantMonth: time.December, wantDay: 25},

		// Written formats
		{name: "month name", input: "Jan 2, 2024", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 2},
		{name: "day month year", input: "2 Jan 2024", wantValid: true, wantYear: 2024, wantMonth: time.January, wantDay: 2},

		// Invalid
		{name: "empty", input: "", wantValid: false},
		{name: "garbage", input: "not a date", wantValid: false},
		{name: "invalid month", input: "2024-13-01", wantValid: false},
		{name: "invalid day", input: "2024-02-30", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantValid {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantValid)
			}
			if !ok {
				return
			}
			if got.Year() != tt.wantYear || got.Month() != tt.wantMonth || got.Day() != tt.wantDay {
				t.Errorf("ParseDate(%q) = %s, want %d-%02d-%02d",
					tt.input, got.Format("2006-01-02"), tt.wantYear, tt.wantMonth, tt.wantDay)
			}
		})
	}
}

func TestParseDate_TwoDigitYear(t *testing.T) {
	pivot := time.Now().Year() + TwoDigitYearPivot

	got, ok := ParseDate("1/5/24")
	if !ok {
		t.Fatal("ParseDate(1/5/24) failed")
	}
	if got.Year() != 2024 {
		t.Errorf("1/5/24 year = %d, want 2024", got.Year())
	}

	got, ok = ParseDate("06/15/99")
	if !ok {
		t.Fatal("ParseDate(06/15/99) failed")
	}
	if got.Year() > pivot {
		t.Errorf("06/15/99 year = %d, beyond pivot %d", got.Year(), pivot)
	}
	if got.Year() != 1999 {
		t.Errorf("06/15/99 year = %d, want 1999", got.Year())
	}
}

// ----------------------------------------------------------------------------
// ParseBool Tests
// ----------------------------------------------------------------------------

func TestParseBool(t *testing.T) {
	tests := []struct {
		input     string
		want      bool
		wantValid bool
	}{
		{"true", true, true},
		{"TRUE", true, true},
		{"t", true, true},
		{"yes", true, true},
		{"Y", true, true},
		{"1", true, true},
		{"on", true, true},
		{" true ", true, true},
		{"false", false, true},
		{"F", false, true},
		{"no", false, true},
		{"n", false, true},
		{"0", false, true},
		{"off", false, true},
		{"", false, false},
		{"maybe", false, false},
		{"2", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseBool(tt.input)
			if ok != tt.wantValid {
				t.Fatalf("ParseBool(%q) ok = %v, want %v", tt.input, ok, tt.wantValid)
			}
			if got != tt.want {
				t.Errorf("ParseBool(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ToFloat / ToText Tests
// ----------------------------------------------------------------------------

func TestToFloat(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		want      float64
		wantValid bool
	}{
		{"float64", 1.5, 1.5, true},
		{"float32", float32(2), 2, true},
		{"int", 3, 3, true},
		{"int32", int32(-4), -4, true},
		{"int64", int64(5), 5, true},
		{"uint8", uint8(6), 6, true},
		{"json number", json.Number("7.25"), 7.25, true},
		{"numeric string", "$8.50", 8.5, true},
		{"text string", "abc", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToFloat(tt.input)
			if ok != tt.wantValid || got != tt.want {
				t.Errorf("ToFloat(%#v) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantValid)
			}
		})
	}
}

func TestIsNumber(t *testing.T) {
	if !IsNumber(42) || !IsNumber(1.5) || !IsNumber(json.Number("1")) {
		t.Error("native numbers should be numbers")
	}
	if IsNumber("42") || IsNumber(nil) || IsNumber(true) {
		t.Error("strings, nil and bools are not numbers")
	}
}

func TestToText(t *testing.T) {
	date := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"trimmed string", "  hello  ", "hello"},
		{"float", 12.5, "12.5"},
		{"whole float", 3.0, "3"},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"time", date, "2024-01-15T10:30:00Z"},
		{"slice", []string{"a", "b"}, `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToText(tt.input); got != tt.want {
				t.Errorf("ToText(%#v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Basic cleaning
		{name: "simple string unchanged", input: "hello", want: "hello"},
		{name: "empty string", input: "", want: ""},

		// Whitespace trimming
		{name: "leading whitespace", input: "  hello", want: "hello"},
		{name: "trailing whitespace", input: "hello  ", want: "hello"},
		{name: "surrounded by whitespace", input: "  hello  ", want: "hello"},

		// Excel formula prefix handling
		{name: "Excel formula with quotes", input: `="hello"`, want: "hello"},
		{name: "Excel formula number as text", input: `="12345"`, want: "12345"},
		{name: "bare equals sign", input: "=SUM(A1)", want: "SUM(A1)"},
		{name: "lone equals kept", input: "=", want: "="},

		// Quote handling
		{name: "double quotes removed", input: `"hello"`, want: "hello"},
		{name: "single quotes removed", input: "'hello'", want: "hello"},
		{name: "mixed quotes removed outer only", input: `"hello'`, want: "hello"},
		{name: "leading single quote (Excel text prefix)", input: "'12345", want: "12345"},

		// Combined cleaning
		{name: "whitespace and quotes", input: `  "hello"  `, want: "hello"},
		{name: "excel formula with whitespace", input: `  ="test"  `, want: "test"},

		// Edge cases
		{name: "only quotes", input: `""`, want: ""},
		{name: "only single quotes", input: "''", want: ""},
		{name: "equals with quoted number", input: `="0"`, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanCell(tt.input)
			if got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

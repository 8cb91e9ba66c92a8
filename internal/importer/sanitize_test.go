package importer

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestSanitize(t *testing.T) {
	bom := []byte{0xEF, 0xBB, 0xBF}
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append(bom, []byte("name,email")...),
			expected: "name,email",
		},
		{
			name:     "file without BOM",
			input:    []byte("name,email"),
			expected: "name,email",
		},
		{
			name:     "only BOM",
			input:    bom,
			expected: "",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "multibyte kept",
			input:    []byte("Zoë,Søren"),
			expected: "Zoë,Søren",
		},
		{
			name:     "invalid byte replaced",
			input:    []byte{'h', 'e', 0x80, 'l', 'o'},
			expected: "he\uFFFDlo",
		},
		{
			name:     "BOM and invalid byte",
			input:    append(append([]byte{}, bom...), 'a', 0xFF, 'b'),
			expected: "a\uFFFDb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(Sanitize(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestSanitizeSplitRunes(t *testing.T) {
	// One byte per read splits every multibyte rune across reads.
	input := "\ufeffcafé,naïve"
	result, err := io.ReadAll(Sanitize(iotest.OneByteReader(strings.NewReader(input))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != "café,naïve" {
		t.Errorf("got %q", string(result))
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCountingReader(strings.NewReader(input), int64(len(input)))

	buf := make([]byte, 100)
	totalRead := 0
	for {
		n, err := reader.Read(buf)
		totalRead += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if totalRead != len(input) {
		t.Errorf("total read = %d, want %d", totalRead, len(input))
	}
	if reader.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead(), len(input))
	}
	if reader.Progress() != 100 {
		t.Errorf("Progress = %d, want 100", reader.Progress())
	}

	unknown := NewCountingReader(strings.NewReader("abc"), 0)
	_, _ = io.ReadAll(unknown)
	if unknown.Progress() != 0 {
		t.Errorf("Progress with unknown total = %d, want 0", unknown.Progress())
	}
}

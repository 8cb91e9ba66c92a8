package backend

import (
	"math/big"
	"net/netip"
	"testing"
	"time"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestJSONValue(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"uuid bytes", [16]byte(id), id.String()},
		{"pg uuid", pgtype.UUID{Bytes: id, Valid: true}, id.String()},
		{"null uuid", pgtype.UUID{}, nil},
		{"numeric", pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}, 123.45},
		{"null numeric", pgtype.Numeric{}, nil},
		{"time", now, now},
		{"addr", netip.MustParseAddr("10.0.0.1"), "10.0.0.1"},
		{"bytes", []byte("hi"), "hi"},
		{"array", []any{[16]byte(id), "x"}, []any{id.String(), "x"}},
		{"passthrough", int32(7), int32(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jsonValue(tt.in))
		})
	}
}

func TestDBValue(t *testing.T) {
	assert.Equal(t, "https://x/a.png", dbValue(core.Media{Src: "https://x/a.png"}))
	assert.Equal(t, "New", dbValue(core.BadgeValue{Label: "New", Color: "blue"}))
	assert.Equal(t, 3, dbValue(3))
}

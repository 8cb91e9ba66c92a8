package backend

import (
	"net/netip"
	"time"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// jsonValue converts a scanned database value into a plain Go value that
// renders and serializes predictably: uuids and addresses become strings,
// numerics become float64.
func jsonValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.UUID:
		if !x.Valid {
			return nil
		}
		return uuid.UUID(x.Bytes).String()
	case pgtype.Numeric:
		if !x.Valid || x.NaN {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Date:
		if !x.Valid {
			return nil
		}
		return x.Time
	case pgtype.Timestamptz:
		if !x.Valid {
			return nil
		}
		return x.Time
	case time.Time:
		return x
	case netip.Addr:
		return x.String()
	case netip.Prefix:
		return x.Addr().String()
	case []byte:
		return string(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = jsonValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = jsonValue(e)
		}
		return out
	default:
		return v
	}
}

// dbValue converts a record value into a query argument. Shaped variant
// values are stored by their primary component.
func dbValue(v any) any {
	switch x := v.(type) {
	case core.Media:
		return x.Src
	case core.BadgeValue:
		return x.Label
	case core.Record:
		return x.Map()
	default:
		return v
	}
}

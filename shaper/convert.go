package shaper

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bawdo/relq/types"
)

// Convert coerces a value read from the store to t. Null becomes the zero
// value of a non-nullable t; numeric values widen or narrow between the
// numeric kinds as long as no information is lost.
func Convert(v any, t types.Type) (any, error) {
	if v == nil {
		return t.Zero(), nil
	}
	kind := t.Kind()
	if kind == types.KindEnum {
		kind = t.Underlying()
	}
	switch kind {
	case types.KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		if n, ok := asInt64(v); ok {
			return n != 0, nil
		}
	case types.KindInt32:
		if n, ok := asInt64(v); ok {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, errors.Newf("value %d overflows %s", n, t)
			}
			return int32(n), nil
		}
		if f, ok := asFloat64(v); ok && f == math.Trunc(f) {
			return Convert(int64(f), t)
		}
	case types.KindInt64:
		if n, ok := asInt64(v); ok {
			return n, nil
		}
		if f, ok := asFloat64(v); ok && f == math.Trunc(f) {
			return int64(f), nil
		}
	case types.KindFloat32:
		if f, ok := asFloat64(v); ok {
			return float32(f), nil
		}
	case types.KindFloat64:
		if f, ok := asFloat64(v); ok {
			return f, nil
		}
	case types.KindDecimal:
		switch v := v.(type) {
		case decimal.Decimal:
			return v, nil
		case string:
			d, err := decimal.NewFromString(v)
			return d, errors.Wrapf(err, "converting %q to %s", v, t)
		case []byte:
			d, err := decimal.NewFromString(string(v))
			return d, errors.Wrapf(err, "converting %q to %s", v, t)
		}
		if n, ok := asInt64(v); ok {
			return decimal.NewFromInt(n), nil
		}
		if f, ok := asFloat64(v); ok {
			return decimal.NewFromFloat(f), nil
		}
	case types.KindString:
		switch v := v.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case types.KindTime:
		if tm, ok := v.(time.Time); ok {
			return tm, nil
		}
	case types.KindUUID:
		switch v := v.(type) {
		case uuid.UUID:
			return v, nil
		case [16]byte:
			return uuid.UUID(v), nil
		case string:
			id, err := uuid.Parse(v)
			return id, errors.Wrapf(err, "converting %q to %s", v, t)
		case []byte:
			if len(v) == 16 {
				return uuid.FromBytes(v)
			}
			id, err := uuid.ParseBytes(v)
			return id, errors.Wrapf(err, "converting %q to %s", v, t)
		}
	case types.KindBytes:
		switch v := v.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
	case types.KindEntity, types.KindInterface, types.KindObject:
		return v, nil
	}
	return nil, errors.Newf("cannot convert %T to %s", v, t)
}

func asInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch v := v.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case decimal.Decimal:
		f, _ := v.Float64()
		return f, true
	}
	if n, ok := asInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}

// isDefault reports whether v is null or the zero value of t.
func isDefault(v any, t types.Type) bool {
	if v == nil {
		return true
	}
	switch z := t.Unwrap().Zero().(type) {
	case nil:
		return false
	case decimal.Decimal:
		d, ok := v.(decimal.Decimal)
		return ok && d.Equal(z)
	case time.Time:
		tm, ok := v.(time.Time)
		return ok && tm.IsZero()
	default:
		return v == z
	}
}

package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// toInt follows integer-literal semantics: strings must hold a base 10
// integer (surrounding whitespace allowed), numbers truncate toward zero.
// Numbers outside the int64 range are rejected.
func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t >= math.MaxInt64 || t < math.MinInt64 {
			return 0, false
		}
		return int64(t), true
	case float32:
		return toInt(float64(t))
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case uint:
		return toInt(uint64(t))
	default:
		n, err := cast.ToInt64E(v)
		return n, err == nil
	}
}

// toFloat rejects non-finite results, they have no state representation.
func toFloat(v any) (float64, bool) {
	var f float64
	var err error
	switch t := v.(type) {
	case nil:
		return 0, false
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		f, err = cast.ToFloat64E(v)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toText passes strings through and renders other scalars.
func toText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		s, err := cast.ToStringE(v)
		return s, err == nil
	}
}

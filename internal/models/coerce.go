package models

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// CoerceNumber converts form input to a float. Anything that is not a
// finite number becomes 0; NaN is never stored.
func CoerceNumber(value any) float64 {
	switch v := value.(type) {
	case nil, bool:
		return 0
	case string:
		value = strings.TrimSpace(v)
	}

	f, err := cast.ToFloat64E(value)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// CoerceText converts form input to the string stored in a text field
func CoerceText(value any) string {
	if value == nil {
		return ""
	}
	return cast.ToString(value)
}

package costing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToNumber coerces untrusted input into a finite float64. Missing, empty or
// non-finite values collapse to 0 so downstream arithmetic never sees NaN or
// Inf. The sign of a finite value is preserved; clamping is the caller's call.
func ToNumber(raw any) float64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint:
		return float64(v)
	case uint32:
		return float64(v)
	case uint64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return finite(f)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0
		}
		return finite(f)
	case bool:
		if v {
			return 1
		}
		return 0
	}
	return 0
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return math.Round(v*100) / 100
}

// DeriveInvoiceValue computes a product line invoice value from its weight and
// rate per kilogram. Negative inputs are clamped to zero so the derived value
// is never negative.
func DeriveInvoiceValue(weightKg, ratePerKg float64) float64 {
	w := finite(weightKg)
	r := finite(ratePerKg)
	if w < 0 {
		w = 0
	}
	if r < 0 {
		r = 0
	}
	return Round2(w * r)
}

func finite(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

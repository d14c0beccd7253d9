package evaluator

import (
	"encoding/json"
	"math"
)

// NumberToJSON marshals an evaluation result to JSON bytes.
// Integers are written without a decimal point. JSON has no NaN or
// infinities, so those are written as the strings "NaN", "Infinity" and
// "-Infinity".
func NumberToJSON(v float64) ([]byte, error) {
	return json.Marshal(jsonSafe(v))
}

func jsonSafe(v float64) any {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	// Output integers without decimal point, as long as they are exact
	if v == math.Trunc(v) && math.Abs(v) <= 1<<53 && !(v == 0 && math.Signbit(v)) {
		return int64(v)
	}
	return v
}

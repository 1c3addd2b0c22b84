package core

import (
	"encoding/json"
	"math"
)

// JSONFloat is a float64 that survives JSON encoding when the value is NaN
// or infinite: non-finite values encode as null, and null decodes as NaN.
// Statistical payloads use it for quantities that are undefined on empty or
// degenerate inputs, such as an odds ratio with an empty cell.
type JSONFloat float64

// MarshalJSON encodes non-finite values as null
func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON decodes null back to NaN
func (f *JSONFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = JSONFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = JSONFloat(v)
	return nil
}

// Finite reports whether the value is a real number
func (f JSONFloat) Finite() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

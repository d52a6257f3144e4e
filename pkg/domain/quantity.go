package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Quantity is an optional floating-point measurement. The zero value is
// missing. Missing and zero are distinct states throughout the pipeline: a
// plot with no qualifying stems has density zero, a plot whose stems all lack
// estimates has density missing.
type Quantity struct {
	Value float64
	Valid bool
}

// Missing is the absent quantity.
var Missing = Quantity{}

// Q wraps a known value.
func Q(v float64) Quantity {
	return Quantity{Value: v, Valid: true}
}

// OrZero returns the value, or 0 when missing.
func (q Quantity) OrZero() float64 {
	if !q.Valid {
		return 0
	}
	return q.Value
}

// Equal reports whether two quantities are the same state and value.
func (q Quantity) Equal(other Quantity) bool {
	if q.Valid != other.Valid {
		return false
	}
	return !q.Valid || q.Value == other.Value
}

// String renders the value, or "NA" when missing.
func (q Quantity) String() string {
	if !q.Valid {
		return "NA"
	}
	return strconv.FormatFloat(q.Value, 'g', -1, 64)
}

// MarshalJSON encodes a missing quantity as null.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(q.Value)
}

// UnmarshalJSON decodes null as missing.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*q = Missing
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*q = Q(v)
	return nil
}

// ParseQuantity reads a numeric field from a text table. Empty strings and
// the usual not-available markers parse as missing, as does NaN.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "NA", "N/A", "NaN", "nan", "null":
		return Missing, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Missing, err
	}
	if math.IsNaN(v) {
		return Missing, nil
	}
	return Q(v), nil
}

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in rubles. The remote sends prices as plain JSON
// numbers, sometimes fractional and sometimes quoted; all of those decode.
type Money float64

// Mul returns the amount for qty units.
func (m Money) Mul(qty int64) Money { return m * Money(qty) }

// Whole reports whether m has no fractional part.
func (m Money) Whole() bool { return m == Money(math.Trunc(float64(m))) }

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*m = 0
			return nil
		}
		b = []byte(s)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", b, err)
	}
	*m = Money(v)
	return nil
}

package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money is a fixed-point amount in minor units (cents). All settlement
// arithmetic happens in integer cents so that shares always sum exactly.
type Money struct {
	Cents int64
}

var ErrInvalidAmount = errors.New("invalid amount")

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// String formats the amount as a decimal with two fraction digits, e.g. "12.50".
func (m Money) String() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// MarshalJSON emits the amount as an exact decimal number literal so repeated
// summaries are byte-identical and no precision is lost in transit.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a number literal or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return ErrInvalidAmount
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMoney converts a decimal string like "10", "10.5" or "10.50" to cents.
// More than two fraction digits is an error, not a rounding.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return Money{}, ErrInvalidAmount
	}
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	var cents int64
	switch len(frac) {
	case 0:
	case 1:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		cents = d * 10
	case 2:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		cents = d
	default:
		return Money{}, fmt.Errorf("%w: more than two decimal places in %q", ErrInvalidAmount, s)
	}
	total := units*100 + cents
	if neg {
		total = -total
	}
	return Money{Cents: total}, nil
}

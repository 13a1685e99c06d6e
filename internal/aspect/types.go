package aspect

import (
	"math"
	"strconv"
	"strings"

	"github.com/sosodev/duration"
)

// Type is a sealed interface over the aspect value types.
// Only Ordered, Numeric, Boolean, Text, and Duration implement it.
// The marker method keeps type switches in this package exhaustive.
type Type interface {
	aspectType()
}

// Ordered admits only values from an explicit ordered list. Comparison order
// is list position.
type Ordered struct {
	Values []Value
}

func (Ordered) aspectType() {}

// Numeric admits finite decimal values, compared numerically.
type Numeric struct{}

func (Numeric) aspectType() {}

// Boolean admits true/false/yes/no/1/0, case-insensitive.
type Boolean struct{}

func (Boolean) aspectType() {}

// Text admits any value. No ordering.
type Text struct{}

func (Text) aspectType() {}

// Duration admits ISO-8601 duration strings (PnYnMnDTnHnMnS, PnW).
type Duration struct{}

func (Duration) aspectType() {}

// booleanLiterals maps accepted boolean spellings to their canonical value.
var booleanLiterals = map[string]bool{
	"true": true, "yes": true, "1": true,
	"false": false, "no": false, "0": false,
}

// ParseBoolean canonicalizes a boolean aspect value.
func ParseBoolean(v Value) (bool, bool) {
	b, ok := booleanLiterals[strings.ToLower(v.String())]
	return b, ok
}

// parseNumeric parses a finite decimal. Inf and NaN are rejected.
func parseNumeric(v Value) (float64, bool) {
	f, err := strconv.ParseFloat(v.String(), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// typeCheck dispatches value validation by aspect type. Returns nil on
// success, otherwise a ValidationError naming the failing code.
func typeCheck(t Type, key Key, v Value) error {
	switch typ := t.(type) {
	case Ordered:
		for _, allowed := range typ.Values {
			if allowed == v {
				return nil
			}
		}
		return &ValidationError{
			Code:    ErrCodeValueNotAllowed,
			Message: "value is not in the allowed list",
			Key:     key.String(),
			Value:   v.String(),
		}
	case Numeric:
		if _, ok := parseNumeric(v); !ok {
			return &ValidationError{
				Code:    ErrCodeInvalidNumeric,
				Message: "value is not a finite decimal",
				Key:     key.String(),
				Value:   v.String(),
			}
		}
		return nil
	case Boolean:
		if _, ok := ParseBoolean(v); !ok {
			return &ValidationError{
				Code:    ErrCodeInvalidBoolean,
				Message: "value is not a boolean literal (true/false/yes/no/1/0)",
				Key:     key.String(),
				Value:   v.String(),
			}
		}
		return nil
	case Text:
		return nil
	case Duration:
		if _, err := duration.Parse(v.String()); err != nil {
			return &ValidationError{
				Code:    ErrCodeInvalidDuration,
				Message: "value is not an ISO-8601 duration",
				Key:     key.String(),
				Value:   v.String(),
			}
		}
		return nil
	default:
		return &ValidationError{Code: ErrCodeUnknownKey, Message: "unknown aspect type", Key: key.String()}
	}
}

// compare orders a against b under the aspect type. The bool result is false
// for types with no defined order (Boolean, Text, Duration) and for values
// outside the type's domain.
func compare(t Type, a, b Value) (int, bool) {
	switch typ := t.(type) {
	case Ordered:
		ai, bi := -1, -1
		for i, v := range typ.Values {
			if v == a {
				ai = i
			}
			if v == b {
				bi = i
			}
		}
		if ai < 0 || bi < 0 {
			return 0, false
		}
		switch {
		case ai < bi:
			return -1, true
		case ai > bi:
			return 1, true
		default:
			return 0, true
		}
	case Numeric:
		af, aok := parseNumeric(a)
		bf, bok := parseNumeric(b)
		if !aok || !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

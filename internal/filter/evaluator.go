package filter

import (
	"fmt"

	"github.com/kamiazya/scopes/internal/aspect"
)

// Evaluate decides whether a scope's aspects satisfy the expression.
//
// A comparison is true iff at least one actual value under the key compares
// true against the literal. Equality compares raw value text; ordering
// operators consult the aspect's definition for an order (Ordered or
// Numeric) and evaluate to false when none exists or the key is undefined.
func Evaluate(e Expr, aspects map[aspect.Key][]aspect.Value, reg *aspect.Registry) (bool, error) {
	switch n := e.(type) {
	case *Or:
		left, err := Evaluate(n.Left, aspects, reg)
		if err != nil {
			return false, err
		}
		if left {
			return true, nil
		}
		return Evaluate(n.Right, aspects, reg)

	case *And:
		left, err := Evaluate(n.Left, aspects, reg)
		if err != nil {
			return false, err
		}
		if !left {
			return false, nil
		}
		return Evaluate(n.Right, aspects, reg)

	case *Not:
		inner, err := Evaluate(n.Expr, aspects, reg)
		if err != nil {
			return false, err
		}
		return !inner, nil

	case *Compare:
		return evaluateCompare(n, aspects, reg), nil

	default:
		return false, fmt.Errorf("unknown expression type %T", e)
	}
}

func evaluateCompare(c *Compare, aspects map[aspect.Key][]aspect.Value, reg *aspect.Registry) bool {
	values := aspects[aspect.Key(c.Key)]

	switch c.Op {
	case OpEq:
		for _, v := range values {
			if v.String() == c.Value {
				return true
			}
		}
		return false

	case OpNe:
		for _, v := range values {
			if v.String() != c.Value {
				return true
			}
		}
		return false

	case OpGt, OpLt, OpGe, OpLe:
		def, ok := reg.Lookup(aspect.Key(c.Key))
		if !ok {
			return false
		}
		lit, err := aspect.NewValue(c.Value)
		if err != nil {
			return false
		}
		for _, v := range values {
			cmp, ordered := def.CompareValues(v, lit)
			if !ordered {
				continue
			}
			switch c.Op {
			case OpGt:
				if cmp > 0 {
					return true
				}
			case OpLt:
				if cmp < 0 {
					return true
				}
			case OpGe:
				if cmp >= 0 {
					return true
				}
			case OpLe:
				if cmp <= 0 {
					return true
				}
			}
		}
		return false

	default:
		return false
	}
}

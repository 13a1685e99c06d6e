package filter

import "strings"

// Print renders an AST back to expression source. Parse(Print(e)) yields an
// AST equal to e: parentheses are emitted exactly where the structure would
// otherwise re-associate.
func Print(e Expr) string {
	var b strings.Builder
	printExpr(&b, e, 0, false)
	return b.String()
}

// Operator precedence levels, lowest first.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
)

func precedence(e Expr) int {
	switch e.(type) {
	case *Or:
		return precOr
	case *And:
		return precAnd
	case *Not:
		return precNot
	default:
		return precCompare
	}
}

// printExpr writes e. parent is the enclosing precedence; rightOperand marks
// the right side of a binary operator, where equal precedence still needs
// parentheses to preserve association.
func printExpr(b *strings.Builder, e Expr, parent int, rightOperand bool) {
	prec := precedence(e)
	needParens := prec < parent || (rightOperand && prec == parent)
	if needParens {
		b.WriteByte('(')
	}

	switch n := e.(type) {
	case *Or:
		printExpr(b, n.Left, precOr, false)
		b.WriteString(" OR ")
		printExpr(b, n.Right, precOr, true)
	case *And:
		printExpr(b, n.Left, precAnd, false)
		b.WriteString(" AND ")
		printExpr(b, n.Right, precAnd, true)
	case *Not:
		b.WriteString("NOT ")
		printExpr(b, n.Expr, precNot, false)
	case *Compare:
		b.WriteString(n.Key)
		b.WriteByte(' ')
		b.WriteString(string(n.Op))
		b.WriteByte(' ')
		b.WriteString(quote(n.Value))
	}

	if needParens {
		b.WriteByte(')')
	}
}

// quote renders a string literal. Literals carry no escapes, so the quote
// character is chosen to avoid the value's own quotes.
func quote(s string) string {
	if strings.Contains(s, `"`) {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}

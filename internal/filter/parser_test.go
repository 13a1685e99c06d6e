package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleComparison(t *testing.T) {
	expr, err := Parse(`priority == "high"`)
	require.NoError(t, err)

	cmp, ok := expr.(*Compare)
	require.True(t, ok)
	assert.Equal(t, "priority", cmp.Key)
	assert.Equal(t, OpEq, cmp.Op)
	assert.Equal(t, "high", cmp.Value)
}

func TestParse_Operators(t *testing.T) {
	for _, op := range []Op{OpEq, OpNe, OpGt, OpLt, OpGe, OpLe} {
		expr, err := Parse(`estimate ` + string(op) + ` "5"`)
		require.NoError(t, err, "operator %s", op)
		cmp := expr.(*Compare)
		assert.Equal(t, op, cmp.Op)
	}
}

func TestParse_SingleQuotedLiteral(t *testing.T) {
	expr, err := Parse(`status == 'in progress'`)
	require.NoError(t, err)
	assert.Equal(t, "in progress", expr.(*Compare).Value)
}

func TestParse_Precedence(t *testing.T) {
	// OR binds loosest: a AND b OR c parses as (a AND b) OR c.
	expr, err := Parse(`a == "1" AND b == "2" OR c == "3"`)
	require.NoError(t, err)

	or, ok := expr.(*Or)
	require.True(t, ok, "top node should be OR")
	_, ok = or.Left.(*And)
	assert.True(t, ok, "left of OR should be AND")
	_, ok = or.Right.(*Compare)
	assert.True(t, ok)
}

func TestParse_NotBindsTighterThanAnd(t *testing.T) {
	expr, err := Parse(`NOT a == "1" AND b == "2"`)
	require.NoError(t, err)

	and, ok := expr.(*And)
	require.True(t, ok, "top node should be AND")
	_, ok = and.Left.(*Not)
	assert.True(t, ok, "left of AND should be NOT")
}

func TestParse_Parentheses(t *testing.T) {
	expr, err := Parse(`a == "1" AND (b == "2" OR c == "3")`)
	require.NoError(t, err)

	and, ok := expr.(*And)
	require.True(t, ok)
	_, ok = and.Right.(*Or)
	assert.True(t, ok, "parenthesized OR stays under AND")
}

func TestParse_KeywordsCaseInsensitive(t *testing.T) {
	for _, src := range []string{
		`a == "1" and b == "2"`,
		`a == "1" And b == "2"`,
		`a == "1" AND b == "2"`,
	} {
		expr, err := Parse(src)
		require.NoError(t, err, src)
		_, ok := expr.(*And)
		assert.True(t, ok, src)
	}
}

func TestParse_KeywordAdjoiningIdentIsIdent(t *testing.T) {
	// "android" starts with "and" but lexes as one identifier.
	expr, err := Parse(`android == "phone"`)
	require.NoError(t, err)
	assert.Equal(t, "android", expr.(*Compare).Key)
}

func TestParse_DoubleNegation(t *testing.T) {
	expr, err := Parse(`NOT NOT a == "1"`)
	require.NoError(t, err)

	outer, ok := expr.(*Not)
	require.True(t, ok)
	_, ok = outer.Expr.(*Not)
	assert.True(t, ok)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code ErrorCode
	}{
		{"empty", "", ErrCodeEmptyExpression},
		{"blank", "   ", ErrCodeEmptyExpression},
		{"unterminated double quote", `a == "high`, ErrCodeUnterminatedString},
		{"unterminated single quote", `a == 'high`, ErrCodeUnterminatedString},
		{"unexpected character", `a == "1" # b`, ErrCodeUnexpectedCharacter},
		{"lone equals", `a = "1"`, ErrCodeUnexpectedCharacter},
		{"lone bang", `a ! "1"`, ErrCodeUnexpectedCharacter},
		{"missing operator", `a "1"`, ErrCodeUnexpectedToken},
		{"missing literal", `a ==`, ErrCodeInvalidSyntax},
		{"bare literal operand", `a == b`, ErrCodeUnexpectedToken},
		{"dangling and", `a == "1" AND`, ErrCodeInvalidSyntax},
		{"unbalanced paren", `(a == "1"`, ErrCodeInvalidSyntax},
		{"trailing tokens", `a == "1" b`, ErrCodeUnexpectedToken},
		{"operator first", `== "1"`, ErrCodeUnexpectedToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestParse_ErrorPositions(t *testing.T) {
	_, err := Parse(`ok == "1" @`)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 10, pe.Pos)
}

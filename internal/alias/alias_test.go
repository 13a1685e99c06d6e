package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamiazya/scopes/internal/ids"
)

func TestNewName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		code ErrorCode
	}{
		{"simple", "quick-fox", "quick-fox", ""},
		{"uppercase normalized", "Quick-Fox", "quick-fox", ""},
		{"trimmed", "  brave-otter  ", "brave-otter", ""},
		{"underscores and digits", "a1_b2", "a1_b2", ""},
		{"minimum length", "ab", "ab", ""},
		{"too short", "a", "", ErrCodeInvalidName},
		{"starts with digit", "1abc", "", ErrCodeInvalidName},
		{"illegal characters", "has space", "", ErrCodeInvalidName},
		{"empty", "", "", ErrCodeInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewName(tt.in)
			if tt.code != "" {
				assert.Equal(t, tt.code, CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNewName_MaxLength(t *testing.T) {
	long := "a"
	for len(long) < 64 {
		long += "b"
	}
	_, err := NewName(long)
	assert.NoError(t, err, "64 characters is the limit")

	_, err = NewName(long + "c")
	assert.Equal(t, ErrCodeInvalidName, CodeOf(err))
}

func TestValidTransition(t *testing.T) {
	canonical := TypeCanonical
	custom := TypeCustom

	assert.True(t, ValidTransition(nil, TypeCanonical), "new records may take any type")
	assert.True(t, ValidTransition(nil, TypeCustom))
	assert.True(t, ValidTransition(&canonical, TypeCanonical), "same to same")
	assert.True(t, ValidTransition(&custom, TypeCustom))
	assert.True(t, ValidTransition(&custom, TypeCanonical), "promotion is allowed")
	assert.False(t, ValidTransition(&canonical, TypeCustom), "direct demotion is forbidden")
}

func TestGenerateName_Deterministic(t *testing.T) {
	id := ids.NewAliasID()

	first := GenerateName(id)
	second := GenerateName(id)
	assert.Equal(t, first, second, "same id yields same name")

	// Generated names always satisfy the alias pattern.
	_, err := NewName(first.String())
	assert.NoError(t, err, "generated name %q must be valid", first)
}

func TestGenerateName_Shape(t *testing.T) {
	for i := 0; i < 50; i++ {
		name := GenerateName(ids.NewAliasID()).String()
		assert.Regexp(t, `^[a-z]+-[a-z]+-[0-9a-f]{6}$`, name)
	}
}

func TestGenerateName_SpreadsAcrossIDs(t *testing.T) {
	seen := make(map[Name]bool)
	for i := 0; i < 200; i++ {
		seen[GenerateName(ids.NewAliasID())] = true
	}
	// 6 hex chars of entropy make collisions across 200 draws negligible.
	assert.Greater(t, len(seen), 195)
}

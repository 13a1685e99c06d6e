package scope

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle produces the form under which sibling titles must be
// unique: NFC-normalized, trimmed, lowercased. Two titles that normalize
// equal are duplicates.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(title)))
}

package alias

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/kamiazya/scopes/internal/ids"
)

// The word lists are embedded so generated names are reproducible on every
// device running the same build.
//
//go:embed adjectives.txt
var adjectivesRaw string

//go:embed nouns.txt
var nounsRaw string

var (
	adjectives = splitWords(adjectivesRaw)
	nouns      = splitWords(nounsRaw)
)

func splitWords(raw string) []string {
	return strings.Fields(raw)
}

// GenerateName derives an alias name deterministically from the entropy bits
// of an AliasID: adjective-noun-6charhex. The same AliasID always yields the
// same name.
func GenerateName(id ids.AliasID) Name {
	e := id.Entropy()

	adjective := adjectives[binary.BigEndian.Uint16(e[0:2])%uint16(len(adjectives))]
	noun := nouns[binary.BigEndian.Uint16(e[2:4])%uint16(len(nouns))]
	suffix := fmt.Sprintf("%02x%02x%02x", e[4], e[5], e[6])

	return Name(adjective + "-" + noun + "-" + suffix)
}

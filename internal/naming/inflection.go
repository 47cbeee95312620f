package naming

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Pluralize converts a singular word to its plural form.
// Custom overrides win; otherwise the inflection library is used when enabled
// and a literal "s" is appended when it is not.
func (n *Namer) Pluralize(word string) string {
	if override, ok := n.config.PluralOverrides[strings.ToLower(word)]; ok {
		return override
	}
	if n.config.InflectPlurals {
		return inflection.Plural(word)
	}
	return word + "s"
}

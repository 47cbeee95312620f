// Package naming centralises how generated GraphQL names are derived from
// model names: listing fields, connection and edge types, mutation fields,
// relation id arguments, and reserved-name checks.
package naming

// Config holds naming customization options
type Config struct {
	// InflectPlurals pluralizes listing fields with English inflection rules
	// instead of appending a literal "s".
	// Example: false -> "allPersons", true -> "allPeople"
	InflectPlurals bool `mapstructure:"inflect_plurals"`

	// PluralOverrides maps singular -> custom plural, applied in both modes.
	// Example: {"Person": "People", "Status": "Statuses"}
	PluralOverrides map[string]string `mapstructure:"plural_overrides"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		PluralOverrides: make(map[string]string),
	}
}

package typegraph

import (
	"fmt"

	"github.com/graphql-go/graphql"
)

// wrapRequired wraps the type of every required field in NonNull. It must
// run after injectRelations: a relation has nothing to wrap until then.
func wrapRequired(entry *Entry) error {
	for _, d := range entry.fields {
		if !d.Type.IsResolved() {
			return fmt.Errorf("typegraph: field %s.%s still references %q after relation injection",
				entry.ModelName(), d.Name, d.Type.Target())
		}
		if d.Schema.IsRequired {
			d.Type = Resolved(graphql.NewNonNull(d.Type.Output()))
		}
	}
	return nil
}

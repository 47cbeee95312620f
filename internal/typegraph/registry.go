package typegraph

import (
	"maps"

	"github.com/graphql-go/graphql"

	"modelgql/internal/clientschema"
)

// FieldDescriptor is the mutable description of one output field while the
// graph is being built. The owning object's fields thunk turns descriptors
// into graphql fields when the schema is assembled.
type FieldDescriptor struct {
	Name        string
	Schema      clientschema.Field
	Type        FieldType
	Args        graphql.FieldConfigArgument
	Resolve     graphql.FieldResolveFn
	Description string
	// System marks descriptors added by the builder rather than declared.
	System bool
}

func (d *FieldDescriptor) graphqlField() *graphql.Field {
	return &graphql.Field{
		Name:        d.Name,
		Type:        d.Type.Output(),
		Args:        d.Args,
		Resolve:     d.Resolve,
		Description: d.Description,
	}
}

// Entry holds every type generated for one model.
type Entry struct {
	schema          clientschema.Schema
	objectType      *graphql.Object
	connectionType  *graphql.Object
	edgeType        *graphql.Object
	createArguments graphql.FieldConfigArgument
	updateArguments graphql.FieldConfigArgument
	fields          []*FieldDescriptor
}

// ModelName returns the model the entry was built from.
func (e *Entry) ModelName() string { return e.schema.ModelName }

// Schema returns the source schema.
func (e *Entry) Schema() clientschema.Schema { return e.schema }

// ObjectType returns the model's output type.
func (e *Entry) ObjectType() *graphql.Object { return e.objectType }

// ConnectionType returns the model's connection wrapper.
func (e *Entry) ConnectionType() *graphql.Object { return e.connectionType }

// EdgeType returns the model's edge type.
func (e *Entry) EdgeType() *graphql.Object { return e.edgeType }

// CreateArguments returns a copy of the create mutation arguments.
func (e *Entry) CreateArguments() graphql.FieldConfigArgument {
	return maps.Clone(e.createArguments)
}

// UpdateArguments returns a copy of the update mutation arguments.
func (e *Entry) UpdateArguments() graphql.FieldConfigArgument {
	return maps.Clone(e.updateArguments)
}

// Field returns a copy of the named descriptor.
func (e *Entry) Field(name string) (FieldDescriptor, bool) {
	for _, d := range e.fields {
		if d.Name == name {
			return *d, true
		}
	}
	return FieldDescriptor{}, false
}

// FieldNames returns descriptor names in declaration order.
func (e *Entry) FieldNames() []string {
	names := make([]string, 0, len(e.fields))
	for _, d := range e.fields {
		names = append(names, d.Name)
	}
	return names
}

// Registry maps model names to entries, preserving input order.
// It is only written while Build runs.
type Registry struct {
	order   []string
	entries map[string]*Entry
	frozen  bool
}

func newRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

func (r *Registry) add(entry *Entry) error {
	if r.frozen {
		return ErrRegistryFrozen
	}
	name := entry.ModelName()
	if _, exists := r.entries[name]; exists {
		return &DuplicateModelError{Model: name}
	}
	r.entries[name] = entry
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) freeze() {
	r.frozen = true
}

// Lookup returns the entry for a model.
func (r *Registry) Lookup(model string) (*Entry, bool) {
	entry, ok := r.entries[model]
	return entry, ok
}

// Entries returns all entries in input order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// Len returns the number of models.
func (r *Registry) Len() int {
	return len(r.order)
}

// Frozen reports whether the build has completed.
func (r *Registry) Frozen() bool {
	return r.frozen
}

package typegraph

import (
	"errors"
	"fmt"
)

// ErrNodeTypeUnresolved is returned wherever a Node would need to be mapped
// back to its concrete model. There is no discriminator to do that yet.
var ErrNodeTypeUnresolved = errors.New("typegraph: node type resolution is not implemented")

// ErrRegistryFrozen is returned when an entry is added after Build finished.
var ErrRegistryFrozen = errors.New("typegraph: registry is frozen")

// SchemaInconsistencyError reports a relation field naming a model that does not exist.
type SchemaInconsistencyError struct {
	Model  string
	Field  string
	Target string
}

func (e *SchemaInconsistencyError) Error() string {
	return fmt.Sprintf("typegraph: field %s.%s references unknown model %q", e.Model, e.Field, e.Target)
}

// ArgumentKeyCollisionError reports two fields deriving the same mutation argument.
type ArgumentKeyCollisionError struct {
	Model         string
	Mutation      string // create or update
	Key           string
	ScalarField   string
	RelationField string
}

func (e *ArgumentKeyCollisionError) Error() string {
	return fmt.Sprintf("typegraph: %s arguments for %s: key %q derived from both scalar field %q and relation field %q",
		e.Mutation, e.Model, e.Key, e.ScalarField, e.RelationField)
}

// DuplicateModelError reports two schemas with the same model name.
type DuplicateModelError struct {
	Model string
}

func (e *DuplicateModelError) Error() string {
	return fmt.Sprintf("typegraph: model %q is defined more than once", e.Model)
}

// ReservedModelNameError reports a model name that clashes with a built-in or
// generated type name.
type ReservedModelNameError struct {
	Model string
	Err   error
}

func (e *ReservedModelNameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("typegraph: model name %q is not available: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("typegraph: model name %q is reserved", e.Model)
}

func (e *ReservedModelNameError) Unwrap() error {
	return e.Err
}

// FetchError wraps a backend failure seen by one field resolver.
type FetchError struct {
	Model string
	Field string
	Op    string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("typegraph: %s for %s.%s failed: %v", e.Op, e.Model, e.Field, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

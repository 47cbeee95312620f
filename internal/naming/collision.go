package naming

import (
	"fmt"
	"log/slog"
)

// CollisionError reports a generated name claimed by two sources.
type CollisionError struct {
	Name           string
	ExistingSource string
	NewSource      string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("name %q generated by %s collides with %s", e.Name, e.NewSource, e.ExistingSource)
}

// CollisionTracker records generated names and rejects duplicates.
// A duplicate type name would make the schema unbuildable, so there is no
// suffixing fallback.
type CollisionTracker struct {
	seen   map[string]string // generated name → source
	logger *slog.Logger
}

// NewCollisionTracker creates an empty tracker.
func NewCollisionTracker(logger *slog.Logger) *CollisionTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollisionTracker{
		seen:   make(map[string]string),
		logger: logger,
	}
}

// Claim registers name for source. It returns a *CollisionError if the name
// was already claimed.
func (c *CollisionTracker) Claim(name, source string) error {
	if existing, exists := c.seen[name]; exists {
		c.logger.Warn("naming collision detected",
			slog.String("name", name),
			slog.String("existing_source", existing),
			slog.String("new_source", source),
		)
		return &CollisionError{Name: name, ExistingSource: existing, NewSource: source}
	}
	c.seen[name] = source
	return nil
}

// Claimed reports whether name has been registered.
func (c *CollisionTracker) Claimed(name string) bool {
	_, ok := c.seen[name]
	return ok
}

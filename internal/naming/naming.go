package naming

import (
	"log/slog"
	"strings"
)

// Namer provides all name transformation functions used when generating the
// type graph from model names.
type Namer struct {
	config Config
	logger *slog.Logger
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	// Config loaders may lowercase map keys, so overrides match case-insensitively.
	overrides := make(map[string]string, len(cfg.PluralOverrides))
	for singular, plural := range cfg.PluralOverrides {
		overrides[strings.ToLower(singular)] = plural
	}
	cfg.PluralOverrides = overrides
	return &Namer{
		config: cfg,
		logger: logger,
	}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// NewCollisionTracker returns a tracker sharing the namer's logger.
func (n *Namer) NewCollisionTracker() *CollisionTracker {
	return NewCollisionTracker(n.logger)
}

// ListFieldName is the root listing field for a model.
// Example: "User" -> "allUsers"
func (n *Namer) ListFieldName(modelName string) string {
	return "all" + n.Pluralize(modelName)
}

// ConnectionTypeName is the connection wrapper type for a model.
// Example: "User" -> "UserConnection"
func (n *Namer) ConnectionTypeName(modelName string) string {
	return modelName + "Connection"
}

// EdgeTypeName is the edge type for a model.
// Example: "User" -> "UserEdge"
func (n *Namer) EdgeTypeName(modelName string) string {
	return modelName + "Edge"
}

// RelationIDName is the key holding the target id of a singular relation,
// used both as a mutation argument and as the node key the resolver reads.
// Example: "manager" -> "managerId"
func (n *Namer) RelationIDName(fieldName string) string {
	return fieldName + "Id"
}

// CreateMutationName example: "User" -> "createUser"
func (n *Namer) CreateMutationName(modelName string) string {
	return "create" + modelName
}

// UpdateMutationName example: "User" -> "updateUser"
func (n *Namer) UpdateMutationName(modelName string) string {
	return "update" + modelName
}

// DeleteMutationName example: "User" -> "deleteUser"
func (n *Namer) DeleteMutationName(modelName string) string {
	return "delete" + modelName
}

// ToTableName converts a model name to a snake_case table name for SQL storage.
// Example: "OrderItem" -> "order_item"
func (n *Namer) ToTableName(modelName string) string {
	return toSnakeCase(modelName)
}

// ToColumnName converts a field name to a snake_case column name.
// Example: "managerId" -> "manager_id"
func (n *Namer) ToColumnName(fieldName string) string {
	return toSnakeCase(fieldName)
}

// CheckModelName logs and reports a model name that cannot be used.
func (n *Namer) CheckModelName(modelName string) bool {
	if IsReservedTypeName(modelName) {
		n.logger.Warn("model name conflicts with reserved GraphQL name",
			slog.String("model", modelName),
		)
		return false
	}
	return true
}

// toSnakeCase converts PascalCase or camelCase to snake_case.
func toSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		isUpper := r >= 'A' && r <= 'Z'
		if isUpper {
			prevLower := i > 0 && runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			prevUpper := i > 0 && runes[i-1] >= 'A' && runes[i-1] <= 'Z'
			if i > 0 && (prevLower || (prevUpper && nextLower)) {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

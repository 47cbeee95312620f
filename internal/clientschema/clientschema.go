// Package clientschema holds the model descriptions the type graph is built from,
// and loads them from YAML or JSON documents.
package clientschema

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Schema describes one model: its name and its ordered fields.
type Schema struct {
	ModelName string  `yaml:"modelName" json:"modelName"`
	Fields    []Field `yaml:"fields" json:"fields"`
}

// Field describes a single model field.
// TypeIdentifier is either a primitive tag or the name of another model.
type Field struct {
	FieldName        string       `yaml:"fieldName" json:"fieldName"`
	TypeIdentifier   string       `yaml:"typeIdentifier" json:"typeIdentifier"`
	BackRelationName string       `yaml:"backRelationName,omitempty" json:"backRelationName,omitempty"`
	EnumValues       []string     `yaml:"enumValues,omitempty" json:"enumValues,omitempty"`
	IsRequired       bool         `yaml:"isRequired" json:"isRequired"`
	IsList           bool         `yaml:"isList" json:"isList"`
	IsUnique         bool         `yaml:"isUnique" json:"isUnique"`
	IsSystem         bool         `yaml:"isSystem" json:"isSystem"`
	Permissions      []Permission `yaml:"permissions,omitempty" json:"permissions,omitempty"`
}

// Permission is carried through from the source document. It is not enforced.
type Permission struct {
	ID          string `yaml:"id" json:"id"`
	UserType    string `yaml:"userType" json:"userType"`
	AllowRead   bool   `yaml:"allowRead" json:"allowRead"`
	AllowCreate bool   `yaml:"allowCreate" json:"allowCreate"`
	AllowUpdate bool   `yaml:"allowUpdate" json:"allowUpdate"`
	AllowDelete bool   `yaml:"allowDelete" json:"allowDelete"`
}

// Document is the on-disk layout of a schema file.
type Document struct {
	Models []Schema `yaml:"models" json:"models"`
}

// Field returns the field with the given name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.FieldName == name {
			return f, true
		}
	}
	return Field{}, false
}

// Load reads a schema document from path. JSON documents are accepted
// since they are valid YAML.
func Load(path string) ([]Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a schema document.
func Parse(data []byte) ([]Schema, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema document: %w", err)
	}
	if err := Validate(doc.Models); err != nil {
		return nil, err
	}
	return doc.Models, nil
}

// ValidationError lists every problem found in a schema set.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid client schema: " + strings.Join(e.Problems, "; ")
}

// Validate checks what the type graph builder assumes: non-empty names and
// unique field names within each model. Cross-model references are checked
// when the graph is built.
func Validate(schemas []Schema) error {
	var problems []string
	for i, s := range schemas {
		model := s.ModelName
		if strings.TrimSpace(model) == "" {
			problems = append(problems, fmt.Sprintf("models[%d]: modelName is empty", i))
			model = fmt.Sprintf("models[%d]", i)
		}
		seen := make(map[string]bool, len(s.Fields))
		for j, f := range s.Fields {
			if strings.TrimSpace(f.FieldName) == "" {
				problems = append(problems, fmt.Sprintf("%s.fields[%d]: fieldName is empty", model, j))
				continue
			}
			if strings.TrimSpace(f.TypeIdentifier) == "" {
				problems = append(problems, fmt.Sprintf("%s.%s: typeIdentifier is empty", model, f.FieldName))
			}
			if seen[f.FieldName] {
				problems = append(problems, fmt.Sprintf("%s.%s: duplicate field name", model, f.FieldName))
			}
			seen[f.FieldName] = true
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

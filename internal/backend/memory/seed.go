package memory

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Seed is a fixture document:
//
//	records:
//	  User:
//	    - id: "1"
//	      name: Ada
type Seed struct {
	Records map[string][]map[string]any `yaml:"records" json:"records"`
}

// LoadSeed reads a YAML or JSON fixture document from path.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a fixture document. JSON is accepted since it is valid YAML.
func ParseSeed(data []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return seed, nil
}

// Without returns a copy of seed that leaves out models.
func (s Seed) Without(models []string) Seed {
	out := Seed{Records: make(map[string][]map[string]any, len(s.Records))}
	for model, rows := range s.Records {
		if !slices.Contains(models, model) {
			out.Records[model] = rows
		}
	}
	return out
}

// Load inserts every record of seed. Records keep their own ids; records
// without one get a generated id. Nothing is inserted if any model is unknown.
func (s *Store) Load(seed Seed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for model := range seed.Records {
		if !s.isModel(model) {
			return fmt.Errorf("%w: %s", ErrUnknownModel, model)
		}
	}
	for model, rows := range seed.Records {
		for _, row := range rows {
			record := s.normalize(model, row)
			if record.ID() == "" {
				record["id"] = newID()
			}
			s.records[model] = append(s.records[model], record)
		}
		s.logger.Info("seeded records", slog.String("model", model), slog.Int("count", len(rows)))
	}
	return nil
}

package mappings

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valuerec/valuerec-go/pkg/models"
)

// Service answers ontology term equivalence lookups from a static
// many-to-many table loaded once at startup and read-only thereafter.
type Service struct {
	equivalents map[string][]string // lower-cased URI -> equivalents in registration order
}

// NewService creates an empty mapping service. An empty service is valid
// and simply maps nothing.
func NewService() *Service {
	return &Service{equivalents: make(map[string][]string)}
}

// mappingFile is the on-disk YAML shape:
//
//	mappings:
//	  - uri: http://purl.obolibrary.org/obo/A
//	    equivalents:
//	      - http://purl.obolibrary.org/obo/B
type mappingFile struct {
	Mappings []struct {
		URI         string   `yaml:"uri"`
		Equivalents []string `yaml:"equivalents"`
	} `yaml:"mappings"`
}

// LoadFromFile reads the mapping table from a YAML file.
func LoadFromFile(path string) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading mappings file: %v", models.ErrProcessing, err)
	}
	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing mappings file %s: %v", models.ErrInvalidInput, path, err)
	}
	s := NewService()
	for _, entry := range file.Mappings {
		if entry.URI == "" {
			continue
		}
		s.Register(entry.URI, entry.Equivalents...)
	}
	return s, nil
}

// Register declares term equivalences. The relation is symmetric: each
// equivalent also maps back to the original URI.
func (s *Service) Register(uri string, equivalents ...string) {
	for _, eq := range equivalents {
		if eq == "" {
			continue
		}
		s.add(uri, eq)
		s.add(eq, uri)
	}
}

func (s *Service) add(from, to string) {
	key := strings.ToLower(from)
	for _, existing := range s.equivalents[key] {
		if strings.EqualFold(existing, to) {
			return
		}
	}
	s.equivalents[key] = append(s.equivalents[key], to)
}

// GetMappings returns the terms registered as equivalent to uri in
// registration order, optionally preceded by uri itself.
func (s *Service) GetMappings(uri string, includeSelf bool) []string {
	var out []string
	if includeSelf {
		out = append(out, uri)
	}
	for _, eq := range s.equivalents[strings.ToLower(uri)] {
		if includeSelf && strings.EqualFold(eq, uri) {
			continue
		}
		out = append(out, eq)
	}
	return out
}

// IsSameConcept reports case-insensitive identifier equality. It is
// intentionally a flat comparison, not a closure over the mapping table.
func (s *Service) IsSameConcept(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Size returns the number of distinct terms with at least one equivalence.
func (s *Service) Size() int {
	return len(s.equivalents)
}

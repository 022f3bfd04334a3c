package undercover

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed words.yaml
var defaultCatalogYAML []byte

// WordPair is one civilian word and its impostor counterpart.
type WordPair struct {
	Civilian string `yaml:"civilian"`
	Impostor string `yaml:"impostor"`
}

// Catalog is the list of word pairs a game draws from.
type Catalog []WordPair

// DefaultCatalog returns the built-in word pairs.
func DefaultCatalog() Catalog {
	catalog, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded word catalog is invalid: %v", err))
	}
	return catalog
}

// LoadCatalog reads a YAML catalog file (a list of civilian/impostor
// mappings).
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read word catalog: %w", err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("word catalog %s: %w", path, err)
	}
	return catalog, nil
}

// ParseCatalog decodes and validates a YAML catalog. Both words of a pair
// must be non-empty and different.
func ParseCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse word catalog: %w", err)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("word catalog is empty")
	}

	for i, pair := range catalog {
		pair.Civilian = strings.TrimSpace(pair.Civilian)
		pair.Impostor = strings.TrimSpace(pair.Impostor)
		switch {
		case pair.Civilian == "" || pair.Impostor == "":
			return nil, fmt.Errorf("pair %d has an empty word", i)
		case pair.Civilian == pair.Impostor:
			return nil, fmt.Errorf("pair %d uses %q for both sides", i, pair.Civilian)
		}
		catalog[i] = pair
	}
	return catalog, nil
}

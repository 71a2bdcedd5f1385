package ofx

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// GiverMap resolves OFX payee names to giver ids.
type GiverMap struct {
	Givers map[string][]string `yaml:"givers"`
	index  map[string]string
}

// LoadGiverMap reads and parses a giver map YAML file.
func LoadGiverMap(path string) (*GiverMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading giver map %s: %w", path, err)
	}
	return ParseGiverMap(data)
}

// ParseGiverMap parses a giver map document of the form
//
//	givers:
//	  G100: ["JOHN SMITH", "J SMITH"]
func ParseGiverMap(data []byte) (*GiverMap, error) {
	var m GiverMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing giver map: %w", err)
	}
	if len(m.Givers) == 0 {
		return nil, fmt.Errorf("giver map has no givers defined")
	}

	m.index = make(map[string]string)
	for _, giverID := range m.GiverIDs() {
		if strings.TrimSpace(giverID) == "" {
			return nil, fmt.Errorf("giver map contains an empty giver id")
		}
		for _, payee := range m.Givers[giverID] {
			key := normalizePayee(payee)
			if key == "" {
				continue
			}
			if existing, ok := m.index[key]; ok && existing != giverID {
				return nil, fmt.Errorf("payee %q is mapped to both %s and %s", payee, existing, giverID)
			}
			m.index[key] = giverID
		}
	}

	return &m, nil
}

// Resolve returns the giver id for a payee name.
func (m *GiverMap) Resolve(payee string) (string, bool) {
	if m == nil {
		return "", false
	}
	giverID, ok := m.index[normalizePayee(payee)]
	return giverID, ok
}

// GiverIDs returns all giver ids in sorted order.
func (m *GiverMap) GiverIDs() []string {
	ids := make([]string, 0, len(m.Givers))
	for id := range m.Givers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func normalizePayee(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), " ")
}

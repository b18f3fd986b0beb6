package footprint

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"ghg-footprint-backend/internal/domain"
	"ghg-footprint-backend/internal/pkg/units"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed activity_mapping.yaml
var defaultMappingYAML []byte

// ActivityMapping is the versioned table that maps indicator text to
// emission categories and names the legacy metric fields used as fallback.
type ActivityMapping struct {
	Version         int               `yaml:"version"`
	Categories      []CategoryMapping `yaml:"categories"`
	DirectEmissions map[string]string `yaml:"direct_emissions"`
}

// CategoryMapping defines one scope/category.
type CategoryMapping struct {
	Scope    string   `yaml:"scope"`
	Category string   `yaml:"category"`
	Unit     string   `yaml:"unit"`
	Priority int      `yaml:"priority,omitempty"`
	Keywords []string `yaml:"keywords"`
	Exclude  []string `yaml:"exclude,omitempty"`
	Legacy   *Legacy  `yaml:"legacy,omitempty"`

	keywords []string
	exclude  []string
}

// Legacy names a single-value metric field used when no ingestion item matches.
type Legacy struct {
	Field string `yaml:"field"`
	Unit  string `yaml:"unit"`
}

// DefaultMapping returns the embedded mapping table.
func DefaultMapping() *ActivityMapping {
	m, err := ParseMapping(defaultMappingYAML)
	if err != nil {
		panic("embedded activity mapping: " + err.Error())
	}
	return m
}

// LoadMapping reads a mapping file; an empty path yields the embedded table.
func LoadMapping(path string) (*ActivityMapping, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultMapping(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read activity mapping: %w", err)
	}
	return ParseMapping(b)
}

// ParseMapping decodes and validates a YAML mapping table.
func ParseMapping(b []byte) (*ActivityMapping, error) {
	var m ActivityMapping
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	if err := m.compile(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *ActivityMapping) compile() error {
	if m.Version <= 0 {
		return fmt.Errorf("%w: version must be positive", ErrInvalidMapping)
	}
	if len(m.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidMapping)
	}
	seen := map[string]bool{}
	for i := range m.Categories {
		c := &m.Categories[i]
		key := metadataKey(c.Scope, c.Category)
		switch {
		case !domain.IsValidScope(c.Scope):
			return fmt.Errorf("%w: category %q has unknown scope %q", ErrInvalidMapping, c.Category, c.Scope)
		case c.Category == "":
			return fmt.Errorf("%w: entry %d has no category", ErrInvalidMapping, i)
		case seen[key]:
			return fmt.Errorf("%w: duplicate category %s", ErrInvalidMapping, key)
		case !units.Known(c.Unit):
			return fmt.Errorf("%w: category %s has unknown unit %q", ErrInvalidMapping, key, c.Unit)
		case len(c.Keywords) == 0:
			return fmt.Errorf("%w: category %s has no keywords", ErrInvalidMapping, key)
		}
		seen[key] = true
		c.keywords = foldAll(c.Keywords)
		c.exclude = foldAll(c.Exclude)
	}
	for scope := range m.DirectEmissions {
		if !domain.IsValidScope(scope) {
			return fmt.Errorf("%w: direct emissions scope %q", ErrInvalidMapping, scope)
		}
	}
	return nil
}

// Match returns the index of the category an indicator belongs to, or -1.
// The longest matching keyword wins; ties go to the higher priority and then
// to the earlier entry.
func (m *ActivityMapping) Match(indicator string) int {
	text := fold(indicator)
	best, bestLen, bestPrio := -1, 0, 0
	for i := range m.Categories {
		c := &m.Categories[i]
		if containsAny(text, c.exclude) {
			continue
		}
		n := longestMatch(text, c.keywords)
		if n == 0 {
			continue
		}
		if best == -1 || n > bestLen || (n == bestLen && c.Priority > bestPrio) {
			best, bestLen, bestPrio = i, n, c.Priority
		}
	}
	return best
}

func longestMatch(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if len(k) > n && strings.Contains(text, k) {
			n = len(k)
		}
	}
	return n
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// fold lowercases and strips diacritics so "Energía Eléctrica" matches "energia electrica".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if f := fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}

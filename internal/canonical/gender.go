package canonical

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/loyd0/LoydFam-sub000/internal/models"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// GenderLookup infers gender from a first name.
type GenderLookup interface {
	LookupGender(firstName string) models.Gender
}

// Lexicon is a name-to-gender table. Names present in both lists are ambiguous.
type Lexicon struct {
	names map[string]models.Gender
}

type lexiconFile struct {
	Male   []string `yaml:"male"`
	Female []string `yaml:"female"`
}

// ParseLexicon decodes a YAML document with "male" and "female" name lists.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode gender lexicon: %w", err)
	}

	male := make(map[string]bool, len(f.Male))
	for _, n := range f.Male {
		male[normalizeName(n)] = true
	}

	l := &Lexicon{names: make(map[string]models.Gender, len(f.Male)+len(f.Female))}
	for k := range male {
		l.names[k] = models.GenderMale
	}
	// A name on both lists stays UNKNOWN however often it repeats.
	for _, n := range f.Female {
		k := normalizeName(n)
		if male[k] {
			l.names[k] = models.GenderUnknown
			continue
		}
		l.names[k] = models.GenderFemale
	}
	return l, nil
}

// LoadLexicon reads a lexicon file, or the embedded default when path is empty.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gender lexicon: %w", err)
	}
	return ParseLexicon(data)
}

// DefaultLexicon returns the embedded lexicon.
func DefaultLexicon() *Lexicon {
	l, err := ParseLexicon(defaultLexicon)
	if err != nil {
		panic(err)
	}
	return l
}

// LookupGender returns the gender associated with the first token of a name.
func (l *Lexicon) LookupGender(firstName string) models.Gender {
	if l == nil {
		return models.GenderUnknown
	}
	g, ok := l.names[normalizeName(firstName)]
	if !ok {
		return models.GenderUnknown
	}
	return g
}

// normalizeName keeps the leading run of letters of the first token, so
// "Mary-Ann" and "Mary," both look up "mary".
func normalizeName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	token := strings.TrimLeftFunc(fields[0], func(r rune) bool { return !unicode.IsLetter(r) })
	if i := strings.IndexFunc(token, func(r rune) bool { return !unicode.IsLetter(r) }); i >= 0 {
		token = token[:i]
	}
	return strings.ToLower(token)
}

var explicitGender = map[string]models.Gender{
	"m":        models.GenderMale,
	"male":     models.GenderMale,
	"man":      models.GenderMale,
	"boy":      models.GenderMale,
	"son":      models.GenderMale,
	"f":        models.GenderFemale,
	"female":   models.GenderFemale,
	"woman":    models.GenderFemale,
	"girl":     models.GenderFemale,
	"dau":      models.GenderFemale,
	"daughter": models.GenderFemale,
}

// ParseGender recognizes an explicit gender column value.
func ParseGender(v string) (models.Gender, bool) {
	k := strings.ToLower(strings.Trim(strings.TrimSpace(v), "."))
	g, ok := explicitGender[k]
	return g, ok
}

// ResolveGender prefers a recognized explicit value and falls back to the
// first-name lookup. Anything else resolves to UNKNOWN.
func ResolveGender(explicit, firstName string, lookup GenderLookup) models.Gender {
	if g, ok := ParseGender(explicit); ok {
		return g
	}
	if lookup == nil || firstName == "" {
		return models.GenderUnknown
	}
	return lookup.LookupGender(firstName)
}

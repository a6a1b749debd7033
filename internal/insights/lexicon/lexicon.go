// Package lexicon holds the keyword categories used by goal detection, contradiction
// detection and burnout scoring. The default set is embedded; HEARTH_LEXICON_YAML overrides it.
package lexicon

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

const lexiconEnv = "HEARTH_LEXICON_YAML"

//go:embed lexicon.yaml
var lexiconFS embed.FS

type Category string

const (
	GoalDeclaration   Category = "goal_declaration"
	Termination       Category = "termination"
	Achievement       Category = "achievement"
	Progress          Category = "progress"
	Fatigue           Category = "fatigue"
	Overwork          Category = "overwork"
	Physical          Category = "physical"
	Recovery          Category = "recovery"
	NegativeSentiment Category = "negative_sentiment"
	Avoidance         Category = "avoidance"
)

var requiredCategories = []Category{
	GoalDeclaration,
	Termination,
	Achievement,
	Progress,
	Fatigue,
	Overwork,
	Physical,
	Recovery,
	NegativeSentiment,
	Avoidance,
}

type yamlLexicon struct {
	Lexicon    string              `yaml:"lexicon"`
	Version    int                 `yaml:"version"`
	Categories map[string][]string `yaml:"categories"`
	Namespaces struct {
		Control   []string `yaml:"control"`
		Work      []string `yaml:"work"`
		Avoidable []string `yaml:"avoidable"`
	} `yaml:"namespaces"`
}

// Lexicon is immutable after Parse and safe for concurrent use.
type Lexicon struct {
	Version int

	terms     map[Category][]string
	control   map[string]struct{}
	work      map[string]struct{}
	avoidable map[string]struct{}
}

// Match is one term occurrence in lowercased text.
type Match struct {
	Term  string
	Start int
	End   int
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the embedded lexicon.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		data, err := lexiconFS.ReadFile("lexicon.yaml")
		if err != nil {
			panic(fmt.Sprintf("lexicon: embedded file: %v", err))
		}
		defaultLex, err = Parse(data)
		if err != nil {
			panic(fmt.Sprintf("lexicon: embedded file invalid: %v", err))
		}
	})
	return defaultLex
}

// Load reads the override file when HEARTH_LEXICON_YAML is set and falls back to the
// embedded lexicon when it is missing or invalid.
func Load(log *logger.Logger) *Lexicon {
	return LoadFile(log, os.Getenv(lexiconEnv))
}

// LoadFile is Load with an explicit override path. An empty path selects the embedded lexicon.
func LoadFile(log *logger.Logger, path string) *Lexicon {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err == nil {
		var lex *Lexicon
		lex, err = Parse(data)
		if err == nil {
			if log != nil {
				log.Info("lexicon override loaded", "path", path, "version", lex.Version)
			}
			return lex
		}
	}
	if log != nil {
		log.Warn("lexicon override load failed; using embedded lexicon", "path", path, "error", err)
	}
	return Default()
}

func Parse(data []byte) (*Lexicon, error) {
	var raw yamlLexicon
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.Categories) == 0 {
		return nil, errors.New("no categories defined")
	}
	lex := &Lexicon{
		Version:   raw.Version,
		terms:     make(map[Category][]string, len(raw.Categories)),
		control:   toSet(raw.Namespaces.Control),
		work:      toSet(raw.Namespaces.Work),
		avoidable: toSet(raw.Namespaces.Avoidable),
	}
	for name, terms := range raw.Categories {
		lex.terms[Category(strings.TrimSpace(name))] = normalizeTerms(terms)
	}
	for _, c := range requiredCategories {
		if len(lex.terms[c]) == 0 {
			return nil, fmt.Errorf("category %q has no terms", c)
		}
	}
	if len(lex.control) == 0 {
		return nil, errors.New("namespaces.control is empty")
	}
	return lex, nil
}

func (l *Lexicon) Terms(c Category) []string {
	return append([]string(nil), l.terms[c]...)
}

// Matches reports whether text contains any term of c.
func (l *Lexicon) Matches(c Category, text string) bool {
	_, ok := l.Find(c, text)
	return ok
}

// Find returns the earliest occurrence of any term of c; on equal starts the longest term wins.
func (l *Lexicon) Find(c Category, text string) (Match, bool) {
	lower := Normalize(text)
	best := Match{Start: -1}
	for _, term := range l.terms[c] {
		start := indexWord(lower, term)
		if start < 0 {
			continue
		}
		end := start + len(term)
		if best.Start < 0 || start < best.Start || (start == best.Start && end > best.End) {
			best = Match{Term: term, Start: start, End: end}
		}
	}
	return best, best.Start >= 0
}

// Count returns how many distinct terms of c occur in text.
func (l *Lexicon) Count(c Category, text string) int {
	lower := Normalize(text)
	n := 0
	for _, term := range l.terms[c] {
		if indexWord(lower, term) >= 0 {
			n++
		}
	}
	return n
}

func (l *Lexicon) IsControlNamespace(ns string) bool   { return has(l.control, ns) }
func (l *Lexicon) IsWorkNamespace(ns string) bool      { return has(l.work, ns) }
func (l *Lexicon) IsAvoidableNamespace(ns string) bool { return has(l.avoidable, ns) }

// Normalize lowercases text and folds typographic apostrophes.
func Normalize(text string) string {
	text = strings.ToLower(text)
	return strings.NewReplacer("’", "'", "‘", "'").Replace(text)
}

// ContainsWord reports whether phrase occurs in already-normalized text on word boundaries.
func ContainsWord(lower, phrase string) bool {
	return indexWord(lower, phrase) >= 0
}

func indexWord(lower, term string) int {
	if term == "" {
		return -1
	}
	from := 0
	for from <= len(lower)-len(term) {
		i := strings.Index(lower[from:], term)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(term)
		if (i == 0 || !isWordByte(lower[i-1])) && (end == len(lower) || !isWordByte(lower[end])) {
			return i
		}
		from = i + 1
	}
	return -1
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b >= 0x80
}

func normalizeTerms(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = Normalize(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

func has(set map[string]struct{}, key string) bool {
	_, ok := set[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// Package classifier maps window metadata to user defined categories
// using an ordered list of rules where the first match wins.
package classifier

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/actionsum/focusstat/pkg/window"
)

// Uncategorized is the fallback category when no rule matches
const Uncategorized = "uncategorized"

// Matcher holds the rule list. It is not modified after construction.
type Matcher struct {
	rules      []Rule
	categories []string
}

// New builds a matcher from rules in evaluation order.
// extra declares categories that no rule produces yet.
func New(rules []Rule, extra ...string) (*Matcher, error) {
	m := &Matcher{rules: make([]Rule, 0, len(rules))}
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			m.categories = append(m.categories, name)
		}
	}

	for i, r := range rules {
		if r.Category == "" {
			return nil, fmt.Errorf("rule %d: category is required", i+1)
		}
		if r.Title == nil && r.Class == nil && r.Process == nil {
			return nil, fmt.Errorf("rule %d (%s): at least one of title, class or process is required", i+1, r.Category)
		}
		switch r.Mode {
		case "":
			r.Mode = MatchAll
		case MatchAll, MatchAny:
		default:
			return nil, fmt.Errorf("rule %d (%s): invalid match mode %q (valid: all, any)", i+1, r.Category, r.Mode)
		}
		m.rules = append(m.rules, r)
		add(r.Category)
	}
	for _, name := range extra {
		if name != "" {
			add(name)
		}
	}
	add(Uncategorized)

	return m, nil
}

// Classify returns the category of the first matching rule,
// or Uncategorized when none matches.
func (m *Matcher) Classify(info window.WindowInfo) string {
	for _, r := range m.rules {
		if r.Matches(info) {
			return r.Category
		}
	}
	return Uncategorized
}

// Categories returns every category the matcher can produce,
// Uncategorized last.
func (m *Matcher) Categories() []string {
	out := make([]string, len(m.categories))
	copy(out, m.categories)
	return out
}

// Known reports whether category can be produced by this matcher
func (m *Matcher) Known(category string) bool {
	for _, c := range m.categories {
		if c == category {
			return true
		}
	}
	return false
}

// Rules returns the number of configured rules
func (m *Matcher) Rules() int {
	return len(m.rules)
}

type fileRule struct {
	Category string `yaml:"category"`
	Title    string `yaml:"title"`
	Class    string `yaml:"class"`
	Process  string `yaml:"process"`
	Match    string `yaml:"match"`
}

type rulesFile struct {
	Categories []string   `yaml:"categories"`
	Rules      []fileRule `yaml:"rules"`
}

// Parse reads a YAML rule set
func Parse(data []byte) (*Matcher, error) {
	var file rulesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty document is an empty rule set
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to parse rules")
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, fr := range file.Rules {
		r := Rule{Category: fr.Category, Mode: MatchMode(fr.Match)}
		var err error
		if r.Title, err = ParsePattern(fr.Title); err != nil {
			return nil, errors.Wrapf(err, "rule %d title", i+1)
		}
		if r.Class, err = ParsePattern(fr.Class); err != nil {
			return nil, errors.Wrapf(err, "rule %d class", i+1)
		}
		if r.Process, err = ParsePattern(fr.Process); err != nil {
			return nil, errors.Wrapf(err, "rule %d process", i+1)
		}
		rules = append(rules, r)
	}

	return New(rules, file.Categories...)
}

// LoadFile reads the rule set at path. A missing file yields an empty
// matcher so that everything is tracked as uncategorized.
func LoadFile(path string) (*Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Rules file %s not found, all windows will be %s", path, Uncategorized)
			return New(nil)
		}
		return nil, errors.Wrap(err, "failed to read rules file")
	}

	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid rules file %s", path)
	}
	return m, nil
}

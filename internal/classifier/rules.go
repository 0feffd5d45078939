package classifier

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/actionsum/focusstat/pkg/window"
)

// MatchMode decides how the patterns of one rule combine
type MatchMode string

const (
	MatchAll MatchMode = "all"
	MatchAny MatchMode = "any"
)

// Pattern matches one window field. Plain text is a case-insensitive
// substring match, text wrapped in slashes is a regular expression.
type Pattern struct {
	raw    string
	substr string
	re     *regexp.Regexp
}

// ParsePattern compiles a pattern. "/firefox|chromium/" is a regex,
// anything else is a substring.
func ParsePattern(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, nil
	}

	p := &Pattern{raw: raw}
	if len(raw) >= 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") {
		re, err := regexp.Compile(raw[1 : len(raw)-1])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid regular expression %q", raw)
		}
		p.re = re
		return p, nil
	}

	p.substr = strings.ToLower(raw)
	return p, nil
}

// Match reports whether value matches the pattern
func (p *Pattern) Match(value string) bool {
	if p.re != nil {
		return p.re.MatchString(value)
	}
	return strings.Contains(strings.ToLower(value), p.substr)
}

func (p *Pattern) String() string {
	return p.raw
}

// Rule maps windows matching its patterns to a category.
// Nil patterns are not checked.
type Rule struct {
	Category string
	Title    *Pattern
	Class    *Pattern
	Process  *Pattern
	Mode     MatchMode
}

// Matches evaluates the rule against a window snapshot.
// The class pattern is tried against both the class and instance parts.
func (r Rule) Matches(info window.WindowInfo) bool {
	var checks []bool
	if r.Title != nil {
		checks = append(checks, r.Title.Match(info.Name))
	}
	if r.Class != nil {
		checks = append(checks, r.Class.Match(info.Class) || (info.Instance != "" && r.Class.Match(info.Instance)))
	}
	if r.Process != nil {
		checks = append(checks, r.Process.Match(info.ProcessName))
	}
	if len(checks) == 0 {
		return false
	}

	if r.Mode == MatchAny {
		for _, ok := range checks {
			if ok {
				return true
			}
		}
		return false
	}

	for _, ok := range checks {
		if !ok {
			return false
		}
	}
	return true
}

// Package filter reduces a canonical stream set by owner-scoped rules.
package filter

import (
	"regexp"
	"strings"

	"github.com/kevp/kptv-sync/internal/models"
)

// Filter applies rules to streams and returns the surviving set.
// An include match always keeps a stream, even when an exclude rule would
// also match; exclude rules run in stored order and the first match wins.
// Inactive rules never match. With no rules the input is returned unchanged.
func Filter(streams map[string]models.CanonicalStream, rules []models.FilterRule) map[string]models.CanonicalStream {
	if len(rules) == 0 {
		return streams
	}
	patterns := newPatternCache()
	kept := make(map[string]models.CanonicalStream, len(streams))
	for id, s := range streams {
		if keep(s, rules, patterns) {
			kept[id] = s
		}
	}
	return kept
}

func keep(s models.CanonicalStream, rules []models.FilterRule, patterns *patternCache) bool {
	// Includes first: an include match is unconditional.
	for _, r := range rules {
		if r.Active && r.Kind == models.IncludeNameRegex && patterns.match(r.Pattern, s.Name) {
			return true
		}
	}
	for _, r := range rules {
		if !r.Active {
			continue
		}
		switch r.Kind {
		case models.ExcludeNameContains:
			if strings.Contains(strings.ToLower(s.Name), strings.ToLower(r.Pattern)) {
				return false
			}
		case models.ExcludeNameRegex:
			if patterns.match(r.Pattern, s.Name) {
				return false
			}
		case models.ExcludeURLRegex:
			if patterns.match(r.Pattern, s.URL) {
				return false
			}
		}
	}
	return true
}

// patternCache compiles each rule pattern once per Filter call. A pattern
// that fails to compile behaves as if the rule were absent (fail open).
type patternCache struct {
	compiled map[string]*regexp.Regexp
}

func newPatternCache() *patternCache {
	return &patternCache{compiled: make(map[string]*regexp.Regexp)}
}

func (c *patternCache) match(pattern, text string) bool {
	re, ok := c.compiled[pattern]
	if !ok {
		re, _ = regexp.Compile("(?i)" + pattern)
		c.compiled[pattern] = re
	}
	if re == nil {
		return false
	}
	return re.MatchString(text)
}

// Package exclusion removes patterns the user has dismissed.
package exclusion

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/yungbote/hearth-backend/internal/domain/journal"
)

// messagePrefixLen bounds how much of a message field an exclusion compares.
const messagePrefixLen = 100

// Pattern is anything that can be matched against an exclusion. Its JSON fields are the
// values exclusion contexts compare against.
type Pattern interface {
	PatternType() string
}

// Filter returns the patterns no active exclusion suppresses, preserving order.
func Filter[T Pattern](patterns []T, exclusions []*journal.Exclusion, now time.Time) []T {
	active := make([]*journal.Exclusion, 0, len(exclusions))
	for _, x := range exclusions {
		if x.ActiveAt(now) {
			active = append(active, x)
		}
	}
	out := make([]T, 0, len(patterns))
	for _, p := range patterns {
		if !Excluded(p, active, now) {
			out = append(out, p)
		}
	}
	return out
}

// Excluded reports whether any active exclusion matches p.
func Excluded(p Pattern, exclusions []*journal.Exclusion, now time.Time) bool {
	var fields map[string]any
	for _, x := range exclusions {
		if !x.ActiveAt(now) || x.PatternType != p.PatternType() {
			continue
		}
		ctx, err := x.ContextMap()
		if err != nil {
			// A context that cannot be read narrows to nothing.
			continue
		}
		if len(ctx) == 0 {
			return true
		}
		if fields == nil {
			fields = patternFields(p)
		}
		if contextMatches(ctx, fields) {
			return true
		}
	}
	return false
}

func ActivityPatterns(in []journal.ActivityPattern, exclusions []*journal.Exclusion, now time.Time) []journal.ActivityPattern {
	return Filter(in, exclusions, now)
}

func Contradictions(in []journal.Contradiction, exclusions []*journal.Exclusion, now time.Time) []journal.Contradiction {
	return Filter(in, exclusions, now)
}

// contextMatches requires every context key to equal the pattern's field.
func contextMatches(ctx, fields map[string]any) bool {
	for k, want := range ctx {
		got, ok := fields[k]
		if !ok {
			return false
		}
		if k == "message" {
			if prefix(fmt.Sprint(want)) != prefix(fmt.Sprint(got)) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(want, got) {
			return false
		}
	}
	return true
}

// patternFields flattens p through JSON so numbers and strings compare the way stored contexts do.
func patternFields(p Pattern) map[string]any {
	b, err := json.Marshal(p)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		m = map[string]any{}
	}
	if _, ok := m["type"]; !ok {
		m["type"] = p.PatternType()
	}
	return m
}

func prefix(s string) string {
	r := []rune(s)
	if len(r) > messagePrefixLen {
		r = r[:messagePrefixLen]
	}
	return string(r)
}

package goals

import (
	"strings"
	"unicode"

	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/insights/lexicon"
)

const (
	MaxTopicLen           = 60
	DefaultMinSharedToken = 4
	contextSnippetLen     = 140
)

// Source names the rule that produced a signal.
type Source string

const (
	SourceGoalUpdate  Source = "goal_update"
	SourceGoalTag     Source = "goal_tag"
	SourceDeclaration Source = "declaration"
	SourceImplicit    Source = "implicit"
)

// Signal is a resolved goal event for one entry.
type Signal struct {
	Topic       string
	DisplayName string
	UpdateType  journal.UpdateType
	Source      Source
}

// statusUpdateType maps a classifier goal_update status.
func statusUpdateType(status string) journal.UpdateType {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "achieved":
		return journal.UpdateAchievement
	case "abandoned":
		return journal.UpdateTermination
	case "progress", "struggling":
		return journal.UpdateProgress
	default:
		return journal.UpdateMention
	}
}

// textUpdateType derives an update type from free text. Termination outranks achievement,
// which outranks progress.
func textUpdateType(lex *lexicon.Lexicon, text string, fallback journal.UpdateType) journal.UpdateType {
	switch {
	case lex.Matches(lexicon.Termination, text):
		return journal.UpdateTermination
	case lex.Matches(lexicon.Achievement, text):
		return journal.UpdateAchievement
	case lex.Matches(lexicon.Progress, text):
		return journal.UpdateProgress
	default:
		return fallback
	}
}

// ExtractTopic returns the text following the first goal-declaration phrase, cut at sentence
// punctuation and capped at MaxTopicLen on a word boundary.
func ExtractTopic(lex *lexicon.Lexicon, text string) (string, bool) {
	norm := lexicon.Normalize(text)
	m, ok := lex.Find(lexicon.GoalDeclaration, norm)
	if !ok {
		return "", false
	}
	rest := norm[m.End:]
	if i := strings.IndexAny(rest, ".!?;\n"); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.Join(strings.Fields(rest), " ")
	rest = strings.Trim(rest, " ,:-\"'")
	if len(rest) > MaxTopicLen {
		cut := strings.LastIndex(rest[:MaxTopicLen+1], " ")
		if cut <= 0 {
			cut = MaxTopicLen
		}
		rest = strings.TrimSpace(rest[:cut])
	}
	if NormalizeTopic(rest) == "" {
		return "", false
	}
	return rest, true
}

// NormalizeTopic converts free text into the lowercase underscore key used for lookups.
func NormalizeTopic(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if b.Len() > 0 && !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// DisplayName turns a topic key back into readable text.
func DisplayName(topic string) string {
	return strings.ReplaceAll(topic, "_", " ")
}

func tokens(s string, minLen int) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(f)) >= minLen {
			out[f] = struct{}{}
		}
	}
	return out
}

// sharesToken reports whether the topic and text share a word of at least minLen runes.
func sharesToken(topic, text string, minLen int) bool {
	want := tokens(text, minLen)
	if len(want) == 0 {
		return false
	}
	for tok := range tokens(topic, minLen) {
		if _, ok := want[tok]; ok {
			return true
		}
	}
	return false
}

// coversTopic reports whether every word of at least minLen runes in topic appears in text.
func coversTopic(topic, text string, minLen int) bool {
	need := tokens(topic, minLen)
	if len(need) == 0 {
		return false
	}
	have := tokens(text, minLen)
	for tok := range need {
		if _, ok := have[tok]; !ok {
			return false
		}
	}
	return true
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= contextSnippetLen {
		return text
	}
	return string(r[:contextSnippetLen])
}

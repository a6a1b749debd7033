package exclusion

import (
	"strings"
	"testing"
	"time"

	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"gorm.io/datatypes"
)

func ctxJSON(s string) datatypes.JSON { return datatypes.JSON([]byte(s)) }

func samplePatterns() []journal.ActivityPattern {
	return []journal.ActivityPattern{
		{Entity: "running", EntityType: "activity", Tag: "@activity:running", Sentiment: journal.SentimentPositive, Mentions: 3, Message: "up"},
		{Entity: "coffee", EntityType: "food", Tag: "@food:coffee", Sentiment: journal.SentimentNegative, Mentions: 4, Message: "down"},
		{Entity: "alcohol", EntityType: "food", Tag: "@food:alcohol", Sentiment: journal.SentimentNegative, Mentions: 2, Message: "down"},
	}
}

func TestBlanketExclusionSuppressesType(t *testing.T) {
	now := time.Now()
	xs := []*journal.Exclusion{{PatternType: "activity_negative", Permanent: true}}
	got := ActivityPatterns(samplePatterns(), xs, now)
	if len(got) != 1 || got[0].Entity != "running" {
		t.Fatalf("want only running, got %+v", got)
	}
}

func TestContextKeysAreAnded(t *testing.T) {
	now := time.Now()
	xs := []*journal.Exclusion{{
		PatternType: "activity_negative",
		Permanent:   true,
		Context:     ctxJSON(`{"entity":"coffee","entity_type":"food","mentions":4}`),
	}}
	got := ActivityPatterns(samplePatterns(), xs, now)
	if len(got) != 2 {
		t.Fatalf("want 2 patterns, got %d", len(got))
	}
	for _, p := range got {
		if p.Entity == "coffee" {
			t.Fatalf("coffee should be excluded")
		}
	}

	xs[0].Context = ctxJSON(`{"entity":"coffee","entity_type":"media"}`)
	if got := ActivityPatterns(samplePatterns(), xs, now); len(got) != 3 {
		t.Fatalf("partial context match must not exclude, got %d", len(got))
	}
}

func TestExpiredExclusionIgnored(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	xs := []*journal.Exclusion{{PatternType: "activity_positive", ExpiresAt: &past}}
	if got := ActivityPatterns(samplePatterns(), xs, now); len(got) != 3 {
		t.Fatalf("expired exclusion applied: %d", len(got))
	}
	xs[0].ExpiresAt = &future
	if got := ActivityPatterns(samplePatterns(), xs, now); len(got) != 2 {
		t.Fatalf("snoozed exclusion not applied: %d", len(got))
	}
}

func TestMessageComparesPrefix(t *testing.T) {
	now := time.Now()
	long := strings.Repeat("a", 100)
	items := []journal.Contradiction{
		{Type: journal.ContradictionSentiment, Message: long + " first tail"},
		{Type: journal.ContradictionSentiment, Message: "different"},
	}
	xs := []*journal.Exclusion{{
		PatternType: journal.ContradictionSentiment,
		Permanent:   true,
		Context:     ctxJSON(`{"message":"` + long + ` other tail"}`),
	}}
	got := Contradictions(items, xs, now)
	if len(got) != 1 || got[0].Message != "different" {
		t.Fatalf("want only the unrelated message, got %+v", got)
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	now := time.Now()
	xs := []*journal.Exclusion{
		{PatternType: "activity_negative", Permanent: true, Context: ctxJSON(`{"entity":"alcohol"}`)},
		{PatternType: journal.ContradictionGoalAbandonment, Permanent: true},
	}
	once := ActivityPatterns(samplePatterns(), xs, now)
	twice := ActivityPatterns(once, xs, now)
	if len(once) != len(twice) {
		t.Fatalf("idempotence: once=%d twice=%d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Entity != twice[i].Entity {
			t.Fatalf("idempotence: order changed at %d", i)
		}
	}
}

func TestMalformedContextMatchesNothing(t *testing.T) {
	now := time.Now()
	for _, raw := range []string{`{"entity":`, `["coffee"]`, `"coffee"`} {
		t.Run(raw, func(t *testing.T) {
			xs := []*journal.Exclusion{{PatternType: "activity_negative", Permanent: true, Context: ctxJSON(raw)}}
			if got := ActivityPatterns(samplePatterns(), xs, now); len(got) != 3 {
				t.Fatalf("malformed context suppressed patterns: want=3 got=%d", len(got))
			}

			// A readable exclusion next to the broken one still applies.
			xs = append(xs, &journal.Exclusion{PatternType: "activity_negative", Permanent: true, Context: ctxJSON(`{"entity":"coffee"}`)})
			if got := ActivityPatterns(samplePatterns(), xs, now); len(got) != 2 {
				t.Fatalf("valid exclusion: want=2 got=%d", len(got))
			}
		})
	}
}

package patterns

import "github.com/yungbote/hearth-backend/internal/domain/journal"

const maxSummaryItems = 5

// BuildSummary picks, in order: the first positive insight, the first negative insight, the
// best-day insight, the worst-day insight and the first contradiction. Inputs must already be
// filtered by the user's exclusions.
func BuildSummary(activity []journal.ActivityPattern, temporal journal.TemporalPatterns, contradictions []journal.Contradiction) journal.SummaryData {
	items := []journal.SummaryItem{}
	if p, ok := firstWithMessage(activity, journal.SentimentPositive); ok {
		items = append(items, journal.SummaryItem{Kind: p.PatternType(), Message: p.Message})
	}
	if p, ok := firstWithMessage(activity, journal.SentimentNegative); ok {
		items = append(items, journal.SummaryItem{Kind: p.PatternType(), Message: p.Message})
	}
	if temporal.BestDayInsight != "" {
		items = append(items, journal.SummaryItem{Kind: "best_day", Message: temporal.BestDayInsight})
	}
	if temporal.WorstDayInsight != "" {
		items = append(items, journal.SummaryItem{Kind: "worst_day", Message: temporal.WorstDayInsight})
	}
	if len(contradictions) > 0 {
		c := contradictions[0]
		items = append(items, journal.SummaryItem{Kind: c.Type, Message: c.Message, Severity: c.Severity})
	}
	if len(items) > maxSummaryItems {
		items = items[:maxSummaryItems]
	}
	return journal.SummaryData{Items: items}
}

func firstWithMessage(activity []journal.ActivityPattern, sentiment string) (journal.ActivityPattern, bool) {
	for _, p := range activity {
		if p.Sentiment == sentiment && p.Message != "" {
			return p, true
		}
	}
	return journal.ActivityPattern{}, false
}

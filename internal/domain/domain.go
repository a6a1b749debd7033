package domain

import (
	"github.com/yungbote/hearth-backend/internal/domain/jobs"
	"github.com/yungbote/hearth-backend/internal/domain/journal"
)

type Entry = journal.Entry
type Analysis = journal.Analysis
type GoalUpdate = journal.GoalUpdate
type Snapshot = journal.Snapshot

type SignalState = journal.SignalState
type StateRecord = journal.StateRecord
type GoalState = journal.GoalState
type UpdateType = journal.UpdateType

type PatternDocument = journal.PatternDocument
type PatternKind = journal.PatternKind
type ActivityPattern = journal.ActivityPattern
type ActivitySentimentData = journal.ActivitySentimentData
type TemporalBucket = journal.TemporalBucket
type TemporalPatterns = journal.TemporalPatterns
type Contradiction = journal.Contradiction
type ContradictionAction = journal.ContradictionAction
type ContradictionsData = journal.ContradictionsData
type SummaryItem = journal.SummaryItem
type SummaryData = journal.SummaryData

type Exclusion = journal.Exclusion

type RiskLevel = journal.RiskLevel
type BurnoutFactors = journal.BurnoutFactors
type BurnoutAssessment = journal.BurnoutAssessment
type BurnoutAssessmentRecord = journal.BurnoutAssessmentRecord
type UserInsightProfile = journal.UserInsightProfile

type JobRun = jobs.JobRun

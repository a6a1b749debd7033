package repos

import (
	"github.com/yungbote/hearth-backend/internal/data/repos/jobs"
	"github.com/yungbote/hearth-backend/internal/data/repos/journal"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type EntryRepo = journal.EntryRepo
type SignalStateRepo = journal.SignalStateRepo
type PatternRepo = journal.PatternRepo
type ExclusionRepo = journal.ExclusionRepo
type BurnoutRepo = journal.BurnoutRepo
type UserProfileRepo = journal.UserProfileRepo

type JobRunRepo = jobs.JobRunRepo

// Repos bundles every store the insight engine reads or writes.
type Repos struct {
	Entries      EntryRepo
	SignalStates SignalStateRepo
	Patterns     PatternRepo
	Exclusions   ExclusionRepo
	Burnout      BurnoutRepo
	Profiles     UserProfileRepo
	JobRuns      JobRunRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Entries:      journal.NewEntryRepo(db, log),
		SignalStates: journal.NewSignalStateRepo(db, log),
		Patterns:     journal.NewPatternRepo(db, log),
		Exclusions:   journal.NewExclusionRepo(db, log),
		Burnout:      journal.NewBurnoutRepo(db, log),
		Profiles:     journal.NewUserProfileRepo(db, log),
		JobRuns:      jobs.NewJobRunRepo(db, log),
	}
}

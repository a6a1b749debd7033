package db

import (
	types "github.com/yungbote/hearth-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// =========================
		// Journal
		// =========================
		&types.Entry{},

		// =========================
		// Insights
		// =========================
		&types.SignalState{},
		&types.PatternDocument{},
		&types.Exclusion{},
		&types.BurnoutAssessmentRecord{},
		&types.UserInsightProfile{},

		// =========================
		// Jobs / worker
		// =========================
		&types.JobRun{},
	)
}

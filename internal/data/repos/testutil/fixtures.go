package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/hearth-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, text string, at time.Time, analysis string) *types.Entry {
	tb.Helper()
	e := &types.Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Text:      text,
		Tags:      datatypes.JSON([]byte("[]")),
		CreatedAt: at.UTC(),
		UpdatedAt: at.UTC(),
	}
	if analysis != "" {
		e.Analysis = datatypes.JSON([]byte(analysis))
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed entry: %v", err)
	}
	return e
}

package journal

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Exclusion is a user-authored rule suppressing a pattern type, optionally narrowed by context.
type Exclusion struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	PatternType string         `gorm:"column:pattern_type;not null" json:"pattern_type"`
	Context     datatypes.JSON `gorm:"column:context;type:jsonb" json:"context,omitempty"`
	Permanent   bool           `gorm:"column:permanent;not null;default:false" json:"permanent"`
	ExpiresAt   *time.Time     `gorm:"column:expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (Exclusion) TableName() string { return "insight_exclusion" }

// ErrMalformedContext marks a stored context that is not a JSON object.
var ErrMalformedContext = errors.New("malformed exclusion context")

// ContextMap decodes the narrowing context. A nil map with a nil error means the exclusion
// covers the whole pattern type.
func (x *Exclusion) ContextMap() (map[string]any, error) {
	if x == nil || len(x.Context) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(x.Context, &m); err != nil {
		return nil, ErrMalformedContext
	}
	return m, nil
}

// ActiveAt reports whether the exclusion is in force at now.
func (x *Exclusion) ActiveAt(now time.Time) bool {
	if x == nil {
		return false
	}
	if x.Permanent {
		return true
	}
	return x.ExpiresAt != nil && x.ExpiresAt.After(now)
}

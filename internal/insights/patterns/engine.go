package patterns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	journalrepo "github.com/yungbote/hearth-backend/internal/data/repos/journal"
	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/insights/lexicon"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

type Config struct {
	Window     int
	MinEntries int
	Location   *time.Location
	Now        func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MinEntries <= 0 {
		c.MinEntries = DefaultMinEntries
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type Engine struct {
	entries    journalrepo.EntryRepo
	states     journalrepo.SignalStateRepo
	exclusions journalrepo.ExclusionRepo
	patterns   journalrepo.PatternRepo
	lex        *lexicon.Lexicon
	log        *logger.Logger
	cfg        Config
}

func NewEngine(
	entries journalrepo.EntryRepo,
	states journalrepo.SignalStateRepo,
	exclusions journalrepo.ExclusionRepo,
	patterns journalrepo.PatternRepo,
	lex *lexicon.Lexicon,
	baseLog *logger.Logger,
	cfg Config,
) *Engine {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Engine{
		entries:    entries,
		states:     states,
		exclusions: exclusions,
		patterns:   patterns,
		lex:        lex,
		log:        baseLog.With("component", "PatternEngine"),
		cfg:        cfg.withDefaults(),
	}
}

// ScopeFor maps a category filter to the document scope it writes.
func ScopeFor(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return journal.ScopeAll
	}
	return category
}

// ComputeAllPatterns recomputes and persists every pattern family for one user. It returns nil
// without writing when there are too few analyzed entries.
func (e *Engine) ComputeAllPatterns(ctx context.Context, userID uuid.UUID, category string) (*Bundle, error) {
	dbc := dbctx.Context{Ctx: ctx}
	category = strings.ToLower(strings.TrimSpace(category))

	rows, err := e.entries.ListRecent(dbc, userID, category, e.cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	snaps := journal.Snapshots(rows)
	if n := len(Qualifying(snaps)); n < e.cfg.MinEntries {
		e.log.Debug("not enough analyzed entries for patterns", "user_id", userID, "category", category, "qualifying", n)
		return nil, nil
	}

	states, err := e.states.ListByUser(dbc, userID, journal.SignalTypeGoal)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	now := e.cfg.Now()
	exclusions, err := e.exclusions.ListActive(dbc, userID, now)
	if err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}

	bundle := Compute(snaps, states, exclusions, ComputeOptions{
		Now:        now,
		Location:   e.cfg.Location,
		Lexicon:    e.lex,
		Scope:      ScopeFor(category),
		MinEntries: e.cfg.MinEntries,
	})
	if bundle == nil {
		return nil, nil
	}

	docs, err := bundle.Documents(userID)
	if err != nil {
		return nil, err
	}
	written, err := e.patterns.ReplaceAll(dbc, docs)
	if err != nil {
		return nil, fmt.Errorf("write pattern documents: %w", err)
	}
	e.log.Info("patterns computed",
		"user_id", userID,
		"scope", bundle.Scope,
		"entries", bundle.EntryCount,
		"activity_patterns", len(bundle.ActivitySentiment.Patterns),
		"contradictions", len(bundle.Contradictions.Items),
		"documents_written", written,
	)
	return bundle, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/hearth-backend/internal/data/repos"
	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/insights/burnout"
	"github.com/yungbote/hearth-backend/internal/insights/lexicon"
	"github.com/yungbote/hearth-backend/internal/insights/patterns"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/errs"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/hearth-backend/internal/services")

type GoalProcessor interface {
	ProcessEntryForGoals(ctx context.Context, userID uuid.UUID, entry *types.Entry) (*types.SignalState, error)
}

type PatternComputer interface {
	ComputeAllPatterns(ctx context.Context, userID uuid.UUID, category string) (*patterns.Bundle, error)
}

// TrackedFields records which analysis fields were present on an entry. Only an absent to
// present change of one of them triggers a recompute on update.
type TrackedFields struct {
	GoalUpdate bool `json:"had_goal_update"`
	MoodScore  bool `json:"had_mood_score"`
}

func TrackedFieldsOf(a *types.Analysis) TrackedFields {
	if a == nil {
		return TrackedFields{}
	}
	return TrackedFields{GoalUpdate: a.GoalUpdate != nil, MoodScore: a.MoodScore != nil}
}

// TriggerReport records the outcome of each stage of one trigger. Stage failures are logged
// and reported here; they never stop sibling stages.
type TriggerReport struct {
	Skipped      bool     `json:"skipped,omitempty"`
	GoalTopic    string   `json:"goal_topic,omitempty"`
	GoalState    string   `json:"goal_state,omitempty"`
	PatternScope []string `json:"pattern_scopes,omitempty"`
	BurnoutLevel string   `json:"burnout_level,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

type SweepReport struct {
	Users    int           `json:"users"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

type InsightService interface {
	OnEntryCreated(ctx context.Context, userID, entryID uuid.UUID) (TriggerReport, error)
	OnEntryUpdated(ctx context.Context, userID, entryID uuid.UUID, before TrackedFields) (TriggerReport, error)
	// RecomputePatterns runs the pattern engine on demand. A nil bundle means too little data.
	RecomputePatterns(ctx context.Context, userID uuid.UUID, category string) (*patterns.Bundle, error)
	AssessBurnout(ctx context.Context, userID uuid.UUID, onDemand bool) (*types.BurnoutAssessment, error)
	DailySweep(ctx context.Context) (SweepReport, error)
}

type InsightConfig struct {
	BurnoutWindow int
	Location      *time.Location
	Lexicon       *lexicon.Lexicon
	SweepDelay    time.Duration
	SweepPageSize int
	Now           func() time.Time
}

type insightService struct {
	log      *logger.Logger
	entries  repos.EntryRepo
	burnout  repos.BurnoutRepo
	profiles repos.UserProfileRepo
	goals    GoalProcessor
	patterns PatternComputer
	notify   InsightNotifier
	cfg      InsightConfig
	flight   singleflight.Group
}

func NewInsightService(
	baseLog *logger.Logger,
	entries repos.EntryRepo,
	burnoutRepo repos.BurnoutRepo,
	profiles repos.UserProfileRepo,
	goals GoalProcessor,
	pat PatternComputer,
	notify InsightNotifier,
	cfg InsightConfig,
) InsightService {
	if cfg.BurnoutWindow <= 0 {
		cfg.BurnoutWindow = burnout.DefaultWindow
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Lexicon == nil {
		cfg.Lexicon = lexicon.Default()
	}
	if cfg.SweepPageSize <= 0 {
		cfg.SweepPageSize = 200
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &insightService{
		log:      baseLog.With("service", "InsightService"),
		entries:  entries,
		burnout:  burnoutRepo,
		profiles: profiles,
		goals:    goals,
		patterns: pat,
		notify:   notify,
		cfg:      cfg,
	}
}

func (s *insightService) OnEntryCreated(ctx context.Context, userID, entryID uuid.UUID) (TriggerReport, error) {
	ctx, span := tracer.Start(ctx, "insights.on_entry_created", trace.WithAttributes(attribute.String("entry_id", entryID.String())))
	defer span.End()

	entry, err := s.loadEntry(ctx, userID, entryID)
	if err != nil {
		span.RecordError(err)
		return TriggerReport{}, err
	}
	return s.run(ctx, userID, entry, true), nil
}

func (s *insightService) OnEntryUpdated(ctx context.Context, userID, entryID uuid.UUID, before TrackedFields) (TriggerReport, error) {
	ctx, span := tracer.Start(ctx, "insights.on_entry_updated", trace.WithAttributes(attribute.String("entry_id", entryID.String())))
	defer span.End()

	entry, err := s.loadEntry(ctx, userID, entryID)
	if err != nil {
		span.RecordError(err)
		return TriggerReport{}, err
	}
	after := TrackedFieldsOf(entry.ParsedAnalysis())
	goalAppeared := !before.GoalUpdate && after.GoalUpdate
	moodAppeared := !before.MoodScore && after.MoodScore
	if !goalAppeared && !moodAppeared {
		s.log.Debug("entry update changed no tracked field", "user_id", userID, "entry_id", entryID)
		return TriggerReport{Skipped: true}, nil
	}
	return s.run(ctx, userID, entry, goalAppeared), nil
}

// run executes one trigger. Goal processing finishes before the pattern engine reads the goal
// states; burnout scoring does not read them and runs alongside.
func (s *insightService) run(ctx context.Context, userID uuid.UUID, entry *types.Entry, withGoals bool) TriggerReport {
	var (
		report     TriggerReport
		patternErr error
		burnoutErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if withGoals {
			state, err := s.processGoals(gctx, userID, entry)
			if err != nil {
				// Patterns still run; they see the goal states as they were.
				s.log.Warn("goal processing failed", "user_id", userID, "entry_id", entry.ID, "error", err)
				report.Errors = append(report.Errors, "goals: "+err.Error())
			} else if state != nil {
				report.GoalTopic = state.Topic
				report.GoalState = string(state.State)
			}
		}
		scopes := []string{""}
		if entry.Category != "" {
			scopes = append(scopes, entry.Category)
		}
		for _, category := range scopes {
			b, err := s.computePatterns(gctx, userID, category)
			if err != nil {
				patternErr = errors.Join(patternErr, err)
				continue
			}
			if b != nil {
				report.PatternScope = append(report.PatternScope, b.Scope)
			}
		}
		return nil
	})
	g.Go(func() error {
		a, err := s.assess(gctx, userID, false)
		if err != nil {
			burnoutErr = err
			return nil
		}
		report.BurnoutLevel = string(a.RiskLevel)
		return nil
	})
	_ = g.Wait()

	if patternErr != nil {
		s.log.Warn("pattern recompute failed", "user_id", userID, "error", patternErr)
		report.Errors = append(report.Errors, "patterns: "+patternErr.Error())
	}
	if burnoutErr != nil {
		s.log.Warn("burnout assessment failed", "user_id", userID, "error", burnoutErr)
		report.Errors = append(report.Errors, "burnout: "+burnoutErr.Error())
	}
	return report
}

func (s *insightService) processGoals(ctx context.Context, userID uuid.UUID, entry *types.Entry) (*types.SignalState, error) {
	ctx, span := tracer.Start(ctx, "insights.goals")
	defer span.End()
	state, err := s.goals.ProcessEntryForGoals(ctx, userID, entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "goal processing failed")
		return nil, err
	}
	if state != nil && s.notify != nil {
		s.notify.GoalUpdated(userID, state)
	}
	return state, nil
}

// computePatterns collapses concurrent runs for the same user and scope. The shared run is
// detached from the caller that started it; every caller waits only as long as its own ctx allows.
func (s *insightService) computePatterns(ctx context.Context, userID uuid.UUID, category string) (*patterns.Bundle, error) {
	scope := patterns.ScopeFor(category)
	runCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(userID.String()+":"+scope, func() (interface{}, error) {
		ctx, span := tracer.Start(runCtx, "insights.patterns", trace.WithAttributes(attribute.String("scope", scope)))
		defer span.End()
		b, err := s.patterns.ComputeAllPatterns(ctx, userID, category)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pattern computation failed")
			return nil, err
		}
		if b != nil && s.notify != nil {
			s.notify.PatternsUpdated(userID, b.Scope, b.Summary)
		}
		return b, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		b, _ := res.Val.(*patterns.Bundle)
		return b, nil
	}
}

func (s *insightService) RecomputePatterns(ctx context.Context, userID uuid.UUID, category string) (*patterns.Bundle, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user id: %w", errs.ErrInvalidArgument)
	}
	return s.computePatterns(ctx, userID, category)
}

func (s *insightService) AssessBurnout(ctx context.Context, userID uuid.UUID, onDemand bool) (*types.BurnoutAssessment, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user id: %w", errs.ErrInvalidArgument)
	}
	a, err := s.assess(ctx, userID, onDemand)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// assess scores the newest entries, merges the result onto the profile and appends a history
// row when the risk is elevated or the caller asked for it.
func (s *insightService) assess(ctx context.Context, userID uuid.UUID, onDemand bool) (types.BurnoutAssessment, error) {
	ctx, span := tracer.Start(ctx, "insights.burnout")
	defer span.End()

	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.entries.ListRecent(dbc, userID, "", s.cfg.BurnoutWindow)
	if err != nil {
		span.RecordError(err)
		return types.BurnoutAssessment{}, fmt.Errorf("load entries: %w", err)
	}
	a := burnout.ComputeBurnoutRiskFromEntries(journal.Snapshots(rows), burnout.Options{
		Now:      s.cfg.Now(),
		Location: s.cfg.Location,
		Lexicon:  s.cfg.Lexicon,
		Window:   s.cfg.BurnoutWindow,
	})
	span.SetAttributes(attribute.String("risk_level", string(a.RiskLevel)))

	if err := s.profiles.MergeLatestBurnout(dbc, userID, a); err != nil {
		span.RecordError(err)
		return a, fmt.Errorf("merge burnout: %w", err)
	}
	if !a.InsufficientData && (a.RiskLevel.Elevated() || onDemand) {
		trigger := journal.BurnoutTriggerElevated
		if onDemand {
			trigger = journal.BurnoutTriggerOnDemand
		}
		if err := s.burnout.AppendHistory(dbc, journal.NewBurnoutAssessmentRecord(userID, a, trigger)); err != nil {
			span.RecordError(err)
			return a, fmt.Errorf("append burnout history: %w", err)
		}
	}
	if s.notify != nil {
		s.notify.BurnoutUpdated(userID, a)
	}
	s.log.Info("burnout assessed",
		"user_id", userID,
		"risk_level", a.RiskLevel,
		"risk_score", a.RiskScore,
		"shelter_mode", a.TriggerShelterMode,
		"entries", a.EntryCount,
	)
	return a, nil
}

// DailySweep walks every known user one at a time, refreshing the all-entries scope and each
// category the user has written under. A failing user is counted and skipped.
func (s *insightService) DailySweep(ctx context.Context) (SweepReport, error) {
	ctx, span := tracer.Start(ctx, "insights.daily_sweep")
	defer span.End()

	start := s.cfg.Now()
	report := SweepReport{}
	after := uuid.Nil
	for {
		ids, err := s.profiles.ListUserIDs(dbctx.Context{Ctx: ctx}, after, s.cfg.SweepPageSize)
		if err != nil {
			span.RecordError(err)
			return report, fmt.Errorf("list users: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			if report.Users > 0 && s.cfg.SweepDelay > 0 {
				timer := time.NewTimer(s.cfg.SweepDelay)
				select {
				case <-ctx.Done():
					timer.Stop()
					report.Duration = s.cfg.Now().Sub(start)
					return report, ctx.Err()
				case <-timer.C:
				}
			} else if err := ctx.Err(); err != nil {
				report.Duration = s.cfg.Now().Sub(start)
				return report, err
			}
			report.Users++
			if err := s.sweepUser(ctx, id); err != nil {
				report.Failed++
				s.log.Warn("daily sweep failed for user", "user_id", id, "error", err)
			}
		}
		after = ids[len(ids)-1]
		if len(ids) < s.cfg.SweepPageSize {
			break
		}
	}
	report.Duration = s.cfg.Now().Sub(start)
	span.SetAttributes(attribute.Int("users", report.Users), attribute.Int("failed", report.Failed))
	s.log.Info("daily sweep finished", "users", report.Users, "failed", report.Failed, "duration", report.Duration)
	return report, nil
}

func (s *insightService) sweepUser(ctx context.Context, userID uuid.UUID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	categories, err := s.entries.ListCategories(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	var perr error
	for _, category := range append([]string{""}, categories...) {
		if _, err := s.computePatterns(ctx, userID, category); err != nil {
			perr = errors.Join(perr, err)
		}
	}
	_, berr := s.assess(ctx, userID, false)
	return errors.Join(perr, berr)
}

func (s *insightService) loadEntry(ctx context.Context, userID, entryID uuid.UUID) (*types.Entry, error) {
	entry, err := s.entries.GetByID(dbctx.Context{Ctx: ctx}, userID, entryID)
	if err != nil {
		return nil, fmt.Errorf("load entry: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("entry %s: %w", entryID, errs.ErrNotFound)
	}
	return entry, nil
}

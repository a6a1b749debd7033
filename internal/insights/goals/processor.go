package goals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	journalrepo "github.com/yungbote/hearth-backend/internal/data/repos/journal"
	"github.com/yungbote/hearth-backend/internal/domain/journal"
	"github.com/yungbote/hearth-backend/internal/insights/lexicon"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/platform/errs"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

type UpsertStatus string

const (
	StatusCreated UpsertStatus = "created"
	StatusUpdated UpsertStatus = "updated"
	StatusSkipped UpsertStatus = "skipped"

	ReasonNoTarget = "no_target"
	ReasonTerminal = "terminal"
)

type UpsertResult struct {
	Status UpsertStatus
	Reason string
	From   journal.GoalState
	To     journal.GoalState
	State  *journal.SignalState
}

// Changed reports whether the stored state moved.
func (r UpsertResult) Changed() bool {
	return r.Status == StatusCreated || (r.Status == StatusUpdated && r.From != r.To)
}

type Options struct {
	// MinSharedTokenLen is the shortest word that can tie an implicit termination or
	// achievement to an open goal.
	MinSharedTokenLen int
	MaxAttempts       int
	Now               func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MinSharedTokenLen <= 0 {
		o.MinSharedTokenLen = DefaultMinSharedToken
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Processor turns entries into goal lifecycle transitions. The signal state store is the only
// source of goal status.
type Processor struct {
	states journalrepo.SignalStateRepo
	lex    *lexicon.Lexicon
	log    *logger.Logger
	opts   Options
}

func NewProcessor(states journalrepo.SignalStateRepo, lex *lexicon.Lexicon, baseLog *logger.Logger, opts Options) *Processor {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Processor{
		states: states,
		lex:    lex,
		log:    baseLog.With("component", "GoalProcessor"),
		opts:   opts.withDefaults(),
	}
}

// ProcessEntryForGoals resolves the entry's goal signal and applies it. It returns nil when the
// entry carries no goal signal or when no goal could be targeted.
func (p *Processor) ProcessEntryForGoals(ctx context.Context, userID uuid.UUID, entry *journal.Entry) (*journal.SignalState, error) {
	_, res, err := p.Process(ctx, userID, entry)
	if err != nil {
		return nil, err
	}
	return res.State, nil
}

// Process is ProcessEntryForGoals with the resolved signal and upsert outcome exposed.
func (p *Processor) Process(ctx context.Context, userID uuid.UUID, entry *journal.Entry) (*Signal, UpsertResult, error) {
	if entry == nil {
		return nil, UpsertResult{}, nil
	}
	sig, err := p.Resolve(ctx, userID, entry.Snapshot())
	if err != nil {
		return nil, UpsertResult{}, err
	}
	if sig == nil {
		return nil, UpsertResult{}, nil
	}
	res, err := p.upsert(ctx, userID, sig.Topic, sig.DisplayName, entry.ID.String(), sig.UpdateType, snippet(entry.Text))
	if err != nil {
		return sig, res, err
	}
	p.log.Debug("goal signal applied",
		"user_id", userID,
		"topic", sig.Topic,
		"source", sig.Source,
		"update_type", sig.UpdateType,
		"status", res.Status,
		"reason", res.Reason,
	)
	return sig, res, nil
}

// Resolve applies the detection rules in order: structured goal_update, explicit @goal: tag,
// declaration phrase, then implicit termination/achievement against open goals.
func (p *Processor) Resolve(ctx context.Context, userID uuid.UUID, snap journal.Snapshot) (*Signal, error) {
	if a := snap.Analysis; a != nil && a.GoalUpdate != nil {
		if topic := NormalizeTopic(a.GoalUpdate.Tag); topic != "" {
			return &Signal{
				Topic:       topic,
				DisplayName: DisplayName(topic),
				UpdateType:  statusUpdateType(a.GoalUpdate.Status),
				Source:      SourceGoalUpdate,
			}, nil
		}
	}

	for _, tag := range snap.Tags {
		ns, val, ok := journal.SplitTag(tag)
		if !ok || ns != journal.SignalTypeGoal {
			continue
		}
		if topic := NormalizeTopic(val); topic != "" {
			return &Signal{
				Topic:       topic,
				DisplayName: DisplayName(topic),
				UpdateType:  textUpdateType(p.lex, snap.Text, journal.UpdateMention),
				Source:      SourceGoalTag,
			}, nil
		}
	}

	if phrase, ok := ExtractTopic(p.lex, snap.Text); ok {
		sig := &Signal{
			Topic:       NormalizeTopic(phrase),
			DisplayName: phrase,
			UpdateType:  textUpdateType(p.lex, snap.Text, journal.UpdateNew),
			Source:      SourceDeclaration,
		}
		if err := p.matchFinished(ctx, userID, sig, phrase); err != nil {
			return nil, err
		}
		return sig, nil
	}

	var implicit journal.UpdateType
	switch {
	case p.lex.Matches(lexicon.Termination, snap.Text):
		implicit = journal.UpdateTermination
	case p.lex.Matches(lexicon.Achievement, snap.Text):
		implicit = journal.UpdateAchievement
	default:
		return nil, nil
	}
	open, err := p.states.ListByStates(dbctx.Context{Ctx: ctx}, userID, journal.SignalTypeGoal,
		[]journal.GoalState{journal.GoalActive, journal.GoalProposed})
	if err != nil {
		return nil, fmt.Errorf("list open goals: %w", err)
	}
	for _, s := range open {
		if sharesToken(s.Topic, snap.Text, p.opts.MinSharedTokenLen) {
			return &Signal{
				Topic:       s.Topic,
				DisplayName: s.DisplayName,
				UpdateType:  implicit,
				Source:      SourceImplicit,
			}, nil
		}
	}
	return nil, nil
}

// matchFinished points a declaration that restates an achieved or abandoned goal at that goal,
// so the terminal no-op absorbs it instead of a second record being created.
func (p *Processor) matchFinished(ctx context.Context, userID uuid.UUID, sig *Signal, phrase string) error {
	dbc := dbctx.Context{Ctx: ctx}
	cur, err := p.states.GetByTopic(dbc, userID, journal.SignalTypeGoal, sig.Topic)
	if err != nil {
		return fmt.Errorf("load goal %s: %w", sig.Topic, err)
	}
	if cur != nil {
		return nil
	}
	finished, err := p.states.ListByStates(dbc, userID, journal.SignalTypeGoal,
		[]journal.GoalState{journal.GoalAchieved, journal.GoalAbandoned})
	if err != nil {
		return fmt.Errorf("list finished goals: %w", err)
	}
	for _, s := range finished {
		if coversTopic(s.Topic, phrase, p.opts.MinSharedTokenLen) {
			sig.Topic = s.Topic
			sig.DisplayName = s.DisplayName
			return nil
		}
	}
	return nil
}

// UpsertGoalState applies one update to the goal keyed by topic.
func (p *Processor) UpsertGoalState(ctx context.Context, userID uuid.UUID, topic, entryID string, u journal.UpdateType, contextText string) (UpsertResult, error) {
	key := NormalizeTopic(topic)
	return p.upsert(ctx, userID, key, DisplayName(key), entryID, u, contextText)
}

func (p *Processor) upsert(ctx context.Context, userID uuid.UUID, topic, display, entryID string, u journal.UpdateType, contextText string) (UpsertResult, error) {
	if topic == "" {
		return UpsertResult{}, fmt.Errorf("empty goal topic: %w", errs.ErrInvalidArgument)
	}
	dbc := dbctx.Context{Ctx: ctx}
	for attempt := 0; attempt < p.opts.MaxAttempts; attempt++ {
		cur, err := p.states.GetByTopic(dbc, userID, journal.SignalTypeGoal, topic)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("load goal %s: %w", topic, err)
		}
		now := p.opts.Now().UTC()

		if cur == nil {
			if u == journal.UpdateTermination || u == journal.UpdateAchievement {
				return UpsertResult{Status: StatusSkipped, Reason: ReasonNoTarget}, nil
			}
			s := &journal.SignalState{
				ID:          uuid.New(),
				UserID:      userID,
				Type:        journal.SignalTypeGoal,
				Topic:       topic,
				DisplayName: strings.TrimSpace(display),
				State:       journal.GoalProposed,
				Version:     1,
				LastUpdated: now,
				CreatedAt:   now,
			}
			if s.DisplayName == "" {
				s.DisplayName = DisplayName(topic)
			}
			s.SetHistory([]journal.StateRecord{{
				State:      journal.GoalProposed,
				UpdateType: u,
				EntryID:    entryID,
				Context:    contextText,
				At:         now,
			}})
			s.SetSources(journal.UnionSource(nil, entryID))
			if err := p.states.Create(dbc, s); err != nil {
				if errors.Is(err, errs.ErrConflict) {
					continue
				}
				return UpsertResult{}, fmt.Errorf("create goal %s: %w", topic, err)
			}
			return UpsertResult{Status: StatusCreated, To: s.State, State: s}, nil
		}

		from := cur.State
		next, ok := Transition(from, u)
		if !ok {
			return UpsertResult{Status: StatusSkipped, Reason: ReasonTerminal, From: from, To: from, State: cur}, nil
		}
		ok, err = p.write(dbc, cur, next, u, entryID, contextText, now)
		if err != nil {
			return UpsertResult{}, err
		}
		if !ok {
			continue
		}
		return UpsertResult{Status: StatusUpdated, From: from, To: next, State: cur}, nil
	}
	p.log.Warn("goal update lost every compare-and-swap attempt", "user_id", userID, "topic", topic, "attempts", p.opts.MaxAttempts)
	return UpsertResult{}, fmt.Errorf("goal %s: %w", topic, errs.ErrConcurrentUpdate)
}

// ApplyUserAction records an explicit choice made on a goal (reactivate, achieve, abandon, pause).
func (p *Processor) ApplyUserAction(ctx context.Context, userID uuid.UUID, topic, action string) (UpsertResult, error) {
	target, ok := actionTarget(strings.ToLower(strings.TrimSpace(action)))
	if !ok {
		return UpsertResult{}, fmt.Errorf("unknown goal action %q: %w", action, errs.ErrInvalidArgument)
	}
	key := NormalizeTopic(topic)
	dbc := dbctx.Context{Ctx: ctx}
	for attempt := 0; attempt < p.opts.MaxAttempts; attempt++ {
		cur, err := p.states.GetByTopic(dbc, userID, journal.SignalTypeGoal, key)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("load goal %s: %w", key, err)
		}
		if cur == nil {
			return UpsertResult{}, fmt.Errorf("goal %s: %w", key, errs.ErrNotFound)
		}
		from := cur.State
		if from.Terminal() {
			return UpsertResult{Status: StatusSkipped, Reason: ReasonTerminal, From: from, To: from, State: cur}, nil
		}
		ok, err := p.write(dbc, cur, target, journal.UpdateUserAction, "", action, p.opts.Now().UTC())
		if err != nil {
			return UpsertResult{}, err
		}
		if !ok {
			continue
		}
		return UpsertResult{Status: StatusUpdated, From: from, To: target, State: cur}, nil
	}
	return UpsertResult{}, fmt.Errorf("goal %s: %w", key, errs.ErrConcurrentUpdate)
}

// write stages the transition on a copy and commits it with a version check.
func (p *Processor) write(dbc dbctx.Context, cur *journal.SignalState, next journal.GoalState, u journal.UpdateType, entryID, contextText string, now time.Time) (bool, error) {
	expected := cur.Version
	rec := journal.StateRecord{
		State:      next,
		From:       cur.State,
		UpdateType: u,
		EntryID:    entryID,
		Context:    contextText,
		At:         now,
	}
	updated := *cur
	updated.SetHistory(journal.AppendHistory(cur.History(), rec, journal.MaxStateHistory))
	updated.SetSources(journal.UnionSource(cur.Sources(), entryID))
	updated.State = next
	updated.LastUpdated = now

	ok, err := p.states.UpdateIfVersion(dbc, &updated, expected)
	if err != nil {
		return false, fmt.Errorf("update goal %s: %w", cur.Topic, err)
	}
	if ok {
		*cur = updated
	}
	return ok, nil
}

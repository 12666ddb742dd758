// Package matching implements the core of the engine: candidate pool
// building, the like/pass decision ledger, and exactly-once match resolution.
package matching

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fitmatch/fitmatch/internal/app"
	"github.com/fitmatch/fitmatch/internal/db"
	svcErr "github.com/fitmatch/fitmatch/internal/errors"
	"github.com/fitmatch/fitmatch/internal/events"
	"github.com/fitmatch/fitmatch/internal/repository"
)

// MatchOutcome reports what a like decision did to the pair's match state.
type MatchOutcome string

const (
	OutcomeNoMatch        MatchOutcome = "no_match"
	OutcomeMatchCreated   MatchOutcome = "match_created"
	OutcomeAlreadyMatched MatchOutcome = "already_matched"
)

// DecisionResult bundles the stored decision with the match outcome so the
// caller's response already reflects whether a match was created.
type DecisionResult struct {
	Decision db.Decision  `json:"decision"`
	Outcome  MatchOutcome `json:"outcome"`
	MatchID  uint64       `json:"match_id,omitempty"`
}

// candidateBatch is how many profiles each exclusion-filtered page pulls
// before the reciprocal-preference filter runs over it.
const candidateBatch = 50

// reconcileBatch caps how many unresolved mutual-like pairs one sweep handles.
const reconcileBatch = 100

// Service contains the matching business logic on top of the repository,
// cache and event layers.
type Service struct {
	appCtx       *app.AppContext
	profileRepo  *repository.ProfileRepository
	decisionRepo *repository.DecisionRepository
	matchRepo    *repository.MatchRepository
}

// NewService creates a matching service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:       appCtx,
		profileRepo:  repository.NewProfileRepository(appCtx.DB),
		decisionRepo: repository.NewDecisionRepository(appCtx.DB),
		matchRepo:    repository.NewMatchRepository(appCtx.DB),
	}
}

// NextCandidates returns up to limit profiles eligible to be shown to the
// user next. Pure read: excludes self, every already-decided target and every
// matched counterpart (any status), keeps only active profiles whose
// preferences and the viewer's preferences accept each other, and orders by
// most recent activity with ascending id as the deterministic tiebreak.
func (s *Service) NextCandidates(ctx context.Context, userID uint64, limit int) ([]db.Profile, error) {
	if limit <= 0 {
		limit = s.appCtx.Cfg.Match.CandidateLimit
	}

	viewer, err := s.profileRepo.Get(ctx, userID)
	if err != nil {
		if svcErr.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, svcErr.ErrNotFound)
		}
		return nil, err
	}
	if !viewer.Active {
		return nil, fmt.Errorf("user %d is inactive: %w", userID, svcErr.ErrNotFound)
	}
	if !viewer.Complete() {
		return nil, svcErr.ErrProfileIncomplete
	}

	excluded, err := s.exclusionSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	candidates := make([]db.Profile, 0, limit)

	for offset := 0; len(candidates) < limit; offset += candidateBatch {
		batch, err := s.profileRepo.ListActiveExcluding(ctx, excluded, offset, candidateBatch)
		if err != nil {
			return nil, err
		}

		for _, c := range batch {
			if !viewer.Accepts(c, now) || !c.Accepts(viewer, now) {
				continue
			}
			candidates = append(candidates, c)
			if len(candidates) == limit {
				break
			}
		}

		if len(batch) < candidateBatch {
			break // pool exhausted
		}
	}

	s.appCtx.Logger.Debug("candidates built",
		"user", userID, "limit", limit, "returned", len(candidates))

	return candidates, nil
}

// exclusionSet is self plus every decided target plus the counterpart of
// every match row, regardless of status. An unmatched pair never resurfaces.
func (s *Service) exclusionSet(ctx context.Context, userID uint64) ([]uint64, error) {
	decided, err := s.decisionRepo.DecidedTargetIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	matched, err := s.matchRepo.MatchedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	excluded := make([]uint64, 0, len(decided)+len(matched)+1)
	excluded = append(excluded, userID)
	excluded = append(excluded, decided...)
	excluded = append(excluded, matched...)
	return excluded, nil
}

// RecordDecision writes the actor's like/pass verdict on the target and, for
// likes, resolves the match state synchronously before returning.
//
// Idempotent: a repeated submission returns the stored decision and the same
// outcome the pair's current state implies, never an error and never a
// duplicate row.
func (s *Service) RecordDecision(ctx context.Context, actorID, targetID uint64, kind db.DecisionKind) (DecisionResult, error) {
	if actorID == targetID {
		return DecisionResult{}, svcErr.ErrSelfReference
	}
	if kind != db.DecisionLike && kind != db.DecisionPass {
		return DecisionResult{}, fmt.Errorf("unknown decision kind %q", kind)
	}

	actor, err := s.profileRepo.Get(ctx, actorID)
	if err != nil {
		if svcErr.Is(err, gorm.ErrRecordNotFound) {
			return DecisionResult{}, fmt.Errorf("actor %d: %w", actorID, svcErr.ErrNotFound)
		}
		return DecisionResult{}, err
	}

	// passes are always allowed; liking requires a complete profile
	if kind == db.DecisionLike && !actor.Complete() {
		return DecisionResult{}, svcErr.ErrProfileIncomplete
	}

	if _, err := s.profileRepo.Get(ctx, targetID); err != nil {
		if svcErr.Is(err, gorm.ErrRecordNotFound) {
			return DecisionResult{}, fmt.Errorf("target %d: %w", targetID, svcErr.ErrNotFound)
		}
		return DecisionResult{}, err
	}

	decision, created, err := s.decisionRepo.Record(ctx, actorID, targetID, kind)
	if err != nil {
		return DecisionResult{}, err
	}

	if created && kind == db.DecisionLike {
		key := s.appCtx.RedisCache.KeyForLikeCount(targetID)
		if err := s.appCtx.RedisCache.BumpCounter(ctx, key, 1); err != nil {
			s.appCtx.Logger.Warn("like counter bump failed", "target", targetID, "err", err)
		}
	}

	result := DecisionResult{Decision: decision, Outcome: OutcomeNoMatch}

	// the stored kind decides: a duplicate like after an earlier pass was a
	// no-op and must not resolve
	if decision.Kind == db.DecisionLike {
		result.Outcome, result.MatchID, err = s.tryResolve(ctx, actorID, targetID)
		if err != nil {
			return DecisionResult{}, err
		}
	}

	s.appCtx.Logger.Debug("decision recorded",
		"actor", actorID, "target", targetID, "kind", decision.Kind,
		"created", created, "outcome", result.Outcome)

	return result, nil
}

// tryResolve checks the ledger for a reciprocal like and, if present,
// creates the canonical match row exactly once. The unique index on the pair
// is the concurrency control: whichever of two racing reciprocal likes
// inserts first wins, the loser observes the conflict, reads the existing
// row and reports already_matched. Whichever call creates the row also
// notifies both participants, so notifications go out at most once per pair.
func (s *Service) tryResolve(ctx context.Context, actorID, targetID uint64) (MatchOutcome, uint64, error) {
	reciprocal, err := s.decisionRepo.HasLiked(ctx, targetID, actorID)
	if err != nil {
		return OutcomeNoMatch, 0, err
	}
	if !reciprocal {
		return OutcomeNoMatch, 0, nil
	}

	match, created, err := s.matchRepo.CreateCanonical(ctx, actorID, targetID)
	if err != nil {
		return OutcomeNoMatch, 0, err
	}

	if !created {
		// the reciprocal path raced and won, or the pair was resolved
		// earlier; no duplicate notification
		return OutcomeAlreadyMatched, match.ID, nil
	}

	s.notifyMatch(ctx, match)

	s.appCtx.Logger.Info("match created",
		"match_id", match.ID, "user_a", match.UserAID, "user_b", match.UserBID)

	return OutcomeMatchCreated, match.ID, nil
}

// notifyMatch records a match_created notification for both participants.
// The match row is already durable; a failed notification is logged, not
// propagated.
func (s *Service) notifyMatch(ctx context.Context, match db.Match) {
	for _, userID := range []uint64{match.UserAID, match.UserBID} {
		payload := events.MatchPayload{
			MatchID:     match.ID,
			OtherUserID: match.Other(userID),
		}
		if _, err := s.appCtx.Dispatcher.Notify(ctx, userID, events.KindMatchCreated, payload); err != nil {
			s.appCtx.Logger.Error("match notification failed",
				"match_id", match.ID, "recipient", userID, "err", err)
		}
	}
}

// ListMatches returns the user's active matches, newest first.
func (s *Service) ListMatches(ctx context.Context, userID uint64) ([]db.Match, error) {
	return s.matchRepo.ListActive(ctx, userID)
}

// Unmatch flips a match the user participates in to its terminal unmatched
// state. The pair stays excluded from each other's candidate pool.
func (s *Service) Unmatch(ctx context.Context, matchID, userID uint64) (db.Match, error) {
	match, err := s.matchRepo.Unmatch(ctx, matchID, userID)
	if err != nil {
		if svcErr.Is(err, gorm.ErrRecordNotFound) {
			return db.Match{}, fmt.Errorf("match %d: %w", matchID, svcErr.ErrNotFound)
		}
		return db.Match{}, err
	}
	return match, nil
}

// ListLikers returns who liked the user (and has not been passed back),
// newest first with cursor pagination.
func (s *Service) ListLikers(ctx context.Context, userID uint64, token *string, limit int) ([]db.Decision, *string, error) {
	if limit <= 0 {
		limit = s.appCtx.Cfg.Match.CandidateLimit
	}
	return s.decisionRepo.Likers(ctx, userID, token, limit)
}

// Reconcile re-resolves mutual-like pairs that lack a match row. Idempotent
// corrective sweep for the window between a durable like write and a resolver
// that never ran (process crash). Returns how many matches it created.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	pairs, err := s.decisionRepo.UnresolvedMutualLikes(ctx, reconcileBatch)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, p := range pairs {
		outcome, _, err := s.tryResolve(ctx, p.UserAID, p.UserBID)
		if err != nil {
			s.appCtx.Logger.Error("reconcile resolve failed",
				"user_a", p.UserAID, "user_b", p.UserBID, "err", err)
			continue
		}
		if outcome == OutcomeMatchCreated {
			created++
		}
	}

	if created > 0 {
		s.appCtx.Logger.Info("reconciliation sweep created matches", "count", created)
	}

	return created, nil
}

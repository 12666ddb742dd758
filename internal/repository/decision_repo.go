package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitmatch/fitmatch/internal/db"
	"github.com/fitmatch/fitmatch/internal/utils/pagination"
)

// DecisionRepository provides data access for the append-only decision
// ledger: one like/pass row per (actor, target) pair, first write wins.
type DecisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a new repository bound to the given DB connection.
func NewDecisionRepository(database *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: database}
}

// Record inserts a decision for actor -> target. The insert is idempotent:
// a pre-existing row for the pair is left untouched and returned as-is, so a
// duplicate UI submission (double-click) is a no-op rather than an error.
// The second return value reports whether this call created the row.
func (r *DecisionRepository) Record(
	ctx context.Context,
	actorID, targetID uint64,
	kind db.DecisionKind,
) (db.Decision, bool, error) {
	decision := db.Decision{
		ActorID:  actorID,
		TargetID: targetID,
		Kind:     kind,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
			DoNothing: true,
		}).
		Create(&decision)
	if res.Error != nil {
		return db.Decision{}, false, res.Error
	}

	if res.RowsAffected == 0 {
		// first write won; hand back the stored row
		var existing db.Decision
		err := r.db.WithContext(ctx).
			Where("actor_id = ? AND target_id = ?", actorID, targetID).
			First(&existing).Error
		return existing, false, err
	}

	return decision, true, nil
}

// HasLiked reports whether actor has a recorded like toward target.
func (r *DecisionRepository) HasLiked(
	ctx context.Context,
	actorID, targetID uint64,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Decision{}).
		Where("actor_id = ? AND target_id = ? AND kind = ?", actorID, targetID, db.DecisionLike).
		Count(&count).Error
	return count > 0, err
}

// DecidedTargetIDs returns every target the actor has already decided on,
// like or pass. Both kinds exclude the target from the actor's candidate
// pool.
func (r *DecisionRepository) DecidedTargetIDs(
	ctx context.Context,
	actorID uint64,
) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Decision{}).
		Where("actor_id = ?", actorID).
		Pluck("target_id", &ids).Error
	return ids, err
}

// Likers returns users who liked the given target and whom the target has
// not passed on, newest first. Supports cursor-based pagination.
func (r *DecisionRepository) Likers(
	ctx context.Context,
	targetID uint64,
	paginationToken *string,
	limit int,
) ([]db.Decision, *string, error) {
	var decisions []db.Decision

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("decisions d").
		Where("d.target_id = ? AND d.kind = ?", targetID, db.DecisionLike).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM decisions d2
				WHERE d2.actor_id = ?
				  AND d2.target_id = d.actor_id
				  AND d2.kind = ?
			)`, targetID, db.DecisionPass).
		Order("d.created_at DESC, d.actor_id DESC").
		Limit(limit + 1)

	if cursor.ID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(d.created_at < ? OR (d.created_at = ? AND d.actor_id < ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&decisions).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(decisions) > limit {
		last := decisions[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:          last.ActorID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		decisions = decisions[:limit]
	}

	return decisions, nextToken, nil
}

// MutualPair is an unordered pair of users holding reciprocal likes.
type MutualPair struct {
	UserAID uint64
	UserBID uint64
}

// UnresolvedMutualLikes finds reciprocal like pairs that have no match row
// yet. Normally empty: the resolver runs synchronously after every like.
// A pair shows up here only when a process died between the decision write
// and the match insert; the reconciliation sweep re-resolves them.
func (r *DecisionRepository) UnresolvedMutualLikes(
	ctx context.Context,
	limit int,
) ([]MutualPair, error) {
	var pairs []MutualPair
	err := r.db.WithContext(ctx).
		Table("decisions d1").
		Select("d1.actor_id AS user_a_id, d1.target_id AS user_b_id").
		Joins(`JOIN decisions d2
			ON d2.actor_id = d1.target_id
			AND d2.target_id = d1.actor_id
			AND d2.kind = ?`, db.DecisionLike).
		Where("d1.kind = ? AND d1.actor_id < d1.target_id", db.DecisionLike).
		Where(`NOT EXISTS (
			SELECT 1 FROM matches m
			WHERE m.user_a_id = d1.actor_id
			  AND m.user_b_id = d1.target_id
		)`).
		Limit(limit).
		Scan(&pairs).Error
	return pairs, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

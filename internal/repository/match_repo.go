package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fitmatch/fitmatch/internal/db"
)

// MatchRepository provides data access for match rows. All writes go through
// the uniqueness-constrained canonical-pair insert; that constraint is the
// only concurrency control match creation needs.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateCanonical inserts the match row for the unordered pair {a, b} under
// the unique (user_a_id, user_b_id) index. When the reciprocal path raced and
// won, the insert affects zero rows and the existing match is fetched and
// returned instead. The second return value reports whether this call
// created the row.
func (r *MatchRepository) CreateCanonical(
	ctx context.Context,
	a, b uint64,
) (db.Match, bool, error) {
	ua, ub := db.CanonicalPair(a, b)
	match := db.Match{
		UserAID: ua,
		UserBID: ub,
		Status:  db.MatchActive,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoNothing: true,
		}).
		Create(&match)
	if res.Error != nil {
		return db.Match{}, false, res.Error
	}

	if res.RowsAffected == 0 {
		existing, err := r.ByPair(ctx, a, b)
		return existing, false, err
	}

	return match, true, nil
}

// ByPair fetches the match row for the unordered pair {a, b}.
func (r *MatchRepository) ByPair(ctx context.Context, a, b uint64) (db.Match, error) {
	ua, ub := db.CanonicalPair(a, b)
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", ua, ub).
		First(&m).Error
	return m, err
}

// ByID fetches a match row by primary key.
func (r *MatchRepository) ByID(ctx context.Context, id uint64) (db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).First(&m, id).Error
	return m, err
}

// ListActive returns the user's active matches, newest first.
func (r *MatchRepository) ListActive(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(user_a_id = ? OR user_b_id = ?) AND status = ?", userID, userID, db.MatchActive).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// MatchedUserIDs returns the counterpart of every match the user appears in,
// regardless of status. Unmatched pairs stay excluded from each other's
// candidate pool permanently.
func (r *MatchRepository) MatchedUserIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Other(userID))
	}
	return ids, nil
}

// Unmatch flips an active match to the terminal unmatched status. Only a
// participant may unmatch; anyone else gets ErrRecordNotFound.
func (r *MatchRepository) Unmatch(ctx context.Context, matchID, userID uint64) (db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("id = ? AND (user_a_id = ? OR user_b_id = ?)", matchID, userID, userID).
		First(&m).Error
	if err != nil {
		return db.Match{}, err
	}

	if m.Status == db.MatchUnmatched {
		return m, nil
	}

	err = r.db.WithContext(ctx).
		Model(&m).
		Update("status", db.MatchUnmatched).Error
	return m, err
}

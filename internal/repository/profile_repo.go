package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/fitmatch/fitmatch/internal/db"
)

// ProfileRepository provides read access to the profile directory. The
// matching engine never mutates profile attributes; profile CRUD belongs to
// the wider application.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get fetches a single profile by id.
func (r *ProfileRepository) Get(ctx context.Context, id uint64) (db.Profile, error) {
	var p db.Profile
	err := r.db.WithContext(ctx).First(&p, id).Error
	return p, err
}

// ListActiveExcluding returns a batch of active profiles whose ids are not in
// the exclusion set, ordered most-recently-active first with ascending id as
// the deterministic tiebreak. offset/batch implement forward paging so the
// caller can keep filtering until it has enough accepted candidates.
func (r *ProfileRepository) ListActiveExcluding(
	ctx context.Context,
	excluded []uint64,
	offset, batch int,
) ([]db.Profile, error) {
	var profiles []db.Profile

	query := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("last_active_at DESC, id ASC").
		Offset(offset).
		Limit(batch)

	if len(excluded) > 0 {
		query = query.Where("id NOT IN ?", excluded)
	}

	err := query.Find(&profiles).Error
	return profiles, err
}

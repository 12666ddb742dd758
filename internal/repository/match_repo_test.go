package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fitmatch/fitmatch/internal/db"
	"github.com/fitmatch/fitmatch/internal/repository"
)

func TestCreateCanonicalIsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m1, created, err := repo.CreateCanonical(ctx, 7, 3)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint64(3), m1.UserAID)
	assert.Equal(t, uint64(7), m1.UserBID)
	assert.Equal(t, db.MatchActive, m1.Status)

	// the reciprocal path, argument order flipped, lands on the same row
	m2, created, err := repo.CreateCanonical(ctx, 3, 7)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m1.ID, m2.ID)

	var count int64
	dbase.Model(&db.Match{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestByPairOrderIndependent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m, _, err := repo.CreateCanonical(ctx, 10, 20)
	require.NoError(t, err)

	got, err := repo.ByPair(ctx, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = repo.ByPair(ctx, 10, 30)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListActiveSkipsUnmatched(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m1, _, err := repo.CreateCanonical(ctx, 1, 2)
	require.NoError(t, err)
	m2, _, err := repo.CreateCanonical(ctx, 1, 3)
	require.NoError(t, err)

	_, err = repo.Unmatch(ctx, m2.ID, 1)
	require.NoError(t, err)

	active, err := repo.ListActive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, m1.ID, active[0].ID)
}

func TestMatchedUserIDsIncludesUnmatched(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	_, _, err := repo.CreateCanonical(ctx, 1, 2)
	require.NoError(t, err)
	m, _, err := repo.CreateCanonical(ctx, 1, 3)
	require.NoError(t, err)
	_, err = repo.Unmatch(ctx, m.ID, 1)
	require.NoError(t, err)

	// the unmatched pair stays excluded
	ids, err := repo.MatchedUserIDs(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, ids)
}

func TestUnmatchOwnershipAndTerminality(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m, _, err := repo.CreateCanonical(ctx, 1, 2)
	require.NoError(t, err)

	// a non-participant cannot unmatch
	_, err = repo.Unmatch(ctx, m.ID, 99)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	got, err := repo.Unmatch(ctx, m.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	// repeat unmatch is a no-op, never a revival
	again, err := repo.Unmatch(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, db.MatchUnmatched, again.Status)

	stored, err := repo.ByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, db.MatchUnmatched, stored.Status)
}

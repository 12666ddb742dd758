package matching_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fitmatch/fitmatch/internal/app"
	"github.com/fitmatch/fitmatch/internal/cache"
	"github.com/fitmatch/fitmatch/internal/config"
	"github.com/fitmatch/fitmatch/internal/db"
	svcErr "github.com/fitmatch/fitmatch/internal/errors"
	"github.com/fitmatch/fitmatch/internal/events"
	"github.com/fitmatch/fitmatch/internal/repository"
	"github.com/fitmatch/fitmatch/internal/service/matching"
)

// setupService spins up an in-memory SQLite DB, applies migrations, starts a
// miniredis, and wires everything into a matching service. Each test gets
// its own isolated DB + Redis.
func setupService(t *testing.T) (*matching.Service, *app.AppContext) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Match.CandidateLimit = 10

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	hub := events.NewHub()
	dispatcher := events.NewDispatcher(hub, redisCache, repository.NewNotificationRepository(dbase), logger)

	appCtx := app.New(cfg, dbase, redisCache, logger, dispatcher)
	return matching.NewService(appCtx), appCtx
}

// seedProfile inserts a complete, active profile. lastActive staggers the
// candidate ordering.
func seedProfile(t *testing.T, gdb *gorm.DB, id uint64, gender string, prefs []string, lastActive time.Time) db.Profile {
	t.Helper()

	birth := time.Date(1995, 3, 10, 0, 0, 0, 0, time.UTC)
	p := db.Profile{
		ID:               id,
		Username:         fmt.Sprintf("user%d", id),
		Email:            fmt.Sprintf("u%d@test.com", id),
		PasswordHash:     "x",
		FullName:         fmt.Sprintf("User %d", id),
		Bio:              "lifts heavy things",
		BirthDate:        &birth,
		Gender:           gender,
		Location:         "Praha",
		PreferredGenders: prefs,
		Active:           true,
		LastActiveAt:     lastActive,
	}
	require.NoError(t, gdb.Create(&p).Error)
	return p
}

func seedStandardTrio(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	now := time.Now().UTC()
	seedProfile(t, gdb, 1, "male", []string{"female"}, now.Add(-1*time.Hour))
	seedProfile(t, gdb, 2, "female", []string{"male"}, now.Add(-2*time.Hour))
	seedProfile(t, gdb, 3, "female", []string{"male"}, now.Add(-3*time.Hour))
}

func TestNextCandidatesNeverContainsSelf(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedStandardTrio(t, appCtx.DB)

	candidates, err := svc.NextCandidates(ctx, 1, 10)
	require.NoError(t, err)
	for _, c := range candidates {
		assert.NotEqual(t, uint64(1), c.ID)
	}
}

func TestNextCandidatesExclusionStability(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedStandardTrio(t, appCtx.DB)

	_, err := svc.RecordDecision(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)

	// any number of repeated calls: 2 never resurfaces for 1
	for i := 0; i < 3; i++ {
		candidates, err := svc.NextCandidates(ctx, 1, 10)
		require.NoError(t, err)
		for _, c := range candidates {
			assert.NotEqual(t, uint64(2), c.ID)
		}
	}
}

func TestNextCandidatesReciprocalPreferenceFilter(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	now := time.Now().UTC()

	// viewer only accepts females
	seedProfile(t, appCtx.DB, 1, "male", []string{"female"}, now)
	// male candidate who would accept the viewer, still filtered out
	seedProfile(t, appCtx.DB, 2, "male", []string{"male"}, now)
	// female candidate whose own preferences exclude the viewer
	seedProfile(t, appCtx.DB, 3, "female", []string{"female"}, now)
	// mutually acceptable
	seedProfile(t, appCtx.DB, 4, "female", []string{"male"}, now)
	// absent preferences accept anyone
	seedProfile(t, appCtx.DB, 5, "female", nil, now)

	candidates, err := svc.NextCandidates(ctx, 1, 10)
	require.NoError(t, err)

	ids := make([]uint64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []uint64{4, 5}, ids)
}

func TestNextCandidatesOrdering(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	now := time.Now().UTC().Truncate(time.Second)

	seedProfile(t, appCtx.DB, 1, "male", []string{"female"}, now)
	seedProfile(t, appCtx.DB, 2, "female", []string{"male"}, now.Add(-2*time.Hour))
	seedProfile(t, appCtx.DB, 3, "female", []string{"male"}, now.Add(-1*time.Hour))
	// same last_active as 3 → ascending id breaks the tie
	seedProfile(t, appCtx.DB, 4, "female", []string{"male"}, now.Add(-1*time.Hour))

	candidates, err := svc.NextCandidates(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, uint64(3), candidates[0].ID)
	assert.Equal(t, uint64(4), candidates[1].ID)
	assert.Equal(t, uint64(2), candidates[2].ID)
}

func TestNextCandidatesLimit(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	now := time.Now().UTC()

	seedProfile(t, appCtx.DB, 1, "male", []string{"female"}, now)
	for id := uint64(2); id <= 8; id++ {
		seedProfile(t, appCtx.DB, id, "female", []string{"male"}, now.Add(-time.Duration(id)*time.Minute))
	}

	candidates, err := svc.NextCandidates(ctx, 1, 3)
	require.NoError(t, err)
	assert.Len(t, candidates, 3)
}

func TestNextCandidatesRequiresCompleteProfile(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	p := seedProfile(t, appCtx.DB, 1, "male", []string{"female"}, time.Now().UTC())
	require.NoError(t, appCtx.DB.Model(&p).Update("bio", "").Error)

	_, err := svc.NextCandidates(ctx, 1, 10)
	assert.ErrorIs(t, err, svcErr.ErrProfileIncomplete)
}

func TestNextCandidatesUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.NextCandidates(ctx, 42, 10)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestRecordDecisionSelfReference(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedStandardTrio(t, appCtx.DB)

	_, err := svc.RecordDecision(ctx, 1, 1, db.DecisionLike)
	assert.ErrorIs(t, err, svcErr.ErrSelfReference)

	var count int64
	appCtx.DB.Model(&db.Decision{}).Count(&count)
	assert.Zero(t, count, "self-reference must fail before any write")
}

func TestRecordDecisionIncompleteProfile(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedStandardTrio(t, appCtx.DB)
	require.NoError(t, appCtx.DB.Model(&db.Profile{ID: 1}).Update("bio", "").Error)

	// likes are gated on completeness
	_, err := svc.RecordDecision(ctx, 1, 2, db.DecisionLike)
	assert.ErrorIs(t, err, svcErr.ErrProfileIncomplete)

	// passes are always allowed
	result, err := svc.RecordDecision(ctx, 1, 2, db.DecisionPass)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeNoMatch, result.Outcome)
}

func TestRecordDecisionUnknownTarget(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedStandardTrio(t, appCtx.DB)

	_, err := svc.RecordDecision(ctx, 1, 99, db.DecisionLike)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestRecordDecisionIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedStandardTrio(t, appCtx.DB)

	first, err := svc.RecordDecision(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeNoMatch, first.Outcome)

	// double-click: same decision, same outcome, no duplicate row
	second, err := svc.RecordDecision(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	assert.Equal(t, first.Decision.ActorID, second.Decision.ActorID)
	assert.Equal(t, first.Decision.TargetID, second.Decision.TargetID)
	assert.Equal(t, first.Decision.Kind, second.Decision.Kind)
	assert.True(t, first.Decision.CreatedAt.Equal(second.Decision.CreatedAt))
	assert.Equal(t, matching.OutcomeNoMatch, second.Outcome)

	var count int64
	appCtx.DB.Model(&db.Decision{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestMutualLikeScenario(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedStandardTrio(t, appCtx.DB)

	// A likes B → no match yet
	r1, err := svc.RecordDecision(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeNoMatch, r1.Outcome)

	// B likes A → match created
	r2, err := svc.RecordDecision(ctx, 2, 1, db.DecisionLike)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeMatchCreated, r2.Outcome)
	assert.NotZero(t, r2.MatchID)

	// a replayed like reports the existing match, no duplicate
	r3, err := svc.RecordDecision(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeAlreadyMatched, r3.Outcome)
	assert.Equal(t, r2.MatchID, r3.MatchID)

	// B no longer appears in A's candidates
	candidates, err := svc.NextCandidates(ctx, 1, 10)
	require.NoError(t, err)
	for _, c := range candidates {
		assert.NotEqual(t, uint64(2), c.ID)
	}

	// exactly one match with B
	matches, err := svc.ListMatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, uint64(2), matches[0].Other(1))

	// both participants got exactly one match notification
	var notifCount int64
	appCtx.DB.Model(&db.Notification{}).Where("kind = ?", events.KindMatchCreated).Count(&notifCount)
	assert.Equal(t, int64(2), notifCount)

	// an independent pair creates a distinct match
	r4, err := svc.RecordDecision(ctx, 3, 1, db.DecisionLike)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeNoMatch, r4.Outcome)

	r5, err := svc.RecordDecision(ctx, 1, 3, db.DecisionLike)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeMatchCreated, r5.Outcome)
	assert.NotEqual(t, r2.MatchID, r5.MatchID)
}

func TestPassPreventsMatch(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedStandardTrio(t, appCtx.DB)

	_, err := svc.RecordDecision(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)

	r, err := svc.RecordDecision(ctx, 2, 1, db.DecisionPass)
	require.NoError(t, err)
	assert.Equal(t, matching.OutcomeNoMatch, r.Outcome)

	var count int64
	appCtx.DB.Model(&db.Match{}).Count(&count)
	assert.Zero(t, count)

	// a pass excludes too: A never resurfaces for B
	candidates, err := svc.NextCandidates(ctx, 2, 10)
	require.NoError(t, err)
	for _, c := range candidates {
		assert.NotEqual(t, uint64(1), c.ID)
	}
}

func TestConcurrentReciprocalLikesCreateExactlyOneMatch(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedStandardTrio(t, appCtx.DB)

	var wg sync.WaitGroup
	results := make([]matching.DecisionResult, 2)
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], errs[0] = svc.RecordDecision(ctx, 1, 2, db.DecisionLike)
	}()
	go func() {
		defer wg.Done()
		results[1], errs[1] = svc.RecordDecision(ctx, 2, 1, db.DecisionLike)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// exactly one match row for the pair, whatever the interleaving
	var matches []db.Match
	require.NoError(t, appCtx.DB.Find(&matches).Error)
	require.Len(t, matches, 1)
	assert.Equal(t, uint64(1), matches[0].UserAID)
	assert.Equal(t, uint64(2), matches[0].UserBID)

	// never both no_match: at least one call observed the reciprocal like
	resolved := 0
	for _, r := range results {
		if r.Outcome == matching.OutcomeMatchCreated || r.Outcome == matching.OutcomeAlreadyMatched {
			resolved++
			assert.Equal(t, matches[0].ID, r.MatchID)
		}
	}
	assert.GreaterOrEqual(t, resolved, 1)
}

func TestUnmatchIsTerminalAndKeepsExclusion(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedStandardTrio(t, appCtx.DB)

	_, err := svc.RecordDecision(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	r, err := svc.RecordDecision(ctx, 2, 1, db.DecisionLike)
	require.NoError(t, err)
	require.Equal(t, matching.OutcomeMatchCreated, r.Outcome)

	m, err := svc.Unmatch(ctx, r.MatchID, 1)
	require.NoError(t, err)
	assert.Equal(t, db.MatchUnmatched, m.Status)

	matches, err := svc.ListMatches(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// the pair stays mutually excluded
	candidates, err := svc.NextCandidates(ctx, 1, 10)
	require.NoError(t, err)
	for _, c := range candidates {
		assert.NotEqual(t, uint64(2), c.ID)
	}
}

func TestReconcileResolvesMissedMatches(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)
	seedStandardTrio(t, appCtx.DB)

	// simulate a crash between the decision write and the resolver:
	// both likes are durable, no match row exists
	decisionRepo := repository.NewDecisionRepository(appCtx.DB)
	_, _, err := decisionRepo.Record(ctx, 1, 2, db.DecisionLike)
	require.NoError(t, err)
	_, _, err = decisionRepo.Record(ctx, 2, 1, db.DecisionLike)
	require.NoError(t, err)

	created, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	matches, err := svc.ListMatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	// the sweep is idempotent
	created, err = svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
}

package exercise

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/walknrun/walkrun-backend/pkg/errors"
	"github.com/walknrun/walkrun-backend/pkg/rtdb"
)

const (
	todayKey     = "20260315"
	yesterdayKey = "20260314"
)

func seedSample(t *testing.T, store *rtdb.MemoryStore, uid, day, timeKey string, sample Sample) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), doingPath(uid)+"/"+day+"/"+timeKey, sample))
}

func loadProfileMap(t *testing.T, store *rtdb.MemoryStore, uid string) map[string]any {
	t.Helper()
	raw, err := store.Get(context.Background(), "users/"+uid)
	require.NoError(t, err)
	require.NotNil(t, raw)
	record := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &record))
	return record
}

func TestFinishUnknownUser(t *testing.T) {
	fx := newExerciseFixture(t)
	_, err := fx.svc.Finish(context.Background(), "uid-1")
	requireCode(t, err, pkgerrors.CodeUserNotFound)
}

func TestFinishEmptyLogLeavesProfileUntouched(t *testing.T) {
	fx := newExerciseFixture(t)
	profile := fullProfile()
	profile["doing"] = true
	profile["dailyPoints"] = 100.0
	profile["cashes"] = 10.0
	fx.seedProfile(t, "uid-1", profile)

	got, err := fx.svc.Finish(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Equal(t, Result{}, got)

	after := loadProfileMap(t, fx.store, "uid-1")
	require.Equal(t, 100.0, after["dailyPoints"])
	require.Equal(t, 10.0, after["cashes"])
	require.Equal(t, true, after["doing"], "an empty log does not close the session")
}

func TestFinishSettlesTodayBucket(t *testing.T) {
	fx := newExerciseFixture(t)
	ctx := context.Background()
	profile := fullProfile()
	profile["doing"] = true
	profile["dailyPoints"] = 100.0
	profile["monthPoints"] = 50.0
	profile["cashes"] = 10.0
	fx.seedProfile(t, "uid-1", profile)

	seedSample(t, fx.store, "uid-1", todayKey, "100000000", Sample{Velocity: 6, Points: 1.5, Kcal: 100, Movetime: 600})
	seedSample(t, fx.store, "uid-1", todayKey, "101000000", Sample{Velocity: 8, Points: 2, Kcal: 200, Movetime: 600})

	got, err := fx.svc.Finish(ctx, "uid-1")
	require.NoError(t, err)
	require.Equal(t, Result{Velocity: 7, Points: 3.5, Kcal: 300}, got)

	after := loadProfileMap(t, fx.store, "uid-1")
	require.Equal(t, 103.5, after["dailyPoints"])
	// The monthly balance absorbs the pre-roll daily balance on top of the
	// overflow carry. Documented store behavior, overstated though it is.
	require.Equal(t, 150.0, after["monthPoints"])
	require.Equal(t, 10.0, after["cashes"], "today's bucket never cashes out")
	require.Equal(t, false, after["doing"])

	// Samples moved from doing to done.
	doing, err := fx.store.GetSubtree(ctx, doingPath("uid-1"))
	require.NoError(t, err)
	require.Empty(t, doing)
	done, err := fx.store.GetSubtree(ctx, donePath("uid-1")+"/"+todayKey)
	require.NoError(t, err)
	require.Len(t, done, 2)
}

func TestFinishCashesOutPastBucket(t *testing.T) {
	fx := newExerciseFixture(t)
	profile := fullProfile()
	profile["doing"] = true
	profile["cashes"] = 3.0
	fx.seedProfile(t, "uid-1", profile)

	seedSample(t, fx.store, "uid-1", yesterdayKey, "220000000", Sample{Velocity: 6, Points: 40, Kcal: 100, Movetime: 600})

	got, err := fx.svc.Finish(context.Background(), "uid-1")
	require.NoError(t, err)
	require.Equal(t, 40.0, got.Points)

	after := loadProfileMap(t, fx.store, "uid-1")
	// 40 daily points floor-divided by 20 yields 2 cash.
	require.Equal(t, 5.0, after["cashes"])
	require.Equal(t, 0.0, after["dailyPoints"], "cash-out resets the daily balance")
}

func TestFinishOverflowBucket(t *testing.T) {
	fx := newExerciseFixture(t)
	profile := fullProfile()
	profile["doing"] = true
	fx.seedProfile(t, "uid-1", profile)

	seedSample(t, fx.store, "uid-1", yesterdayKey, "220000000", Sample{Velocity: 9, Points: 12000, Kcal: 500, Movetime: 600})

	_, err := fx.svc.Finish(context.Background(), "uid-1")
	require.NoError(t, err)

	after := loadProfileMap(t, fx.store, "uid-1")
	// Overflow above the 10000 cap carries into the month, and an
	// over-cap day cashes out at the flat 500.
	require.Equal(t, 2000.0, after["monthPoints"])
	require.Equal(t, 500.0, after["cashes"])
	require.Equal(t, 0.0, after["dailyPoints"])
}

func TestFinishMultipleBucketsReturnsLastInKeyOrder(t *testing.T) {
	fx := newExerciseFixture(t)
	ctx := context.Background()
	profile := fullProfile()
	profile["doing"] = true
	fx.seedProfile(t, "uid-1", profile)

	seedSample(t, fx.store, "uid-1", yesterdayKey, "220000000", Sample{Velocity: 5, Points: 30, Kcal: 80, Movetime: 600})
	seedSample(t, fx.store, "uid-1", todayKey, "100000000", Sample{Velocity: 8, Points: 2, Kcal: 200, Movetime: 600})

	got, err := fx.svc.Finish(ctx, "uid-1")
	require.NoError(t, err)
	require.Equal(t, Result{Velocity: 8, Points: 2, Kcal: 200}, got, "response carries only the last bucket")

	after := loadProfileMap(t, fx.store, "uid-1")
	// Yesterday's 30 points cash out before today's bucket rolls in.
	require.Equal(t, 1.0, after["cashes"])
	require.Equal(t, 2.0, after["dailyPoints"])
	// First roll: month += 0 + 0. Cash-out resets daily to 0. Second roll:
	// month += 0 + 0. Documented formula, see rollPoints.
	require.Equal(t, 0.0, after["monthPoints"])

	doing, err := fx.store.GetSubtree(ctx, doingPath("uid-1"))
	require.NoError(t, err)
	require.Empty(t, doing)

	done, err := fx.store.GetSubtree(ctx, donePath("uid-1"))
	require.NoError(t, err)
	require.Len(t, done, 2)
}

func TestFinishArchiveLastWriteWins(t *testing.T) {
	fx := newExerciseFixture(t)
	ctx := context.Background()
	profile := fullProfile()
	profile["doing"] = true
	fx.seedProfile(t, "uid-1", profile)

	stale := Sample{Velocity: 1, Points: 1, Kcal: 1, Movetime: 1}
	require.NoError(t, fx.store.Set(ctx, donePath("uid-1")+"/"+todayKey+"/100000000", stale))

	fresh := Sample{Velocity: 8, Points: 2, Kcal: 200, Movetime: 600}
	seedSample(t, fx.store, "uid-1", todayKey, "100000000", fresh)

	_, err := fx.svc.Finish(ctx, "uid-1")
	require.NoError(t, err)

	raw, err := fx.store.Get(ctx, donePath("uid-1")+"/"+todayKey+"/100000000")
	require.NoError(t, err)
	var got Sample
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, fresh, got)
}

func TestFinishIsResumable(t *testing.T) {
	fx := newExerciseFixture(t)
	ctx := context.Background()
	profile := fullProfile()
	profile["doing"] = true
	fx.seedProfile(t, "uid-1", profile)

	seedSample(t, fx.store, "uid-1", todayKey, "100000000", Sample{Velocity: 8, Points: 2, Kcal: 200, Movetime: 600})

	_, err := fx.svc.Finish(ctx, "uid-1")
	require.NoError(t, err)

	// A second finish sees an empty log and changes nothing.
	got, err := fx.svc.Finish(ctx, "uid-1")
	require.NoError(t, err)
	require.Equal(t, Result{}, got)

	after := loadProfileMap(t, fx.store, "uid-1")
	require.Equal(t, 2.0, after["dailyPoints"])
}

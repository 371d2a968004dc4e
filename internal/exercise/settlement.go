package exercise

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/walknrun/walkrun-backend/internal/users"
	pkgerrors "github.com/walknrun/walkrun-backend/pkg/errors"
)

const (
	dailyPointsCap  = 10000
	overflowCash    = 500
	pointsPerCash   = 20
	settlementDaily = "dailyPoints"
	settlementMonth = "monthPoints"
	settlementCash  = "cashes"
)

// Finish settles the caller's in-progress log. Every day bucket in the log
// is aggregated, rolled into the daily and monthly point balances, cashed
// out when the bucket is not today's, and archived from doing to done. The
// returned result is the aggregate of the last bucket in key order.
//
// An empty log short-circuits with zeroes and leaves the profile untouched,
// including the doing flag. Re-invoking Finish on a partially settled log
// just processes the remaining buckets.
func (s *service) Finish(ctx context.Context, uid string) (Result, error) {
	started := s.now()
	result, err := s.finish(ctx, uid, started)
	if err != nil {
		s.metrics.IncSettlement("failed")
		return Result{}, err
	}
	s.metrics.ObserveSettlementDuration(s.now().Sub(started))
	return result, nil
}

func (s *service) finish(ctx context.Context, uid string, now time.Time) (Result, error) {
	profile, err := users.LoadProfile(ctx, s.store, uid)
	if err != nil {
		return Result{}, classifyStoreError(err, "load profile")
	}
	if profile == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeUserNotFound, "user profile not found")
	}

	log, err := s.store.GetSubtree(ctx, doingPath(uid))
	if err != nil {
		return Result{}, classifyStoreError(err, "load session log")
	}
	buckets := groupByDay(log)
	if len(buckets) == 0 {
		s.metrics.IncSettlement("empty")
		return Result{}, nil
	}

	today := dayKey(now)
	var last Result
	for _, day := range sortedKeys(buckets) {
		aggregate := aggregateBucket(buckets[day])
		if err := s.rollPoints(ctx, uid, aggregate.Points); err != nil {
			return Result{}, err
		}
		if day != today {
			if err := s.cashOutDaily(ctx, uid); err != nil {
				return Result{}, err
			}
		}
		if err := s.archiveBucket(ctx, uid, day, buckets[day]); err != nil {
			return Result{}, err
		}
		last = aggregate
	}

	err = s.store.Transact(ctx, users.ProfilePath(uid), func(current json.RawMessage) (any, error) {
		record, err := decodeRecord(current)
		if err != nil {
			return nil, err
		}
		record["doing"] = false
		return record, nil
	})
	if err != nil {
		return Result{}, classifyStoreError(err, "close session")
	}

	s.metrics.IncSettlement("settled")
	s.log.Info(s.log.WithUID(ctx, uid), "session settled")
	return last, nil
}

// rollPoints adds a bucket's points to the daily balance and feeds the
// monthly balance. The monthly formula adds the pre-update daily balance
// plus any overflow above the daily cap; it over-counts relative to a plain
// sum but stored balances depend on it, so it stays.
func (s *service) rollPoints(ctx context.Context, uid string, bucketPoints float64) error {
	err := s.store.Transact(ctx, users.ProfilePath(uid), func(current json.RawMessage) (any, error) {
		record, err := decodeRecord(current)
		if err != nil {
			return nil, err
		}
		dailyBefore := recordNumber(record, settlementDaily)
		record[settlementDaily] = dailyBefore + bucketPoints
		record[settlementMonth] = recordNumber(record, settlementMonth) + dailyBefore + math.Max(0, bucketPoints-dailyPointsCap)
		return record, nil
	})
	if err != nil {
		return classifyStoreError(err, "roll points")
	}
	return nil
}

// cashOutDaily converts the accumulated daily balance into cash and resets
// it. Runs only for buckets dated before today.
func (s *service) cashOutDaily(ctx context.Context, uid string) error {
	err := s.store.Transact(ctx, users.ProfilePath(uid), func(current json.RawMessage) (any, error) {
		record, err := decodeRecord(current)
		if err != nil {
			return nil, err
		}
		daily := recordNumber(record, settlementDaily)
		cash := recordNumber(record, settlementCash)
		if daily > dailyPointsCap {
			cash += overflowCash
		} else {
			cash += math.Floor(daily / pointsPerCash)
		}
		record[settlementCash] = cash
		record[settlementDaily] = float64(0)
		return record, nil
	})
	if err != nil {
		return classifyStoreError(err, "convert daily points to cash")
	}
	return nil
}

// archiveBucket moves one day bucket from doing to done, last write wins on
// overlapping time keys, then drops the doing bucket.
func (s *service) archiveBucket(ctx context.Context, uid, day string, samples map[string]Sample) error {
	for _, key := range sortedKeys(samples) {
		path := donePath(uid) + "/" + day + "/" + key
		if err := s.store.Set(ctx, path, samples[key]); err != nil {
			return classifyStoreError(err, "archive sample")
		}
	}
	if err := s.store.Delete(ctx, doingPath(uid)+"/"+day); err != nil {
		return classifyStoreError(err, "clear session bucket")
	}
	return nil
}

func groupByDay(log map[string]json.RawMessage) map[string]map[string]Sample {
	buckets := make(map[string]map[string]Sample)
	for key, raw := range log {
		day, timePart, ok := splitLogKey(key)
		if !ok {
			continue
		}
		var sample Sample
		if err := json.Unmarshal(raw, &sample); err != nil {
			continue
		}
		if buckets[day] == nil {
			buckets[day] = make(map[string]Sample)
		}
		buckets[day][timePart] = sample
	}
	return buckets
}

func aggregateBucket(samples map[string]Sample) Result {
	if len(samples) == 0 {
		return Result{}
	}
	var totalPoints, totalKcal, totalVelocity float64
	for _, sample := range samples {
		totalPoints += sample.Points
		totalKcal += sample.Kcal
		totalVelocity += sample.Velocity
	}
	return Result{
		Velocity: totalVelocity / float64(len(samples)),
		Points:   totalPoints,
		Kcal:     totalKcal,
	}
}

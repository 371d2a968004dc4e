// Package exercise records movement samples into a per-user activity log and
// settles finished sessions into points and cash.
package exercise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/walknrun/walkrun-backend/internal/points"
	"github.com/walknrun/walkrun-backend/internal/users"
	pkgerrors "github.com/walknrun/walkrun-backend/pkg/errors"
	"github.com/walknrun/walkrun-backend/pkg/logger"
	"github.com/walknrun/walkrun-backend/pkg/metrics"
	"github.com/walknrun/walkrun-backend/pkg/rtdb"
)

const (
	dayKeyLayout  = "20060102"
	timeKeyLayout = "150405"
)

// Sample is one stored movement measurement, keyed in the log by its
// day bucket and millisecond time key.
type Sample struct {
	Velocity float64 `json:"velocity"`
	Points   float64 `json:"points"`
	Kcal     float64 `json:"kcal"`
	Movetime float64 `json:"movetime"`
}

// Result is the per-sample or per-session aggregate returned to clients.
type Result struct {
	Velocity float64 `json:"velocity"`
	Points   float64 `json:"points"`
	Kcal     float64 `json:"kcal"`
}

// TraceInput is one incoming movement sample. Date is the client timestamp
// in epoch milliseconds; Movetime is seconds spent moving since the last
// sample.
type TraceInput struct {
	UID      string
	Velocity float64
	Date     int64
	Movetime float64
}

// Service defines the behavior needed by the exercise controller.
type Service interface {
	Trace(ctx context.Context, input TraceInput) (Result, error)
	Start(ctx context.Context, uid string) error
	Finish(ctx context.Context, uid string) (Result, error)
	DayRecord(ctx context.Context, uid string) (map[string]Sample, error)
	DailyPoints(ctx context.Context, uid string) (float64, error)
}

type service struct {
	store   rtdb.Store
	policy  points.Policy
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// ServiceParams bundles the dependencies required to build the exercise
// service.
type ServiceParams struct {
	Store   rtdb.Store
	Policy  points.Policy
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// NewService constructs the activity service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if params.Policy == nil {
		return nil, fmt.Errorf("points policy is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		store:   params.Store,
		policy:  params.Policy,
		metrics: params.Metrics,
		log:     params.Logger,
		now:     time.Now,
	}, nil
}

// Trace validates the caller's profile, derives the sample's points and
// kcal, and stores it under the in-progress log. The write is first-write
// wins per exact time key; a retransmitted sample is acknowledged with the
// same computed result without touching the stored one.
func (s *service) Trace(ctx context.Context, input TraceInput) (Result, error) {
	profile, err := s.loadGuardedProfile(ctx, input.UID)
	if err != nil {
		return Result{}, err
	}

	at := time.UnixMilli(input.Date)
	kcal := points.CalcKcal(input.Velocity, float64(profile.Weight), input.Movetime)
	earned := points.CalcPoints(input.Velocity, s.policy, profile.Birth, profile.Sex, s.now())
	sample := Sample{
		Velocity: input.Velocity,
		Points:   earned,
		Kcal:     kcal,
		Movetime: input.Movetime,
	}

	path := doingPath(input.UID) + "/" + dayKey(at) + "/" + timeKey(at)
	stored := false
	err = s.store.Transact(ctx, path, func(current json.RawMessage) (any, error) {
		if current != nil {
			return nil, nil
		}
		stored = true
		return sample, nil
	})
	if err != nil {
		return Result{}, classifyStoreError(err, "store activity sample")
	}
	if stored {
		s.metrics.IncSampleRecorded("stored")
	} else {
		s.metrics.IncSampleRecorded("duplicate")
	}
	return Result{Velocity: input.Velocity, Points: earned, Kcal: kcal}, nil
}

// Start opens an activity session by flipping the profile's doing flag.
func (s *service) Start(ctx context.Context, uid string) error {
	profile, err := users.LoadProfile(ctx, s.store, uid)
	if err != nil {
		return classifyStoreError(err, "load profile")
	}
	if profile == nil {
		return pkgerrors.New(pkgerrors.CodeUserNotFound, "user profile not found")
	}

	err = s.store.Transact(ctx, users.ProfilePath(uid), func(current json.RawMessage) (any, error) {
		record, err := decodeRecord(current)
		if err != nil {
			return nil, err
		}
		record["doing"] = true
		return record, nil
	})
	if err != nil {
		return classifyStoreError(err, "open session")
	}
	s.log.Info(s.log.WithUID(ctx, uid), "session started")
	return nil
}

// DayRecord returns today's archived samples keyed by time key. An empty map
// means nothing was recorded today.
func (s *service) DayRecord(ctx context.Context, uid string) (map[string]Sample, error) {
	subtree, err := s.store.GetSubtree(ctx, donePath(uid)+"/"+dayKey(s.now()))
	if err != nil {
		return nil, classifyStoreError(err, "load day record")
	}
	record := make(map[string]Sample, len(subtree))
	for key, raw := range subtree {
		var sample Sample
		if err := json.Unmarshal(raw, &sample); err != nil {
			continue
		}
		record[key] = sample
	}
	return record, nil
}

// DailyPoints returns the points accrued today.
func (s *service) DailyPoints(ctx context.Context, uid string) (float64, error) {
	profile, err := users.LoadProfile(ctx, s.store, uid)
	if err != nil {
		return 0, classifyStoreError(err, "load daily points")
	}
	if profile == nil {
		return 0, pkgerrors.New(pkgerrors.CodeUserNotFound, "user profile not found")
	}
	return profile.DailyPoints, nil
}

func (s *service) loadGuardedProfile(ctx context.Context, uid string) (*users.Profile, error) {
	raw, err := s.store.Get(ctx, users.ProfilePath(uid))
	if err != nil {
		return nil, classifyStoreError(err, "load profile")
	}
	if raw == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoUser, "user is not registered")
	}
	var profile users.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNoUserInfo, err, "decode profile")
	}
	if profile.Birth == "" && profile.Sex == "" && profile.Weight == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoUserInfo, "user profile is missing")
	}
	if profile.Birth == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNoUserBirth, "user birth date is missing")
	}
	if profile.Sex == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNoUserSex, "user sex is missing")
	}
	if profile.Weight == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoUserWeight, "user weight is missing")
	}
	return &profile, nil
}

func doingPath(uid string) string {
	return "exercise/" + uid + "/doing"
}

func donePath(uid string) string {
	return "exercise/" + uid + "/done"
}

func dayKey(at time.Time) string {
	return at.Format(dayKeyLayout)
}

func timeKey(at time.Time) string {
	return fmt.Sprintf("%s%03d", at.Format(timeKeyLayout), at.UnixMilli()%1000)
}

func decodeRecord(raw json.RawMessage) (map[string]any, error) {
	record := map[string]any{}
	if raw == nil {
		return record, nil
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func recordNumber(record map[string]any, key string) float64 {
	value, _ := record[key].(float64)
	return value
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func splitLogKey(key string) (day, timePart string, ok bool) {
	day, timePart, ok = strings.Cut(key, "/")
	if !ok || day == "" || timePart == "" || strings.Contains(timePart, "/") {
		return "", "", false
	}
	return day, timePart, true
}

func classifyStoreError(err error, message string) error {
	switch {
	case errors.Is(err, rtdb.ErrPermissionDenied):
		return pkgerrors.Wrap(pkgerrors.CodePermissionDenied, err, message)
	case errors.Is(err, rtdb.ErrConflictExhausted):
		return pkgerrors.Wrap(pkgerrors.CodeWriteConflict, err, message)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
	}
}

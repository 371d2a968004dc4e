package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/walknrun/walkrun-backend/internal/points"
	pkgerrors "github.com/walknrun/walkrun-backend/pkg/errors"
	"github.com/walknrun/walkrun-backend/pkg/identity"
	"github.com/walknrun/walkrun-backend/pkg/logger"
	"github.com/walknrun/walkrun-backend/pkg/rtdb"
)

// ProfileView is the client projection of a stored profile. The point
// thresholds for the caller's age band and sex ride along so clients can
// show progress toward the next tier.
type ProfileView struct {
	Name        string  `json:"name,omitempty"`
	Email       string  `json:"email"`
	Birth       string  `json:"birth"`
	Sex         string  `json:"sex"`
	Weight      float64 `json:"weight"`
	DailyPoints float64 `json:"dailyPoints"`
	MonthPoints float64 `json:"monthPoints"`
	Cashes      float64 `json:"cashes"`
	Doing       bool    `json:"doing"`
	MinGetPoint float64 `json:"minGetPoint"`
	MaxGetPoint float64 `json:"maxGetPoint"`
}

// Service defines the behavior needed by the users controller.
type Service interface {
	Info(ctx context.Context, uid string) (ProfileView, error)
	Cash(ctx context.Context, uid string) (float64, error)
	Doing(ctx context.Context, uid string) (bool, error)
	Delete(ctx context.Context, uid string) error
}

type service struct {
	store    rtdb.Store
	identity identity.Provider
	policy   points.Policy
	log      *logger.Logger
	now      func() time.Time
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Store    rtdb.Store
	Identity identity.Provider
	Policy   points.Policy
	Logger   *logger.Logger
}

// NewService constructs the profile service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if params.Identity == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if params.Policy == nil {
		return nil, fmt.Errorf("points policy is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		store:    params.Store,
		identity: params.Identity,
		policy:   params.Policy,
		log:      params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Info(ctx context.Context, uid string) (ProfileView, error) {
	profile, err := LoadProfile(ctx, s.store, uid)
	if err != nil {
		return ProfileView{}, classifyStoreError(err, "load profile")
	}
	if profile == nil {
		return ProfileView{}, pkgerrors.New(pkgerrors.CodeUserNotFound, "user profile not found")
	}

	view := ProfileView{
		Name:        profile.Name,
		Email:       profile.Email,
		Birth:       profile.Birth,
		Sex:         profile.Sex,
		Weight:      float64(profile.Weight),
		DailyPoints: profile.DailyPoints,
		MonthPoints: profile.MonthPoints,
		Cashes:      profile.Cashes,
		Doing:       profile.Doing,
	}
	if th, ok := s.policy.Lookup(points.BandFor(profile.Birth, s.now()), profile.Sex); ok {
		view.MinGetPoint = th.Min
		view.MaxGetPoint = th.Max
	}
	return view, nil
}

func (s *service) Cash(ctx context.Context, uid string) (float64, error) {
	profile, err := LoadProfile(ctx, s.store, uid)
	if err != nil {
		return 0, classifyStoreError(err, "load cash balance")
	}
	if profile == nil {
		return 0, pkgerrors.New(pkgerrors.CodeUserNotFound, "user profile not found")
	}
	return profile.Cashes, nil
}

func (s *service) Doing(ctx context.Context, uid string) (bool, error) {
	profile, err := LoadProfile(ctx, s.store, uid)
	if err != nil {
		return false, classifyStoreError(err, "load session flag")
	}
	if profile == nil {
		return false, pkgerrors.New(pkgerrors.CodeUserNotFound, "user profile not found")
	}
	return profile.Doing, nil
}

// Delete tears down an account: profile record, exercise log, then the
// identity-provider credential. There is no compensating rollback; a failure
// partway leaves the remaining steps undone and surfaces the error.
func (s *service) Delete(ctx context.Context, uid string) error {
	profile, err := LoadProfile(ctx, s.store, uid)
	if err != nil {
		return classifyStoreError(err, "load profile")
	}
	if profile == nil {
		return pkgerrors.New(pkgerrors.CodeUserNotFound, "user profile not found")
	}
	if profile.Doing {
		return pkgerrors.New(pkgerrors.CodeDoingExercise, "an activity session is still open")
	}

	if err := s.store.Delete(ctx, ProfilePath(uid)); err != nil {
		return classifyStoreError(err, "delete profile")
	}
	if err := s.store.Delete(ctx, "exercise/"+uid); err != nil {
		return classifyStoreError(err, "delete exercise log")
	}
	if err := s.identity.DeleteAccount(ctx, uid); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete account credential")
	}
	s.log.Info(s.log.WithUID(ctx, uid), "account deleted")
	return nil
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

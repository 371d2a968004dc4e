package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/walknrun/walkrun-backend/api/responses"
	"github.com/walknrun/walkrun-backend/api/validators"
	"github.com/walknrun/walkrun-backend/internal/exercise"
	pkgerrors "github.com/walknrun/walkrun-backend/pkg/errors"
	"github.com/walknrun/walkrun-backend/pkg/logger"
)

type traceRequest struct {
	UID      string  `json:"uid" validate:"required"`
	Velocity float64 `json:"velocity" validate:"gte=0"`
	Date     int64   `json:"date" validate:"required,gt=0"`
	Movetime float64 `json:"movetime" validate:"required,gt=0"`
}

type uidRequest struct {
	UID string `json:"uid" validate:"required"`
}

func uidParam(r *http.Request) (string, error) {
	uid := strings.TrimSpace(chi.URLParam(r, "uid"))
	if uid == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "uid is required")
	}
	return uid, nil
}

// ExerciseTrace records one movement sample and returns its computed result.
func ExerciseTrace(svc exercise.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exercise service unavailable"))
			return
		}

		var req traceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Trace(ctx, exercise.TraceInput{
			UID:      req.UID,
			Velocity: req.Velocity,
			Date:     req.Date,
			Movetime: req.Movetime,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "sample recorded", result)
	}
}

// ExerciseStart opens an activity session.
func ExerciseStart(svc exercise.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exercise service unavailable"))
			return
		}

		var req uidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Start(ctx, req.UID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "session started", nil)
	}
}

// ExerciseFinish settles the open session and returns the last bucket's
// aggregate.
func ExerciseFinish(svc exercise.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exercise service unavailable"))
			return
		}

		var req uidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Finish(ctx, req.UID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "session settled", result)
	}
}

// ExerciseInfo returns today's archived samples.
func ExerciseInfo(svc exercise.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exercise service unavailable"))
			return
		}

		uid, err := uidParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.DayRecord(ctx, uid)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if len(record) == 0 {
			responses.WriteSuccess(w, "no record today", nil)
			return
		}
		responses.WriteSuccess(w, "day record", record)
	}
}

// ExercisePoint returns the points accrued today.
func ExercisePoint(svc exercise.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "exercise service unavailable"))
			return
		}

		uid, err := uidParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		points, err := svc.DailyPoints(ctx, uid)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "daily points", map[string]float64{"dailyPoints": points})
	}
}

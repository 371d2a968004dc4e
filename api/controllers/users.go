package controllers

import (
	"net/http"

	"github.com/walknrun/walkrun-backend/api/responses"
	"github.com/walknrun/walkrun-backend/api/validators"
	"github.com/walknrun/walkrun-backend/internal/users"
	pkgerrors "github.com/walknrun/walkrun-backend/pkg/errors"
	"github.com/walknrun/walkrun-backend/pkg/logger"
)

// UserInfo returns the caller's profile projection with point thresholds.
func UserInfo(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		uid, err := uidParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := svc.Info(ctx, uid)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "user info", view)
	}
}

// UserCash returns the redeemed cash balance.
func UserCash(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		uid, err := uidParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cash, err := svc.Cash(ctx, uid)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "cash balance", map[string]float64{"cashes": cash})
	}
}

// UserDoing reports whether an activity session is open.
func UserDoing(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		uid, err := uidParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		doing, err := svc.Doing(ctx, uid)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "session flag", map[string]bool{"doing": doing})
	}
}

// UserDelete removes the profile, exercise log, and credential.
func UserDelete(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var req uidRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, req.UID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "user deleted", nil)
	}
}

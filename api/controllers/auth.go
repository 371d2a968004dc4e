package controllers

import (
	"net/http"

	"github.com/walknrun/walkrun-backend/api/responses"
	"github.com/walknrun/walkrun-backend/api/validators"
	"github.com/walknrun/walkrun-backend/internal/auth"
	pkgerrors "github.com/walknrun/walkrun-backend/pkg/errors"
	"github.com/walknrun/walkrun-backend/pkg/logger"
)

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Mode  string `json:"mode" validate:"required,oneof=signup reset"`
}

type verifyRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Mode       string `json:"mode" validate:"required,oneof=signup reset"`
	AuthNumber string `json:"authNumber" validate:"required,len=6,numeric"`
}

type resetRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthEmail sends a verification code for signup or password reset.
func AuthEmail(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req emailRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.RequestVerification(ctx, req.Email, auth.Mode(req.Mode)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "verification mail sent", nil)
	}
}

// AuthVerify checks a submitted code and consumes it.
func AuthVerify(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req verifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Verify(ctx, req.Email, auth.Mode(req.Mode), req.AuthNumber); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "verification confirmed", nil)
	}
}

// AuthReset sets a new password through the identity provider.
func AuthReset(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req resetRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.UpdatePassword(ctx, req.Email, req.Password); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, "password updated", nil)
	}
}

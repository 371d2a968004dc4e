package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/walknrun/walkrun-backend/internal/users"
	pkgerrors "github.com/walknrun/walkrun-backend/pkg/errors"
	"github.com/walknrun/walkrun-backend/pkg/types"
)

type testUsersService struct {
	infoFn   func(ctx context.Context, uid string) (users.ProfileView, error)
	cashFn   func(ctx context.Context, uid string) (float64, error)
	doingFn  func(ctx context.Context, uid string) (bool, error)
	deleteFn func(ctx context.Context, uid string) error
}

func (s *testUsersService) Info(ctx context.Context, uid string) (users.ProfileView, error) {
	if s.infoFn != nil {
		return s.infoFn(ctx, uid)
	}
	return users.ProfileView{}, nil
}

func (s *testUsersService) Cash(ctx context.Context, uid string) (float64, error) {
	if s.cashFn != nil {
		return s.cashFn(ctx, uid)
	}
	return 0, nil
}

func (s *testUsersService) Doing(ctx context.Context, uid string) (bool, error) {
	if s.doingFn != nil {
		return s.doingFn(ctx, uid)
	}
	return false, nil
}

func (s *testUsersService) Delete(ctx context.Context, uid string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, uid)
	}
	return nil
}

func TestUserInfoSuccess(t *testing.T) {
	svc := &testUsersService{
		infoFn: func(ctx context.Context, uid string) (users.ProfileView, error) {
			if uid != "uid-1" {
				t.Fatalf("unexpected uid %s", uid)
			}
			return users.ProfileView{Email: "walker@example.com", MinGetPoint: 4.8, MaxGetPoint: 8.5}, nil
		},
	}

	req := withUIDParam(httptest.NewRequest(http.MethodGet, "/users/info/uid-1", nil), "uid-1")
	resp := httptest.NewRecorder()
	UserInfo(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope types.APIResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["minGetPoint"] != 4.8 || data["maxGetPoint"] != 8.5 {
		t.Fatalf("unexpected thresholds in %v", data)
	}
}

func TestUserInfoNotFound(t *testing.T) {
	svc := &testUsersService{
		infoFn: func(ctx context.Context, uid string) (users.ProfileView, error) {
			return users.ProfileView{}, pkgerrors.New(pkgerrors.CodeUserNotFound, "user profile not found")
		},
	}

	req := withUIDParam(httptest.NewRequest(http.MethodGet, "/users/info/ghost", nil), "ghost")
	resp := httptest.NewRecorder()
	UserInfo(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestUserInfoMissingUID(t *testing.T) {
	req := withUIDParam(httptest.NewRequest(http.MethodGet, "/users/info/", nil), "")
	resp := httptest.NewRecorder()
	UserInfo(&testUsersService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUserCashAndDoing(t *testing.T) {
	svc := &testUsersService{
		cashFn: func(ctx context.Context, uid string) (float64, error) {
			return 123.0, nil
		},
		doingFn: func(ctx context.Context, uid string) (bool, error) {
			return true, nil
		},
	}

	req := withUIDParam(httptest.NewRequest(http.MethodGet, "/users/cash/uid-1", nil), "uid-1")
	resp := httptest.NewRecorder()
	UserCash(svc, testLogger())(resp, req)
	var envelope types.APIResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.(map[string]any)["cashes"] != 123.0 {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}

	req = withUIDParam(httptest.NewRequest(http.MethodGet, "/users/doing/uid-1", nil), "uid-1")
	resp = httptest.NewRecorder()
	UserDoing(svc, testLogger())(resp, req)
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.(map[string]any)["doing"] != true {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}
}

func TestUserDeleteRefusesOpenSession(t *testing.T) {
	svc := &testUsersService{
		deleteFn: func(ctx context.Context, uid string) error {
			return pkgerrors.New(pkgerrors.CodeDoingExercise, "an activity session is still open")
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/users/user", strings.NewReader(`{"uid":"uid-1"}`))
	resp := httptest.NewRecorder()
	UserDelete(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body types.APIErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != string(pkgerrors.CodeDoingExercise) {
		t.Fatalf("unexpected code %s", body.Error)
	}
}

func TestUserDeleteSuccess(t *testing.T) {
	called := false
	svc := &testUsersService{
		deleteFn: func(ctx context.Context, uid string) error {
			called = uid == "uid-1"
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/users/user", strings.NewReader(`{"uid":"uid-1"}`))
	resp := httptest.NewRecorder()
	UserDelete(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK || !called {
		t.Fatalf("delete failed: status %d", resp.Code)
	}
}

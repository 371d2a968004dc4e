package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/walknrun/walkrun-backend/pkg/errors"
	"github.com/walknrun/walkrun-backend/pkg/identity"
	"github.com/walknrun/walkrun-backend/pkg/logger"
	"github.com/walknrun/walkrun-backend/pkg/mailer"
	"github.com/walknrun/walkrun-backend/pkg/rtdb"
)

type captureMailer struct {
	sent []mailer.Message
	err  error
}

func (m *captureMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeIdentity struct {
	user        identity.User
	findErr     error
	setErr      error
	setPassword string
	setID       string
	deleted     []string
}

func (f *fakeIdentity) FindByEmail(ctx context.Context, email string) (identity.User, error) {
	if f.findErr != nil {
		return identity.User{}, f.findErr
	}
	return f.user, nil
}

func (f *fakeIdentity) SetPassword(ctx context.Context, id, password string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setID = id
	f.setPassword = password
	return nil
}

func (f *fakeIdentity) DeleteAccount(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type authFixture struct {
	svc      *service
	store    *rtdb.MemoryStore
	mail     *captureMailer
	identity *fakeIdentity
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := rtdb.NewMemoryStore()
	mail := &captureMailer{}
	provider := &fakeIdentity{user: identity.User{ID: "uid-1", Email: "walker@example.com"}}
	svc, err := NewService(ServiceParams{
		Store:    store,
		Identity: provider,
		Mailer:   mail,
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)

	typed := svc.(*service)
	typed.now = func() time.Time { return time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC) }
	typed.newCode = func() (string, error) { return "123456", nil }
	return &authFixture{svc: typed, store: store, mail: mail, identity: provider}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func registerUser(t *testing.T, store *rtdb.MemoryStore, uid, email string) {
	t.Helper()
	err := store.Set(context.Background(), "users/"+uid, map[string]any{
		"email":  email,
		"birth":  "1994-01-01",
		"sex":    "M",
		"weight": 70,
	})
	require.NoError(t, err)
}

func TestRequestVerificationSignup(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	err := fx.svc.RequestVerification(ctx, "new@example.com", ModeSignup)
	require.NoError(t, err)

	raw, err := fx.store.Get(ctx, recordPath(ModeSignup, "new@example.com"))
	require.NoError(t, err)
	require.NotNil(t, raw)
	require.Contains(t, string(raw), `"authNumber":"123456"`)

	require.Len(t, fx.mail.sent, 1)
	require.Equal(t, "new@example.com", fx.mail.sent[0].To)
	require.Contains(t, fx.mail.sent[0].Subject, "sign-up")
	require.Contains(t, fx.mail.sent[0].HTML, "123456")
}

func TestRequestVerificationSignupDuplicateEmail(t *testing.T) {
	fx := newAuthFixture(t)
	registerUser(t, fx.store, "uid-1", "walker@example.com")

	err := fx.svc.RequestVerification(context.Background(), "walker@example.com", ModeSignup)
	requireCode(t, err, pkgerrors.CodeDuplicateEmail)
	require.Empty(t, fx.mail.sent)
}

func TestRequestVerificationResetUnknownEmail(t *testing.T) {
	fx := newAuthFixture(t)

	err := fx.svc.RequestVerification(context.Background(), "nobody@example.com", ModeReset)
	requireCode(t, err, pkgerrors.CodeNoSignupEmail)
	require.Empty(t, fx.mail.sent)
}

func TestRequestVerificationResetStoresSeparateRecord(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	registerUser(t, fx.store, "uid-1", "walker@example.com")

	require.NoError(t, fx.svc.RequestVerification(ctx, "walker@example.com", ModeReset))

	raw, err := fx.store.Get(ctx, recordPath(ModeReset, "walker@example.com"))
	require.NoError(t, err)
	require.NotNil(t, raw)

	signupRaw, err := fx.store.Get(ctx, recordPath(ModeSignup, "walker@example.com"))
	require.NoError(t, err)
	require.Nil(t, signupRaw)

	require.Len(t, fx.mail.sent, 1)
	require.Contains(t, fx.mail.sent[0].Subject, "password reset")
}

func TestRequestVerificationOverwritesPendingCode(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.svc.RequestVerification(ctx, "new@example.com", ModeSignup))
	fx.svc.newCode = func() (string, error) { return "654321", nil }
	require.NoError(t, fx.svc.RequestVerification(ctx, "new@example.com", ModeSignup))

	raw, err := fx.store.Get(ctx, recordPath(ModeSignup, "new@example.com"))
	require.NoError(t, err)
	require.Contains(t, string(raw), `"authNumber":"654321"`)
	require.NotContains(t, string(raw), "123456")
}

func TestVerifyConsumesRecord(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.svc.RequestVerification(ctx, "new@example.com", ModeSignup))

	require.NoError(t, fx.svc.Verify(ctx, "new@example.com", ModeSignup, "123456"))

	err := fx.svc.Verify(ctx, "new@example.com", ModeSignup, "123456")
	requireCode(t, err, pkgerrors.CodeVerificationNotFound)
}

func TestVerifyFailureOrder(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	path := recordPath(ModeSignup, "new@example.com")

	err := fx.svc.Verify(ctx, "new@example.com", ModeSignup, "123456")
	requireCode(t, err, pkgerrors.CodeVerificationNotFound)

	require.NoError(t, fx.store.Set(ctx, path, map[string]any{"expiresAt": 99}))
	err = fx.svc.Verify(ctx, "new@example.com", ModeSignup, "123456")
	requireCode(t, err, pkgerrors.CodeMissingVerificationData)

	require.NoError(t, fx.store.Set(ctx, path, map[string]any{"authNumber": "123456"}))
	err = fx.svc.Verify(ctx, "new@example.com", ModeSignup, "123456")
	requireCode(t, err, pkgerrors.CodeMissingExpirationTime)

	expired := fx.svc.now().Add(-time.Second).UnixMilli()
	require.NoError(t, fx.store.Set(ctx, path, map[string]any{"authNumber": "123456", "expiresAt": expired}))
	err = fx.svc.Verify(ctx, "new@example.com", ModeSignup, "123456")
	requireCode(t, err, pkgerrors.CodeVerificationExpired)

	live := fx.svc.now().Add(time.Minute).UnixMilli()
	require.NoError(t, fx.store.Set(ctx, path, map[string]any{"authNumber": "123456", "expiresAt": live}))
	err = fx.svc.Verify(ctx, "new@example.com", ModeSignup, "999999")
	requireCode(t, err, pkgerrors.CodeInvalidAuthNumber)

	// A failed match must not consume the record.
	raw, err := fx.store.Get(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, raw)
}

func TestUpdatePasswordMirrorsProfile(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	registerUser(t, fx.store, "uid-1", "walker@example.com")

	require.NoError(t, fx.svc.UpdatePassword(ctx, "walker@example.com", "s3cret!"))

	require.Equal(t, "uid-1", fx.identity.setID)
	require.Equal(t, "s3cret!", fx.identity.setPassword)

	raw, err := fx.store.Get(ctx, "users/uid-1")
	require.NoError(t, err)
	require.Contains(t, string(raw), `"password":"s3cret!"`)
	require.Contains(t, string(raw), `"email":"walker@example.com"`)
}

func TestUpdatePasswordUnknownUser(t *testing.T) {
	fx := newAuthFixture(t)
	fx.identity.findErr = identity.ErrUserNotFound

	err := fx.svc.UpdatePassword(context.Background(), "nobody@example.com", "pw")
	requireCode(t, err, pkgerrors.CodeNoUser)
	require.Empty(t, fx.identity.setPassword)
}

func TestStoreErrorClassification(t *testing.T) {
	fx := newAuthFixture(t)
	fx.store.FailWith = rtdb.ErrPermissionDenied

	err := fx.svc.RequestVerification(context.Background(), "new@example.com", ModeSignup)
	requireCode(t, err, pkgerrors.CodePermissionDenied)

	fx.store.FailWith = rtdb.ErrConflictExhausted
	err = fx.svc.UpdatePassword(context.Background(), "walker@example.com", "pw")
	requireCode(t, err, pkgerrors.CodeWriteConflict)
}

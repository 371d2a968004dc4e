// Package auth implements email verification codes and password reset.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	pkgerrors "github.com/walknrun/walkrun-backend/pkg/errors"
	"github.com/walknrun/walkrun-backend/pkg/identity"
	"github.com/walknrun/walkrun-backend/pkg/logger"
	"github.com/walknrun/walkrun-backend/pkg/mailer"
	"github.com/walknrun/walkrun-backend/pkg/metrics"
	"github.com/walknrun/walkrun-backend/pkg/rtdb"
)

// Mode selects which verification flow a code belongs to. The two flows
// keep separate records so a signup code can never confirm a reset.
type Mode string

const (
	ModeSignup Mode = "signup"
	ModeReset  Mode = "reset"
)

const (
	verificationTTL = 5 * time.Minute
	codeDigits      = 6
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	RequestVerification(ctx context.Context, email string, mode Mode) error
	Verify(ctx context.Context, email string, mode Mode, authNumber string) error
	UpdatePassword(ctx context.Context, email, password string) error
}

type service struct {
	store    rtdb.Store
	identity identity.Provider
	mail     mailer.Sender
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
	newCode  func() (string, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Store    rtdb.Store
	Identity identity.Provider
	Mailer   mailer.Sender
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
}

// NewService constructs the verification service with the provided
// dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if params.Identity == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		store:    params.Store,
		identity: params.Identity,
		mail:     params.Mailer,
		metrics:  params.Metrics,
		log:      params.Logger,
		now:      time.Now,
		newCode:  randomCode,
	}, nil
}

type verificationRecord struct {
	AuthNumber string `json:"authNumber"`
	CreatedAt  int64  `json:"createdAt"`
	ExpiresAt  int64  `json:"expiresAt"`
}

func (s *service) RequestVerification(ctx context.Context, email string, mode Mode) error {
	registered, err := s.store.ExistsByField(ctx, "users", "email", email)
	if err != nil {
		return classifyStoreError(err, "check registered email")
	}
	if mode == ModeSignup && registered {
		return pkgerrors.New(pkgerrors.CodeDuplicateEmail, "email is already registered")
	}
	if mode == ModeReset && !registered {
		return pkgerrors.New(pkgerrors.CodeNoSignupEmail, "email is not registered")
	}

	code, err := s.newCode()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate auth number")
	}
	now := s.now()
	record := verificationRecord{
		AuthNumber: code,
		CreatedAt:  now.UnixMilli(),
		ExpiresAt:  now.Add(verificationTTL).UnixMilli(),
	}
	if err := s.store.Set(ctx, recordPath(mode, email), record); err != nil {
		return classifyStoreError(err, "store verification record")
	}

	if err := s.mail.Send(ctx, verificationMessage(email, mode, code)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "send verification mail")
	}
	s.metrics.IncVerificationMail(string(mode))
	s.log.Info(s.log.WithField(ctx, "mode", string(mode)), "verification mail sent")
	return nil
}

func (s *service) Verify(ctx context.Context, email string, mode Mode, authNumber string) error {
	path := recordPath(mode, email)
	raw, err := s.store.Get(ctx, path)
	if err != nil {
		return classifyStoreError(err, "load verification record")
	}
	if raw == nil {
		return pkgerrors.New(pkgerrors.CodeVerificationNotFound, "verification record not found")
	}

	var record verificationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeMissingVerificationData, err, "decode verification record")
	}
	if record.AuthNumber == "" {
		return pkgerrors.New(pkgerrors.CodeMissingVerificationData, "verification record has no auth number")
	}
	if record.ExpiresAt == 0 {
		return pkgerrors.New(pkgerrors.CodeMissingExpirationTime, "verification record has no expiry")
	}
	if s.now().UnixMilli() > record.ExpiresAt {
		return pkgerrors.New(pkgerrors.CodeVerificationExpired, "verification window has expired")
	}
	if subtle.ConstantTimeCompare([]byte(record.AuthNumber), []byte(authNumber)) != 1 {
		return pkgerrors.New(pkgerrors.CodeInvalidAuthNumber, "auth number does not match")
	}

	// Codes are single-use.
	if err := s.store.Delete(ctx, path); err != nil {
		return classifyStoreError(err, "consume verification record")
	}
	return nil
}

func (s *service) UpdatePassword(ctx context.Context, email, password string) error {
	user, err := s.identity.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return pkgerrors.New(pkgerrors.CodeNoUser, "user is not registered")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up account")
	}
	if err := s.identity.SetPassword(ctx, user.ID, password); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update account password")
	}

	// The profile record keeps a copy of the password field that the
	// mobile clients read back. Known security smell, kept for client
	// compatibility.
	err = s.store.Transact(ctx, "users/"+user.ID, func(current json.RawMessage) (any, error) {
		profile := map[string]any{}
		if current != nil {
			if err := json.Unmarshal(current, &profile); err != nil {
				return nil, err
			}
		}
		profile["password"] = password
		return profile, nil
	})
	if err != nil {
		return classifyStoreError(err, "mirror password into profile")
	}
	s.log.Info(s.log.WithUID(ctx, user.ID), "password updated")
	return nil
}

func recordPath(mode Mode, email string) string {
	bucket := "email_verifications"
	if mode == ModeReset {
		bucket = "password_reset"
	}
	return bucket + "/" + hashEmail(email)
}

func hashEmail(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

func randomCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}

func verificationMessage(email string, mode Mode, code string) mailer.Message {
	subject := "Walk & Run sign-up verification"
	action := "finish signing up"
	if mode == ModeReset {
		subject = "Walk & Run password reset"
		action = "reset your password"
	}
	var body strings.Builder
	body.WriteString("<html><body>")
	body.WriteString("<p>Enter the code below to " + action + ".</p>")
	body.WriteString("<h2>" + code + "</h2>")
	body.WriteString("<p>This code expires in 5 minutes.</p>")
	body.WriteString("</body></html>")
	return mailer.Message{To: email, Subject: subject, HTML: body.String()}
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

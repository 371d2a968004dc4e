package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation              Code = "VALIDATION_ERROR"
	CodeDuplicateEmail          Code = "DUPLICATE_EMAIL"
	CodeNoSignupEmail           Code = "NO_SIGNUP_EMAIL"
	CodeVerificationNotFound    Code = "VERIFICATION_NOT_FOUND"
	CodeMissingVerificationData Code = "MISSING_VERIFICATION_DATA"
	CodeMissingExpirationTime   Code = "MISSING_EXPIRATION_TIME"
	CodeVerificationExpired     Code = "VERIFICATION_EXPIRED"
	CodeInvalidAuthNumber       Code = "INVALID_AUTH_NUMBER"
	CodeNoUser                  Code = "NO_USER"
	CodeNoUserInfo              Code = "NO_USERINFO"
	CodeNoUserBirth             Code = "NO_USER_BIRTH"
	CodeNoUserSex               Code = "NO_USER_SEX"
	CodeNoUserWeight            Code = "NO_USER_WEIGHT"
	CodeUserNotFound            Code = "NOT_FOUND_USER_INFO"
	CodeDoingExercise           Code = "DOING EXERCISE"
	CodePermissionDenied        Code = "PERMISSION_DENIED"
	CodeWriteConflict           Code = "WRITE_CONFLICT"
	CodeRateLimit               Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal                Code = "INTERNAL_SERVER_ERROR"
)

type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "validation failed",
	},
	CodeDuplicateEmail: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "email is already registered",
	},
	CodeNoSignupEmail: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "email is not registered",
	},
	CodeVerificationNotFound: {
		HTTPStatus:    http.StatusNotFound,
		Retryable:     false,
		PublicMessage: "verification record not found",
	},
	CodeMissingVerificationData: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "verification data is missing",
	},
	CodeMissingExpirationTime: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "verification expiry is missing",
	},
	CodeVerificationExpired: {
		HTTPStatus:    http.StatusForbidden,
		Retryable:     false,
		PublicMessage: "verification window has expired",
	},
	CodeInvalidAuthNumber: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "auth number does not match",
	},
	CodeNoUser: {
		HTTPStatus:    http.StatusNotFound,
		Retryable:     false,
		PublicMessage: "user is not registered",
	},
	CodeNoUserInfo: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "user profile is missing",
	},
	CodeNoUserBirth: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "user birth date is missing",
	},
	CodeNoUserSex: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "user sex is missing",
	},
	CodeNoUserWeight: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "user weight is missing",
	},
	CodeUserNotFound: {
		HTTPStatus:    http.StatusNotFound,
		Retryable:     false,
		PublicMessage: "user profile not found",
	},
	CodeDoingExercise: {
		HTTPStatus:    http.StatusBadRequest,
		Retryable:     false,
		PublicMessage: "an activity session is still open",
	},
	CodePermissionDenied: {
		HTTPStatus:    http.StatusForbidden,
		Retryable:     false,
		PublicMessage: "datastore access denied",
	},
	CodeWriteConflict: {
		HTTPStatus:    http.StatusServiceUnavailable,
		Retryable:     true,
		PublicMessage: "write conflict not resolved",
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		Retryable:     false,
		PublicMessage: "rate limit exceeded",
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

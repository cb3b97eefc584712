package errs

import (
	"errors"
	"strconv"
)

// Error codes for the gateway. Codes are stable and appear in error frames
// pushed to clients, so renumbering is a protocol change.
const (
	CodeAuthFailed         = 1001 // credential missing/invalid, connection is rejected
	CodeRecipientUnknown   = 1102 // target user does not exist at all
	CodeRecipientOffline   = 1103 // target exists but holds no live session
	CodePersistenceFailed  = 1201 // message store append failed, message not sent
	CodeBadRequest         = 1301
	CodeUserExists         = 1302
	CodeInvalidCredentials = 1303
	CodeNotFound           = 1304
	CodeNotAuthorized      = 1305
	CodeInternal           = 1500
)

var (
	ErrAuthFailed         = NewCodeError(CodeAuthFailed, "authentication failed")
	ErrRecipientUnknown   = NewCodeError(CodeRecipientUnknown, "recipient unknown")
	ErrRecipientOffline   = NewCodeError(CodeRecipientOffline, "recipient offline")
	ErrPersistenceFailed  = NewCodeError(CodePersistenceFailed, "message persistence failed")
	ErrBadRequest         = NewCodeError(CodeBadRequest, "bad request")
	ErrUserExists         = NewCodeError(CodeUserExists, "username taken")
	ErrInvalidCredentials = NewCodeError(CodeInvalidCredentials, "invalid credentials")
	ErrNotFound           = NewCodeError(CodeNotFound, "not found")
	ErrNotAuthorized      = NewCodeError(CodeNotAuthorized, "not authorized")
	ErrInternal           = NewCodeError(CodeInternal, "server error")
)

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	s := strconv.Itoa(e.Code) + ": " + e.Msg
	if e.Detail != "" {
		s += " (" + e.Detail + ")"
	}
	return s
}

// WithDetail returns a copy carrying extra context; the original sentinel is
// never mutated.
func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// Is matches on code so wrapped/detailed copies still compare equal to the
// sentinel via errors.Is.
func (e *CodeError) Is(target error) bool {
	var ce *CodeError
	if !errors.As(target, &ce) {
		return false
	}
	return e.Code == ce.Code
}

// Code extracts the numeric code from err, or CodeInternal when err carries
// no CodeError.
func Code(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}

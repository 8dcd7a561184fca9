package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork means no response reached the client.
	KindNetwork Kind = iota + 1
	// KindHTTP means a response arrived with a non-2xx status.
	KindHTTP
	// KindBusiness means a 2xx response carried a non-zero business code.
	KindBusiness
	// KindDecode means a 2xx response body was not a JSON object.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindBusiness:
		return "business"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// CodeUnauthorized is the business code the API uses for a missing or expired login.
const CodeUnauthorized = 401

// Error is the uniform rejection of every failed call.
type Error struct {
	Kind Kind
	// Status is the HTTP status for KindHTTP, KindBusiness and KindDecode.
	Status int
	// Code is the business code for KindBusiness.
	Code int
	// Message is the server-provided message, if any.
	Message string
	Err     error

	auth bool
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("transport: ")
	b.WriteString(e.Kind.String())
	switch e.Kind {
	case KindHTTP:
		fmt.Fprintf(&b, " status %d", e.Status)
	case KindBusiness:
		fmt.Fprintf(&b, " code %d", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AuthFailure reports whether the call failed because the credential was
// missing, expired or rejected.
func (e *Error) AuthFailure() bool {
	return e.auth
}

// IsAuthFailure reports whether err is an authentication failure.
func IsAuthFailure(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.AuthFailure()
}

// IsBusiness reports whether err is a business failure and returns its code.
func IsBusiness(err error) (int, bool) {
	var te *Error
	if errors.As(err, &te) && te.Kind == KindBusiness {
		return te.Code, true
	}
	return 0, false
}

// MessageOf returns the server-provided message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var te *Error
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return fallback
}

var loginRequiredPatterns = []string{"未登录", "请先登录", "请确保已登录", "登录已过期"}

var loginRequiredPatternsFold = []string{"not logged in", "login required"}

// LoginRequired reports whether a business failure means the shopper is not logged in.
func LoginRequired(code int, message string) bool {
	if code == CodeUnauthorized {
		return true
	}
	for _, p := range loginRequiredPatterns {
		if strings.Contains(message, p) {
			return true
		}
	}
	lower := strings.ToLower(message)
	for _, p := range loginRequiredPatternsFold {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func statusAuthFailure(status int) bool {
	return status == http.StatusUnauthorized
}

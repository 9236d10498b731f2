package rail

import (
	"errors"
	"fmt"
)

// ErrorKind tells how a backend call failed. The raw Message is still the
// only source for finer classification; neither backend sends structured
// error codes that are stable enough to match on.
type ErrorKind int

const (
	// KindBackend is a rejection reported by the backend in its response.
	KindBackend ErrorKind = iota
	// KindAuth is a failed login.
	KindAuth
	// KindAntiBot is an explicit anti-automation rejection (SRT NetFunnel).
	KindAntiBot
	// KindDecode is a response body that did not parse.
	KindDecode
	// KindTransport is a connection level failure.
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindBackend:
		return "backend"
	case KindAuth:
		return "auth"
	case KindAntiBot:
		return "antibot"
	case KindDecode:
		return "decode"
	case KindTransport:
		return "transport"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every Session and Authenticator method.
type Error struct {
	Kind     ErrorKind
	Provider Provider
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s %s error [%s]: %s", e.Provider, e.Kind, e.Code, msg)
	}
	return fmt.Sprintf("%s %s error: %s", e.Provider, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

func BackendError(p Provider, code, msg string) *Error {
	return &Error{Kind: KindBackend, Provider: p, Code: code, Message: msg}
}

func AuthError(p Provider, code, msg string) *Error {
	return &Error{Kind: KindAuth, Provider: p, Code: code, Message: msg}
}

func DecodeError(p Provider, err error) *Error {
	return &Error{Kind: KindDecode, Provider: p, Message: err.Error(), Err: err}
}

func TransportError(p Provider, err error) *Error {
	return &Error{Kind: KindTransport, Provider: p, Message: err.Error(), Err: err}
}

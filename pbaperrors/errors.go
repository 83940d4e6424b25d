// Package pbaperrors provides the PBAP-specific error kinds shared by the
// transaction engine, the vCard pipeline, and the client core.
package pbaperrors

import (
	"errors"
	"fmt"

	"github.com/bmwcarit/gopbap/obex"
)

// Kind classifies an Error so callers can branch on it without string
// matching and so the transaction engine can map it to an OBEX response
// code in one place.
type Kind byte

const (
	KindUnknown Kind = iota
	KindMalformedParams
	KindUnknownObjectType
	KindPathNotFound
	KindPathExists
	KindNotADirectory
	KindNotAFile
	KindForbidden
	KindUnsupportedVersion
	KindEmptyInput
	KindTransportError
	KindInvalidArguments
)

func (k Kind) String() string {
	switch k {
	case KindMalformedParams:
		return "malformed-params"
	case KindUnknownObjectType:
		return "unknown-object-type"
	case KindPathNotFound:
		return "path-not-found"
	case KindPathExists:
		return "path-exists"
	case KindNotADirectory:
		return "not-a-directory"
	case KindNotAFile:
		return "not-a-file"
	case KindForbidden:
		return "forbidden"
	case KindUnsupportedVersion:
		return "unsupported-version"
	case KindEmptyInput:
		return "empty-input"
	case KindTransportError:
		return "transport-error"
	case KindInvalidArguments:
		return "invalid-arguments"
	default:
		return "unknown"
	}
}

// Sentinel errors for conditions that never carry request-specific context.
var (
	ErrConnectionClosed = errors.New("pbap: connection closed")
	ErrNotConnected     = errors.New("pbap: not connected")
	ErrAlreadyAtRoot    = errors.New("pbap: already at virtual folder root")
)

// Error is the structured error type carried across component boundaries.
// Op names the operation that failed (e.g. "apparams.Decode", "vfolder.Read")
// the way the teacher's *NetworkError/*PDUError name theirs.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a structured error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds a structured error that carries an underlying cause.
func Wrap(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func IsNotFound(err error) bool {
	k := KindOf(err)
	return k == KindPathNotFound || k == KindNotAFile || k == KindNotADirectory
}

func IsForbidden(err error) bool {
	return KindOf(err) == KindForbidden
}

func IsMalformed(err error) bool {
	k := KindOf(err)
	return k == KindMalformedParams || k == KindUnknownObjectType
}

// ToResponseCode maps err onto the OBEX response code the transaction
// engine sends back to the peer (§7). Anything unexpected from the storage
// backend falls through to Service_Unavailable.
func ToResponseCode(err error) obex.ResponseCode {
	switch KindOf(err) {
	case KindMalformedParams, KindUnknownObjectType:
		return obex.BadRequest
	case KindPathNotFound, KindNotAFile, KindNotADirectory:
		return obex.NotFound
	case KindForbidden:
		return obex.Forbidden
	case KindPathExists:
		return obex.PreconditionFailed
	case KindUnsupportedVersion:
		return obex.BadRequest
	default:
		return obex.ServiceUnavailable
	}
}

// KindFromResponseCode is ToResponseCode's inverse, used by the client core
// to classify a PSE's failure response (§7) instead of collapsing every
// non-success code to one Kind.
func KindFromResponseCode(code obex.ResponseCode) Kind {
	switch code {
	case obex.BadRequest:
		return KindMalformedParams
	case obex.NotFound:
		return KindPathNotFound
	case obex.Forbidden:
		return KindForbidden
	case obex.PreconditionFailed:
		return KindPathExists
	case obex.NotAcceptable, obex.NotImplemented:
		return KindInvalidArguments
	case obex.ServiceUnavailable:
		return KindTransportError
	default:
		return KindUnknown
	}
}

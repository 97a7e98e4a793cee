package redeem

import (
	"errors"

	"github.com/mahdiidarabi/ticketsig/pkg/curve"
	"github.com/mahdiidarabi/ticketsig/pkg/ecverify"
	"github.com/mahdiidarabi/ticketsig/pkg/field"
)

// Reason is the stable identifier of a rejection. The string values are part
// of the external contract and must not change.
type Reason string

const (
	ReasonInvalidR           Reason = "invalid_r"
	ReasonInvalidS           Reason = "invalid_s"
	ReasonInvalidPublicKey   Reason = "invalid_public_key"
	ReasonInvalidSignature   Reason = "invalid_signature"
	ReasonPointNotOnCurve    Reason = "point_not_on_curve"
	ReasonNotInvertible      Reason = "not_invertible"
	ReasonExpired            Reason = "expired"
	ReasonNotOwner           Reason = "not_owner"
	ReasonCallerUnauthorized Reason = "caller_unauthorized"
	ReasonTicketNotFound     Reason = "ticket_not_found"
	ReasonReplayed           Reason = "replayed"
	ReasonAlreadyUsed        Reason = "already_used"
	ReasonInvalidNonce       Reason = "invalid_nonce"
	ReasonInvalidRequest     Reason = "invalid_request"
)

// Kind groups reasons into the error taxonomy.
type Kind int

const (
	KindValidation Kind = iota
	KindTemporal
	KindAuthorization
	KindReplay
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTemporal:
		return "temporal"
	case KindAuthorization:
		return "authorization"
	case KindReplay:
		return "replay"
	default:
		return "unknown"
	}
}

// Kind returns the taxonomy group of r.
func (r Reason) Kind() Kind {
	switch r {
	case ReasonExpired:
		return KindTemporal
	case ReasonNotOwner, ReasonCallerUnauthorized, ReasonTicketNotFound:
		return KindAuthorization
	case ReasonReplayed, ReasonAlreadyUsed, ReasonInvalidNonce:
		return KindReplay
	default:
		return KindValidation
	}
}

// Error is a terminal rejection of a redemption request. errors.Is matches
// two *Error values on their Reason, and Unwrap exposes the lower level
// cause when there is one.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "redemption rejected: " + string(e.Reason) + ": " + e.Err.Error()
	}
	return "redemption rejected: " + string(e.Reason)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Reason == e.Reason
}

// Kind returns the taxonomy group of the rejection.
func (e *Error) Kind() Kind { return e.Reason.Kind() }

// Sentinel values for errors.Is comparisons.
var (
	ErrInvalidR           = &Error{Reason: ReasonInvalidR}
	ErrInvalidS           = &Error{Reason: ReasonInvalidS}
	ErrInvalidPublicKey   = &Error{Reason: ReasonInvalidPublicKey}
	ErrInvalidSignature   = &Error{Reason: ReasonInvalidSignature}
	ErrPointNotOnCurve    = &Error{Reason: ReasonPointNotOnCurve}
	ErrNotInvertible      = &Error{Reason: ReasonNotInvertible}
	ErrExpired            = &Error{Reason: ReasonExpired}
	ErrNotOwner           = &Error{Reason: ReasonNotOwner}
	ErrCallerUnauthorized = &Error{Reason: ReasonCallerUnauthorized}
	ErrTicketNotFound     = &Error{Reason: ReasonTicketNotFound}
	ErrReplayed           = &Error{Reason: ReasonReplayed}
	ErrAlreadyUsed        = &Error{Reason: ReasonAlreadyUsed}
	ErrInvalidNonce       = &Error{Reason: ReasonInvalidNonce}
	ErrInvalidRequest     = &Error{Reason: ReasonInvalidRequest}
)

func reject(r Reason, cause error) *Error {
	return &Error{Reason: r, Err: cause}
}

// ReasonOf extracts the rejection reason from err, if it is a rejection.
func ReasonOf(err error) (Reason, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason, true
	}
	return "", false
}

// IsRejection reports whether err is a terminal rejection as opposed to an
// infrastructure failure (storage I/O and the like).
func IsRejection(err error) bool {
	_, ok := ReasonOf(err)
	return ok
}

// fromVerifyError maps errors from the math packages onto rejections.
func fromVerifyError(err error) *Error {
	switch {
	case errors.Is(err, ecverify.ErrInvalidR):
		return reject(ReasonInvalidR, err)
	case errors.Is(err, ecverify.ErrInvalidS):
		return reject(ReasonInvalidS, err)
	case errors.Is(err, ecverify.ErrInvalidPublicKey):
		return reject(ReasonInvalidPublicKey, err)
	case errors.Is(err, curve.ErrPointNotOnCurve):
		return reject(ReasonPointNotOnCurve, err)
	case errors.Is(err, field.ErrNotInvertible):
		return reject(ReasonNotInvertible, err)
	default:
		return reject(ReasonInvalidSignature, err)
	}
}

package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// FailureKind buckets processor failures by how the settlement flows
// should react to them.
type FailureKind string

const (
	// FailureInsufficientFunds means the source account cannot cover the
	// amount. Retried on a multi-day backoff up to a configured cap.
	FailureInsufficientFunds FailureKind = "insufficient_funds"
	// FailureCrossBorderRestricted means the processor refuses transfers
	// across the corridor. Never retried automatically.
	FailureCrossBorderRestricted FailureKind = "cross_border_restricted"
	// FailureAccountNotCapable means the destination account cannot
	// receive charges or payouts yet.
	FailureAccountNotCapable FailureKind = "account_not_capable"
	// FailureTransient covers rate limits, lock timeouts and 5xx; safe
	// to retry immediately with backoff.
	FailureTransient FailureKind = "transient"
	// FailurePermanent is everything else: declines, validation,
	// misconfiguration.
	FailurePermanent FailureKind = "permanent"
)

// Error wraps a processor failure with its classification.
type Error struct {
	Kind    FailureKind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway %s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the failure may be retried in-line.
func (e *Error) Retryable() bool {
	return e.Kind == FailureTransient
}

// WrapError classifies err into a gateway Error. Already-classified
// errors pass through unchanged.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	kind, code, message := classify(err)
	return &Error{Kind: kind, Code: code, Message: message, cause: err}
}

// KindOf extracts the failure kind, defaulting to permanent for
// unclassified errors.
func KindOf(err error) FailureKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return FailurePermanent
}

func classify(err error) (FailureKind, string, string) {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return FailurePermanent, "", err.Error()
	}

	code := string(stripeErr.Code)
	if stripeErr.DeclineCode != "" {
		code = string(stripeErr.DeclineCode)
	}

	switch {
	case stripeErr.DeclineCode == stripe.DeclineCodeInsufficientFunds,
		stripeErr.Code == stripe.ErrorCodeBalanceInsufficient:
		return FailureInsufficientFunds, code, stripeErr.Msg

	case strings.Contains(stripeErr.Msg, "cross-border"),
		strings.Contains(string(stripeErr.Code), "cross_border"):
		return FailureCrossBorderRestricted, code, stripeErr.Msg

	case stripeErr.Code == stripe.ErrorCodeAccountInvalid,
		string(stripeErr.Code) == "transfers_not_allowed",
		string(stripeErr.Code) == "payouts_not_allowed":
		return FailureAccountNotCapable, code, stripeErr.Msg

	case stripeErr.Type == stripe.ErrorTypeAPI,
		stripeErr.Code == stripe.ErrorCodeRateLimit,
		stripeErr.Code == stripe.ErrorCodeLockTimeout,
		stripeErr.HTTPStatusCode >= http.StatusInternalServerError,
		stripeErr.HTTPStatusCode == http.StatusTooManyRequests:
		return FailureTransient, code, stripeErr.Msg

	default:
		return FailurePermanent, code, stripeErr.Msg
	}
}

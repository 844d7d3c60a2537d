package reconcile

import "errors"

// The webhook error taxonomy. The HTTP handler maps these onto status codes;
// anything not listed here is an internal failure.
var (
	// ErrBadSignature means the signature header was missing or did not match
	// the raw body. The body is never parsed in that case.
	ErrBadSignature = errors.New("webhook signature missing or invalid")

	// ErrMalformedPayload covers unparseable JSON, a missing or unrecognized
	// reference, and a charge whose status is not success.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrUnknownReference means the reference parsed cleanly but no record
	// carries it.
	ErrUnknownReference = errors.New("no record matches payment reference")

	// ErrSideEffects means the payment state committed but the confirmed
	// event could not be handed off. The payment is NOT rolled back; the
	// reconciliation sweep re-dispatches it later.
	ErrSideEffects = errors.New("payment committed but side effect dispatch failed")
)

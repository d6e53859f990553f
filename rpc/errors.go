package rpc

import (
	"errors"
	"fmt"
	"net/http"

	"payledger/native/access"
	"payledger/native/bank"
	"payledger/native/payment"
)

// Ledger error codes. The message of every ledger error is its reason
// string.
const (
	codeLedgerInvalidParams = -32041
	codeLedgerForbidden     = -32043
	codeLedgerReplay        = -32044
	codeLedgerFailure       = -32045
)

var (
	errEnvelopeSignature = errors.New("invalid envelope signature")
	errEnvelopeNonce     = errors.New("invalid nonce")
	errEventsUnavailable = errors.New("event archive not configured")
)

type paramError struct {
	err error
}

func (e *paramError) Error() string { return e.err.Error() }
func (e *paramError) Unwrap() error { return e.err }

func invalidParams(format string, args ...interface{}) error {
	return &paramError{err: fmt.Errorf(format, args...)}
}

var (
	forbiddenErrors = []error{
		payment.ErrForbidden,
		payment.ErrInvalidSignature,
		errEnvelopeSignature,
	}
	replayErrors = []error{
		payment.ErrRecordExists,
		payment.ErrExpired,
		errEnvelopeNonce,
	}
	invalidValueErrors = []error{
		payment.ErrInvalidValue,
		payment.ErrInvalidDeal,
		payment.ErrZero,
		bank.ErrNegativeAmount,
	}
	failureErrors = []error{
		payment.ErrInsufficientAvailable,
		payment.ErrInsufficientFrozen,
		payment.ErrInsufficientBalance,
		bank.ErrTokenInsufficientBalance,
		bank.ErrInsufficientAllowance,
		bank.ErrNativeAllowance,
		payment.ErrAlreadyBound,
		payment.ErrOverWalletCount,
		payment.ErrNoBind,
		payment.ErrNoChange,
		payment.ErrDisabled,
		payment.ErrNotInitialized,
		payment.ErrAlreadyInitialized,
	}
)

func matchAny(err error, targets []error) (error, bool) {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}

// classify maps an error onto the HTTP status, JSON-RPC code, message and
// data written back to the caller.
func classify(err error) (int, int, string, interface{}) {
	var pErr *paramError
	if errors.As(err, &pErr) {
		return http.StatusBadRequest, codeLedgerInvalidParams, "invalid_params", pErr.Error()
	}
	if access.Forbidden(err) {
		return http.StatusForbidden, codeLedgerForbidden, rootReason(err), nil
	}
	if target, ok := matchAny(err, forbiddenErrors); ok {
		return http.StatusForbidden, codeLedgerForbidden, target.Error(), nil
	}
	if target, ok := matchAny(err, replayErrors); ok {
		return http.StatusConflict, codeLedgerReplay, target.Error(), detail(err, target)
	}
	if target, ok := matchAny(err, invalidValueErrors); ok {
		return http.StatusBadRequest, codeLedgerInvalidParams, target.Error(), nil
	}
	if target, ok := matchAny(err, failureErrors); ok {
		return http.StatusConflict, codeLedgerFailure, target.Error(), nil
	}
	if errors.Is(err, errEventsUnavailable) {
		return http.StatusServiceUnavailable, codeServerError, err.Error(), nil
	}
	return http.StatusInternalServerError, codeServerError, "internal error", nil
}

func rootReason(err error) string {
	for _, target := range []error{access.ErrOwnerForbidden, access.ErrDevForbidden, access.ErrAdminForbidden} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

// detail keeps wrapped context, such as the expected nonce, as error data.
func detail(err, target error) interface{} {
	if err.Error() == target.Error() {
		return nil
	}
	return err.Error()
}

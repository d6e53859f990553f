package payment

import (
	"errors"

	"payledger/native/access"
	"payledger/native/bank"
	nativecommon "payledger/native/common"
)

// Failure reasons. The error text is the machine-checkable reason string
// surfaced to callers.
var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpired          = errors.New("request is expired")

	ErrRecordExists = errors.New("record already exists")

	ErrInsufficientAvailable = errors.New("insufficient available")
	ErrInsufficientFrozen    = errors.New("insufficient frozen")
	ErrInsufficientBalance   = bank.ErrInsufficientBalance

	ErrInvalidDeal  = errors.New("invalid deal")
	ErrInvalidValue = errors.New("invalid value")
	ErrZero         = errors.New("zero")

	ErrForbidden      = errors.New("forbidden")
	ErrOwnerForbidden = access.ErrOwnerForbidden
	ErrDevForbidden   = access.ErrDevForbidden
	ErrAdminForbidden = access.ErrAdminForbidden

	ErrAlreadyBound       = errors.New("already bound")
	ErrOverWalletCount    = errors.New("over wallet count")
	ErrNoBind             = errors.New("no bind")
	ErrNoChange           = errors.New("no change")
	ErrDisabled           = nativecommon.ErrModuleDisabled
	ErrNotInitialized     = errors.New("payment: ledger not initialised")
	ErrAlreadyInitialized = errors.New("payment: ledger already initialised")
)

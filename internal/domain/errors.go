package domain

import "errors"

// Kind classifies an error returned by the ledger operations.
type Kind string

const (
	KindNone             Kind = ""
	KindNotFound         Kind = "not_found"
	KindAlreadyExists    Kind = "already_exists"
	KindValidation       Kind = "validation"
	KindConflictExceeded Kind = "conflict_exceeded"
	KindStoreFault       Kind = "store_fault"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrWalletAlreadyExists = errors.New("user already has a wallet")

	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrInvalidRange        = errors.New("end must not be before start")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinimumBalance = errors.New("balance cannot drop below minimum required balance")

	// ErrConflictExceeded is returned once every attempt of a mutation lost
	// to a concurrent writer.
	ErrConflictExceeded = errors.New("too many concurrent updates, retry budget exhausted")

	// ErrStoreFault wraps any persistence failure that is not a known
	// business condition. It is never retried.
	ErrStoreFault = errors.New("store fault")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrStoreFault, KindStoreFault},
	{ErrConflictExceeded, KindConflictExceeded},
	{ErrUserNotFound, KindNotFound},
	{ErrWalletNotFound, KindNotFound},
	{ErrUserAlreadyExists, KindAlreadyExists},
	{ErrWalletAlreadyExists, KindAlreadyExists},
	{ErrInvalidAmount, KindValidation},
	{ErrInvalidPhone, KindValidation},
	{ErrInvalidRange, KindValidation},
	{ErrInsufficientBalance, KindValidation},
	{ErrBelowMinimumBalance, KindValidation},
}

// KindOf reports which class err belongs to. Unknown non-nil errors are
// treated as store faults so they are never mistaken for a rejected request.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindStoreFault
}

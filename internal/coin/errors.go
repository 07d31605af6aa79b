package coin

import (
	"errors"
	"fmt"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrDuplicateReference  = errors.New("transaction with this reference already exists")
	ErrRequestNotFound     = errors.New("purchase request not found")
	ErrAlreadyProcessed    = errors.New("purchase request already processed")
	ErrNotesRequired       = errors.New("admin notes are required when rejecting a request")
	ErrUnknownPackage      = errors.New("unknown coin package")
	ErrInvalidAction       = errors.New(`action must be "approve" or "reject"`)
	ErrSameWallet          = errors.New("cannot transfer to the same wallet")
)

// InsufficientCoinsError reports a refused debit together with the numbers
// the client renders: required, available and the derived shortfall.
type InsufficientCoinsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientCoinsError) Error() string {
	return fmt.Sprintf("insufficient coins: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientCoinsError) Shortfall() int64 {
	return e.Required - e.Available
}

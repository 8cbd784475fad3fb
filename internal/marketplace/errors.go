package marketplace

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPriceZero         = errors.New("price must be greater than zero")
	ErrNotAssetOwner     = errors.New("caller does not hold the asset")
	ErrIncorrectFee      = errors.New("payment does not match the listing fee")
	ErrListingNotFound   = errors.New("listing not found")
	ErrIncorrectPrice    = errors.New("payment does not match price plus fee")
	ErrNotListingOwner   = errors.New("caller is not the seller of the listing")
	ErrNotOperator       = errors.New("caller is not the operator")
	ErrNothingToWithdraw = errors.New("no fees to withdraw")
	ErrRateTooHigh       = errors.New("fee rate exceeds 100")
	ErrSystemPaused      = errors.New("marketplace is paused")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrNoOpTransition    = errors.New("pause state already set")
	ErrInvalidOperator   = errors.New("invalid operator address")
	ErrReentrantCall     = errors.New("marketplace is busy with an operation waiting on a collaborator")

	ErrRollbackIncomplete = errors.New("rollback incomplete")
)

// RollbackError is a failed operation whose collaborator calls could not all be undone.
// It unwraps to the failure that triggered the rollback.
type RollbackError struct {
	Err      error
	Failures []error
}

func (e *RollbackError) Error() string {
	failures := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		failures = append(failures, f.Error())
	}
	return fmt.Sprintf("%v (%s: %s)", e.Err, ErrRollbackIncomplete, strings.Join(failures, "; "))
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}

func (e *RollbackError) Is(target error) bool {
	return target == ErrRollbackIncomplete
}

var codes = []struct {
	err  error
	code string
}{
	{ErrRollbackIncomplete, "RollbackIncomplete"},
	{ErrPriceZero, "PriceZero"},
	{ErrNotAssetOwner, "NotAssetOwner"},
	{ErrIncorrectFee, "IncorrectFee"},
	{ErrListingNotFound, "ListingNotFound"},
	{ErrIncorrectPrice, "IncorrectPrice"},
	{ErrNotListingOwner, "NotListingOwner"},
	{ErrNotOperator, "NotOperator"},
	{ErrNothingToWithdraw, "NothingToWithdraw"},
	{ErrRateTooHigh, "RateTooHigh"},
	{ErrSystemPaused, "SystemPaused"},
	{ErrTransferFailed, "TransferFailed"},
	{ErrNoOpTransition, "NoOpTransition"},
	{ErrInvalidOperator, "InvalidOperator"},
	{ErrReentrantCall, "ReentrantCall"},
}

// Code returns the stable name of the marketplace error wrapped by err, or "Internal".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Internal"
}

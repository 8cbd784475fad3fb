package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
	"sync"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"go.uber.org/zap"
)

var (
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	ErrBalanceOverflow   = errors.New("wallet: balance overflow")
	ErrInvalidAccount    = errors.New("wallet: invalid account")
	ErrInvalidGenesis    = errors.New("wallet: invalid genesis entry")
)

// Ledger moves value between accounts. Amounts are in Qa.
type Ledger interface {
	Transfer(ctx context.Context, from, to entity.Address, amount uint64) error
	BalanceOf(ctx context.Context, account entity.Address) (uint64, error)
}

// Accounts is an in-memory Ledger.
type Accounts struct {
	mu       sync.Mutex
	balances map[entity.Address]uint64
}

func NewAccounts() *Accounts {
	return &Accounts{balances: make(map[entity.Address]uint64)}
}

// Credit mints amount into account.
func (a *Accounts) Credit(account entity.Address, amount uint64) error {
	if account.IsNull() {
		return ErrInvalidAccount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	balance, carry := bits.Add64(a.balances[account], amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}
	a.balances[account] = balance

	return nil
}

func (a *Accounts) Transfer(_ context.Context, from, to entity.Address, amount uint64) error {
	if from.IsNull() || to.IsNull() {
		return ErrInvalidAccount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.balances[from] < amount {
		return fmt.Errorf("%w: available %d, requested %d", ErrInsufficientFunds, a.balances[from], amount)
	}
	if from == to {
		return nil
	}

	credited, carry := bits.Add64(a.balances[to], amount, 0)
	if carry != 0 {
		return ErrBalanceOverflow
	}

	a.balances[from] -= amount
	a.balances[to] = credited

	zap.L().With(
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Uint64("amount", amount),
	).Debug("Wallet: Transfer")

	return nil
}

func (a *Accounts) BalanceOf(_ context.Context, account entity.Address) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.balances[account], nil
}

// LoadGenesis credits balances from "address:amount" entries.
func (a *Accounts) LoadGenesis(entries []string) error {
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 2 {
			return fmt.Errorf("%w: %s", ErrInvalidGenesis, entry)
		}

		account, err := entity.ParseAddress(parts[0])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
		}
		amount, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidGenesis, entry)
		}

		if err := a.Credit(account, amount); err != nil {
			return err
		}
	}

	return nil
}

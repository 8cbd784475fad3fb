package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/custody"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/event"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesConfig(t *testing.T) {
	registry := custody.NewRegistry()
	accounts := wallet.NewAccounts()

	_, err := New(Config{Operator: operator}, registry, accounts, nil)
	assert.ErrorIs(t, err, entity.ErrInvalidAddress)

	_, err = New(Config{Address: market}, registry, accounts, nil)
	assert.ErrorIs(t, err, ErrInvalidOperator)

	_, err = New(Config{Address: market, Operator: operator, BuyFeeRate: 101}, registry, accounts, nil)
	assert.ErrorIs(t, err, ErrRateTooHigh)
}

func TestListThenBuy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{ListFeeRate: 1, BuyFeeRate: 3})

	f.registry.Assign(collection, 7, alice)
	require.NoError(t, f.accounts.Credit(alice, 10))
	require.NoError(t, f.accounts.Credit(bob, 1030))

	require.NoError(t, f.market.List(ctx, Call{Caller: alice, Value: 10}, collection, 7, 1000))

	listing, ok := f.market.GetListing(ctx, collection, 7)
	require.True(t, ok)
	assert.Equal(t, entity.Listing{Seller: alice, Collection: collection, AssetId: 7, Price: 1000}, listing)
	assert.Equal(t, uint64(10), f.market.CollectedFees(ctx))

	require.NoError(t, f.market.Buy(ctx, Call{Caller: bob, Value: 1030}, collection, 7))

	_, ok = f.market.GetListing(ctx, collection, 7)
	assert.False(t, ok)
	assert.Equal(t, uint64(40), f.market.CollectedFees(ctx))
	assert.Equal(t, uint64(1000), f.balance(t, alice))
	assert.Equal(t, uint64(0), f.balance(t, bob))
	assert.Equal(t, uint64(40), f.balance(t, market))
	assert.Equal(t, bob, f.holder(t, 7))

	assert.Equal(t, []event.Type{
		event.ListingCreatedEvent,
		event.FeeCollectedEvent,
		event.ListingSoldEvent,
		event.FeeCollectedEvent,
	}, f.events.types())

	sale := f.events.events[2].msg.(entity.MarketplaceAction)
	assert.Equal(t, entity.SaleAction, sale.Action)
	assert.Equal(t, alice, sale.From)
	assert.Equal(t, bob, sale.To)
	assert.Equal(t, uint64(30), sale.Fee)
	assert.Equal(t, uint64(1000), sale.Amount)
	assert.NotEmpty(t, sale.OperationId)
}

func TestListRequiresExactFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{ListFeeRate: 1})
	f.registry.Assign(collection, 7, alice)
	require.NoError(t, f.accounts.Credit(alice, 100))

	for _, value := range []uint64{9, 11, 0} {
		err := f.market.List(ctx, Call{Caller: alice, Value: value}, collection, 7, 1000)
		assert.ErrorIs(t, err, ErrIncorrectFee, "value %d", value)
		assert.Equal(t, "IncorrectFee", Code(err))
	}

	_, ok := f.market.GetListing(ctx, collection, 7)
	assert.False(t, ok)
	assert.Equal(t, uint64(0), f.market.CollectedFees(ctx))
	assert.Equal(t, uint64(100), f.balance(t, alice))

	require.NoError(t, f.market.List(ctx, Call{Caller: alice, Value: 10}, collection, 7, 1000))
	assert.Equal(t, uint64(90), f.balance(t, alice))
	assert.Equal(t, uint64(10), f.balance(t, market))
}

func TestListRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.registry.Assign(collection, 7, alice)

	assert.ErrorIs(t, f.market.List(ctx, Call{Caller: alice}, collection, 7, 0), ErrPriceZero)
	assert.ErrorIs(t, f.market.List(ctx, Call{Caller: bob}, collection, 7, 1000), ErrNotAssetOwner)
	assert.ErrorIs(t, f.market.List(ctx, Call{Caller: alice}, collection, 8, 1000), ErrNotAssetOwner)
	assert.ErrorIs(t, f.market.List(ctx, Call{Caller: entity.NullAddress}, collection, 8, 1000), ErrNotAssetOwner)

	assert.Empty(t, f.market.Listings(ctx))
}

func TestListWithZeroRateIsFree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.registry.Assign(collection, 7, alice)

	require.NoError(t, f.market.List(ctx, Call{Caller: alice}, collection, 7, 99))
	assert.Equal(t, []event.Type{event.ListingCreatedEvent, event.FeeCollectedEvent}, f.events.types())
	assert.Equal(t, uint64(0), f.market.CollectedFees(ctx))
}

func TestListCollaboratorFailure(t *testing.T) {
	ctx := context.Background()
	custodian := new(mockCustodian)
	custodian.On("CurrentHolder", mock.Anything, collection, uint64(7)).Return(entity.NullAddress, errors.New("rpc timeout"))

	m, err := New(Config{Address: market, Operator: operator}, custodian, wallet.NewAccounts(), nil)
	require.NoError(t, err)

	err = m.List(ctx, Call{Caller: alice}, collection, 7, 1000)
	assert.EqualError(t, err, "custody lookup: rpc timeout")
	assert.Equal(t, "Internal", Code(err))
	custodian.AssertExpectations(t)
}

func TestRelistOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.registry.Assign(collection, 7, alice)

	require.NoError(t, f.market.List(ctx, Call{Caller: alice}, collection, 7, 1000))
	require.NoError(t, f.market.List(ctx, Call{Caller: alice}, collection, 7, 500))

	listing, ok := f.market.GetListing(ctx, collection, 7)
	require.True(t, ok)
	assert.Equal(t, uint64(500), listing.Price)
	assert.Len(t, f.market.Listings(ctx), 1)
}

func TestBuyListingNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{BuyFeeRate: 3})
	require.NoError(t, f.accounts.Credit(bob, 1030))

	err := f.market.Buy(ctx, Call{Caller: bob, Value: 1030}, collection, 7)
	assert.ErrorIs(t, err, ErrListingNotFound)
	assert.Equal(t, uint64(1030), f.balance(t, bob))
}

func TestBuyRequiresExactPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{BuyFeeRate: 3})
	f.listed(t)
	require.NoError(t, f.accounts.Credit(bob, 2000))

	for _, value := range []uint64{1000, 1029, 1031} {
		err := f.market.Buy(ctx, Call{Caller: bob, Value: value}, collection, 7)
		assert.ErrorIs(t, err, ErrIncorrectPrice, "value %d", value)
	}

	_, ok := f.market.GetListing(ctx, collection, 7)
	assert.True(t, ok)
	assert.Equal(t, uint64(2000), f.balance(t, bob))
	assert.Equal(t, alice, f.holder(t, 7))
}

func TestBuyWithInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{BuyFeeRate: 3})
	f.listed(t)
	require.NoError(t, f.accounts.Credit(bob, 1029))

	err := f.market.Buy(ctx, Call{Caller: bob, Value: 1030}, collection, 7)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.Contains(t, err.Error(), wallet.ErrInsufficientFunds.Error())

	_, ok := f.market.GetListing(ctx, collection, 7)
	assert.True(t, ok)
}

func TestBuyForwardsFeeToSellerWhenConfigured(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{BuyFeeRate: 3, ForwardBuyFee: true})
	f.listed(t)
	require.NoError(t, f.accounts.Credit(bob, 1030))

	require.NoError(t, f.market.Buy(ctx, Call{Caller: bob, Value: 1030}, collection, 7))

	assert.Equal(t, uint64(1030), f.balance(t, alice))
	assert.Equal(t, uint64(30), f.market.CollectedFees(ctx))
	assert.Equal(t, uint64(0), f.balance(t, market))

	err := f.market.WithdrawFees(ctx, operator)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, uint64(30), f.market.CollectedFees(ctx))
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{ListFeeRate: 1})
	f.listed(t)

	assert.ErrorIs(t, f.market.Cancel(ctx, bob, collection, 7), ErrNotListingOwner)
	assert.ErrorIs(t, f.market.Cancel(ctx, alice, collection, 8), ErrNotListingOwner)

	require.NoError(t, f.market.Cancel(ctx, alice, collection, 7))
	assert.Equal(t, []event.Type{event.OperationRejectedEvent, event.OperationRejectedEvent, event.ListingCanceledEvent}, f.events.types())

	assert.ErrorIs(t, f.market.Buy(ctx, Call{Caller: bob, Value: 1000}, collection, 7), ErrListingNotFound)
	assert.ErrorIs(t, f.market.Cancel(ctx, alice, collection, 7), ErrNotListingOwner)

	assert.Equal(t, uint64(10), f.market.CollectedFees(ctx), "listing fee is not refunded")
	assert.Equal(t, alice, f.holder(t, 7))
}

func TestWithdrawFees(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{ListFeeRate: 1})

	assert.ErrorIs(t, f.market.WithdrawFees(ctx, operator), ErrNothingToWithdraw)

	f.listed(t)

	assert.ErrorIs(t, f.market.WithdrawFees(ctx, alice), ErrNotOperator)

	require.NoError(t, f.market.WithdrawFees(ctx, operator))
	assert.Equal(t, uint64(0), f.market.CollectedFees(ctx))
	assert.Equal(t, uint64(10), f.balance(t, operator))
	assert.Equal(t, uint64(0), f.balance(t, market))

	assert.ErrorIs(t, f.market.WithdrawFees(ctx, operator), ErrNothingToWithdraw)
}

func TestWithdrawFeesRollsBackWhenTransferFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{ListFeeRate: 1})
	f.listed(t)

	f.ledger.onTransfer = func(ctx context.Context, from, to entity.Address, amount uint64) error {
		return errors.New("network down")
	}

	err := f.market.WithdrawFees(ctx, operator)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, uint64(10), f.market.CollectedFees(ctx))
	assert.Equal(t, uint64(0), f.balance(t, operator))
	assert.Equal(t, []event.Type{event.OperationRejectedEvent}, f.events.types())
}

func TestFeeRates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{ListFeeRate: 1, BuyFeeRate: 3})

	assert.ErrorIs(t, f.market.SetListFeeRate(ctx, operator, 101), ErrRateTooHigh)
	assert.ErrorIs(t, f.market.SetBuyFeeRate(ctx, operator, 101), ErrRateTooHigh)
	assert.ErrorIs(t, f.market.SetListFeeRate(ctx, alice, 5), ErrNotOperator)
	assert.ErrorIs(t, f.market.SetBuyFeeRate(ctx, alice, 5), ErrNotOperator)
	assert.Equal(t, uint(1), f.market.ListFeeRate(ctx))
	assert.Equal(t, uint(3), f.market.BuyFeeRate(ctx))

	require.NoError(t, f.market.SetListFeeRate(ctx, operator, 100))
	require.NoError(t, f.market.SetBuyFeeRate(ctx, operator, 0))
	assert.Equal(t, uint(100), f.market.ListFeeRate(ctx))
	assert.Equal(t, uint(0), f.market.BuyFeeRate(ctx))

	f.registry.Assign(collection, 7, alice)
	require.NoError(t, f.accounts.Credit(alice, 1000))
	assert.ErrorIs(t, f.market.List(ctx, Call{Caller: alice, Value: 10}, collection, 7, 1000), ErrIncorrectFee)
	require.NoError(t, f.market.List(ctx, Call{Caller: alice, Value: 1000}, collection, 7, 1000))
}

func TestFeeRateChangeIsNotRetroactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{ListFeeRate: 1, BuyFeeRate: 3})
	f.listed(t)

	require.NoError(t, f.market.SetListFeeRate(ctx, operator, 50))
	assert.Equal(t, uint64(10), f.market.CollectedFees(ctx))

	require.NoError(t, f.market.SetBuyFeeRate(ctx, operator, 10))
	require.NoError(t, f.accounts.Credit(bob, 1100))
	require.NoError(t, f.market.Buy(ctx, Call{Caller: bob, Value: 1100}, collection, 7))
	assert.Equal(t, uint64(110), f.market.CollectedFees(ctx))
}

func TestPause(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{ListFeeRate: 1, BuyFeeRate: 3})
	f.listed(t)
	f.registry.Assign(collection, 8, alice)
	require.NoError(t, f.accounts.Credit(bob, 1030))

	assert.ErrorIs(t, f.market.Pause(ctx, alice), ErrNotOperator)
	require.NoError(t, f.market.Pause(ctx, operator))
	assert.True(t, f.market.Paused(ctx))
	assert.ErrorIs(t, f.market.Pause(ctx, operator), ErrNoOpTransition)

	assert.ErrorIs(t, f.market.List(ctx, Call{Caller: alice}, collection, 8, 1000), ErrSystemPaused)
	assert.ErrorIs(t, f.market.Buy(ctx, Call{Caller: bob, Value: 1030}, collection, 7), ErrSystemPaused)
	assert.ErrorIs(t, f.market.Cancel(ctx, alice, collection, 7), ErrSystemPaused)

	require.NoError(t, f.market.SetListFeeRate(ctx, operator, 2))
	require.NoError(t, f.market.SetBuyFeeRate(ctx, operator, 3))
	require.NoError(t, f.market.WithdrawFees(ctx, operator))
	assert.Equal(t, uint64(10), f.balance(t, operator))

	require.NoError(t, f.market.Unpause(ctx, operator))
	assert.ErrorIs(t, f.market.Unpause(ctx, operator), ErrNoOpTransition)
	require.NoError(t, f.market.Buy(ctx, Call{Caller: bob, Value: 1030}, collection, 7))
}

func TestTransferOperator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	assert.ErrorIs(t, f.market.TransferOperator(ctx, alice, bob), ErrNotOperator)
	assert.ErrorIs(t, f.market.TransferOperator(ctx, operator, entity.NullAddress), ErrInvalidOperator)

	require.NoError(t, f.market.TransferOperator(ctx, operator, bob))
	assert.Equal(t, bob, f.market.Operator(ctx))
	assert.ErrorIs(t, f.market.Pause(ctx, operator), ErrNotOperator)
	require.NoError(t, f.market.Pause(ctx, bob))
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{ListFeeRate: 1, BuyFeeRate: 3})
	f.listed(t)

	assert.Equal(t, Summary{
		Address:       market,
		Operator:      operator,
		ListFeeRate:   1,
		BuyFeeRate:    3,
		CollectedFees: 10,
		Paused:        false,
		Listings:      1,
	}, f.market.Summary(ctx))
}

func TestRejectionsArePublished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	_ = f.market.WithdrawFees(ctx, alice)

	require.Len(t, f.events.events, 1)
	rejection := f.events.events[0].msg.(entity.OperationError)
	assert.Equal(t, "withdrawFees", rejection.Operation)
	assert.Equal(t, alice, rejection.Caller)
	assert.Equal(t, "NotOperator", rejection.Code)
	assert.NotEmpty(t, rejection.OperationId)
}

func TestConcurrentOperations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{ListFeeRate: 1, BuyFeeRate: 3})

	const assets = 50
	require.NoError(t, f.accounts.Credit(alice, assets*10))
	require.NoError(t, f.accounts.Credit(bob, assets*1030))
	for i := uint64(0); i < assets; i++ {
		f.registry.Assign(collection, i, alice)
	}

	var wg sync.WaitGroup
	errs := make(chan error, assets*2)
	for i := uint64(0); i < assets; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			if err := f.market.List(ctx, Call{Caller: alice, Value: 10}, collection, id, 1000); err != nil {
				errs <- fmt.Errorf("list %d: %w", id, err)
				return
			}
			if err := f.market.Buy(ctx, Call{Caller: bob, Value: 1030}, collection, id); err != nil {
				errs <- fmt.Errorf("buy %d: %w", id, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	assert.Equal(t, uint64(assets*40), f.market.CollectedFees(ctx))
	assert.Equal(t, uint64(assets*40), f.balance(t, market))
	assert.Equal(t, uint64(assets*1000), f.balance(t, alice))
	assert.Empty(t, f.market.Listings(ctx))
	for i := uint64(0); i < assets; i++ {
		assert.Equal(t, bob, f.holder(t, i))
	}
}

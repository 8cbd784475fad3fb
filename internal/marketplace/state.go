package marketplace

import (
	"context"
	"fmt"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"go.uber.org/zap"
)

// Every mutation below is journaled so the enclosing frame can be reverted.

func (f *frame) putListing(listing entity.Listing) {
	m := f.op.marketplace
	key := listing.Key()

	previous, existed := m.listings[key]
	m.listings[key] = listing

	f.onRevert(func(context.Context) error {
		if existed {
			m.listings[key] = previous
		} else {
			delete(m.listings, key)
		}
		return nil
	})
}

func (f *frame) deleteListing(key entity.ListingKey) {
	m := f.op.marketplace

	previous, existed := m.listings[key]
	if !existed {
		return
	}
	delete(m.listings, key)

	f.onRevert(func(context.Context) error {
		m.listings[key] = previous
		return nil
	})
}

func (f *frame) creditFees(fee uint64) {
	m := f.op.marketplace

	previous := m.collectedFees
	m.collectedFees += fee

	f.onRevert(func(context.Context) error {
		m.collectedFees = previous
		return nil
	})
}

func (f *frame) drainFees() uint64 {
	m := f.op.marketplace

	amount := m.collectedFees
	m.collectedFees = 0

	f.onRevert(func(context.Context) error {
		m.collectedFees = amount
		return nil
	})

	return amount
}

func (f *frame) setListFeeRate(rate uint) {
	m := f.op.marketplace

	previous := m.listFeeRate
	m.listFeeRate = rate

	f.onRevert(func(context.Context) error {
		m.listFeeRate = previous
		return nil
	})
}

func (f *frame) setBuyFeeRate(rate uint) {
	m := f.op.marketplace

	previous := m.buyFeeRate
	m.buyFeeRate = rate

	f.onRevert(func(context.Context) error {
		m.buyFeeRate = previous
		return nil
	})
}

func (f *frame) setPaused(paused bool) {
	m := f.op.marketplace

	previous := m.paused
	m.paused = paused

	f.onRevert(func(context.Context) error {
		m.paused = previous
		return nil
	})
}

func (f *frame) setOperator(operator entity.Address) {
	m := f.op.marketplace

	previous := m.operator
	m.operator = operator

	f.onRevert(func(context.Context) error {
		m.operator = previous
		return nil
	})
}

// collect moves an attached payment from the caller into the marketplace account.
func (f *frame) collect(ctx context.Context, from entity.Address, amount uint64) error {
	m := f.op.marketplace
	if amount == 0 {
		return nil
	}

	err := f.callOut(func() error { return m.ledger.Transfer(ctx, from, m.address, amount) })
	if err != nil {
		return fmt.Errorf("%w: payment from %s: %v", ErrTransferFailed, from, err)
	}

	f.onRevert(func(ctx context.Context) error {
		err := f.callOut(func() error { return m.ledger.Transfer(ctx, m.address, from, amount) })
		if err != nil {
			zap.L().With(
				zap.String("operationId", f.id),
				zap.String("to", from.String()),
				zap.Uint64("amount", amount),
				zap.Error(err),
			).Error("Marketplace: Failed to refund payment")
			return fmt.Errorf("refund of %d to %s: %v", amount, from, err)
		}
		return nil
	})

	return nil
}

// pay forwards value from the marketplace account.
func (f *frame) pay(ctx context.Context, to entity.Address, amount uint64) error {
	m := f.op.marketplace
	if amount == 0 {
		return nil
	}

	err := f.callOut(func() error { return m.ledger.Transfer(ctx, m.address, to, amount) })
	if err != nil {
		return fmt.Errorf("%w: payment to %s: %v", ErrTransferFailed, to, err)
	}

	f.onRevert(func(ctx context.Context) error {
		err := f.callOut(func() error { return m.ledger.Transfer(ctx, to, m.address, amount) })
		if err != nil {
			zap.L().With(
				zap.String("operationId", f.id),
				zap.String("from", to.String()),
				zap.Uint64("amount", amount),
				zap.Error(err),
			).Error("Marketplace: Failed to reclaim payment")
			return fmt.Errorf("reclaim of %d from %s: %v", amount, to, err)
		}
		return nil
	})

	return nil
}

func (f *frame) currentHolder(ctx context.Context, collection entity.Address, assetId uint64) (holder entity.Address, err error) {
	m := f.op.marketplace

	err = f.callOut(func() error {
		holder, err = m.custodian.CurrentHolder(ctx, collection, assetId)
		return err
	})

	return holder, err
}

func (f *frame) transferCustody(ctx context.Context, key entity.ListingKey, from, to entity.Address) error {
	m := f.op.marketplace

	err := f.callOut(func() error { return m.custodian.TransferCustody(ctx, key.Collection, key.AssetId, from, to) })
	if err != nil {
		return fmt.Errorf("%w: custody of %s: %v", ErrTransferFailed, key.Slug(), err)
	}

	f.onRevert(func(ctx context.Context) error {
		err := f.callOut(func() error { return m.custodian.TransferCustody(ctx, key.Collection, key.AssetId, to, from) })
		if err != nil {
			zap.L().With(
				zap.String("operationId", f.id),
				zap.String("collection", key.Collection.String()),
				zap.Uint64("assetId", key.AssetId),
				zap.Error(err),
			).Error("Marketplace: Failed to return custody")
			return fmt.Errorf("return of %s to %s: %v", key.Slug(), from, err)
		}
		return nil
	})

	return nil
}

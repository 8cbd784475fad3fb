package marketplace

import (
	"context"
	"fmt"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/event"
	"go.uber.org/zap"
)

const (
	SettingListFeeRate = "listFeeRate"
	SettingBuyFeeRate  = "buyFeeRate"
)

// List offers an asset the caller holds. The attached value must equal the listing fee exactly.
// Listing an asset that is already listed replaces the previous listing.
func (m *Marketplace) List(ctx context.Context, call Call, collection entity.Address, assetId uint64, price uint64) error {
	return m.execute(ctx, "list", call.Caller, func(ctx context.Context, f *frame) error {
		if m.paused {
			return ErrSystemPaused
		}
		if price == 0 {
			return ErrPriceZero
		}

		holder, err := f.currentHolder(ctx, collection, assetId)
		if err != nil {
			return fmt.Errorf("custody lookup: %w", err)
		}
		if holder.IsNull() || holder != call.Caller {
			return ErrNotAssetOwner
		}

		rate := m.listFeeRate
		fee := CalculateFee(price, rate)
		if call.Value != fee {
			return fmt.Errorf("%w: expected %d, got %d", ErrIncorrectFee, fee, call.Value)
		}

		listing := entity.Listing{
			Seller:     call.Caller,
			Collection: collection,
			AssetId:    assetId,
			Price:      price,
		}
		f.creditFees(fee)
		f.putListing(listing)

		if err := f.collect(ctx, call.Caller, call.Value); err != nil {
			return err
		}

		zap.L().With(
			zap.String("operationId", f.id),
			zap.String("collection", collection.String()),
			zap.Uint64("assetId", assetId),
			zap.String("seller", call.Caller.String()),
			zap.Uint64("price", price),
			zap.Uint64("fee", fee),
		).Info("Marketplace: Listing created")

		f.notify(event.ListingCreatedEvent, createListingAction(listing, fee))
		f.notify(event.FeeCollectedEvent, createFeeAction(listing.Key(), call.Caller, fee, rate, SettingListFeeRate))

		return nil
	})
}

// Buy purchases a listed asset. The attached value must equal price plus the buy fee exactly.
// The listing is removed and the fee booked before the payment is taken, custody moves or the
// seller is paid.
func (m *Marketplace) Buy(ctx context.Context, call Call, collection entity.Address, assetId uint64) error {
	return m.execute(ctx, "buy", call.Caller, func(ctx context.Context, f *frame) error {
		if m.paused {
			return ErrSystemPaused
		}

		key := entity.ListingKey{Collection: collection, AssetId: assetId}
		listing, ok := m.listings[key]
		if !ok || !listing.Exists() {
			return ErrListingNotFound
		}

		rate := m.buyFeeRate
		total, fee, ok := PurchaseTotal(listing.Price, rate)
		if !ok || call.Value != total {
			return fmt.Errorf("%w: expected %d, got %d", ErrIncorrectPrice, total, call.Value)
		}

		f.creditFees(fee)
		f.deleteListing(key)

		if err := f.collect(ctx, call.Caller, call.Value); err != nil {
			return err
		}
		if err := f.transferCustody(ctx, key, listing.Seller, call.Caller); err != nil {
			return err
		}

		proceeds := listing.Price
		if m.forwardBuyFee {
			proceeds = total
		}
		if err := f.pay(ctx, listing.Seller, proceeds); err != nil {
			return err
		}

		zap.L().With(
			zap.String("operationId", f.id),
			zap.String("collection", collection.String()),
			zap.Uint64("assetId", assetId),
			zap.String("from", listing.Seller.String()),
			zap.String("to", call.Caller.String()),
			zap.Uint64("price", listing.Price),
			zap.Uint64("fee", fee),
			zap.Uint64("proceeds", proceeds),
		).Info("Marketplace: Listing sold")

		f.notify(event.ListingSoldEvent, createSaleAction(listing, call.Caller, fee, proceeds))
		f.notify(event.FeeCollectedEvent, createFeeAction(key, call.Caller, fee, rate, SettingBuyFeeRate))

		return nil
	})
}

// Cancel removes the caller's listing. The listing fee is not refunded.
func (m *Marketplace) Cancel(ctx context.Context, caller entity.Address, collection entity.Address, assetId uint64) error {
	return m.execute(ctx, "cancel", caller, func(ctx context.Context, f *frame) error {
		if m.paused {
			return ErrSystemPaused
		}

		key := entity.ListingKey{Collection: collection, AssetId: assetId}
		listing, ok := m.listings[key]
		if !ok || caller.IsNull() || listing.Seller != caller {
			return ErrNotListingOwner
		}

		f.deleteListing(key)

		zap.L().With(
			zap.String("operationId", f.id),
			zap.String("collection", collection.String()),
			zap.Uint64("assetId", assetId),
			zap.String("seller", caller.String()),
		).Info("Marketplace: Listing canceled")

		f.notify(event.ListingCanceledEvent, createDelistingAction(listing))

		return nil
	})
}

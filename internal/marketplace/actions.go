package marketplace

import (
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
)

func createListingAction(listing entity.Listing, fee uint64) entity.MarketplaceAction {
	return entity.MarketplaceAction{
		Action:     entity.ListingAction,
		Collection: listing.Collection,
		AssetId:    listing.AssetId,
		From:       listing.Seller,
		Price:      listing.Price,
		Fee:        fee,
		Time:       time.Now(),
	}
}

func createDelistingAction(listing entity.Listing) entity.MarketplaceAction {
	return entity.MarketplaceAction{
		Action:     entity.DelistingAction,
		Collection: listing.Collection,
		AssetId:    listing.AssetId,
		From:       listing.Seller,
		Price:      listing.Price,
		Time:       time.Now(),
	}
}

func createSaleAction(listing entity.Listing, buyer entity.Address, fee, proceeds uint64) entity.MarketplaceAction {
	return entity.MarketplaceAction{
		Action:     entity.SaleAction,
		Collection: listing.Collection,
		AssetId:    listing.AssetId,
		From:       listing.Seller,
		To:         buyer,
		Price:      listing.Price,
		Fee:        fee,
		Amount:     proceeds,
		Time:       time.Now(),
	}
}

func createFeeAction(key entity.ListingKey, payer entity.Address, fee uint64, rate uint, setting string) entity.MarketplaceAction {
	return entity.MarketplaceAction{
		Action:     entity.FeeAction,
		Collection: key.Collection,
		AssetId:    key.AssetId,
		From:       payer,
		Fee:        fee,
		Amount:     fee,
		Rate:       rate,
		Setting:    setting,
		Time:       time.Now(),
	}
}

func createWithdrawalAction(from, operator entity.Address, amount uint64) entity.MarketplaceAction {
	return entity.MarketplaceAction{
		Action: entity.WithdrawalAction,
		From:   from,
		To:     operator,
		Amount: amount,
		Time:   time.Now(),
	}
}

func createConfigAction(operator entity.Address, setting string, rate uint) entity.MarketplaceAction {
	return entity.MarketplaceAction{
		Action:  entity.ConfigAction,
		From:    operator,
		Rate:    rate,
		Setting: setting,
		Time:    time.Now(),
	}
}

func createGateAction(action entity.ActionType, from, to entity.Address) entity.MarketplaceAction {
	return entity.MarketplaceAction{
		Action: action,
		From:   from,
		To:     to,
		Time:   time.Now(),
	}
}

package entity

import (
	"crypto/md5"
	"fmt"
	"time"
)

type MarketplaceAction struct {
	OperationId string     `json:"operationId"`
	Action      ActionType `json:"action"`
	Collection  Address    `json:"collection,omitempty"`
	AssetId     uint64     `json:"assetId"`
	From        Address    `json:"from,omitempty"`
	To          Address    `json:"to,omitempty"`
	Price       uint64     `json:"price"`
	Fee         uint64     `json:"fee"`
	Amount      uint64     `json:"amount"`
	Rate        uint       `json:"rate"`
	Setting     string     `json:"setting,omitempty"`
	Time        time.Time  `json:"time"`
}

type ActionType string

const (
	ListingAction    ActionType = "listing"
	DelistingAction  ActionType = "delisting"
	SaleAction       ActionType = "sale"
	FeeAction        ActionType = "fee"
	WithdrawalAction ActionType = "withdrawal"
	ConfigAction     ActionType = "config"
	PauseAction      ActionType = "pause"
	UnpauseAction    ActionType = "unpause"
	OperatorAction   ActionType = "operator"
)

func (a MarketplaceAction) Slug() string {
	return CreateMarketplaceActionSlug(a.OperationId, string(a.Action), a.Collection, a.AssetId)
}

func CreateMarketplaceActionSlug(operationId, action string, collection Address, assetId uint64) string {
	data := []byte(fmt.Sprintf("action-%s-%s-%s-%d", operationId, action, collection, assetId))
	return fmt.Sprintf("%x", md5.Sum(data))
}

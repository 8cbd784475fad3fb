package entity

import (
	"fmt"

	"github.com/gosimple/slug"
)

type ListingKey struct {
	Collection Address `json:"collection"`
	AssetId    uint64  `json:"assetId"`
}

func (k ListingKey) Slug() string {
	return CreateListingSlug(k.AssetId, k.Collection)
}

// Listing is an active offer. A zero Price means there is no listing.
type Listing struct {
	Seller     Address `json:"seller"`
	Collection Address `json:"collection"`
	AssetId    uint64  `json:"assetId"`
	Price      uint64  `json:"price"`
}

func (l Listing) Key() ListingKey {
	return ListingKey{Collection: l.Collection, AssetId: l.AssetId}
}

func (l Listing) Slug() string {
	return CreateListingSlug(l.AssetId, l.Collection)
}

func (l Listing) Exists() bool {
	return l.Price > 0
}

func CreateListingSlug(assetId uint64, collection Address) string {
	return slug.Make(fmt.Sprintf("listing-%d-%s", assetId, collection))
}

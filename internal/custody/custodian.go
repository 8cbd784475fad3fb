package custody

import (
	"context"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
)

// Custodian knows which identity holds an asset and moves assets between holders.
type Custodian interface {
	CurrentHolder(ctx context.Context, collection entity.Address, assetId uint64) (entity.Address, error)
	TransferCustody(ctx context.Context, collection entity.Address, assetId uint64, from, to entity.Address) error
}

package custody

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"go.uber.org/zap"
)

var (
	ErrNotHolder        = errors.New("custody: sender is not the current holder")
	ErrInvalidRecipient = errors.New("custody: invalid recipient")
	ErrInvalidGenesis   = errors.New("custody: invalid genesis entry")
)

// Registry is an in-memory custody book. Unknown assets are held by the null address.
type Registry struct {
	mu      sync.RWMutex
	holders map[entity.ListingKey]entity.Address
}

func NewRegistry() *Registry {
	return &Registry{holders: make(map[entity.ListingKey]entity.Address)}
}

// Assign records holder as the owner of the asset regardless of the previous holder.
func (r *Registry) Assign(collection entity.Address, assetId uint64, holder entity.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.holders[entity.ListingKey{Collection: collection, AssetId: assetId}] = holder
}

func (r *Registry) CurrentHolder(_ context.Context, collection entity.Address, assetId uint64) (entity.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	holder, ok := r.holders[entity.ListingKey{Collection: collection, AssetId: assetId}]
	if !ok {
		return entity.NullAddress, nil
	}
	return holder, nil
}

func (r *Registry) TransferCustody(_ context.Context, collection entity.Address, assetId uint64, from, to entity.Address) error {
	if to.IsNull() {
		return ErrInvalidRecipient
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := entity.ListingKey{Collection: collection, AssetId: assetId}
	if holder, ok := r.holders[key]; !ok || holder != from {
		return ErrNotHolder
	}
	r.holders[key] = to

	zap.L().With(
		zap.String("collection", collection.String()),
		zap.Uint64("assetId", assetId),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	).Debug("Custody: Transfer")

	return nil
}

// LoadGenesis seeds the registry from "collection:assetId:holder" entries.
func (r *Registry) LoadGenesis(entries []string) error {
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return fmt.Errorf("%w: %s", ErrInvalidGenesis, entry)
		}

		collection, err := entity.ParseAddress(parts[0])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
		}
		assetId, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidGenesis, entry)
		}
		holder, err := entity.ParseAddress(parts[2])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
		}

		r.Assign(collection, assetId, holder)
	}

	return nil
}

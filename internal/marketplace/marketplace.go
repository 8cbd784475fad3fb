// Package marketplace holds the listing registry, the fee ledger and the operator gate.
//
// All state lives on a Marketplace value. Public operations are serialised and atomic:
// a failing operation leaves the state exactly as it was before the call. Internal state is
// always committed before any collaborator is called, payment collection included, so a
// collaborator that re-enters the marketplace with the operation's context observes the
// updated listing and ledger.
package marketplace

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/custody"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/event"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/wallet"
	"go.uber.org/zap"
)

type Publisher interface {
	EmitEvent(eventType event.Type, msg interface{})
}

type Config struct {
	// Address is the account that receives payments and holds collected fees.
	Address       entity.Address
	Operator      entity.Address
	ListFeeRate   uint
	BuyFeeRate    uint
	// ForwardBuyFee pays the seller price plus the buy fee while the fee is still booked.
	// Off by default: the seller receives the price and the fee stays with the marketplace.
	ForwardBuyFee bool
	Paused        bool
	// ReentryWait bounds how long a call waits on an operation blocked in a collaborator.
	// Defaults to DefaultReentryWait.
	ReentryWait   time.Duration
}

// Call carries the caller identity and the value attached to a payable operation.
type Call struct {
	Caller entity.Address
	Value  uint64
}

type Marketplace struct {
	lock        chan struct{}
	outboundMu  sync.RWMutex
	outbound    chan struct{}
	reentryWait time.Duration

	address       entity.Address
	forwardBuyFee bool
	custodian     custody.Custodian
	ledger        wallet.Ledger
	publisher     Publisher

	listings      map[entity.ListingKey]entity.Listing
	collectedFees uint64
	listFeeRate   uint
	buyFeeRate    uint
	operator      entity.Address
	paused        bool
}

// Summary is a consistent snapshot of the fee configuration and gate state.
type Summary struct {
	Address       entity.Address `json:"address"`
	Operator      entity.Address `json:"operator"`
	ListFeeRate   uint           `json:"listFeeRate"`
	BuyFeeRate    uint           `json:"buyFeeRate"`
	CollectedFees uint64         `json:"collectedFees"`
	Paused        bool           `json:"paused"`
	Listings      int            `json:"listings"`
}

func New(cfg Config, custodian custody.Custodian, ledger wallet.Ledger, publisher Publisher) (*Marketplace, error) {
	if cfg.Address.IsNull() {
		return nil, fmt.Errorf("%w: marketplace address", entity.ErrInvalidAddress)
	}
	if cfg.Operator.IsNull() {
		return nil, ErrInvalidOperator
	}
	if cfg.ListFeeRate > MaxFeeRate || cfg.BuyFeeRate > MaxFeeRate {
		return nil, ErrRateTooHigh
	}

	reentryWait := cfg.ReentryWait
	if reentryWait <= 0 {
		reentryWait = DefaultReentryWait
	}

	zap.L().With(
		zap.String("address", cfg.Address.String()),
		zap.String("operator", cfg.Operator.String()),
		zap.Uint("listFeeRate", cfg.ListFeeRate),
		zap.Uint("buyFeeRate", cfg.BuyFeeRate),
		zap.Bool("forwardBuyFee", cfg.ForwardBuyFee),
		zap.Bool("paused", cfg.Paused),
	).Info("Marketplace: Started")

	return &Marketplace{
		lock:          make(chan struct{}, 1),
		reentryWait:   reentryWait,
		address:       cfg.Address,
		forwardBuyFee: cfg.ForwardBuyFee,
		custodian:     custodian,
		ledger:        ledger,
		publisher:     publisher,
		listings:      make(map[entity.ListingKey]entity.Listing),
		listFeeRate:   cfg.ListFeeRate,
		buyFeeRate:    cfg.BuyFeeRate,
		operator:      cfg.Operator,
		paused:        cfg.Paused,
	}, nil
}

func (m *Marketplace) emit(eventType event.Type, msg interface{}) {
	if m.publisher == nil {
		return
	}
	m.publisher.EmitEvent(eventType, msg)
}

// view runs fn with the state readable. Inside a running operation the lock is already held.
// A query that cannot take the lock because it comes from inside a collaborator reads the
// state the running operation left before calling out.
func (m *Marketplace) view(ctx context.Context, fn func()) {
	if _, ok := operationFrom(ctx, m); ok {
		fn()
		return
	}

	for {
		if err := m.acquire(context.Background()); err == nil {
			defer m.release()
			fn()
			return
		}

		m.outboundMu.RLock()
		if m.outbound != nil {
			fn()
			m.outboundMu.RUnlock()
			return
		}
		m.outboundMu.RUnlock()
	}
}

func (m *Marketplace) Address() entity.Address {
	return m.address
}

// GetListing returns the active listing for the asset, or false when there is none.
func (m *Marketplace) GetListing(ctx context.Context, collection entity.Address, assetId uint64) (listing entity.Listing, ok bool) {
	m.view(ctx, func() {
		listing, ok = m.listings[entity.ListingKey{Collection: collection, AssetId: assetId}]
	})
	return listing, ok && listing.Exists()
}

// Listings returns every active listing ordered by slug.
func (m *Marketplace) Listings(ctx context.Context) []entity.Listing {
	listings := make([]entity.Listing, 0)
	m.view(ctx, func() {
		for _, l := range m.listings {
			listings = append(listings, l)
		}
	})

	sort.Slice(listings, func(i, j int) bool {
		return listings[i].Slug() < listings[j].Slug()
	})

	return listings
}

func (m *Marketplace) ListFeeRate(ctx context.Context) (rate uint) {
	m.view(ctx, func() { rate = m.listFeeRate })
	return
}

func (m *Marketplace) BuyFeeRate(ctx context.Context) (rate uint) {
	m.view(ctx, func() { rate = m.buyFeeRate })
	return
}

func (m *Marketplace) CollectedFees(ctx context.Context) (fees uint64) {
	m.view(ctx, func() { fees = m.collectedFees })
	return
}

func (m *Marketplace) Paused(ctx context.Context) (paused bool) {
	m.view(ctx, func() { paused = m.paused })
	return
}

func (m *Marketplace) Operator(ctx context.Context) (operator entity.Address) {
	m.view(ctx, func() { operator = m.operator })
	return
}

func (m *Marketplace) Summary(ctx context.Context) (s Summary) {
	m.view(ctx, func() {
		s = Summary{
			Address:       m.address,
			Operator:      m.operator,
			ListFeeRate:   m.listFeeRate,
			BuyFeeRate:    m.buyFeeRate,
			CollectedFees: m.collectedFees,
			Paused:        m.paused,
			Listings:      len(m.listings),
		}
	})
	return
}

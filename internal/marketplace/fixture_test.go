package marketplace

import (
	"context"
	"sync"
	"testing"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/custody"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/event"
	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/wallet"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	operator   = entity.MustParseAddress("0x0000000000000000000000000000000000000001")
	market     = entity.MustParseAddress("0x0000000000000000000000000000000000000002")
	alice      = entity.MustParseAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob        = entity.MustParseAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	mallory    = entity.MustParseAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	collection = entity.MustParseAddress("0x2222222222222222222222222222222222222222")
)

type recorded struct {
	eventType event.Type
	msg       interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recorded
}

func (p *recordingPublisher) EmitEvent(eventType event.Type, msg interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recorded{eventType, msg})
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.eventType)
	}
	return types
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// hookCustodian runs onTransfer before delegating to the registry.
type hookCustodian struct {
	*custody.Registry
	onTransfer func(ctx context.Context) error
}

func (c *hookCustodian) TransferCustody(ctx context.Context, collection entity.Address, assetId uint64, from, to entity.Address) error {
	if c.onTransfer != nil {
		if err := c.onTransfer(ctx); err != nil {
			return err
		}
	}
	return c.Registry.TransferCustody(ctx, collection, assetId, from, to)
}

// hookLedger runs onTransfer before delegating to the accounts.
type hookLedger struct {
	*wallet.Accounts
	onTransfer func(ctx context.Context, from, to entity.Address, amount uint64) error
}

func (l *hookLedger) Transfer(ctx context.Context, from, to entity.Address, amount uint64) error {
	if l.onTransfer != nil {
		if err := l.onTransfer(ctx, from, to, amount); err != nil {
			return err
		}
	}
	return l.Accounts.Transfer(ctx, from, to, amount)
}

type mockCustodian struct {
	mock.Mock
}

func (m *mockCustodian) CurrentHolder(ctx context.Context, collection entity.Address, assetId uint64) (entity.Address, error) {
	args := m.Called(ctx, collection, assetId)
	return args.Get(0).(entity.Address), args.Error(1)
}

func (m *mockCustodian) TransferCustody(ctx context.Context, collection entity.Address, assetId uint64, from, to entity.Address) error {
	args := m.Called(ctx, collection, assetId, from, to)
	return args.Error(0)
}

type fixture struct {
	registry  *custody.Registry
	accounts  *wallet.Accounts
	custodian *hookCustodian
	ledger    *hookLedger
	events    *recordingPublisher
	market    *Marketplace
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	registry := custody.NewRegistry()
	accounts := wallet.NewAccounts()

	f := &fixture{
		registry:  registry,
		accounts:  accounts,
		custodian: &hookCustodian{Registry: registry},
		ledger:    &hookLedger{Accounts: accounts},
		events:    &recordingPublisher{},
	}

	cfg.Address = market
	cfg.Operator = operator

	m, err := New(cfg, f.custodian, f.ledger, f.events)
	require.NoError(t, err)
	f.market = m

	return f
}

func (f *fixture) balance(t *testing.T, account entity.Address) uint64 {
	t.Helper()
	b, err := f.accounts.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return b
}

func (f *fixture) holder(t *testing.T, assetId uint64) entity.Address {
	t.Helper()
	h, err := f.registry.CurrentHolder(context.Background(), collection, assetId)
	require.NoError(t, err)
	return h
}

// listed seeds alice with asset 7 and lists it at 1000.
func (f *fixture) listed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	f.registry.Assign(collection, 7, alice)
	fee := CalculateFee(1000, f.market.ListFeeRate(ctx))
	require.NoError(t, f.accounts.Credit(alice, fee))
	require.NoError(t, f.market.List(ctx, Call{Caller: alice, Value: fee}, collection, 7, 1000))
	f.events.reset()
}

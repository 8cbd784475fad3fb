package custody

import (
	"context"
	"testing"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	collection = entity.MustParseAddress("0x2222222222222222222222222222222222222222")
	alice      = entity.MustParseAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob        = entity.MustParseAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func TestRegistryUnknownAssetHeldByNullAddress(t *testing.T) {
	r := NewRegistry()

	holder, err := r.CurrentHolder(context.Background(), collection, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.NullAddress, holder)
}

func TestRegistryTransferCustody(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	r.Assign(collection, 1, alice)

	assert.ErrorIs(t, r.TransferCustody(ctx, collection, 1, bob, alice), ErrNotHolder)
	assert.ErrorIs(t, r.TransferCustody(ctx, collection, 2, alice, bob), ErrNotHolder)
	assert.ErrorIs(t, r.TransferCustody(ctx, collection, 1, alice, entity.NullAddress), ErrInvalidRecipient)

	require.NoError(t, r.TransferCustody(ctx, collection, 1, alice, bob))

	holder, err := r.CurrentHolder(ctx, collection, 1)
	require.NoError(t, err)
	assert.Equal(t, bob, holder)
}

func TestRegistryLoadGenesis(t *testing.T) {
	r := NewRegistry()

	err := r.LoadGenesis([]string{
		" 0x2222222222222222222222222222222222222222:7:0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"",
	})
	require.NoError(t, err)

	holder, _ := r.CurrentHolder(context.Background(), collection, 7)
	assert.Equal(t, alice, holder)

	assert.ErrorIs(t, r.LoadGenesis([]string{"0x22:7"}), ErrInvalidGenesis)
	assert.ErrorIs(t, r.LoadGenesis([]string{"0x2222222222222222222222222222222222222222:x:0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}), ErrInvalidGenesis)
	assert.ErrorIs(t, r.LoadGenesis([]string{"0x2222222222222222222222222222222222222222:1:nope"}), ErrInvalidGenesis)
}

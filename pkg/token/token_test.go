// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package token

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
)

type fixture struct {
	store     *ledger.Store
	authority chain.Pubkey
	holder    chain.Pubkey
	mint      chain.Pubkey
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:     ledger.NewStore(),
		authority: solana.NewWallet().PublicKey(),
		holder:    solana.NewWallet().PublicKey(),
		mint:      solana.NewWallet().PublicKey(),
	}
	_, err := f.store.Execute(context.Background(), []chain.Pubkey{f.authority, f.mint}, func(tx *ledger.Tx) error {
		return InitializeMint(tx, f.mint, 0, f.authority)
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) exec(signer chain.Pubkey, fn func(*ledger.Tx) error) (*ledger.Receipt, error) {
	return f.store.Execute(context.Background(), []chain.Pubkey{signer}, fn)
}

func TestMintToAssociatedAccount(t *testing.T) {
	f := newFixture(t)
	var ata chain.Pubkey
	_, err := f.exec(f.authority, func(tx *ledger.Tx) error {
		var err error
		if ata, err = EnsureAssociatedAccount(tx, f.holder, f.mint); err != nil {
			return err
		}
		return MintTo(tx, f.mint, ata, f.authority, 100)
	})
	require.NoError(t, err)

	want, err := AssociatedAddress(f.holder, f.mint)
	require.NoError(t, err)
	assert.Equal(t, want, ata, "canonical address")

	m, err := ReadMint(f.store, f.mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), m.Supply, "supply")
	assert.Equal(t, uint64(100), Balance(f.store, ata), "balance")

	acc, err := ReadAccount(f.store, ata)
	require.NoError(t, err)
	assert.Equal(t, f.holder, acc.Owner, "holder owns account")
	assert.Equal(t, StateInitialized, acc.State, "initialized")

	// ensure is idempotent
	_, err = f.exec(f.authority, func(tx *ledger.Tx) error {
		again, err := EnsureAssociatedAccount(tx, f.holder, f.mint)
		assert.Equal(t, ata, again, "same account")
		return err
	})
	require.NoError(t, err)
}

func TestMintRequiresAuthority(t *testing.T) {
	f := newFixture(t)
	other := solana.NewWallet().PublicKey()
	_, err := f.exec(other, func(tx *ledger.Tx) error {
		ata, err := EnsureAssociatedAccount(tx, f.holder, f.mint)
		if err != nil {
			return err
		}
		return MintTo(tx, f.mint, ata, other, 1)
	})
	assert.ErrorIs(t, err, ErrAuthorityMismatch, "foreign authority")

	_, err = f.exec(other, func(tx *ledger.Tx) error {
		ata, err := EnsureAssociatedAccount(tx, f.holder, f.mint)
		if err != nil {
			return err
		}
		return MintTo(tx, f.mint, ata, f.authority, 1)
	})
	assert.ErrorIs(t, err, ErrMissingSignature, "authority did not sign")
}

func TestRevokedAuthorityFixesSupply(t *testing.T) {
	f := newFixture(t)
	_, err := f.exec(f.authority, func(tx *ledger.Tx) error {
		ata, err := EnsureAssociatedAccount(tx, f.holder, f.mint)
		if err != nil {
			return err
		}
		if err := MintTo(tx, f.mint, ata, f.authority, 1); err != nil {
			return err
		}
		return SetAuthority(tx, f.mint, f.authority, chain.Pubkey{})
	})
	require.NoError(t, err)

	m, err := ReadMint(f.store, f.mint)
	require.NoError(t, err)
	assert.True(t, m.IsFixed(), "authority revoked")
	assert.Equal(t, uint64(1), m.Supply, "single unit")

	_, err = f.exec(f.authority, func(tx *ledger.Tx) error {
		ata, _ := AssociatedAddress(f.holder, f.mint)
		return MintTo(tx, f.mint, ata, f.authority, 1)
	})
	assert.ErrorIs(t, err, ErrFixedSupply, "no second unit")

	_, err = f.exec(f.authority, func(tx *ledger.Tx) error {
		return SetAuthority(tx, f.mint, f.authority, f.authority)
	})
	assert.ErrorIs(t, err, ErrFixedSupply, "cannot restore authority")
}

func TestTransferAndBurn(t *testing.T) {
	f := newFixture(t)
	buyer := solana.NewWallet().PublicKey()
	var src, dst chain.Pubkey
	_, err := f.exec(f.authority, func(tx *ledger.Tx) error {
		var err error
		if src, err = EnsureAssociatedAccount(tx, f.holder, f.mint); err != nil {
			return err
		}
		if dst, err = EnsureAssociatedAccount(tx, buyer, f.mint); err != nil {
			return err
		}
		return MintTo(tx, f.mint, src, f.authority, 50)
	})
	require.NoError(t, err)

	_, err = f.exec(buyer, func(tx *ledger.Tx) error {
		return Transfer(tx, src, dst, f.holder, 10)
	})
	assert.ErrorIs(t, err, ErrMissingSignature, "holder must sign")

	_, err = f.exec(f.holder, func(tx *ledger.Tx) error {
		return Transfer(tx, src, dst, f.holder, 51)
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds, "overdraw")

	_, err = f.exec(f.holder, func(tx *ledger.Tx) error {
		return Transfer(tx, src, dst, f.holder, 20)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(30), Balance(f.store, src), "source debited")
	assert.Equal(t, uint64(20), Balance(f.store, dst), "destination credited")

	_, err = f.exec(buyer, func(tx *ledger.Tx) error {
		return Burn(tx, dst, f.mint, f.holder, 5)
	})
	assert.ErrorIs(t, err, ErrOwnerMismatch, "wrong holder")

	_, err = f.exec(buyer, func(tx *ledger.Tx) error {
		return Burn(tx, dst, f.mint, buyer, 5)
	})
	require.NoError(t, err)
	m, err := ReadMint(f.store, f.mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(45), m.Supply, "supply reduced by burn")
	assert.Equal(t, uint64(15), Balance(f.store, dst), "burned from holder")
}

func TestReadRejectsForeignAccounts(t *testing.T) {
	f := newFixture(t)
	_, err := ReadAccount(f.store, f.mint)
	assert.ErrorIs(t, err, ErrNotInitialized, "mint is not a holding")
	_, err = ReadMint(f.store, f.holder)
	assert.ErrorIs(t, err, ErrNotInitialized, "missing mint")

	_, err = f.store.Execute(context.Background(), []chain.Pubkey{f.authority, f.mint}, func(tx *ledger.Tx) error {
		return InitializeMint(tx, f.mint, 0, f.authority)
	})
	assert.ErrorIs(t, err, ledger.ErrAccountExists, "mint exists")
}

func TestInitializeMintNeedsMintSignature(t *testing.T) {
	f := newFixture(t)
	holding, err := AssociatedAddress(f.holder, f.mint)
	require.NoError(t, err)

	// a derived address has no key, so no mint can be placed there
	_, err = f.exec(f.authority, func(tx *ledger.Tx) error {
		return InitializeMint(tx, holding, 0, f.authority)
	})
	assert.ErrorIs(t, err, ErrMissingSignature, "unsigned mint address")

	_, err = f.exec(f.authority, func(tx *ledger.Tx) error {
		_, err := EnsureAssociatedAccount(tx, f.holder, f.mint)
		return err
	})
	require.NoError(t, err, "holding still creatable")
	_, err = ReadAccount(f.store, holding)
	assert.NoError(t, err, "holding account")
}

func TestAssociatedAccountOverFundedAddress(t *testing.T) {
	f := newFixture(t)
	holding, err := AssociatedAddress(f.holder, f.mint)
	require.NoError(t, err)
	require.NoError(t, f.store.Airdrop(holding, 3))

	_, err = f.exec(f.authority, func(tx *ledger.Tx) error {
		_, err := EnsureAssociatedAccount(tx, f.holder, f.mint)
		return err
	})
	require.NoError(t, err, "airdrop does not block the holding")
	acc, err := ReadAccount(f.store, holding)
	require.NoError(t, err)
	assert.Equal(t, f.holder, acc.Owner, "holder")
	assert.Equal(t, chain.Lamports(3), f.store.Balance(holding), "lamports kept")
}

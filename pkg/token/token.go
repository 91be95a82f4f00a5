// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package token

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"

	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
)

var ProgramID = solana.TokenProgramID

var (
	ErrFixedSupply       = errors.New("token: mint authority revoked, supply is fixed")
	ErrAuthorityMismatch = errors.New("token: wrong mint authority")
	ErrOwnerMismatch     = errors.New("token: account owner mismatch")
	ErrMintMismatch      = errors.New("token: account mint mismatch")
	ErrInsufficientFunds = errors.New("token: insufficient token balance")
	ErrMissingSignature  = errors.New("token: missing required signature")
	ErrNotInitialized    = errors.New("token: account not initialized")
)

// Serialized sizes of the two account layouts. Token accounts carry no
// discriminator, the kind is told apart by length.
const (
	MintSize    = 74
	AccountSize = 73
)

type AccountState uint8

const (
	StateUninitialized AccountState = iota
	StateInitialized
	StateFrozen
)

// Mint describes a token. A zero MintAuthority means no further units can
// ever be minted.
type Mint struct {
	MintAuthority   chain.Pubkey `json:"mint_authority"`
	Supply          uint64       `json:"supply"`
	Decimals        uint8        `json:"decimals"`
	IsInitialized   bool         `json:"is_initialized"`
	FreezeAuthority chain.Pubkey `json:"freeze_authority"`
}

func (m Mint) IsFixed() bool {
	return m.MintAuthority.IsZero()
}

// Account is a holding of a single mint.
type Account struct {
	Mint   chain.Pubkey `json:"mint"`
	Owner  chain.Pubkey `json:"owner"`
	Amount uint64       `json:"amount"`
	State  AccountState `json:"state"`
}

// AssociatedAddress returns the canonical holding account of owner for mint.
func AssociatedAddress(owner, mint chain.Pubkey) (chain.Pubkey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	return addr, err
}

func ReadMint(r ledger.Reader, addr chain.Pubkey) (Mint, error) {
	var m Mint
	acc, ok := r.Get(addr)
	if !ok {
		return m, fmt.Errorf("%w: mint %s", ErrNotInitialized, addr)
	}
	if !acc.Owner.Equals(ProgramID) || len(acc.Data) != MintSize {
		return m, fmt.Errorf("%w: %s is not a mint", ErrNotInitialized, addr)
	}
	if err := ledger.Decode(acc.Data, &m); err != nil {
		return m, err
	}
	if !m.IsInitialized {
		return m, fmt.Errorf("%w: mint %s", ErrNotInitialized, addr)
	}
	return m, nil
}

func ReadAccount(r ledger.Reader, addr chain.Pubkey) (Account, error) {
	var a Account
	acc, ok := r.Get(addr)
	if !ok {
		return a, fmt.Errorf("%w: account %s", ErrNotInitialized, addr)
	}
	if !acc.Owner.Equals(ProgramID) || len(acc.Data) != AccountSize {
		return a, fmt.Errorf("%w: %s is not a token account", ErrNotInitialized, addr)
	}
	if err := ledger.Decode(acc.Data, &a); err != nil {
		return a, err
	}
	if a.State == StateUninitialized {
		return a, fmt.Errorf("%w: account %s", ErrNotInitialized, addr)
	}
	return a, nil
}

// Balance returns the amount held at addr or zero when there is no such
// token account.
func Balance(r ledger.Reader, addr chain.Pubkey) uint64 {
	a, err := ReadAccount(r, addr)
	if err != nil {
		return 0
	}
	return a.Amount
}

func putMint(tx *ledger.Tx, addr chain.Pubkey, m Mint) error {
	buf, err := borsh.Serialize(m)
	if err != nil {
		return err
	}
	return tx.Put(addr, ProgramID, buf)
}

func putAccount(tx *ledger.Tx, addr chain.Pubkey, a Account) error {
	buf, err := borsh.Serialize(a)
	if err != nil {
		return err
	}
	return tx.Put(addr, ProgramID, buf)
}

// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package token

import (
	"fmt"

	"github.com/near/borsh-go"

	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
)

// InitializeMint creates a new mint at addr. The address must be unused
// and its key must have signed, so nobody can place a mint at an address
// derived for someone else.
func InitializeMint(tx *ledger.Tx, addr chain.Pubkey, decimals uint8, authority chain.Pubkey) error {
	if !tx.IsSigner(addr) {
		return fmt.Errorf("%w: mint %s", ErrMissingSignature, addr)
	}
	buf, err := borsh.Serialize(Mint{
		MintAuthority: authority,
		Decimals:      decimals,
		IsInitialized: true,
	})
	if err != nil {
		return err
	}
	return tx.Create(addr, ProgramID, buf)
}

// InitializeAccount creates a holding account at addr for mint.
func InitializeAccount(tx *ledger.Tx, addr, mint, owner chain.Pubkey) error {
	if _, err := ReadMint(tx, mint); err != nil {
		return err
	}
	buf, err := borsh.Serialize(Account{
		Mint:  mint,
		Owner: owner,
		State: StateInitialized,
	})
	if err != nil {
		return err
	}
	return tx.Create(addr, ProgramID, buf)
}

// EnsureAssociatedAccount returns the associated holding account of owner
// for mint, creating it when missing.
func EnsureAssociatedAccount(tx *ledger.Tx, owner, mint chain.Pubkey) (chain.Pubkey, error) {
	addr, err := AssociatedAddress(owner, mint)
	if err != nil {
		return chain.Pubkey{}, err
	}
	if !tx.Exists(addr) {
		return addr, InitializeAccount(tx, addr, mint, owner)
	}
	acc, err := ReadAccount(tx, addr)
	if err != nil {
		return addr, err
	}
	if !acc.Mint.Equals(mint) {
		return addr, fmt.Errorf("%w: %s", ErrMintMismatch, addr)
	}
	if !acc.Owner.Equals(owner) {
		return addr, fmt.Errorf("%w: %s", ErrOwnerMismatch, addr)
	}
	return addr, nil
}

// MintTo issues amount new units of mint into dest. The mint authority must
// have signed.
func MintTo(tx *ledger.Tx, mint, dest, authority chain.Pubkey, amount uint64) error {
	m, err := ReadMint(tx, mint)
	if err != nil {
		return err
	}
	if m.IsFixed() {
		return fmt.Errorf("%w: %s", ErrFixedSupply, mint)
	}
	if !m.MintAuthority.Equals(authority) {
		return fmt.Errorf("%w: %s", ErrAuthorityMismatch, mint)
	}
	if !tx.IsSigner(authority) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, authority)
	}
	acc, err := ReadAccount(tx, dest)
	if err != nil {
		return err
	}
	if !acc.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s", ErrMintMismatch, dest)
	}
	if m.Supply, err = chain.CheckedAdd(m.Supply, amount); err != nil {
		return err
	}
	if acc.Amount, err = chain.CheckedAdd(acc.Amount, amount); err != nil {
		return err
	}
	if err := putMint(tx, mint, m); err != nil {
		return err
	}
	return putAccount(tx, dest, acc)
}

// Burn destroys amount units held in account. The holder must have signed.
func Burn(tx *ledger.Tx, account, mint, owner chain.Pubkey, amount uint64) error {
	acc, err := ReadAccount(tx, account)
	if err != nil {
		return err
	}
	if !acc.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s", ErrMintMismatch, account)
	}
	if !acc.Owner.Equals(owner) {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, account)
	}
	if !tx.IsSigner(owner) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, owner)
	}
	if acc.Amount < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, account, acc.Amount, amount)
	}
	m, err := ReadMint(tx, mint)
	if err != nil {
		return err
	}
	if m.Supply, err = chain.CheckedSub(m.Supply, amount); err != nil {
		return err
	}
	acc.Amount -= amount
	if err := putMint(tx, mint, m); err != nil {
		return err
	}
	return putAccount(tx, account, acc)
}

// Transfer moves amount units between two holdings of the same mint.
func Transfer(tx *ledger.Tx, src, dst, owner chain.Pubkey, amount uint64) error {
	from, err := ReadAccount(tx, src)
	if err != nil {
		return err
	}
	to, err := ReadAccount(tx, dst)
	if err != nil {
		return err
	}
	if !from.Mint.Equals(to.Mint) {
		return fmt.Errorf("%w: %s -> %s", ErrMintMismatch, src, dst)
	}
	if !from.Owner.Equals(owner) {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, src)
	}
	if !tx.IsSigner(owner) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, owner)
	}
	if from.Amount < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, src, from.Amount, amount)
	}
	if src.Equals(dst) {
		return nil
	}
	if to.Amount, err = chain.CheckedAdd(to.Amount, amount); err != nil {
		return err
	}
	from.Amount -= amount
	if err := putAccount(tx, src, from); err != nil {
		return err
	}
	return putAccount(tx, dst, to)
}

// SetAuthority hands the mint authority to next. A zero next revokes it for
// good.
func SetAuthority(tx *ledger.Tx, mint, current, next chain.Pubkey) error {
	m, err := ReadMint(tx, mint)
	if err != nil {
		return err
	}
	if m.IsFixed() {
		return fmt.Errorf("%w: %s", ErrFixedSupply, mint)
	}
	if !m.MintAuthority.Equals(current) {
		return fmt.Errorf("%w: %s", ErrAuthorityMismatch, mint)
	}
	if !tx.IsSigner(current) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, current)
	}
	m.MintAuthority = next
	return putMint(tx, mint, m)
}

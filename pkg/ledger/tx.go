// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"fmt"

	"github.com/echa/log"
	"github.com/gagliardetto/solana-go"

	"blockwatch.cc/carbonpay/pkg/chain"
)

var SystemProgramID = solana.SystemProgramID

// Tx is the view of the ledger an executing instruction works on. Reads fall
// through to committed state, writes stay in the transaction until commit.
type Tx struct {
	store   *Store
	ctx     chain.CallContext
	derived []chain.Pubkey
	writes  map[chain.Pubkey]*Account
	logs    []string
}

func newTx(s *Store, ctx chain.CallContext) *Tx {
	return &Tx{
		store:  s,
		ctx:    ctx,
		writes: make(map[chain.Pubkey]*Account),
	}
}

func (tx *Tx) Context() chain.CallContext {
	return tx.ctx
}

func (tx *Tx) lookup(addr chain.Pubkey) (*Account, bool) {
	if acc, ok := tx.writes[addr]; ok {
		return acc, true
	}
	acc, ok := tx.store.accounts[addr]
	return acc, ok
}

// Get returns a copy of the account as seen by this transaction.
func (tx *Tx) Get(addr chain.Pubkey) (Account, bool) {
	acc, ok := tx.lookup(addr)
	if !ok {
		return Account{}, false
	}
	return *acc.clone(), true
}

// Exists reports whether addr holds a created account. A system account
// that only received lamports does not count and may still be created.
func (tx *Tx) Exists(addr chain.Pubkey) bool {
	acc, ok := tx.lookup(addr)
	return ok && !acc.vacant()
}

// writable returns the transaction-local copy of an account.
func (tx *Tx) writable(addr chain.Pubkey) (*Account, bool) {
	if acc, ok := tx.writes[addr]; ok {
		return acc, true
	}
	acc, ok := tx.store.accounts[addr]
	if !ok {
		return nil, false
	}
	c := acc.clone()
	tx.writes[addr] = c
	return c, true
}

// Create allocates a new account owned by owner. Lamports already sent to
// the address stay with the new account.
func (tx *Tx) Create(addr, owner chain.Pubkey, data []byte) error {
	if tx.Exists(addr) {
		return fmt.Errorf("%w: %s", ErrAccountExists, addr)
	}
	acc, ok := tx.writable(addr)
	if !ok {
		acc = &Account{Address: addr}
		tx.writes[addr] = acc
	}
	acc.Owner = owner
	acc.Data = nil
	if len(data) > 0 {
		acc.Data = append([]byte(nil), data...)
	}
	return nil
}

// Put replaces the data of an existing account. Only the owning program may
// write an account.
func (tx *Tx) Put(addr, owner chain.Pubkey, data []byte) error {
	acc, ok := tx.writable(addr)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if !acc.Owner.Equals(owner) {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, addr)
	}
	acc.Data = append(acc.Data[:0], data...)
	return nil
}

// Transfer moves lamports between accounts. The source must have signed;
// the destination is created as a system account when missing.
func (tx *Tx) Transfer(from, to chain.Pubkey, lamports chain.Lamports) error {
	if !tx.IsSigner(from) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, from)
	}
	if lamports == 0 {
		return nil
	}
	src, ok := tx.writable(from)
	if !ok || src.Lamports < lamports {
		return fmt.Errorf("%w: %s needs %d", ErrInsufficientFunds, from, lamports)
	}
	dst, ok := tx.writable(to)
	if !ok {
		dst = &Account{Address: to, Owner: SystemProgramID}
		tx.writes[to] = dst
	}
	bal, err := dst.Lamports.Add(lamports)
	if err != nil {
		return err
	}
	src.Lamports -= lamports
	dst.Lamports = bal
	return nil
}

func (tx *Tx) IsSigner(addr chain.Pubkey) bool {
	if tx.ctx.IsSigner(addr) {
		return true
	}
	for _, d := range tx.derived {
		if d.Equals(addr) {
			return true
		}
	}
	return false
}

// InvokeSigned runs fn with signer treated as having signed. The signer
// must be the program address derived from seeds, the last of which is the
// bump.
func (tx *Tx) InvokeSigned(programID, signer chain.Pubkey, seeds [][]byte, fn func() error) error {
	addr, err := solana.CreateProgramAddress(seeds, programID)
	if err != nil || !addr.Equals(signer) {
		return fmt.Errorf("%w: %s", ErrInvalidSeeds, signer)
	}
	tx.derived = append(tx.derived, signer)
	defer func() {
		tx.derived = tx.derived[:len(tx.derived)-1]
	}()
	return fn()
}

// Logf records a program log line for the transaction receipt.
func (tx *Tx) Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	tx.logs = append(tx.logs, msg)
	log.Debugf("slot %d: %s", tx.ctx.Slot, msg)
}

func (tx *Tx) receipt(err error) *Receipt {
	r := &Receipt{
		Slot:    tx.ctx.Slot,
		Signers: tx.ctx.Signers,
		Logs:    tx.logs,
	}
	if err != nil {
		r.Err = err.Error()
	} else {
		r.Writes = make([]chain.Pubkey, 0, len(tx.writes))
		for addr := range tx.writes {
			r.Writes = append(r.Writes, addr)
		}
	}
	r.ID = receiptID(r)
	return r
}

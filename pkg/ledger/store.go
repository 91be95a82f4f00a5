// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/echa/log"

	"blockwatch.cc/carbonpay/pkg/chain"
)

var (
	ErrAccountExists        = errors.New("ledger: account already exists")
	ErrAccountNotFound      = errors.New("ledger: account not found")
	ErrOwnerMismatch        = errors.New("ledger: account not owned by program")
	ErrInsufficientFunds    = errors.New("ledger: insufficient lamports")
	ErrMissingSignature     = errors.New("ledger: missing required signature")
	ErrInvalidSeeds         = errors.New("ledger: seeds do not derive signer address")
	ErrUnknownProgram       = errors.New("ledger: unknown program")
	ErrDuplicateTransaction = errors.New("ledger: transaction already processed")
)

// Account is a single addressable ledger entry.
type Account struct {
	Address  chain.Pubkey
	Owner    chain.Pubkey   // program allowed to modify Data
	Lamports chain.Lamports // base currency balance
	Data     []byte
}

func (a *Account) clone() *Account {
	c := *a
	if a.Data != nil {
		c.Data = make([]byte, len(a.Data))
		copy(c.Data, a.Data)
	}
	return &c
}

// vacant accounts are plain lamport holders nobody has allocated yet.
func (a *Account) vacant() bool {
	return len(a.Data) == 0 && a.Owner.Equals(SystemProgramID)
}

// Reader is implemented by both the committed store and an executing
// transaction.
type Reader interface {
	Get(addr chain.Pubkey) (Account, bool)
}

// Processor executes instructions addressed to a program.
type Processor interface {
	Process(tx *Tx, ix Instruction) error
}

// Store keeps all accounts of a single ledger. Transactions execute one at
// a time, so a transaction always sees the effects of every transaction
// committed before it.
type Store struct {
	mu       sync.RWMutex
	accounts map[chain.Pubkey]*Account
	programs map[chain.Pubkey]Processor
	seen     map[chain.Signature]struct{}
	slot     uint64
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[chain.Pubkey]*Account),
		programs: make(map[chain.Pubkey]Processor),
		seen:     make(map[chain.Signature]struct{}),
		now:      time.Now,
	}
}

// SetClock replaces the block time source.
func (s *Store) SetClock(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = fn
}

func (s *Store) Register(programID chain.Pubkey, p Processor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[programID] = p
}

func (s *Store) Slot() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slot
}

// Get returns a copy of a committed account.
func (s *Store) Get(addr chain.Pubkey) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[addr]
	if !ok {
		return Account{}, false
	}
	return *acc.clone(), true
}

func (s *Store) Balance(addr chain.Pubkey) chain.Lamports {
	acc, ok := s.Get(addr)
	if !ok {
		return 0
	}
	return acc.Lamports
}

// Airdrop credits lamports to addr, creating a system account when needed.
func (s *Store) Airdrop(addr chain.Pubkey, lamports chain.Lamports) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[addr]
	if !ok {
		acc = &Account{Address: addr, Owner: SystemProgramID}
		s.accounts[addr] = acc
	}
	bal, err := acc.Lamports.Add(lamports)
	if err != nil {
		return err
	}
	acc.Lamports = bal
	log.Debugf("Airdropped %d lamports to %s", lamports, addr)
	return nil
}

// Execute runs fn as one atomic state transition. Writes made through the
// transaction become visible only when fn returns nil; on error the store is
// left untouched and the returned receipt carries the logs and failure.
func (s *Store) Execute(ctx context.Context, signers []chain.Pubkey, fn func(*Tx) error) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execute(signers, fn)
}

// Submit verifies a signed transaction and executes its instruction with the
// program registered for it.
func (s *Store) Submit(ctx context.Context, t *Transaction) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.Verify(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sig := t.ID()
	if _, ok := s.seen[sig]; ok {
		return nil, ErrDuplicateTransaction
	}
	p, ok := s.programs[t.Message.Instruction.ProgramID]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownProgram, t.Message.Instruction.ProgramID)
	}
	receipt, err := s.execute(t.Message.Signers, func(tx *Tx) error {
		return p.Process(tx, t.Message.Instruction)
	})
	receipt.Signature = sig
	if err == nil {
		s.seen[sig] = struct{}{}
	}
	return receipt, err
}

func (s *Store) execute(signers []chain.Pubkey, fn func(*Tx) error) (*Receipt, error) {
	tx := newTx(s, chain.CallContext{
		Signers:  append([]chain.Pubkey(nil), signers...),
		Slot:     s.slot + 1,
		UnixTime: s.now().Unix(),
	})
	if err := fn(tx); err != nil {
		tx.Logf("failed: %v", err)
		return tx.receipt(err), err
	}
	for addr, acc := range tx.writes {
		s.accounts[addr] = acc
	}
	s.slot++
	return tx.receipt(nil), nil
}

// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

import (
	"errors"
	"math/bits"

	"github.com/gagliardetto/solana-go"
)

type Pubkey = solana.PublicKey

type Signature = solana.Signature

type Lamports uint64

const LamportsPerSOL Lamports = 1_000_000_000

var ErrOverflow = errors.New("chain: arithmetic overflow")

func (m Lamports) Mul(n uint64) (Lamports, error) {
	v, err := CheckedMul(uint64(m), n)
	return Lamports(v), err
}

func (m Lamports) Div(n uint64) Lamports {
	return m / Lamports(n)
}

func (m Lamports) Add(n Lamports) (Lamports, error) {
	v, err := CheckedAdd(uint64(m), uint64(n))
	return Lamports(v), err
}

func (m Lamports) Sub(n Lamports) (Lamports, error) {
	v, err := CheckedSub(uint64(m), uint64(n))
	return Lamports(v), err
}

func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// CheckedSub fails on underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrOverflow
	}
	return lo, nil
}

type Signer interface {
	PublicKey() Pubkey
	Sign([]byte) (Signature, error)
}

// Keypair is an ed25519 signer held in memory.
type Keypair struct {
	key solana.PrivateKey
}

func NewKeypair() (*Keypair, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return &Keypair{key: key}, nil
}

func KeypairFromBase58(s string) (*Keypair, error) {
	key, err := solana.PrivateKeyFromBase58(s)
	if err != nil {
		return nil, err
	}
	return &Keypair{key: key}, nil
}

func (k *Keypair) PublicKey() Pubkey {
	return k.key.PublicKey()
}

func (k *Keypair) Sign(msg []byte) (Signature, error) {
	return k.key.Sign(msg)
}

// Transaction context available during program execution
type CallContext struct {
	Signers  []Pubkey // verified transaction signers
	Slot     uint64   // slot the transaction executes in
	UnixTime int64    // block time
}

func (c CallContext) IsSigner(key Pubkey) bool {
	for _, s := range c.Signers {
		if s.Equals(key) {
			return true
		}
	}
	return false
}

// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

import (
	"bytes"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgram = solana.MustPublicKeyFromBase58("b6Yz3TrG29otpSnLzJTNCB1vxxcwJCTuPHdCfR9Njqs")

func TestCheckedMath(t *testing.T) {
	v, err := CheckedMul(10, 10_000_000)
	assert.NoError(t, err, "small product")
	assert.Equal(t, uint64(100_000_000), v, "product")

	_, err = CheckedMul(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrOverflow, "mul overflow")

	_, err = CheckedAdd(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow, "add overflow")

	_, err = CheckedSub(1, 2)
	assert.ErrorIs(t, err, ErrOverflow, "sub underflow")

	v, err = CheckedSub(2, 2)
	assert.NoError(t, err, "exact sub")
	assert.Zero(t, v, "zero difference")
}

func TestLamportsFeeSplit(t *testing.T) {
	total, err := Lamports(10_000_000).Mul(10)
	require.NoError(t, err)
	fee, err := total.Mul(500)
	require.NoError(t, err)
	fee = fee.Div(10000)
	assert.Equal(t, Lamports(5_000_000), fee, "5% fee")
	rest, err := total.Sub(fee)
	require.NoError(t, err)
	assert.Equal(t, Lamports(95_000_000), rest, "owner proceeds")
}

func TestFindProgramAddressIsDeterministic(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	a1, b1, err := FindProgramAddress(testProgram, []byte("project"), owner[:], mint[:])
	require.NoError(t, err)
	a2, b2, err := FindProgramAddress(testProgram, []byte("project"), owner[:], mint[:])
	require.NoError(t, err)
	assert.Equal(t, a1, a2, "same address")
	assert.Equal(t, b1, b2, "same bump")
	assert.False(t, a1.IsOnCurve(), "address is off curve")

	other, _, err := FindProgramAddress(testProgram, []byte("purchase"), owner[:], mint[:])
	require.NoError(t, err)
	assert.NotEqual(t, a1, other, "different tag, different address")

	again, err := CreateProgramAddress(testProgram, b1, []byte("project"), owner[:], mint[:])
	require.NoError(t, err)
	assert.Equal(t, a1, again, "bump re-derives address")
}

func TestFindProgramAddressDoesNotAliasSeeds(t *testing.T) {
	seeds := make([][]byte, 1, 4)
	seeds[0] = []byte("carbon_credits")
	spare := seeds[:2]
	spare[1] = []byte("keep")

	_, _, err := FindProgramAddress(testProgram, seeds...)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(spare[1], []byte("keep")), "caller slice untouched")
}

func TestFindProgramAddressSeedLimits(t *testing.T) {
	_, _, err := FindProgramAddress(testProgram, bytes.Repeat([]byte{1}, MaxSeedLength+1))
	assert.ErrorIs(t, err, ErrSeedTooLong, "long seed")

	many := make([][]byte, MaxSeeds)
	_, _, err = FindProgramAddress(testProgram, many...)
	assert.ErrorIs(t, err, ErrTooManySeeds, "too many seeds")
}

func TestCallContextSigners(t *testing.T) {
	k, err := NewKeypair()
	require.NoError(t, err)
	ctx := CallContext{Signers: []Pubkey{k.PublicKey()}}
	assert.True(t, ctx.IsSigner(k.PublicKey()), "listed signer")
	assert.False(t, ctx.IsSigner(testProgram), "unlisted key")

	sig, err := k.Sign([]byte("msg"))
	require.NoError(t, err)
	assert.True(t, k.PublicKey().Verify([]byte("msg"), sig), "signature verifies")
}

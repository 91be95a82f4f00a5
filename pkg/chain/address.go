// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package chain

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	MaxSeedLength = solana.MaxSeedLength
	MaxSeeds      = solana.MaxSeeds
)

var (
	ErrSeedTooLong  = errors.New("chain: seed exceeds max seed length")
	ErrTooManySeeds = errors.New("chain: too many seeds")
	ErrNoBump       = errors.New("chain: no viable bump seed")
)

// FindProgramAddress derives the address owned by programID for the given seeds.
// The bump is searched downwards from 255, skipping outputs that fall on the
// ed25519 curve, so the same seeds always yield the same address and bump.
func FindProgramAddress(programID Pubkey, seeds ...[]byte) (Pubkey, uint8, error) {
	if err := checkSeeds(seeds, MaxSeeds-1); err != nil {
		return Pubkey{}, 0, err
	}
	// the solana helper appends the bump to the slice it is given
	buf := make([][]byte, len(seeds), len(seeds)+1)
	copy(buf, seeds)
	addr, bump, err := solana.FindProgramAddress(buf, programID)
	if err != nil {
		return Pubkey{}, 0, fmt.Errorf("%w: %v", ErrNoBump, err)
	}
	return addr, bump, nil
}

// CreateProgramAddress re-derives an address from seeds and a known bump.
func CreateProgramAddress(programID Pubkey, bump uint8, seeds ...[]byte) (Pubkey, error) {
	if err := checkSeeds(seeds, MaxSeeds-1); err != nil {
		return Pubkey{}, err
	}
	buf := make([][]byte, 0, len(seeds)+1)
	buf = append(buf, seeds...)
	buf = append(buf, []byte{bump})
	return solana.CreateProgramAddress(buf, programID)
}

func MustFindProgramAddress(programID Pubkey, seeds ...[]byte) (Pubkey, uint8) {
	addr, bump, err := FindProgramAddress(programID, seeds...)
	if err != nil {
		panic(err)
	}
	return addr, bump
}

func checkSeeds(seeds [][]byte, max int) error {
	if len(seeds) > max {
		return ErrTooManySeeds
	}
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			return ErrSeedTooLong
		}
	}
	return nil
}

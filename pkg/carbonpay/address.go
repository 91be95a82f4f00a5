// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/token"
)

func FindRegistryAddress(programID chain.Pubkey) (chain.Pubkey, uint8, error) {
	return chain.FindProgramAddress(programID, RegistrySeed)
}

func FindProjectAddress(programID, owner, certificateMint chain.Pubkey) (chain.Pubkey, uint8, error) {
	return chain.FindProgramAddress(programID, ProjectSeed, owner[:], certificateMint[:])
}

func FindPurchaseAddress(programID, buyer, project, certificateMint chain.Pubkey) (chain.Pubkey, uint8, error) {
	return chain.FindProgramAddress(programID, PurchaseSeed, buyer[:], project[:], certificateMint[:])
}

// FindOffsetRequestAddress derives the request record address. The request id
// is used as a raw seed and must not exceed MaxRequestIDLength bytes.
func FindOffsetRequestAddress(programID, requester, purchase chain.Pubkey, requestID string) (chain.Pubkey, uint8, error) {
	return chain.FindProgramAddress(programID, OffsetRequestSeed, requester[:], purchase[:], []byte(requestID))
}

// VaultAddress is the registry's holding account for a project's credits.
func VaultAddress(registry, creditMint chain.Pubkey) (chain.Pubkey, error) {
	return token.AssociatedAddress(registry, creditMint)
}

func registrySigner(bump uint8) [][]byte {
	return [][]byte{RegistrySeed, {bump}}
}

// expect checks that a supplied address is the one derived from seeds and
// a stored bump.
func (p *Program) expect(addr chain.Pubkey, bump uint8, seeds ...[]byte) error {
	want, err := chain.CreateProgramAddress(p.id, bump, seeds...)
	if err != nil || !want.Equals(addr) {
		return fail(ErrAddressMismatch, "%s", addr)
	}
	return nil
}

// derive checks that a supplied address is the canonical one for seeds.
func (p *Program) derive(addr chain.Pubkey, seeds ...[]byte) (uint8, error) {
	want, bump, err := chain.FindProgramAddress(p.id, seeds...)
	if err != nil {
		return 0, err
	}
	if !want.Equals(addr) {
		return 0, fail(ErrAddressMismatch, "%s, expected %s", addr, want)
	}
	return bump, nil
}

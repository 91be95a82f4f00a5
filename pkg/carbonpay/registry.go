// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
)

// Creates the registry. The first caller becomes its permanent authority.
func (p *Program) InitializeRegistry(tx *ledger.Tx, a InitializeRegistryAccounts) error {
	if !tx.IsSigner(a.Authority) {
		return fail(ErrUnauthorized, "authority %s must sign", a.Authority)
	}
	bump, err := p.derive(a.Registry, RegistrySeed)
	if err != nil {
		return err
	}
	if tx.Exists(a.Registry) {
		return fail(ErrAlreadyInitialized, "registry %s", a.Registry)
	}
	if err := p.create(tx, a.Registry, registryDiscriminator, Registry{
		Authority: a.Authority,
		Bump:      bump,
	}); err != nil {
		return err
	}
	tx.Logf("registry initialized by %s", a.Authority)
	return nil
}

// registry loads the registry and checks the supplied address.
func (p *Program) registry(tx *ledger.Tx, addr chain.Pubkey) (Registry, error) {
	reg, err := p.loadRegistry(tx, addr)
	if err != nil {
		return reg, err
	}
	if err := p.expect(addr, reg.Bump, RegistrySeed); err != nil {
		return reg, err
	}
	return reg, nil
}

// withRegistrySignature runs fn with the registry address as signer.
func (p *Program) withRegistrySignature(tx *ledger.Tx, addr chain.Pubkey, reg Registry, fn func() error) error {
	return tx.InvokeSigned(p.id, addr, registrySigner(reg.Bump), fn)
}

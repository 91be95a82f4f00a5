// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"context"

	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
)

// Program is the carbon credit program deployed on a ledger.
type Program struct {
	id    chain.Pubkey
	store *ledger.Store
}

// New deploys the program at id on store.
func New(store *ledger.Store, id chain.Pubkey) *Program {
	p := &Program{
		id:    id,
		store: store,
	}
	store.Register(id, p)
	return p
}

func (p *Program) ID() chain.Pubkey {
	return p.id
}

// Execute runs a single instruction as its own transaction without a signed
// envelope. Signers are trusted as given.
func (p *Program) Execute(ctx context.Context, signers []chain.Pubkey, ix ledger.Instruction) (*ledger.Receipt, error) {
	return p.store.Execute(ctx, signers, func(tx *ledger.Tx) error {
		return p.Process(tx, ix)
	})
}

func (p *Program) RegistryAddress() chain.Pubkey {
	addr, _ := chain.MustFindProgramAddress(p.id, RegistrySeed)
	return addr
}

func (p *Program) Registry() (Registry, error) {
	return p.loadRegistry(p.store, p.RegistryAddress())
}

func (p *Program) Project(addr chain.Pubkey) (Project, error) {
	return p.loadProject(p.store, addr)
}

func (p *Program) Purchase(addr chain.Pubkey) (Purchase, error) {
	return p.loadPurchase(p.store, addr)
}

func (p *Program) OffsetRequest(addr chain.Pubkey) (OffsetRequest, error) {
	return p.loadOffsetRequest(p.store, addr)
}

// FindProject looks up the project of owner backed by certificateMint.
func (p *Program) FindProject(owner, certificateMint chain.Pubkey) (chain.Pubkey, Project, error) {
	addr, _, err := FindProjectAddress(p.id, owner, certificateMint)
	if err != nil {
		return addr, Project{}, err
	}
	prj, err := p.Project(addr)
	return addr, prj, err
}

func (p *Program) FindPurchase(buyer, project, certificateMint chain.Pubkey) (chain.Pubkey, Purchase, error) {
	addr, _, err := FindPurchaseAddress(p.id, buyer, project, certificateMint)
	if err != nil {
		return addr, Purchase{}, err
	}
	pur, err := p.Purchase(addr)
	return addr, pur, err
}

func (p *Program) FindOffsetRequest(requester, purchase chain.Pubkey, requestID string) (chain.Pubkey, OffsetRequest, error) {
	if err := ValidateRequestID(requestID); err != nil {
		return chain.Pubkey{}, OffsetRequest{}, err
	}
	addr, _, err := FindOffsetRequestAddress(p.id, requester, purchase, requestID)
	if err != nil {
		return addr, OffsetRequest{}, err
	}
	req, err := p.OffsetRequest(addr)
	return addr, req, err
}

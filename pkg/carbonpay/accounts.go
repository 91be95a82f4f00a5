// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"blockwatch.cc/carbonpay/pkg/chain"
)

// Account sets each instruction operates on. The order of fields is the
// order of the instruction's account list.

type InitializeRegistryAccounts struct {
	Authority chain.Pubkey `json:"authority"`
	Registry  chain.Pubkey `json:"registry"`
}

type InitializeProjectAccounts struct {
	Owner           chain.Pubkey `json:"owner"`
	Registry        chain.Pubkey `json:"registry"`
	Project         chain.Pubkey `json:"project"`
	CertificateMint chain.Pubkey `json:"certificate_mint"`
	CreditMint      chain.Pubkey `json:"credit_mint"`
}

type PurchaseAccounts struct {
	Buyer           chain.Pubkey `json:"buyer"`
	Registry        chain.Pubkey `json:"registry"`
	Project         chain.Pubkey `json:"project"`
	Owner           chain.Pubkey `json:"owner"`
	CertificateMint chain.Pubkey `json:"certificate_mint"`
	Purchase        chain.Pubkey `json:"purchase"`
}

// ResidualMint is only used on partial offsets and may be zero otherwise.
type RequestOffsetAccounts struct {
	Requester     chain.Pubkey `json:"requester"`
	Registry      chain.Pubkey `json:"registry"`
	Project       chain.Pubkey `json:"project"`
	Purchase      chain.Pubkey `json:"purchase"`
	OffsetRequest chain.Pubkey `json:"offset_request"`
	ResidualMint  chain.Pubkey `json:"residual_mint"`
}

type ProcessOffsetAccounts struct {
	Authority     chain.Pubkey `json:"authority"`
	Registry      chain.Pubkey `json:"registry"`
	OffsetRequest chain.Pubkey `json:"offset_request"`
}

func (a InitializeRegistryAccounts) list() []chain.Pubkey {
	return []chain.Pubkey{a.Authority, a.Registry}
}

func (a *InitializeRegistryAccounts) parse(keys []chain.Pubkey) error {
	if len(keys) != 2 {
		return fail(ErrInvalidInstruction, "want 2 accounts, got %d", len(keys))
	}
	a.Authority, a.Registry = keys[0], keys[1]
	return nil
}

func (a InitializeProjectAccounts) list() []chain.Pubkey {
	return []chain.Pubkey{a.Owner, a.Registry, a.Project, a.CertificateMint, a.CreditMint}
}

func (a *InitializeProjectAccounts) parse(keys []chain.Pubkey) error {
	if len(keys) != 5 {
		return fail(ErrInvalidInstruction, "want 5 accounts, got %d", len(keys))
	}
	a.Owner, a.Registry, a.Project, a.CertificateMint, a.CreditMint = keys[0], keys[1], keys[2], keys[3], keys[4]
	return nil
}

func (a PurchaseAccounts) list() []chain.Pubkey {
	return []chain.Pubkey{a.Buyer, a.Registry, a.Project, a.Owner, a.CertificateMint, a.Purchase}
}

func (a *PurchaseAccounts) parse(keys []chain.Pubkey) error {
	if len(keys) != 6 {
		return fail(ErrInvalidInstruction, "want 6 accounts, got %d", len(keys))
	}
	a.Buyer, a.Registry, a.Project, a.Owner, a.CertificateMint, a.Purchase = keys[0], keys[1], keys[2], keys[3], keys[4], keys[5]
	return nil
}

func (a RequestOffsetAccounts) list() []chain.Pubkey {
	return []chain.Pubkey{a.Requester, a.Registry, a.Project, a.Purchase, a.OffsetRequest, a.ResidualMint}
}

func (a *RequestOffsetAccounts) parse(keys []chain.Pubkey) error {
	if len(keys) != 6 {
		return fail(ErrInvalidInstruction, "want 6 accounts, got %d", len(keys))
	}
	a.Requester, a.Registry, a.Project, a.Purchase, a.OffsetRequest, a.ResidualMint = keys[0], keys[1], keys[2], keys[3], keys[4], keys[5]
	return nil
}

func (a ProcessOffsetAccounts) list() []chain.Pubkey {
	return []chain.Pubkey{a.Authority, a.Registry, a.OffsetRequest}
}

func (a *ProcessOffsetAccounts) parse(keys []chain.Pubkey) error {
	if len(keys) != 3 {
		return fail(ErrInvalidInstruction, "want 3 accounts, got %d", len(keys))
	}
	a.Authority, a.Registry, a.OffsetRequest = keys[0], keys[1], keys[2]
	return nil
}

// Client side helpers filling in derived addresses.

func NewInitializeRegistryAccounts(programID, authority chain.Pubkey) (InitializeRegistryAccounts, error) {
	registry, _, err := FindRegistryAddress(programID)
	return InitializeRegistryAccounts{Authority: authority, Registry: registry}, err
}

func NewInitializeProjectAccounts(programID, owner, certificateMint, creditMint chain.Pubkey) (InitializeProjectAccounts, error) {
	a := InitializeProjectAccounts{
		Owner:           owner,
		CertificateMint: certificateMint,
		CreditMint:      creditMint,
	}
	var err error
	if a.Registry, _, err = FindRegistryAddress(programID); err != nil {
		return a, err
	}
	a.Project, _, err = FindProjectAddress(programID, owner, certificateMint)
	return a, err
}

func NewPurchaseAccounts(programID, buyer, owner, project, certificateMint chain.Pubkey) (PurchaseAccounts, error) {
	a := PurchaseAccounts{
		Buyer:           buyer,
		Project:         project,
		Owner:           owner,
		CertificateMint: certificateMint,
	}
	var err error
	if a.Registry, _, err = FindRegistryAddress(programID); err != nil {
		return a, err
	}
	a.Purchase, _, err = FindPurchaseAddress(programID, buyer, project, certificateMint)
	return a, err
}

func NewRequestOffsetAccounts(programID, requester, project, purchase, residualMint chain.Pubkey, requestID string) (RequestOffsetAccounts, error) {
	a := RequestOffsetAccounts{
		Requester:    requester,
		Project:      project,
		Purchase:     purchase,
		ResidualMint: residualMint,
	}
	var err error
	if a.Registry, _, err = FindRegistryAddress(programID); err != nil {
		return a, err
	}
	if len(requestID) > chain.MaxSeedLength {
		return a, fail(ErrInvalidRequestId, "%d bytes", len(requestID))
	}
	a.OffsetRequest, _, err = FindOffsetRequestAddress(programID, requester, purchase, requestID)
	return a, err
}

func NewProcessOffsetAccounts(programID, authority, offsetRequest chain.Pubkey) (ProcessOffsetAccounts, error) {
	registry, _, err := FindRegistryAddress(programID)
	return ProcessOffsetAccounts{Authority: authority, Registry: registry, OffsetRequest: offsetRequest}, err
}

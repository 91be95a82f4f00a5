// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"errors"

	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
	"blockwatch.cc/carbonpay/pkg/metadata"
	"blockwatch.cc/carbonpay/pkg/token"
)

func (args InitializeProjectArgs) Validate() error {
	if args.Amount == 0 {
		return ErrInvalidAmount
	}
	if args.PricePerUnit == 0 {
		return ErrInvalidPrice
	}
	if args.FeeRateBasisPoints > FeeBasisPointsDenominator {
		return fail(ErrInvalidFeeRate, "%d bps", args.FeeRateBasisPoints)
	}
	err := metadata.Data{Name: args.Name, Symbol: args.Symbol, URI: args.URI}.Validate()
	if errors.Is(err, metadata.ErrInvalidData) {
		return fail(ErrInvalidMetadata, "%v", err)
	}
	return err
}

// Registers a project. The owner receives the single project certificate,
// the credits are minted into a vault held by the registry.
func (p *Program) InitializeProject(tx *ledger.Tx, a InitializeProjectAccounts, args InitializeProjectArgs) error {
	if err := args.Validate(); err != nil {
		return err
	}
	if !tx.IsSigner(a.Owner) {
		return fail(ErrUnauthorized, "owner %s must sign", a.Owner)
	}
	reg, err := p.registry(tx, a.Registry)
	if err != nil {
		return err
	}
	bump, err := p.derive(a.Project, ProjectSeed, a.Owner[:], a.CertificateMint[:])
	if err != nil {
		return err
	}
	if tx.Exists(a.Project) {
		return fail(ErrAlreadyInitialized, "project %s", a.Project)
	}
	if a.CertificateMint.Equals(a.CreditMint) {
		return fail(ErrAddressMismatch, "certificate and credit mint must differ")
	}
	if tx.Exists(a.CreditMint) {
		return fail(ErrAlreadyInitialized, "mint %s", a.CreditMint)
	}

	// project certificate: one unit, owner 95% / platform 5% royalty split
	if err := issueCertificate(tx, a.CertificateMint, a.Owner, metadata.Data{
		Name:                 args.Name,
		Symbol:               args.Symbol,
		URI:                  args.URI,
		SellerFeeBasisPoints: args.FeeRateBasisPoints,
		Creators: []metadata.Creator{
			{Address: a.Owner, Verified: true, Share: OwnerCreatorShare},
			{Address: a.Registry, Verified: false, Share: PlatformCreatorShare},
		},
	}); err != nil {
		return err
	}

	// credits go into escrow, minting passes to the registry
	if err := token.InitializeMint(tx, a.CreditMint, CreditDecimals, a.Owner); err != nil {
		return err
	}
	vault, err := token.EnsureAssociatedAccount(tx, a.Registry, a.CreditMint)
	if err != nil {
		return err
	}
	if err := token.MintTo(tx, a.CreditMint, vault, a.Owner, args.Amount); err != nil {
		return err
	}
	if err := token.SetAuthority(tx, a.CreditMint, a.Owner, a.Registry); err != nil {
		return err
	}

	if err := reg.AddProjectCredits(args.Amount); err != nil {
		return err
	}
	if err := p.create(tx, a.Project, projectDiscriminator, Project{
		Owner:              a.Owner,
		CertificateMint:    a.CertificateMint,
		CreditMint:         a.CreditMint,
		Amount:             args.Amount,
		RemainingAmount:    args.Amount,
		PricePerUnit:       args.PricePerUnit,
		FeeRateBasisPoints: args.FeeRateBasisPoints,
		IsActive:           true,
		FeeRecipient:       a.Registry,
		URI:                args.URI,
		CreatedAt:          tx.Context().UnixTime,
		Bump:               bump,
	}); err != nil {
		return err
	}
	if err := p.save(tx, a.Registry, registryDiscriminator, reg); err != nil {
		return err
	}
	tx.Logf("project %s issued %d credits at %d lamports, vault %s", a.Project, args.Amount, args.PricePerUnit, vault)
	return nil
}

// project loads a project and checks the supplied address against its seeds.
func (p *Program) project(tx *ledger.Tx, addr chain.Pubkey) (Project, error) {
	prj, err := p.loadProject(tx, addr)
	if err != nil {
		return prj, err
	}
	if err := p.expect(addr, prj.Bump, ProjectSeed, prj.Owner[:], prj.CertificateMint[:]); err != nil {
		return prj, err
	}
	return prj, nil
}

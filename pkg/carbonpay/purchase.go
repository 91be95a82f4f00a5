// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
	"blockwatch.cc/carbonpay/pkg/token"
)

// Buys credits from a project. The buyer pays price times amount, split
// between owner and fee recipient, and receives the credits plus a single
// purchase certificate.
func (p *Program) PurchaseCarbonCredits(tx *ledger.Tx, a PurchaseAccounts, args PurchaseArgs) error {
	if args.Amount == 0 {
		return ErrInvalidAmount
	}
	if !tx.IsSigner(a.Buyer) {
		return fail(ErrUnauthorized, "buyer %s must sign", a.Buyer)
	}
	reg, err := p.registry(tx, a.Registry)
	if err != nil {
		return err
	}
	prj, err := p.project(tx, a.Project)
	if err != nil {
		return err
	}

	// checked against the live project record
	if !prj.IsActive {
		return fail(ErrProjectInactive, "project %s", a.Project)
	}
	if args.Amount > prj.RemainingAmount {
		return fail(ErrInsufficientCredits, "%d requested, %d left", args.Amount, prj.RemainingAmount)
	}
	if !a.Owner.Equals(prj.Owner) {
		return fail(ErrAddressMismatch, "owner %s, expected %s", a.Owner, prj.Owner)
	}
	if !prj.FeeRecipient.Equals(a.Registry) {
		return fail(ErrAddressMismatch, "fee recipient %s", prj.FeeRecipient)
	}
	bump, err := p.derive(a.Purchase, PurchaseSeed, a.Buyer[:], a.Project[:], a.CertificateMint[:])
	if err != nil {
		return err
	}
	if tx.Exists(a.Purchase) {
		return fail(ErrAlreadyInitialized, "purchase %s", a.Purchase)
	}

	total, fee, proceeds, err := prj.Quote(args.Amount)
	if err != nil {
		return err
	}
	if buyer, _ := tx.Get(a.Buyer); buyer.Lamports < total {
		return fail(ErrInsufficientFunds, "buyer has %d, needs %d lamports", buyer.Lamports, total)
	}
	if err := tx.Transfer(a.Buyer, prj.Owner, proceeds); err != nil {
		return err
	}
	if err := tx.Transfer(a.Buyer, prj.FeeRecipient, fee); err != nil {
		return err
	}
	if err := reg.AddFees(fee); err != nil {
		return err
	}

	if err := issueCertificate(tx, a.CertificateMint, a.Buyer, purchaseCertificate(a.CertificateMint, args.Amount)); err != nil {
		return err
	}
	if err := p.releaseCredits(tx, a.Registry, reg, prj.CreditMint, a.Buyer, args.Amount); err != nil {
		return err
	}

	prj.RemainingAmount -= args.Amount
	if err := p.create(tx, a.Purchase, purchaseDiscriminator, Purchase{
		Buyer:                 a.Buyer,
		Project:               a.Project,
		CertificateMint:       a.CertificateMint,
		ActiveCertificateMint: a.CertificateMint,
		Amount:                args.Amount,
		RemainingAmount:       args.Amount,
		PurchasedAt:           tx.Context().UnixTime,
		Bump:                  bump,
	}); err != nil {
		return err
	}
	if err := p.save(tx, a.Project, projectDiscriminator, prj); err != nil {
		return err
	}
	if err := p.save(tx, a.Registry, registryDiscriminator, reg); err != nil {
		return err
	}
	tx.Logf("purchase %s: %d credits for %d lamports (fee %d), %d left", a.Purchase, args.Amount, total, fee, prj.RemainingAmount)
	return nil
}

// releaseCredits moves credits out of the project vault under the
// registry's derived signature.
func (p *Program) releaseCredits(tx *ledger.Tx, registry chain.Pubkey, reg Registry, mint, to chain.Pubkey, amount uint64) error {
	vault, err := VaultAddress(registry, mint)
	if err != nil {
		return err
	}
	dst, err := token.EnsureAssociatedAccount(tx, to, mint)
	if err != nil {
		return err
	}
	return p.withRegistrySignature(tx, registry, reg, func() error {
		return token.Transfer(tx, vault, dst, registry, amount)
	})
}

// purchase loads a purchase and checks the supplied address against its seeds.
func (p *Program) purchase(tx *ledger.Tx, addr chain.Pubkey) (Purchase, error) {
	pur, err := p.loadPurchase(tx, addr)
	if err != nil {
		return pur, err
	}
	if err := p.expect(addr, pur.Bump, PurchaseSeed, pur.Buyer[:], pur.Project[:], pur.CertificateMint[:]); err != nil {
		return pur, err
	}
	return pur, nil
}

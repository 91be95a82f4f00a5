// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
	"blockwatch.cc/carbonpay/pkg/token"
)

func ValidateRequestID(id string) error {
	if id == "" || len(id) > MaxRequestIDLength {
		return fail(ErrInvalidRequestId, "%q", id)
	}
	return nil
}

// Retires purchased credits. The credits and the current purchase
// certificate are burned; a partial offset reissues a residual certificate
// for what is left.
func (p *Program) RequestOffset(tx *ledger.Tx, a RequestOffsetAccounts, args RequestOffsetArgs) error {
	if err := ValidateRequestID(args.RequestID); err != nil {
		return err
	}
	if args.Amount == 0 {
		return ErrInvalidAmount
	}
	if !tx.IsSigner(a.Requester) {
		return fail(ErrUnauthorized, "requester %s must sign", a.Requester)
	}
	reg, err := p.registry(tx, a.Registry)
	if err != nil {
		return err
	}
	pur, err := p.purchase(tx, a.Purchase)
	if err != nil {
		return err
	}
	if !pur.Buyer.Equals(a.Requester) {
		return fail(ErrAddressMismatch, "purchase %s belongs to %s", a.Purchase, pur.Buyer)
	}
	if !pur.Project.Equals(a.Project) {
		return fail(ErrAddressMismatch, "purchase %s is for project %s", a.Purchase, pur.Project)
	}
	prj, err := p.project(tx, a.Project)
	if err != nil {
		return err
	}
	bump, err := p.derive(a.OffsetRequest, OffsetRequestSeed, a.Requester[:], a.Purchase[:], []byte(args.RequestID))
	if err != nil {
		return err
	}
	if tx.Exists(a.OffsetRequest) {
		return fail(ErrDuplicateRequest, "%q", args.RequestID)
	}

	// checked against the live purchase record and token holding
	if args.Amount > pur.RemainingAmount {
		return fail(ErrInsufficientBalance, "%d requested, %d unretired", args.Amount, pur.RemainingAmount)
	}
	holding, err := token.AssociatedAddress(a.Requester, prj.CreditMint)
	if err != nil {
		return err
	}
	if held := token.Balance(tx, holding); held < args.Amount {
		return fail(ErrInsufficientBalance, "%d requested, %d held", args.Amount, held)
	}

	remaining := pur.RemainingAmount - args.Amount
	if err := retireCertificate(tx, pur.ActiveCertificateMint, a.Requester); err != nil {
		return err
	}
	if remaining > 0 {
		if a.ResidualMint.IsZero() {
			return fail(ErrAddressMismatch, "partial offset needs a residual certificate mint")
		}
		if err := issueCertificate(tx, a.ResidualMint, a.Requester, residualCertificate(a.ResidualMint, remaining)); err != nil {
			return err
		}
		pur.ActiveCertificateMint = a.ResidualMint
	} else {
		pur.ActiveCertificateMint = chain.Pubkey{}
	}
	if err := token.Burn(tx, holding, prj.CreditMint, a.Requester, args.Amount); err != nil {
		return err
	}

	pur.RemainingAmount = remaining
	if prj.OffsetAmount, err = chain.CheckedAdd(prj.OffsetAmount, args.Amount); err != nil {
		return err
	}
	if prj.OffsetAmount > prj.Purchased() {
		return fail(ErrInsufficientBalance, "project %s offsets exceed purchases", a.Project)
	}
	if err := reg.RecordOffset(args.Amount); err != nil {
		return err
	}

	if err := p.create(tx, a.OffsetRequest, offsetRequestDiscriminator, OffsetRequest{
		Requester:   a.Requester,
		Purchase:    a.Purchase,
		Project:     a.Project,
		Amount:      args.Amount,
		RequestID:   args.RequestID,
		Status:      StatusPending,
		RequestedAt: tx.Context().UnixTime,
		Bump:        bump,
	}); err != nil {
		return err
	}
	if err := p.save(tx, a.Purchase, purchaseDiscriminator, pur); err != nil {
		return err
	}
	if err := p.save(tx, a.Project, projectDiscriminator, prj); err != nil {
		return err
	}
	if err := p.save(tx, a.Registry, registryDiscriminator, reg); err != nil {
		return err
	}
	tx.Logf("offset %q: %d credits retired from purchase %s, %d remaining", args.RequestID, args.Amount, a.Purchase, remaining)
	return nil
}

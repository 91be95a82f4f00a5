// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"blockwatch.cc/carbonpay/pkg/ledger"
)

// Settles a pending offset request. Retirement is final either way, so
// registry and project totals are left as they are.
func (p *Program) ProcessOffsetRequest(tx *ledger.Tx, a ProcessOffsetAccounts, args ProcessOffsetArgs) error {
	if args.Decision != StatusVerified && args.Decision != StatusRejected {
		return fail(ErrInvalidRequestStatus, "%s", args.Decision)
	}
	if !tx.IsSigner(a.Authority) {
		return fail(ErrUnauthorized, "authority %s must sign", a.Authority)
	}
	reg, err := p.registry(tx, a.Registry)
	if err != nil {
		return err
	}
	if !reg.Authority.Equals(a.Authority) {
		return fail(ErrUnauthorized, "%s is not the registry authority", a.Authority)
	}
	req, err := p.loadOffsetRequest(tx, a.OffsetRequest)
	if err != nil {
		return err
	}
	if err := p.expect(a.OffsetRequest, req.Bump, OffsetRequestSeed, req.Requester[:], req.Purchase[:], []byte(req.RequestID)); err != nil {
		return err
	}
	if req.Status != StatusPending {
		return fail(ErrRequestAlreadyProcessed, "request %q is %s", req.RequestID, req.Status)
	}
	req.Status = args.Decision
	req.ProcessedAt = tx.Context().UnixTime
	req.Processor = a.Authority
	if err := p.save(tx, a.OffsetRequest, offsetRequestDiscriminator, req); err != nil {
		return err
	}
	tx.Logf("offset %q %s by %s", req.RequestID, req.Status, a.Authority)
	return nil
}

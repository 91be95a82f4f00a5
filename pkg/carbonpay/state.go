// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"bytes"
	"crypto/sha256"

	"github.com/near/borsh-go"

	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
)

// Registry is the singleton ledger root, stored as account "CarbonCredits".
type Registry struct {
	Authority       chain.Pubkey `json:"authority"`
	TotalCredits    uint64       `json:"total_credits"`     // issued by all projects
	OffsetCredits   uint64       `json:"offset_credits"`    // retired by all offsets
	ActiveCredits   uint64       `json:"active_credits"`    // issued minus retired
	ProjectsCount   uint64       `json:"projects_count"`
	TotalFeesEarned uint64       `json:"total_fees_earned"` // lamports
	Bump            uint8        `json:"bump"`
}

type Project struct {
	Owner              chain.Pubkey `json:"owner"`
	CertificateMint    chain.Pubkey `json:"certificate_mint"`
	CreditMint         chain.Pubkey `json:"credit_mint"`
	Amount             uint64       `json:"amount"`
	RemainingAmount    uint64       `json:"remaining_amount"`
	OffsetAmount       uint64       `json:"offset_amount"`
	PricePerUnit       uint64       `json:"price_per_unit"` // lamports
	FeeRateBasisPoints uint16       `json:"fee_rate_bps"`
	IsActive           bool         `json:"is_active"`
	FeeRecipient       chain.Pubkey `json:"fee_recipient"`
	URI                string       `json:"uri"`
	CreatedAt          int64        `json:"created_at"`
	Bump               uint8        `json:"bump"`
}

// Purchase is keyed by the certificate mint of the original purchase.
// ActiveCertificateMint follows the residual certificates issued on partial
// offsets and is zero once everything is retired.
type Purchase struct {
	Buyer                 chain.Pubkey `json:"buyer"`
	Project               chain.Pubkey `json:"project"`
	CertificateMint       chain.Pubkey `json:"certificate_mint"`
	ActiveCertificateMint chain.Pubkey `json:"active_certificate_mint"`
	Amount                uint64       `json:"amount"`
	RemainingAmount       uint64       `json:"remaining_amount"`
	PurchasedAt           int64        `json:"purchased_at"`
	Bump                  uint8        `json:"bump"`
}

type OffsetRequest struct {
	Requester   chain.Pubkey  `json:"requester"`
	Purchase    chain.Pubkey  `json:"purchase"`
	Project     chain.Pubkey  `json:"project"`
	Amount      uint64        `json:"amount"`
	RequestID   string        `json:"request_id"`
	Status      RequestStatus `json:"status"`
	RequestedAt int64         `json:"requested_at"`
	ProcessedAt int64         `json:"processed_at"`
	Processor   chain.Pubkey  `json:"processor"` // zero while pending
	Bump        uint8         `json:"bump"`
}

// record discriminators: sha256("account:<Name>")[:8]
var (
	registryDiscriminator      = accountDiscriminator("CarbonCredits")
	projectDiscriminator       = accountDiscriminator("Project")
	purchaseDiscriminator      = accountDiscriminator("Purchase")
	offsetRequestDiscriminator = accountDiscriminator("OffsetRequest")
)

func accountDiscriminator(name string) [8]byte {
	var d [8]byte
	h := sha256.Sum256([]byte("account:" + name))
	copy(d[:], h[:8])
	return d
}

func encodeRecord(disc [8]byte, v interface{}) ([]byte, error) {
	buf, err := borsh.Serialize(v)
	if err != nil {
		return nil, err
	}
	return append(disc[:], buf...), nil
}

func decodeRecord(disc [8]byte, buf []byte, v interface{}) error {
	if len(buf) < len(disc) || !bytes.Equal(buf[:len(disc)], disc[:]) {
		return ErrNotInitialized
	}
	if err := ledger.Decode(buf[len(disc):], v); err != nil {
		return fail(ErrNotInitialized, "%v", err)
	}
	return nil
}

func (p *Program) load(r ledger.Reader, addr chain.Pubkey, disc [8]byte, v interface{}) error {
	acc, ok := r.Get(addr)
	if !ok {
		return fail(ErrNotInitialized, "account %s", addr)
	}
	if !acc.Owner.Equals(p.id) {
		return fail(ErrAddressMismatch, "account %s not owned by program", addr)
	}
	return decodeRecord(disc, acc.Data, v)
}

func (p *Program) loadRegistry(r ledger.Reader, addr chain.Pubkey) (Registry, error) {
	var v Registry
	err := p.load(r, addr, registryDiscriminator, &v)
	return v, err
}

func (p *Program) loadProject(r ledger.Reader, addr chain.Pubkey) (Project, error) {
	var v Project
	err := p.load(r, addr, projectDiscriminator, &v)
	return v, err
}

func (p *Program) loadPurchase(r ledger.Reader, addr chain.Pubkey) (Purchase, error) {
	var v Purchase
	err := p.load(r, addr, purchaseDiscriminator, &v)
	return v, err
}

func (p *Program) loadOffsetRequest(r ledger.Reader, addr chain.Pubkey) (OffsetRequest, error) {
	var v OffsetRequest
	err := p.load(r, addr, offsetRequestDiscriminator, &v)
	return v, err
}

func (p *Program) create(tx *ledger.Tx, addr chain.Pubkey, disc [8]byte, v interface{}) error {
	buf, err := encodeRecord(disc, v)
	if err != nil {
		return err
	}
	return tx.Create(addr, p.id, buf)
}

func (p *Program) save(tx *ledger.Tx, addr chain.Pubkey, disc [8]byte, v interface{}) error {
	buf, err := encodeRecord(disc, v)
	if err != nil {
		return err
	}
	return tx.Put(addr, p.id, buf)
}

// AddProjectCredits accounts a newly issued project.
func (r *Registry) AddProjectCredits(amount uint64) error {
	total, err := chain.CheckedAdd(r.TotalCredits, amount)
	if err != nil {
		return err
	}
	active, err := chain.CheckedAdd(r.ActiveCredits, amount)
	if err != nil {
		return err
	}
	r.TotalCredits, r.ActiveCredits = total, active
	r.ProjectsCount++
	return nil
}

// RecordOffset accounts retired credits. Offsets can never exceed what was
// issued.
func (r *Registry) RecordOffset(amount uint64) error {
	offset, err := chain.CheckedAdd(r.OffsetCredits, amount)
	if err != nil {
		return err
	}
	if offset > r.TotalCredits {
		return ErrArithmeticOverflow
	}
	active, err := chain.CheckedSub(r.ActiveCredits, amount)
	if err != nil {
		return err
	}
	r.OffsetCredits, r.ActiveCredits = offset, active
	return nil
}

func (r *Registry) AddFees(fee chain.Lamports) error {
	v, err := chain.CheckedAdd(r.TotalFeesEarned, uint64(fee))
	if err != nil {
		return err
	}
	r.TotalFeesEarned = v
	return nil
}

// Quote splits the price of amount credits into owner proceeds and the
// platform fee. The fee is truncated.
func (p Project) Quote(amount uint64) (total, fee, proceeds chain.Lamports, err error) {
	if total, err = chain.Lamports(p.PricePerUnit).Mul(amount); err != nil {
		return
	}
	if fee, err = total.Mul(uint64(p.FeeRateBasisPoints)); err != nil {
		return
	}
	fee = fee.Div(FeeBasisPointsDenominator)
	proceeds, err = total.Sub(fee)
	return
}

func (p Project) Purchased() uint64 {
	return p.Amount - p.RemainingAmount
}

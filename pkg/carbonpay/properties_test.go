// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
)

func (e *env) checkRegistry() {
	reg := e.registry()
	assert.LessOrEqual(e.t, reg.OffsetCredits, reg.TotalCredits, "offsets within issuance")
	assert.Equal(e.t, reg.TotalCredits-reg.OffsetCredits, reg.ActiveCredits, "active credits")
}

func TestConservation(t *testing.T) {
	e := newEnv(t)
	e.initRegistry()
	rnd := rand.New(rand.NewSource(42))

	projects := []InitializeProjectAccounts{
		e.initProject(60, 1_000, 250),
		e.initProject(35, 7_000, 0),
	}
	buyers := []chain.Pubkey{
		e.funded(chain.LamportsPerSOL),
		e.funded(chain.LamportsPerSOL),
		e.funded(chain.LamportsPerSOL),
	}
	purchased := make(map[chain.Pubkey]uint64)
	offsets := make(map[chain.Pubkey]uint64)
	var purchases []PurchaseAccounts

	for i := 0; i < 200; i++ {
		if rnd.Intn(3) > 0 || len(purchases) == 0 {
			prj := projects[rnd.Intn(len(projects))]
			amount := uint64(rnd.Intn(8) + 1)
			pur, err := e.tryPurchase(buyers[rnd.Intn(len(buyers))], prj, amount)
			if err == nil {
				purchased[prj.Project] += amount
				purchases = append(purchases, pur)
			} else {
				assert.ErrorIs(t, err, ErrInsufficientCredits, "only depletion fails")
			}
		} else {
			pur := purchases[rnd.Intn(len(purchases))]
			amount := uint64(rnd.Intn(5) + 1)
			_, err := e.tryOffset(pur, amount, fmt.Sprintf("req-%d", i))
			if err == nil {
				offsets[pur.Purchase] += amount
			} else {
				assert.ErrorIs(t, err, ErrInsufficientBalance, "only overdraw fails")
			}
		}

		// invariants hold after every instruction
		e.checkRegistry()
		for _, prj := range projects {
			rec := e.project(prj.Project)
			assert.Equal(t, rec.Amount, purchased[prj.Project]+rec.RemainingAmount, "purchases conserve project amount")
			assert.LessOrEqual(t, rec.OffsetAmount, rec.Purchased(), "offsets within purchases")
		}
	}

	var retired uint64
	for _, pur := range purchases {
		rec := e.purchaseRecord(pur.Purchase)
		assert.Equal(t, rec.Amount, offsets[pur.Purchase]+rec.RemainingAmount, "offsets conserve purchase amount")
		retired += offsets[pur.Purchase]
		if rec.RemainingAmount > 0 {
			assert.Equal(t, uint64(1), e.tokens(pur.Buyer, rec.ActiveCertificateMint), "one live certificate")
		} else {
			assert.True(t, rec.ActiveCertificateMint.IsZero(), "no certificate left")
		}
	}
	assert.Equal(t, retired, e.registry().OffsetCredits, "registry offsets")
	for _, prj := range projects {
		rec := e.project(prj.Project)
		assert.Equal(t, rec.Amount-rec.OffsetAmount, e.supply(prj.CreditMint), "supply shrinks by offsets")
	}
}

func TestConcurrentPurchases(t *testing.T) {
	e := newEnv(t)
	e.initRegistry()
	prj := e.initProject(50, 10_000, 500)

	const n = 20
	buyers := make([]chain.Pubkey, n)
	for i := range buyers {
		buyers[i] = e.funded(chain.LamportsPerSOL)
	}

	var ok, depleted int64
	g, _ := errgroup.WithContext(context.Background())
	for _, buyer := range buyers {
		buyer := buyer
		g.Go(func() error {
			_, err := e.tryPurchase(buyer, prj, 3)
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case assert.ErrorIs(t, err, ErrInsufficientCredits):
				atomic.AddInt64(&depleted, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(16), ok, "16 x 3 credits fit into 50")
	assert.Equal(t, int64(4), depleted, "the rest is rejected")
	rec := e.project(prj.Project)
	assert.Equal(t, uint64(2), rec.RemainingAmount, "remaining")
	assert.Equal(t, uint64(2), e.tokens(prj.Registry, prj.CreditMint), "vault holds the unsold rest")
	e.checkRegistry()
}

func TestSignedSubmission(t *testing.T) {
	e := newEnv(t)
	e.initRegistry()
	prj := e.initProject(100, 10_000_000, 500)

	key, err := chain.NewKeypair()
	require.NoError(t, err)
	require.NoError(t, e.store.Airdrop(key.PublicKey(), chain.LamportsPerSOL))

	cert, err := chain.NewKeypair()
	require.NoError(t, err)

	a, err := NewPurchaseAccounts(e.prog.ID(), key.PublicKey(), prj.Owner, prj.Project, cert.PublicKey())
	require.NoError(t, err)
	ix, err := NewPurchaseInstruction(e.prog.ID(), a, PurchaseArgs{Amount: 10})
	require.NoError(t, err)

	// the certificate mint is created, so its key signs too
	unsigned, err := ledger.NewTransaction(ledger.Message{
		Signers:     []chain.Pubkey{key.PublicKey()},
		Instruction: ix,
	}, key)
	require.NoError(t, err)
	_, err = e.store.Submit(context.Background(), unsigned)
	assert.ErrorIs(t, err, ErrUnauthorized, "mint key missing")

	txn, err := ledger.NewTransaction(ledger.Message{
		Signers:     []chain.Pubkey{key.PublicKey(), cert.PublicKey()},
		Instruction: ix,
	}, key, cert)
	require.NoError(t, err)

	r, err := e.store.Submit(context.Background(), txn)
	require.NoError(t, err)
	assert.NotEmpty(t, r.Logs, "program logs")
	assert.Equal(t, uint64(90), e.project(prj.Project).RemainingAmount, "purchase applied")

	_, err = e.store.Submit(context.Background(), txn)
	assert.ErrorIs(t, err, ledger.ErrDuplicateTransaction, "replay rejected")
	assert.Equal(t, uint64(90), e.project(prj.Project).RemainingAmount, "applied once")
}

// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockwatch.cc/carbonpay/pkg/carbonpay"
	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
	"blockwatch.cc/carbonpay/pkg/token"
)

type node struct {
	t      *testing.T
	prog   *carbonpay.Program
	client *Client
	nonce  uint64
}

func newNode(t *testing.T, faucet bool) *node {
	store := ledger.NewStore()
	prog := carbonpay.New(store, carbonpay.DefaultProgramID)
	srv := httptest.NewServer(NewServer(store, prog, faucet))
	t.Cleanup(srv.Close)
	return &node{t: t, prog: prog, client: NewClient(srv.URL, srv.Client())}
}

func (n *node) keypair() *chain.Keypair {
	k, err := chain.NewKeypair()
	require.NoError(n.t, err)
	_, err = n.client.Airdrop(context.Background(), k.PublicKey(), chain.LamportsPerSOL)
	require.NoError(n.t, err)
	return k
}

// mint returns a fresh key for a mint the transaction creates.
func (n *node) mint() *chain.Keypair {
	k, err := chain.NewKeypair()
	require.NoError(n.t, err)
	return k
}

func (n *node) send(signer *chain.Keypair, ix ledger.Instruction, err error, mints ...*chain.Keypair) (*ledger.Receipt, error) {
	require.NoError(n.t, err, "build instruction")
	n.nonce++
	signers := []chain.Signer{signer}
	keys := []chain.Pubkey{signer.PublicKey()}
	for _, m := range mints {
		signers = append(signers, m)
		keys = append(keys, m.PublicKey())
	}
	txn, err := ledger.NewTransaction(ledger.Message{
		Signers:     keys,
		Instruction: ix,
		Nonce:       n.nonce,
	}, signers...)
	require.NoError(n.t, err)
	return n.client.Submit(context.Background(), txn)
}

func TestNodeScenario(t *testing.T) {
	n := newNode(t, true)
	ctx := context.Background()
	id := n.prog.ID()
	authority, owner, buyer := n.keypair(), n.keypair(), n.keypair()

	ra, err := carbonpay.NewInitializeRegistryAccounts(id, authority.PublicKey())
	require.NoError(t, err)
	ix, err := carbonpay.NewInitializeRegistryInstruction(id, ra)
	r, err := n.send(authority, ix, err)
	require.NoError(t, err, "init registry")
	assert.NotEmpty(t, r.ID, "receipt id")
	assert.Equal(t, uint64(1), r.Slot, "slot")

	cert, credit := n.mint(), n.mint()
	pa, err := carbonpay.NewInitializeProjectAccounts(id, owner.PublicKey(), cert.PublicKey(), credit.PublicKey())
	require.NoError(t, err)
	ix, err = carbonpay.NewInitializeProjectInstruction(id, pa, carbonpay.InitializeProjectArgs{
		Amount:             100,
		PricePerUnit:       10_000_000,
		FeeRateBasisPoints: 500,
		URI:                "ipfs://project",
		Name:               "Peatland",
		Symbol:             "PEAT",
	})
	_, err = n.send(owner, ix, err, cert, credit)
	require.NoError(t, err, "init project")

	pcert := n.mint()
	pur, err := carbonpay.NewPurchaseAccounts(id, buyer.PublicKey(), owner.PublicKey(), pa.Project, pcert.PublicKey())
	require.NoError(t, err)
	ix, err = carbonpay.NewPurchaseInstruction(id, pur, carbonpay.PurchaseArgs{Amount: 10})
	_, err = n.send(buyer, ix, err)
	assert.ErrorIs(t, err, carbonpay.ErrUnauthorized, "certificate key must sign")
	_, err = n.send(buyer, ix, nil, pcert)
	require.NoError(t, err, "purchase")

	residual := n.mint()
	off, err := carbonpay.NewRequestOffsetAccounts(id, buyer.PublicKey(), pa.Project, pur.Purchase, residual.PublicKey(), "REQ123")
	require.NoError(t, err)
	ix, err = carbonpay.NewRequestOffsetInstruction(id, off, carbonpay.RequestOffsetArgs{Amount: 5, RequestID: "REQ123"})
	_, err = n.send(buyer, ix, err, residual)
	require.NoError(t, err, "offset")

	reg, err := n.client.Registry(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), reg.TotalCredits, "total")
	assert.Equal(t, uint64(5), reg.OffsetCredits, "offset")
	assert.Equal(t, uint64(5_000_000), reg.TotalFeesEarned, "fees")
	assert.Equal(t, authority.PublicKey(), reg.Authority, "authority")

	prj, err := n.client.Project(ctx, owner.PublicKey(), pa.CertificateMint)
	require.NoError(t, err)
	assert.Equal(t, pa.Project, prj.Address, "project address")
	assert.Equal(t, uint64(90), prj.RemainingAmount, "remaining")
	assert.Equal(t, "ipfs://project", prj.URI, "uri")

	p, err := n.client.Purchase(ctx, buyer.PublicKey(), pa.Project, pur.CertificateMint)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), p.RemainingAmount, "purchase remaining")
	assert.Equal(t, off.ResidualMint, p.ActiveCertificateMint, "residual certificate")

	o, err := n.client.OffsetRequest(ctx, buyer.PublicKey(), pur.Purchase, "REQ123")
	require.NoError(t, err)
	assert.Equal(t, carbonpay.StatusPending, o.Status, "pending")
	assert.Equal(t, off.OffsetRequest, o.Address, "request address")

	b, err := n.client.Balance(ctx, owner.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, chain.LamportsPerSOL+95_000_000, b.Lamports, "owner proceeds")
	assert.Equal(t, "1.095", b.SOL, "sol rendering")

	ata, err := token.AssociatedAddress(buyer.PublicKey(), pa.CreditMint)
	require.NoError(t, err)
	tok, err := n.client.Token(ctx, ata)
	require.NoError(t, err)
	require.NotNil(t, tok.Account, "holding")
	assert.Equal(t, uint64(5), tok.Account.Amount, "buyer credits")

	tok, err = n.client.Token(ctx, off.ResidualMint)
	require.NoError(t, err)
	require.NotNil(t, tok.Mint, "mint")
	require.NotNil(t, tok.Metadata, "certificate metadata")
	assert.Equal(t, "Remaining 5", tok.Metadata.Data.Name, "residual name")
	assert.Equal(t, uint64(1), tok.Mint.Supply, "single unit")
}

func TestNodeErrors(t *testing.T) {
	n := newNode(t, true)
	ctx := context.Background()
	id := n.prog.ID()
	owner := n.keypair()

	// program errors come back with code and name
	pa, err := carbonpay.NewInitializeProjectAccounts(id, owner.PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	ix, err := carbonpay.NewInitializeProjectInstruction(id, pa, carbonpay.InitializeProjectArgs{Amount: 0, PricePerUnit: 1, Name: "x"})
	_, err = n.send(owner, ix, err)
	require.Error(t, err)
	assert.ErrorIs(t, err, carbonpay.ErrInvalidAmount, "unwraps to program error")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "api error")
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status, "status")
	assert.Equal(t, "InvalidAmount", apiErr.Name, "name")
	require.NotNil(t, apiErr.Receipt, "failed receipt")
	assert.NotEmpty(t, apiErr.Receipt.Err, "receipt error")

	_, err = n.client.Registry(ctx)
	assert.ErrorIs(t, err, carbonpay.ErrNotInitialized, "no registry yet")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status, "not found")

	_, err = n.client.OffsetRequest(ctx, owner.PublicKey(), owner.PublicKey(), "")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status, "missing request id")

	resp, err := http.Get(n.client.base + "/balance?address=not-a-key")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "bad address")

	resp, err = http.Get(n.client.base + "/tx")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, "get on tx")

	// bodies are capped before decoding
	body := `{"message":"` + strings.Repeat("A", 2*maxBody) + `"}`
	resp, err = http.Post(n.client.base+"/tx", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode, "oversized body")

	// replaying a signed transaction is rejected
	ra, err := carbonpay.NewInitializeRegistryAccounts(id, owner.PublicKey())
	require.NoError(t, err)
	ix, err = carbonpay.NewInitializeRegistryInstruction(id, ra)
	require.NoError(t, err)
	txn, err := ledger.NewTransaction(ledger.Message{
		Signers:     []chain.Pubkey{owner.PublicKey()},
		Instruction: ix,
	}, owner)
	require.NoError(t, err)
	_, err = n.client.Submit(ctx, txn)
	require.NoError(t, err)
	_, err = n.client.Submit(ctx, txn)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status, "replay")
}

func TestFaucetDisabled(t *testing.T) {
	n := newNode(t, false)
	_, err := n.client.Airdrop(context.Background(), solana.NewWallet().PublicKey(), 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status, "faucet off")
}

func TestSOL(t *testing.T) {
	assert.Equal(t, "1", SOL(chain.LamportsPerSOL), "one sol")
	assert.Equal(t, "0.005", SOL(5_000_000), "fee")
	assert.Equal(t, "0", SOL(0), "zero")
	assert.Equal(t, "18446744073.709551615", SOL(chain.Lamports(^uint64(0))), "max")
}

// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/echa/log"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"

	"blockwatch.cc/carbonpay/pkg/carbonpay"
	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
	"blockwatch.cc/carbonpay/pkg/rpc"
)

var (
	nodeEndpoint string
	programId    string
	authorityKey string
	amount       uint64
	price        uint64
	feeBps       uint
	buyAmount    uint64
	offsetAmount uint64
	flags        = flag.NewFlagSet("sim", flag.ContinueOnError)
	nonce        uint64
)

func init() {
	flags.Usage = func() {}
	flags.StringVar(&nodeEndpoint, "node", envOr("CARBONPAY_NODE", "http://localhost:8000"), "carbonpay node endpoint")
	flags.StringVar(&programId, "program", envOr("CARBONPAY_PROGRAM_ID", carbonpay.DefaultProgramID.String()), "carbon credit program id")
	flags.StringVar(&authorityKey, "key", os.Getenv("CARBONPAY_AUTHORITY_KEY"), "base58 registry authority key (default: fresh key)")
	flags.Uint64Var(&amount, "amount", 100, "project credits to issue")
	flags.Uint64Var(&price, "price", 10_000_000, "price per credit in lamports")
	flags.UintVar(&feeBps, "fee", 500, "platform fee in basis points")
	flags.Uint64Var(&buyAmount, "buy", 10, "credits to purchase")
	flags.Uint64Var(&offsetAmount, "offset", 5, "credits to offset")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	err := flags.Parse(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			fmt.Printf("Usage: %s [flags]\n", os.Args[0])
			fmt.Println("\nFlags")
			flags.PrintDefaults()
			return nil
		}
		return err
	}
	if feeBps > carbonpay.FeeBasisPointsDenominator {
		return fmt.Errorf("fee %d exceeds %d basis points", feeBps, carbonpay.FeeBasisPointsDenominator)
	}
	id, err := solana.PublicKeyFromBase58(programId)
	if err != nil {
		return fmt.Errorf("invalid program id %q: %v", programId, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	client := rpc.NewClient(strings.TrimSuffix(nodeEndpoint, "/"), nil)

	// fund participants through the node faucet
	authority, err := chain.NewKeypair()
	if authorityKey != "" {
		authority, err = chain.KeypairFromBase58(authorityKey)
	}
	if err != nil {
		return fmt.Errorf("authority key: %v", err)
	}
	if err := fund(ctx, client, authority, chain.LamportsPerSOL); err != nil {
		return err
	}
	owner, err := newFunded(ctx, client, chain.LamportsPerSOL)
	if err != nil {
		return err
	}
	cost, err := chain.Lamports(price).Mul(buyAmount)
	if err != nil {
		return err
	}
	buyer, err := newFunded(ctx, client, cost+chain.LamportsPerSOL)
	if err != nil {
		return err
	}

	// the registry exists once per program, a second init fails
	ra, err := carbonpay.NewInitializeRegistryAccounts(id, authority.PublicKey())
	if err != nil {
		return err
	}
	ix, err := carbonpay.NewInitializeRegistryInstruction(id, ra)
	if err != nil {
		return err
	}
	if _, err := send(ctx, client, authority, ix); err != nil {
		if !errors.Is(err, carbonpay.ErrAlreadyInitialized) {
			return err
		}
		reg, err := client.Registry(ctx)
		if err != nil {
			return err
		}
		if !reg.Authority.Equals(authority.PublicKey()) {
			log.Warnf("Registry %s belongs to %s, skipping verification", ra.Registry, reg.Authority)
			authority = nil
		}
	}

	// issue project credits, the new mints sign for their addresses
	cert, err := chain.NewKeypair()
	if err != nil {
		return err
	}
	credit, err := chain.NewKeypair()
	if err != nil {
		return err
	}
	pa, err := carbonpay.NewInitializeProjectAccounts(id, owner.PublicKey(), cert.PublicKey(), credit.PublicKey())
	if err != nil {
		return err
	}
	ix, err = carbonpay.NewInitializeProjectInstruction(id, pa, carbonpay.InitializeProjectArgs{
		Amount:             amount,
		PricePerUnit:       price,
		FeeRateBasisPoints: uint16(feeBps),
		URI:                "https://carbonpay.example/projects/" + pa.CertificateMint.String(),
		Name:               "Simulated Project",
		Symbol:             "SIM",
	})
	if err != nil {
		return err
	}
	if _, err := send(ctx, client, owner, ix, cert, credit); err != nil {
		return err
	}
	log.Infof("Project %s issued %d credits at %s SOL", pa.Project, amount, rpc.SOL(chain.Lamports(price)))

	// buy credits
	pcert, err := chain.NewKeypair()
	if err != nil {
		return err
	}
	pur, err := carbonpay.NewPurchaseAccounts(id, buyer.PublicKey(), owner.PublicKey(), pa.Project, pcert.PublicKey())
	if err != nil {
		return err
	}
	ix, err = carbonpay.NewPurchaseInstruction(id, pur, carbonpay.PurchaseArgs{Amount: buyAmount})
	if err != nil {
		return err
	}
	if _, err := send(ctx, client, buyer, ix, pcert); err != nil {
		return err
	}
	log.Infof("Purchase %s of %d credits, certificate %s", pur.Purchase, buyAmount, pur.CertificateMint)

	// retire part of them
	requestId := strings.ReplaceAll(uuid.New().String(), "-", "")
	residual, err := chain.NewKeypair()
	if err != nil {
		return err
	}
	off, err := carbonpay.NewRequestOffsetAccounts(id, buyer.PublicKey(), pa.Project, pur.Purchase, residual.PublicKey(), requestId)
	if err != nil {
		return err
	}
	ix, err = carbonpay.NewRequestOffsetInstruction(id, off, carbonpay.RequestOffsetArgs{
		Amount:    offsetAmount,
		RequestID: requestId,
	})
	if err != nil {
		return err
	}
	mints := []*chain.Keypair{residual}
	if offsetAmount >= buyAmount {
		mints = nil
	}
	if _, err := send(ctx, client, buyer, ix, mints...); err != nil {
		return err
	}
	log.Infof("Offset request %s for %d credits", requestId, offsetAmount)

	if authority != nil {
		pp, err := carbonpay.NewProcessOffsetAccounts(id, authority.PublicKey(), off.OffsetRequest)
		if err != nil {
			return err
		}
		ix, err = carbonpay.NewProcessOffsetInstruction(id, pp, carbonpay.ProcessOffsetArgs{Decision: carbonpay.StatusVerified})
		if err != nil {
			return err
		}
		if _, err := send(ctx, client, authority, ix); err != nil {
			return err
		}
	}

	// report
	req, err := client.OffsetRequest(ctx, buyer.PublicKey(), pur.Purchase, requestId)
	if err != nil {
		return err
	}
	log.Infof("Offset request %s is %s", req.Address, req.Status)
	reg, err := client.Registry(ctx)
	if err != nil {
		return err
	}
	log.Infof("Registry: %d total credits, %d active, %d offset, %d projects, %s SOL fees",
		reg.TotalCredits, reg.ActiveCredits, reg.OffsetCredits, reg.ProjectsCount,
		rpc.SOL(chain.Lamports(reg.TotalFeesEarned)))
	for _, k := range []struct {
		name string
		key  chain.Pubkey
	}{
		{"owner", owner.PublicKey()},
		{"buyer", buyer.PublicKey()},
		{"registry", ra.Registry},
	} {
		bal, err := client.Balance(ctx, k.key)
		if err != nil {
			return err
		}
		log.Infof("Balance %s %s: %s SOL", k.name, bal.Address, bal.SOL)
	}
	return nil
}

func newFunded(ctx context.Context, client *rpc.Client, lamports chain.Lamports) (*chain.Keypair, error) {
	k, err := chain.NewKeypair()
	if err != nil {
		return nil, err
	}
	return k, fund(ctx, client, k, lamports)
}

func fund(ctx context.Context, client *rpc.Client, k *chain.Keypair, lamports chain.Lamports) error {
	bal, err := client.Airdrop(ctx, k.PublicKey(), lamports)
	if err != nil {
		return fmt.Errorf("airdrop to %s: %w", k.PublicKey(), err)
	}
	log.Debugf("Funded %s with %s SOL", bal.Address, bal.SOL)
	return nil
}

// send signs ix with signer and the keys of any mints it creates.
func send(ctx context.Context, client *rpc.Client, signer *chain.Keypair, ix ledger.Instruction, mints ...*chain.Keypair) (*ledger.Receipt, error) {
	nonce++
	signers := []chain.Signer{signer}
	keys := []chain.Pubkey{signer.PublicKey()}
	for _, m := range mints {
		signers = append(signers, m)
		keys = append(keys, m.PublicKey())
	}
	txn, err := ledger.NewTransaction(ledger.Message{
		Signers:     keys,
		Instruction: ix,
		Nonce:       uint64(time.Now().UnixNano()) + nonce,
	}, signers...)
	if err != nil {
		return nil, err
	}
	receipt, err := client.Submit(ctx, txn)
	if err != nil {
		return nil, err
	}
	for _, l := range receipt.Logs {
		log.Debugf("  %s", l)
	}
	log.Infof("Tx %s slot %d receipt %s", receipt.Signature, receipt.Slot, receipt.ID)
	return receipt, nil
}

// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"fmt"

	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
	"blockwatch.cc/carbonpay/pkg/metadata"
	"blockwatch.cc/carbonpay/pkg/token"
)

// issueCertificate creates a single-unit token owned by holder, attaches
// metadata and revokes the mint authority so no second unit can exist.
// The holder must have signed.
func issueCertificate(tx *ledger.Tx, mint, holder chain.Pubkey, data metadata.Data) error {
	if tx.Exists(mint) {
		return fail(ErrAlreadyInitialized, "mint %s", mint)
	}
	if err := token.InitializeMint(tx, mint, CertificateDecimals, holder); err != nil {
		return err
	}
	ata, err := token.EnsureAssociatedAccount(tx, holder, mint)
	if err != nil {
		return err
	}
	if err := token.MintTo(tx, mint, ata, holder, 1); err != nil {
		return err
	}
	if _, err := metadata.Create(tx, mint, holder, holder, data, false); err != nil {
		return err
	}
	return token.SetAuthority(tx, mint, holder, chain.Pubkey{})
}

// retireCertificate burns the single unit of a certificate held by holder.
func retireCertificate(tx *ledger.Tx, mint, holder chain.Pubkey) error {
	ata, err := token.AssociatedAddress(holder, mint)
	if err != nil {
		return err
	}
	return token.Burn(tx, ata, mint, holder, 1)
}

func purchaseCertificate(mint chain.Pubkey, amount uint64) metadata.Data {
	return metadata.Data{
		Name:   fmt.Sprintf("Purchase of %d", amount),
		Symbol: PurchaseSymbol,
		URI:    PurchaseURIPrefix + mint.String(),
	}
}

func residualCertificate(mint chain.Pubkey, remaining uint64) metadata.Data {
	return metadata.Data{
		Name:   fmt.Sprintf("Remaining %d", remaining),
		Symbol: PurchaseSymbol,
		URI:    PurchaseURIPrefix + mint.String() + "/remaining",
	}
}

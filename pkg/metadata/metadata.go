// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package metadata

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
	"github.com/near/borsh-go"

	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
	"blockwatch.cc/carbonpay/pkg/token"
)

var ProgramID = solana.TokenMetadataProgramID

const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
	MaxCreators     = 5
)

var (
	ErrInvalidData       = errors.New("metadata: invalid data")
	ErrUnverifiedCreator = errors.New("metadata: creator marked verified did not sign")
	ErrNotFound          = errors.New("metadata: no metadata for mint")
)

type Creator struct {
	Address  chain.Pubkey `json:"address"`
	Verified bool         `json:"verified"`
	Share    uint8        `json:"share"`
}

// Data is the descriptive part of a certificate. The URI points to
// off-chain content and is stored as given.
type Data struct {
	Name                 string    `json:"name"`
	Symbol               string    `json:"symbol"`
	URI                  string    `json:"uri"`
	SellerFeeBasisPoints uint16    `json:"seller_fee_basis_points"`
	Creators             []Creator `json:"creators,omitempty"`
}

type Metadata struct {
	UpdateAuthority chain.Pubkey `json:"update_authority"`
	Mint            chain.Pubkey `json:"mint"`
	Data            Data         `json:"data"`
	IsMutable       bool         `json:"is_mutable"`
	Digest          string       `json:"digest"`
}

func Address(mint chain.Pubkey) (chain.Pubkey, error) {
	addr, _, err := solana.FindTokenMetadataAddress(mint)
	return addr, err
}

func (d Data) Validate() error {
	switch {
	case d.Name == "" || len(d.Name) > MaxNameLength:
		return fmt.Errorf("%w: name must be 1..%d bytes", ErrInvalidData, MaxNameLength)
	case len(d.Symbol) > MaxSymbolLength:
		return fmt.Errorf("%w: symbol exceeds %d bytes", ErrInvalidData, MaxSymbolLength)
	case len(d.URI) > MaxURILength:
		return fmt.Errorf("%w: uri exceeds %d bytes", ErrInvalidData, MaxURILength)
	case !utf8.ValidString(d.Name) || !utf8.ValidString(d.Symbol) || !utf8.ValidString(d.URI):
		return fmt.Errorf("%w: not utf-8", ErrInvalidData)
	case d.SellerFeeBasisPoints > 10000:
		return fmt.Errorf("%w: seller fee above 100%%", ErrInvalidData)
	case len(d.Creators) > MaxCreators:
		return fmt.Errorf("%w: too many creators", ErrInvalidData)
	}
	if len(d.Creators) == 0 {
		return nil
	}
	var total int
	for _, c := range d.Creators {
		total += int(c.Share)
	}
	if total != 100 {
		return fmt.Errorf("%w: creator shares sum to %d", ErrInvalidData, total)
	}
	return nil
}

// Digest returns the content id of the encoded data.
func (d Data) Digest() (string, error) {
	buf, err := borsh.Serialize(d)
	if err != nil {
		return "", err
	}
	return ledger.ContentID(buf)
}

// Create attaches metadata to mint. The mint authority must sign, so
// metadata has to be created before the authority is revoked.
func Create(tx *ledger.Tx, mint, mintAuthority, updateAuthority chain.Pubkey, data Data, mutable bool) (chain.Pubkey, error) {
	if err := data.Validate(); err != nil {
		return chain.Pubkey{}, err
	}
	m, err := token.ReadMint(tx, mint)
	if err != nil {
		return chain.Pubkey{}, err
	}
	if m.IsFixed() || !m.MintAuthority.Equals(mintAuthority) {
		return chain.Pubkey{}, fmt.Errorf("%w: %s", token.ErrAuthorityMismatch, mint)
	}
	if !tx.IsSigner(mintAuthority) {
		return chain.Pubkey{}, fmt.Errorf("%w: %s", token.ErrMissingSignature, mintAuthority)
	}
	for _, c := range data.Creators {
		if c.Verified && !tx.IsSigner(c.Address) {
			return chain.Pubkey{}, fmt.Errorf("%w: %s", ErrUnverifiedCreator, c.Address)
		}
	}
	addr, err := Address(mint)
	if err != nil {
		return chain.Pubkey{}, err
	}
	digest, err := data.Digest()
	if err != nil {
		return chain.Pubkey{}, err
	}
	buf, err := borsh.Serialize(Metadata{
		UpdateAuthority: updateAuthority,
		Mint:            mint,
		Data:            data,
		IsMutable:       mutable,
		Digest:          digest,
	})
	if err != nil {
		return chain.Pubkey{}, err
	}
	if err := tx.Create(addr, ProgramID, buf); err != nil {
		return chain.Pubkey{}, err
	}
	return addr, nil
}

// Read returns the metadata attached to mint.
func Read(r ledger.Reader, mint chain.Pubkey) (Metadata, error) {
	var md Metadata
	addr, err := Address(mint)
	if err != nil {
		return md, err
	}
	acc, ok := r.Get(addr)
	if !ok || !acc.Owner.Equals(ProgramID) {
		return md, fmt.Errorf("%w %s", ErrNotFound, mint)
	}
	if err := ledger.Decode(acc.Data, &md); err != nil {
		return md, err
	}
	return md, nil
}

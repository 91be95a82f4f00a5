// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	cid "github.com/ipfs/go-cid"
	mc "github.com/multiformats/go-multicodec"
	mh "github.com/multiformats/go-multihash"
	"github.com/near/borsh-go"

	"blockwatch.cc/carbonpay/pkg/chain"
)

// Receipt is the execution record of a single transaction.
type Receipt struct {
	ID        string          `json:"id"`
	Signature chain.Signature `json:"signature"`
	Slot      uint64          `json:"slot"`
	Signers   []chain.Pubkey  `json:"signers"`
	Writes    []chain.Pubkey  `json:"writes,omitempty"`
	Logs      []string        `json:"logs"`
	Err       string          `json:"error,omitempty"`
}

func (r *Receipt) Failed() bool {
	return r.Err != ""
}

// receipt content hash, independent of map iteration order
type receiptBody struct {
	Slot    uint64
	Signers []chain.Pubkey
	Logs    []string
	Err     string
}

var receiptPrefix = cid.Prefix{
	Version:  1,
	Codec:    uint64(mc.Raw),
	MhType:   mh.SHA2_256,
	MhLength: -1, // default length
}

func receiptID(r *Receipt) string {
	buf, err := borsh.Serialize(receiptBody{
		Slot:    r.Slot,
		Signers: r.Signers,
		Logs:    r.Logs,
		Err:     r.Err,
	})
	if err != nil {
		return ""
	}
	c, err := receiptPrefix.Sum(buf)
	if err != nil {
		return ""
	}
	return c.String()
}

// ContentID returns the CIDv1 of raw bytes using the receipt hash settings.
func ContentID(buf []byte) (string, error) {
	c, err := receiptPrefix.Sum(buf)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

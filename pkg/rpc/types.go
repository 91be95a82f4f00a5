// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"math/big"

	"github.com/shopspring/decimal"

	"blockwatch.cc/carbonpay/pkg/carbonpay"
	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
	"blockwatch.cc/carbonpay/pkg/metadata"
	"blockwatch.cc/carbonpay/pkg/token"
)

// SignedTransaction is the wire form of a ledger transaction. The message
// is the borsh encoding that was signed.
type SignedTransaction struct {
	Message    []byte            `json:"message"`
	Signatures []chain.Signature `json:"signatures"`
}

func EncodeTransaction(t *ledger.Transaction) (SignedTransaction, error) {
	buf, err := t.Message.Encode()
	if err != nil {
		return SignedTransaction{}, err
	}
	return SignedTransaction{Message: buf, Signatures: t.Signatures}, nil
}

func (s SignedTransaction) Decode() (*ledger.Transaction, error) {
	msg, err := ledger.DecodeMessage(s.Message)
	if err != nil {
		return nil, err
	}
	return &ledger.Transaction{Message: msg, Signatures: s.Signatures}, nil
}

type ErrorResponse struct {
	Error   string          `json:"error"`
	Code    uint32          `json:"code,omitempty"`
	Name    string          `json:"name,omitempty"`
	Receipt *ledger.Receipt `json:"receipt,omitempty"`
}

type ProjectInfo struct {
	Address chain.Pubkey `json:"address"`
	carbonpay.Project
}

type PurchaseInfo struct {
	Address chain.Pubkey `json:"address"`
	carbonpay.Purchase
}

type OffsetRequestInfo struct {
	Address chain.Pubkey `json:"address"`
	carbonpay.OffsetRequest
}

type RegistryInfo struct {
	Address chain.Pubkey `json:"address"`
	carbonpay.Registry
}

type BalanceInfo struct {
	Address  chain.Pubkey   `json:"address"`
	Lamports chain.Lamports `json:"lamports"`
	SOL      string         `json:"sol"`
}

// TokenInfo describes a token program account, either a mint (with its
// certificate metadata if any) or a holding.
type TokenInfo struct {
	Address  chain.Pubkey       `json:"address"`
	Mint     *token.Mint        `json:"mint,omitempty"`
	Account  *token.Account     `json:"account,omitempty"`
	Metadata *metadata.Metadata `json:"metadata,omitempty"`
}

// query parameters

type addressQuery struct {
	Address chain.Pubkey `schema:"address,required"`
}

type airdropQuery struct {
	Address  chain.Pubkey `schema:"address,required"`
	Lamports uint64       `schema:"lamports,required"`
}

type projectQuery struct {
	Owner       chain.Pubkey `schema:"owner,required"`
	Certificate chain.Pubkey `schema:"certificate,required"`
}

type purchaseQuery struct {
	Buyer       chain.Pubkey `schema:"buyer,required"`
	Project     chain.Pubkey `schema:"project,required"`
	Certificate chain.Pubkey `schema:"certificate,required"`
}

type offsetQuery struct {
	Requester chain.Pubkey `schema:"requester,required"`
	Purchase  chain.Pubkey `schema:"purchase,required"`
	RequestID string       `schema:"request_id,required"`
}

// SOL renders lamports as a decimal SOL amount.
func SOL(l chain.Lamports) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(l)), -9).String()
}

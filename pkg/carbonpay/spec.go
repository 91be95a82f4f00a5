// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"github.com/gagliardetto/solana-go"

	"blockwatch.cc/carbonpay/pkg/ledger"
)

const (
	FeeBasisPointsDenominator = 10000
	MaxRequestIDLength        = 32
	CertificateDecimals       = 0
	CreditDecimals            = 0

	// project certificate royalty split between owner and platform
	OwnerCreatorShare    = 95
	PlatformCreatorShare = 5

	PurchaseSymbol    = "CRBN"
	PurchaseURIPrefix = "https://carbonpay.com/purchases/"
)

var DefaultProgramID = solana.MustPublicKeyFromBase58("b6Yz3TrG29otpSnLzJTNCB1vxxcwJCTuPHdCfR9Njqs")

// address domain tags
var (
	RegistrySeed      = []byte("carbon_credits")
	ProjectSeed       = []byte("project")
	PurchaseSeed      = []byte("purchase")
	OffsetRequestSeed = []byte("offset_request")
)

type RequestStatus uint8

const (
	StatusPending RequestStatus = iota
	StatusVerified
	StatusRejected
)

func (s RequestStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusVerified:
		return "verified"
	case StatusRejected:
		return "rejected"
	default:
		return "invalid"
	}
}

func (s RequestStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RequestStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*s = StatusPending
	case "verified":
		*s = StatusVerified
	case "rejected":
		*s = StatusRejected
	default:
		return ErrInvalidRequestStatus
	}
	return nil
}

type InitializeProjectArgs struct {
	Amount             uint64 `json:"amount"`
	PricePerUnit       uint64 `json:"price_per_unit"`
	FeeRateBasisPoints uint16 `json:"fee_rate_bps"`
	URI                string `json:"uri"`
	Name               string `json:"name"`
	Symbol             string `json:"symbol"`
}

type PurchaseArgs struct {
	Amount uint64 `json:"amount"`
}

type RequestOffsetArgs struct {
	Amount    uint64 `json:"amount"`
	RequestID string `json:"request_id"`
}

type ProcessOffsetArgs struct {
	Decision RequestStatus `json:"decision"`
}

// Ledger program that tokenizes carbon credits
type Contract interface {
	// Creates the singleton registry
	// Called by: registry authority
	InitializeRegistry(tx *ledger.Tx, a InitializeRegistryAccounts) error

	// Issues a project certificate and escrows the project's credits in the vault
	// Called by: project owner
	InitializeProject(tx *ledger.Tx, a InitializeProjectAccounts, args InitializeProjectArgs) error

	// Pays for credits and moves them from the vault to the buyer
	// Called by: buyer
	PurchaseCarbonCredits(tx *ledger.Tx, a PurchaseAccounts, args PurchaseArgs) error

	// Burns purchased credits and records a pending offset request
	// Called by: credit holder
	RequestOffset(tx *ledger.Tx, a RequestOffsetAccounts, args RequestOffsetArgs) error

	// Verifies or rejects a pending offset request
	// Called by: registry authority
	ProcessOffsetRequest(tx *ledger.Tx, a ProcessOffsetAccounts, args ProcessOffsetArgs) error
}

var _ Contract = (*Program)(nil)

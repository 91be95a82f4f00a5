// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package carbonpay

import (
	"errors"
	"fmt"

	"blockwatch.cc/carbonpay/pkg/chain"
	"blockwatch.cc/carbonpay/pkg/ledger"
	"blockwatch.cc/carbonpay/pkg/metadata"
	"blockwatch.cc/carbonpay/pkg/token"
)

// ErrorCode is a program error. Codes are stable and start at 6000 so they
// never collide with runtime errors.
type ErrorCode uint32

const (
	ErrInvalidAmount ErrorCode = 6000 + iota
	ErrInvalidFeeRate
	ErrInsufficientCredits
	ErrInsufficientBalance
	ErrInsufficientFunds
	ErrProjectInactive
	ErrArithmeticOverflow
	ErrAddressMismatch
	ErrAlreadyInitialized
	ErrDuplicateRequest
	ErrInvalidRequestId
	ErrInvalidPrice
	ErrInvalidMetadata
	ErrNotInitialized
	ErrUnauthorized
	ErrRequestAlreadyProcessed
	ErrInvalidRequestStatus
	ErrInvalidInstruction
)

var errorText = map[ErrorCode][2]string{
	ErrInvalidAmount:           {"InvalidAmount", "amount must be greater than zero"},
	ErrInvalidFeeRate:          {"InvalidFeeRate", "fee rate must not exceed 10000 basis points"},
	ErrInsufficientCredits:     {"InsufficientCredits", "not enough credits left in project"},
	ErrInsufficientBalance:     {"InsufficientBalance", "not enough purchased credits to offset"},
	ErrInsufficientFunds:       {"InsufficientFunds", "buyer cannot pay for purchase"},
	ErrProjectInactive:         {"ProjectInactive", "project is not active"},
	ErrArithmeticOverflow:      {"ArithmeticOverflow", "arithmetic overflow"},
	ErrAddressMismatch:         {"AddressMismatch", "account does not match derived address"},
	ErrAlreadyInitialized:      {"AlreadyInitialized", "account already initialized"},
	ErrDuplicateRequest:        {"DuplicateRequest", "offset request already exists"},
	ErrInvalidRequestId:        {"InvalidRequestId", "request id must be 1 to 32 bytes"},
	ErrInvalidPrice:            {"InvalidPrice", "price must be greater than zero"},
	ErrInvalidMetadata:         {"InvalidMetadata", "certificate metadata out of bounds"},
	ErrNotInitialized:          {"NotInitialized", "account not initialized"},
	ErrUnauthorized:            {"Unauthorized", "missing or wrong signer"},
	ErrRequestAlreadyProcessed: {"RequestAlreadyProcessed", "offset request already processed"},
	ErrInvalidRequestStatus:    {"InvalidRequestStatus", "invalid offset request status"},
	ErrInvalidInstruction:      {"InvalidInstruction", "invalid instruction data"},
}

func (e ErrorCode) Error() string {
	if t, ok := errorText[e]; ok {
		return "carbonpay: " + t[1]
	}
	return fmt.Sprintf("carbonpay: error %d", uint32(e))
}

func (e ErrorCode) Name() string {
	if t, ok := errorText[e]; ok {
		return t[0]
	}
	return fmt.Sprintf("Error%d", uint32(e))
}

func (e ErrorCode) Code() uint32 {
	return uint32(e)
}

// ParseErrorCode maps a numeric code back to the program error.
func ParseErrorCode(code uint32) (ErrorCode, bool) {
	_, ok := errorText[ErrorCode(code)]
	return ErrorCode(code), ok
}

// ErrorCodeOf extracts the program error from err.
func ErrorCodeOf(err error) (ErrorCode, bool) {
	var code ErrorCode
	if errors.As(err, &code) {
		return code, true
	}
	return 0, false
}

func fail(code ErrorCode, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", code, fmt.Sprintf(format, args...))
}

// translate maps failures of the ledger runtime onto program errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := ErrorCodeOf(err); ok {
		return err
	}
	var code ErrorCode
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		code = ErrInsufficientFunds
	case errors.Is(err, token.ErrInsufficientFunds):
		code = ErrInsufficientBalance
	case errors.Is(err, chain.ErrOverflow):
		code = ErrArithmeticOverflow
	case errors.Is(err, ledger.ErrAccountExists):
		code = ErrAlreadyInitialized
	case errors.Is(err, ledger.ErrOwnerMismatch),
		errors.Is(err, ledger.ErrInvalidSeeds),
		errors.Is(err, token.ErrMintMismatch),
		errors.Is(err, token.ErrOwnerMismatch):
		code = ErrAddressMismatch
	case errors.Is(err, ledger.ErrMissingSignature),
		errors.Is(err, token.ErrMissingSignature),
		errors.Is(err, token.ErrAuthorityMismatch),
		errors.Is(err, token.ErrFixedSupply),
		errors.Is(err, metadata.ErrUnverifiedCreator):
		code = ErrUnauthorized
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, token.ErrNotInitialized),
		errors.Is(err, metadata.ErrNotFound):
		code = ErrNotInitialized
	case errors.Is(err, metadata.ErrInvalidData):
		code = ErrInvalidMetadata
	default:
		return err
	}
	return fmt.Errorf("%w: %v", code, err)
}

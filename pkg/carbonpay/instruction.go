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

// instruction discriminators: sha256("global:<name>")[:8]
var (
	ixInitializeRegistry = instructionDiscriminator("initialize_carbon_credits")
	ixInitializeProject  = instructionDiscriminator("initialize_project")
	ixPurchase           = instructionDiscriminator("purchase_carbon_credits")
	ixRequestOffset      = instructionDiscriminator("request_offset")
	ixProcessOffset      = instructionDiscriminator("process_offset_request")
)

func instructionDiscriminator(name string) [8]byte {
	var d [8]byte
	h := sha256.Sum256([]byte("global:" + name))
	copy(d[:], h[:8])
	return d
}

func encodeInstruction(programID chain.Pubkey, disc [8]byte, accounts []chain.Pubkey, args interface{}) (ledger.Instruction, error) {
	data := append([]byte(nil), disc[:]...)
	if args != nil {
		buf, err := borsh.Serialize(args)
		if err != nil {
			return ledger.Instruction{}, err
		}
		data = append(data, buf...)
	}
	return ledger.Instruction{
		ProgramID: programID,
		Accounts:  accounts,
		Data:      data,
	}, nil
}

func NewInitializeRegistryInstruction(programID chain.Pubkey, a InitializeRegistryAccounts) (ledger.Instruction, error) {
	return encodeInstruction(programID, ixInitializeRegistry, a.list(), nil)
}

func NewInitializeProjectInstruction(programID chain.Pubkey, a InitializeProjectAccounts, args InitializeProjectArgs) (ledger.Instruction, error) {
	return encodeInstruction(programID, ixInitializeProject, a.list(), args)
}

func NewPurchaseInstruction(programID chain.Pubkey, a PurchaseAccounts, args PurchaseArgs) (ledger.Instruction, error) {
	return encodeInstruction(programID, ixPurchase, a.list(), args)
}

func NewRequestOffsetInstruction(programID chain.Pubkey, a RequestOffsetAccounts, args RequestOffsetArgs) (ledger.Instruction, error) {
	return encodeInstruction(programID, ixRequestOffset, a.list(), args)
}

func NewProcessOffsetInstruction(programID chain.Pubkey, a ProcessOffsetAccounts, args ProcessOffsetArgs) (ledger.Instruction, error) {
	return encodeInstruction(programID, ixProcessOffset, a.list(), args)
}

func decodeArgs(data []byte, v interface{}) error {
	if err := ledger.Decode(data, v); err != nil {
		return fail(ErrInvalidInstruction, "%v", err)
	}
	return nil
}

// Process decodes an instruction and runs the matching handler.
func (p *Program) Process(tx *ledger.Tx, ix ledger.Instruction) error {
	return translate(p.dispatch(tx, ix))
}

func (p *Program) dispatch(tx *ledger.Tx, ix ledger.Instruction) error {
	if !ix.ProgramID.Equals(p.id) {
		return fail(ErrInvalidInstruction, "program %s", ix.ProgramID)
	}
	if len(ix.Data) < 8 {
		return fail(ErrInvalidInstruction, "short data")
	}
	disc, data := ix.Data[:8], ix.Data[8:]
	switch {
	case bytes.Equal(disc, ixInitializeRegistry[:]):
		var a InitializeRegistryAccounts
		if err := a.parse(ix.Accounts); err != nil {
			return err
		}
		return p.InitializeRegistry(tx, a)

	case bytes.Equal(disc, ixInitializeProject[:]):
		var (
			a    InitializeProjectAccounts
			args InitializeProjectArgs
		)
		if err := a.parse(ix.Accounts); err != nil {
			return err
		}
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return p.InitializeProject(tx, a, args)

	case bytes.Equal(disc, ixPurchase[:]):
		var (
			a    PurchaseAccounts
			args PurchaseArgs
		)
		if err := a.parse(ix.Accounts); err != nil {
			return err
		}
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return p.PurchaseCarbonCredits(tx, a, args)

	case bytes.Equal(disc, ixRequestOffset[:]):
		var (
			a    RequestOffsetAccounts
			args RequestOffsetArgs
		)
		if err := a.parse(ix.Accounts); err != nil {
			return err
		}
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return p.RequestOffset(tx, a, args)

	case bytes.Equal(disc, ixProcessOffset[:]):
		var (
			a    ProcessOffsetAccounts
			args ProcessOffsetArgs
		)
		if err := a.parse(ix.Accounts); err != nil {
			return err
		}
		if err := decodeArgs(data, &args); err != nil {
			return err
		}
		return p.ProcessOffsetRequest(tx, a, args)

	default:
		return fail(ErrInvalidInstruction, "unknown discriminator %x", disc)
	}
}

// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"errors"
	"fmt"

	"github.com/near/borsh-go"

	"blockwatch.cc/carbonpay/pkg/chain"
)

var (
	ErrInvalidSignature = errors.New("ledger: invalid signature")
	ErrEmptyMessage     = errors.New("ledger: message has no signers")
)

// Instruction addresses a program with the accounts it touches and an
// opaque argument payload.
type Instruction struct {
	ProgramID chain.Pubkey   `json:"program_id"`
	Accounts  []chain.Pubkey `json:"accounts"`
	Data      []byte         `json:"data"`
}

// Message is the signed part of a transaction. The first signer pays and
// identifies the transaction.
type Message struct {
	Signers     []chain.Pubkey `json:"signers"`
	Instruction Instruction    `json:"instruction"`
	Nonce       uint64         `json:"nonce"`
}

func (m Message) Encode() ([]byte, error) {
	return borsh.Serialize(m)
}

// DecodeMessage parses a message received from outside the node.
func DecodeMessage(buf []byte) (Message, error) {
	if len(buf) > MaxMessageSize {
		return Message{}, fmt.Errorf("%w: message of %d bytes exceeds %d", ErrMalformed, len(buf), MaxMessageSize)
	}
	var m Message
	if err := Decode(buf, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

type Transaction struct {
	Message    Message           `json:"message"`
	Signatures []chain.Signature `json:"signatures"`
}

// NewTransaction signs msg with every signer in the order they appear in
// msg.Signers.
func NewTransaction(msg Message, signers ...chain.Signer) (*Transaction, error) {
	buf, err := msg.Encode()
	if err != nil {
		return nil, err
	}
	t := &Transaction{
		Message:    msg,
		Signatures: make([]chain.Signature, len(msg.Signers)),
	}
	for i, key := range msg.Signers {
		var found bool
		for _, s := range signers {
			if !s.PublicKey().Equals(key) {
				continue
			}
			sig, err := s.Sign(buf)
			if err != nil {
				return nil, err
			}
			t.Signatures[i] = sig
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrMissingSignature, key)
		}
	}
	return t, nil
}

// Verify checks that every listed signer has signed the message.
func (t *Transaction) Verify() error {
	if len(t.Message.Signers) == 0 {
		return ErrEmptyMessage
	}
	if len(t.Signatures) != len(t.Message.Signers) {
		return ErrMissingSignature
	}
	buf, err := t.Message.Encode()
	if err != nil {
		return err
	}
	for i, key := range t.Message.Signers {
		if !key.Verify(buf, t.Signatures[i]) {
			return fmt.Errorf("%w: %s", ErrInvalidSignature, key)
		}
	}
	return nil
}

// ID is the first signature. The store remembers it to reject replays.
func (t *Transaction) ID() chain.Signature {
	if len(t.Signatures) == 0 {
		return chain.Signature{}
	}
	return t.Signatures[0]
}

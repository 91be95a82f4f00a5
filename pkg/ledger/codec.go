// Copyright (c) 2022 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"reflect"

	"github.com/near/borsh-go"
)

// MaxMessageSize bounds an encoded transaction message, same as a
// network packet on the reference chain.
const MaxMessageSize = 1232

var ErrMalformed = errors.New("ledger: malformed encoding")

var bigIntType = reflect.TypeOf(big.Int{})

// Decode deserializes borsh data into the value v points to. Every length
// prefix is checked against the remaining input first, because the borsh
// decoder allocates strings at their declared length before reading them.
func Decode(buf []byte, v interface{}) error {
	t := reflect.TypeOf(v)
	if t == nil || t.Kind() != reflect.Ptr {
		return fmt.Errorf("%w: decode target %T is not a pointer", ErrMalformed, v)
	}
	if _, err := checkLayout(t.Elem(), buf); err != nil {
		return err
	}
	if err := borsh.Deserialize(v, buf); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// checkLayout walks the encoding of a t value at the start of buf and
// returns the bytes after it.
func checkLayout(t reflect.Type, buf []byte) ([]byte, error) {
	var err error
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return skip(buf, 1)
	case reflect.Int16, reflect.Uint16:
		return skip(buf, 2)
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return skip(buf, 4)
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64, reflect.Float64:
		return skip(buf, 8)
	case reflect.String:
		n, rest, err := length(buf)
		if err != nil {
			return nil, err
		}
		return skip(rest, n)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return skip(buf, t.Len())
		}
		for i := 0; i < t.Len(); i++ {
			if buf, err = checkLayout(t.Elem(), buf); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case reflect.Slice:
		n, rest, err := length(buf)
		if err != nil {
			return nil, err
		}
		buf = rest
		for i := 0; i < n; i++ {
			if buf, err = checkLayout(t.Elem(), buf); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case reflect.Map:
		n, rest, err := length(buf)
		if err != nil {
			return nil, err
		}
		buf = rest
		for i := 0; i < n; i++ {
			if buf, err = checkLayout(t.Key(), buf); err != nil {
				return nil, err
			}
			if buf, err = checkLayout(t.Elem(), buf); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case reflect.Ptr:
		if len(buf) < 1 {
			return nil, fmt.Errorf("%w: truncated option", ErrMalformed)
		}
		if buf[0] == 0 {
			return buf[1:], nil
		}
		return checkLayout(t.Elem(), buf[1:])
	case reflect.Struct:
		if t == bigIntType {
			return skip(buf, 16)
		}
		if t.NumField() > 0 {
			first := t.Field(0)
			if first.Type.Kind() == reflect.Uint8 && first.Tag.Get("borsh_enum") == "true" {
				if len(buf) < 1 {
					return nil, fmt.Errorf("%w: truncated enum", ErrMalformed)
				}
				variant := int(buf[0]) + 1
				if variant >= t.NumField() {
					return nil, fmt.Errorf("%w: enum variant %d", ErrMalformed, buf[0])
				}
				return checkLayout(t.Field(variant).Type, buf[1:])
			}
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Tag.Get("borsh_skip") == "true" {
				continue
			}
			if buf, err = checkLayout(f.Type, buf); err != nil {
				return nil, err
			}
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %s", ErrMalformed, t)
	}
}

// length reads a u32 length prefix that must fit into the rest of buf.
func length(buf []byte) (int, []byte, error) {
	if len(buf) < 4 {
		return 0, nil, fmt.Errorf("%w: truncated length", ErrMalformed)
	}
	n, rest := binary.LittleEndian.Uint32(buf), buf[4:]
	if uint64(n) > uint64(len(rest)) {
		return 0, nil, fmt.Errorf("%w: length %d exceeds %d remaining bytes", ErrMalformed, n, len(rest))
	}
	return int(n), rest, nil
}

func skip(buf []byte, n int) ([]byte, error) {
	if len(buf) < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformed, n, len(buf))
	}
	return buf[n:], nil
}

// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// The shared modes are built once at package load. The option sets are
// fixed, so a construction failure is a programming error and panics.
var (
	encMode = buildEncMode()
	decMode = buildDecMode()
)

// buildEncMode returns the encoder mode: Core Deterministic Encoding
// (RFC 8949 §4.2), meaning sorted map keys, smallest integer widths,
// and no indefinite-length items. Identical entries encode to
// identical bytes, so rewriting the ledger never churns its digest.
func buildEncMode() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: encoder options rejected: " + err.Error())
	}
	return mode
}

// buildDecMode returns the decoder mode. Unknown fields decode without
// error so an older binary can read a ledger written by a newer one.
func buildDecMode() cbor.DecMode {
	options := cbor.DecOptions{
		// Ledger records only ever use string map keys. When decoding
		// into an any-typed target the library must pick a concrete map
		// type, and its default of map[interface{}]interface{} breaks
		// encoding/json and every caller expecting map[string]any.
		// Struct targets are unaffected.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	mode, err := options.DecMode()
	if err != nil {
		panic("codec: decoder options rejected: " + err.Error())
	}
	return mode
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder and Decoder are aliases for the underlying stream types, so
// callers depend on lib/codec rather than on fxamacker/cbor.
type (
	Encoder = cbor.Encoder
	Decoder = cbor.Decoder
)

// NewEncoder returns a deterministic stream encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a stream decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// Diagnose renders data in CBOR diagnostic notation (RFC 8949 §8).
// This is the inspection path for ledger files that fail to decode.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package codec provides the shared CBOR encoding configuration.
//
// Two serialization formats are in use, with a clear boundary between
// them. JSON covers every external surface: cloud API requests,
// payload envelopes consumed by Python tooling, and CLI --json output.
// CBOR covers internal storage, which today means the on-disk job
// ledger. This package holds the single encoder and decoder
// configuration for the CBOR side so every writer of the ledger
// produces byte-identical encodings: the encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2), so the same entries always
// serialize to the same bytes.
//
// Buffer-oriented callers use Marshal and Unmarshal; the ledger's
// record stream uses NewEncoder and NewDecoder.
//
// Struct tags follow one rule: a field gets a `cbor` tag only when its
// type is never serialized as anything but CBOR. A type that appears
// in both CBOR and JSON output (ledger entries, for instance) carries
// a single `json` tag — fxamacker/cbor reads `json` tags as fallback,
// so one tag controls naming and omitempty for both formats. Doubling
// the tags up obscures which contract a type participates in.
package codec

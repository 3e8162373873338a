// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package serial implements the string envelope format used for values
// crossing the bridge between Perceval and gate-based frameworks.
//
// Values are JSON trees. Byte bodies inside a tree (serialized
// experiments, result tables) travel as tagged strings of the form
//
//	:PCVL:<kind>:<base64>
//
// where the kind names the codec (raw, zip, zstd, lz4). The metadata
// bridge stores exactly MarshalString's output: the JSON encoding of
// the serialized tree. Strings beginning with the :PCVL: prefix are
// reserved for envelopes and rejected as plain data.
package serial

import (
	"encoding/json"
	"fmt"
)

// Serialize converts v into a JSON-marshalable tree. Maps and slices
// are walked recursively, []byte bodies become envelope strings (zip
// above the compression threshold, raw below), and any other value is
// normalized through a JSON round trip so structs serialize by their
// JSON tags.
func Serialize(v any) (any, error) {
	switch value := v.(type) {
	case nil:
		return nil, nil

	case []byte:
		kind := KindRaw
		if len(value) >= compressThreshold {
			kind = KindZip
		}
		return Pack(value, kind)

	case string:
		if IsPacked(value) {
			return nil, fmt.Errorf("serial: plain string uses reserved %q prefix", TagPrefix)
		}
		return value, nil

	case bool, float64, int, int64:
		return value, nil

	case map[string]any:
		result := make(map[string]any, len(value))
		for key, element := range value {
			serialized, err := Serialize(element)
			if err != nil {
				return nil, fmt.Errorf("serial: key %q: %w", key, err)
			}
			result[key] = serialized
		}
		return result, nil

	case []any:
		result := make([]any, len(value))
		for index, element := range value {
			serialized, err := Serialize(element)
			if err != nil {
				return nil, fmt.Errorf("serial: index %d: %w", index, err)
			}
			result[index] = serialized
		}
		return result, nil

	default:
		// Structs, typed maps, numeric types other than the JSON
		// defaults: normalize through a JSON round trip, then walk
		// the resulting tree.
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("serial: unsupported value %T: %w", value, err)
		}
		var tree any
		if err := json.Unmarshal(encoded, &tree); err != nil {
			return nil, fmt.Errorf("serial: normalizing %T: %w", value, err)
		}
		return Serialize(tree)
	}
}

// Deserialize reverses [Serialize]: envelope strings become []byte
// bodies, containers are walked recursively, and everything else
// passes through unchanged.
func Deserialize(v any) (any, error) {
	switch value := v.(type) {
	case string:
		data, packed, err := MaybeUnpack(value)
		if err != nil {
			return nil, err
		}
		if packed {
			return data, nil
		}
		return value, nil

	case map[string]any:
		result := make(map[string]any, len(value))
		for key, element := range value {
			deserialized, err := Deserialize(element)
			if err != nil {
				return nil, fmt.Errorf("serial: key %q: %w", key, err)
			}
			result[key] = deserialized
		}
		return result, nil

	case []any:
		result := make([]any, len(value))
		for index, element := range value {
			deserialized, err := Deserialize(element)
			if err != nil {
				return nil, fmt.Errorf("serial: index %d: %w", index, err)
			}
			result[index] = deserialized
		}
		return result, nil

	default:
		return value, nil
	}
}

// MarshalString serializes v and JSON-encodes the result. This is the
// exact form the metadata bridge writes into framework metadata maps.
func MarshalString(v any) (string, error) {
	serialized, err := Serialize(v)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(serialized)
	if err != nil {
		return "", fmt.Errorf("serial: encoding: %w", err)
	}
	return string(encoded), nil
}

// UnmarshalString reverses [MarshalString]: JSON-decode, then
// deserialize the tree.
func UnmarshalString(s string) (any, error) {
	var tree any
	if err := json.Unmarshal([]byte(s), &tree); err != nil {
		return nil, fmt.Errorf("serial: decoding: %w", err)
	}
	return Deserialize(tree)
}

// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package serial

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// TagPrefix introduces every packed string. Strings crossing the bridge
// that begin with this prefix are envelopes; everything else is plain
// data. The prefix is a wire constant — changing it breaks every peer.
const TagPrefix = ":PCVL:"

// Kind identifies the byte encoding used inside an envelope. Kinds are
// wire constants stored in the envelope tag itself.
type Kind string

const (
	// KindRaw is plain base64 with no compression. Used for small or
	// incompressible bodies where compression adds CPU cost without
	// reducing size.
	KindRaw Kind = "raw"

	// KindZip is zlib (DEFLATE) compression. The compatibility
	// default: every Perceval peer understands it.
	KindZip Kind = "zip"

	// KindZstd is zstd compression at the default level. Better
	// ratios than zlib on large JSON experiment bodies at a fraction
	// of the CPU cost.
	KindZstd Kind = "zstd"

	// KindLZ4 is LZ4 frame compression. Fastest decode; acceptable
	// ratios on binary bodies.
	KindLZ4 Kind = "lz4"
)

// ParseKind parses a kind from its wire name.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case KindRaw, KindZip, KindZstd, KindLZ4:
		return Kind(name), nil
	default:
		return "", fmt.Errorf("serial: unknown envelope kind %q", name)
	}
}

// maxDecodedSize bounds the output of Unpack. A corrupt or hostile
// envelope cannot expand past this.
const maxDecodedSize = 1 << 28 // 256 MiB

// compressThreshold is the body size below which PackAuto does not
// bother compressing. Tiny bodies grow under any codec once the
// base64 and tag overhead is added.
const compressThreshold = 512

// zstdEncoder and zstdDecoder are reused across calls to avoid
// repeated initialization overhead. Both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("serial: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("serial: zstd decoder initialization failed: " + err.Error())
	}
}

// Pack encodes data into an envelope string of the given kind:
//
//	:PCVL:<kind>:<base64 of encoded body>
//
// Pack honors the requested kind even when compression does not pay
// off; use [PackAuto] to let the codec be chosen from the data.
func Pack(data []byte, kind Kind) (string, error) {
	body, err := encodeBody(data, kind)
	if err != nil {
		return "", err
	}
	return TagPrefix + string(kind) + ":" + base64.StdEncoding.EncodeToString(body), nil
}

// PackAuto selects a codec by probing the data and returns the packed
// envelope. Bodies under the compression threshold are packed raw.
// Compression that fails to shrink the body falls back to raw.
func PackAuto(data []byte) (string, error) {
	return Pack(data, selectKind(data))
}

// selectKind probes data with zstd and picks a codec from the ratio.
// High-ratio bodies (JSON experiments, state tables) take zstd;
// moderate ratios take zip for peer compatibility; anything that
// barely shrinks stays raw.
func selectKind(data []byte) Kind {
	if len(data) < compressThreshold {
		return KindRaw
	}
	compressed := zstdEncoder.EncodeAll(data, nil)
	ratio := float64(len(data)) / float64(len(compressed))
	switch {
	case ratio >= 1.5:
		return KindZstd
	case ratio >= 1.1:
		return KindZip
	default:
		return KindRaw
	}
}

// IsPacked reports whether s carries the envelope prefix.
func IsPacked(s string) bool {
	return strings.HasPrefix(s, TagPrefix)
}

// Unpack decodes an envelope string back into its body bytes. It is
// an error to call Unpack on a string without the envelope prefix;
// use [MaybeUnpack] when the input may be plain data.
func Unpack(s string) ([]byte, error) {
	data, ok, err := MaybeUnpack(s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("serial: not an envelope: missing %q prefix", TagPrefix)
	}
	return data, nil
}

// MaybeUnpack decodes s if it is an envelope. Returns (nil, false,
// nil) for plain strings, the decoded body for envelopes, and an
// error for envelopes that are malformed, use an unknown kind, or
// decode past the size limit.
func MaybeUnpack(s string) ([]byte, bool, error) {
	if !IsPacked(s) {
		return nil, false, nil
	}
	rest := s[len(TagPrefix):]
	name, encoded, found := strings.Cut(rest, ":")
	if !found {
		return nil, false, fmt.Errorf("serial: malformed envelope: missing kind separator")
	}
	kind, err := ParseKind(name)
	if err != nil {
		return nil, false, err
	}
	body, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false, fmt.Errorf("serial: malformed envelope body: %w", err)
	}
	data, err := decodeBody(body, kind)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// encodeBody applies the kind's codec to data.
func encodeBody(data []byte, kind Kind) ([]byte, error) {
	switch kind {
	case KindRaw:
		return data, nil

	case KindZip:
		var buffer bytes.Buffer
		writer := zlib.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("serial: zlib compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("serial: zlib compress: %w", err)
		}
		return buffer.Bytes(), nil

	case KindZstd:
		return zstdEncoder.EncodeAll(data, nil), nil

	case KindLZ4:
		// Frame format rather than block: frames are self-describing,
		// so the envelope does not need to carry the decoded size.
		var buffer bytes.Buffer
		writer := lz4.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("serial: lz4 compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("serial: lz4 compress: %w", err)
		}
		return buffer.Bytes(), nil

	default:
		return nil, fmt.Errorf("serial: unknown envelope kind %q", kind)
	}
}

// decodeBody reverses the kind's codec, bounded by maxDecodedSize.
func decodeBody(body []byte, kind Kind) ([]byte, error) {
	switch kind {
	case KindRaw:
		if len(body) > maxDecodedSize {
			return nil, fmt.Errorf("serial: body exceeds %d byte limit", maxDecodedSize)
		}
		return body, nil

	case KindZip:
		reader, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("serial: zlib decompress: %w", err)
		}
		defer reader.Close()
		return readBounded(reader, "zlib")

	case KindZstd:
		data, err := zstdDecoder.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("serial: zstd decompress: %w", err)
		}
		if len(data) > maxDecodedSize {
			return nil, fmt.Errorf("serial: zstd body exceeds %d byte limit", maxDecodedSize)
		}
		return data, nil

	case KindLZ4:
		return readBounded(lz4.NewReader(bytes.NewReader(body)), "lz4")

	default:
		return nil, fmt.Errorf("serial: unknown envelope kind %q", kind)
	}
}

// readBounded drains r up to maxDecodedSize and errors if the stream
// continues past it.
func readBounded(r io.Reader, codec string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, fmt.Errorf("serial: %s decompress: %w", codec, err)
	}
	if len(data) > maxDecodedSize {
		return nil, fmt.Errorf("serial: %s body exceeds %d byte limit", codec, maxDecodedSize)
	}
	return data, nil
}

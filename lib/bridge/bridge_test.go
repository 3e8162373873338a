// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package bridge

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Quandela/Perceval-Interop/lib/payload"
)

// carrier is a minimal metadata carrier for exercising the bridge
// without a framework wrapper.
type carrier struct {
	meta map[string]string
}

func (c *carrier) Meta() map[string]string { return c.meta }

func (c *carrier) EnsureMeta() map[string]string {
	if c.meta == nil {
		c.meta = make(map[string]string)
	}
	return c.meta
}

func TestWriteMetaAllocates(t *testing.T) {
	obj := &carrier{}
	if err := WriteMeta(obj, SpecsKey, map[string]any{"modes": 12}); err != nil {
		t.Fatalf("WriteMeta failed: %v", err)
	}
	raw, ok := obj.meta[SpecsKey]
	if !ok {
		t.Fatal("key not written")
	}
	// The stored form is a JSON document, not an opaque blob.
	var tree map[string]any
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		t.Fatalf("stored metadata is not JSON: %v", err)
	}
	if tree["modes"] != float64(12) {
		t.Errorf("modes = %v", tree["modes"])
	}
}

func TestParseMeta(t *testing.T) {
	t.Run("nil map yields nil", func(t *testing.T) {
		value, err := ParseMeta(&carrier{}, SpecsKey)
		if err != nil {
			t.Fatalf("ParseMeta failed: %v", err)
		}
		if value != nil {
			t.Errorf("value = %v, want nil", value)
		}
	})

	t.Run("missing key is an error", func(t *testing.T) {
		obj := &carrier{meta: map[string]string{"other": "x"}}
		if _, err := ParseMeta(obj, SpecsKey); err == nil {
			t.Fatal("expected error for missing key")
		}
	})

	t.Run("round trip", func(t *testing.T) {
		obj := &carrier{}
		original := map[string]any{"min_photons": float64(1), "platform": "sim:slos"}
		if err := WriteMeta(obj, SpecsKey, original); err != nil {
			t.Fatalf("WriteMeta failed: %v", err)
		}
		value, err := ParseMeta(obj, SpecsKey)
		if err != nil {
			t.Fatalf("ParseMeta failed: %v", err)
		}
		tree := value.(map[string]any)
		if tree["platform"] != "sim:slos" {
			t.Errorf("platform = %v", tree["platform"])
		}
	})
}

func TestPayloadAttachExtract(t *testing.T) {
	envelope, err := payload.Generate("sample_count", nil, nil, "qpu:ascella",
		payload.WithMaxShots(2000))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	job := &carrier{}
	if err := AttachPayload(job, envelope); err != nil {
		t.Fatalf("AttachPayload failed: %v", err)
	}

	extracted, err := ExtractPayload(job)
	if err != nil {
		t.Fatalf("ExtractPayload failed: %v", err)
	}
	if extracted == nil {
		t.Fatal("extracted envelope is nil")
	}
	if extracted.PlatformName != "qpu:ascella" {
		t.Errorf("platform = %q", extracted.PlatformName)
	}
	if extracted.Command() != "sample_count" {
		t.Errorf("command = %q", extracted.Command())
	}
	if extracted.MaxShots() != 2000 {
		t.Errorf("max_shots = %d", extracted.MaxShots())
	}
}

func TestMakeJob(t *testing.T) {
	job := &carrier{}
	err := MakeJob(job, "probs", nil, map[string]any{"phi": 0.25}, "sim:slos")
	if err != nil {
		t.Fatalf("MakeJob failed: %v", err)
	}

	envelope, err := ExtractPayload(job)
	if err != nil {
		t.Fatalf("ExtractPayload failed: %v", err)
	}
	if envelope.Command() != "probs" {
		t.Errorf("command = %q", envelope.Command())
	}
	if envelope.PlatformName != "sim:slos" {
		t.Errorf("platform = %q", envelope.PlatformName)
	}

	if err := MakeJob(&carrier{}, "", nil, nil, "sim:slos"); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestExtractPayloadAbsent(t *testing.T) {
	envelope, err := ExtractPayload(&carrier{})
	if err != nil {
		t.Fatalf("ExtractPayload failed: %v", err)
	}
	if envelope != nil {
		t.Error("expected nil envelope for carrier without metadata")
	}

	envelope, err = ExtractPayload(&carrier{meta: map[string]string{"other": "x"}})
	if err != nil {
		t.Fatalf("ExtractPayload failed: %v", err)
	}
	if envelope != nil {
		t.Error("expected nil envelope for carrier without payload key")
	}
}

func TestRetrieveResults(t *testing.T) {
	t.Run("foreign result", func(t *testing.T) {
		_, err := RetrieveResults(&carrier{})
		if err == nil || !strings.Contains(err.Error(), "don't come from a perceval job") {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		result := &carrier{}
		if err := WriteMeta(result, ResultsKey, map[string]any{"|1,0>": 512}); err != nil {
			t.Fatalf("WriteMeta failed: %v", err)
		}
		value, err := RetrieveResults(result)
		if err != nil {
			t.Fatalf("RetrieveResults failed: %v", err)
		}
		counts := value.(map[string]any)
		if counts["|1,0>"] != float64(512) {
			t.Errorf("count = %v", counts["|1,0>"])
		}
	})
}

func TestRetrieveSpecs(t *testing.T) {
	_, err := RetrieveSpecs(&carrier{})
	if err == nil || !strings.Contains(err.Error(), "don't come from a quandela qpu") {
		t.Fatalf("err = %v", err)
	}

	hw := &carrier{}
	if err := WriteMeta(hw, SpecsKey, map[string]any{"max_mode_count": 20}); err != nil {
		t.Fatalf("WriteMeta failed: %v", err)
	}
	value, err := RetrieveSpecs(hw)
	if err != nil {
		t.Fatalf("RetrieveSpecs failed: %v", err)
	}
	if value.(map[string]any)["max_mode_count"] != float64(20) {
		t.Error("specs did not round trip")
	}
}

func TestExtras(t *testing.T) {
	extras := Extras()
	if len(extras) != 4 {
		t.Fatalf("len(extras) = %d", len(extras))
	}

	// The myqlm extra probes qat: myQLM's import name differs from
	// its package name.
	byName := make(map[string]Extra)
	for _, extra := range extras {
		byName[extra.Name] = extra
	}
	if byName["myqlm_bridge"].Module != "qat" {
		t.Errorf("myqlm module = %q", byName["myqlm_bridge"].Module)
	}
}

// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package fuzzy

import "testing"

func TestMatchSubstring(t *testing.T) {
	score, positions := Match("conversion_walkthrough.ipynb", "walk")
	if score <= 0 {
		t.Fatal("expected positive score for substring match")
	}
	if len(positions) == 0 {
		t.Fatal("expected non-empty match positions")
	}
}

func TestMatchNonContiguous(t *testing.T) {
	// "cwk" should match "conversion walkthrough" — c from conversion,
	// w and k from walkthrough.
	score, _ := Match("conversion walkthrough", "cwk")
	if score <= 0 {
		t.Fatal("expected positive score for non-contiguous match")
	}
}

func TestMatchNoMatch(t *testing.T) {
	score, positions := Match("sampling_demo.ipynb", "xyz")
	if score != 0 {
		t.Errorf("expected zero score for no match, got %d", score)
	}
	if len(positions) != 0 {
		t.Errorf("expected empty positions for no match, got %v", positions)
	}
}

func TestMatchCaseInsensitive(t *testing.T) {
	score, _ := Match("sim:Ascella", "ascella")
	if score <= 0 {
		t.Fatalf("expected case-insensitive match, got score=%d", score)
	}

	score, _ = Match("QPU:ASCELLA", "qpu")
	if score <= 0 {
		t.Fatalf("expected match against all-caps text, got score=%d", score)
	}
}

func TestMatchEmptyInputs(t *testing.T) {
	if score, _ := Match("anything", ""); score != 0 {
		t.Errorf("empty pattern should score 0, got %d", score)
	}
	if score, _ := Match("", "query"); score != 0 {
		t.Errorf("empty text should score 0, got %d", score)
	}
}

func TestMatchPositionsAscendingAndInBounds(t *testing.T) {
	text := "qutip_state_conversion.ipynb"
	_, positions := Match(text, "qsc")
	if len(positions) == 0 {
		t.Fatal("expected positions")
	}
	runeCount := len([]rune(text))
	previous := -1
	for _, position := range positions {
		if position < 0 || position >= runeCount {
			t.Errorf("position %d out of bounds for %q", position, text)
		}
		if position <= previous {
			t.Errorf("positions not ascending: %v", positions)
		}
		previous = position
	}
}

func TestRankOrdersByScore(t *testing.T) {
	candidates := []string{
		"p-scattered o-other l-long i-inner n-nope g-gone",
		"sampling is great",
		"no match here",
	}

	ranked := Rank(candidates, "sampling")
	if len(ranked) < 1 {
		t.Fatal("expected at least one match")
	}

	// The exact substring should beat the scattered match.
	if ranked[0].Text != "sampling is great" {
		t.Errorf("best match = %q, want the substring candidate", ranked[0].Text)
	}
	if ranked[0].Index != 1 {
		t.Errorf("best match index = %d, want 1", ranked[0].Index)
	}

	for _, match := range ranked {
		if match.Text == "no match here" {
			t.Error("non-matching candidate should be dropped")
		}
		if match.Score <= 0 {
			t.Errorf("ranked match %q has non-positive score %d", match.Text, match.Score)
		}
	}
}

func TestRankPlatformSuggestions(t *testing.T) {
	platforms := []string{
		"sim:ascella",
		"qpu:ascella",
		"sim:belenos",
		"qpu:belenos",
		"sim:clifford",
	}

	ranked := Rank(platforms, "ascela")
	if len(ranked) == 0 {
		t.Fatal("expected suggestions for near-miss platform name")
	}
	if ranked[0].Text != "sim:ascella" && ranked[0].Text != "qpu:ascella" {
		t.Errorf("best suggestion = %q, want an ascella platform", ranked[0].Text)
	}
}

func TestRankEmptyQuery(t *testing.T) {
	if ranked := Rank([]string{"a", "b"}, ""); ranked != nil {
		t.Errorf("empty query should rank nothing, got %v", ranked)
	}
}

// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package fuzzy provides fuzzy text matching for interactive selection:
// picking a notebook by a few typed characters, or suggesting close
// platform names when a requested platform does not exist. It delegates
// the scoring to fzf's FuzzyMatchV2 algorithm rather than reimplementing
// Smith-Waterman alignment.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

func init() {
	// Configure the default scoring scheme (word-boundary bonuses).
	algo.Init("default")
}

// Match scores pattern against text. The score is positive when every
// pattern rune appears in text in order, zero otherwise. Positions are
// the matched rune indices in ascending order. Matching is
// case-insensitive and normalizes latin accents, so "ascella" finds
// "Ascella".
func Match(text, pattern string) (int, []int) {
	return matchWithSlab(text, pattern, nil)
}

func matchWithSlab(text, pattern string, slab *util.Slab) (int, []int) {
	if pattern == "" || text == "" {
		return 0, nil
	}

	// fzf expects a lowercase pattern in case-insensitive mode.
	runes := []rune(strings.ToLower(pattern))
	chars := util.ToChars([]byte(text))

	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, runes, true, slab)
	if result.Score <= 0 {
		return 0, nil
	}

	var matched []int
	if positions != nil {
		matched = *positions
		sort.Ints(matched)
	}
	return result.Score, matched
}

// Ranked is one candidate that matched a query.
type Ranked struct {
	// Index is the candidate's position in the input slice.
	Index int
	// Text is the candidate itself.
	Text string
	// Score is the fzf match score (higher is better).
	Score int
	// Positions are the matched rune indices in Text, ascending.
	Positions []int
}

// Rank scores every candidate against the query and returns the
// matches ordered best-first. Candidates that do not match are
// dropped. Equal scores keep the input order. An empty query matches
// nothing.
func Rank(candidates []string, query string) []Ranked {
	if query == "" {
		return nil
	}

	slab := util.MakeSlab(100*1024, 2048)

	var ranked []Ranked
	for index, candidate := range candidates {
		score, positions := matchWithSlab(candidate, query, slab)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, Ranked{
			Index:     index,
			Text:      candidate,
			Score:     score,
			Positions: positions,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

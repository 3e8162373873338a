// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// maxSuggestDistance is the largest edit distance still offered as a
// "did you mean" suggestion. Three edits covers transpositions, dropped
// characters, and doubled characters without proposing unrelated names.
const maxSuggestDistance = 3

// closest returns the candidate nearest to input by edit distance, or
// "" when none is within maxSuggestDistance. Ties keep the earliest
// candidate.
func closest(input string, candidates []string) string {
	best := ""
	bestDistance := maxSuggestDistance + 1
	for _, candidate := range candidates {
		if distance := levenshtein(input, candidate); distance < bestDistance {
			bestDistance = distance
			best = candidate
		}
	}
	return best
}

// suggestCommand returns the subcommand name closest to the unknown
// input, or "" if nothing is close enough.
func suggestCommand(unknown string, commands []*Command) string {
	names := make([]string, len(commands))
	for i, command := range commands {
		names[i] = command.Name
	}
	return closest(unknown, names)
}

// suggestFlag finds the first unrecognized flag in args and returns the
// closest defined flag name with its prefix restored (-- or -), or ""
// when every flag is known or nothing is close.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	var defined []string
	flagSet.VisitAll(func(f *pflag.Flag) {
		defined = append(defined, f.Name)
	})

	name, found := firstUnknownFlag(args, defined)
	if !found {
		return ""
	}
	suggestion := closest(name, defined)
	switch {
	case suggestion == "":
		return ""
	case len(suggestion) == 1:
		return "-" + suggestion
	default:
		return "--" + suggestion
	}
}

// firstUnknownFlag scans args for the first flag-shaped argument whose
// bare name (dashes stripped, any =value removed) is not a defined
// flag.
func firstUnknownFlag(args, defined []string) (string, bool) {
	known := make(map[string]bool, len(defined))
	for _, name := range defined {
		known[name] = true
	}

	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		name := strings.TrimLeft(arg, "-")
		if index := strings.IndexByte(name, '='); index >= 0 {
			name = name[:index]
		}
		if known[name] {
			continue
		}
		return name, true
	}
	return "", false
}

// levenshtein computes the edit distance between two strings: the
// minimum number of single-character insertions, deletions, and
// substitutions turning one into the other. Two rolling rows of the
// distance matrix keep it at O(min(m,n)) space.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	previous := make([]int, len(a)+1)
	current := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}

	for j := 1; j <= len(b); j++ {
		current[0] = j
		for i := 1; i <= len(a); i++ {
			substitution := previous[i-1]
			if a[i-1] != b[j-1] {
				substitution++
			}
			current[i] = min(previous[i]+1, current[i-1]+1, substitution)
		}
		previous, current = current, previous
	}

	return previous[len(a)]
}

// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package nbrender

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette for rendered notebooks, expressed as
// ANSI 256-color codes so output survives terminals without truecolor.
type Theme struct {
	// Execution-count gutters ("In [3]:" / "Out[3]:"), colored like
	// Jupyter's own prompts.
	PromptIn  lipgloss.Color
	PromptOut lipgloss.Color

	// Body text and de-emphasized text (stream output, summaries).
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Markdown chrome.
	HeaderForeground lipgloss.Color
	LinkForeground   lipgloss.Color
	BorderColor      lipgloss.Color

	// Error outputs (ename, evalue, traceback).
	ErrorText lipgloss.Color
}

// DefaultTheme targets 256-color terminals with a dark background.
var DefaultTheme = Theme{
	PromptIn:  lipgloss.Color("75"),  // Jupyter In prompt blue
	PromptOut: lipgloss.Color("208"), // Jupyter Out prompt orange

	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	HeaderForeground: lipgloss.Color("255"),
	LinkForeground:   lipgloss.Color("75"),
	BorderColor:      lipgloss.Color("240"),

	ErrorText: lipgloss.Color("196"), // bright red
}

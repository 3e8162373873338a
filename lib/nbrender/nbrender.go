// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package nbrender renders notebook documents as styled terminal
// output. Markdown cells go through a goldmark AST walk with lipgloss
// styling, code cells are syntax-highlighted as Python with Jupyter
// style execution-count gutters, and stored outputs are shown dimmed
// below their cell. Rich display outputs (images, HTML) are summarized
// rather than rendered.
//
// The output always carries ANSI escapes: the color profile is forced
// to ANSI256 because rendering targets a terminal pager, not a file.
package nbrender

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Quandela/Perceval-Interop/lib/notebook"
)

// Render renders a full notebook document to styled terminal text,
// wrapped to width columns.
func Render(doc *notebook.Document, theme Theme, width int) string {
	renderer := cellRenderer{theme: theme, width: width}
	var sections []string
	for _, cell := range doc.Cells {
		section := renderer.renderCell(cell)
		if section != "" {
			sections = append(sections, section)
		}
	}
	return strings.Join(sections, "\n\n")
}

// cellRenderer holds the shared style state for rendering one
// document's cells.
type cellRenderer struct {
	theme Theme
	width int
}

func (r cellRenderer) renderCell(cell notebook.Cell) string {
	switch cell.Type {
	case notebook.CellMarkdown:
		return RenderMarkdown(cell.Source.Text(), r.theme, r.width)
	case notebook.CellCode:
		return r.renderCodeCell(cell)
	case notebook.CellRaw:
		return r.renderRawCell(cell)
	}
	return ""
}

// renderCodeCell renders the source with an "In [n]:" gutter and the
// stored outputs below it. The gutter occupies a left column;
// continuation lines of the source are indented to align under the
// first code column.
func (r cellRenderer) renderCodeCell(cell notebook.Cell) string {
	style := getLipRenderer().NewStyle()

	gutter := promptGutter("In", cell.ExecutionCount)
	indent := strings.Repeat(" ", len(gutter))
	gutterStyled := style.Foreground(r.theme.PromptIn).Bold(true).Render(gutter)

	source := strings.TrimRight(cell.Source.Text(), "\n")
	highlighted := highlightPython(source, r.theme)

	var out strings.Builder
	for index, line := range strings.Split(highlighted, "\n") {
		if index == 0 {
			out.WriteString(gutterStyled)
		} else {
			out.WriteString(indent)
		}
		out.WriteString(line)
		out.WriteString("\n")
	}

	for _, output := range cell.Outputs {
		rendered := r.renderOutput(output, indent)
		if rendered != "" {
			out.WriteString("\n")
			out.WriteString(rendered)
			out.WriteString("\n")
		}
	}

	return strings.TrimRight(out.String(), "\n")
}

func (r cellRenderer) renderRawCell(cell notebook.Cell) string {
	content := strings.TrimRight(cell.Source.Text(), "\n")
	if content == "" {
		return ""
	}
	faint := getLipRenderer().NewStyle().Foreground(r.theme.FaintText)
	return faint.Render(content)
}

// renderOutput renders one stored output. Stream and text outputs
// come out dimmed under the cell's indent; execute_result gets an
// "Out[n]:" gutter; rich display data collapses to a mime summary;
// errors show the exception name and the traceback with IPython's raw
// ANSI stripped (its escapes assume a truecolor terminal and clash
// with the forced ANSI256 profile).
func (r cellRenderer) renderOutput(output notebook.Output, indent string) string {
	style := getLipRenderer().NewStyle()
	faint := style.Foreground(r.theme.FaintText)

	switch output.Type {
	case "stream":
		return indentLines(faint, strings.TrimRight(output.Text.Text(), "\n"), indent)

	case "execute_result":
		body := dataSummary(output.Data)
		if body == "" {
			return ""
		}
		gutter := promptGutter("Out", output.ExecutionCount)
		gutterStyled := style.Foreground(r.theme.PromptOut).Bold(true).Render(gutter)
		lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
		var out strings.Builder
		for index, line := range lines {
			if index == 0 {
				out.WriteString(gutterStyled)
			} else {
				out.WriteString(strings.Repeat(" ", len(gutter)))
			}
			out.WriteString(faint.Render(line))
			if index < len(lines)-1 {
				out.WriteString("\n")
			}
		}
		return out.String()

	case "display_data":
		body := dataSummary(output.Data)
		if body == "" {
			return ""
		}
		return indentLines(faint, strings.TrimRight(body, "\n"), indent)

	case "error":
		errStyle := style.Foreground(r.theme.ErrorText).Bold(true)
		var out strings.Builder
		out.WriteString(indent)
		out.WriteString(errStyle.Render(output.EName + ": " + output.EValue))
		for _, frame := range output.Traceback {
			for _, line := range strings.Split(strings.TrimRight(frame, "\n"), "\n") {
				out.WriteString("\n")
				out.WriteString(indent)
				out.WriteString(faint.Render(ansi.Strip(line)))
			}
		}
		return out.String()
	}

	return ""
}

// promptGutter builds a Jupyter prompt like "In [3]: " or "Out[ ]: ".
func promptGutter(kind string, count *int) string {
	counter := " "
	if count != nil {
		counter = fmt.Sprintf("%d", *count)
	}
	if kind == "Out" {
		return fmt.Sprintf("Out[%s]: ", counter)
	}
	return fmt.Sprintf("In [%s]: ", counter)
}

// dataSummary picks the displayable representation from a mime bundle.
// text/plain wins when present; binary and markup types collapse to a
// bracketed summary so image bytes never hit the terminal.
func dataSummary(data map[string]json.RawMessage) string {
	if raw, ok := data["text/plain"]; ok {
		var lines notebook.SourceLines
		if err := json.Unmarshal(raw, &lines); err == nil {
			return lines.Text()
		}
	}
	for _, mime := range []string{"image/png", "image/jpeg", "image/svg+xml"} {
		if _, ok := data[mime]; ok {
			return "[image: " + strings.TrimPrefix(mime, "image/") + "]"
		}
	}
	if _, ok := data["text/html"]; ok {
		return "[html output]"
	}
	for mime := range data {
		return "[" + mime + " output]"
	}
	return ""
}

// highlightPython syntax-highlights code cell source. Falls back to
// faint unstyled text when Chroma fails.
func highlightPython(source string, theme Theme) string {
	if source == "" {
		return ""
	}
	var buffer strings.Builder
	err := quick.Highlight(&buffer, source, "python", "terminal256", "monokai")
	if err != nil {
		return getLipRenderer().NewStyle().Foreground(theme.FaintText).Render(source)
	}
	return strings.TrimRight(buffer.String(), "\n")
}

// indentLines styles content and prefixes every line with indent.
func indentLines(style lipgloss.Style, content, indent string) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	for index, line := range lines {
		lines[index] = indent + style.Render(line)
	}
	return strings.Join(lines, "\n")
}

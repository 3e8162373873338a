// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

package nbrender

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// wrapBreakpoints are the characters ansi.Wrap may break a line at, in
// addition to spaces.
const wrapBreakpoints = " ,.;-+|"

// The goldmark parser and the lipgloss renderer are initialized once
// and reused. The parser configuration never changes and parsing
// creates per-call state via Parse(reader); the lipgloss renderer only
// carries the forced color profile.
var (
	markdownParser     goldmark.Markdown
	markdownParserOnce sync.Once

	lipRenderer     *lipgloss.Renderer
	lipRendererOnce sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParser = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownParser
}

// getLipRenderer returns a lipgloss renderer with a forced ANSI256
// color profile. Notebook rendering always targets a terminal, so
// auto-detection — which produces uncolored output in environments
// with no TTY, tests included — is bypassed. SetColorProfile is
// required because lipgloss.Renderer.ColorProfile() ignores the
// termenv.Output profile and re-detects from the environment unless
// explicitly set.
func getLipRenderer() *lipgloss.Renderer {
	lipRendererOnce.Do(func() {
		lipRenderer = lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
		lipRenderer.SetColorProfile(termenv.ANSI256)
	})
	return lipRenderer
}

// RenderMarkdown parses markdown text and renders it as styled
// terminal output. Soft line breaks (single newlines within
// paragraphs) become spaces so hard-wrapped source text reflows
// correctly at any terminal width. Code blocks, lists, and tables
// preserve their formatting.
func RenderMarkdown(input string, theme Theme, width int) string {
	if input == "" {
		return ""
	}
	src := []byte(input)
	document := getMarkdownParser().Parser().Parse(text.NewReader(src))

	r := &mdRenderer{
		src:    src,
		theme:  theme,
		width:  width,
		styles: getLipRenderer(),
	}
	ast.Walk(document, r.visit)
	return strings.TrimRight(r.out.String(), "\n")
}

// spanState is the active inline styling, counted rather than boolean
// so nested emphasis unwinds correctly. Saved and restored as a value
// when rendering detours into link text or table cells.
type spanState struct {
	bold   int
	italic int
	strike int
}

// mdList tracks one level of list nesting.
type mdList struct {
	ordered bool
	next    int
	tight   bool
}

// mdRenderer walks a goldmark AST and assembles styled terminal text.
// It uses a direct ast.Walk rather than goldmark's renderer interface
// because terminal rendering needs accumulate-then-wrap semantics:
// inline content collects in a buffer and gets word-wrapped as a unit
// when its block closes, which goldmark's streaming NodeRendererFunc
// callbacks don't fit.
//
// Output is assembled a physical line at a time through emit, which
// tracks the run of trailing empty lines so gap() can separate blocks
// with exactly one blank line.
type mdRenderer struct {
	src    []byte
	theme  Theme
	width  int
	styles *lipgloss.Renderer

	out      strings.Builder
	blankRun int

	// prefixes is the continuation prefix for every emitted line,
	// innermost last ("│ " for blockquotes, spaces for list items).
	// bullet, when set, replaces the whole prefix for the next first
	// line: it carries the list marker.
	prefixes []string
	bullet   string

	inline strings.Builder
	spans  spanState
	lists  []mdList
}

// --- Line assembly ---

func (r *mdRenderer) emit(line string) {
	r.out.WriteString(line)
	r.out.WriteByte('\n')
	if line == "" {
		r.blankRun++
	} else {
		r.blankRun = 0
	}
}

// gap separates the previous block from the next with a single blank
// line. The document never opens with one.
func (r *mdRenderer) gap() {
	if r.out.Len() == 0 {
		return
	}
	for r.blankRun < 1 {
		r.emit("")
	}
}

// block emits content line by line under the current prefix. The first
// line consumes the pending bullet when one is set.
func (r *mdRenderer) block(content string) {
	for i, line := range strings.Split(content, "\n") {
		prefix := r.prefix()
		if i == 0 && r.bullet != "" {
			prefix = r.bullet
			r.bullet = ""
		}
		r.emit(prefix + line)
	}
}

func (r *mdRenderer) prefix() string {
	return strings.Join(r.prefixes, "")
}

func (r *mdRenderer) push(prefix string) {
	r.prefixes = append(r.prefixes, prefix)
}

func (r *mdRenderer) pop() {
	if len(r.prefixes) > 0 {
		r.prefixes = r.prefixes[:len(r.prefixes)-1]
	}
}

// contentWidth is the wrap width left of the terminal width after the
// active prefixes, clamped so degenerate terminals still wrap sanely.
func (r *mdRenderer) contentWidth() int {
	width := r.width - ansi.StringWidth(r.prefix())
	if width < 10 {
		width = 10
	}
	return width
}

func (r *mdRenderer) tight() bool {
	return len(r.lists) > 0 && r.lists[len(r.lists)-1].tight
}

// --- Inline assembly ---

func (r *mdRenderer) style() lipgloss.Style {
	return r.styles.NewStyle()
}

// spanText styles a text fragment with the active inline spans.
func (r *mdRenderer) spanText(content string) string {
	style := r.style().Foreground(r.theme.NormalText)
	if r.spans.bold > 0 {
		style = style.Bold(true)
	}
	if r.spans.italic > 0 {
		style = style.Italic(true)
	}
	if r.spans.strike > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

// capture renders node's children into a string, leaving the caller's
// inline buffer and span state untouched. Used for link text, image
// alt text, and table cells.
func (r *mdRenderer) capture(node ast.Node) string {
	savedInline := r.inline.String()
	savedSpans := r.spans

	r.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		ast.Walk(child, r.visit)
	}
	captured := r.inline.String()

	r.inline.Reset()
	r.inline.WriteString(savedInline)
	r.spans = savedSpans
	return captured
}

// segmentText extracts the raw source covered by a block node's line
// segments (code blocks, HTML blocks).
func (r *mdRenderer) segmentText(lines *text.Segments) string {
	var out strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out.Write(seg.Value(r.src))
	}
	return out.String()
}

// highlight syntax-highlights code with Chroma, falling back to faint
// unstyled text for unknown languages or Chroma errors.
func (r *mdRenderer) highlight(code, language string) string {
	if language == "" {
		return r.style().Foreground(r.theme.FaintText).Render(code)
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, code, language, "terminal256", "monokai"); err != nil {
		return r.style().Foreground(r.theme.FaintText).Render(code)
	}
	return buffer.String()
}

// --- AST dispatch ---

func (r *mdRenderer) visit(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch typed := node.(type) {
	case *ast.Document:

	case *ast.Paragraph, *ast.TextBlock:
		if entering {
			r.inline.Reset()
		} else {
			r.closeParagraph()
		}

	case *ast.Heading:
		if entering {
			r.inline.Reset()
		} else {
			r.closeHeading(typed)
		}

	case *ast.FencedCodeBlock:
		if entering {
			code := strings.TrimRight(r.segmentText(typed.Lines()), "\n")
			r.codeBlock(r.highlight(code, string(typed.Language(r.src))))
			return ast.WalkSkipChildren, nil
		}

	case *ast.CodeBlock:
		if entering {
			code := strings.TrimRight(r.segmentText(typed.Lines()), "\n")
			faint := r.style().Foreground(r.theme.FaintText)
			var styled []string
			for _, line := range strings.Split(code, "\n") {
				styled = append(styled, faint.Render(line))
			}
			r.codeBlock(strings.Join(styled, "\n"))
			return ast.WalkSkipChildren, nil
		}

	case *ast.Blockquote:
		if entering {
			r.push("│ ")
		} else {
			r.pop()
			r.gap()
		}

	case *ast.List:
		if entering {
			start := 0
			if typed.IsOrdered() {
				start = typed.Start
			}
			r.lists = append(r.lists, mdList{
				ordered: typed.IsOrdered(),
				next:    start,
				tight:   typed.IsTight,
			})
		} else {
			if len(r.lists) > 0 {
				r.lists = r.lists[:len(r.lists)-1]
			}
			if !r.tight() {
				r.gap()
			}
		}

	case *ast.ListItem:
		if entering {
			r.openItem()
		} else {
			r.pop()
			if !r.tight() {
				r.gap()
			}
		}

	case *ast.ThematicBreak:
		if entering {
			rule := strings.Repeat("─", r.contentWidth())
			r.gap()
			r.block(r.style().Foreground(r.theme.BorderColor).Render(rule))
			r.gap()
		}

	case *ast.HTMLBlock:
		if entering {
			r.htmlBlock(typed)
			return ast.WalkSkipChildren, nil
		}

	case *ast.Text:
		if entering {
			r.inline.WriteString(r.spanText(string(typed.Segment.Value(r.src))))
			if typed.SoftLineBreak() {
				// Soft breaks become spaces so hard-wrapped source
				// reflows at the terminal width.
				r.inline.WriteString(" ")
			}
			if typed.HardLineBreak() {
				r.inline.WriteString("\n")
			}
		}

	case *ast.String:
		if entering {
			r.inline.WriteString(r.spanText(string(typed.Value)))
		}

	case *ast.Emphasis:
		delta := 1
		if !entering {
			delta = -1
		}
		if typed.Level >= 2 {
			r.spans.bold += delta
		} else {
			r.spans.italic += delta
		}

	case *ast.CodeSpan:
		if entering {
			r.codeSpan(typed)
			return ast.WalkSkipChildren, nil
		}

	case *ast.Link:
		if entering {
			r.link(r.capture(typed), string(typed.Destination))
			return ast.WalkSkipChildren, nil
		}

	case *ast.AutoLink:
		if entering {
			url := string(typed.URL(r.src))
			r.inline.WriteString(r.style().Foreground(r.theme.LinkForeground).Render(url))
		}

	case *ast.Image:
		if entering {
			r.image(r.capture(typed), string(typed.Destination))
			return ast.WalkSkipChildren, nil
		}

	case *ast.RawHTML:
		if entering {
			var html strings.Builder
			for i := 0; i < typed.Segments.Len(); i++ {
				seg := typed.Segments.At(i)
				html.Write(seg.Value(r.src))
			}
			if stripped := stripHTMLTags(html.String()); stripped != "" {
				r.inline.WriteString(r.style().Foreground(r.theme.FaintText).Render(stripped))
			}
		}

	case *extast.Strikethrough:
		if entering {
			r.spans.strike++
		} else {
			r.spans.strike--
		}

	case *extast.Table:
		if entering {
			r.table(typed)
			return ast.WalkSkipChildren, nil
		}

	case *extast.TaskCheckBox:
		if entering {
			if typed.IsChecked {
				check := r.style().Foreground(r.theme.LinkForeground)
				r.inline.WriteString(check.Render("[x]") + " ")
			} else {
				r.inline.WriteString(r.spanText("[ ] "))
			}
		}
	}

	return ast.WalkContinue, nil
}

// --- Block handlers ---

func (r *mdRenderer) closeParagraph() {
	content := r.inline.String()
	r.inline.Reset()
	if content == "" {
		return
	}
	r.block(ansi.Wrap(content, r.contentWidth(), wrapBreakpoints))
	if !r.tight() {
		r.gap()
	}
}

func (r *mdRenderer) closeHeading(heading *ast.Heading) {
	// Headings carry their own style; whatever inline styling the
	// children accumulated is stripped and replaced wholesale.
	content := ansi.Strip(r.inline.String())
	r.inline.Reset()
	if content == "" {
		return
	}

	style := r.style().Bold(true).Foreground(r.theme.NormalText)
	if heading.Level <= 2 {
		style = style.Foreground(r.theme.HeaderForeground)
	}

	r.gap()
	r.block(ansi.Wrap(style.Render(content), r.contentWidth(), wrapBreakpoints))
	r.gap()
}

// codeBlock emits already-styled code lines verbatim, never wrapped,
// with a blank line on both sides.
func (r *mdRenderer) codeBlock(styled string) {
	r.gap()
	r.block(styled)
	r.gap()
}

func (r *mdRenderer) openItem() {
	if len(r.lists) == 0 {
		return
	}
	list := &r.lists[len(r.lists)-1]

	marker := "- "
	if list.ordered {
		marker = strconv.Itoa(list.next) + ". "
		list.next++
	}

	// The bullet replaces the whole prefix for the item's first line;
	// continuation lines align under the marker.
	r.bullet = r.prefix() + marker
	r.push(strings.Repeat(" ", len(marker)))
}

func (r *mdRenderer) htmlBlock(node *ast.HTMLBlock) {
	stripped := strings.TrimSpace(stripHTMLTags(r.segmentText(node.Lines())))
	if stripped == "" {
		return
	}
	r.block(r.style().Foreground(r.theme.FaintText).Render(stripped))
	r.gap()
}

// --- Inline handlers ---

func (r *mdRenderer) codeSpan(node *ast.CodeSpan) {
	var code strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch typed := child.(type) {
		case *ast.Text:
			code.Write(typed.Segment.Value(r.src))
		case *ast.String:
			code.Write(typed.Value)
		}
	}
	r.inline.WriteString(r.style().Foreground(r.theme.FaintText).Render(code.String()))
}

func (r *mdRenderer) link(display, url string) {
	// capture already styled the link text; only the URL suffix gets
	// the link color.
	r.inline.WriteString(display)
	if url != "" {
		style := r.style().Foreground(r.theme.LinkForeground)
		r.inline.WriteString(" " + style.Render("("+url+")"))
	}
}

func (r *mdRenderer) image(alt, url string) {
	faint := r.style().Foreground(r.theme.FaintText)
	r.inline.WriteString(faint.Render("[" + alt + "]"))
	if url != "" {
		r.inline.WriteString(" " + faint.Render("("+url+")"))
	}
}

// --- Tables ---

// tableLayout is a fully collected table: cell strings are styled, so
// widths are measured with lipgloss.Width.
type tableLayout struct {
	header []string
	rows   [][]string
	aligns []extast.Alignment
	widths []int
}

func (r *mdRenderer) table(node *extast.Table) {
	layout := r.collectTable(node)
	if len(layout.widths) == 0 {
		return
	}
	layout.fit(r.contentWidth())

	r.gap()
	if len(layout.header) > 0 {
		bold := r.style().Bold(true).Foreground(r.theme.NormalText)
		r.block(layout.formatRow(layout.header, bold))

		rule := make([]string, len(layout.widths))
		for i, width := range layout.widths {
			rule[i] = strings.Repeat("─", width)
		}
		border := r.style().Foreground(r.theme.BorderColor)
		r.block(border.Render(strings.Join(rule, tableGutter)))
	}
	for _, row := range layout.rows {
		r.block(layout.formatRow(row, r.style()))
	}
	r.gap()
}

func (r *mdRenderer) collectTable(node *extast.Table) *tableLayout {
	layout := &tableLayout{aligns: node.Alignments}

	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if _, ok := cell.(*extast.TableCell); ok {
				cells = append(cells, r.capture(cell))
			}
		}
		switch child.(type) {
		case *extast.TableHeader:
			layout.header = cells
		case *extast.TableRow:
			layout.rows = append(layout.rows, cells)
		}
	}

	columns := len(layout.header)
	if columns == 0 && len(layout.rows) > 0 {
		columns = len(layout.rows[0])
	}
	layout.widths = make([]int, columns)
	layout.measure(layout.header)
	for _, row := range layout.rows {
		layout.measure(row)
	}
	return layout
}

func (t *tableLayout) measure(cells []string) {
	for i, cell := range cells {
		if i >= len(t.widths) {
			break
		}
		if width := lipgloss.Width(cell); width > t.widths[i] {
			t.widths[i] = width
		}
	}
}

const tableGutter = "  "

// fit shrinks column widths proportionally when the natural table
// width exceeds the available space, keeping at least 3 columns wide.
func (t *tableLayout) fit(available int) {
	total := len(tableGutter) * (len(t.widths) - 1)
	for _, width := range t.widths {
		total += width
	}
	if total <= available {
		return
	}

	usable := available - len(tableGutter)*(len(t.widths)-1)
	if usable < len(t.widths)*3 {
		usable = len(t.widths) * 3
	}
	for i := range t.widths {
		t.widths[i] = (t.widths[i] * usable) / total
		if t.widths[i] < 3 {
			t.widths[i] = 3
		}
	}
}

// formatRow pads, aligns, and joins one row's cells.
func (t *tableLayout) formatRow(cells []string, style lipgloss.Style) string {
	parts := make([]string, len(t.widths))
	for i, width := range t.widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		if lipgloss.Width(cell) > width {
			cell = ansi.Truncate(cell, width, "…")
		}

		pad := width - lipgloss.Width(cell)
		if pad < 0 {
			pad = 0
		}
		align := extast.AlignNone
		if i < len(t.aligns) {
			align = t.aligns[i]
		}
		switch align {
		case extast.AlignRight:
			cell = strings.Repeat(" ", pad) + cell
		case extast.AlignCenter:
			cell = strings.Repeat(" ", pad/2) + cell + strings.Repeat(" ", pad-pad/2)
		default:
			cell += strings.Repeat(" ", pad)
		}
		parts[i] = cell
	}
	return style.Render(strings.Join(parts, tableGutter))
}

// stripHTMLTags drops angle-bracketed tags, keeping only text content.
func stripHTMLTags(html string) string {
	var out strings.Builder
	depth := 0
	for _, char := range html {
		switch {
		case char == '<':
			depth++
		case char == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			out.WriteRune(char)
		}
	}
	return out.String()
}

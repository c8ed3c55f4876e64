package cli

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/term"
)

// ansiPattern matches ANSI color/reset escapes, so width math ignores them.
var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

// visualLen returns s's rendered width, ignoring ANSI color escapes.
func visualLen(s string) int {
	return len(ansiPattern.ReplaceAllString(s, ""))
}

// defaultTerminalWidth is used when stdout isn't a terminal (piped output,
// CI logs, redirected to a file) or the terminal size can't be read.
const defaultTerminalWidth = 80

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultTerminalWidth
	}
	return w
}

// capWidths shrinks the widest columns in widths until the table fits
// within terminalWidth, accounting for a 2-space gap between columns and
// prefixLen characters of indentation. No column is ever reduced below its
// header's visual length — a route table with a long TARGET name still
// shows the whole name, even if that means overflowing a narrow terminal.
func capWidths(widths []int, headers []string, terminalWidth, prefixLen int) []int {
	out := make([]int, len(widths))
	copy(out, widths)

	mins := make([]int, len(headers))
	for i, h := range headers {
		mins[i] = visualLen(h)
	}

	total := func() int {
		sum := prefixLen
		for _, w := range out {
			sum += w
		}
		if len(out) > 1 {
			sum += 2 * (len(out) - 1)
		}
		return sum
	}

	for total() > terminalWidth {
		widest := -1
		for i, w := range out {
			min := 0
			if i < len(mins) {
				min = mins[i]
			}
			if w > min && (widest == -1 || w > out[widest]) {
				widest = i
			}
		}
		if widest == -1 {
			break
		}
		out[widest]--
	}
	return out
}

// wrapCell word-wraps s to fit width, hard-breaking any single word longer
// than width on its own. A string that already fits (ANSI escapes
// excluded from the measurement) is returned unchanged — splitting a
// colored cell would have to understand escape-code boundaries to do
// safely, and an unwrapped fitting cell never needs to.
func wrapCell(s string, width int) []string {
	if width <= 0 || visualLen(s) <= width {
		return []string{s}
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{s}
	}

	var lines []string
	line := ""
	for _, word := range words {
		for len(word) > width {
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if len(candidate) > width {
			lines = append(lines, line)
			line = word
		} else {
			line = candidate
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// Table renders column-aligned, word-wrapped, terminal-width-aware output:
// headers and a dash divider are written lazily on first Flush(), so empty
// tables produce no output. Columns are capped to the terminal width
// (falling back to 80 columns when stdout isn't a TTY) and overflowing
// cells wrap onto additional lines rather than running off the edge — the
// shape route/via listings and port-filter summaries need when a VIA
// column lists several hops.
type Table struct {
	headers []string
	rows    [][]string
	prefix  string
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// WithPrefix sets a string prepended to each line (headers, divider, rows).
// Useful for indenting sub-tables within larger output.
func (t *Table) WithPrefix(prefix string) *Table {
	t.prefix = prefix
	return t
}

// Row buffers one row of values; rendering happens on Flush so column
// widths can account for every row, not just the ones seen so far.
func (t *Table) Row(values ...string) {
	t.rows = append(t.rows, values)
}

// Flush renders every buffered row. If no rows were written, nothing is
// printed — not even the headers.
func (t *Table) Flush() {
	if len(t.rows) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visualLen(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				continue
			}
			if w := visualLen(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	widths = capWidths(widths, t.headers, terminalWidth(), len(t.prefix))

	t.printRow(t.headers, widths)
	dividers := make([]string, len(t.headers))
	for i, w := range widths {
		dividers[i] = strings.Repeat("-", w)
	}
	t.printRow(dividers, widths)
	for _, row := range t.rows {
		t.printWrapped(row, widths)
	}
}

func (t *Table) printRow(cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = padCell(c, widthOf(widths, i))
	}
	fmt.Println(t.prefix + strings.TrimRight(strings.Join(parts, "  "), " "))
}

func (t *Table) printWrapped(cells []string, widths []int) {
	wrapped := make([][]string, len(cells))
	lineCount := 1
	for i, c := range cells {
		wrapped[i] = wrapCell(c, widthOf(widths, i))
		if n := len(wrapped[i]); n > lineCount {
			lineCount = n
		}
	}

	for line := 0; line < lineCount; line++ {
		parts := make([]string, len(cells))
		for i := range cells {
			cellLine := ""
			if line < len(wrapped[i]) {
				cellLine = wrapped[i][line]
			}
			parts[i] = padCell(cellLine, widthOf(widths, i))
		}
		fmt.Println(t.prefix + strings.TrimRight(strings.Join(parts, "  "), " "))
	}
}

func widthOf(widths []int, i int) int {
	if i < len(widths) {
		return widths[i]
	}
	return 0
}

func padCell(s string, width int) string {
	if pad := width - visualLen(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

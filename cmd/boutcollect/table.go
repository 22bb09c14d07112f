package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// table lays out rows in columns padded to their display width, so names
// with wide runes still line up.
type table struct {
	header []string
	rows   [][]string
	marked map[[2]int]bool
}

func newTable(header ...string) *table {
	return &table{header: header, marked: map[[2]int]bool{}}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// mark highlights one cell of the last added row.
func (t *table) mark(col int) {
	t.marked[[2]int{len(t.rows) - 1, col}] = true
}

func (t *table) widths() []int {
	w := make([]int, len(t.header))
	for i, h := range t.header {
		w[i] = runewidth.StringWidth(h)
	}
	for _, r := range t.rows {
		for i, c := range r {
			if i < len(w) {
				w[i] = max(w[i], runewidth.StringWidth(c))
			}
		}
	}
	return w
}

func (t *table) render(w io.Writer) error {
	bw := bufio.NewWriter(w)
	widths := t.widths()
	bold := color.New(color.Bold)
	red := color.New(color.FgRed, color.Bold)

	line := func(cells []string, paint func(i int, s string) string) {
		out := make([]string, len(cells))
		for i, c := range cells {
			s := c
			if i < len(cells)-1 {
				s = runewidth.FillRight(c, widths[i])
			}
			out[i] = paint(i, s)
		}
		bw.WriteString(strings.TrimRight(strings.Join(out, "  "), " "))
		bw.WriteByte('\n')
	}

	line(t.header, func(_ int, s string) string { return bold.Sprint(s) })
	for r, row := range t.rows {
		line(row, func(i int, s string) string {
			if t.marked[[2]int{r, i}] {
				return red.Sprint(s)
			}
			return s
		})
	}
	return bw.Flush()
}

package report

import (
	"strings"
	"unicode/utf8"
)

// A4 portrait geometry in millimetres.
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginLeft   = 20.0
	marginRight  = 20.0
	marginTop    = 20.0
	marginBottom = 20.0
	usableWidth  = pageWidth - marginLeft - marginRight
	pageBottom   = pageHeight - marginBottom

	rowHeight   = 8.0
	cellPadding = 1.5
	tableFont   = 10.0
	ellipsis    = "…"
)

var (
	headFill  = [3]int{66, 139, 202}
	titleInk  = [3]int{40, 40, 40}
	bodyInk   = [3]int{60, 60, 60}
	footerInk = [3]int{128, 128, 128}
	black     = [3]int{0, 0, 0}
	white     = [3]int{255, 255, 255}
)

// DocumentCursor is the writing position: a 0-based page index and the
// vertical offset on that page.
type DocumentCursor struct {
	Page int
	Y    float64
}

func begin(c Canvas) DocumentCursor {
	c.AddPage()
	return DocumentCursor{Page: 0, Y: marginTop}
}

func newPage(c Canvas, cur DocumentCursor) DocumentCursor {
	c.AddPage()
	return DocumentCursor{Page: cur.Page + 1, Y: marginTop}
}

// ensureSpace starts a new page when need millimetres do not fit above the
// bottom margin.
func ensureSpace(c Canvas, cur DocumentCursor, need float64) DocumentCursor {
	if cur.Y+need > pageBottom {
		return newPage(c, cur)
	}
	return cur
}

func ink(c Canvas, rgb [3]int) {
	c.SetTextColor(rgb[0], rgb[1], rgb[2])
}

// textLine draws s at x on the cursor line and advances by step.
func textLine(c Canvas, cur DocumentCursor, x float64, s string, step float64) DocumentCursor {
	c.Text(x, cur.Y, s)
	cur.Y += step
	return cur
}

// heading draws a section title at size in the title colour.
func heading(c Canvas, cur DocumentCursor, s string, size, step float64) DocumentCursor {
	c.SetFont("", size)
	ink(c, titleInk)
	return textLine(c, cur, marginLeft, s, step)
}

type table struct {
	Head []string
	Rows [][]string
}

// columnWidths sizes each column to its widest header or cell, then scales
// the set to the usable page width.
func columnWidths(c Canvas, t table) []float64 {
	n := len(t.Head)
	natural := make([]float64, n)
	c.SetFont("B", tableFont)
	for i, h := range t.Head {
		natural[i] = c.StringWidth(h) + 2*cellPadding
	}
	c.SetFont("", tableFont)
	for _, row := range t.Rows {
		for i := 0; i < n && i < len(row); i++ {
			if w := c.StringWidth(row[i]) + 2*cellPadding; w > natural[i] {
				natural[i] = w
			}
		}
	}
	var sum float64
	for _, w := range natural {
		sum += w
	}
	widths := make([]float64, n)
	for i := range natural {
		if sum == 0 {
			widths[i] = usableWidth / float64(n)
			continue
		}
		widths[i] = natural[i] * usableWidth / sum
	}
	return widths
}

// fit truncates s with an ellipsis until it fits in width.
func fit(c Canvas, s string, width float64) string {
	if c.StringWidth(s) <= width {
		return s
	}
	for len(s) > 0 {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
		candidate := strings.TrimRight(s, " ") + ellipsis
		if c.StringWidth(candidate) <= width {
			return candidate
		}
	}
	return ""
}

func drawRow(c Canvas, cur DocumentCursor, widths []float64, cells []string, fill bool) DocumentCursor {
	x := marginLeft
	for i, w := range widths {
		var s string
		if i < len(cells) {
			s = cells[i]
		}
		c.Cell(x, cur.Y, w, rowHeight, fit(c, s, w-2*cellPadding), true, fill, "L")
		x += w
	}
	cur.Y += rowHeight
	return cur
}

func drawHead(c Canvas, cur DocumentCursor, widths []float64, head []string) DocumentCursor {
	c.SetFont("B", tableFont)
	c.SetFillColor(headFill[0], headFill[1], headFill[2])
	ink(c, white)
	cur = drawRow(c, cur, widths, head, true)
	c.SetFont("", tableFont)
	ink(c, black)
	return cur
}

// drawTable renders t from cur. A row that does not fit above the bottom
// margin goes to a new page, which starts with the header row again.
func drawTable(c Canvas, cur DocumentCursor, t table) DocumentCursor {
	widths := columnWidths(c, t)
	cur = ensureSpace(c, cur, 2*rowHeight)
	cur = drawHead(c, cur, widths, t.Head)
	for _, row := range t.Rows {
		if cur.Y+rowHeight > pageBottom {
			cur = newPage(c, cur)
			cur = drawHead(c, cur, widths, t.Head)
		}
		cur = drawRow(c, cur, widths, row, false)
	}
	return cur
}

// wrap splits s into lines no wider than width. Words wider than a line are
// broken between runes.
func wrap(c Canvas, s string, width float64) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, w := range words {
			if c.StringWidth(w) > width {
				if line != "" {
					lines = append(lines, line)
				}
				pieces := breakWord(c, w, width)
				lines = append(lines, pieces[:len(pieces)-1]...)
				line = pieces[len(pieces)-1]
				continue
			}
			switch {
			case line == "":
				line = w
			case c.StringWidth(line+" "+w) <= width:
				line += " " + w
			default:
				lines = append(lines, line)
				line = w
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// breakWord cuts w into pieces no wider than width, at least one rune each.
func breakWord(c Canvas, w string, width float64) []string {
	var pieces []string
	var cur strings.Builder
	for _, r := range w {
		if cur.Len() > 0 && c.StringWidth(cur.String()+string(r)) > width {
			pieces = append(pieces, cur.String())
			cur.Reset()
		}
		cur.WriteRune(r)
	}
	return append(pieces, cur.String())
}

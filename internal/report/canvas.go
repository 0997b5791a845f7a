package report

import (
	"io"

	"github.com/go-pdf/fpdf"
)

// Canvas is the drawing surface the layout code writes to. Coordinates are
// millimetres from the top-left corner of an A4 portrait page.
type Canvas interface {
	AddPage()
	PageCount() int
	// SetPage selects a 1-based page for further drawing.
	SetPage(n int)
	SetFont(style string, size float64)
	SetTextColor(r, g, b int)
	SetFillColor(r, g, b int)
	Text(x, y float64, s string)
	// Cell draws s inside the box at (x, y), optionally bordered and filled.
	Cell(x, y, w, h float64, s string, border, fill bool, align string)
	StringWidth(s string) float64
	Output(w io.Writer) error
}

const fontFamily = "Helvetica"

type pdfCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

// NewPDFCanvas returns a Canvas backed by fpdf. Core fonts are cp1252, so
// text is translated from UTF-8 before drawing.
func NewPDFCanvas(compress bool) Canvas {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(compress)
	pdf.SetFont(fontFamily, "", 12)
	return &pdfCanvas{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (c *pdfCanvas) AddPage()       { c.pdf.AddPage() }
func (c *pdfCanvas) PageCount() int { return c.pdf.PageCount() }
func (c *pdfCanvas) SetPage(n int)  { c.pdf.SetPage(n) }

func (c *pdfCanvas) SetFont(style string, size float64) {
	c.pdf.SetFont(fontFamily, style, size)
}

func (c *pdfCanvas) SetTextColor(r, g, b int) { c.pdf.SetTextColor(r, g, b) }
func (c *pdfCanvas) SetFillColor(r, g, b int) { c.pdf.SetFillColor(r, g, b) }

func (c *pdfCanvas) Text(x, y float64, s string) {
	c.pdf.Text(x, y, c.tr(s))
}

func (c *pdfCanvas) Cell(x, y, w, h float64, s string, border, fill bool, align string) {
	b := ""
	if border {
		b = "1"
	}
	c.pdf.SetXY(x, y)
	c.pdf.CellFormat(w, h, c.tr(s), b, 0, align+"M", fill, 0, "")
}

func (c *pdfCanvas) StringWidth(s string) float64 {
	return c.pdf.GetStringWidth(c.tr(s))
}

func (c *pdfCanvas) Output(w io.Writer) error {
	if err := c.pdf.Error(); err != nil {
		return err
	}
	return c.pdf.Output(w)
}

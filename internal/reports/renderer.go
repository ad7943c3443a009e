package reports

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/angelmondragon/coinledger-backend/pkg/db/models"
)

const (
	pageMargin   = 30.0
	rowHeight    = 20.0
	bottomGuard  = 100.0
	columnCount  = 5
	incomeColor  = "#4caf50"
	expenseColor = "#f44336"
	ruleColor    = "#cccccc"
	black        = "#000000"
	white        = "#ffffff"
	dateLayout   = "2006-01-02 15:04:05"
	windowLayout = "2006-01-02"
	fontFamily   = "Helvetica"
)

// Statement is everything a rendered report shows.
type Statement struct {
	Brand       string
	UserID      string
	UserName    string
	StartDate   time.Time
	EndDate     time.Time
	GeneratedAt time.Time
	Entries     []models.LedgerEntry
	TotalCoins  int64
}

// Renderer turns a statement into a document.
type Renderer interface {
	Render(w io.Writer, st Statement) error
}

// PDFRenderer lays out an A4 portrait statement with fpdf.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(w io.Writer, st Statement) error {
	pdf, err := r.build(st)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

func (r *PDFRenderer) build(st Statement) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("coinledger", true)
	pdf.SetTitle("Coin History "+st.UserID, true)
	if !st.GeneratedAt.IsZero() {
		pdf.SetCreationDate(st.GeneratedAt)
	}

	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin
	colW := contentW / columnCount

	pdf.AddPage()

	if st.Brand != "" {
		setText(pdf, black)
		pdf.SetFont(fontFamily, "B", 16)
		pdf.CellFormat(contentW, 22, st.Brand, "", 1, "C", false, 0, "")
	}
	pdf.SetFont(fontFamily, "B", 14)
	pdf.CellFormat(contentW, 20, "Coin History", "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(fontFamily, "", 10)
	user := st.UserID
	if st.UserName != "" && st.UserName != st.UserID {
		user = fmt.Sprintf("%s (%s)", st.UserName, st.UserID)
	}
	for _, line := range []string{
		"User: " + user,
		"Start date: " + st.StartDate.UTC().Format(windowLayout),
		"End date: " + st.EndDate.UTC().Format(windowLayout),
	} {
		pdf.CellFormat(contentW, 14, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	header := func() {
		rule(pdf, pageW)
		pdf.Ln(6)
		setText(pdf, black)
		pdf.SetFont(fontFamily, "B", 10)
		for i, title := range []string{"DATE", "DIRECTION", "COINS", "DOLLARS", "TYPE"} {
			pdf.SetXY(pageMargin+float64(i)*colW, pdf.GetY())
			pdf.CellFormat(colW, 14, title, "", 0, "L", false, 0, "")
		}
		pdf.Ln(18)
		rule(pdf, pageW)
		pdf.Ln(6)
	}
	header()

	for _, e := range st.Entries {
		if pdf.GetY() > pageH-bottomGuard-rowHeight {
			pdf.AddPage()
			header()
		}
		y := pdf.GetY()
		pdf.SetFont(fontFamily, "", 10)

		setText(pdf, black)
		pdf.SetXY(pageMargin, y)
		pdf.CellFormat(colW, 14, e.Date.UTC().Format(dateLayout), "", 0, "L", false, 0, "")

		direction, tone, sign := "Expense", expenseColor, "-"
		if e.IsIncome {
			direction, tone, sign = "Income", incomeColor, "+"
		}
		badge(pdf, pageMargin+colW, y, direction, tone)

		setText(pdf, tone)
		pdf.SetFont(fontFamily, "", 10)
		pdf.SetXY(pageMargin+2*colW, y)
		pdf.CellFormat(colW, 14, sign+strconv.FormatInt(e.Coin, 10), "", 0, "L", false, 0, "")

		dollars := "-"
		if e.IsIncome {
			dollars = e.Dollar.StringFixed(2)
		}
		setText(pdf, black)
		pdf.SetXY(pageMargin+3*colW, y)
		pdf.CellFormat(colW, 14, dollars, "", 0, "L", false, 0, "")

		badge(pdf, pageMargin+4*colW, y, e.Type.Label(), e.Type.Color())

		pdf.SetXY(pageMargin, y+rowHeight)
	}

	pdf.Ln(10)
	rule(pdf, pageW)
	pdf.Ln(8)
	pdf.SetFont(fontFamily, "B", 12)
	totalTone, totalSign := incomeColor, "+"
	if st.TotalCoins < 0 {
		totalTone, totalSign = expenseColor, ""
	}
	setText(pdf, totalTone)
	pdf.CellFormat(contentW, 16, fmt.Sprintf("Total Coins: %s%d", totalSign, st.TotalCoins), "", 1, "R", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return pdf, nil
}

func badge(pdf *fpdf.Fpdf, x, y float64, text, bg string) {
	const padding = 6.0
	pdf.SetFont(fontFamily, "", 8)
	width := pdf.GetStringWidth(text) + 2*padding
	setFill(pdf, bg)
	pdf.RoundedRect(x, y, width, 13, 4, "1234", "F")
	setText(pdf, white)
	pdf.SetXY(x, y)
	pdf.CellFormat(width, 13, text, "", 0, "C", false, 0, "")
}

func rule(pdf *fpdf.Fpdf, pageW float64) {
	r, g, b := hexRGB(ruleColor)
	pdf.SetDrawColor(r, g, b)
	pdf.SetLineWidth(1)
	y := pdf.GetY()
	pdf.Line(pageMargin, y, pageW-pageMargin, y)
}

func setText(pdf *fpdf.Fpdf, hex string) {
	r, g, b := hexRGB(hex)
	pdf.SetTextColor(r, g, b)
}

func setFill(pdf *fpdf.Fpdf, hex string) {
	r, g, b := hexRGB(hex)
	pdf.SetFillColor(r, g, b)
}

// hexRGB parses #rrggbb; anything else renders grey.
func hexRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0x75, 0x75, 0x75
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0x75, 0x75, 0x75
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

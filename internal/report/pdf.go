package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-pdf/fpdf"
)

type rgb struct{ r, g, b int }

var (
	primary   = rgb{79, 70, 229}
	brandBlue = rgb{75, 70, 229}
	darkText  = rgb{60, 60, 60}
	greyText  = rgb{100, 100, 100}
	footGrey  = rgb{150, 150, 150}
	stripe    = rgb{245, 247, 250}
)

const (
	marginLeft     = 14.0
	rowHeight      = 8.0
	noteLineHeight = 5.0
	notePadding    = 1.5
	tableTop       = 60.0
	pageBottom     = 270.0
	footerY        = 285.0
)

var (
	columnTitles = map[Locale][6]string{
		Italian: {"Data", "Giorno", "Inizio", "Fine", "Ore", "Note"},
		English: {"Date", "Day", "Start", "End", "Hours", "Notes"},
	}
	columnWidths = [6]float64{26, 28, 18, 18, 18, 74}

	labels = map[Locale]struct{ hoursFor, period, generated, total, footer string }{
		Italian: {"Report Ore", "Periodo", "Generato il", "Totale ore", "Report generato automaticamente da"},
		English: {"Hours Report", "Period", "Generated on", "Total hours", "Report generated automatically by"},
	}
)

// PDFRenderer lays a Document out on A4 pages.
type PDFRenderer struct {
	Locale Locale
}

// Render writes the PDF to w.
func (r PDFRenderer) Render(w io.Writer, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("render: nil document")
	}
	loc := r.Locale
	if _, ok := locales[loc]; !ok {
		loc = DefaultLocale
	}
	lbl := labels[loc]

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(doc.Title, true)
	pdf.SetSubject(doc.Subject, true)
	pdf.SetCreator(doc.Creator, true)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetMargins(marginLeft, 14, marginLeft)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFooterFunc(func() {
		pdf.SetFont("Helvetica", "", 8)
		setText(pdf, footGrey)
		pdf.Text(marginLeft, footerY, tr(lbl.footer+" "+doc.Creator))
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	setText(pdf, brandBlue)
	pdf.Text(marginLeft, 22, tr(doc.Creator))

	pdf.SetFont("Helvetica", "", 16)
	setText(pdf, darkText)
	pdf.Text(marginLeft, 32, tr(fmt.Sprintf("%s: %s", lbl.hoursFor, doc.JobName)))
	pdf.Text(marginLeft, 42, tr(fmt.Sprintf("%s: %s", lbl.period, doc.MonthLabel)))

	pdf.SetFont("Helvetica", "", 12)
	setText(pdf, greyText)
	pdf.Text(marginLeft, 52, tr(fmt.Sprintf("%s: %s", lbl.generated, doc.GeneratedAt.Format("02/01/2006 15:04"))))

	pdf.SetY(tableTop)
	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(primary.r, primary.g, primary.b)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetDrawColor(200, 200, 200)
		for i, title := range columnTitles[loc] {
			pdf.CellFormat(columnWidths[i], rowHeight, tr(title), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(0, 0, 0)
	}
	header()

	noteWidth := columnWidths[5] - 2*pdf.GetCellMargin()
	for i, row := range doc.Rows {
		notes := wrapText(tr(row.Note), noteWidth, pdf.GetStringWidth)
		h := rowHeight
		if len(notes) > 1 {
			h = max(rowHeight, float64(len(notes))*noteLineHeight+2*notePadding)
		}
		if pdf.GetY()+h > pageBottom {
			pdf.AddPage()
			pdf.SetY(20)
			header()
		}
		fill := i%2 == 1
		if fill {
			pdf.SetFillColor(stripe.r, stripe.g, stripe.b)
		}
		cells := [5]string{row.Date, row.Weekday, row.Start, row.End, row.Hours}
		for c, text := range cells {
			align := "L"
			if c == 4 {
				align = "R"
			}
			pdf.CellFormat(columnWidths[c], h, tr(text), "1", 0, align, fill, 0, "")
		}

		x, y := pdf.GetXY()
		if len(notes) == 1 {
			pdf.CellFormat(columnWidths[5], h, notes[0], "1", 0, "L", fill, 0, "")
		} else {
			pdf.CellFormat(columnWidths[5], h, "", "1", 0, "L", fill, 0, "")
			for j, line := range notes {
				pdf.SetXY(x, y+notePadding+float64(j)*noteLineHeight)
				pdf.CellFormat(columnWidths[5], noteLineHeight, line, "", 0, "L", false, 0, "")
			}
		}
		pdf.SetXY(marginLeft, y+h)
	}

	if pdf.GetY()+10 > pageBottom {
		pdf.AddPage()
		pdf.SetY(20)
	}
	pdf.SetFont("Helvetica", "B", 12)
	setText(pdf, primary)
	pdf.Text(marginLeft, pdf.GetY()+10, tr(fmt.Sprintf("%s: %s", lbl.total, doc.Total)))

	return pdf.Output(w)
}

var whitespace = regexp.MustCompile(`\s+`)

// FileName is the suggested download name, e.g.
// "Timesheet_Acme_marzo_2024.pdf".
func FileName(doc *Document) string {
	name := fmt.Sprintf("%s_%s_%s", doc.Creator, doc.JobName, doc.MonthLabel)
	name = strings.NewReplacer("/", "-", "\\", "-", "\"", "").Replace(name)
	return whitespace.ReplaceAllString(name, "_") + ".pdf"
}

func setText(pdf *fpdf.Fpdf, c rgb) {
	pdf.SetTextColor(c.r, c.g, c.b)
}

// wrapText breaks s into lines no wider than limit, at spaces where it can
// and inside words longer than a whole line. s is already in the font's
// single byte encoding. It returns at least one line.
func wrapText(s string, limit float64, width func(string) float64) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			for width(word) > limit && len(word) > 1 {
				if line != "" {
					lines = append(lines, line)
					line = ""
				}
				n := fitPrefix(word, limit, width)
				lines = append(lines, word[:n])
				word = word[n:]
			}
			switch {
			case word == "":
			case line == "":
				line = word
			case width(line+" "+word) <= limit:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// fitPrefix is the length of the longest prefix of word within limit, at
// least one byte.
func fitPrefix(word string, limit float64, width func(string) float64) int {
	n := 1
	for n < len(word) && width(word[:n+1]) <= limit {
		n++
	}
	return n
}

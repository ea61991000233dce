package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageSize   = "A4"
	marginMM   = 18.0
	bodyLineMM = 5.5
	creator    = "DescomplicaCV"
)

// ErrEmptyTitle is returned when a résumé has no title to print in the header.
var ErrEmptyTitle = errors.New("render: title is required")

// Resume is the standardized layout input.
type Resume struct {
	Title      string
	Subtitle   string
	Author     string
	Paragraphs []string
	CreatedAt  time.Time
}

// PDF lays the résumé out on A4 pages with a header block and numbered footer.
func PDF(r Resume) ([]byte, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	doc := fpdf.New("P", "mm", pageSize, "")
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetTitle(title, true)
	if author := strings.TrimSpace(r.Author); author != "" {
		doc.SetAuthor(author, true)
	}
	doc.SetCreator(creator, true)
	if !r.CreatedAt.IsZero() {
		doc.SetCreationDate(r.CreatedAt)
	}
	doc.SetMargins(marginMM, marginMM, marginMM)
	doc.SetAutoPageBreak(true, marginMM)
	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont("Helvetica", "I", 8)
		doc.SetTextColor(120, 120, 120)
		doc.CellFormat(0, 6, fmt.Sprintf("%d / {nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})

	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.SetTextColor(20, 20, 20)
	doc.MultiCell(0, 9, tr(title), "", "L", false)
	if sub := strings.TrimSpace(r.Subtitle); sub != "" {
		doc.SetFont("Helvetica", "", 10)
		doc.SetTextColor(90, 90, 90)
		doc.MultiCell(0, 6, tr(sub), "", "L", false)
	}
	doc.Ln(2)
	x, y := doc.GetXY()
	w, _ := doc.GetPageSize()
	doc.SetDrawColor(180, 180, 180)
	doc.Line(x, y, w-marginMM, y)
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 11)
	doc.SetTextColor(30, 30, 30)
	if len(r.Paragraphs) == 0 {
		doc.SetFont("Helvetica", "I", 11)
		doc.MultiCell(0, bodyLineMM, "No extractable text was found in the original file.", "", "L", false)
	}
	for _, p := range r.Paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		doc.MultiCell(0, bodyLineMM, tr(p), "", "L", false)
		doc.Ln(1.5)
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

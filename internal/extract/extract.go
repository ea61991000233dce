package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Supported source formats, keyed by file extension.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatTXT  = "txt"
)

const sampleRunes = 100

// Placeholders reported when a PDF carries no title or author metadata.
const (
	DefaultTitle  = "Untitled"
	DefaultAuthor = "Unknown author"
)

var (
	// ErrUnsupported is returned for extensions other than .pdf, .docx and .txt.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrCorrupt is returned when a file of a supported type cannot be parsed.
	ErrCorrupt = errors.New("invalid or corrupt file")
)

// Summary describes an analyzed résumé. Each format reports its own keys, zero values included:
// pdf → pages, title, author; docx → paragraphs, text_sample; txt → lines, text_sample.
type Summary struct {
	FileName   string `json:"filename"`
	Format     string `json:"format"`
	Pages      int    `json:"pages"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Paragraphs int    `json:"paragraphs"`
	Lines      int    `json:"lines"`
	TextSample string `json:"text_sample"`
	Message    string `json:"message"`
}

type jsonField struct {
	key   string
	value any
}

func (s Summary) fields() []jsonField {
	out := []jsonField{{"filename", s.FileName}, {"format", s.Format}}
	switch s.Format {
	case FormatPDF:
		out = append(out, jsonField{"pages", s.Pages}, jsonField{"title", s.Title}, jsonField{"author", s.Author})
	case FormatDOCX:
		out = append(out, jsonField{"paragraphs", s.Paragraphs}, jsonField{"text_sample", s.TextSample})
	case FormatTXT:
		out = append(out, jsonField{"lines", s.Lines}, jsonField{"text_sample", s.TextSample})
	default:
		out = append(out,
			jsonField{"pages", s.Pages}, jsonField{"title", s.Title}, jsonField{"author", s.Author},
			jsonField{"paragraphs", s.Paragraphs}, jsonField{"lines", s.Lines}, jsonField{"text_sample", s.TextSample})
	}
	return append(out, jsonField{"message", s.Message})
}

// MarshalJSON writes only the keys the summary's format reports.
func (s Summary) MarshalJSON() ([]byte, error) {
	return encodeFields(s.fields())
}

// MarshalJSONWith is MarshalJSON with one extra trailing key.
func (s Summary) MarshalJSONWith(key string, value any) ([]byte, error) {
	return encodeFields(append(s.fields(), jsonField{key, value}))
}

func encodeFields(fields []jsonField) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("summary %s: %w", f.key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Document is the analysis result plus the text used to render the converted PDF.
type Document struct {
	Summary    Summary
	Paragraphs []string
}

// FormatOf maps a file name to a supported format by its extension.
func FormatOf(fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(fileName)))
	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".txt":
		return FormatTXT, nil
	case "":
		return "", fmt.Errorf("%w: file has no extension", ErrUnsupported)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

// Analyze parses an in-memory résumé according to its extension.
// Libraries used: github.com/ledongthuc/pdf (PDF) and github.com/nguyenthenguyen/docx (DOCX).
func Analyze(ctx context.Context, data []byte, fileName string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	format, err := FormatOf(fileName)
	if err != nil {
		return Document{}, err
	}

	var doc Document
	switch format {
	case FormatPDF:
		doc, err = analyzePDF(data)
	case FormatDOCX:
		doc, err = analyzeDOCX(data)
	case FormatTXT:
		doc, err = analyzeTXT(data)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, format, err)
	}
	doc.Summary.FileName = fileName
	doc.Summary.Format = format
	return doc, nil
}

func analyzePDF(data []byte) (doc Document, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf reader: %v", rec)
		}
	}()

	if len(data) == 0 {
		return Document{}, errors.New("empty pdf data")
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, err
	}

	info := reader.Trailer().Key("Info")
	title := strings.TrimSpace(info.Key("Title").Text())
	if title == "" {
		title = DefaultTitle
	}
	author := strings.TrimSpace(info.Key("Author").Text())
	if author == "" {
		author = DefaultAuthor
	}

	doc.Summary = Summary{
		Pages:   reader.NumPage(),
		Title:   title,
		Author:  author,
		Message: "PDF analyzed successfully!",
	}
	doc.Paragraphs = pdfParagraphs(reader)
	return doc, nil
}

// pdfParagraphs is best effort: a PDF whose text layer cannot be decoded still converts.
func pdfParagraphs(reader *pdf.Reader) (out []string) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	plain, err := reader.GetPlainText()
	if err != nil {
		return nil
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil
	}
	return splitParagraphs(buf.String())
}

func analyzeDOCX(data []byte) (Document, error) {
	if len(data) == 0 {
		return Document{}, errors.New("empty docx data")
	}
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, err
	}
	defer r.Close()

	paragraphs, err := docxParagraphs(r.Editable().GetContent())
	if err != nil {
		return Document{}, err
	}

	sample := ""
	if len(paragraphs) > 0 {
		sample = paragraphs[0]
	}

	var nonEmpty []string
	for _, p := range paragraphs {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	return Document{
		Summary: Summary{
			Paragraphs: len(paragraphs),
			TextSample: truncateSample(sample),
			Message:    "DOCX analyzed successfully!",
		},
		Paragraphs: nonEmpty,
	}, nil
}

// docxParagraphs returns the text of each body-level w:p, skipping paragraphs nested in tables.
func docxParagraphs(raw string) ([]string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var (
		out        []string
		current    strings.Builder
		inPara     int
		tableDepth int
		inText     bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				inPara++
				if inPara == 1 {
					current.Reset()
				}
			case "t":
				inText = true
			case "tab":
				if inPara > 0 {
					current.WriteString("\t")
				}
			case "br":
				if inPara > 0 {
					current.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			case "p":
				if inPara > 0 {
					inPara--
				}
				if inPara == 0 && tableDepth == 0 {
					out = append(out, current.String())
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && inPara > 0 {
				current.Write(t)
			}
		}
	}
	return out, nil
}

func analyzeTXT(data []byte) (Document, error) {
	if !utf8.Valid(data) {
		return Document{}, errors.New("text is not valid UTF-8")
	}
	text := string(data)
	return Document{
		Summary: Summary{
			Lines:      strings.Count(text, "\n") + 1,
			TextSample: truncateSample(text),
			Message:    "TXT file analyzed successfully!",
		},
		Paragraphs: splitParagraphs(text),
	}, nil
}

func truncateSample(s string) string {
	if utf8.RuneCountInString(s) <= sampleRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:sampleRunes]) + "..."
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimRight(line, " \t"); strings.TrimSpace(trimmed) != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

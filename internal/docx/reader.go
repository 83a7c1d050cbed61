// Package docx reads the body of a WordprocessingML (.docx) file into
// ordered paragraphs and tables.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const documentPart = "word/document.xml"

// ErrNoDocumentPart is returned when the archive has no main document part.
var ErrNoDocumentPart = errors.New("docx: word/document.xml not found")

// Document is the body of a .docx file.
// Paragraphs holds the trimmed, non-empty body-level paragraphs in order.
type Document struct {
	Paragraphs []string
	Tables     []Table
}

// Table is a body-level table.
type Table struct {
	Rows []Row
}

// Row is a table row. A cell spanning several grid columns is repeated once per column.
type Row struct {
	Cells []Cell
}

// Cell holds the cell paragraphs joined with "\n".
type Cell struct {
	Text string
}

// Open reads the .docx file at path.
func Open(path string) (*Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx %s: %w", path, err)
	}
	defer func() { _ = zr.Close() }()
	return fromArchive(&zr.Reader)
}

// Read decodes a .docx archive held in memory, such as an uploaded file.
func Read(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read docx archive: %w", err)
	}
	return fromArchive(zr)
}

func fromArchive(zr *zip.Reader) (*Document, error) {
	for _, f := range zr.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", documentPart, err)
		}
		defer func() { _ = rc.Close() }()
		return Parse(rc)
	}
	return nil, ErrNoDocumentPart
}

// Parse decodes a WordprocessingML main document part.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	doc := &Document{}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return doc, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "p":
			text, err := readParagraph(dec)
			if err != nil {
				return nil, err
			}
			if text = strings.TrimSpace(text); text != "" {
				doc.Paragraphs = append(doc.Paragraphs, text)
			}
		case "tbl":
			t, err := readTable(dec)
			if err != nil {
				return nil, err
			}
			doc.Tables = append(doc.Tables, t)
		}
	}
}

func readParagraph(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	depth := 0
	inText := false

	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("decode paragraph: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			if depth == 0 {
				return b.String(), nil
			}
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
}

func readTable(dec *xml.Decoder) (Table, error) {
	var table Table
	for {
		tok, err := dec.Token()
		if err != nil {
			return Table{}, fmt.Errorf("decode table: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tr" {
				if err := dec.Skip(); err != nil {
					return Table{}, fmt.Errorf("skip %s: %w", t.Name.Local, err)
				}
				continue
			}
			row, err := readRow(dec)
			if err != nil {
				return Table{}, err
			}
			table.Rows = append(table.Rows, row)
		case xml.EndElement:
			return table, nil
		}
	}
}

func readRow(dec *xml.Decoder) (Row, error) {
	var row Row
	for {
		tok, err := dec.Token()
		if err != nil {
			return Row{}, fmt.Errorf("decode row: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tc" {
				if err := dec.Skip(); err != nil {
					return Row{}, fmt.Errorf("skip %s: %w", t.Name.Local, err)
				}
				continue
			}
			cell, span, err := readCell(dec)
			if err != nil {
				return Row{}, err
			}
			for range span {
				row.Cells = append(row.Cells, cell)
			}
		case xml.EndElement:
			return row, nil
		}
	}
}

func readCell(dec *xml.Decoder) (Cell, int, error) {
	var paragraphs []string
	span := 1
	for {
		tok, err := dec.Token()
		if err != nil {
			return Cell{}, 0, fmt.Errorf("decode cell: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				text, err := readParagraph(dec)
				if err != nil {
					return Cell{}, 0, err
				}
				paragraphs = append(paragraphs, text)
			case "tcPr":
				if span, err = readGridSpan(dec); err != nil {
					return Cell{}, 0, err
				}
			default:
				// nested tables are not part of the cell text
				if err := dec.Skip(); err != nil {
					return Cell{}, 0, fmt.Errorf("skip %s: %w", t.Name.Local, err)
				}
			}
		case xml.EndElement:
			return Cell{Text: strings.Join(paragraphs, "\n")}, span, nil
		}
	}
}

func readGridSpan(dec *xml.Decoder) (int, error) {
	span := 1
	for {
		tok, err := dec.Token()
		if err != nil {
			return 0, fmt.Errorf("decode cell properties: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "gridSpan" {
				for _, a := range t.Attr {
					if a.Name.Local != "val" {
						continue
					}
					if n, err := strconv.Atoi(a.Value); err == nil && n > 1 {
						span = n
					}
				}
			}
			if err := dec.Skip(); err != nil {
				return 0, fmt.Errorf("skip %s: %w", t.Name.Local, err)
			}
		case xml.EndElement:
			return span, nil
		}
	}
}

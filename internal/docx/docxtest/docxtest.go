// Package docxtest builds minimal .docx archives for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"os"
	"strings"
	"testing"
)

const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const footer = `<w:sectPr/></w:body></w:document>`

// Table is a list of rows of cell texts; "\n" in a cell text starts a new paragraph.
type Table [][]string

// DocumentXML renders the main document part for the given paragraphs and tables.
// Paragraphs come first, then tables, in order.
func DocumentXML(paragraphs []string, tables ...Table) []byte {
	var b strings.Builder
	b.WriteString(header)
	for _, p := range paragraphs {
		writeParagraph(&b, p)
	}
	for _, t := range tables {
		b.WriteString(`<w:tbl><w:tblPr/><w:tblGrid/>`)
		for _, row := range t {
			b.WriteString(`<w:tr>`)
			for _, cell := range row {
				b.WriteString(`<w:tc><w:tcPr/>`)
				for _, line := range strings.Split(cell, "\n") {
					writeParagraph(&b, line)
				}
				b.WriteString(`</w:tc>`)
			}
			b.WriteString(`</w:tr>`)
		}
		b.WriteString(`</w:tbl>`)
	}
	b.WriteString(footer)
	return []byte(b.String())
}

func writeParagraph(b *strings.Builder, text string) {
	b.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
	_ = xml.EscapeText(b, []byte(text))
	b.WriteString(`</w:t></w:r></w:p>`)
}

// Archive wraps a document part into a .docx zip.
func Archive(t testing.TB, documentXML []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document part: %v", err)
	}
	if _, err := w.Write(documentXML); err != nil {
		t.Fatalf("write document part: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes a .docx with the given content to path.
func WriteFile(t testing.TB, path string, paragraphs []string, tables ...Table) {
	t.Helper()
	data := Archive(t, DocumentXML(paragraphs, tables...))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Resume returns the paragraphs and tables of a well-formed résumé.
func Resume(name, position string) ([]string, []Table) {
	paragraphs := []string{name, position, "Curriculum vitae"}
	about := Table{{
		"Education\nBSU, Applied Mathematics\nLanguage proficiency\nEnglish (B2)\nGerman - A1\nDomains\nFinTech\nE-commerce\nCertificates\nAWS SA",
		"Summary\nBuilds recommendation systems. Ships ML models to production! Mentors juniors.",
	}}
	projects := Table{
		{"Project", "Details"},
		{
			"Payments Platform\nCard processing for a bank",
			"Migrated fraud scoring to streaming.\nProject roles\nML Engineer / Data Scientist\nPeriod\n2021-2023",
		},
	}
	return paragraphs, []Table{about, projects}
}

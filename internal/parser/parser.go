// Package parser extracts personal and project records from résumé documents
// that follow the fixed two-table template.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cvindex/internal/docx"
	"github.com/kailas-cloud/cvindex/internal/domain"
	"github.com/kailas-cloud/cvindex/internal/domain/cv"
	"github.com/kailas-cloud/cvindex/internal/textnorm"
)

// Template markers of the "about" cell and the project body.
const (
	MarkerEducation    = "Education"
	MarkerLanguages    = "Language proficiency"
	MarkerDomains      = "Domains"
	MarkerCertificates = "Certificates"
	MarkerRoles        = "Project roles"
	MarkerPeriod       = "Period"
)

const minParagraphs = 3

// Parser turns a docx.Document into a cv.CV.
type Parser struct {
	logger *zap.Logger
	now    func() time.Time
	token  func() string
}

// New creates a parser. A nil logger disables logging.
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		logger: logger,
		now:    time.Now,
		token:  func() string { return uuid.NewString()[:8] },
	}
}

// WithClock replaces the parse timestamp source.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	p.now = now
	return p
}

// WithToken replaces the random suffix source of CV ids.
func (p *Parser) WithToken(token func() string) *Parser {
	p.token = token
	return p
}

// ParseFile reads and parses the .docx file at path.
func (p *Parser) ParseFile(path string) (cv.CV, error) {
	if !strings.EqualFold(filepath.Ext(path), ".docx") {
		return cv.CV{}, &StructuralParseError{
			Source: path,
			Err:    fmt.Errorf("%w: expected .docx", domain.ErrUnsupportedDocument),
		}
	}
	if _, err := os.Stat(path); err != nil {
		return cv.CV{}, &StructuralParseError{Source: path, Err: err}
	}

	doc, err := docx.Open(path)
	if err != nil {
		return cv.CV{}, &StructuralParseError{Source: path, Err: err}
	}
	return p.Parse(doc, path)
}

// Parse extracts a CV from doc. source names the document in errors and logs.
func (p *Parser) Parse(doc *docx.Document, source string) (cv.CV, error) {
	personal, err := parsePersonalInfo(doc)
	if err != nil {
		return cv.CV{}, &StructuralParseError{Source: source, Err: err}
	}

	id := p.newID(personal.CandidateName)
	projects := p.parseProjects(doc, source)

	v, err := cv.New(id, personal, projects)
	if err != nil {
		return cv.CV{}, &StructuralParseError{Source: source, Err: err}
	}
	return v, nil
}

// newID builds "{name}_{unix}_{token}".
func (p *Parser) newID(name string) string {
	return name + "_" + strconv.FormatInt(p.now().Unix(), 10) + "_" + p.token()
}

func parsePersonalInfo(doc *docx.Document) (cv.PersonalInfo, error) {
	if len(doc.Paragraphs) < minParagraphs {
		return cv.PersonalInfo{}, fmt.Errorf(
			"expected at least %d paragraphs, got %d", minParagraphs, len(doc.Paragraphs))
	}
	if len(doc.Tables) == 0 {
		return cv.PersonalInfo{}, errors.New("document has no tables")
	}
	about := doc.Tables[0]
	if len(about.Rows) == 0 || len(about.Rows[0].Cells) == 0 {
		return cv.PersonalInfo{}, errors.New("about table is empty")
	}

	name := strings.TrimSpace(doc.Paragraphs[0])
	level, position := textnorm.ExtractPositionLevel(doc.Paragraphs[1])
	roles := splitNormalized(position)

	cells := about.Rows[0].Cells
	lines := strings.Split(cells[0].Text, "\n")

	education := textnorm.ExtractBetweenMarkers(lines, MarkerEducation, MarkerLanguages)
	rawLanguages := textnorm.ExtractBetweenMarkers(lines, MarkerLanguages, MarkerDomains)
	languages := make([]string, 0, len(rawLanguages))
	for _, l := range rawLanguages {
		cleaned, _ := textnorm.CleanLanguageEntry(l)
		languages = append(languages, cleaned)
	}
	domains := textnorm.ExtractBetweenMarkers(lines, MarkerDomains, MarkerCertificates)

	var description string
	if len(cells) > 1 {
		if descLines := strings.Split(cells[1].Text, "\n"); len(descLines) > 1 {
			description = descLines[1]
		}
	}

	return cv.PersonalInfo{
		CandidateName: name,
		Level:         level,
		Roles:         roles,
		Education:     education,
		Languages:     languages,
		Domains:       domains,
		Description:   textnorm.Normalize(description),
	}, nil
}

func (p *Parser) parseProjects(doc *docx.Document, source string) []cv.Project {
	if len(doc.Tables) < 2 {
		return nil
	}

	rows := doc.Tables[1].Rows
	projects := make([]cv.Project, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		project, err := parseProjectRow(i, rows[i])
		if err != nil {
			p.logger.Warn("skip project row",
				zap.String("source", source),
				zap.Error(err),
			)
			continue
		}
		projects = append(projects, project)
	}
	return projects
}

func parseProjectRow(n int, row docx.Row) (cv.Project, error) {
	if len(row.Cells) < 2 {
		return cv.Project{}, &RowParseError{
			Row: n,
			Err: fmt.Errorf("expected at least 2 cells, got %d", len(row.Cells)),
		}
	}

	head := strings.Split(row.Cells[0].Text, "\n")
	name := textnorm.Normalize(head[0])
	if name == "" {
		return cv.Project{}, &RowParseError{Row: n, Err: errors.New("empty project name")}
	}
	var summary string
	if len(head) > 1 {
		summary = head[1]
	}

	body := row.Cells[1].Text
	var roles []string
	if line := textnorm.ExtractBetweenMarkers(strings.Split(body, "\n"), MarkerRoles, MarkerPeriod); len(line) > 0 {
		roles = splitNormalized(line[0])
	}

	description := body
	if summary != "" {
		description = summary + " " + body
	}

	return cv.Project{
		ProjectName: name,
		Description: textnorm.Normalize(description),
		Roles:       roles,
	}, nil
}

// splitNormalized splits on "/" and normalizes each part. Empty parts are dropped.
func splitNormalized(s string) []string {
	parts := strings.Split(s, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if n := textnorm.Normalize(part); n != "" {
			out = append(out, n)
		}
	}
	return out
}

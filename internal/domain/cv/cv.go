package cv

import "fmt"

// Metadata keys shared by CV and project records.
const (
	KeyCVID        = "CV_id"
	KeyName        = "name"
	KeyLevel       = "level"
	KeyRoles       = "roles"
	KeyEducation   = "education"
	KeyLanguages   = "languages"
	KeyDomains     = "domains"
	KeyDescription = "description"
	KeyProjectName = "project_name"
)

// PersonalInfo is the candidate section of a résumé.
// Level is "" when the position line carries no seniority keyword.
type PersonalInfo struct {
	CandidateName string
	Level         string
	Roles         []string
	Education     []string
	Languages     []string
	Domains       []string
	Description   string
}

// ToMap renders the personal info as record metadata. An absent level is nil.
func (p PersonalInfo) ToMap() map[string]any {
	var level any
	if p.Level != "" {
		level = p.Level
	}
	return map[string]any{
		KeyName:        p.CandidateName,
		KeyLevel:       level,
		KeyRoles:       nonNil(p.Roles),
		KeyEducation:   nonNil(p.Education),
		KeyLanguages:   nonNil(p.Languages),
		KeyDomains:     nonNil(p.Domains),
		KeyDescription: p.Description,
	}
}

func (p PersonalInfo) withDefaults() PersonalInfo {
	p.Roles = nonNil(p.Roles)
	p.Education = nonNil(p.Education)
	p.Languages = nonNil(p.Languages)
	p.Domains = nonNil(p.Domains)
	return p
}

// Project is one row of the projects table.
type Project struct {
	ProjectName   string
	CandidateName string
	Description   string
	Roles         []string
	CVID          string
}

// Metadata renders the project as record metadata.
func (p Project) Metadata() map[string]any {
	return map[string]any{
		KeyCVID:        p.CVID,
		KeyName:        p.CandidateName,
		KeyProjectName: p.ProjectName,
		KeyRoles:       nonNil(p.Roles),
	}
}

// CV is a parsed résumé (immutable value object).
type CV struct {
	id       string
	personal PersonalInfo
	projects []Project
}

// New validates and creates a CV. Every project is bound to the new CV's id and candidate.
func New(id string, personal PersonalInfo, projects []Project) (CV, error) {
	if id == "" {
		return CV{}, fmt.Errorf("cv id is required")
	}
	if personal.CandidateName == "" {
		return CV{}, fmt.Errorf("candidate name is required")
	}

	bound := make([]Project, len(projects))
	for i, p := range projects {
		p.CVID = id
		p.CandidateName = personal.CandidateName
		p.Roles = nonNil(p.Roles)
		bound[i] = p
	}

	return CV{id: id, personal: personal.withDefaults(), projects: bound}, nil
}

// ID returns the CV identifier.
func (c CV) ID() string { return c.id }

// PersonalInfo returns the candidate section.
func (c CV) PersonalInfo() PersonalInfo { return c.personal }

// Projects returns a copy of the project list.
func (c CV) Projects() []Project {
	out := make([]Project, len(c.projects))
	copy(out, c.projects)
	return out
}

// Metadata is {CV_id} merged with the personal info map.
func (c CV) Metadata() map[string]any {
	m := c.personal.ToMap()
	m[KeyCVID] = c.id
	return m
}

// Text is the content indexed for the CV itself: the personal description.
func (c CV) Text() string { return c.personal.Description }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

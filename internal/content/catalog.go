// Package content holds the semester, subject and question paper catalog.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog validation errors.
var (
	ErrDuplicateSemester = errors.New("duplicate semester id")
	ErrDuplicateSubject  = errors.New("duplicate subject code")
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Paper is one past question paper.
type Paper struct {
	Title string `yaml:"title" json:"title"`
	Year  int    `yaml:"year" json:"year"`
	Exam  string `yaml:"exam" json:"exam"`
	URL   string `yaml:"url" json:"url"`
}

// Subject is a course taught in a semester.
type Subject struct {
	Code    string  `yaml:"code" json:"code"`
	Name    string  `yaml:"name" json:"name"`
	Credits int     `yaml:"credits" json:"credits"`
	Papers  []Paper `yaml:"papers" json:"papers"`
}

// Semester groups subjects.
type Semester struct {
	ID       int       `yaml:"id" json:"id"`
	Name     string    `yaml:"name" json:"name"`
	Subjects []Subject `yaml:"subjects" json:"subjects"`
}

// PaperFilter narrows Papers. Zero fields match everything.
type PaperFilter struct {
	Semester int
	Subject  string
	Year     int
	// Query matches paper title, subject code or subject name, ignoring
	// case.
	Query string
}

// PaperRef is a paper together with where it sits in the catalog.
type PaperRef struct {
	Semester     int    `json:"semester"`
	SemesterName string `json:"semesterName"`
	SubjectCode  string `json:"subjectCode"`
	SubjectName  string `json:"subjectName"`
	Paper
}

// Catalog is immutable after Load.
type Catalog struct {
	semesters []Semester
}

// Load reads a catalog file. An empty path loads the embedded default.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
	}
	c, err := Parse(data)
	if err != nil && path != "" {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, err
}

// Parse decodes and validates catalog YAML. Semesters are kept sorted by
// ID.
func Parse(data []byte) (*Catalog, error) {
	var f struct {
		Semesters []Semester `yaml:"semesters"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seenSem := make(map[int]struct{})
	seenSub := make(map[string]struct{})
	for _, s := range f.Semesters {
		if _, dup := seenSem[s.ID]; dup {
			return nil, fmt.Errorf("semester %d: %w", s.ID, ErrDuplicateSemester)
		}
		seenSem[s.ID] = struct{}{}
		for _, sub := range s.Subjects {
			key := strings.ToUpper(sub.Code)
			if _, dup := seenSub[key]; dup {
				return nil, fmt.Errorf("subject %s: %w", sub.Code, ErrDuplicateSubject)
			}
			seenSub[key] = struct{}{}
		}
	}

	slices.SortStableFunc(f.Semesters, func(a, b Semester) int {
		return a.ID - b.ID
	})
	return &Catalog{semesters: f.Semesters}, nil
}

// Semesters lists all semesters in ID order.
func (c *Catalog) Semesters() []Semester {
	return slices.Clone(c.semesters)
}

// Semester looks a semester up by ID.
func (c *Catalog) Semester(id int) (Semester, bool) {
	for _, s := range c.semesters {
		if s.ID == id {
			return s, true
		}
	}
	return Semester{}, false
}

// Years returns the distinct paper years, newest first.
func (c *Catalog) Years() []int {
	var years []int
	for _, s := range c.semesters {
		for _, sub := range s.Subjects {
			for _, p := range sub.Papers {
				if !slices.Contains(years, p.Year) {
					years = append(years, p.Year)
				}
			}
		}
	}
	slices.Sort(years)
	slices.Reverse(years)
	return years
}

// Papers returns the papers matching f, ordered by semester, then subject
// code, then year with the newest first.
func (c *Catalog) Papers(f PaperFilter) []PaperRef {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]PaperRef, 0)

	for _, s := range c.semesters {
		if f.Semester != 0 && s.ID != f.Semester {
			continue
		}
		for _, sub := range s.Subjects {
			if f.Subject != "" && !strings.EqualFold(sub.Code, f.Subject) {
				continue
			}
			for _, p := range sub.Papers {
				if f.Year != 0 && p.Year != f.Year {
					continue
				}
				if query != "" &&
					!strings.Contains(strings.ToLower(p.Title), query) &&
					!strings.Contains(strings.ToLower(sub.Name), query) &&
					!strings.Contains(strings.ToLower(sub.Code), query) {
					continue
				}
				out = append(out, PaperRef{
					Semester:     s.ID,
					SemesterName: s.Name,
					SubjectCode:  sub.Code,
					SubjectName:  sub.Name,
					Paper:        p,
				})
			}
		}
	}

	slices.SortStableFunc(out, func(a, b PaperRef) int {
		if a.Semester != b.Semester {
			return a.Semester - b.Semester
		}
		if c := strings.Compare(a.SubjectCode, b.SubjectCode); c != 0 {
			return c
		}
		return b.Year - a.Year
	})
	return out
}

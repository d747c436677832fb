package model

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Category classifies a calendar entry.
type Category string

const (
	CategoryExam         Category = "exam"
	CategoryAcademic     Category = "academic"
	CategoryRegistration Category = "registration"
	CategoryHoliday      Category = "holiday"
	CategoryOther        Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryExam,
	CategoryAcademic,
	CategoryRegistration,
	CategoryHoliday,
	CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryExam, CategoryAcademic, CategoryRegistration, CategoryHoliday, CategoryOther:
		return true
	}
	return false
}

// ParseCategory maps free text (e.g. an ICS CATEGORIES value) to a
// Category; anything unrecognized becomes CategoryOther.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	switch c {
	case "exams", "examination", "examinations":
		return CategoryExam
	case "holidays", "vacation", "break":
		return CategoryHoliday
	}
	return CategoryOther
}

// Label is the plural heading used by the list view ("Exams", "Holidays").
func (c Category) Label() string {
	if c == "" {
		return ""
	}
	s := string(c)
	return strings.ToUpper(s[:1]) + s[1:] + "s"
}

// UnmarshalYAML rejects unknown categories so that a malformed data file
// fails at load time instead of silently rendering as "other".
func (c *Category) UnmarshalYAML(value *yaml.Node) error {
	v := Category(value.Value)
	if v == "" {
		v = CategoryOther
	}
	if !v.Valid() {
		return fmt.Errorf("line %d: unknown category %q", value.Line, value.Value)
	}
	*c = v
	return nil
}

// Event is a dated, categorized calendar entry, possibly spanning several
// days. StartDate and EndDate are both inclusive.
type Event struct {
	ID          int      `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	StartDate   Date     `yaml:"start_date" json:"startDate"`
	EndDate     Date     `yaml:"end_date" json:"endDate"`
	Category    Category `yaml:"type" json:"type"`
	Description string   `yaml:"description" json:"description"`
}

// MultiDay reports whether the event spans more than one date.
func (e Event) MultiDay() bool { return !e.StartDate.Equal(e.EndDate) }

// Covers reports whether d falls inside the event's inclusive range.
func (e Event) Covers(d Date) bool { return d.Within(e.StartDate, e.EndDate) }

// ImportantDate is a quick-reference entry maintained independently of the
// event table.
type ImportantDate struct {
	Title    string   `yaml:"title" json:"title"`
	Date     Date     `yaml:"date" json:"date"`
	Category Category `yaml:"type" json:"type"`
}

// Document describes an externally hosted calendar document (usually a
// PDF). Its contents are never parsed.
type Document struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	URL         string `yaml:"url" json:"url"`
	LastUpdated Date   `yaml:"last_updated" json:"lastUpdated"`
}

// User is the signed-in profile persisted in the session store.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture,omitempty"`
	Domain    string    `json:"domain,omitempty"`
	LoginTime time.Time `json:"loginTime"`
}

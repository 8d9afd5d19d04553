// Package configdoc is the persisted layout document that tells the resolver
// where periods, metrics and categories live in a company's workbook, plus
// the merge engine every editor writes through.
package configdoc

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"

	"ReportMapper/internal/mapping"
)

// Kind is the statement type a configuration describes.
type Kind string

const (
	KindCashflow Kind = "cashflow"
	KindPnL      Kind = "pnl"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCashflow || k == KindPnL
}

// Sections returns the category sections a kind starts with.
func (k Kind) Sections() []string {
	switch k {
	case KindCashflow:
		return []string{"inflows", "outflows"}
	case KindPnL:
		return []string{"revenue", "costOfSales", "operatingExpenses", "otherIncome", "otherExpenses", "taxes"}
	}
	return nil
}

// Category maps a category to its row and its subcategories to theirs.
type Category struct {
	Row           *int           `json:"row,omitempty" yaml:"row,omitempty"`
	Subcategories map[string]int `json:"subcategories,omitempty" yaml:"subcategories,omitempty"`
}

// Section is one group of categories, e.g. "revenue" or "outflows".
type Section map[string]Category

// Structure locates data inside the sheet.
type Structure struct {
	SheetName     string             `json:"sheetName,omitempty" yaml:"sheetName,omitempty"`
	PeriodsRange  string             `json:"periodsRange" yaml:"periodsRange"`
	PeriodMapping mapping.Mapping    `json:"periodMapping,omitempty" yaml:"periodMapping,omitempty"`
	VoidedColumns []string           `json:"voidedColumns,omitempty" yaml:"voidedColumns,omitempty"`
	DataRows      map[string]int     `json:"dataRows" yaml:"dataRows"`
	Categories    map[string]Section `json:"categories" yaml:"categories"`
}

// Configuration is the whole document. It is replaced, never patched: every
// edit produces a new value through Merge.
type Configuration struct {
	ID          string            `json:"id" yaml:"id"`
	CompanyID   string            `json:"companyId,omitempty" yaml:"companyId,omitempty"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Type        Kind              `json:"type" yaml:"type"`
	Version     int               `json:"version" yaml:"version"`
	IsActive    bool              `json:"isActive" yaml:"isActive"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Structure   *Structure        `json:"structure" yaml:"structure"`
	CreatedAt   string            `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt   string            `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// New returns an active version-1 document with empty sections for kind.
func New(kind Kind, name string, now time.Time) *Configuration {
	c := &Configuration{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      kind,
		Version:   1,
		IsActive:  true,
		CreatedAt: now.UTC().Format(time.RFC3339),
		UpdatedAt: now.UTC().Format(time.RFC3339),
	}
	ensure(c)
	return c
}

// Clone deep-copies c. A nil input yields nil.
func Clone(c *Configuration) *Configuration {
	if c == nil {
		return nil
	}
	return cloneValue(c)
}

func cloneValue[T any](v T) T {
	var out T
	if err := deepcopy.Copy(&out, v); err == nil {
		return out
	}
	// deepcopy refuses only exotic types; a JSON round trip covers the rest
	raw, err := json.Marshal(v)
	if err != nil {
		return out
	}
	var fallback T
	_ = json.Unmarshal(raw, &fallback)
	return fallback
}

// ensure fills missing subtrees with empty defaults for the document's kind.
func ensure(c *Configuration) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]string)
	}
	if c.Structure == nil {
		c.Structure = &Structure{}
	}
	s := c.Structure
	if s.DataRows == nil {
		s.DataRows = make(map[string]int)
	}
	if s.Categories == nil {
		s.Categories = make(map[string]Section)
	}
	for _, name := range c.Type.Sections() {
		if s.Categories[name] == nil {
			s.Categories[name] = Section{}
		}
	}
}

// NextVersion is the document as saved: version bumped, timestamp refreshed.
func NextVersion(c *Configuration, now time.Time) *Configuration {
	out := Clone(c)
	if out == nil {
		out = &Configuration{}
	}
	ensure(out)
	out.Version++
	out.UpdatedAt = now.UTC().Format(time.RFC3339)
	return out
}

// Deactivate retires the document. Nothing is ever physically deleted.
func Deactivate(c *Configuration, now time.Time) *Configuration {
	out := Clone(c)
	if out == nil {
		out = &Configuration{}
	}
	ensure(out)
	out.IsActive = false
	out.UpdatedAt = now.UTC().Format(time.RFC3339)
	return out
}

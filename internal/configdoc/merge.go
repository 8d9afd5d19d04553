package configdoc

import (
	"ReportMapper/internal/mapping"
)

// Target names the subtree an Update replaces.
type Target string

const (
	TargetName          Target = "name"
	TargetDescription   Target = "description"
	TargetMetadata      Target = "metadata"
	TargetCategories    Target = "categories"
	TargetPeriodMapping Target = "periodMapping"
	TargetPeriodsRange  Target = "periodsRange"
	TargetDataRows      Target = "dataRows"
	TargetVoidedColumns Target = "voidedColumns"
	TargetSheetName     Target = "sheetName"
)

// Update replaces one whole subtree. Only the field matching Target is read;
// Text carries name, description, periodsRange and sheetName.
type Update struct {
	Target        Target            `json:"target"`
	Section       string            `json:"section,omitempty"`
	Text          string            `json:"text,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Categories    Section           `json:"categories,omitempty"`
	PeriodMapping mapping.Mapping   `json:"periodMapping,omitempty"`
	DataRows      map[string]int    `json:"dataRows,omitempty"`
	VoidedColumns []string          `json:"voidedColumns,omitempty"`
}

func SetName(name string) Update { return Update{Target: TargetName, Text: name} }

func SetDescription(d string) Update { return Update{Target: TargetDescription, Text: d} }

func SetMetadata(md map[string]string) Update { return Update{Target: TargetMetadata, Metadata: md} }

func SetCategories(section string, s Section) Update {
	return Update{Target: TargetCategories, Section: section, Categories: s}
}

func SetPeriodMapping(m mapping.Mapping) Update {
	return Update{Target: TargetPeriodMapping, PeriodMapping: m}
}

func SetPeriodsRange(r string) Update { return Update{Target: TargetPeriodsRange, Text: r} }

func SetDataRows(rows map[string]int) Update { return Update{Target: TargetDataRows, DataRows: rows} }

func SetVoidedColumns(cols []string) Update {
	return Update{Target: TargetVoidedColumns, VoidedColumns: cols}
}

func SetSheetName(name string) Update { return Update{Target: TargetSheetName, Text: name} }

// Merge deep-clones current, replaces the subtree named by u and returns the
// clone. current is never modified. Missing subtrees are initialized rather
// than treated as errors; an unknown target leaves the clone as is.
//
// Merges are last-write-wins per subtree, so callers must pass the latest
// document as current.
func Merge(current *Configuration, u Update) *Configuration {
	next := Clone(current)
	if next == nil {
		next = &Configuration{}
	}
	ensure(next)
	s := next.Structure

	switch u.Target {
	case TargetName:
		next.Name = u.Text
	case TargetDescription:
		next.Description = u.Text
	case TargetMetadata:
		next.Metadata = cloneValue(u.Metadata)
		if next.Metadata == nil {
			next.Metadata = make(map[string]string)
		}
	case TargetCategories:
		if u.Section == "" {
			break
		}
		section := cloneValue(u.Categories)
		if section == nil {
			section = Section{}
		}
		s.Categories[u.Section] = section
	case TargetPeriodMapping:
		s.PeriodMapping = u.PeriodMapping.Clone()
	case TargetPeriodsRange:
		s.PeriodsRange = u.Text
	case TargetDataRows:
		s.DataRows = cloneValue(u.DataRows)
		if s.DataRows == nil {
			s.DataRows = make(map[string]int)
		}
	case TargetVoidedColumns:
		s.VoidedColumns = append([]string(nil), u.VoidedColumns...)
	case TargetSheetName:
		s.SheetName = u.Text
	}
	return next
}

// MergeAll folds updates left to right.
func MergeAll(current *Configuration, updates ...Update) *Configuration {
	next := Clone(current)
	if next == nil {
		next = &Configuration{}
	}
	ensure(next)
	for _, u := range updates {
		next = Merge(next, u)
	}
	return next
}

package csvdrop

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mezze/backend/internal/domain/ingestion"
)

// Every CSV format that lands in the drop folder is described by one YAML
// mapping file. The mapping declares how source columns become canonical
// field keys, which rows to skip, and when to stop reading. Adding a new
// upstream export is a new mapping file, not new code.

// ColumnRule maps one source column to a canonical field
type ColumnRule struct {
	// Source is the header name, or a zero-based column index as digits
	Source string `yaml:"source"`
	// Target is the canonical field key the value lands under
	Target string `yaml:"target"`
	// Type drives light cleanup: string, date, currency
	Type string `yaml:"type"`
	// Format is the date layout when Type is date, Go reference time
	Format string `yaml:"format"`
	// Default fills in when the cell is empty
	Default string `yaml:"default"`
	// Required rejects the row when the value is still empty
	Required bool `yaml:"required"`
	// Transform names a registered string transform
	Transform string `yaml:"transform"`
	// Regex extracts capture group 1 before the transform runs
	Regex string `yaml:"regex"`
	// StripChars are removed from the raw value first
	StripChars string `yaml:"strip_chars"`

	regex *regexp.Regexp
}

// Mapping is one parsed YAML mapping file
type Mapping struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// FilePattern is a glob matched against dropped file names,
	// case-insensitive. Defaults to "<name>*.csv".
	FilePattern string `yaml:"file_pattern"`

	Delimiter string `yaml:"delimiter"`
	// SkipRows are dropped from the top of the file before anything else
	SkipRows int `yaml:"skip_rows"`
	// HeaderRow indexes the header within the remaining rows; nil means
	// the first row
	HeaderRow *int `yaml:"header_row"`

	Columns []ColumnRule `yaml:"columns"`

	// SkipPatterns drop matching rows (subtotals, page footers)
	SkipPatterns []string `yaml:"skip_patterns"`
	// StopPattern ends the file early (grand-total sections)
	StopPattern string `yaml:"stop_pattern"`

	// RequiredColumns must exist in the header or the file is rejected
	RequiredColumns []string `yaml:"required_columns"`

	skipPatterns []*regexp.Regexp
	stopPattern  *regexp.Regexp
}

// canonicalTargets are the field keys a mapping may emit into
var canonicalTargets = map[string]bool{
	ingestion.FieldAccount:     true,
	ingestion.FieldProduct:     true,
	ingestion.FieldQuantity:    true,
	ingestion.FieldUnit:        true,
	ingestion.FieldOrderDate:   true,
	ingestion.FieldWindowStart: true,
	ingestion.FieldWindowEnd:   true,
	ingestion.FieldDayOfWeek:   true,
	ingestion.FieldPONumber:    true,
	ingestion.FieldUnitPrice:   true,
	ingestion.FieldAmount:      true,
	ingestion.FieldInvoiceNo:   true,
	ingestion.FieldPaymentRef:  true,
	ingestion.FieldStatus:      true,
	ingestion.FieldRemark:      true,
}

// LoadMapping reads and validates one YAML mapping file
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read mapping %s: %v", ingestion.ErrSourceFormat, filepath.Base(path), err)
	}
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse mapping %s: %v", ingestion.ErrSourceFormat, filepath.Base(path), err)
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if m.Delimiter == "" {
		m.Delimiter = ","
	}
	if m.FilePattern == "" {
		m.FilePattern = m.Name + "*.csv"
	}
	if err := m.compile(); err != nil {
		return nil, fmt.Errorf("%w: mapping %s: %v", ingestion.ErrSourceFormat, m.Name, err)
	}
	return &m, nil
}

// LoadMappingDir loads every *.yml / *.yaml mapping in a directory,
// sorted by name for stable matching order.
func LoadMappingDir(dir string) ([]*Mapping, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: mapping dir %s: %v", ingestion.ErrSourceUnavailable, dir, err)
	}
	var mappings []*Mapping
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		m, err := LoadMapping(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].Name < mappings[j].Name })
	return mappings, nil
}

func (m *Mapping) compile() error {
	if len(m.Columns) == 0 {
		return fmt.Errorf("no column rules")
	}
	if len(m.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", m.Delimiter)
	}
	seen := map[string]bool{}
	for i := range m.Columns {
		col := &m.Columns[i]
		if col.Source == "" || col.Target == "" {
			return fmt.Errorf("column %d: source and target are required", i)
		}
		if !canonicalTargets[col.Target] {
			return fmt.Errorf("column %q: unknown target field %q", col.Source, col.Target)
		}
		if seen[col.Target] {
			return fmt.Errorf("duplicate target field %q", col.Target)
		}
		seen[col.Target] = true
		if col.Transform != "" {
			if _, ok := transforms[col.Transform]; !ok {
				return fmt.Errorf("column %q: unknown transform %q", col.Source, col.Transform)
			}
		}
		if col.Regex != "" {
			re, err := regexp.Compile(col.Regex)
			if err != nil {
				return fmt.Errorf("column %q: bad regex: %v", col.Source, err)
			}
			if re.NumSubexp() < 1 {
				return fmt.Errorf("column %q: regex needs a capture group", col.Source)
			}
			col.regex = re
		}
		switch col.Type {
		case "", "string", "date", "currency":
		default:
			return fmt.Errorf("column %q: unknown type %q", col.Source, col.Type)
		}
	}
	for _, p := range m.SkipPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return fmt.Errorf("bad skip pattern %q: %v", p, err)
		}
		m.skipPatterns = append(m.skipPatterns, re)
	}
	if m.StopPattern != "" {
		re, err := regexp.Compile("(?i)" + m.StopPattern)
		if err != nil {
			return fmt.Errorf("bad stop pattern %q: %v", m.StopPattern, err)
		}
		m.stopPattern = re
	}
	return nil
}

// Matches reports whether a dropped file name belongs to this mapping
func (m *Mapping) Matches(name string) bool {
	ok, err := filepath.Match(strings.ToLower(m.FilePattern), strings.ToLower(name))
	return err == nil && ok
}

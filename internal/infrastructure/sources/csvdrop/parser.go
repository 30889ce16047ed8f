package csvdrop

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mezze/backend/internal/domain/ingestion"
)

// parseFile applies a mapping to the raw content of one dropped file and
// emits a record per usable data row. The error return means the file as
// a whole is unusable (missing headers, unreadable CSV); anything
// recoverable per row lands in the report.
func parseFile(m *Mapping, fileName, content string, window ingestion.Window, fetchedAt time.Time) ([]ingestion.RawRecord, ingestion.FetchReport, error) {
	var report ingestion.FetchReport

	content = strings.TrimPrefix(content, "\ufeff")
	lines := splitLines(content)
	if m.SkipRows >= len(lines) {
		return nil, report, nil
	}
	lines = lines[m.SkipRows:]

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.Comma = rune(m.Delimiter[0])
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, report, fmt.Errorf("%w: %s: %v", ingestion.ErrSourceFormat, fileName, err)
	}
	if len(rows) == 0 {
		return nil, report, nil
	}

	headerIdx := 0
	if m.HeaderRow != nil {
		headerIdx = *m.HeaderRow
	}
	if headerIdx >= len(rows) {
		return nil, report, fmt.Errorf("%w: %s: header row %d past end of file", ingestion.ErrSourceFormat, fileName, headerIdx)
	}
	headers := map[string]int{}
	for i, h := range rows[headerIdx] {
		headers[strings.TrimSpace(h)] = i
	}
	for _, req := range m.RequiredColumns {
		if _, ok := headers[req]; !ok {
			return nil, report, fmt.Errorf("%w: %s: missing required column %q", ingestion.ErrSourceFormat, fileName, req)
		}
	}

	var records []ingestion.RawRecord
	for i, row := range rows[headerIdx+1:] {
		// physical line number in the dropped file, 1-based
		rowNum := m.SkipRows + headerIdx + i + 2
		joined := strings.Join(row, string(reader.Comma))

		if m.stopPattern != nil && m.stopPattern.MatchString(joined) {
			break
		}
		if blankRow(row) {
			report.Skipped++
			continue
		}
		skip := false
		for _, p := range m.skipPatterns {
			if p.MatchString(joined) {
				skip = true
				break
			}
		}
		if skip {
			report.Skipped++
			continue
		}

		fields, ok := applyRules(m, headers, row, fileName, rowNum, &report)
		if !ok {
			continue
		}
		if !inWindow(fields, window) {
			report.Skipped++
			continue
		}

		records = append(records, ingestion.RawRecord{
			SourceCode: ingestion.SourceCodeCSVDrop,
			SourceRef:  fmt.Sprintf("%s:%d", fileName, rowNum),
			Fields:     fields,
			Provenance: map[string]string{
				"file":    fileName,
				"row":     strconv.Itoa(rowNum),
				"mapping": m.Name,
			},
			FetchedAt: fetchedAt,
		})
		report.Fetched++
	}
	return records, report, nil
}

// applyRules runs every column rule against one row. A missing required
// value rejects the row; everything else degrades to a warning.
func applyRules(m *Mapping, headers map[string]int, row []string, fileName string, rowNum int, report *ingestion.FetchReport) (map[string]string, bool) {
	fields := make(map[string]string, len(m.Columns))
	for _, rule := range m.Columns {
		value := sourceValue(rule.Source, headers, row)

		if value != "" && rule.StripChars != "" {
			for _, c := range rule.StripChars {
				value = strings.ReplaceAll(value, string(c), "")
			}
		}
		if value != "" && rule.regex != nil {
			if match := rule.regex.FindStringSubmatch(value); match != nil {
				value = match[1]
			} else {
				value = ""
			}
		}
		if value != "" && rule.Transform != "" {
			value = transforms[rule.Transform](value)
		}
		if value != "" {
			reshaped, ok := reshapeValue(value, rule)
			if !ok {
				report.AddWarning("%s row %d: unreadable %s value %q", fileName, rowNum, rule.Target, value)
			}
			value = reshaped
		}
		if value == "" {
			value = rule.Default
		}
		if value == "" {
			if rule.Required {
				report.AddError("%s row %d: missing required field %s (column %s)", fileName, rowNum, rule.Target, rule.Source)
				return nil, false
			}
			continue
		}
		fields[rule.Target] = value
	}
	return fields, true
}

// sourceValue resolves a rule's source against the row: a digit string is
// a column index, otherwise an exact header name, falling back to a
// case-insensitive substring match.
func sourceValue(source string, headers map[string]int, row []string) string {
	if idx, err := strconv.Atoi(source); err == nil {
		if idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}
	if idx, ok := headers[source]; ok {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}
	lower := strings.ToLower(source)
	for h, idx := range headers {
		if strings.Contains(strings.ToLower(h), lower) && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
	}
	return ""
}

// inWindow filters on the order date when the mapping emits one. Rows
// without a parseable date pass through; the pipeline decides their fate.
func inWindow(fields map[string]string, window ingestion.Window) bool {
	if window.IsZero() {
		return true
	}
	raw, ok := fields[ingestion.FieldOrderDate]
	if !ok {
		return true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return true
	}
	return window.Contains(t)
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(content, "\n")
}

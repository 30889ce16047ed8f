package sheets

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mezze/backend/internal/domain/ingestion"
)

// A weekly order tab is five daily tables stacked vertically, each one a
// date-range header, a unit row, a day header, customer rows, and a TOTALS
// row, with a production lot-code section at the bottom that ends the
// order data. The parser walks the rows as a small state machine.

type rowKind int

const (
	rowEmpty rowKind = iota
	rowDateRange
	rowDayHeader
	rowTotals
	rowLotSection
	rowProductionMeta
	rowData
)

var (
	dayHeaderPattern     = regexp.MustCompile(`(?i)^(Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday)\s*$`)
	dateRangePattern     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})\s*[-–]\s*(\d{1,2})/(\d{1,2})/(\d{2,4})`)
	totalsPattern        = regexp.MustCompile(`(?i)^TOTALS?$`)
	lotSectionPattern    = regexp.MustCompile(`(?i)^Production Lot Code`)
	productionMetaPrefix = regexp.MustCompile(`(?i)^(Production Date|Lot Number|Expiration)`)
)

// errorTokens are spreadsheet evaluation failures; the cell carries no
// order data and is skipped with a warning.
var errorTokens = map[string]bool{
	"#REF!":   true,
	"#N/A":    true,
	"#VALUE!": true,
	"#DIV/0!": true,
}

// knownProducts is the sheet's product vocabulary, longest names first so
// "HARRA HUMMUS" never matches as "HARRA".
var knownProducts = []string{
	"HARRA HUMMUS",
	"BASAL LABNEH",
	"MAMA CHIPS",
	"MUHAMMARA",
	"HUMMUS",
	"LABNEH",
	"HARRA",
	"BABA",
}

// productColumns maps one product header to its CASE and EACH quantity
// columns. A column index of -1 means the unit is not offered.
type productColumns struct {
	product string
	caseCol int
	eachCol int
}

func classifyRow(row []string) rowKind {
	if len(row) == 0 {
		return rowEmpty
	}
	first := strings.TrimSpace(row[0])
	if first == "" {
		for _, cell := range row[1:] {
			if strings.TrimSpace(cell) != "" {
				return rowData
			}
		}
		return rowEmpty
	}

	switch {
	case dayHeaderPattern.MatchString(first):
		return rowDayHeader
	case dateRangePattern.MatchString(first):
		return rowDateRange
	case totalsPattern.MatchString(first):
		return rowTotals
	case lotSectionPattern.MatchString(first):
		return rowLotSection
	case productionMetaPrefix.MatchString(first):
		return rowProductionMeta
	}
	return rowData
}

// parseDateRange reads a "01/12/26 - 01/16/26" header into week bounds.
// Two-digit years are 2000-based.
func parseDateRange(s string) (time.Time, time.Time, bool) {
	m := dateRangePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, time.Time{}, false
	}

	nums := make([]int, 6)
	for i := range nums {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		nums[i] = n
	}
	y1, y2 := nums[2], nums[5]
	if y1 < 100 {
		y1 += 2000
	}
	if y2 < 100 {
		y2 += 2000
	}

	start := time.Date(y1, time.Month(nums[0]), nums[1], 0, 0, 0, 0, time.UTC)
	end := time.Date(y2, time.Month(nums[3]), nums[4], 0, 0, 0, 0, time.UTC)
	if start.Month() != time.Month(nums[0]) || end.Month() != time.Month(nums[3]) || end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// matchProduct finds the known product a header cell names, exact match
// preferred over contains
func matchProduct(cell string) string {
	v := strings.ToUpper(strings.TrimSpace(cell))
	if v == "" {
		return ""
	}
	for _, prod := range knownProducts {
		if v == prod {
			return prod
		}
	}
	for _, prod := range knownProducts {
		if strings.Contains(v, prod) || strings.Contains(prod, v) {
			return prod
		}
	}
	return ""
}

// extractProductColumns pairs each product named in the header row with
// the CASE/EACH columns the unit row declares beneath or beside it
func extractProductColumns(headerRow, unitRow []string) []productColumns {
	var products []productColumns
	claimed := make(map[int]bool)

	for colIdx, cell := range headerRow {
		if claimed[colIdx] {
			continue
		}
		product := matchProduct(cell)
		if product == "" {
			continue
		}

		caseCol, eachCol := -1, -1
		for offset := 0; offset < 3; offset++ {
			check := colIdx + offset
			if check >= len(unitRow) || claimed[check] {
				continue
			}
			unit := strings.ToUpper(strings.TrimSpace(unitRow[check]))
			switch {
			case strings.Contains(unit, "CASE") && caseCol < 0:
				caseCol = check
			case strings.Contains(unit, "EACH") && eachCol < 0:
				eachCol = check
			}
		}
		if caseCol < 0 && eachCol < 0 {
			continue
		}

		products = append(products, productColumns{product: product, caseCol: caseCol, eachCol: eachCol})
		claimed[colIdx] = true
		if caseCol >= 0 {
			claimed[caseCol] = true
		}
		if eachCol >= 0 {
			claimed[eachCol] = true
		}
	}
	return products
}

// skipTokens are structural labels that sometimes bleed into quantity
// columns; a cell containing one is noise, not data
var skipTokens = []string{
	"TOTAL", "CASE", "EACH", "HUMMUS", "HARRA", "LABNEH", "BABA", "MUHAMMARA",
	"PSFH", "MET", "PCC", "RESTAURANT", "PRODUCTION", "LOT", "EXPIRATION",
}

type cellVerdict int

const (
	cellEmit cellVerdict = iota
	cellEmpty
	cellErrorToken
	cellStructural
	cellUnreadable
	cellNonPositive
)

// probeQuantity decides whether a cell holds an order quantity worth
// emitting. The value itself travels raw; real parsing happens in the
// pipeline.
func probeQuantity(raw string) cellVerdict {
	v := strings.TrimSpace(raw)
	if v == "" {
		return cellEmpty
	}
	if errorTokens[v] {
		return cellErrorToken
	}
	upper := strings.ToUpper(v)
	for _, token := range skipTokens {
		if strings.Contains(upper, token) {
			return cellStructural
		}
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(v, "#", "")), 64)
	if err != nil {
		return cellUnreadable
	}
	if n <= 0 {
		return cellNonPositive
	}
	return cellEmit
}

// colLetter converts a 0-based column index to its A1 letter
func colLetter(idx int) string {
	result := ""
	for idx >= 0 {
		result = string(rune('A'+idx%26)) + result
		idx = idx/26 - 1
	}
	return result
}

// refSlug flattens a product name into a source-ref fragment
func refSlug(product string) string {
	return strings.ReplaceAll(product, " ", "-")
}

// titleDay canonicalizes a weekday header cell ("MONDAY " -> "Monday")
func titleDay(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return ""
	}
	return strings.ToUpper(v[:1]) + v[1:]
}

// parseTab walks one weekly tab and emits a raw record per populated
// quantity cell. The fulfillment window and the weekday ride along as
// fields; the cell's A1 address goes into provenance.
func parseTab(tab string, rows [][]string, window ingestion.Window, fetchedAt time.Time) ([]ingestion.RawRecord, ingestion.FetchReport) {
	var (
		records []ingestion.RawRecord
		report  ingestion.FetchReport

		weekStart, weekEnd time.Time
		currentDay         string
		products           []productColumns
		inDayBlock         bool
	)

	emitCell := func(rowNum int, row []string, account string, pc productColumns, col int, unit string) {
		if col < 0 || col >= len(row) {
			return
		}
		raw := strings.TrimSpace(row[col])
		if raw == "" {
			return
		}
		cell := fmt.Sprintf("%s%d", colLetter(col), rowNum)

		switch probeQuantity(raw) {
		case cellEmit:
		case cellErrorToken:
			report.Skipped++
			report.AddWarning("%s!%s: spreadsheet error token %s (%s %s for %s)", tab, cell, raw, pc.product, unit, account)
			return
		case cellUnreadable:
			report.Skipped++
			report.AddWarning("%s!%s: unreadable quantity %q (%s %s for %s)", tab, cell, raw, pc.product, unit, account)
			return
		default:
			report.Skipped++
			return
		}
		if !window.Contains(weekStart) {
			report.Skipped++
			return
		}

		_, week := weekStart.ISOWeek()
		records = append(records, ingestion.RawRecord{
			SourceCode: ingestion.SourceCodeMezze,
			SourceRef:  fmt.Sprintf("W%02d-%d-%s-%s", week, rowNum, refSlug(pc.product), unit),
			Fields: map[string]string{
				ingestion.FieldAccount:     account,
				ingestion.FieldProduct:     pc.product,
				ingestion.FieldQuantity:    raw,
				ingestion.FieldUnit:        unit,
				ingestion.FieldWindowStart: weekStart.Format("2006-01-02"),
				ingestion.FieldWindowEnd:   weekEnd.Format("2006-01-02"),
				ingestion.FieldDayOfWeek:   currentDay,
			},
			Provenance: map[string]string{
				"tab":  tab,
				"cell": cell,
			},
			FetchedAt: fetchedAt,
		})
		report.Fetched++
	}

	for rowIdx, row := range rows {
		rowNum := rowIdx + 1

		switch classifyRow(row) {
		case rowLotSection:
			// Order data ends where the lot-code section begins
			return records, report

		case rowDateRange:
			start, end, ok := parseDateRange(row[0])
			if !ok {
				report.AddWarning("%s row %d: unreadable date range %q", tab, rowNum, strings.TrimSpace(row[0]))
				continue
			}
			weekStart, weekEnd = start, end
			if rowIdx+1 < len(rows) {
				products = extractProductColumns(row, rows[rowIdx+1])
			}
			if len(products) == 0 {
				report.AddWarning("%s row %d: no product columns under date range", tab, rowNum)
			}

		case rowDayHeader:
			currentDay = titleDay(row[0])
			inDayBlock = true

		case rowTotals:
			inDayBlock = false

		case rowData:
			if !inDayBlock || weekStart.IsZero() {
				continue
			}
			account := strings.TrimSpace(row[0])
			if account == "" {
				continue
			}
			for _, pc := range products {
				emitCell(rowNum, row, account, pc, pc.caseCol, "CASE")
				emitCell(rowNum, row, account, pc, pc.eachCol, "EACH")
			}
		}
	}
	return records, report
}

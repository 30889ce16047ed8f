package mail

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mezze/backend/internal/domain/ingestion"
)

// Order mail arrives in two shapes: portal notifications with an HTML
// line-item table, and plain-text orders typed by a buyer. The extractor
// tries the table first and falls back to line scanning; a message that
// yields neither but names an invoice still produces one invoice record.

var (
	subjectPOPattern  = regexp.MustCompile(`(?i)\bPO\s*#?\s*([A-Za-z0-9][\w-]*)`)
	invoicePattern    = regexp.MustCompile(`(?i)\binvoice\s*#?\s*([A-Za-z0-9][\w-]*)`)
	amountDuePattern  = regexp.MustCompile(`(?i)\b(?:amount due|total due|balance due|total)\s*:?\s*\$?\s*([\d,]+(?:\.\d+)?)`)
	paymentRefPattern = regexp.MustCompile(`(?i)\b(?:check|cheque|ach)\s*#?\s*([\w-]+)`)

	// "3 cs Hummus 16oz", "12 ea Labneh", "12# Mama Chips"
	qtyFirstLine = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*(cs|cases?|ea|each|#|lbs?)\s+([A-Za-z].*?)\s*$`)
	// "Hummus 16oz x 3"
	qtyLastLine = regexp.MustCompile(`(?i)^\s*([A-Za-z].*?)\s+x\s*(\d+(?:\.\d+)?)\s*$`)
)

// columnSynonyms maps line-item table headers to canonical fields
var columnSynonyms = map[string]string{
	"item":        ingestion.FieldProduct,
	"product":     ingestion.FieldProduct,
	"description": ingestion.FieldProduct,
	"qty":         ingestion.FieldQuantity,
	"quantity":    ingestion.FieldQuantity,
	"unit":        ingestion.FieldUnit,
	"uom":         ingestion.FieldUnit,
	"unit price":  ingestion.FieldUnitPrice,
	"price":       ingestion.FieldUnitPrice,
	"rate":        ingestion.FieldUnitPrice,
	"amount":      ingestion.FieldAmount,
	"total":       ingestion.FieldAmount,
	"ext":         ingestion.FieldAmount,
}

// Extractor shapes fetched messages into raw records for one source
type Extractor struct {
	source ingestion.SourceCode
}

// NewExtractor creates an extractor emitting under the given source code
func NewExtractor(source ingestion.SourceCode) *Extractor {
	return &Extractor{source: source}
}

// Extract pulls every order observation out of one message. Records share
// the message's identity; a message with several line items gets an
// ordinal suffix per item so each keeps a distinct source ref.
func (e *Extractor) Extract(msg Message, fetchedAt time.Time) ([]ingestion.RawRecord, ingestion.FetchReport) {
	var report ingestion.FetchReport

	base := map[string]string{}
	if name := SenderName(msg.From); name != "" {
		base[ingestion.FieldAccount] = name
	}
	if !msg.Date.IsZero() {
		base[ingestion.FieldOrderDate] = msg.Date.UTC().Format("2006-01-02")
	}
	if m := subjectPOPattern.FindStringSubmatch(msg.Subject); m != nil {
		base[ingestion.FieldPONumber] = m[1]
	}
	if m := invoicePattern.FindStringSubmatch(msg.Subject); m != nil {
		base[ingestion.FieldInvoiceNo] = m[1]
	}

	var items []map[string]string
	if msg.BodyHTML != "" {
		parsed, err := e.tableItems(msg.BodyHTML)
		if err != nil {
			report.AddWarning("message %s: unreadable html body: %v", msg.ID, err)
		} else {
			items = parsed
		}
	}
	if len(items) == 0 && msg.BodyText != "" {
		items = e.textItems(msg.BodyText)
	}

	body := msg.BodyText
	if body == "" {
		body = msg.BodyHTML
	}
	if len(items) == 0 {
		// invoice and payment notices carry no line items
		inv := base[ingestion.FieldInvoiceNo]
		if inv == "" {
			if m := invoicePattern.FindStringSubmatch(body); m != nil {
				inv = m[1]
			}
		}
		if inv != "" {
			item := map[string]string{ingestion.FieldInvoiceNo: inv}
			if m := amountDuePattern.FindStringSubmatch(body); m != nil {
				item[ingestion.FieldAmount] = strings.ReplaceAll(m[1], ",", "")
			}
			if m := paymentRefPattern.FindStringSubmatch(body); m != nil {
				item[ingestion.FieldPaymentRef] = m[1]
			}
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		report.AddWarning("message %s: no order data recognized (%q)", msg.ID, msg.Subject)
		return nil, report
	}

	records := make([]ingestion.RawRecord, 0, len(items))
	for i, item := range items {
		fields := make(map[string]string, len(base)+len(item))
		for k, v := range base {
			fields[k] = v
		}
		for k, v := range item {
			fields[k] = v
		}
		ref := msg.ID
		if len(items) > 1 {
			ref = fmt.Sprintf("%s-%d", msg.ID, i+1)
		}
		records = append(records, ingestion.RawRecord{
			SourceCode: e.source,
			SourceRef:  ref,
			Fields:     fields,
			Provenance: map[string]string{
				"message_id": msg.ID,
				"subject":    msg.Subject,
				"item":       strconv.Itoa(i + 1),
			},
			FetchedAt: fetchedAt,
		})
		report.Fetched++
	}
	return records, report
}

// tableItems reads the first HTML table whose header row names a product
// and a quantity column. Anything else in the body (logos, footers,
// layout tables) is ignored.
func (e *Extractor) tableItems(html string) ([]map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var items []map[string]string
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return true
		}
		columns := headerColumns(rows.First())
		if columns[ingestion.FieldProduct] < 0 || columns[ingestion.FieldQuantity] < 0 {
			return true
		}
		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th").Map(func(_ int, c *goquery.Selection) string {
				return strings.TrimSpace(c.Text())
			})
			item := map[string]string{}
			for field, idx := range columns {
				if idx >= 0 && idx < len(cells) && cells[idx] != "" {
					item[field] = cells[idx]
				}
			}
			product := item[ingestion.FieldProduct]
			if product == "" || strings.EqualFold(product, "total") {
				return
			}
			items = append(items, item)
		})
		return false
	})
	return items, nil
}

// headerColumns maps canonical fields to cell indexes in a header row,
// -1 when the table has no such column
func headerColumns(header *goquery.Selection) map[string]int {
	columns := map[string]int{
		ingestion.FieldProduct:   -1,
		ingestion.FieldQuantity:  -1,
		ingestion.FieldUnit:      -1,
		ingestion.FieldUnitPrice: -1,
		ingestion.FieldAmount:    -1,
	}
	header.Find("td, th").Each(func(i int, cell *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(cell.Text()))
		if field, ok := columnSynonyms[text]; ok && columns[field] < 0 {
			columns[field] = i
		}
	})
	return columns
}

// textItems scans a plain-text body for order lines
func (e *Extractor) textItems(body string) []map[string]string {
	var items []map[string]string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line == "" {
			continue
		}
		if m := qtyFirstLine.FindStringSubmatch(line); m != nil {
			quantity := m[1] + " " + m[2]
			if m[2] == "#" {
				quantity = m[1] + "#"
			}
			items = append(items, map[string]string{
				ingestion.FieldProduct:  strings.TrimSpace(m[3]),
				ingestion.FieldQuantity: quantity,
			})
			continue
		}
		if m := qtyLastLine.FindStringSubmatch(line); m != nil {
			items = append(items, map[string]string{
				ingestion.FieldProduct:  strings.TrimSpace(m[1]),
				ingestion.FieldQuantity: m[2],
			})
		}
	}
	return items
}

package ingestion

// SourceCode identifies one configured upstream source
type SourceCode string

const (
	// SourceCodeMezze is the weekly order workbook on Google Sheets
	SourceCodeMezze SourceCode = "mezze"
	// SourceCodeCSVDrop is the mapped CSV drop directory
	SourceCodeCSVDrop SourceCode = "csv-drop"
	// SourceCodeGmail is the order-email Gmail label
	SourceCodeGmail SourceCode = "gmail"
	// SourceCodeMboxArchive is the exported mbox mail archive
	SourceCodeMboxArchive SourceCode = "mbox-archive"
)

// IsValid returns true if the source code is valid
func (c SourceCode) IsValid() bool {
	switch c {
	case SourceCodeMezze, SourceCodeCSVDrop, SourceCodeGmail, SourceCodeMboxArchive:
		return true
	default:
		return false
	}
}

// String returns the string representation of SourceCode
func (c SourceCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the source
func (c SourceCode) DisplayName() string {
	switch c {
	case SourceCodeMezze:
		return "Mezze Weekly Order Sheet"
	case SourceCodeCSVDrop:
		return "CSV Drop Folder"
	case SourceCodeGmail:
		return "Gmail Order Mailbox"
	case SourceCodeMboxArchive:
		return "Mbox Mail Archive"
	default:
		return string(c)
	}
}

// AllSourceCodes returns every known source code
func AllSourceCodes() []SourceCode {
	return []SourceCode{SourceCodeMezze, SourceCodeCSVDrop, SourceCodeGmail, SourceCodeMboxArchive}
}

// Canonical raw-field keys. Drivers emit these names in RawRecord.Fields
// regardless of what the upstream calls its columns; the pipeline parses
// only these.
const (
	FieldAccount     = "account"      // observed account name, resolver input
	FieldProduct     = "product"      // observed product name or SKU, resolver input
	FieldQuantity    = "quantity"     // e.g. "12 ea", "3 cs", "12#"
	FieldUnit        = "unit"         // explicit unit when split from quantity
	FieldOrderDate   = "order_date"   // order or delivery date
	FieldWindowStart = "window_start" // fulfillment window start (weekly sheets)
	FieldWindowEnd   = "window_end"   // fulfillment window end
	FieldDayOfWeek   = "day_of_week"  // weekday header the cell sat under
	FieldPONumber    = "po_number"    // purchase order reference
	FieldUnitPrice   = "unit_price"   // per-unit price
	FieldAmount      = "amount"       // extended or invoice amount
	FieldInvoiceNo   = "invoice_no"   // invoice number when the source carries one
	FieldPaymentRef  = "payment_ref"  // payment reference (check no, ACH id)
	FieldStatus      = "status"       // order status as the source reports it
	FieldRemark      = "remark"       // free-form note
)

// Provenance keys drivers attach alongside the fields so warnings and the
// review queue can point back into the upstream artifact.
const (
	ProvenanceTab       = "tab"        // sheet tab title
	ProvenanceRow       = "row"        // 1-based row number
	ProvenanceCell      = "cell"       // A1 cell reference
	ProvenanceFile      = "file"       // CSV file name
	ProvenanceMessageID = "message_id" // mail message ID
	ProvenanceSubject   = "subject"    // mail subject line
)

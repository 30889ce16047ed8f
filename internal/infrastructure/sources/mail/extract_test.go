package mail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezze/backend/internal/domain/ingestion"
)

var fetchedAt = time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)

func orderMessage() Message {
	return Message{
		ID:      "CAF123_at_mail.example.com",
		Subject: "Weekly order - PO # 779322",
		From:    `"Crown Foods" <orders@crownfoods.example>`,
		Date:    time.Date(2026, 1, 13, 14, 5, 0, 0, time.UTC),
	}
}

func TestExtract_HTMLTable(t *testing.T) {
	msg := orderMessage()
	msg.BodyHTML = `
<html><body>
<table><tr><td><img src="logo.png"></td></tr></table>
<p>Please confirm the following order.</p>
<table>
  <tr><th>Item</th><th>Qty</th><th>Unit</th><th>Unit Price</th><th>Amount</th></tr>
  <tr><td>Hummus 16oz</td><td>3</td><td>CASE</td><td>$14.00</td><td>$42.00</td></tr>
  <tr><td>Labneh 16oz</td><td>12</td><td>EACH</td><td>$4.50</td><td>$54.00</td></tr>
  <tr><td>Total</td><td></td><td></td><td></td><td>$96.00</td></tr>
</table>
</body></html>`

	records, report := NewExtractor(ingestion.SourceCodeGmail).Extract(msg, fetchedAt)
	require.Len(t, records, 2)
	assert.Equal(t, 2, report.Fetched)

	first := records[0]
	assert.Equal(t, ingestion.SourceCodeGmail, first.SourceCode)
	assert.Equal(t, "CAF123_at_mail.example.com-1", first.SourceRef)
	assert.Equal(t, "Crown Foods", first.Fields[ingestion.FieldAccount])
	assert.Equal(t, "779322", first.Fields[ingestion.FieldPONumber])
	assert.Equal(t, "2026-01-13", first.Fields[ingestion.FieldOrderDate])
	assert.Equal(t, "Hummus 16oz", first.Fields[ingestion.FieldProduct])
	assert.Equal(t, "3", first.Fields[ingestion.FieldQuantity])
	assert.Equal(t, "CASE", first.Fields[ingestion.FieldUnit])
	assert.Equal(t, "$14.00", first.Fields[ingestion.FieldUnitPrice])
	assert.Equal(t, "$42.00", first.Fields[ingestion.FieldAmount])
	assert.Equal(t, "CAF123_at_mail.example.com", first.Provenance["message_id"])
	assert.Equal(t, "1", first.Provenance["item"])

	// the Total footer row never becomes a record
	assert.Equal(t, "Labneh 16oz", records[1].Fields[ingestion.FieldProduct])
	assert.Equal(t, "CAF123_at_mail.example.com-2", records[1].SourceRef)
}

func TestExtract_PlainTextLines(t *testing.T) {
	msg := orderMessage()
	msg.BodyText = "Hi,\n\nFor Thursday please send:\n" +
		"- 3 cs Hummus 16oz\n" +
		"- 12 ea Labneh 16oz\n" +
		"- 12# Mama Chips\n" +
		"- Muhammara 8oz x 4\n\n" +
		"Thanks!\n"

	records, _ := NewExtractor(ingestion.SourceCodeGmail).Extract(msg, fetchedAt)
	require.Len(t, records, 4)
	assert.Equal(t, "3 cs", records[0].Fields[ingestion.FieldQuantity])
	assert.Equal(t, "Hummus 16oz", records[0].Fields[ingestion.FieldProduct])
	assert.Equal(t, "12#", records[2].Fields[ingestion.FieldQuantity])
	assert.Equal(t, "Mama Chips", records[2].Fields[ingestion.FieldProduct])
	assert.Equal(t, "Muhammara 8oz", records[3].Fields[ingestion.FieldProduct])
	assert.Equal(t, "4", records[3].Fields[ingestion.FieldQuantity])
	for _, rec := range records {
		assert.Equal(t, "Crown Foods", rec.Fields[ingestion.FieldAccount])
	}
}

func TestExtract_InvoiceNotice(t *testing.T) {
	msg := orderMessage()
	msg.Subject = "Invoice #INV-2047 for January deliveries"
	msg.BodyText = "Your invoice is attached.\n\nAmount Due: $1,234.56\nPaid by check # 1042\n"

	records, _ := NewExtractor(ingestion.SourceCodeMboxArchive).Extract(msg, fetchedAt)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "CAF123_at_mail.example.com", rec.SourceRef, "single record keeps the bare message id")
	assert.Equal(t, "INV-2047", rec.Fields[ingestion.FieldInvoiceNo])
	assert.Equal(t, "1234.56", rec.Fields[ingestion.FieldAmount])
	assert.Equal(t, "1042", rec.Fields[ingestion.FieldPaymentRef])
}

func TestExtract_NothingRecognized(t *testing.T) {
	msg := orderMessage()
	msg.Subject = "Holiday schedule"
	msg.BodyText = "We are closed Monday.\n"

	records, report := NewExtractor(ingestion.SourceCodeGmail).Extract(msg, fetchedAt)
	assert.Empty(t, records)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "CAF123_at_mail.example.com")
}

func TestCleanMessageID(t *testing.T) {
	assert.Equal(t, "abc_at_example.com", CleanMessageID("<abc@example.com>", 0))
	assert.Equal(t, "mbox-17", CleanMessageID("", 17))
}

func TestSenderName(t *testing.T) {
	assert.Equal(t, "Crown Foods", SenderName(`"Crown Foods" <orders@crownfoods.example>`))
	assert.Equal(t, "orders@crownfoods.example", SenderName("<orders@crownfoods.example>"))
	assert.Equal(t, "orders@crownfoods.example", SenderName("orders@crownfoods.example"))
}

package mbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mezze/backend/internal/domain/ingestion"
)

const archiveFixture = `From orders@crownfoods.example Mon Jan 13 08:00:00 2026
Message-Id: <order-1@mail.example.com>
From: "Crown Foods" <orders@crownfoods.example>
To: orders@mezze.example
Subject: Weekly order - PO # 779322
Date: Mon, 13 Jan 2026 08:00:00 +0000
X-Gmail-Labels: orders,Inbox

3 cs Hummus 16oz
12 ea Labneh 16oz

From billing@leschi.example Tue Nov  4 08:00:00 2025
Message-Id: <inv-9@mail.example.com>
From: Leschi Market <billing@leschi.example>
To: orders@mezze.example
Subject: Invoice #INV-2047
Date: Tue, 4 Nov 2025 08:00:00 +0000
X-Gmail-Labels: orders

Amount Due: $120.00

From news@example.com Wed Jan 14 08:00:00 2026
Message-Id: <news-1@mail.example.com>
From: Newsletter <news@example.com>
To: orders@mezze.example
Subject: January newsletter
Date: Wed, 14 Jan 2026 08:00:00 +0000
X-Gmail-Labels: news

Nothing to order here.
`

func writeArchive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "takeout.mbox")
	require.NoError(t, os.WriteFile(path, []byte(archiveFixture), 0o644))
	return path
}

func TestDriver_FetchReplaysArchive(t *testing.T) {
	driver := NewDriver(Config{Path: writeArchive(t), Label: "orders"}, zap.NewNop())
	assert.Equal(t, ingestion.SourceCodeMboxArchive, driver.SourceCode())

	result, err := driver.Fetch(context.Background(), ingestion.Window{})
	require.NoError(t, err)

	// two order lines plus one invoice record; the newsletter label is
	// filtered out
	require.Len(t, result.Records, 3)
	assert.Equal(t, 3, result.Report.Fetched)
	assert.Equal(t, 1, result.Report.Skipped)

	first := result.Records[0]
	assert.Equal(t, "order-1_at_mail.example.com-1", first.SourceRef)
	assert.Equal(t, "Crown Foods", first.Fields[ingestion.FieldAccount])
	assert.Equal(t, "779322", first.Fields[ingestion.FieldPONumber])
	assert.Equal(t, "3 cs", first.Fields[ingestion.FieldQuantity])
	assert.Equal(t, "2026-01-13", first.Fields[ingestion.FieldOrderDate])

	invoice := result.Records[2]
	assert.Equal(t, "inv-9_at_mail.example.com", invoice.SourceRef)
	assert.Equal(t, "INV-2047", invoice.Fields[ingestion.FieldInvoiceNo])
	assert.Equal(t, "120.00", invoice.Fields[ingestion.FieldAmount])
}

func TestDriver_FetchWindowFiltersByDate(t *testing.T) {
	window, err := ingestion.NewWindow(
		time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	driver := NewDriver(Config{Path: writeArchive(t), Label: "orders"}, zap.NewNop())
	result, err := driver.Fetch(context.Background(), window)
	require.NoError(t, err)

	// only the January order survives; the November invoice is outside
	require.Len(t, result.Records, 2)
	assert.Equal(t, 2, result.Report.Skipped)
}

func TestDriver_FetchMissingArchive(t *testing.T) {
	driver := NewDriver(Config{Path: filepath.Join(t.TempDir(), "gone.mbox")}, zap.NewNop())
	_, err := driver.Fetch(context.Background(), ingestion.Window{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ingestion.ErrSourceUnavailable)
}

func TestParseMessage_MultipartQuotedPrintable(t *testing.T) {
	raw := "Message-Id: <mp-1@mail.example.com>\r\n" +
		"From: Met Market <buyer@met.example>\r\n" +
		"Subject: Order\r\n" +
		"Date: Thu, 15 Jan 2026 10:00:00 +0000\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"4 cs Muhammara 8oz=\r\n" +
		" please\r\n" +
		"--b1\r\n" +
		"Content-Type: text/html; charset=\"utf-8\"\r\n" +
		"\r\n" +
		"<p>4 cs Muhammara 8oz</p>\r\n" +
		"--b1--\r\n"

	msg, err := parseMessage(strings.NewReader(raw), 0)
	require.NoError(t, err)
	assert.Equal(t, "mp-1_at_mail.example.com", msg.ID)
	assert.Equal(t, "Met Market <buyer@met.example>", msg.From)
	assert.Equal(t, "Order", msg.Subject)
	assert.Contains(t, msg.BodyText, "4 cs Muhammara 8oz please")
	assert.Contains(t, msg.BodyHTML, "<p>4 cs Muhammara 8oz</p>")
}

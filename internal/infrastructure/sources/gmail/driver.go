// Package gmail fetches order mail from a labeled Gmail mailbox. Portal
// notifications and typed orders land under one label; the driver pulls
// each message and hands it to the shared mail extractor.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	ggmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/infrastructure/sources/googleauth"
	"github.com/mezze/backend/internal/infrastructure/sources/mail"
)

const defaultMaxMessages = 200

// MailboxReader is the slice of the Gmail API the driver needs, split out
// so the fetch path tests against fixture messages.
type MailboxReader interface {
	// ListMessageIDs returns message IDs under a label matching a query,
	// newest first, up to max
	ListMessageIDs(ctx context.Context, label, query string, max int64) ([]string, error)

	// GetMessage fetches one full message
	GetMessage(ctx context.Context, id string) (mail.Message, error)
}

// Config holds the mailbox location and credentials
type Config struct {
	Label           string
	Query           string
	CredentialsFile string
	TokenFile       string
	MaxMessages     int64
}

// Driver reads the order mailbox
type Driver struct {
	cfg       Config
	logger    *zap.Logger
	extractor *mail.Extractor

	mu     sync.Mutex
	reader MailboxReader
}

// NewDriver creates a gmail driver. The API client is built lazily on
// first fetch so construction never touches the network.
func NewDriver(cfg Config, logger *zap.Logger) *Driver {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = defaultMaxMessages
	}
	return &Driver{
		cfg:       cfg,
		logger:    logger,
		extractor: mail.NewExtractor(ingestion.SourceCodeGmail),
	}
}

// NewDriverWithReader creates a driver over an explicit mailbox reader
func NewDriverWithReader(cfg Config, reader MailboxReader, logger *zap.Logger) *Driver {
	d := NewDriver(cfg, logger)
	d.reader = reader
	return d
}

var _ ingestion.SourceDriver = (*Driver)(nil)

// SourceCode returns the source this driver serves
func (d *Driver) SourceCode() ingestion.SourceCode {
	return ingestion.SourceCodeGmail
}

// Fetch pulls labeled mail inside the window and extracts order records.
// The window rides into the Gmail query as after:/before: terms, so old
// mail never leaves the server; a second date check guards messages the
// query matched on thread activity rather than delivery date.
func (d *Driver) Fetch(ctx context.Context, window ingestion.Window) (*ingestion.FetchResult, error) {
	reader, err := d.mailboxReader(ctx)
	if err != nil {
		return nil, err
	}

	query := windowQuery(d.cfg.Query, window)
	ids, err := reader.ListMessageIDs(ctx, d.cfg.Label, query, d.cfg.MaxMessages)
	if err != nil {
		return nil, classifyAPIError(err)
	}
	d.logger.Debug("labeled messages found",
		zap.String("label", d.cfg.Label),
		zap.String("query", query),
		zap.Int("count", len(ids)))

	result := &ingestion.FetchResult{}
	fetchedAt := time.Now().UTC()
	for _, id := range ids {
		msg, err := reader.GetMessage(ctx, id)
		if err != nil {
			classified := classifyAPIError(err)
			if errors.Is(classified, ingestion.ErrSourceAuthFailed) || errors.Is(classified, ingestion.ErrSourceUnavailable) {
				return nil, classified
			}
			result.Report.AddError("message %s: %s", id, classified.Error())
			continue
		}
		if !msg.Date.IsZero() && !window.Contains(msg.Date.UTC()) {
			result.Report.Skipped++
			continue
		}
		records, report := d.extractor.Extract(msg, fetchedAt)
		result.Records = append(result.Records, records...)
		result.Report.Merge(report)
	}

	d.logger.Info("gmail fetch complete",
		zap.Int("messages", len(ids)),
		zap.Int("fetched", result.Report.Fetched),
		zap.Int("skipped", result.Report.Skipped),
		zap.Int("warnings", len(result.Report.Warnings)))
	return result, nil
}

func (d *Driver) mailboxReader(ctx context.Context) (MailboxReader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader != nil {
		return d.reader, nil
	}
	opts, err := googleauth.ClientOptions(ctx, d.cfg.CredentialsFile, d.cfg.TokenFile, ggmail.GmailReadonlyScope)
	if err != nil {
		return nil, err
	}
	svc, err := ggmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: gmail client: %v", ingestion.ErrSourceUnavailable, err)
	}
	d.reader = &apiMailboxReader{svc: svc}
	return d.reader, nil
}

// windowQuery folds the fetch window into the configured Gmail query.
// Gmail's after:/before: are date-granular, so bounds round outward.
func windowQuery(base string, window ingestion.Window) string {
	if window.IsZero() {
		return base
	}
	q := base
	if !window.Start.IsZero() {
		q = fmt.Sprintf("%s after:%s", q, window.Start.Add(-24*time.Hour).Format("2006/01/02"))
	}
	if !window.End.IsZero() {
		q = fmt.Sprintf("%s before:%s", q, window.End.Add(24*time.Hour).Format("2006/01/02"))
	}
	return strings.TrimSpace(q)
}

func classifyAPIError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return fmt.Errorf("%w: %v", ingestion.ErrSourceAuthFailed, err)
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", ingestion.ErrSourceUnavailable, err)
		default:
			return fmt.Errorf("%w: %v", ingestion.ErrSourceFormat, err)
		}
	}
	return fmt.Errorf("%w: %v", ingestion.ErrSourceUnavailable, err)
}

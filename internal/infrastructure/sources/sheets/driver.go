// Package sheets fetches the weekly order workbook from Google Sheets.
// Each "Weekly Order ..." tab holds one week of per-day customer tables;
// the driver emits one raw record per populated quantity cell.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/infrastructure/sources/googleauth"
)

const (
	// tabRange bounds how much of a tab one read pulls; weekly tabs never
	// come close to 200 rows
	tabRange = "A1:Z200"

	weeklyTabMarker = "Weekly Order"
	masterTabName   = "Weekly Order Master"
)

// TabReader is the slice of the Sheets API the driver needs, split out so
// the parse path tests against fixture rows.
type TabReader interface {
	ListTabs(ctx context.Context) ([]string, error)
	ReadTab(ctx context.Context, tab string) ([][]string, error)
}

// Config holds the workbook location and credentials
type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	TokenFile       string
}

// Driver reads the weekly order workbook
type Driver struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	reader TabReader
}

// NewDriver creates a sheets driver. The API client is built lazily on
// first fetch so construction never touches the network.
func NewDriver(cfg Config, logger *zap.Logger) *Driver {
	return &Driver{cfg: cfg, logger: logger}
}

// NewDriverWithReader creates a driver over an explicit tab reader
func NewDriverWithReader(reader TabReader, logger *zap.Logger) *Driver {
	return &Driver{reader: reader, logger: logger}
}

// SourceCode returns the source this driver serves
func (d *Driver) SourceCode() ingestion.SourceCode {
	return ingestion.SourceCodeMezze
}

// Fetch reads every weekly tab and emits the order cells inside the
// window. A tab that fails to parse is reported and skipped; auth and
// availability failures abort the fetch.
func (d *Driver) Fetch(ctx context.Context, window ingestion.Window) (*ingestion.FetchResult, error) {
	reader, err := d.tabReader(ctx)
	if err != nil {
		return nil, err
	}

	tabs, err := reader.ListTabs(ctx)
	if err != nil {
		return nil, classifyAPIError(err)
	}

	weekly := weeklyTabs(tabs)
	d.logger.Debug("weekly order tabs found", zap.Int("count", len(weekly)))

	result := &ingestion.FetchResult{}
	fetchedAt := time.Now().UTC()
	for _, tab := range weekly {
		rows, err := reader.ReadTab(ctx, tab)
		if err != nil {
			classified := classifyAPIError(err)
			if errors.Is(classified, ingestion.ErrSourceAuthFailed) || errors.Is(classified, ingestion.ErrSourceUnavailable) {
				return nil, classified
			}
			result.Report.AddError("tab %s: %s", tab, classified.Error())
			continue
		}

		records, report := parseTab(tab, rows, window, fetchedAt)
		result.Records = append(result.Records, records...)
		result.Report.Merge(report)
	}
	return result, nil
}

// tabReader returns the API client, building it on first use
func (d *Driver) tabReader(ctx context.Context) (TabReader, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader != nil {
		return d.reader, nil
	}

	opts, err := googleauth.ClientOptions(ctx, d.cfg.CredentialsFile, d.cfg.TokenFile, gsheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, err
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ingestion.ErrSourceAuthFailed, err)
	}
	d.reader = &googleTabReader{svc: svc, spreadsheetID: d.cfg.SpreadsheetID}
	return d.reader, nil
}

// weeklyTabs filters tab names down to weekly order tabs, excluding the
// master template, sorted for deterministic fetch order
func weeklyTabs(tabs []string) []string {
	var weekly []string
	for _, tab := range tabs {
		if strings.Contains(tab, weeklyTabMarker) && tab != masterTabName {
			weekly = append(weekly, tab)
		}
	}
	sort.Strings(weekly)
	return weekly
}

// googleTabReader is the live Sheets API implementation of TabReader
type googleTabReader struct {
	svc           *gsheets.Service
	spreadsheetID string
}

func (r *googleTabReader) ListTabs(ctx context.Context) ([]string, error) {
	meta, err := r.svc.Spreadsheets.Get(r.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	tabs := make([]string, 0, len(meta.Sheets))
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil {
			tabs = append(tabs, sheet.Properties.Title)
		}
	}
	return tabs, nil
}

func (r *googleTabReader) ReadTab(ctx context.Context, tab string) ([][]string, error) {
	resp, err := r.svc.Spreadsheets.Values.
		Get(r.spreadsheetID, fmt.Sprintf("'%s'!%s", tab, tabRange)).
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		row := make([]string, len(raw))
		for j, cell := range raw {
			row[j] = fmt.Sprint(cell)
		}
		rows[i] = row
	}
	return rows, nil
}

// classifyAPIError maps Google API failures onto the driver error taxonomy
func classifyAPIError(err error) error {
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
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ingestion.ErrSourceUnavailable, err)
}

var _ ingestion.SourceDriver = (*Driver)(nil)

// Package csvdrop ingests CSV exports dropped into a watched directory.
// A YAML mapping file per upstream format declares how its columns become
// canonical fields, so new exports need configuration, not code.
package csvdrop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mezze/backend/internal/domain/ingestion"
)

// Config holds the watched drop directory and the mapping directory
type Config struct {
	DropDir    string
	MappingDir string
}

// Driver reads every mapped CSV currently in the drop directory
type Driver struct {
	cfg    Config
	logger *zap.Logger
}

// NewDriver creates the CSV drop-folder driver
func NewDriver(cfg Config, logger *zap.Logger) *Driver {
	return &Driver{cfg: cfg, logger: logger}
}

var _ ingestion.SourceDriver = (*Driver)(nil)

// SourceCode implements ingestion.SourceDriver
func (d *Driver) SourceCode() ingestion.SourceCode {
	return ingestion.SourceCodeCSVDrop
}

// Fetch parses every dropped file that a mapping claims. Mappings are
// reloaded on each fetch so a new mapping file takes effect without a
// restart. A file no mapping claims is a warning; a file its mapping
// cannot parse is an error; both leave the rest of the drop alone.
func (d *Driver) Fetch(ctx context.Context, window ingestion.Window) (*ingestion.FetchResult, error) {
	mappings, err := LoadMappingDir(d.cfg.MappingDir)
	if err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		return nil, fmt.Errorf("%w: no mapping files in %s", ingestion.ErrSourceFormat, d.cfg.MappingDir)
	}

	entries, err := os.ReadDir(d.cfg.DropDir)
	if err != nil {
		return nil, fmt.Errorf("%w: drop dir %s: %v", ingestion.ErrSourceUnavailable, d.cfg.DropDir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	fetchedAt := time.Now().UTC()
	result := &ingestion.FetchResult{}
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := claimingMapping(mappings, name)
		if m == nil {
			result.Report.AddWarning("%s: no mapping claims this file", name)
			continue
		}
		content, err := os.ReadFile(filepath.Join(d.cfg.DropDir, name))
		if err != nil {
			result.Report.AddError("%s: %v", name, err)
			continue
		}
		records, report, err := parseFile(m, name, string(content), window, fetchedAt)
		if err != nil {
			result.Report.AddError("%v", err)
			continue
		}
		d.logger.Debug("parsed dropped file",
			zap.String("file", name),
			zap.String("mapping", m.Name),
			zap.Int("fetched", report.Fetched),
			zap.Int("skipped", report.Skipped))
		result.Records = append(result.Records, records...)
		result.Report.Merge(report)
	}

	d.logger.Info("csv drop fetch complete",
		zap.Int("files", len(files)),
		zap.Int("fetched", result.Report.Fetched),
		zap.Int("skipped", result.Report.Skipped),
		zap.Int("warnings", len(result.Report.Warnings)),
		zap.Int("errors", len(result.Report.Errors)))
	return result, nil
}

// claimingMapping returns the first mapping whose pattern matches, in
// mapping-name order so overlapping patterns resolve deterministically
func claimingMapping(mappings []*Mapping, fileName string) *Mapping {
	for _, m := range mappings {
		if m.Matches(fileName) {
			return m
		}
	}
	return nil
}

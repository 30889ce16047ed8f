package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/mezze/backend/internal/domain/catalog"
	"github.com/mezze/backend/internal/domain/partner"
	"github.com/mezze/backend/internal/domain/report"
)

// EntityNamer resolves dimension IDs to display names for exports. Name
// lookups are batched per export, not per row.
type EntityNamer struct {
	accountRepo partner.AccountRepository
	productRepo catalog.ProductRepository
}

// NewEntityNamer creates the export name resolver
func NewEntityNamer(accountRepo partner.AccountRepository, productRepo catalog.ProductRepository) *EntityNamer {
	return &EntityNamer{accountRepo: accountRepo, productRepo: productRepo}
}

func (n *EntityNamer) names(ctx context.Context, points []report.TimeSeriesPoint) (map[uuid.UUID]string, map[uuid.UUID]string, error) {
	accountIDs := map[uuid.UUID]bool{}
	productIDs := map[uuid.UUID]bool{}
	for i := range points {
		if points[i].AccountID != nil {
			accountIDs[*points[i].AccountID] = true
		}
		if points[i].ProductID != nil {
			productIDs[*points[i].ProductID] = true
		}
	}

	accountNames := make(map[uuid.UUID]string, len(accountIDs))
	if len(accountIDs) > 0 {
		accounts, err := n.accountRepo.FindByIDs(ctx, keys(accountIDs))
		if err != nil {
			return nil, nil, fmt.Errorf("report: resolve account names: %w", err)
		}
		for i := range accounts {
			accountNames[accounts[i].ID] = accounts[i].Name
		}
	}

	productNames := make(map[uuid.UUID]string, len(productIDs))
	if len(productIDs) > 0 {
		products, err := n.productRepo.FindByIDs(ctx, keys(productIDs))
		if err != nil {
			return nil, nil, fmt.Errorf("report: resolve product names: %w", err)
		}
		for i := range products {
			productNames[products[i].ID] = products[i].Name
		}
	}
	return accountNames, productNames, nil
}

func keys(set map[uuid.UUID]bool) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

var exportHeaders = []string{"Period", "Metric", "Granularity", "Account", "Product", "Value"}

// ExportXLSX renders the points matching the query as a spreadsheet.
// Dimension IDs come out as display names so the file reads on its own.
func (s *Service) ExportXLSX(ctx context.Context, query report.TimeSeriesQuery) ([]byte, error) {
	points, err := s.Series(ctx, query)
	if err != nil {
		return nil, err
	}
	accountNames, productNames, err := s.namer.names(ctx, points)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Series"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("report: build sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("report: header style: %w", err)
	}
	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for i := range points {
		p := &points[i]
		account, product := "", ""
		if p.AccountID != nil {
			account = accountNames[*p.AccountID]
		}
		if p.ProductID != nil {
			product = productNames[*p.ProductID]
		}
		row := i + 2
		values := []any{
			p.PeriodStart.Format("2006-01-02"),
			string(p.Metric),
			string(p.Granularity),
			account,
			product,
			p.Value.InexactFloat64(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("report: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

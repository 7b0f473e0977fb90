package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kluster66/invoice-extractor/internal/entity"
	"github.com/kluster66/invoice-extractor/internal/store"
)

const sheet = "Factures"

var headers = []string{
	"Fournisseur",
	"Montant HT",
	"Numéro facture",
	"Date facture",
	"Chrono",
	"Couverture",
	"Fichier",
	"Extrait le",
	"Source",
	"ID",
}

// Service produces XLSX workbooks from record store queries.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

func NewService(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger}
}

// ExportXLSX runs q and returns the matching invoices as workbook bytes.
func (s *Service) ExportXLSX(ctx context.Context, q store.Query) ([]byte, error) {
	start := time.Now()
	recs, err := store.Find(ctx, s.store, q)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	buf, err := Workbook(recs)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"query", q.Describe(),
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

// Workbook renders recs as a single-sheet XLSX. Amounts are written as numbers.
func Workbook(recs []entity.InvoiceRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, entity.StringOrEmpty(r.Supplier))
		if r.AmountExclTax != nil {
			amount, _ := r.AmountExclTax.Float64()
			write(2, amount)
		}
		write(3, entity.StringOrEmpty(r.InvoiceNumber))
		write(4, entity.StringOrEmpty(r.InvoiceDate))
		write(5, entity.StringOrEmpty(r.ChronoNumber))
		write(6, truncate(entity.StringOrEmpty(r.CoveragePeriod), 140))
		write(7, r.SourceFilename)
		write(8, r.ExtractionTimestamp)
		write(9, r.SourcePath)
		write(10, r.ID)
	}

	_ = f.SetColWidth(sheet, "A", "A", 28) // supplier
	_ = f.SetColWidth(sheet, "B", "B", 14)
	_ = f.SetColWidth(sheet, "C", "E", 18)
	_ = f.SetColWidth(sheet, "F", "F", 28)
	_ = f.SetColWidth(sheet, "G", "G", 36)
	_ = f.SetColWidth(sheet, "H", "H", 22)
	_ = f.SetColWidth(sheet, "I", "J", 48) // source, id

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

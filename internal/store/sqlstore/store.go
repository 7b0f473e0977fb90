package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/kluster66/invoice-extractor/internal/common"
	"github.com/kluster66/invoice-extractor/internal/entity"
	"github.com/kluster66/invoice-extractor/internal/store"
)

type Store struct {
	db     *gorm.DB
	table  string
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB, table string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if table == "" {
		table = invoiceRow{}.TableName()
	}
	return &Store{db: db, table: table, logger: logger}
}

func (s *Store) rows(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.table)
}

// EnsureTable migrates the invoice table and its three lookup indexes.
func (s *Store) EnsureTable(ctx context.Context) error {
	if err := s.rows(ctx).AutoMigrate(&invoiceRow{}); err != nil {
		s.logger.Error("store.table.create_failed", "table", s.table, "error", err)
		return fmt.Errorf("%w: migrate: %w", common.ErrDatabase, err)
	}
	s.logger.Debug("store.table.ready", "table", s.table, "backend", s.db.Dialector.Name())
	return nil
}

func (s *Store) Save(ctx context.Context, rec entity.InvoiceRecord) (string, error) {
	rec.ID = store.NewID()
	audit, err := store.AuditPayload(rec)
	if err != nil {
		return "", common.NewAppError("STORE_MARSHAL", "cannot marshal record", err)
	}
	row, err := toRow(rec, store.Now(), audit)
	if err != nil {
		return "", common.NewAppError("STORE_MARSHAL", "cannot marshal record", err)
	}
	if err := s.rows(ctx).Create(&row).Error; err != nil {
		s.logger.Error("store.save.failed", "table", s.table, "error", err)
		return "", fmt.Errorf("%w: insert: %w", common.ErrDatabase, err)
	}
	s.logger.Info("store.save.ok", "table", s.table, "id", rec.ID)
	return rec.ID, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (entity.InvoiceRecord, error) {
	var row invoiceRow
	if err := s.rows(ctx).Where(store.AttrID+" = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entity.InvoiceRecord{}, fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
		}
		return entity.InvoiceRecord{}, fmt.Errorf("%w: get: %w", common.ErrDatabase, err)
	}
	return row.toRecord()
}

func (s *Store) QueryByInvoiceNumber(ctx context.Context, number string) ([]entity.InvoiceRecord, error) {
	return s.find(ctx, entity.KeyInvoiceNumber+" = ?", number)
}

func (s *Store) QueryBySupplier(ctx context.Context, supplier string) ([]entity.InvoiceRecord, error) {
	return s.find(ctx, entity.KeySupplier+" = ?", supplier)
}

func (s *Store) QueryByDateRange(ctx context.Context, start, end string) ([]entity.InvoiceRecord, error) {
	return s.find(ctx, entity.KeyInvoiceDate+" BETWEEN ? AND ?", start, end)
}

func (s *Store) find(ctx context.Context, where string, args ...any) ([]entity.InvoiceRecord, error) {
	var rows []invoiceRow
	if err := s.rows(ctx).Where(where, args...).Order(store.AttrCreatedAt).Find(&rows).Error; err != nil {
		s.logger.Error("store.query.failed", "where", where, "error", err)
		return nil, fmt.Errorf("%w: query: %w", common.ErrDatabase, err)
	}
	out := make([]entity.InvoiceRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	s.logger.Debug("store.query.ok", "where", where, "count", len(out))
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.rows(ctx).Where(store.AttrID+" = ?", id).Delete(&invoiceRow{})
	if res.Error != nil {
		return fmt.Errorf("%w: delete: %w", common.ErrDatabase, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
	}
	s.logger.Info("store.delete.ok", "table", s.table, "id", id)
	return nil
}

func (s *Store) Describe(ctx context.Context) (store.TableInfo, error) {
	var count int64
	if err := s.rows(ctx).Count(&count).Error; err != nil {
		return store.TableInfo{}, fmt.Errorf("%w: count: %w", common.ErrDatabase, err)
	}
	return store.TableInfo{
		Name:      s.table,
		Backend:   s.db.Dialector.Name(),
		Status:    "ACTIVE",
		ItemCount: count,
		Indexes: []string{
			store.IndexInvoiceNumber,
			store.IndexSupplier,
			store.IndexInvoiceDate,
		},
	}, nil
}

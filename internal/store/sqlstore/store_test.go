package sqlstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kluster66/invoice-extractor/internal/common"
	"github.com/kluster66/invoice-extractor/internal/entity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(context.Background(), Config{Backend: common.BackendSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	s := New(db, "invoices", nil)
	require.NoError(t, s.EnsureTable(context.Background()))
	return s
}

func record(number, supplier, date string) entity.InvoiceRecord {
	amount := decimal.RequireFromString("1500.50")
	return entity.InvoiceRecord{
		Supplier:            entity.Ptr(supplier),
		AmountExclTax:       &amount,
		InvoiceNumber:       entity.Ptr(number),
		InvoiceDate:         entity.Ptr(date),
		SourceFilename:      number + ".pdf",
		ExtractionTimestamp: "2024-02-01T10:00:00Z",
		SourcePath:          "/tmp/" + number + ".pdf",
		RawPayload:          `{"numero_facture":"` + number + `"}`,
		ExtraFields:         map[string]any{"tva": 20},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := record("F-1", "ACME", "2024-01-15")
	id, err := s.Save(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, in.Supplier, got.Supplier)
	assert.Equal(t, in.InvoiceDate, got.InvoiceDate)
	assert.Nil(t, got.ChronoNumber)
	require.NotNil(t, got.AmountExclTax)
	assert.True(t, in.AmountExclTax.Equal(*got.AmountExclTax))
	assert.Equal(t, in.RawPayload, got.RawPayload)
	assert.Equal(t, json.Number("20"), got.ExtraFields["tva"])

	_, err = s.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, r := range []entity.InvoiceRecord{
		record("F-1", "ACME", "2024-01-15"),
		record("F-2", "ACME", "2024-02-20"),
		record("F-3", "OVH", "2024-03-05"),
		{SourceFilename: "empty.pdf"},
	} {
		_, err := s.Save(ctx, r)
		require.NoError(t, err)
	}

	got, err := s.QueryByInvoiceNumber(ctx, "F-3")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "OVH", entity.StringOrEmpty(got[0].Supplier))

	got, err = s.QueryBySupplier(ctx, "ACME")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.QueryByDateRange(ctx, "2024-01-15", "2024-02-20")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.QueryByDateRange(ctx, "2025-01-01", "2025-12-31")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteAndDescribe(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, record("F-1", "ACME", "2024-01-15"))
	require.NoError(t, err)

	info, err := s.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.ItemCount)
	assert.Len(t, info.Indexes, 3)

	require.NoError(t, s.Delete(ctx, id))
	assert.ErrorIs(t, s.Delete(ctx, id), common.ErrNotFound)

	info, err = s.Describe(ctx)
	require.NoError(t, err)
	assert.Zero(t, info.ItemCount)
}

func TestSaveKeepsNullExtraFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := record("F-9", "ACME", "2024-04-01")
	in.ExtraFields = map[string]any{"remise": nil, "devise": "EUR"}
	id, err := s.Save(ctx, in)
	require.NoError(t, err)

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	require.Contains(t, got.ExtraFields, "remise")
	assert.Nil(t, got.ExtraFields["remise"])
	assert.Equal(t, "EUR", got.ExtraFields["devise"])

	found, err := s.QueryByInvoiceNumber(ctx, "F-9")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].ExtraFields, "remise")
}

func TestEnsureTableMigratesIndexes(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureTable(context.Background()))

	m := s.db.Migrator()
	assert.True(t, m.HasTable("invoices"))
	for _, col := range []string{entity.KeyInvoiceNumber, entity.KeySupplier, entity.KeyInvoiceDate} {
		assert.True(t, m.HasIndex(&invoiceRow{}, "idx_invoices_"+col), col)
	}
	assert.Equal(t, common.BackendSQLite, s.db.Dialector.Name())
}

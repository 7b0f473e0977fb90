// Package dynamo is the DynamoDB record store backend.
package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/kluster66/invoice-extractor/internal/common"
	"github.com/kluster66/invoice-extractor/internal/entity"
	"github.com/kluster66/invoice-extractor/internal/store"
)

// API is the subset of *dynamodb.Client the store uses.
type API interface {
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type Config struct {
	TableName     string
	ReadCapacity  int64
	WriteCapacity int64
	CreateTimeout time.Duration
}

type Store struct {
	cfg    Config
	api    API
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

func New(cfg Config, api API, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TableName == "" {
		cfg.TableName = "invoices"
	}
	if cfg.ReadCapacity <= 0 {
		cfg.ReadCapacity = 5
	}
	if cfg.WriteCapacity <= 0 {
		cfg.WriteCapacity = 5
	}
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = 5 * time.Minute
	}
	return &Store{cfg: cfg, api: api, logger: logger}
}

func (s *Store) Save(ctx context.Context, rec entity.InvoiceRecord) (string, error) {
	rec.ID = store.NewID()
	item, err := toItem(rec)
	if err != nil {
		return "", common.NewAppError("STORE_MARSHAL", "cannot marshal record", err)
	}
	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.cfg.TableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(" + store.AttrID + ")"),
	})
	if err != nil {
		s.logger.Error("store.save.failed", "table", s.cfg.TableName, "error", err)
		return "", fmt.Errorf("%w: put item: %w", common.ErrDatabase, err)
	}
	s.logger.Info("store.save.ok", "table", s.cfg.TableName, "id", rec.ID)
	return rec.ID, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (entity.InvoiceRecord, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.cfg.TableName),
		Key:       idKey(id),
	})
	if err != nil {
		return entity.InvoiceRecord{}, fmt.Errorf("%w: get item: %w", common.ErrDatabase, err)
	}
	if len(out.Item) == 0 {
		return entity.InvoiceRecord{}, fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
	}
	return fromItem(out.Item)
}

func (s *Store) QueryByInvoiceNumber(ctx context.Context, number string) ([]entity.InvoiceRecord, error) {
	return s.queryIndex(ctx, store.IndexInvoiceNumber, entity.KeyInvoiceNumber, number)
}

func (s *Store) QueryBySupplier(ctx context.Context, supplier string) ([]entity.InvoiceRecord, error) {
	return s.queryIndex(ctx, store.IndexSupplier, entity.KeySupplier, supplier)
}

func (s *Store) queryIndex(ctx context.Context, index, attr, value string) ([]entity.InvoiceRecord, error) {
	p := dynamodb.NewQueryPaginator(s.api, &dynamodb.QueryInput{
		TableName:                 aws.String(s.cfg.TableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#k = :v"),
		ExpressionAttributeNames:  map[string]string{"#k": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
	})
	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			s.logger.Error("store.query.failed", "index", index, "error", err)
			return nil, fmt.Errorf("%w: query %s: %w", common.ErrDatabase, index, err)
		}
		items = append(items, page.Items...)
	}
	s.logger.Debug("store.query.ok", "index", index, "count", len(items))
	return fromItems(items)
}

// QueryByDateRange scans the whole table with a BETWEEN filter; the date index only
// serves equality lookups.
func (s *Store) QueryByDateRange(ctx context.Context, start, end string) ([]entity.InvoiceRecord, error) {
	p := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName:                aws.String(s.cfg.TableName),
		FilterExpression:         aws.String("#d BETWEEN :start AND :end"),
		ExpressionAttributeNames: map[string]string{"#d": entity.KeyInvoiceDate},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":start": &types.AttributeValueMemberS{Value: start},
			":end":   &types.AttributeValueMemberS{Value: end},
		},
	})
	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			s.logger.Error("store.scan.failed", "start", start, "end", end, "error", err)
			return nil, fmt.Errorf("%w: scan: %w", common.ErrDatabase, err)
		}
		items = append(items, page.Items...)
	}
	s.logger.Debug("store.scan.ok", "start", start, "end", end, "count", len(items))
	return fromItems(items)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.cfg.TableName),
		Key:                 idKey(id),
		ConditionExpression: aws.String("attribute_exists(" + store.AttrID + ")"),
	})
	var ccf *types.ConditionalCheckFailedException
	switch {
	case errors.As(err, &ccf):
		return fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
	case err != nil:
		return fmt.Errorf("%w: delete item: %w", common.ErrDatabase, err)
	}
	s.logger.Info("store.delete.ok", "table", s.cfg.TableName, "id", id)
	return nil
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{store.AttrID: &types.AttributeValueMemberS{Value: id}}
}

// toItem lays the record out as indexed columns plus the raw_data audit copy.
// Empty strings are left out so they never land in an index key.
func toItem(rec entity.InvoiceRecord) (map[string]types.AttributeValue, error) {
	audit, err := store.AuditPayload(rec)
	if err != nil {
		return nil, err
	}
	cols := map[string]any{
		store.AttrID:          rec.ID,
		store.AttrCreatedAt:   store.Now(),
		store.AttrRawData:     audit,
		store.AttrExtractedAt: rec.ExtractionTimestamp,
		store.AttrSourcePath:  rec.SourcePath,
		store.AttrRawPayload:  rec.RawPayload,
	}
	for k, v := range rec.Fields() {
		if _, canonical := canonicalSet[k]; canonical {
			cols[k] = v
		}
	}
	if len(rec.ExtraFields) > 0 {
		cols[store.AttrExtra] = rec.ExtraFields
	}
	for k, v := range cols {
		if s, ok := v.(string); ok && s == "" {
			delete(cols, k)
		}
	}
	return MarshalMap(cols)
}

var canonicalSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(entity.CanonicalKeys))
	for _, k := range entity.CanonicalKeys {
		m[k] = struct{}{}
	}
	return m
}()

func fromItems(items []map[string]types.AttributeValue) ([]entity.InvoiceRecord, error) {
	out := make([]entity.InvoiceRecord, 0, len(items))
	for _, it := range items {
		rec, err := fromItem(it)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func fromItem(item map[string]types.AttributeValue) (entity.InvoiceRecord, error) {
	m := UnmarshalMap(item)
	str := func(k string) *string {
		if s, ok := m[k].(string); ok {
			return &s
		}
		return nil
	}
	rec := entity.InvoiceRecord{
		ID:                  entity.StringOrEmpty(str(store.AttrID)),
		Supplier:            str(entity.KeySupplier),
		InvoiceNumber:       str(entity.KeyInvoiceNumber),
		InvoiceDate:         str(entity.KeyInvoiceDate),
		ChronoNumber:        str(entity.KeyChronoNumber),
		CoveragePeriod:      str(entity.KeyCoveragePeriod),
		SourceFilename:      entity.StringOrEmpty(str(entity.KeySourceFilename)),
		ExtractionTimestamp: entity.StringOrEmpty(str(store.AttrExtractedAt)),
		SourcePath:          entity.StringOrEmpty(str(store.AttrSourcePath)),
		RawPayload:          entity.StringOrEmpty(str(store.AttrRawPayload)),
		ExtraFields:         map[string]any{},
	}
	if n, ok := item[entity.KeyAmountExclTax].(*types.AttributeValueMemberN); ok {
		d, err := decimal.NewFromString(n.Value)
		if err != nil {
			return entity.InvoiceRecord{}, fmt.Errorf("invoice %s: amount %q: %w", rec.ID, n.Value, err)
		}
		rec.AmountExclTax = &d
	}
	if extra, ok := m[store.AttrExtra].(map[string]any); ok {
		rec.ExtraFields = extra
	}
	return rec, nil
}

// AuditRecord decodes the raw_data copy stored with an item.
func AuditRecord(item map[string]types.AttributeValue) (entity.InvoiceRecord, error) {
	var rec entity.InvoiceRecord
	raw, ok := item[store.AttrRawData].(*types.AttributeValueMemberS)
	if !ok {
		return rec, fmt.Errorf("item has no %s", store.AttrRawData)
	}
	err := json.Unmarshal([]byte(raw.Value), &rec)
	return rec, err
}

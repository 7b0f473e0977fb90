package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kluster66/invoice-extractor/internal/common"
	"github.com/kluster66/invoice-extractor/internal/entity"
	"github.com/kluster66/invoice-extractor/internal/store"
)

// EnsureTable describes the table and creates it, then waits for ACTIVE, when it does not exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.cfg.TableName)})
	if err == nil {
		s.logger.Debug("store.table.exists", "table", s.cfg.TableName)
		return nil
	}
	var nf *types.ResourceNotFoundException
	if !errors.As(err, &nf) {
		return fmt.Errorf("%w: describe table: %w", common.ErrDatabase, err)
	}

	s.logger.Info("store.table.create", "table", s.cfg.TableName)
	if _, err := s.api.CreateTable(ctx, s.createTableInput()); err != nil {
		s.logger.Error("store.table.create_failed", "table", s.cfg.TableName, "error", err)
		return fmt.Errorf("%w: create table: %w", common.ErrDatabase, err)
	}
	waiter := dynamodb.NewTableExistsWaiter(s.api)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.cfg.TableName)}, s.cfg.CreateTimeout); err != nil {
		return fmt.Errorf("%w: wait for table: %w", common.ErrDatabase, err)
	}
	s.logger.Info("store.table.ready", "table", s.cfg.TableName)
	return nil
}

func (s *Store) createTableInput() *dynamodb.CreateTableInput {
	throughput := &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(s.cfg.ReadCapacity),
		WriteCapacityUnits: aws.Int64(s.cfg.WriteCapacity),
	}
	gsi := func(name, attr string) types.GlobalSecondaryIndex {
		return types.GlobalSecondaryIndex{
			IndexName:             aws.String(name),
			KeySchema:             []types.KeySchemaElement{{AttributeName: aws.String(attr), KeyType: types.KeyTypeHash}},
			Projection:            &types.Projection{ProjectionType: types.ProjectionTypeAll},
			ProvisionedThroughput: throughput,
		}
	}
	attr := func(name string) types.AttributeDefinition {
		return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
	}
	return &dynamodb.CreateTableInput{
		TableName: aws.String(s.cfg.TableName),
		KeySchema: []types.KeySchemaElement{{AttributeName: aws.String(store.AttrID), KeyType: types.KeyTypeHash}},
		AttributeDefinitions: []types.AttributeDefinition{
			attr(store.AttrID),
			attr(entity.KeyInvoiceNumber),
			attr(entity.KeySupplier),
			attr(entity.KeyInvoiceDate),
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(store.IndexInvoiceNumber, entity.KeyInvoiceNumber),
			gsi(store.IndexSupplier, entity.KeySupplier),
			gsi(store.IndexInvoiceDate, entity.KeyInvoiceDate),
		},
		BillingMode:           types.BillingModeProvisioned,
		ProvisionedThroughput: throughput,
	}
}

func (s *Store) Describe(ctx context.Context) (store.TableInfo, error) {
	out, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.cfg.TableName)})
	var nf *types.ResourceNotFoundException
	switch {
	case errors.As(err, &nf):
		return store.TableInfo{}, fmt.Errorf("table %s: %w", s.cfg.TableName, common.ErrNotFound)
	case err != nil:
		return store.TableInfo{}, fmt.Errorf("%w: describe table: %w", common.ErrDatabase, err)
	}
	info := store.TableInfo{
		Name:      s.cfg.TableName,
		Backend:   common.BackendDynamoDB,
		Status:    string(out.Table.TableStatus),
		ItemCount: aws.ToInt64(out.Table.ItemCount),
	}
	for _, g := range out.Table.GlobalSecondaryIndexes {
		info.Indexes = append(info.Indexes, aws.ToString(g.IndexName))
	}
	return info, nil
}

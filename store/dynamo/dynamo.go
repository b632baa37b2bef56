// Package dynamo provides a Store backed by DynamoDB.
//
// Layout: one item per node, partitioned per tree (optionally hash
// sharded for very wide trees) with a sort key derived from the node's
// (a11, a21) position pair. Because the sort key is deterministic in the
// position, a conditional Put is all that's needed to make concurrent
// appends under one parent safe: the loser's Put fails and the tree
// layer retries with the next index. Tree ids come from an atomic ADD on
// a counter item.
//
// DynamoDB filter expressions cannot express the ancestry products, so
// predicate expressions are evaluated client-side over the tree's
// partition(s); equality-only queries still benefit from the partition
// scoping. Deletes are soft (TTL), matching the stream-driven cascade in
// the stream package.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/arbor/internal/shard"
	"github.com/jacentio/arbor/store"
)

const (
	counterPK = "forest#meta"
	counterSK = "seq#tree"
)

// Store is a DynamoDB-backed store.Store implementation.
type Store struct {
	client *dynamodb.Client
	config Config
}

var _ store.Store = (*Store)(nil)

// New creates a new Store instance.
func New(client *dynamodb.Client, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// NextTreeID atomically increments and returns the tree id counter.
func (s *Store) NextTreeID(ctx context.Context) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.config.TableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: counterPK},
			"sk": &types.AttributeValueMemberS{Value: counterSK},
		},
		UpdateExpression:         aws.String("ADD #last :one"),
		ExpressionAttributeNames: map[string]string{"#last": "last"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("advance tree sequence: %w", err)
	}
	n, ok := out.Attributes["last"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("arbor: tree sequence returned no counter value")
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

// LastTreeID returns the most recently allocated tree id, 0 if none.
func (s *Store) LastTreeID(ctx context.Context) (int64, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.TableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: counterPK},
			"sk": &types.AttributeValueMemberS{Value: counterSK},
		},
	})
	if err != nil {
		return 0, err
	}
	if out.Item == nil {
		return 0, nil
	}
	n, ok := out.Item["last"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

// Insert stores a new row with parent validation and position
// uniqueness, both enforced inside one transaction.
func (s *Store) Insert(ctx context.Context, row *store.Row) error {
	if err := row.Enc.Validate(); err != nil {
		return err
	}

	item, err := marshalRow(row, s.config.NumShards)
	if err != nil {
		return err
	}

	now := strconv.FormatInt(time.Now().Unix(), 10)
	items := []types.TransactWriteItem{}
	parentCheckIndex := -1

	if !row.Enc.IsRoot() {
		parentCheckIndex = len(items)
		items = append(items, types.TransactWriteItem{
			ConditionCheck: &types.ConditionCheck{
				TableName: aws.String(s.config.TableName),
				Key: map[string]types.AttributeValue{
					"pk": &types.AttributeValueMemberS{
						Value: shard.TreePK(row.TreeID, row.Enc.A12, row.Enc.A22, s.config.NumShards),
					},
					"sk": &types.AttributeValueMemberS{Value: shard.NodeSK(row.Enc.A12, row.Enc.A22)},
				},
				ConditionExpression:      aws.String(parentExistsCondition()),
				ExpressionAttributeNames: map[string]string{"#ttl": "ttl"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":now": &types.AttributeValueMemberN{Value: now},
				},
			},
		})
	}

	putIndex := len(items)
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:                aws.String(s.config.TableName),
			Item:                     item,
			ConditionExpression:      aws.String(vacantPositionCondition()),
			ExpressionAttributeNames: map[string]string{"#ttl": "ttl"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberN{Value: now},
			},
		},
	})

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return mapInsertTransactionError(err, parentCheckIndex, putIndex, row)
}

// Get returns the row at position pair (a11, a21), ErrNotFound if the
// item is absent or deleted.
func (s *Store) Get(ctx context.Context, treeID, a11, a21 int64) (*store.Row, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.TableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: shard.TreePK(treeID, a11, a21, s.config.NumShards)},
			"sk": &types.AttributeValueMemberS{Value: shard.NodeSK(a11, a21)},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil || IsDeleted(out.Item) {
		return nil, fmt.Errorf("%w: tree %d position (%d,%d)", store.ErrNotFound, treeID, a11, a21)
	}
	return unmarshalRow(out.Item)
}

// Select returns the rows matching q, evaluating the predicate
// client-side over the tree's partitions.
func (s *Store) Select(ctx context.Context, q store.Query) ([]*store.Row, error) {
	rows, err := s.scanTree(ctx, q.TreeID, q.Where)
	if err != nil {
		return nil, err
	}
	store.SortRows(rows, q.Order)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

// Max returns the maximum of term over matching rows.
func (s *Store) Max(ctx context.Context, treeID int64, term store.Term, where store.Expr) (int64, bool, error) {
	rows, err := s.scanTree(ctx, treeID, where)
	if err != nil {
		return 0, false, err
	}
	var max int64
	found := false
	for _, row := range rows {
		if v := term.Value(row.Enc); !found || v > max {
			max = v
			found = true
		}
	}
	return max, found, nil
}

// Count returns the number of matching rows.
func (s *Store) Count(ctx context.Context, treeID int64, where store.Expr) (int64, error) {
	rows, err := s.scanTree(ctx, treeID, where)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// Delete marks the row at position pair (a11, a21) for deletion by
// setting its TTL. Absent or already-deleted rows are a no-op.
func (s *Store) Delete(ctx context.Context, treeID, a11, a21 int64) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.config.TableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: shard.TreePK(treeID, a11, a21, s.config.NumShards)},
			"sk": &types.AttributeValueMemberS{Value: shard.NodeSK(a11, a21)},
		},
		UpdateExpression:         aws.String("SET #ttl = :now"),
		ConditionExpression:      aws.String("attribute_exists(pk) AND attribute_not_exists(#ttl)"),
		ExpressionAttributeNames: map[string]string{"#ttl": "ttl"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{
				Value: strconv.FormatInt(time.Now().Unix(), 10),
			},
		},
	})

	// Ignore condition failure - absent or already deleted
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return nil
	}
	return err
}

// scanTree fetches all active rows of a tree matching where.
func (s *Store) scanTree(ctx context.Context, treeID int64, where store.Expr) ([]*store.Row, error) {
	pks := shard.TreePKs(treeID, s.config.NumShards)

	// Fast path for single shard (default)
	if len(pks) == 1 {
		return s.scanShard(ctx, pks[0], where)
	}

	// Multi-shard fan-out
	var mu sync.Mutex
	var all []*store.Row
	var wg sync.WaitGroup
	errs := make(chan error, len(pks))

	for _, pk := range pks {
		wg.Add(1)
		go func(pk string) {
			defer wg.Done()

			rows, err := s.scanShard(ctx, pk, where)
			if err != nil {
				errs <- fmt.Errorf("shard %s: %w", pk, err)
				return
			}
			mu.Lock()
			all = append(all, rows...)
			mu.Unlock()
		}(pk)
	}

	go func() {
		wg.Wait()
		close(errs)
	}()

	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return all, nil
}

func (s *Store) scanShard(ctx context.Context, pk string, where store.Expr) ([]*store.Row, error) {
	var rows []*store.Row

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TableName),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :node)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: pk},
			":node": &types.AttributeValueMemberS{Value: "node#"},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if IsDeleted(item) {
				continue
			}
			row, err := unmarshalRow(item)
			if err != nil {
				return nil, err
			}
			if where != nil && !where.Matches(row.Enc) {
				continue
			}
			rows = append(rows, row)
		}
	}

	return rows, nil
}

// mapInsertTransactionError maps DynamoDB transaction errors for Insert.
// parentCheckIndex is the index of the parent check item (-1 if none);
// putIndex is the index of the node put item.
func mapInsertTransactionError(err error, parentCheckIndex, putIndex int, row *store.Row) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				if i == parentCheckIndex {
					return fmt.Errorf("%w: tree %d position (%d,%d)",
						store.ErrParentNotFound, row.TreeID, row.Enc.A12, row.Enc.A22)
				}
				if i == putIndex {
					return fmt.Errorf("%w: tree %d position (%d,%d)",
						store.ErrPositionTaken, row.TreeID, row.Enc.A11, row.Enc.A21)
				}
			}
		}
	}

	return err
}

package dynamo

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/arbor/internal/shard"
	"github.com/jacentio/arbor/matrix"
	"github.com/jacentio/arbor/store"
)

// marshalRow converts a row into its DynamoDB item. Matrix columns are
// stored as individual number attributes so stream consumers can rebuild
// the encoding from an item image without unmarshalling a nested map.
func marshalRow(row *store.Row, numShards int) (map[string]types.AttributeValue, error) {
	item := map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{
			Value: shard.TreePK(row.TreeID, row.Enc.A11, row.Enc.A21, numShards),
		},
		"sk":      &types.AttributeValueMemberS{Value: shard.NodeSK(row.Enc.A11, row.Enc.A21)},
		"id":      &types.AttributeValueMemberS{Value: row.ID},
		"tree_id": numAttr(row.TreeID),
		"a11":     numAttr(row.Enc.A11),
		"a12":     numAttr(row.Enc.A12),
		"a21":     numAttr(row.Enc.A21),
		"a22":     numAttr(row.Enc.A22),
	}
	if row.ParentID != "" {
		item["parent_id"] = &types.AttributeValueMemberS{Value: row.ParentID}
	}
	if len(row.Attrs) > 0 {
		attrs, err := attributevalue.MarshalMap(row.Attrs)
		if err != nil {
			return nil, fmt.Errorf("marshal attrs: %w", err)
		}
		item["attrs"] = &types.AttributeValueMemberM{Value: attrs}
	}
	return item, nil
}

// unmarshalRow converts a DynamoDB item back into a row.
func unmarshalRow(item map[string]types.AttributeValue) (*store.Row, error) {
	row := &store.Row{}

	if v, ok := item["id"].(*types.AttributeValueMemberS); ok {
		row.ID = v.Value
	}
	if v, ok := item["parent_id"].(*types.AttributeValueMemberS); ok {
		row.ParentID = v.Value
	}

	var err error
	if row.TreeID, err = numValue(item, "tree_id"); err != nil {
		return nil, err
	}
	row.Enc, err = unmarshalEncoding(item)
	if err != nil {
		return nil, err
	}

	if v, ok := item["attrs"].(*types.AttributeValueMemberM); ok {
		if err := attributevalue.UnmarshalMap(v.Value, &row.Attrs); err != nil {
			return nil, fmt.Errorf("unmarshal attrs: %w", err)
		}
	}

	return row, nil
}

// unmarshalEncoding rebuilds the matrix encoding from an item's column
// attributes.
func unmarshalEncoding(item map[string]types.AttributeValue) (matrix.Encoding, error) {
	var e matrix.Encoding
	var err error
	if e.A11, err = numValue(item, "a11"); err != nil {
		return e, err
	}
	if e.A12, err = numValue(item, "a12"); err != nil {
		return e, err
	}
	if e.A21, err = numValue(item, "a21"); err != nil {
		return e, err
	}
	if e.A22, err = numValue(item, "a22"); err != nil {
		return e, err
	}
	return e, nil
}

func numAttr(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func numValue(item map[string]types.AttributeValue, key string) (int64, error) {
	n, ok := item[key].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("arbor: item attribute %q missing or not a number", key)
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

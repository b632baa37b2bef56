package dynamo

import (
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// IsDeleted checks if an item has an expired TTL (is marked for deletion).
func IsDeleted(item map[string]types.AttributeValue) bool {
	ttlAttr, exists := item["ttl"]
	if !exists {
		return false // No TTL = active
	}
	ttlNum, ok := ttlAttr.(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	ttl, err := strconv.ParseInt(ttlNum.Value, 10, 64)
	if err != nil {
		return false
	}
	return ttl <= time.Now().Unix()
}

// parentExistsCondition is the condition expression for the parent
// check: the parent row exists and is not deleted.
func parentExistsCondition() string {
	return "attribute_exists(pk) AND (attribute_not_exists(#ttl) OR #ttl > :now)"
}

// vacantPositionCondition is the condition expression for inserting at a
// position: no item there, or only an expired (deleted) one.
func vacantPositionCondition() string {
	return "attribute_not_exists(pk) OR (attribute_exists(#ttl) AND #ttl <= :now)"
}

// Package shard provides partition and sort key construction for the
// DynamoDB node table layout.
package shard

import (
	"fmt"
	"hash/fnv"
)

// TreePK computes the partition key for a node of the given tree.
// With numShards=1, all of a tree's nodes share one partition, which
// keeps queries to a single Query call. With numShards>1, nodes are
// distributed by a hash of their position pair; wide trees trade a
// fan-out on read for more write throughput.
func TreePK(treeID, a11, a21 int64, numShards int) string {
	if numShards <= 1 {
		return fmt.Sprintf("tree#%d#00", treeID)
	}
	h := fnv.New32a()
	fmt.Fprintf(h, "%d#%d", a11, a21)
	s := h.Sum32() % uint32(numShards)
	return fmt.Sprintf("tree#%d#%02x", treeID, s)
}

// TreePKs returns every shard partition key of a tree, for read fan-out.
func TreePKs(treeID int64, numShards int) []string {
	if numShards <= 1 {
		return []string{fmt.Sprintf("tree#%d#00", treeID)}
	}
	pks := make([]string, numShards)
	for s := 0; s < numShards; s++ {
		pks[s] = fmt.Sprintf("tree#%d#%02x", treeID, s)
	}
	return pks
}

// NodeSK computes the sort key for a node from its position pair. The
// pair identifies a node uniquely within its tree, and the zero-padded
// form sorts lexicographically in (a11, a21) order.
func NodeSK(a11, a21 int64) string {
	return fmt.Sprintf("node#%010d#%010d", a11, a21)
}

package dynamo

// Config holds configuration for the DynamoDB-backed Store.
type Config struct {
	// TableName is the node table.
	// Default: "arbor_nodes"
	TableName string

	// NumShards is the number of partitions each tree's nodes are spread
	// over. Higher values increase write throughput for very wide trees
	// but require one query per shard on every read.
	// Default: 1 (single partition per tree, single query)
	// Max: 256
	NumShards int
}

// DefaultConfig returns sensible defaults for small forests.
func DefaultConfig() Config {
	return Config{
		TableName: "arbor_nodes",
		NumShards: 1,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.TableName == "" {
		c.TableName = "arbor_nodes"
	}
	if c.NumShards < 1 {
		c.NumShards = 1
	}
	if c.NumShards > 256 {
		c.NumShards = 256
	}
}

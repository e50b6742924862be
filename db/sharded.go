package db

import "github.com/spaolacci/murmur3"

const DefaultShardCount = 16

// ShardedDb partitions the keyspace by murmur3 hash into independently
// locked RedisDb instances. Each operation touches exactly one partition,
// so per-key linearizability is the same as RedisDb.
type ShardedDb struct {
	shards []*RedisDb
	mask   uint32
}

// NewSharded creates a store with n partitions. n is rounded up to a power
// of two; non-positive n selects DefaultShardCount.
func NewSharded(n int) *ShardedDb {
	if n <= 0 {
		n = DefaultShardCount
	}
	size := 1
	for size < n {
		size <<= 1
	}

	s := &ShardedDb{
		shards: make([]*RedisDb, size),
		mask:   uint32(size - 1),
	}
	for i := range s.shards {
		s.shards[i] = New()
	}
	return s
}

func (s *ShardedDb) shard(key string) *RedisDb {
	return s.shards[murmur3.Sum32([]byte(key))&s.mask]
}

// ShardCount returns the number of partitions.
func (s *ShardedDb) ShardCount() int {
	return len(s.shards)
}

func (s *ShardedDb) Set(key, value string) {
	s.shard(key).Set(key, value)
}

func (s *ShardedDb) Get(key string) (string, bool) {
	return s.shard(key).Get(key)
}

func (s *ShardedDb) Delete(key string) bool {
	return s.shard(key).Delete(key)
}

func (s *ShardedDb) Exists(key string) bool {
	return s.shard(key).Exists(key)
}

// Size sums the partitions one at a time. Under concurrent writes the
// result is not a snapshot.
func (s *ShardedDb) Size() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.Size()
	}
	return total
}

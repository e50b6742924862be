package db

import "sync"

// Store is the keyspace shared by every connection. All operations are total
// over string inputs and safe for concurrent use.
type Store interface {
	// Set inserts or overwrites key.
	Set(key, value string)
	// Get returns the value of key and whether it is present.
	Get(key string) (string, bool)
	// Delete removes key and reports whether it existed.
	Delete(key string) bool
	Exists(key string) bool
	// Size returns the number of keys.
	Size() int
}

// RedisDb is a Store guarded by one exclusive lock around a single map.
type RedisDb struct {
	mu   sync.Mutex
	dict map[string]string // the keyspace
}

func New() *RedisDb {
	return &RedisDb{
		dict: make(map[string]string),
	}
}

// Open returns a single lock store for shards <= 1 and a partitioned one
// otherwise.
func Open(shards int) Store {
	if shards <= 1 {
		return New()
	}
	return NewSharded(shards)
}

func (db *RedisDb) Set(key, value string) {
	db.mu.Lock()
	db.dict[key] = value
	db.mu.Unlock()
}

func (db *RedisDb) Get(key string) (string, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	value, ok := db.dict[key]
	return value, ok
}

func (db *RedisDb) Delete(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.dict[key]; !ok {
		return false
	}
	delete(db.dict, key)
	return true
}

func (db *RedisDb) Exists(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.dict[key]
	return ok
}

func (db *RedisDb) Size() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.dict)
}

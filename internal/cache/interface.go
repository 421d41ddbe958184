package cache

import (
	"encoding/json"
	"time"
)

// Cache defines the interface for cache backends.
// Keys are namespaced by the caller ("catalog:phone", "chat:<id>").
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	// DeletePrefix removes every key starting with prefix
	DeletePrefix(prefix string)
	Clear()
}

// Decode copies a cached value into out. The memory backend hands back the
// stored Go value while Redis hands back generic JSON, so both go through
// one JSON round trip. Returns false when the value does not fit out.
func Decode(value interface{}, out interface{}) bool {
	if value == nil {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

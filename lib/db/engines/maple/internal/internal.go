package internal

import (
	"fmt"
	"github.com/ValentinKolb/crund/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
	"sort"
	"strings"
)

// --------------------------------------------------------------------------
// Write Types are used to buffer changes of a transaction
// --------------------------------------------------------------------------

type WriteType int

const (
	WriteTSet WriteType = iota
	WriteTDelete
)

func (w WriteType) String() string {
	switch w {
	case WriteTSet:
		return "Set"
	case WriteTDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Write is a pending change of a single key
type Write struct {
	Type  WriteType
	Value []byte
}

func (w Write) String() string {
	return fmt.Sprintf("Write{Type: %s, Size: %d}", w.Type, len(w.Value))
}

// WriteSet is the buffered state of a writable transaction
type WriteSet map[string]Write

// Lookup returns the pending value of a key.
// found reports whether the write set decides the key at all.
func (ws WriteSet) Lookup(key string) (value []byte, loaded bool, found bool) {
	w, ok := ws[key]
	if !ok {
		return nil, false, false
	}
	if w.Type == WriteTDelete {
		return nil, false, true
	}
	return w.Value, true, true
}

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard represents a partition of the database
type Shard struct {
	Data *xsync.MapOf[string, []byte] // committed key-value entries
}

// NewShard creates a new shard, keys are hashed with the given seed
func NewShard(seed uint64) *Shard {
	return &Shard{
		Data: xsync.NewMapOfWithHasher[string, []byte](func(key string, mapSeed uint64) uint64 {
			return uint64(util.HashString(key, seed^mapSeed))
		}),
	}
}

// GetShard returns the appropriate shard for a given key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](key util.UintKey, shards []*T) *T {
	// Shift right by 7 bits to use higher-quality bits for distribution
	shiftedKey := uint64(key) >> 7
	shardPos := shiftedKey % uint64(len(shards))
	return shards[shardPos]
}

// CollectPrefix returns all committed keys of the shards with the given prefix, merged with the write set
// and sorted ascending.
func CollectPrefix(shards []*Shard, ws WriteSet, prefix string) []string {
	seen := make(map[string]struct{})
	for _, s := range shards {
		s.Data.Range(func(key string, _ []byte) bool {
			if strings.HasPrefix(key, prefix) {
				seen[key] = struct{}{}
			}
			return true
		})
	}
	for key, w := range ws {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if w.Type == WriteTDelete {
			delete(seen, key)
		} else {
			seen[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

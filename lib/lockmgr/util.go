package lockmgr

import (
	"crypto/rand"
)

const (
	ownerIDBytes = 32   // 256 bit
	keyPrefix    = "l/" // prefix of all lock keys in the store
)

// generateOwnerID creates a new unique owner ID
// The owner ID is a random byte slice of 256 bits.
func generateOwnerID() ([]byte, error) {
	randomBytes := make([]byte, ownerIDBytes)
	_, err := rand.Read(randomBytes)
	return randomBytes, err
}

// lockKey returns the store key of a lock
func lockKey(key string) string {
	return keyPrefix + key
}

// dedup removes duplicate keys, keeping the first occurrence
func dedup(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

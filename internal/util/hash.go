package util

import "hash/fnv"

// ContentHash fingerprints chapter text for checkpoint validation. FNV-1a is
// stable across runs and cheap enough to recompute on every load.
func ContentHash(text string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return int64(h.Sum64())
}

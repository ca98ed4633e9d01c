package feature

import (
	"crypto/sha256"
	"encoding/binary"
)

// BucketCount is the size of the rollout bucket space.
const BucketCount = 100

// Bucket maps a (userID, featureName) pair to a stable integer in [0, 100).
// The result depends only on its inputs, so rollout membership survives
// restarts and grows monotonically as the rollout percentage is raised.
func Bucket(userID, featureName string) int {
	h := sha256.New()
	h.Write([]byte(userID))
	// NUL keeps ("ab","c") and ("a","bc") apart.
	h.Write([]byte{0})
	h.Write([]byte(featureName))

	var sum [sha256.Size]byte
	h.Sum(sum[:0])
	return int(binary.BigEndian.Uint32(sum[:4]) % BucketCount)
}

// InRollout reports whether the user falls inside the first percentage buckets.
func InRollout(userID, featureName string, percentage int) bool {
	if percentage <= 0 {
		return false
	}
	if percentage >= BucketCount {
		return true
	}
	return Bucket(userID, featureName) < percentage
}

package evaluator

import (
	"crypto/sha256"
	"encoding/binary"
)

// Bucket derives the deterministic rollout bucket (0-99) for a user and
// flag. The same pair always lands in the same bucket, so a user's cohort
// is stable across processes and restarts for the lifetime of a rollout.
func Bucket(flagKey, userID string) int {
	sum := sha256.Sum256([]byte(flagKey + "_" + userID))
	return int(binary.BigEndian.Uint32(sum[:4]) % 100)
}

// InRollout reports whether the user falls inside the rollout percentage.
// 0 includes no one; 100 includes everyone without consulting the hash.
func InRollout(flagKey, userID string, percentage int) bool {
	if percentage >= 100 {
		return true
	}
	if percentage <= 0 {
		return false
	}
	return Bucket(flagKey, userID) < percentage
}

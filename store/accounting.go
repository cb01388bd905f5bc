package store

import "sync/atomic"

// Outstanding claims on mapped pages across every commit log in the process.
var (
	claims       int64
	claimedBytes int64
)

func trackClaim(n int) {
	atomic.AddInt64(&claims, 1)
	atomic.AddInt64(&claimedBytes, int64(n))
}

func untrackClaim(n int) {
	atomic.AddInt64(&claims, -1)
	atomic.AddInt64(&claimedBytes, -int64(n))
}

// Claims returns the number of select results not released yet.
func Claims() int64 {
	return atomic.LoadInt64(&claims)
}

// ClaimedBytes returns the bytes covered by select results not released yet.
func ClaimedBytes() int64 {
	return atomic.LoadInt64(&claimedBytes)
}

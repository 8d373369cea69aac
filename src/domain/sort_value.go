package domain

import (
	"sync/atomic"
	"time"
)

var lastSortValue atomic.Int64

// NextSortValue returns microseconds since epoch, forced strictly increasing within the process.
func NextSortValue() int64 {
	for {
		last := lastSortValue.Load()
		next := time.Now().UnixMicro()
		if next <= last {
			next = last + 1
		}
		if lastSortValue.CompareAndSwap(last, next) {
			return next
		}
	}
}

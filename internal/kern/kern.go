// Package kern provides the kernel-level primitives the C library core is
// built on: pipes, in-memory files, thread yield/sleep, and a monotonic clock.
//
// The stream and descriptor layers consume these through narrow contracts and
// never reach past them. Reads and writes here are non-blocking primitives;
// blocking behavior (spin with yield) is built above, in the descriptor layer.
package kern

import (
	"runtime"
	"time"
)

// Yield gives up the processor to other threads. The descriptor layer calls
// this between spin-wait attempts on busy pipes and contended locks.
func Yield() {
	runtime.Gosched()
}

// Sleep suspends the calling thread for the given duration, or until the stop
// channel closes. It reports whether the sleep ran to completion; a false
// return corresponds to an interrupted sleep (EINTR territory for callers).
func Sleep(d time.Duration, stop <-chan struct{}) bool {
	if stop == nil {
		time.Sleep(d)
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	}
}

var clockBase = time.Now()

// Now returns monotonic nanoseconds since an arbitrary epoch.
func Now() int64 {
	return int64(time.Since(clockBase))
}

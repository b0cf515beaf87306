// Package shmchan implements a point-to-point byte-stream channel over a
// named POSIX shared memory region: one writer, one reader, coupled by a
// lock-free ring buffer header and woken up via a polling Multiplexer that
// posts back onto the owning scheduler rather than ever touching a
// coroutine directly.
package shmchan

package shmchan

import (
	"sync/atomic"
	"unsafe"
)

// Ring is the shm_data header (read, write, read_index, write_index) plus
// the flexible payload bytes that follow it in a shared memory mapping.
// read/write are monotonically increasing 64-bit totals; read_index/
// write_index are those totals modulo capacity. The writer only ever
// advances write/write_index; the reader only ever advances
// read/read_index. Every field is accessed through sync/atomic so the two
// peers, which may be in different processes, observe a consistent
// release/acquire ordering without a lock.
type Ring struct {
	readTotal  *uint64
	writeTotal *uint64
	readIndex  *uint64
	writeIndex *uint64
	data       []byte
	capacity   uint64
}

// NewRing wraps mem (as returned by Region's mapping) as a Ring. mem must
// be at least headerSize+1 bytes; the portion after headerSize is the
// ring's payload.
func NewRing(mem []byte) (*Ring, error) {
	if len(mem) <= headerSize {
		return nil, ErrCapacityTooSmall
	}
	return &Ring{
		readTotal:  (*uint64)(unsafe.Pointer(&mem[0])),
		writeTotal: (*uint64)(unsafe.Pointer(&mem[8])),
		readIndex:  (*uint64)(unsafe.Pointer(&mem[16])),
		writeIndex: (*uint64)(unsafe.Pointer(&mem[24])),
		data:       mem[headerSize:],
		capacity:   uint64(len(mem) - headerSize),
	}, nil
}

// Capacity returns the total number of payload bytes the ring can hold.
func (r *Ring) Capacity() uint64 { return r.capacity }

// Readable returns the number of bytes currently available to read.
func (r *Ring) Readable() uint64 {
	write := atomic.LoadUint64(r.writeTotal)
	read := atomic.LoadUint64(r.readTotal)
	return write - read
}

// Writable returns the number of bytes currently available to write.
func (r *Ring) Writable() uint64 {
	return r.capacity - r.Readable()
}

// Write copies p into the ring, wrapping across the end if necessary, and
// publishes it by updating write_index then write (write ordered after
// the byte copy). The caller must have already confirmed Writable() >=
// len(p); Write does not block or check capacity itself.
func (r *Ring) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	writeIndex := atomic.LoadUint64(r.writeIndex)
	r.copyIn(writeIndex, p)

	newIndex := (writeIndex + uint64(len(p))) % r.capacity
	atomic.StoreUint64(r.writeIndex, newIndex)
	atomic.AddUint64(r.writeTotal, uint64(len(p)))
}

// Read copies len(p) bytes out of the ring into p, wrapping as necessary,
// then publishes consumption by updating read_index then read. The caller
// must have already confirmed Readable() >= len(p).
func (r *Ring) Read(p []byte) {
	if len(p) == 0 {
		return
	}
	readIndex := atomic.LoadUint64(r.readIndex)
	r.copyOut(readIndex, p)

	newIndex := (readIndex + uint64(len(p))) % r.capacity
	atomic.StoreUint64(r.readIndex, newIndex)
	atomic.AddUint64(r.readTotal, uint64(len(p)))
}

// PeekAt copies len(p) bytes starting offset bytes past the current read
// cursor into p, without advancing read_index or read. The caller must
// have already confirmed Readable() >= offset+len(p).
func (r *Ring) PeekAt(offset uint64, p []byte) {
	if len(p) == 0 {
		return
	}
	readIndex := atomic.LoadUint64(r.readIndex)
	at := (readIndex + offset) % r.capacity
	r.copyOut(at, p)
}

// FillAt copies p into the ring starting offset bytes past the current
// write cursor, without advancing write_index or write. The caller must
// have already confirmed Writable() >= offset+len(p).
func (r *Ring) FillAt(offset uint64, p []byte) {
	if len(p) == 0 {
		return
	}
	writeIndex := atomic.LoadUint64(r.writeIndex)
	at := (writeIndex + offset) % r.capacity
	r.copyIn(at, p)
}

func (r *Ring) copyIn(at uint64, p []byte) {
	n := copy(r.data[at:], p)
	if n < len(p) {
		copy(r.data, p[n:])
	}
}

func (r *Ring) copyOut(at uint64, p []byte) {
	n := copy(p, r.data[at:])
	if n < len(p) {
		copy(p[n:], r.data)
	}
}

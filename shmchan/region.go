//go:build linux

package shmchan

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const headerSize = 32 // read, write, read_index, write_index; each uint64

// Region is a named POSIX shared memory mapping: open-or-create semantics,
// the creator zero-initializes and sizes it, any later opener simply maps
// the existing bytes. Close unmaps; Unlink is a separate call, since other
// processes may still be attached when this one is done with its handle.
type Region struct {
	path    string
	fd      int
	mem     []byte
	created bool
}

func shmPath(name string) string {
	return "/dev/shm/" + name
}

// OpenRegion opens or creates a named shared memory region holding the
// ring header plus capacity payload bytes. The first opener to
// create the backing file zero-initializes it via Ftruncate; an opener
// that finds it already sized leaves its contents untouched.
func OpenRegion(name string, capacity int) (*Region, error) {
	if capacity <= 0 {
		return nil, ErrCapacityTooSmall
	}
	size := headerSize + capacity

	path := shmPath(name)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%s: open %q: %w", Namespace, path, err)
	}

	created := false
	st, err := os.Stat(path)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%s: stat %q: %w", Namespace, path, err)
	}
	if st.Size() == 0 {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("%s: ftruncate %q: %w", Namespace, path, err)
		}
		created = true
	} else if st.Size() != int64(size) {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%s: existing region %q has size %d, want %d", Namespace, path, st.Size(), size)
	}

	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%s: mmap %q: %w", Namespace, path, err)
	}

	return &Region{path: path, fd: fd, mem: mem, created: created}, nil
}

// Bytes returns the full mapped region, header followed by payload, for
// wrapping with NewRing.
func (r *Region) Bytes() []byte { return r.mem }

// Created reports whether this call to OpenRegion was the one that
// allocated and zero-initialized the backing file.
func (r *Region) Created() bool { return r.created }

// Close unmaps the region and closes its file descriptor. It does not
// remove the backing name; call Unlink for that.
func (r *Region) Close() error {
	var errs []error
	if r.mem != nil {
		if err := unix.Munmap(r.mem); err != nil {
			errs = append(errs, err)
		}
		r.mem = nil
	}
	if err := unix.Close(r.fd); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s: close %q: %v", Namespace, r.path, errs)
	}
	return nil
}

// Unlink removes the backing name so no future OpenRegion call will find
// it. Existing mappings (including this process's own) remain valid until
// unmapped.
func (r *Region) Unlink() error {
	if err := unix.Unlink(r.path); err != nil {
		return fmt.Errorf("%s: unlink %q: %w", Namespace, r.path, err)
	}
	return nil
}

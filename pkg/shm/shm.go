// Package shm backs the triple-buffer shared-memory region either with a
// plain heap slice (for in-process AP+PCP simulation and tests) or with a
// real POSIX shared mapping via golang.org/x/sys/unix, so the same
// descriptor table can be exercised against an actual second process.
//
// Grounded on bus_manager.go's use of golang.org/x/sys/unix constants
// for low-level frame field access; mmap itself has no close analog in
// the pack since CANopen transports never touch shared memory, so this
// package is new code built directly against the x/sys/unix API surface
// the pack already depends on.
package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Region is a contiguous byte region backing the full triple-buffer
// descriptor table.
type Region struct {
	data []byte
	file *os.File
}

// NewHeapRegion allocates an in-process region of the given size, used for
// unit tests and for an AP+PCP simulated in one process.
func NewHeapRegion(size int) *Region {
	return &Region{data: make([]byte, size)}
}

// NewMappedRegion opens (creating if necessary) path, truncates it to
// size, and maps it MAP_SHARED so a companion process mapping the same
// file observes the same bytes — the real deployment topology, where the
// AP and PCP each mmap one physically shared SRAM window.
func NewMappedRegion(path string, size int) (*Region, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shm: open %q: %w", path, err)
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		return nil, fmt.Errorf("shm: truncate %q: %w", path, err)
	}
	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shm: mmap %q: %w", path, err)
	}
	return &Region{data: data, file: file}, nil
}

// Slice returns the sub-region [offset, offset+size) for a single buffer
// descriptor to be wrapped in a tbuf.Buffer.
func (r *Region) Slice(offset, size int) ([]byte, error) {
	if offset < 0 || size < 0 || offset+size > len(r.data) {
		return nil, fmt.Errorf("shm: slice [%d:%d) out of bounds (region size %d)", offset, offset+size, len(r.data))
	}
	return r.data[offset : offset+size], nil
}

func (r *Region) Len() int { return len(r.data) }

// Close unmaps and closes the backing file, a no-op for heap regions.
func (r *Region) Close() error {
	if r.file == nil {
		return nil
	}
	if err := unix.Munmap(r.data); err != nil {
		r.file.Close()
		return fmt.Errorf("shm: munmap: %w", err)
	}
	return r.file.Close()
}

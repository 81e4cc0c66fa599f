//go:build linux

// Package storage opens and sizes the data files the batch engine operates
// on. The engine itself never opens, resizes, or closes descriptors; the
// container owns the file for its whole lifetime and hands out the
// descriptor for batch calls.
package storage

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Container owns one data file. Not safe for concurrent Close; batch calls
// against File() must be serialized by the caller.
type Container struct {
	file   *os.File
	path   string
	closed bool
}

// Open opens (creating if needed) the data file at path and preallocates it
// to at least size bytes so range-addressed writes never race file growth.
func Open(path string, size int64) (*Container, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w", path, err)
	}

	if size > 0 {
		err = unix.Fallocate(int(f.Fd()), 0, 0, size)
		if errors.Is(err, unix.EOPNOTSUPP) {
			// Filesystem without fallocate support (e.g. tmpfs on old
			// kernels): fall back to truncate.
			err = f.Truncate(size)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("preallocate container %s: %w", path, err)
		}
	}

	return &Container{file: f, path: path}, nil
}

// File returns the underlying descriptor for batch calls. The container
// keeps it valid until Close.
func (c *Container) File() *os.File {
	return c.file
}

// Path returns the file path the container was opened with.
func (c *Container) Path() string {
	return c.path
}

// Size returns the current file size in bytes.
func (c *Container) Size() (int64, error) {
	info, err := c.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat container %s: %w", c.path, err)
	}
	return info.Size(), nil
}

// Close releases the descriptor. Idempotent.
func (c *Container) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.file.Close()
}

//go:build unix

// Package mmap provides read-only access to a file's bytes, mapped
// into memory where the platform supports it.
package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// Map returns the content of the file as a read-only byte slice and a
// function releasing the mapping.
func Map(path string) (data []byte, done func() error, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := fi.Size()
	if size == 0 {
		return nil, func() error { return nil }, nil
	}
	data, err = unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ,
		unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return unix.Munmap(data) }, nil
}

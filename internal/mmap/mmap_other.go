//go:build !unix

package mmap

import "os"

// Map returns the content of the file. On platforms without memory
// mapping support the file is read into memory.
func Map(path string) (data []byte, done func() error, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}

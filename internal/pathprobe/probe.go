// Package pathprobe checks a directory for existence, readability, and
// writability without ever panicking or returning an error to the caller —
// failures are reported as false bits (spec.md §4.A).
package pathprobe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Result is the triple spec.md §4.A defines.
type Result struct {
	IsAccessible bool
	HasRead      bool
	HasWrite     bool
}

// Probe checks path and never returns an error: any failure encountered is
// caught and reflected as the relevant bit being false.
func Probe(path string) Result {
	var res Result

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return res
	}
	res.IsAccessible = true

	res.HasRead = canRead(path)
	res.HasWrite = canWrite(path)
	return res
}

// canRead is tested by attempting to enumerate one directory entry.
func canRead(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	return err == nil || isEOF(err)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

// canWrite is tested by creating and deleting a uniquely-named zero-byte
// probe file.
func canWrite(path string) bool {
	name := filepath.Join(path, fmt.Sprintf(".tanaste-probe-%d", time.Now().UnixNano()))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(name)
	return true
}

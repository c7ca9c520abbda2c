// Package util provides small shared helpers for fspec.
package util

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
)

// AtomicWriteJSON writes v as pretty-printed JSON to path atomically.
func AtomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return AtomicWriteFile(path, append(data, '\n'), 0644)
}

// AtomicWriteFile writes data to a file atomically: the bytes go to a
// uniquely named temp file next to the target, which is then renamed over
// it. The unique suffix keeps two racing invocations from clobbering each
// other's temp file before either reaches the rename.
//
// When the rename fails, the temp-file cleanup error is deliberately
// discarded; the caller needs the rename failure, not the cleanup one.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp-" + uuid.NewString()[:8]

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

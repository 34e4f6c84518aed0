//go:build unix

package sysutil

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// CheckReadable verifies that dir is a directory the process can list
func CheckReadable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	// listing needs read and search permission
	if err := unix.Access(dir, unix.R_OK|unix.X_OK); err != nil {
		return &os.PathError{Op: "access", Path: dir, Err: err}
	}
	return nil
}

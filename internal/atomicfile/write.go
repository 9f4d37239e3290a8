// Package atomicfile writes files so readers never observe a partial write:
// content goes to a synced temp file in the target's directory, which then
// replaces or claims the target name in one step.
package atomicfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Write atomically replaces path with data. See [WriteFunc].
func Write(path string, data []byte, perm os.FileMode) error {
	return WriteFunc(path, perm, fromBytes(data))
}

// WriteFunc atomically replaces path with whatever fill writes. If fill or
// any later step fails the temp file is removed and path is left untouched.
func WriteFunc(path string, perm os.FileMode, fill func(io.Writer) error) error {
	tmp, err := stage(path, perm, fill)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Create writes data to path only if path does not exist yet. The check and
// the write are one step, so two concurrent callers cannot both succeed.
// The error wraps [fs.ErrExist] when path is already taken.
func Create(path string, data []byte, perm os.FileMode) error {
	tmp, err := stage(path, perm, fromBytes(data))
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	if err := os.Link(tmp, path); err != nil {
		return fmt.Errorf("claim %s: %w", filepath.Base(path), unwrapLink(err))
	}
	return nil
}

// stage writes a synced temp file next to path with the given permissions
// and returns its name.
func stage(path string, perm os.FileMode, fill func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()

	err = fill(f)
	if err != nil {
		err = fmt.Errorf("write temp file: %w", err)
	} else if err = f.Sync(); err != nil {
		err = fmt.Errorf("sync temp file: %w", err)
	}
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close temp file: %w", closeErr)
	}
	if err == nil {
		if chErr := os.Chmod(name, perm); chErr != nil {
			err = fmt.Errorf("chmod temp file: %w", chErr)
		}
	}
	if err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func fromBytes(data []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	}
}

// unwrapLink drops the *os.LinkError wrapper, whose message names the temp
// file rather than the target.
func unwrapLink(err error) error {
	if le, ok := err.(*os.LinkError); ok {
		return le.Err
	}
	return err
}

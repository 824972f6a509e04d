// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package stagingfile writes a file in a temporary location and then moves it
// into place atomically.
package stagingfile

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// F is a staged file.
//
// While F is active, it resides in a temporary location. Once finished, F can
// either be committed or destroyed. On commit, it is atomically moved to its
// destination; on destroy, it is deleted.
//
// F implements io.WriteCloser. Closing F closes the underlying file but
// neither commits nor destroys it.
type F struct {
	// path is the path of the staged file. It is empty once F has been
	// committed or destroyed.
	path string
	// dest is the destination path.
	dest string

	fd     *os.File
	closed bool
}

// New creates a staged file for dest.
//
// The staged file is created in tempDir. If tempDir is empty, it is created
// alongside dest, so that the final move stays within one filesystem.
func New(tempDir, dest string) (*F, error) {
	if tempDir == "" {
		tempDir = filepath.Dir(dest)
	}

	fd, err := os.CreateTemp(tempDir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, "creating staging file")
	}
	return &F{
		path: fd.Name(),
		dest: dest,
		fd:   fd,
	}, nil
}

// Path returns the path of the staged file, or "" if it has been committed or
// destroyed.
func (sf *F) Path() string { return sf.path }

// Dest returns the destination path.
func (sf *F) Dest() string { return sf.dest }

// Write implements io.Writer.
func (sf *F) Write(d []byte) (int, error) {
	if sf.closed {
		return 0, os.ErrClosed
	}
	return sf.fd.Write(d)
}

// Close closes the staged file. It is safe to call Close more than once.
func (sf *F) Close() error {
	if sf.closed {
		return nil
	}
	sf.closed = true
	return sf.fd.Close()
}

// Destroy closes and deletes the staged file.
func (sf *F) Destroy() error {
	if sf.path == "" {
		// There is nothing to destroy.
		return nil
	}

	_ = sf.Close()
	if err := os.Remove(sf.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	sf.path = "" // Destroyed.
	return nil
}

// Commit closes the staged file and atomically moves it to its destination,
// replacing anything already there.
func (sf *F) Commit() error {
	// If we've already been committed, this is an error.
	if sf.path == "" {
		return errors.New("invalid staging file")
	}

	if err := sf.Close(); err != nil {
		return errors.Wrap(err, "closing staging file")
	}

	if err := os.Rename(sf.path, sf.dest); err != nil {
		return errors.Wrapf(err, "moving staging file into place (%q => %q)", sf.path, sf.dest)
	}
	sf.path = "" // Committed.
	return nil
}

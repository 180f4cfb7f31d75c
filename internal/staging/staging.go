// SPDX-License-Identifier: MPL-2.0

// Package staging manages the private working directory of one package build.
//
// An Area is created empty at build start and holds every copied input file and
// every generated control file. Paths passed to Area methods are relative to
// the area root.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const dirPrefix = "sunpkg-staging-"

// ErrNotFresh is returned when a staging directory already has content.
// Packaging tools are not idempotent, so builds must start from an empty area.
var ErrNotFresh = errors.New("staging area is not empty")

// Area is a per-build scratch directory.
type Area struct {
	root string
	fs   billy.Filesystem
}

// New creates a fresh, empty staging directory under baseDir. An empty baseDir
// means the system temporary directory.
func New(baseDir string) (*Area, error) {
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0o755); err != nil {
			return nil, fmt.Errorf("create staging base %s: %w", baseDir, err)
		}
	}
	root, err := os.MkdirTemp(baseDir, dirPrefix)
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	return &Area{root: root, fs: osfs.New(root)}, nil
}

// Open adopts an existing directory as the staging area. The directory is
// created when missing and must otherwise be empty.
func Open(dir string) (*Area, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve staging directory %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory %s: %w", abs, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read staging directory %s: %w", abs, err)
	}
	if len(entries) > 0 {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotFresh)
	}
	return &Area{root: abs, fs: osfs.New(abs)}, nil
}

// Root is the absolute path of the area on disk.
func (a *Area) Root() string {
	return a.root
}

// Path joins elem onto the area root.
func (a *Area) Path(elem ...string) string {
	return filepath.Join(append([]string{a.root}, elem...)...)
}

// FS exposes the area as a billy filesystem rooted at Root.
func (a *Area) FS() billy.Filesystem {
	return a.fs
}

// MkdirAll creates a directory and its parents inside the area.
func (a *Area) MkdirAll(name string) error {
	if err := a.fs.MkdirAll(name, 0o755); err != nil {
		return fmt.Errorf("staging: mkdir %q: %w", name, err)
	}
	return nil
}

// WriteFile writes data to name, creating parent directories as needed.
func (a *Area) WriteFile(name string, data []byte, perm os.FileMode) error {
	if dir := path.Dir(filepath.ToSlash(name)); dir != "." {
		if err := a.MkdirAll(dir); err != nil {
			return err
		}
	}
	if err := util.WriteFile(a.fs, name, data, perm); err != nil {
		return fmt.Errorf("staging: write %q: %w", name, err)
	}
	return nil
}

// ReadFile returns the content of name.
func (a *Area) ReadFile(name string) ([]byte, error) {
	data, err := util.ReadFile(a.fs, name)
	if err != nil {
		return nil, fmt.Errorf("staging: read %q: %w", name, err)
	}
	return data, nil
}

// Exists reports whether name exists inside the area.
func (a *Area) Exists(name string) (bool, error) {
	_, err := a.fs.Lstat(name)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("staging: stat %q: %w", name, err)
	}
}

// Walk visits every entry below dir in lexical order.
func (a *Area) Walk(dir string, fn filepath.WalkFunc) error {
	return util.Walk(a.fs, dir, fn)
}

// CopyFile copies a single regular file from src into the area at dst,
// preserving its permission bits unless perm is non-zero.
func (a *Area) CopyFile(src billy.Filesystem, srcName, dst string, perm os.FileMode) error {
	info, err := src.Stat(srcName)
	if err != nil {
		return fmt.Errorf("staging: stat %q: %w", srcName, err)
	}
	if perm == 0 {
		perm = info.Mode().Perm()
	}
	if dir := path.Dir(filepath.ToSlash(dst)); dir != "." {
		if err := a.MkdirAll(dir); err != nil {
			return err
		}
	}
	return copyFile(src, srcName, a.fs, dst, perm)
}

// Destroy removes the area and everything in it.
func (a *Area) Destroy() error {
	if err := os.RemoveAll(a.root); err != nil {
		return fmt.Errorf("remove staging directory %s: %w", a.root, err)
	}
	return nil
}

func copyFile(src billy.Filesystem, srcName string, dst billy.Filesystem, dstName string, perm os.FileMode) (err error) {
	in, err := src.Open(srcName)
	if err != nil {
		return fmt.Errorf("staging: open %q: %w", srcName, err)
	}
	defer in.Close()

	out, err := dst.OpenFile(dstName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("staging: create %q: %w", dstName, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("staging: close %q: %w", dstName, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("staging: copy %q: %w", srcName, err)
	}
	return nil
}

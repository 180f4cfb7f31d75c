// SPDX-License-Identifier: MPL-2.0

package staging

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/gobwas/glob"
)

// Excluder matches paths that must not be synced.
type Excluder struct {
	patterns []glob.Glob
}

// NewExcluder compiles exclusion patterns. Patterns use glob syntax with '/'
// as the separator, so '*' does not cross directories and '**' does.
func NewExcluder(patterns []string) (*Excluder, error) {
	e := &Excluder{patterns: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclusion %q: %w", p, err)
		}
		e.patterns = append(e.patterns, g)
	}
	return e, nil
}

// Match reports whether rel, a slash-separated path relative to the sync
// source, is excluded. Both the full relative path and its base name are tried.
func (e *Excluder) Match(rel string) bool {
	if e == nil {
		return false
	}
	base := path.Base(rel)
	for _, g := range e.patterns {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// Sync copies the tree at srcDir in src to dstDir inside the area. Entries
// matched by excl are skipped; an excluded directory is skipped entirely.
// Regular files keep their permission bits and symlinks are recreated.
func (a *Area) Sync(src billy.Filesystem, srcDir, dstDir string, excl *Excluder) error {
	info, err := src.Stat(srcDir)
	if err != nil {
		return fmt.Errorf("staging: sync source %q: %w", srcDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("staging: sync source %q is not a directory", srcDir)
	}
	if err := a.MkdirAll(dstDir); err != nil {
		return err
	}

	return util.Walk(src, srcDir, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return fmt.Errorf("staging: relative path of %q: %w", p, err)
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if excl.Match(rel) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dst := path.Join(filepath.ToSlash(dstDir), rel)
		switch {
		case fi.IsDir():
			return a.fs.MkdirAll(dst, fi.Mode().Perm()|0o700)
		case fi.Mode()&os.ModeSymlink != 0:
			return syncSymlink(src, p, a.fs, dst)
		case fi.Mode().IsRegular():
			return copyFile(src, p, a.fs, dst, fi.Mode().Perm())
		default:
			return nil
		}
	})
}

func syncSymlink(src billy.Filesystem, srcName string, dst billy.Filesystem, dstName string) error {
	target, err := src.Readlink(srcName)
	if err != nil {
		return fmt.Errorf("staging: readlink %q: %w", srcName, err)
	}
	if err := dst.Symlink(target, dstName); err != nil {
		return fmt.Errorf("staging: symlink %q: %w", dstName, err)
	}
	return nil
}

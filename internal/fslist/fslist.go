// SPDX-License-Identifier: MPL-2.0

// Package fslist holds the set of directories that belong to the operating
// system itself. SVR4 packages must not claim them.
package fslist

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed filesystem_list
var defaultList string

// List is an immutable set of absolute directory paths.
type List struct {
	dirs map[string]struct{}
}

// Default returns the built-in Solaris filesystem directory list.
func Default() *List {
	l, err := Parse(strings.NewReader(defaultList))
	if err != nil {
		panic(fmt.Sprintf("embedded filesystem_list: %v", err))
	}
	return l
}

// Load reads a newline-delimited list of paths from filename.
func Load(filename string) (*List, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open filesystem list: %w", err)
	}
	defer f.Close()

	l, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return l, nil
}

// Parse reads one path per line. Blank lines are ignored; whitespace at the
// end of a line is not part of the path.
func Parse(r io.Reader) (*List, error) {
	l := &List{dirs: make(map[string]struct{})}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			continue
		}
		l.dirs[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read filesystem list: %w", err)
	}
	return l, nil
}

// Contains reports whether dir is a known filesystem directory. A nil List
// contains nothing.
func (l *List) Contains(dir string) bool {
	if l == nil {
		return false
	}
	_, ok := l.dirs[dir]
	return ok
}

// Len is the number of entries in the list.
func (l *List) Len() int {
	return len(l.dirs)
}

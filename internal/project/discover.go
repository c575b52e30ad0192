package project

import (
	"fmt"
	"path/filepath"
)

// bytecodeExt is the on-disk extension mvbc.Load's input files carry.
const bytecodeExt = ".mv"

// DiscoverBytecodeFiles globs every *.mv file directly under each of
// dirs (dependency search paths are flat, not recursive — a dependency
// is a directory of compiled modules, not a nested package tree).
func DiscoverBytecodeFiles(dirs []string) ([]string, error) {
	var out []string
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+bytecodeExt))
		if err != nil {
			return nil, fmt.Errorf("project: globbing %q: %w", dir, err)
		}
		out = append(out, matches...)
	}
	return out, nil
}

package driver

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
)

// readFile is one dependency candidate's bytes plus its own digest,
// computed off the shared *mvbc.Program so reading every file in a
// dependency search path can run concurrently (the module graph makes
// Load itself order-sensitive, but nothing stops the disk I/O and
// hashing that precedes it from happening in parallel). Uses
// golang.org/x/sync's errgroup to fan out independent per-file work
// before a sequential merge step.
type readFile struct {
	path   string
	bytes  []byte
	digest Digest
}

func readFilesParallel(paths []string) ([]readFile, error) {
	out := make([]readFile, len(paths))
	g := new(errgroup.Group)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			b, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("driver: reading %q: %w", p, err)
			}
			out[i] = readFile{path: p, bytes: b, digest: Combine(b)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// loadTransitiveClosure loads rootBytes plus every file under depPaths
// into a fresh *mvbc.Program. Move's module graph only records which
// modules a module Uses, not a file-system ordering, so file contents
// are read up front (in parallel) and then linked into prog with a
// fixed-point retry: a file that fails with ErrUnresolvedHandle is
// requeued, since the dependency it names may simply not have been
// linked yet, exactly the bottom-up constraint mvbc.Load's doc comment
// describes. A pass that links nothing new is a genuine error (a
// missing dependency or an actual cycle), not more retries to spend.
func loadTransitiveClosure(rootPath string, rootBytes []byte, depFiles []readFile) (*mvbc.Program, error) {
	prog := mvbc.NewProgram()

	pending := make([]readFile, 0, len(depFiles)+1)
	pending = append(pending, depFiles...)
	pending = append(pending, readFile{path: rootPath, bytes: rootBytes, digest: Combine(rootBytes)})

	rootSeen := false
	for len(pending) > 0 {
		next := pending[:0:0]
		progressed := false
		var lastErr error
		for _, f := range pending {
			mod, err := mvbc.Load(prog, f.bytes)
			if err != nil {
				var lerr *mvbc.LoadError
				if errors.As(err, &lerr) && lerr.Kind == mvbc.ErrUnresolvedHandle {
					next = append(next, f)
					lastErr = err
					continue
				}
				return nil, fmt.Errorf("driver: loading %q: %w", f.path, err)
			}
			if f.path == rootPath {
				prog.Root = mod.ID
				rootSeen = true
			}
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("driver: module dependency graph did not resolve (missing dependency or cycle): %w", lastErr)
		}
		pending = next
	}
	if !rootSeen {
		return nil, fmt.Errorf("driver: root module %q never loaded", rootPath)
	}
	return prog, nil
}

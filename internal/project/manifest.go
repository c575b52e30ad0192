// Package project resolves a movewasm.toml manifest into the ordered
// module search path internal/driver's Compile needs: everything
// upstream of mvbc.Load that decides *which* files to feed the loader
// lives here, not in the compiler stages themselves. It is a
// standalone package rather than CLI-internal helpers since
// movewasm's CLI, tests, and any future IDE integration all need the
// same manifest resolution.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is a parsed movewasm.toml: its own location plus the
// decoded [package]/[build] tables.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors movewasm.toml's table layout.
type Config struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
}

// PackageConfig names the project being built.
type PackageConfig struct {
	Name string `toml:"name"`
}

// BuildConfig names the root bytecode file and its dependency search
// path, relative to the manifest's own directory.
type BuildConfig struct {
	Main string   `toml:"main"`
	Deps []string `toml:"deps"`
}

const manifestFileName = "movewasm.toml"

// Find walks upward from startDir looking for movewasm.toml, the
// standard nearest-ancestor search a project-root manifest lookup
// performs.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("project: resolving start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("project: stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load finds and parses the manifest for startDir, returning
// (nil, false, nil) when none exists rather than an error: the CLI's
// `build` subcommand falls back to an explicit module path argument in
// that case.
func Load(startDir string) (*Manifest, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: parsing TOML: %w", path, err)
	}
	if !meta.IsDefined("package") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	if !meta.IsDefined("build") || strings.TrimSpace(cfg.Build.Main) == "" {
		return Config{}, fmt.Errorf("%s: missing [build].main", path)
	}
	return cfg, nil
}

// MainPath returns the root bytecode file's absolute path.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.Root, filepath.FromSlash(m.Config.Build.Main))
}

// DepPaths returns the manifest's declared dependency search
// directories, as absolute paths in declaration order (the order
// internal/driver's bottom-up loader uses when two dependencies are
// otherwise unordered by the "use" graph).
func (m *Manifest) DepPaths() []string {
	out := make([]string, len(m.Config.Build.Deps))
	for i, d := range m.Config.Build.Deps {
		out[i] = filepath.Join(m.Root, filepath.FromSlash(d))
	}
	return out
}

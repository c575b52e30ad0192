package driver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// diskCacheSchemaVersion guards against a stale cache surviving a
// change to Payload's shape; bump it whenever Payload changes.
const diskCacheSchemaVersion uint16 = 2

// Payload is what DiskCache persists per Digest: the fully assembled
// WASM binary plus the router's selector table. `movewasm selectors`
// does not read it; it derives the table from the loaded program.
type Payload struct {
	Schema    uint16
	Wasm      []byte
	Selectors []SelectorEntry
}

// DiskCache persists compiled module output keyed by Digest: one
// msgpack file per digest under $XDG_CACHE_HOME, written via a
// temp-file-then-rename so a crash mid-write never leaves a corrupt
// entry a later Get could trust.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskCache opens (creating if absent) the on-disk cache for app.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "modules", hex.EncodeToString(key[:])+".mp")
}

// Get reads and deserializes the payload for key, if present.
func (c *DiskCache) Get(key Digest) (*Payload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var p Payload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		return nil, false, err
	}
	if p.Schema != diskCacheSchemaVersion {
		return nil, false, nil
	}
	return &p, true, nil
}

// Put serializes and atomically installs payload under key.
func (c *DiskCache) Put(key Digest, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	payload.Schema = diskCacheSchemaVersion
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	defer os.Remove(tmpName)

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return fmt.Errorf("driver: encoding cache payload: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, p)
}

package mono

import (
	"github.com/rather-labs/move-stylus-poc/internal/diag"
	"github.com/rather-labs/move-stylus-poc/internal/mvbc"
	"github.com/rather-labs/move-stylus-poc/internal/types"
)

// UseSite records one call site that demanded a particular
// instantiation, kept for `movewasm inspect` reporting.
type UseSite struct {
	At     diag.Location
	Caller mvbc.FunctionID
}

// InstEntry captures every use site of one (template, type args) pair.
type InstEntry struct {
	Key      Key
	TypeArgs []types.TypeID
	Instance mvbc.FunctionID
	UseSites []UseSite
}

// InstantiationMap tracks every generic function instantiation
// produced during a monomorphization run.
type InstantiationMap struct {
	entries map[Key]*InstEntry
}

func newInstantiationMap() *InstantiationMap {
	return &InstantiationMap{entries: make(map[Key]*InstEntry)}
}

func (m *InstantiationMap) record(key Key, args []types.TypeID, instance mvbc.FunctionID, at diag.Location, caller mvbc.FunctionID) *InstEntry {
	entry, ok := m.entries[key]
	if !ok {
		entry = &InstEntry{Key: key, TypeArgs: args, Instance: instance}
		m.entries[key] = entry
	}
	entry.UseSites = append(entry.UseSites, UseSite{At: at, Caller: caller})
	return entry
}

// Entries returns every recorded instantiation, keyed by template and args.
func (m *InstantiationMap) Entries() map[Key]*InstEntry { return m.entries }

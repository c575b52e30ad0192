// Package strtab interns identifier strings pulled out of the bytecode
// identifier pool so downstream stages compare cheap integer IDs
// instead of strings.
package strtab

// StringID is a stable handle into an Interner.
type StringID uint32

// NoStringID marks the absence of an interned string.
const NoStringID StringID = 0

// Interner deduplicates strings behind small integer handles.
type Interner struct {
	byID  []string
	index map[string]StringID
}

// New constructs an empty interner. Slot 0 is reserved for NoStringID.
func New() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": 0},
	}
}

// Intern returns a stable ID for s, allocating one if needed.
func (in *Interner) Intern(s string) StringID {
	if id, ok := in.index[s]; ok {
		return id
	}
	cpy := string([]byte(s))
	id := StringID(len(in.byID))
	in.byID = append(in.byID, cpy)
	in.index[cpy] = id
	return id
}

// Lookup returns the string for id, or ("", false) if id is invalid.
func (in *Interner) Lookup(id StringID) (string, bool) {
	if int(id) >= len(in.byID) {
		return "", false
	}
	return in.byID[id], true
}

// MustLookup panics if id is invalid.
func (in *Interner) MustLookup(id StringID) string {
	s, ok := in.Lookup(id)
	if !ok {
		panic("strtab: invalid string ID")
	}
	return s
}

// Len reports how many distinct strings are interned, excluding the
// NoStringID sentinel.
func (in *Interner) Len() int { return len(in.byID) - 1 }

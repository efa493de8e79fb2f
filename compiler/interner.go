package compiler

// preInterned names receive the lowest ids, in this order, so that common
// variable names never grow the table.
var preInterned = []string{
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
	"result", "value", "temp", "count", "index", "data",
}

// Interner assigns stable numeric ids to variable and function names.
// Variables and functions share one id space. An Interner is not safe for
// concurrent use.
type Interner struct {
	ids   map[string]uint32
	names []string
}

// NewInterner returns an Interner pre-seeded with the single letter names
// a through z followed by result, value, temp, count, index and data.
func NewInterner() *Interner {
	in := &Interner{ids: make(map[string]uint32, len(preInterned))}
	for _, name := range preInterned {
		in.Intern(name)
	}
	return in
}

// Intern returns the id for name, assigning the next id if the name has
// not been seen before.
func (in *Interner) Intern(name string) uint32 {
	if id, ok := in.ids[name]; ok {
		return id
	}
	id := uint32(len(in.names))
	in.ids[name] = id
	in.names = append(in.names, name)
	return id
}

// Lookup returns the id for name without interning it.
func (in *Interner) Lookup(name string) (uint32, bool) {
	id, ok := in.ids[name]
	return id, ok
}

// Name returns the name with the given id.
func (in *Interner) Name(id uint32) (string, bool) {
	if int(id) >= len(in.names) {
		return "", false
	}
	return in.names[id], true
}

// Names returns every interned name ordered by id.
func (in *Interner) Names() []string {
	names := make([]string, len(in.names))
	copy(names, in.names)
	return names
}

// Len returns the number of interned names.
func (in *Interner) Len() int {
	return len(in.names)
}

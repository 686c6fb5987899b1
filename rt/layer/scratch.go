package layer

// ScratchArena hands out reusable byte slices for partial buffer writes so
// that toggling state every frame does not allocate. Slices are keyed by
// length; a slice returned by Bytes is only valid until the next call with
// the same length.
//
// Layers share one arena. Each layer acquires it when created and releases
// it when destroyed; the cached slices are dropped when the last user
// releases.
type ScratchArena struct {
	refs  int
	byLen map[int][]byte
}

func NewScratchArena() *ScratchArena {
	return &ScratchArena{byLen: make(map[int][]byte)}
}

// Acquire registers a user of the arena.
func (a *ScratchArena) Acquire() {
	a.refs++
}

// Release unregisters a user. The last release frees every cached slice.
func (a *ScratchArena) Release() {
	if a.refs == 0 {
		return
	}
	a.refs--
	if a.refs == 0 {
		a.byLen = make(map[int][]byte)
	}
}

func (a *ScratchArena) Refs() int { return a.refs }

// Cached returns the number of distinct slice lengths currently held.
func (a *ScratchArena) Cached() int { return len(a.byLen) }

// Bytes returns a slice of exactly n bytes. Contents are unspecified.
func (a *ScratchArena) Bytes(n int) []byte {
	if b, ok := a.byLen[n]; ok {
		return b
	}
	b := make([]byte, n)
	a.byLen[n] = b
	return b
}

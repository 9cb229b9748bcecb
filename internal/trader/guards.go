package trader

import "sync"

// Side selects one of the in-flight guard sets.
type Side int

const (
	Buying Side = iota
	Selling
)

func (s Side) String() string {
	if s == Buying {
		return "buying"
	}
	return "selling"
}

// Guards are the single-flight sets of identities with a swap in progress.
// An identity is in at most one set at a time.
type Guards struct {
	mu      sync.Mutex
	buying  map[string]struct{}
	selling map[string]struct{}
}

// NewGuards creates empty guard sets.
func NewGuards() *Guards {
	return &Guards{
		buying:  make(map[string]struct{}),
		selling: make(map[string]struct{}),
	}
}

// TryAcquire reserves identity for side. It fails if identity is already held
// in either set. The returned release func is safe to call more than once.
func (g *Guards) TryAcquire(identity string, side Side) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.buying[identity]; held {
		return nil, false
	}
	if _, held := g.selling[identity]; held {
		return nil, false
	}
	set := g.set(side)
	set[identity] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(set, identity)
			g.mu.Unlock()
		})
	}, true
}

// Held reports whether identity is in either set.
func (g *Guards) Held(identity string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, b := g.buying[identity]
	_, s := g.selling[identity]
	return b || s
}

// HeldFor reports whether identity is in the set of side.
func (g *Guards) HeldFor(identity string, side Side) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.set(side)[identity]
	return ok
}

// Len returns the size of the set of side.
func (g *Guards) Len(side Side) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.set(side))
}

func (g *Guards) set(side Side) map[string]struct{} {
	if side == Buying {
		return g.buying
	}
	return g.selling
}

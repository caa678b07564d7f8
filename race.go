package querysync

import "sync"

// RaceGuard is a consumer's "this operation still matters" cell. It names at
// most one key at a time. Each consumer owns its own guard, so canceling it
// never affects siblings watching the same key.
//
// The zero value is ready to use and names no key.
type RaceGuard struct {
	mu     sync.Mutex
	active string
	set    bool
}

func (g *RaceGuard) SetActive(key Key) { g.setActive(key.String()) }

// Cancel makes IsActive false for every key.
func (g *RaceGuard) Cancel() {
	g.mu.Lock()
	g.active, g.set = "", false
	g.mu.Unlock()
}

func (g *RaceGuard) IsActive(key Key) bool { return g.isActive(key.String()) }

func (g *RaceGuard) setActive(id string) {
	g.mu.Lock()
	g.active, g.set = id, true
	g.mu.Unlock()
}

func (g *RaceGuard) isActive(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set && g.active == id
}

// cancelIf cancels only while the guard still names id, so a settling request
// for an old key does not clear the guard of a newer one.
func (g *RaceGuard) cancelIf(id string) {
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.set && g.active == id {
		g.active, g.set = "", false
	}
	g.mu.Unlock()
}

// isActiveOrNil treats a missing guard as always active.
func (g *RaceGuard) isActiveOrNil(id string) bool {
	return g == nil || g.isActive(id)
}

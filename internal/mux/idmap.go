package mux

import (
	"sync"

	"panemux/internal/layout"
)

// IDMap is a pair of bijections: TabID <-> %N and WindowID <-> @N. Each
// side has an independent monotonic counter starting at 0; register is
// idempotent, unregister removes both directions, and numbers are never
// reused once assigned.
type IDMap struct {
	mu sync.RWMutex

	tabToNum map[TabID]uint32
	numToTab map[uint32]TabID
	nextTab  uint32

	winToNum map[layout.WindowID]uint32
	numToWin map[uint32]layout.WindowID
	nextWin  uint32
}

// NewIDMap returns an empty map with both counters starting at 0.
func NewIDMap() *IDMap {
	return &IDMap{
		tabToNum: map[TabID]uint32{},
		numToTab: map[uint32]TabID{},
		winToNum: map[layout.WindowID]uint32{},
		numToWin: map[uint32]layout.WindowID{},
	}
}

// RegisterTab assigns the next %N to id if it has none yet, and returns the
// (possibly pre-existing) number.
func (m *IDMap) RegisterTab(id TabID) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.tabToNum[id]; ok {
		return n
	}
	n := m.nextTab
	m.nextTab++
	m.tabToNum[id] = n
	m.numToTab[n] = id
	return n
}

// UnregisterTab removes both directions of the mapping for id. The number
// is never reassigned to a different tab afterward.
func (m *IDMap) UnregisterTab(id TabID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.tabToNum[id]; ok {
		delete(m.tabToNum, id)
		delete(m.numToTab, n)
	}
}

// TabNumber returns the %N assigned to id, if any.
func (m *IDMap) TabNumber(id TabID) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.tabToNum[id]
	return n, ok
}

// TabByNumber resolves %N back to a TabID.
func (m *IDMap) TabByNumber(n uint32) (TabID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.numToTab[n]
	return id, ok
}

// RegisterWindow assigns the next @N to id if it has none yet.
func (m *IDMap) RegisterWindow(id layout.WindowID) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.winToNum[id]; ok {
		return n
	}
	n := m.nextWin
	m.nextWin++
	m.winToNum[id] = n
	m.numToWin[n] = id
	return n
}

// UnregisterWindow removes both directions of the mapping for id.
func (m *IDMap) UnregisterWindow(id layout.WindowID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.winToNum[id]; ok {
		delete(m.winToNum, id)
		delete(m.numToWin, n)
	}
}

// WindowNumber returns the @N assigned to id, if any.
func (m *IDMap) WindowNumber(id layout.WindowID) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.winToNum[id]
	return n, ok
}

// WindowByNumber resolves @N back to a WindowID.
func (m *IDMap) WindowByNumber(n uint32) (layout.WindowID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.numToWin[n]
	return id, ok
}

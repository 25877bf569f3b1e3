package tablist

import (
	"sync"

	"github.com/google/uuid"
)

// Entry is one row of the tab list, strongly owned by whoever created
// it (typically the player/connection object). TabList only ever
// tracks entries weakly (see tablist.go), so once every strong
// reference is dropped the entry silently disappears from the next
// broadcast.
type Entry struct {
	UUID uuid.UUID
	Name string

	mu              sync.Mutex
	gamemode        int32
	listed          bool
	latency         int32
	displayName     *string
	listPriority    int32
	hat             bool
	initializedChat bool
	dirty           bool
}

// NewEntry creates a tab-list row for the given identity. It is not
// registered with any TabList until passed to TabList.AddEntry.
func NewEntry(id uuid.UUID, name string) *Entry {
	return &Entry{UUID: id, Name: name, listed: true, dirty: true}
}

// Snapshot is the immutable, broadcast-ready view of an Entry at one
// point in time.
type Snapshot struct {
	UUID            uuid.UUID
	Name            string
	Gamemode        int32
	Listed          bool
	Latency         int32
	DisplayName     *string
	ListPriority    int32
	Hat             bool
	InitializedChat bool
}

func (e *Entry) snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		UUID:            e.UUID,
		Name:            e.Name,
		Gamemode:        e.gamemode,
		Listed:          e.listed,
		Latency:         e.latency,
		DisplayName:     e.displayName,
		ListPriority:    e.listPriority,
		Hat:             e.hat,
		InitializedChat: e.initializedChat,
	}
}

// consumeDirty reports whether the entry has been mutated since the
// last call, clearing the flag.
func (e *Entry) consumeDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	was := e.dirty
	e.dirty = false
	return was
}

func (e *Entry) SetGamemode(g int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gamemode, e.dirty = g, true
}

func (e *Entry) SetListed(listed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listed, e.dirty = listed, true
}

func (e *Entry) SetLatency(ms int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latency, e.dirty = ms, true
}

func (e *Entry) SetDisplayName(name *string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.displayName, e.dirty = name, true
}

func (e *Entry) SetListPriority(p int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listPriority, e.dirty = p, true
}

func (e *Entry) SetHat(hat bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hat, e.dirty = hat, true
}

func (e *Entry) SetInitializedChat(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initializedChat, e.dirty = v, true
}

// Package tablist implements the tab-list diff broadcast spec.md
// §4.11 describes: entries stay alive only as long as their creator
// holds a strong reference, TabList itself tracks them (and its
// viewers) weakly via package weakset, any mutation sets a dirty flag,
// and the next UpdateViewers sweep turns dirty entries and entries
// dropped since the previous sweep into PlayerInfoUpdate/
// PlayerInfoRemove broadcasts.
//
// Grounded on original_source/examples/server/src/server/tab_info.rs,
// the one place the original source works out tab-list viewer
// broadcast, generalized from its single header/footer field to the
// full entry-diffing behavior spec.md names.
package tablist

import (
	"sync"

	"github.com/google/uuid"

	"github.com/chunkymonkey/pkserver/weakset"
)

// ViewerSink receives tab-list broadcasts; encoding onto the wire is
// package connection/protocolstate's concern.
type ViewerSink interface {
	PlayerInfoUpdate(entries []Snapshot)
	PlayerInfoRemove(uuids []uuid.UUID)
}

type viewerHandle struct {
	sink ViewerSink
}

// ViewerHandle is the caller's strong reference to a registered
// viewer; TabList only holds this weakly.
type ViewerHandle = viewerHandle

// TabList tracks entries and viewers weakly and diffs on each
// UpdateViewers call.
type TabList struct {
	mu      sync.Mutex
	lastIDs map[uuid.UUID]struct{}

	entries weakset.Set[Entry]
	viewers weakset.Set[viewerHandle]
}

// New builds an empty TabList.
func New() *TabList {
	return &TabList{lastIDs: make(map[uuid.UUID]struct{})}
}

// AddEntry registers e weakly. The caller retains the only strong
// reference; once it is dropped and collected, the entry disappears
// from the list on the next UpdateViewers sweep.
func (t *TabList) AddEntry(e *Entry) {
	t.entries.Add(e)
}

// AddViewer registers a broadcast target weakly, returning the
// caller's strong handle.
func (t *TabList) AddViewer(sink ViewerSink) *ViewerHandle {
	v := &viewerHandle{sink: sink}
	t.viewers.Add(v)
	return v
}

// UpdateViewers computes the current snapshot, detects mutations and
// removals since the last call, and broadcasts
// PlayerInfoRemove/PlayerInfoUpdate to every live viewer as spec.md
// §4.11 prescribes.
func (t *TabList) UpdateViewers() {
	var current []Snapshot
	currentIDs := make(map[uuid.UUID]struct{})
	anyMutated := false

	t.entries.Each(func(e *Entry) {
		current = append(current, e.snapshot())
		currentIDs[e.UUID] = struct{}{}
		if e.consumeDirty() {
			anyMutated = true
		}
	})

	t.mu.Lock()
	var removed []uuid.UUID
	for id := range t.lastIDs {
		if _, ok := currentIDs[id]; !ok {
			removed = append(removed, id)
		}
	}
	t.lastIDs = currentIDs
	t.mu.Unlock()

	if len(removed) == 0 && !anyMutated {
		return
	}

	t.viewers.Each(func(v *viewerHandle) {
		if len(removed) > 0 {
			v.sink.PlayerInfoRemove(removed)
		}
		v.sink.PlayerInfoUpdate(current)
	})
}

// EntryCount reports how many entries are currently live.
func (t *TabList) EntryCount() int { return t.entries.Len() }

// ViewerCount reports how many viewers are currently live.
func (t *TabList) ViewerCount() int { return t.viewers.Len() }

package entity

import (
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/chunkymonkey/pkserver/weakset"
)

// Manager allocates entity ids, holds the strong record for every
// live entity, and diffs position/rotation/metadata against each
// viewer's last-sent snapshot once per tick. One Manager per level,
// guarded by its own lock per spec.md §5 ("EntityManager: one lock per
// level").
type Manager struct {
	mu       sync.Mutex
	nextID   ID
	entities map[ID]*Entity
	viewers  weakset.Set[Viewer]
}

// NewManager builds an empty entity manager.
func NewManager() *Manager {
	return &Manager{nextID: 1, entities: make(map[ID]*Entity)}
}

// Handle is returned by AddEntity; the entity stays alive until
// Remove is called on its handle. Unlike the Rust original's
// Drop-triggered removal, Go has no destructor to hook, so removal is
// an explicit call.
type Handle struct {
	mgr *Manager
	id  ID
}

// ID reports the entity id this handle owns.
func (h *Handle) ID() ID { return h.id }

// AddEntity assigns a new server-unique id to typeID/uuid and stores a
// strong record, returning a handle that owns it.
func (m *Manager) AddEntity(typeID int32, id uuid.UUID, pos Position, rot Rotation) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	eid := m.nextID
	m.nextID++
	m.entities[eid] = &Entity{
		ID:       eid,
		UUID:     id,
		TypeID:   typeID,
		Position: pos,
		Rotation: rot,
		Metadata: make(map[string]any),
	}
	return &Handle{mgr: m, id: eid}
}

// Remove deletes the entity and immediately broadcasts DestroyEntity
// to every viewer that currently has it spawned, rather than waiting
// for the next Tick to notice it's gone.
func (h *Handle) Remove() {
	m := h.mgr
	m.mu.Lock()
	delete(m.entities, h.id)
	m.mu.Unlock()

	m.viewers.Each(func(v *Viewer) {
		if _, ok := v.spawned[h.id]; ok {
			delete(v.spawned, h.id)
			v.sink.DestroyEntity(h.id)
		}
	})
}

// SetPosition updates the entity's live position; the change is
// broadcast on the next Tick.
func (h *Handle) SetPosition(pos Position) {
	m := h.mgr
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entities[h.id]; ok {
		e.Position = pos
	}
}

// SetRotation updates the entity's live rotation.
func (h *Handle) SetRotation(rot Rotation) {
	m := h.mgr
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entities[h.id]; ok {
		e.Rotation = rot
	}
}

// SetMetadata replaces a single metadata key's value.
func (h *Handle) SetMetadata(key string, value any) {
	m := h.mgr
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entities[h.id]; ok {
		e.Metadata[key] = value
	}
}

// AddViewer registers a new observer at the given view radius. The
// returned *Viewer is the caller's only strong reference.
func (m *Manager) AddViewer(sink ViewerSink, radius float64) *Viewer {
	v := newViewer(sink, radius)
	m.viewers.Add(v)
	return v
}

// Tick diffs every live entity's (position, rotation, metadata)
// against each viewer's last-sent snapshot: entities newly in range
// get a full SpawnEntity, entities that left range get DestroyEntity,
// and entities that remain in range get UpdateEntity carrying only the
// metadata keys that actually changed.
func (m *Manager) Tick() {
	m.mu.Lock()
	snapshot := make([]*Entity, 0, len(m.entities))
	for _, e := range m.entities {
		snapshot = append(snapshot, e)
	}
	m.mu.Unlock()

	live := make(map[ID]struct{}, len(snapshot))
	for _, e := range snapshot {
		live[e.ID] = struct{}{}
	}

	m.viewers.Each(func(v *Viewer) {
		for id := range v.spawned {
			if _, ok := live[id]; !ok {
				delete(v.spawned, id)
				v.sink.DestroyEntity(id)
			}
		}

		for _, e := range snapshot {
			inRange := v.inRange(e.Position)
			state, wasSpawned := v.spawned[e.ID]

			if inRange && !wasSpawned {
				v.spawned[e.ID] = spawnedState{
					position: e.Position,
					rotation: e.Rotation,
					metadata: cloneMetadata(e.Metadata),
				}
				v.sink.SpawnEntity(*e)
				continue
			}

			if !inRange && wasSpawned {
				delete(v.spawned, e.ID)
				v.sink.DestroyEntity(e.ID)
				continue
			}

			if inRange && wasSpawned {
				posChanged := state.position != e.Position
				rotChanged := state.rotation != e.Rotation
				changedMeta := diffMetadataKeys(state.metadata, e.Metadata)
				if posChanged || rotChanged || len(changedMeta) > 0 {
					v.sink.UpdateEntity(*e, posChanged, rotChanged, changedMeta)
					v.spawned[e.ID] = spawnedState{
						position: e.Position,
						rotation: e.Rotation,
						metadata: cloneMetadata(e.Metadata),
					}
				}
			}
		}
	})
}

func diffMetadataKeys(last, current map[string]any) []string {
	var changed []string
	for k, v := range current {
		old, ok := last[k]
		if !ok || !reflect.DeepEqual(old, v) {
			changed = append(changed, k)
		}
	}
	return changed
}

// EntityCount reports the number of currently live entities.
func (m *Manager) EntityCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities)
}

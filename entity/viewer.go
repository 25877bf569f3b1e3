package entity

// ViewerSink is how a Manager delivers entity events; serialization
// onto a connection belongs to package connection/protocolstate, not
// here.
type ViewerSink interface {
	SpawnEntity(e Entity)
	UpdateEntity(e Entity, posChanged, rotChanged bool, changedMeta []string)
	DestroyEntity(id ID)
}

type spawnedState struct {
	position Position
	rotation Rotation
	metadata map[string]any
}

// Viewer is one observer's view into a Manager: its view-volume
// center/radius, and which entity ids it has already been sent an
// AddEntity for (spec.md §4.10: "first sight sends AddEntity and
// subsequent sends are compact movement/meta packets"). Manager only
// ever holds a weak reference to a Viewer (see weakset).
type Viewer struct {
	sink   ViewerSink
	Radius float64

	center  *Position
	spawned map[ID]spawnedState
}

func newViewer(sink ViewerSink, radius float64) *Viewer {
	return &Viewer{sink: sink, Radius: radius, spawned: make(map[ID]spawnedState)}
}

// UpdateCenter moves the viewer's own position, which is what entity
// distance checks are measured against.
func (v *Viewer) UpdateCenter(pos *Position) {
	v.center = pos
}

func (v *Viewer) inRange(pos Position) bool {
	if v.center == nil {
		return false
	}
	return v.center.distanceTo(pos) <= v.Radius
}

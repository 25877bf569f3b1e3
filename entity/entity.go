// Package entity implements server-local entity ID allocation and the
// per-tick position/rotation/metadata diffing and per-viewer spawn
// tracking spec.md §4.10 describes, grounded on the teacher's
// EntityManager/NewEntity allocation pattern (referenced from
// connhandler.go and shardserver/chunk.go's AddSpawn/removeSpawn
// broadcast idiom) and original_source/pkmc-defs/src/entity.rs for the
// notion of a registry-backed entity type id.
package entity

import (
	"math"

	"github.com/google/uuid"
)

// ID is a server-assigned, connection-lifetime-unique entity
// identifier, distinct from the entity's persistent UUID.
type ID int32

// Position is an absolute world-space location.
type Position struct {
	X, Y, Z float64
}

// distanceTo is the Euclidean distance used to decide view-volume
// intersection (spec.md §4.10: "distance <= entity-view radius").
func (p Position) distanceTo(o Position) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Rotation is yaw/pitch in degrees; the wire encoders convert them to
// 256-step byte angles.
type Rotation struct {
	Yaw, Pitch float32
}

// Entity is the live, mutable state tracked for one spawned entity.
// Metadata is a plain map rather than a typed struct since the set of
// meaningful keys is entity-type-dependent and this package only
// diffs it, never interprets it.
type Entity struct {
	ID       ID
	UUID     uuid.UUID
	TypeID   int32
	Position Position
	Rotation Rotation
	Metadata map[string]any
}

func cloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

package threat

import (
	"github.com/nstehr/vimy/vimy-perception/enemy"
	"github.com/nstehr/vimy/vimy-perception/model"
)

// Snapshot is the value copy of an enemy that one compute cycle works from.
// Def is shared but read-only.
type Snapshot struct {
	ID          enemy.ID
	Def         *model.UnitDef
	Pos         model.Pos
	Vel         model.Pos
	Threat      float32
	Ranges      model.Ranges
	ShieldPower float32
}

func SnapshotOf(e *enemy.Record) Snapshot {
	return Snapshot{
		ID:          e.ID(),
		Def:         e.Def(),
		Pos:         e.Pos(),
		Vel:         e.Vel(),
		Threat:      e.Threat(),
		Ranges:      e.Ranges(),
		ShieldPower: e.ShieldPower(),
	}
}

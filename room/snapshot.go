package room

import (
	"github.com/itoloop/itoserver/models"
)

// Snapshot is the immutable room view handed to the Publisher after every
// successful mutation. It shares no memory with the room's live state.
type Snapshot struct {
	Room    models.Room     `json:"room"`
	Players []models.Player `json:"players"`
}

// snapshotLocked builds a snapshot of the current state. Secret numbers stay
// hidden until the reveal: outside reveal/finished they are stripped from
// every seat except the one owning forDevice (so a client can render its own
// card). Broadcasts pass forDevice == "".
func (r *Room) snapshotLocked(forDevice string) Snapshot {
	secretsPublic := r.state.Status == models.PhaseReveal || r.state.Status == models.PhaseFinished

	players := make([]models.Player, 0, len(r.players))
	for _, p := range r.players {
		cp := *p
		cp.SecretNumber = copyIntPtr(p.SecretNumber)
		cp.Clue = copyStrPtr(p.Clue)
		cp.Position = copyIntPtr(p.Position)
		if !secretsPublic && p.DeviceID != forDevice {
			cp.SecretNumber = nil
		}
		players = append(players, cp)
	}

	snap := Snapshot{Room: *r.state, Players: players}
	snap.Room.CustomThemes = append([]string(nil), r.state.CustomThemes...)
	return snap
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func copyStrPtr(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"

	"github.com/itoloop/itoserver/logger"
	"github.com/itoloop/itoserver/network"
	"github.com/itoloop/itoserver/room"
	"github.com/itoloop/itoserver/session"
)

// Gateway fans room snapshots out to every subscribed session. It owns the
// room-code -> sockets mapping end to end; the state machine only ever hands
// it a code and an opaque snapshot. Delivery is best effort; a session that
// misses a broadcast catches up through the fetch endpoint.
type Gateway struct {
	sessionManager *session.Manager
}

func NewGateway(sessionManager *session.Manager) *Gateway {
	return &Gateway{sessionManager: sessionManager}
}

// Publish implements room.Publisher.
func (g *Gateway) Publish(code string, snapshot room.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	for _, s := range g.sessionManager.GetByRoomCode(code) {
		if err := s.Send(network.MsgTypeSnapshot, data); err != nil {
			// A dead subscriber is the read loop's problem, keep fanning out.
			logger.Log.Debugf("Snapshot send to session %s failed: %v", s.GetID(), err)
			continue
		}
	}
	return nil
}

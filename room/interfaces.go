package room

// Publisher delivers a room's snapshot to every subscriber of that room.
// This is defined here to break the import cycle between room and broadcast.
// Delivery is fire-and-forget: the room logs a failed publish and moves on,
// clients recover through the fetch endpoint.
type Publisher interface {
	Publish(code string, snapshot Snapshot) error
}

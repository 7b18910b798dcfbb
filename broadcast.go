package server

// Broadcaster is the outbound push boundary. The production implementation
// fans out over websocket subscribers; tests substitute a recorder. Sending
// must never mutate room state.
type Broadcaster interface {
	// ToRoom pushes an event to every connection subscribed to a room.
	ToRoom(roomID, event string, payload any)
	// ToLobby pushes an event to every observer of a lobby namespace.
	ToLobby(kind RoomKind, event string, payload any)
}

type nopBroadcaster struct{}

func (nopBroadcaster) ToRoom(string, string, any)    {}
func (nopBroadcaster) ToLobby(RoomKind, string, any) {}

// NopBroadcaster discards every push.
func NopBroadcaster() Broadcaster {
	return nopBroadcaster{}
}

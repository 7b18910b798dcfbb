package server

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"matchpoint/server/logging"
	logginglifecycle "matchpoint/server/logging/lifecycle"
)

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// LobbyPlayer is one connected, unseated player waiting in a lobby
// namespace.
type LobbyPlayer struct {
	ConnID   string
	Name     string
	Identity Identity
}

// RegistryConfig tunes the registry. Zero values fall back to defaults.
type RegistryConfig struct {
	PaddleTickRate int
	Seed           int64
	Now            func() time.Time
	Broadcaster    Broadcaster
	Publisher      logging.Publisher
	Results        ResultSink
}

// Registry owns every active room and both lobby pools. It is an explicit
// dependency handed to the protocol handlers, not a package-level
// singleton, so concurrent rooms can be exercised in isolation. Registry
// collections are mutated only here; engines mutate state inside the rooms
// they were handed.
type Registry struct {
	mu      sync.Mutex
	pools   map[GameKind]map[RoomKind]map[string]*Room
	lobbies map[RoomKind]map[string]*LobbyPlayer
	rng     *rand.Rand

	broadcast    Broadcaster
	publisher    logging.Publisher
	results      ResultSink
	now          func() time.Time
	paddleTick   time.Duration
	reactionTick time.Duration
}

func NewRegistry(cfg RegistryConfig) *Registry {
	tickRate := cfg.PaddleTickRate
	if tickRate <= 0 {
		tickRate = paddleTickRate
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	broadcast := cfg.Broadcaster
	if broadcast == nil {
		broadcast = NopBroadcaster()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	reg := &Registry{
		pools:        make(map[GameKind]map[RoomKind]map[string]*Room),
		lobbies:      make(map[RoomKind]map[string]*LobbyPlayer),
		rng:          rand.New(rand.NewSource(seed)),
		broadcast:    broadcast,
		publisher:    publisher,
		results:      cfg.Results,
		now:          now,
		paddleTick:   time.Second / time.Duration(tickRate),
		reactionTick: reactionTickInterval,
	}
	for _, game := range []GameKind{GamePaddle, GameReaction} {
		reg.pools[game] = map[RoomKind]map[string]*Room{
			KindDuel:       make(map[string]*Room),
			KindTournament: make(map[string]*Room),
		}
	}
	for _, kind := range []RoomKind{KindDuel, KindTournament} {
		reg.lobbies[kind] = make(map[string]*LobbyPlayer)
	}
	return reg
}

// RegisterInLobby enters a connection into the unseated pool. A durable id
// already present in the pool is rejected; guests may share names.
func (r *Registry) RegisterInLobby(kind RoomKind, connID, name string, identity Identity) error {
	r.mu.Lock()
	if name != "" {
		if err := ValidateName(name); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	if id, ok := identity.DurableID(); ok {
		for _, p := range r.lobbies[kind] {
			if existing, has := p.Identity.DurableID(); has && existing == id {
				r.mu.Unlock()
				return ErrNameTaken
			}
		}
	}
	r.lobbies[kind][connID] = &LobbyPlayer{ConnID: connID, Name: name, Identity: identity}
	r.mu.Unlock()

	r.BroadcastLobby(kind)
	return nil
}

// LeaveLobby drops a connection from the unseated pool.
func (r *Registry) LeaveLobby(kind RoomKind, connID string) {
	r.mu.Lock()
	_, present := r.lobbies[kind][connID]
	delete(r.lobbies[kind], connID)
	r.mu.Unlock()

	if present {
		r.BroadcastLobby(kind)
	}
}

// CreateRoom allocates a fresh room with a short random code. Codes are
// retried on collision; the code space makes more than one retry
// astronomically unlikely.
func (r *Registry) CreateRoom(game GameKind, kind RoomKind, mode ExecutionMode) *Room {
	r.mu.Lock()
	var code string
	for {
		code = r.roomCodeLocked()
		if _, taken := r.pools[game][kind][code]; !taken {
			break
		}
	}
	room := newRoom(code, game, kind, mode, roomDeps{
		broadcast:    r.broadcast,
		publisher:    r.publisher,
		results:      r.results,
		now:          r.now,
		rng:          rand.New(rand.NewSource(r.rng.Int63())),
		paddleTick:   r.paddleTick,
		reactionTick: r.reactionTick,
	})
	r.pools[game][kind][code] = room
	r.mu.Unlock()

	logginglifecycle.RoomCreated(context.Background(), r.publisher, code,
		logginglifecycle.RoomCreatedPayload{Game: string(game), Kind: string(kind), Mode: string(mode)})
	r.BroadcastLobby(kind)
	return room
}

func (r *Registry) roomCodeLocked() string {
	code := make([]byte, roomCodeLen)
	for i := range code {
		code[i] = roomCodeAlphabet[r.rng.Intn(len(roomCodeAlphabet))]
	}
	return string(code)
}

// FindRoom looks a room up by code across both kind pools of a game.
func (r *Registry) FindRoom(game GameKind, id string) (*Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, kind := range []RoomKind{KindDuel, KindTournament} {
		if room, ok := r.pools[game][kind][id]; ok {
			return room, true
		}
	}
	return nil, false
}

// JoinRoom seats a remote participant, pulls the connection out of the
// lobby pool, and refreshes lobby observers.
func (r *Registry) JoinRoom(game GameKind, roomID, name, connID string, identity Identity) (Seat, error) {
	room, ok := r.FindRoom(game, roomID)
	if !ok {
		return SeatNone, ErrRoomNotFound
	}
	seat, err := room.Join(name, connID, identity)
	if err != nil {
		return SeatNone, err
	}

	r.mu.Lock()
	delete(r.lobbies[room.Kind], connID)
	r.mu.Unlock()

	r.BroadcastLobby(room.Kind)
	return seat, nil
}

// JoinRoomLocal fills every seat of a local room from one name set.
func (r *Registry) JoinRoomLocal(game GameKind, roomID string, names []string, connID string, identity Identity) error {
	room, ok := r.FindRoom(game, roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if err := room.JoinLocal(names, connID, identity); err != nil {
		return err
	}
	r.BroadcastLobby(room.Kind)
	return nil
}

// Disconnect routes a dropped connection through every pool it may occupy:
// lobby entries are removed, and any room holding the connection applies
// its failure semantics. Torn-down rooms are discarded here.
func (r *Registry) Disconnect(connID string) {
	for _, kind := range []RoomKind{KindDuel, KindTournament} {
		r.LeaveLobby(kind, connID)
	}

	r.mu.Lock()
	rooms := make([]*Room, 0)
	for _, game := range []GameKind{GamePaddle, GameReaction} {
		for _, kind := range []RoomKind{KindDuel, KindTournament} {
			for _, room := range r.pools[game][kind] {
				rooms = append(rooms, room)
			}
		}
	}
	r.mu.Unlock()

	for _, room := range rooms {
		switch room.HandleDisconnect(connID) {
		case OutcomeTeardown:
			r.RemoveRoom(room)
		case OutcomeWaiting:
			r.BroadcastLobby(room.Kind)
		}
	}
}

// RemoveRoom discards a room from its pool and refreshes the lobby.
func (r *Registry) RemoveRoom(room *Room) {
	r.mu.Lock()
	delete(r.pools[room.Game][room.Kind], room.ID)
	r.mu.Unlock()
	r.BroadcastLobby(room.Kind)
}

// LobbySnapshotFor recomputes the derived lobby projection for one
// namespace: every room of that kind across both games, plus the unseated
// pool.
func (r *Registry) LobbySnapshotFor(kind RoomKind) LobbySnapshot {
	r.mu.Lock()
	rooms := make([]*Room, 0)
	for _, game := range []GameKind{GamePaddle, GameReaction} {
		for _, room := range r.pools[game][kind] {
			rooms = append(rooms, room)
		}
	}
	players := lo.Map(lo.Values(r.lobbies[kind]), func(p *LobbyPlayer, _ int) LobbyPlayerView {
		_, authenticated := p.Identity.DurableID()
		return LobbyPlayerView{Name: p.Name, Authenticated: authenticated}
	})
	r.mu.Unlock()

	summaries := lo.Map(rooms, func(room *Room, _ int) RoomSummary {
		state := room.Snapshot()
		return RoomSummary{
			ID:     room.ID,
			Game:   room.Game,
			Kind:   room.Kind,
			Mode:   room.Mode,
			Status: state.Status,
			Participants: lo.Map(state.Participants, func(p ParticipantView, _ int) string {
				return p.Name
			}),
			Capacity: room.Kind.Capacity(),
		}
	})
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })

	return LobbySnapshot{Ver: ProtocolVersion, Kind: kind, Rooms: summaries, Players: players}
}

// BroadcastLobby pushes a freshly computed snapshot to lobby observers.
func (r *Registry) BroadcastLobby(kind RoomKind) {
	r.broadcast.ToLobby(kind, EventLobbySnapshot, r.LobbySnapshotFor(kind))
}

// RoomCounts reports active rooms per pool for the diagnostics endpoint.
func (r *Registry) RoomCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int, 4)
	for game, kinds := range r.pools {
		for kind, rooms := range kinds {
			counts[string(game)+"-"+string(kind)] = len(rooms)
		}
	}
	return counts
}

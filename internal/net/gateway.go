package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"matchpoint/server"
)

const writeWait = 10 * time.Second

// GatewayConfig wires the gateway's collaborators.
type GatewayConfig struct {
	Logger *log.Logger
	// Stats is surfaced on /diagnostics; typically the logging router's
	// counters.
	Stats func() any
	// PaddleTickRate is echoed on /diagnostics.
	PaddleTickRate int
}

// Gateway is the transport boundary: it upgrades websocket connections on
// the four protocol namespaces, validates inbound payloads, routes them
// into the registry and rooms, and fans outbound events back to
// subscribers. It implements server.Broadcaster.
type Gateway struct {
	registry *server.Registry
	logger   *log.Logger
	stats    func() any
	tickRate int
	validate *validator.Validate
	upgrader websocket.Upgrader

	mu        sync.Mutex
	roomSubs  map[string]map[string]*client
	lobbySubs map[server.RoomKind]map[string]*client
}

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

type outbound struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func NewGateway(cfg GatewayConfig) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Gateway{
		logger:   logger,
		stats:    cfg.Stats,
		tickRate: cfg.PaddleTickRate,
		validate: newValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
		roomSubs: make(map[string]map[string]*client),
		lobbySubs: map[server.RoomKind]map[string]*client{
			server.KindDuel:       make(map[string]*client),
			server.KindTournament: make(map[string]*client),
		},
	}
}

// AttachRegistry binds the registry after construction; the registry needs
// the gateway as its broadcaster, so the two are wired in two steps.
func (g *Gateway) AttachRegistry(reg *server.Registry) {
	g.registry = reg
}

func (c *client) send(event string, payload any) error {
	data, err := json.Marshal(outbound{Ver: server.ProtocolVersion, Type: event, Data: payload})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) ack(requestType, errText string) {
	_ = c.send("ack", ackMessage{For: requestType, Error: errText})
}

// ToRoom pushes an event to every connection subscribed to a room.
func (g *Gateway) ToRoom(roomID, event string, payload any) {
	g.mu.Lock()
	subs := make([]*client, 0, len(g.roomSubs[roomID]))
	for _, cl := range g.roomSubs[roomID] {
		subs = append(subs, cl)
	}
	g.mu.Unlock()

	for _, cl := range subs {
		if err := cl.send(event, payload); err != nil {
			g.logger.Printf("failed to push %s to %s: %v", event, cl.id, err)
		}
	}
}

// ToLobby pushes an event to every observer of a lobby namespace.
func (g *Gateway) ToLobby(kind server.RoomKind, event string, payload any) {
	g.mu.Lock()
	subs := make([]*client, 0, len(g.lobbySubs[kind]))
	for _, cl := range g.lobbySubs[kind] {
		subs = append(subs, cl)
	}
	g.mu.Unlock()

	for _, cl := range subs {
		if err := cl.send(event, payload); err != nil {
			g.logger.Printf("failed to push %s to %s: %v", event, cl.id, err)
		}
	}
}

// Handler builds the HTTP surface: health, diagnostics, and the four
// websocket namespaces.
func (g *Gateway) Handler() nethttp.Handler {
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status         string         `json:"status"`
			ServerTime     int64          `json:"serverTime"`
			PaddleTickRate int            `json:"paddleTickRate,omitempty"`
			Rooms          map[string]int `json:"rooms"`
			Logging        any            `json:"logging,omitempty"`
		}{
			Status:         "ok",
			ServerTime:     time.Now().UnixMilli(),
			PaddleTickRate: g.tickRate,
			Rooms:          g.registry.RoomCounts(),
		}
		if g.stats != nil {
			payload.Logging = g.stats()
		}
		data, err := json.Marshal(payload)
		if err != nil {
			nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/ws/lobby/duel", g.lobbyHandler(server.KindDuel))
	mux.HandleFunc("/ws/lobby/tournament", g.lobbyHandler(server.KindTournament))
	mux.HandleFunc("/ws/match/paddle", g.matchHandler(server.GamePaddle))
	mux.HandleFunc("/ws/match/reaction", g.matchHandler(server.GameReaction))

	return mux
}

func (g *Gateway) lobbyHandler(kind server.RoomKind) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		conn, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			g.logger.Printf("lobby upgrade failed: %v", err)
			return
		}
		cl := &client{id: uuid.NewString(), conn: conn}

		g.mu.Lock()
		g.lobbySubs[kind][cl.id] = cl
		g.mu.Unlock()

		cl.send(server.EventLobbySnapshot, g.registry.LobbySnapshotFor(kind))

		defer func() {
			g.mu.Lock()
			delete(g.lobbySubs[kind], cl.id)
			g.mu.Unlock()
			g.registry.Disconnect(cl.id)
			conn.Close()
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			g.dispatchLobby(kind, cl, raw)
		}
	}
}

func (g *Gateway) dispatchLobby(kind server.RoomKind, cl *client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.logger.Printf("discarding malformed message from %s: %v", cl.id, err)
		return
	}

	switch env.Type {
	case "register_in_lobby":
		req, err := decode[registerInLobbyRequest](g.validate, raw)
		if err != nil {
			cl.ack(env.Type, err.Error())
			return
		}
		identity := server.GuestIdentity()
		if req.DurableID != "" {
			identity = server.AuthenticatedIdentity(req.DurableID)
		}
		if err := g.registry.RegisterInLobby(kind, cl.id, req.DisplayName, identity); err != nil {
			cl.ack(env.Type, err.Error())
			return
		}
		cl.ack(env.Type, "")

	case "create_room":
		req, err := decode[createRoomRequest](g.validate, raw)
		if err != nil {
			cl.ack(env.Type, err.Error())
			return
		}
		game, _ := server.ParseGameKind(req.Game)
		mode, _ := server.ParseExecutionMode(req.Mode)
		room := g.registry.CreateRoom(game, kind, mode)
		cl.send(server.EventCreatedRoom, createdRoomMessage{RoomID: room.ID, Game: req.Game, Mode: req.Mode})

	case "request_join_room":
		req, err := decode[requestJoinRoomRequest](g.validate, raw)
		if err != nil {
			cl.ack(env.Type, err.Error())
			return
		}
		game, _ := server.ParseGameKind(req.Game)
		room, ok := g.registry.FindRoom(game, req.RoomID)
		if !ok {
			cl.ack(env.Type, server.ErrRoomNotFound.Error())
			return
		}
		if !room.Joinable() {
			cl.ack(env.Type, server.ErrRoomFull.Error())
			return
		}
		g.registry.LeaveLobby(kind, cl.id)
		cl.ack(env.Type, "")
		cl.send(server.EventJoinedRoom, joinedRoomMessage{RoomID: room.ID})

	default:
		g.logger.Printf("unknown lobby message type %q from %s", env.Type, cl.id)
	}
}

func (g *Gateway) matchHandler(game server.GameKind) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		conn, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			g.logger.Printf("match upgrade failed: %v", err)
			return
		}
		cl := &client{id: uuid.NewString(), conn: conn}
		session := &matchSession{game: game}

		defer func() {
			g.unsubscribe(cl, session)
			g.registry.Disconnect(cl.id)
			conn.Close()
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			g.dispatchMatch(cl, session, raw)
		}
	}
}

// matchSession is per-connection routing state for a match namespace.
type matchSession struct {
	game     server.GameKind
	room     *server.Room
	identity server.Identity
}

func (g *Gateway) unsubscribe(cl *client, session *matchSession) {
	if session.room == nil {
		return
	}
	g.mu.Lock()
	if subs, ok := g.roomSubs[session.room.ID]; ok {
		delete(subs, cl.id)
		if len(subs) == 0 {
			delete(g.roomSubs, session.room.ID)
		}
	}
	g.mu.Unlock()
}

func (g *Gateway) dispatchMatch(cl *client, session *matchSession, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.logger.Printf("discarding malformed message from %s: %v", cl.id, err)
		return
	}

	switch env.Type {
	case "join_match_room":
		req, err := decode[joinMatchRoomRequest](g.validate, raw)
		if err != nil {
			cl.ack(env.Type, err.Error())
			return
		}
		room, ok := g.registry.FindRoom(session.game, req.RoomID)
		if !ok {
			cl.ack(env.Type, server.ErrRoomNotFound.Error())
			return
		}
		session.room = room
		session.identity = server.GuestIdentity()
		if req.DurableID != "" {
			session.identity = server.AuthenticatedIdentity(req.DurableID)
		}

		g.mu.Lock()
		if g.roomSubs[room.ID] == nil {
			g.roomSubs[room.ID] = make(map[string]*client)
		}
		g.roomSubs[room.ID][cl.id] = cl
		g.mu.Unlock()

		cl.ack(env.Type, "")
		cl.send(server.EventRequestNames, requestNamesMessage{RoomID: room.ID, Count: room.Kind.Capacity()})

	case "submit_names":
		if session.room == nil {
			cl.ack(env.Type, "join a game first")
			return
		}
		req, err := decode[submitNamesRequest](g.validate, raw)
		if err != nil {
			cl.ack(env.Type, err.Error())
			return
		}
		if session.room.Mode == server.ModeLocal {
			err = g.registry.JoinRoomLocal(session.game, session.room.ID, req.Names, cl.id, session.identity)
		} else {
			if len(req.Names) != 1 {
				cl.ack(env.Type, "remote seats take one name each")
				return
			}
			_, err = g.registry.JoinRoom(session.game, session.room.ID, req.Names[0], cl.id, session.identity)
		}
		if err != nil {
			cl.ack(env.Type, err.Error())
			return
		}
		cl.ack(env.Type, "")

	case "move_paddle":
		if session.room == nil {
			return
		}
		req, err := decode[movePaddleRequest](g.validate, raw)
		if err != nil {
			return
		}
		side := server.SeatNone
		switch req.Side {
		case "left":
			side = server.SeatLeft
		case "right":
			side = server.SeatRight
		}
		session.room.MovePaddle(cl.id, side, req.Position)

	case "set_ready":
		if session.room == nil {
			return
		}
		session.room.SetReady(cl.id)

	case "toggle_pause":
		if session.room == nil {
			return
		}
		session.room.TogglePause(cl.id)

	case "request_restart":
		if session.room == nil {
			return
		}
		session.room.RequestRestart(cl.id)

	case "submit_keypress":
		if session.room == nil {
			return
		}
		req, err := decode[submitKeypressRequest](g.validate, raw)
		if err != nil {
			return
		}
		session.room.SubmitKeypress(cl.id, req.Key)

	default:
		g.logger.Printf("unknown match message type %q from %s", env.Type, cl.id)
	}
}

package server

import "github.com/samber/lo"

// Outbound event names pushed over the room and lobby channels.
const (
	EventLobbySnapshot  = "lobby_snapshot_updated"
	EventCreatedRoom    = "created_room"
	EventJoinedRoom     = "joined_room"
	EventRequestNames   = "request_names"
	EventRoomState      = "room_state_changed"
	EventRoomAwaiting   = "room_awaiting_players"
	EventMatchStarted   = "match_started"
	EventMatchEnded     = "match_ended"
	EventCorrectInput   = "correct_input"
	EventRoomTerminated = "room_terminated"
)

// ParticipantView is the wire shape of one seated participant.
type ParticipantView struct {
	Name  string `json:"name"`
	Seat  Seat   `json:"seat"`
	Ready bool   `json:"ready"`
}

// MatchView is the wire shape of one played (or in-progress) round.
type MatchView struct {
	SeatA    string  `json:"seatA"`
	SeatB    string  `json:"seatB"`
	ScoreA   int     `json:"scoreA"`
	ScoreB   int     `json:"scoreB"`
	Winner   string  `json:"winner,omitempty"`
	Duration float64 `json:"durationSeconds,omitempty"`
}

// PaddleView is the paddle engine's broadcast state.
type PaddleView struct {
	BallX       float64 `json:"ballX"`
	BallZ       float64 `json:"ballZ"`
	VelX        float64 `json:"velX"`
	VelZ        float64 `json:"velZ"`
	LeftZ       float64 `json:"leftZ"`
	RightZ      float64 `json:"rightZ"`
	SecondsLeft float64 `json:"secondsLeft"`
}

// ReactionView is the reaction engine's broadcast state.
type ReactionView struct {
	PromptLeft  string `json:"promptLeft"`
	PromptRight string `json:"promptRight"`
	Countdown   int    `json:"countdown"`
}

// RoomState is the full snapshot pushed on every relevant transition.
type RoomState struct {
	Ver          int               `json:"ver"`
	ID           string            `json:"id"`
	Game         GameKind          `json:"game"`
	Kind         RoomKind          `json:"kind"`
	Mode         ExecutionMode     `json:"mode"`
	Status       RoomStatus        `json:"status"`
	Round        int               `json:"round"`
	Participants []ParticipantView `json:"participants"`
	Matches      []MatchView       `json:"matches"`
	Paddle       *PaddleView       `json:"paddle,omitempty"`
	Reaction     *ReactionView     `json:"reaction,omitempty"`
	Champion     string            `json:"champion,omitempty"`
}

type correctInputMessage struct {
	Seat int `json:"seat"`
}

type terminatedMessage struct {
	RoomID string `json:"roomId"`
}

// snapshotLocked projects the room into its broadcast shape. Callers hold
// the room mutex.
func (r *Room) snapshotLocked() RoomState {
	state := RoomState{
		Ver:    ProtocolVersion,
		ID:     r.ID,
		Game:   r.Game,
		Kind:   r.Kind,
		Mode:   r.Mode,
		Status: r.status,
		Round:  r.round + 1,
		Participants: lo.Map(r.participants, func(p *Participant, _ int) ParticipantView {
			return ParticipantView{Name: p.Name, Seat: p.Seat, Ready: r.ready[p]}
		}),
		Matches: lo.Map(r.matches, func(m *Match, _ int) MatchView {
			view := MatchView{
				SeatA:    m.SeatA.Name,
				SeatB:    m.SeatB.Name,
				ScoreA:   m.ScoreA,
				ScoreB:   m.ScoreB,
				Duration: m.Duration,
			}
			if m.Winner != nil {
				view.Winner = m.Winner.Name
			}
			return view
		}),
	}
	if r.champion != nil {
		state.Champion = r.champion.Name
	}
	if r.paddle != nil {
		secondsLeft := r.paddle.endAt.Sub(r.deps.now()).Seconds()
		if secondsLeft < 0 {
			secondsLeft = 0
		}
		state.Paddle = &PaddleView{
			BallX:       r.paddle.ballX,
			BallZ:       r.paddle.ballZ,
			VelX:        r.paddle.velX,
			VelZ:        r.paddle.velZ,
			LeftZ:       r.paddle.leftZ,
			RightZ:      r.paddle.rightZ,
			SecondsLeft: secondsLeft,
		}
	}
	if r.reaction != nil {
		state.Reaction = &ReactionView{
			PromptLeft:  r.reaction.promptLeft,
			PromptRight: r.reaction.promptRight,
			Countdown:   r.reaction.countdown,
		}
	}
	return state
}

// Snapshot returns the room's current broadcast state.
func (r *Room) Snapshot() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// RoomSummary is the lobby-facing projection of a room.
type RoomSummary struct {
	ID           string        `json:"id"`
	Game         GameKind      `json:"game"`
	Kind         RoomKind      `json:"kind"`
	Mode         ExecutionMode `json:"mode"`
	Status       RoomStatus    `json:"status"`
	Participants []string      `json:"participants"`
	Capacity     int           `json:"capacity"`
}

// LobbyPlayerView is one unseated connected player.
type LobbyPlayerView struct {
	Name          string `json:"name"`
	Authenticated bool   `json:"authenticated"`
}

// LobbySnapshot is the derived, read-only projection of all rooms and
// unseated players for one lobby namespace. It is recomputed on demand and
// never stored.
type LobbySnapshot struct {
	Ver     int               `json:"ver"`
	Kind    RoomKind          `json:"kind"`
	Rooms   []RoomSummary     `json:"rooms"`
	Players []LobbyPlayerView `json:"players"`
}

package server

// Match is one played round. Fields are mutated only by the engine that owns
// the room; once Winner is set the record is treated as immutable.
type Match struct {
	SeatA    *Participant
	SeatB    *Participant
	ScoreA   int
	ScoreB   int
	Winner   *Participant
	Duration float64 // seconds actually played
	finished bool
}

// finalize records scores and picks the winner. Ties have no winner in duel
// rooms; tournament rooms advance seat B so the bracket always makes
// progress.
func (m *Match) finalize(kind RoomKind, duration float64) {
	if m.finished {
		return
	}
	m.Duration = duration
	m.finished = true
	switch {
	case m.ScoreA > m.ScoreB:
		m.Winner = m.SeatA
	case m.ScoreB > m.ScoreA:
		m.Winner = m.SeatB
	default:
		if kind == KindTournament {
			m.Winner = m.SeatB
		}
	}
}

// MatchResult is the durable record handed to the ResultSink when a round
// ends. Only authenticated identities carry ids; guest slots stay empty.
type MatchResult struct {
	Game       GameKind      `json:"game"`
	Mode       ExecutionMode `json:"mode"`
	SeatA      string        `json:"seatA"`
	SeatB      string        `json:"seatB"`
	SeatAID    string        `json:"seatAId,omitempty"`
	SeatBID    string        `json:"seatBId,omitempty"`
	ScoreA     int           `json:"scoreA"`
	ScoreB     int           `json:"scoreB"`
	WinnerSeat Seat          `json:"winnerSeat,omitempty"`
	Duration   float64       `json:"durationSeconds"`
	Round      int           `json:"round"`
}

func resultFromMatch(room *Room, m *Match, round int) MatchResult {
	res := MatchResult{
		Game:     room.Game,
		Mode:     room.Mode,
		SeatA:    m.SeatA.Name,
		SeatB:    m.SeatB.Name,
		ScoreA:   m.ScoreA,
		ScoreB:   m.ScoreB,
		Duration: m.Duration,
		Round:    round,
	}
	if id, ok := m.SeatA.Identity.DurableID(); ok {
		res.SeatAID = id
	}
	if id, ok := m.SeatB.Identity.DurableID(); ok {
		res.SeatBID = id
	}
	switch m.Winner {
	case m.SeatA:
		res.WinnerSeat = SeatLeft
	case m.SeatB:
		res.WinnerSeat = SeatRight
	}
	return res
}

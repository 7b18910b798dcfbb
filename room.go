package server

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"matchpoint/server/logging"
	logginglifecycle "matchpoint/server/logging/lifecycle"
	loggingmatch "matchpoint/server/logging/match"
)

// RoomStatus tracks the match state machine. Transitions are monotonic
// within a round except for the local paused/in-progress cycle.
type RoomStatus string

const (
	StatusWaiting    RoomStatus = "waiting"
	StatusStarting   RoomStatus = "starting"
	StatusInProgress RoomStatus = "in-progress"
	StatusPaused     RoomStatus = "paused"
	StatusFinished   RoomStatus = "finished"
)

var (
	ErrRoomNotFound = errors.New("that game does not exist")
	ErrRoomFull     = errors.New("the game is full")
	ErrRoomStarted  = errors.New("the game has already started")
)

// roomDeps are the collaborators the registry hands every room.
type roomDeps struct {
	broadcast    Broadcaster
	publisher    logging.Publisher
	results      ResultSink
	now          func() time.Time
	rng          *rand.Rand
	paddleTick   time.Duration
	reactionTick time.Duration
}

// Room is one match or tournament instance holding its own authoritative
// state. All fields below mu are guarded by it; the tick goroutine and the
// gateway handlers serialize through the same lock, so a keypress processed
// between two ticks always sees a consistent snapshot.
type Room struct {
	ID   string
	Game GameKind
	Kind RoomKind
	Mode ExecutionMode

	deps roomDeps

	mu           sync.Mutex
	status       RoomStatus
	participants []*Participant
	matches      []*Match
	round        int
	ready        map[*Participant]bool
	champion     *Participant

	paddle   *paddleState
	reaction *reactionState
	bracket  *bracket

	tickStop chan struct{}
	pausedAt time.Time

	emits []pendingEmit
}

type pendingEmit struct {
	event   string
	payload any
}

func newRoom(id string, game GameKind, kind RoomKind, mode ExecutionMode, deps roomDeps) *Room {
	return &Room{
		ID:     id,
		Game:   game,
		Kind:   kind,
		Mode:   mode,
		deps:   deps,
		status: StatusWaiting,
		ready:  make(map[*Participant]bool),
	}
}

// Status returns the current state-machine position.
func (r *Room) Status() RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Joinable reports whether the room can still accept a remote participant.
func (r *Room) Joinable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status == StatusWaiting && len(r.participants) < r.Kind.Capacity()
}

// Join seats one remote participant. Room state is left untouched on any
// rejection.
func (r *Room) Join(name, connID string, identity Identity) (Seat, error) {
	r.mu.Lock()
	defer func() {
		r.mu.Unlock()
		r.flushEmits()
	}()

	if r.status != StatusWaiting {
		return SeatNone, ErrRoomStarted
	}
	if len(r.participants) >= r.Kind.Capacity() {
		return SeatNone, ErrRoomFull
	}
	if err := ValidateName(name); err != nil {
		return SeatNone, err
	}
	for _, p := range r.participants {
		if p.Name == name {
			return SeatNone, ErrNameTaken
		}
	}

	seat := r.nextSeatLocked()
	p := &Participant{Identity: identity, ConnID: connID, Name: name, Seat: seat}
	r.participants = append(r.participants, p)
	logginglifecycle.ParticipantJoined(context.Background(), r.deps.publisher, r.ID, name,
		logginglifecycle.ParticipantJoinedPayload{Seat: string(seat)})

	if len(r.participants) == r.Kind.Capacity() {
		r.enterStartingLocked()
	} else {
		r.queueEmit(EventRoomAwaiting, r.snapshotLocked())
	}
	return seat, nil
}

// JoinLocal seats every participant of a local room from one request. The
// first name takes the driving connection; the rest are bot seats with no
// connection of their own.
func (r *Room) JoinLocal(names []string, connID string, identity Identity) error {
	r.mu.Lock()
	defer func() {
		r.mu.Unlock()
		r.flushEmits()
	}()

	if r.status != StatusWaiting {
		return ErrRoomStarted
	}
	if len(r.participants) > 0 {
		return ErrRoomFull
	}
	if len(names) != r.Kind.Capacity() {
		return ErrNameInvalid
	}
	if err := ValidateNames(names); err != nil {
		return err
	}

	for i, name := range names {
		p := &Participant{Name: name, Seat: SeatNone}
		if i == 0 {
			p.ConnID = connID
			p.Identity = identity
		}
		if r.Kind == KindDuel {
			if i == 0 {
				p.Seat = SeatLeft
			} else {
				p.Seat = SeatRight
			}
		}
		r.participants = append(r.participants, p)
		logginglifecycle.ParticipantJoined(context.Background(), r.deps.publisher, r.ID, name,
			logginglifecycle.ParticipantJoinedPayload{Seat: string(p.Seat)})
	}
	r.enterStartingLocked()
	return nil
}

// nextSeatLocked implements the 1v1 seating rule: first joiner left, second
// right, except that a lone right-seated occupant (possible after a reseat)
// sends the newcomer left. Tournament seats stay unassigned until the
// bracket pairs a match.
func (r *Room) nextSeatLocked() Seat {
	if r.Kind == KindTournament {
		return SeatNone
	}
	if len(r.participants) == 0 {
		return SeatLeft
	}
	if r.participants[0].Seat == SeatRight {
		return SeatLeft
	}
	return SeatRight
}

// enterStartingLocked fires when the seat quota is met. Tournaments draw
// their bracket here; actual play still waits on the ready handshake.
func (r *Room) enterStartingLocked() {
	r.status = StatusStarting
	r.resetReadyLocked()
	if r.Kind == KindTournament && r.bracket == nil {
		r.bracket = newBracket(r.participants, r.deps.rng)
	}
	r.queueEmit(EventRoomAwaiting, r.snapshotLocked())
}

func (r *Room) resetReadyLocked() {
	r.ready = make(map[*Participant]bool)
}

// currentMatchLocked returns the round being played, or nil before the
// first round starts.
func (r *Room) currentMatchLocked() *Match {
	if len(r.matches) == 0 {
		return nil
	}
	return r.matches[len(r.matches)-1]
}

func (r *Room) findByConnLocked(connID string) *Participant {
	if connID == "" {
		return nil
	}
	for _, p := range r.participants {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

// beginRoundLocked transitions starting -> in-progress: appends the round's
// Match, resets the engine, and starts the tick loop. Re-entrant calls while
// a ticker is already running are no-ops.
func (r *Room) beginRoundLocked() {
	if r.status != StatusStarting || r.tickStop != nil {
		return
	}

	var m *Match
	if r.Kind == KindTournament {
		m = r.bracket.currentMatch()
		if m == nil {
			return
		}
		m.SeatA.Seat = SeatLeft
		m.SeatB.Seat = SeatRight
		for _, p := range r.participants {
			if p != m.SeatA && p != m.SeatB {
				p.Seat = SeatNone
			}
		}
	} else {
		var left, right *Participant
		for _, p := range r.participants {
			switch p.Seat {
			case SeatLeft:
				left = p
			case SeatRight:
				right = p
			}
		}
		if left == nil || right == nil {
			return
		}
		m = &Match{SeatA: left, SeatB: right}
	}
	r.matches = append(r.matches, m)

	now := r.deps.now()
	switch r.Game {
	case GamePaddle:
		r.paddle = newPaddleState(now, r.deps.rng)
	case GameReaction:
		r.reaction = newReactionState(r.deps.rng)
	}

	r.status = StatusInProgress
	r.startTickerLocked()

	loggingmatch.Started(context.Background(), r.deps.publisher, r.ID, r.round+1,
		loggingmatch.StartedPayload{SeatA: m.SeatA.Name, SeatB: m.SeatB.Name})
	r.queueEmit(EventMatchStarted, r.snapshotLocked())
}

// finishRoundLocked handles every terminal condition of a round: records the
// outcome, stops the tick loop, hands the result to the sink, and either
// advances the bracket or leaves the room finished.
func (r *Room) finishRoundLocked(duration float64) {
	m := r.currentMatchLocked()
	if m == nil || m.finished {
		return
	}
	m.finalize(r.Kind, duration)
	r.stopTickerLocked()
	r.status = StatusFinished

	winnerName := ""
	if m.Winner != nil {
		winnerName = m.Winner.Name
	}
	loggingmatch.Ended(context.Background(), r.deps.publisher, r.ID, r.round+1,
		loggingmatch.EndedPayload{ScoreA: m.ScoreA, ScoreB: m.ScoreB, Winner: winnerName, Duration: duration})

	r.dispatchResult(m, r.round+1)

	if r.Kind == KindTournament {
		r.bracket.recordWinner(m.Winner)
		if r.bracket.advance() {
			r.round = r.bracket.round
			r.status = StatusStarting
			r.resetReadyLocked()
			r.queueEmit(EventMatchEnded, r.snapshotLocked())
			r.queueEmit(EventRoomAwaiting, r.snapshotLocked())
			return
		}
		r.champion = r.bracket.champion()
		if r.champion != nil {
			loggingmatch.Champion(context.Background(), r.deps.publisher, r.ID,
				loggingmatch.ChampionPayload{Champion: r.champion.Name})
		}
	}
	r.queueEmit(EventMatchEnded, r.snapshotLocked())
}

// dispatchResult hands the finished round to the result sink without ever
// blocking the tick loop. Sink failures are logged and swallowed.
func (r *Room) dispatchResult(m *Match, round int) {
	sink := r.deps.results
	if sink == nil {
		return
	}
	res := resultFromMatch(r, m, round)
	publisher := r.deps.publisher
	roomID := r.ID
	go func() {
		if err := sink.RecordMatchResult(context.Background(), res); err != nil {
			loggingmatch.SinkFailed(context.Background(), publisher, roomID,
				loggingmatch.SinkFailedPayload{Error: err.Error()})
		}
	}()
}

// RequestRestart re-arms a finished duel room for another round. Tournament
// rooms are terminal once the final resolves.
func (r *Room) RequestRestart(connID string) {
	r.mu.Lock()
	defer func() {
		r.mu.Unlock()
		r.flushEmits()
	}()

	if r.Kind != KindDuel || r.status != StatusFinished {
		return
	}
	if r.findByConnLocked(connID) == nil {
		return
	}
	r.round++
	r.status = StatusStarting
	r.resetReadyLocked()
	r.queueEmit(EventRoomAwaiting, r.snapshotLocked())
}

// DisconnectOutcome tells the registry what became of the room after a
// connection dropped.
type DisconnectOutcome int

const (
	// OutcomeUnchanged: the connection was not part of this room.
	OutcomeUnchanged DisconnectOutcome = iota
	// OutcomeWaiting: the room reverted to waiting for a replacement.
	OutcomeWaiting
	// OutcomeTeardown: the room must be removed and occupants notified.
	OutcomeTeardown
)

// HandleDisconnect applies the failure semantics for a dropped connection.
// Tournaments and started remote matches tear down; a 1v1 remote room that
// has not started play reverts to waiting so a replacement can join. The
// single connection of a local room always tears it down.
func (r *Room) HandleDisconnect(connID string) DisconnectOutcome {
	r.mu.Lock()
	defer func() {
		r.mu.Unlock()
		r.flushEmits()
	}()

	p := r.findByConnLocked(connID)
	if p == nil {
		return OutcomeUnchanged
	}

	logginglifecycle.ParticipantLeft(context.Background(), r.deps.publisher, r.ID, p.Name,
		logginglifecycle.ParticipantLeftPayload{Reason: "disconnect"})

	if r.Mode == ModeLocal || r.Kind == KindTournament {
		r.teardownLocked()
		return OutcomeTeardown
	}
	if r.status == StatusInProgress || r.status == StatusPaused {
		r.teardownLocked()
		return OutcomeTeardown
	}

	r.removeParticipantLocked(p)
	if len(r.participants) == 0 {
		r.teardownLocked()
		return OutcomeTeardown
	}
	r.status = StatusWaiting
	r.resetReadyLocked()
	r.queueEmit(EventRoomAwaiting, r.snapshotLocked())
	return OutcomeWaiting
}

func (r *Room) removeParticipantLocked(target *Participant) {
	kept := r.participants[:0]
	for _, p := range r.participants {
		if p != target {
			kept = append(kept, p)
		}
	}
	r.participants = kept
	delete(r.ready, target)
}

// teardownLocked cancels the tick loop and notifies every remaining
// occupant before the registry discards the room.
func (r *Room) teardownLocked() {
	r.stopTickerLocked()
	r.status = StatusFinished
	r.queueEmit(EventRoomTerminated, terminatedMessage{RoomID: r.ID})
	logginglifecycle.RoomTerminated(context.Background(), r.deps.publisher, r.ID,
		logginglifecycle.RoomTerminatedPayload{Reason: "participant left"})
}

// startTickerLocked spins up the repeating tick goroutine. The guard makes
// duplicate ready signals harmless: one room never runs two tickers.
func (r *Room) startTickerLocked() {
	if r.tickStop != nil {
		return
	}
	stop := make(chan struct{})
	r.tickStop = stop

	interval := r.deps.reactionTick
	if r.Game == GamePaddle {
		interval = r.deps.paddleTick
	}
	go r.runTicker(stop, interval)
}

// stopTickerLocked cancels the tick loop. Every path that leaves
// in-progress funnels through here so no orphaned timer keeps mutating a
// dead or paused room.
func (r *Room) stopTickerLocked() {
	if r.tickStop == nil {
		return
	}
	close(r.tickStop)
	r.tickStop = nil
}

func (r *Room) runTicker(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := r.deps.now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = interval.Seconds()
			}
			last = now
			r.handleTick(now, dt)
		}
	}
}

func (r *Room) handleTick(now time.Time, dt float64) {
	r.mu.Lock()
	if r.status != StatusInProgress {
		// A stale tick can race the stop channel; ignore it.
		r.mu.Unlock()
		return
	}
	switch r.Game {
	case GamePaddle:
		r.tickPaddleLocked(now, dt)
	case GameReaction:
		r.tickReactionLocked()
	}
	r.mu.Unlock()
	r.flushEmits()
}

func (r *Room) queueEmit(event string, payload any) {
	r.emits = append(r.emits, pendingEmit{event: event, payload: payload})
}

// flushEmits pushes queued broadcasts after the room lock is released so
// transport IO never runs under the mutex.
func (r *Room) flushEmits() {
	r.mu.Lock()
	queued := r.emits
	r.emits = nil
	r.mu.Unlock()

	if r.deps.broadcast == nil {
		return
	}
	for _, e := range queued {
		r.deps.broadcast.ToRoom(r.ID, e.event, e.payload)
	}
}

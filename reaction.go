package server

import "math/rand"

// The two input layouts. The left column draws letter prompts, the right
// column arrow prompts; the two sets map onto each other position for
// position.
var (
	letterKeys = []string{"w", "a", "s", "d"}
	arrowKeys  = []string{"ArrowUp", "ArrowLeft", "ArrowDown", "ArrowRight"}

	keyEquivalent = map[string]string{
		"w": "ArrowUp", "a": "ArrowLeft", "s": "ArrowDown", "d": "ArrowRight",
		"ArrowUp": "w", "ArrowLeft": "a", "ArrowDown": "s", "ArrowRight": "d",
	}
)

func isLetterKey(key string) bool {
	for _, k := range letterKeys {
		if k == key {
			return true
		}
	}
	return false
}

func isArrowKey(key string) bool {
	for _, k := range arrowKeys {
		if k == key {
			return true
		}
	}
	return false
}

// reactionState is the discrete-event simulation: two rotating single-key
// prompts and a shared countdown, advanced once per second.
type reactionState struct {
	promptLeft  string
	promptRight string
	countdown   int
}

func newReactionState(rng *rand.Rand) *reactionState {
	return &reactionState{
		promptLeft:  letterKeys[rng.Intn(len(letterKeys))],
		promptRight: arrowKeys[rng.Intn(len(arrowKeys))],
		countdown:   reactionCountdown,
	}
}

func (s *reactionState) redraw(seat Seat, rng *rand.Rand) {
	if seat == SeatLeft {
		s.promptLeft = letterKeys[rng.Intn(len(letterKeys))]
		return
	}
	s.promptRight = arrowKeys[rng.Intn(len(arrowKeys))]
}

// matches reports whether the key answers the column's current prompt,
// directly or through the equivalent key of the other layout.
func (s *reactionState) matches(seat Seat, key string) bool {
	prompt := s.promptLeft
	if seat == SeatRight {
		prompt = s.promptRight
	}
	return key == prompt || keyEquivalent[key] == prompt
}

// SubmitKeypress scores one keystroke against the rotating prompts. Correct
// answers add a point and redraw the column; wrong answers subtract one
// with no floor, so mashing goes negative. Remote seats answer only their
// own column in their own layout; the single local connection answers
// either column, routed by which layout the key belongs to.
func (r *Room) SubmitKeypress(connID, key string) {
	r.mu.Lock()
	defer func() {
		r.mu.Unlock()
		r.flushEmits()
	}()

	if r.Game != GameReaction || r.reaction == nil {
		return
	}
	if r.status != StatusInProgress || r.reaction.countdown <= 0 {
		return
	}
	p := r.findByConnLocked(connID)
	if p == nil {
		return
	}
	m := r.currentMatchLocked()
	if m == nil {
		return
	}

	var seat Seat
	if r.Mode == ModeRemote {
		seat = p.Seat
		ownLayout := (seat == SeatLeft && isLetterKey(key)) || (seat == SeatRight && isArrowKey(key))
		if !ownLayout {
			return
		}
		prompt := r.reaction.promptLeft
		if seat == SeatRight {
			prompt = r.reaction.promptRight
		}
		if key != prompt {
			r.applyScoreLocked(m, seat, -1)
			r.queueEmit(EventRoomState, r.snapshotLocked())
			return
		}
	} else {
		switch {
		case r.reaction.matches(SeatLeft, key):
			seat = SeatLeft
		case r.reaction.matches(SeatRight, key):
			seat = SeatRight
		case isLetterKey(key):
			r.applyScoreLocked(m, SeatLeft, -1)
			r.queueEmit(EventRoomState, r.snapshotLocked())
			return
		case isArrowKey(key):
			r.applyScoreLocked(m, SeatRight, -1)
			r.queueEmit(EventRoomState, r.snapshotLocked())
			return
		default:
			return
		}
	}

	r.applyScoreLocked(m, seat, 1)
	r.reaction.redraw(seat, r.deps.rng)
	r.queueEmit(EventCorrectInput, correctInputMessage{Seat: seatIndex(seat)})
	r.queueEmit(EventRoomState, r.snapshotLocked())
}

func (r *Room) applyScoreLocked(m *Match, seat Seat, delta int) {
	if seat == SeatLeft {
		m.ScoreA += delta
	} else {
		m.ScoreB += delta
	}
}

// tickReactionLocked decrements the shared countdown once per second and
// finalizes the round when it reaches zero.
func (r *Room) tickReactionLocked() {
	if r.reaction == nil {
		return
	}
	r.reaction.countdown--
	if r.reaction.countdown <= 0 {
		r.reaction.countdown = 0
		r.finishRoundLocked(float64(reactionCountdown))
		return
	}
	r.queueEmit(EventRoomState, r.snapshotLocked())
}

func seatIndex(seat Seat) int {
	if seat == SeatRight {
		return 2
	}
	return 1
}

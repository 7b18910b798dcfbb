package server

import (
	"testing"
)

func startReactionDuel(t *testing.T, mode ExecutionMode) (*Registry, *recordingBroadcaster, *Room, string, string) {
	t.Helper()
	reg, broadcaster, _ := newTestRegistry(t)
	if mode == ModeLocal {
		room := reg.CreateRoom(GameReaction, KindDuel, ModeLocal)
		if err := room.JoinLocal([]string{"Alice", "Bob"}, "conn-a", GuestIdentity()); err != nil {
			t.Fatalf("local join failed: %v", err)
		}
		room.SetReady("conn-a")
		freeze(room)
		return reg, broadcaster, room, "conn-a", ""
	}
	room, a, b := startDuel(t, reg, GameReaction)
	return reg, broadcaster, room, a, b
}

func setPrompts(r *Room, left, right string) {
	r.mu.Lock()
	r.reaction.promptLeft = left
	r.reaction.promptRight = right
	r.mu.Unlock()
}

func scores(r *Room) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.currentMatchLocked()
	return m.ScoreA, m.ScoreB
}

func TestReactionCorrectKeyScoresAndRedraws(t *testing.T) {
	_, broadcaster, room, a, _ := startReactionDuel(t, ModeRemote)
	setPrompts(room, "w", "ArrowUp")

	room.SubmitKeypress(a, "w")

	scoreA, scoreB := scores(room)
	if scoreA != 1 || scoreB != 0 {
		t.Fatalf("correct key must score exactly one point, got %d/%d", scoreA, scoreB)
	}

	flashes := broadcaster.ofType(EventCorrectInput)
	if len(flashes) != 1 {
		t.Fatalf("expected one correct_input flash, got %d", len(flashes))
	}
	if msg := flashes[0].payload.(correctInputMessage); msg.Seat != 1 {
		t.Fatalf("left seat flashes as seat 1, got %d", msg.Seat)
	}

	room.mu.Lock()
	prompt := room.reaction.promptLeft
	room.mu.Unlock()
	if !isLetterKey(prompt) {
		t.Fatalf("redraw must pick from the letter column, got %q", prompt)
	}
}

func TestReactionWrongKeyPenalizesWithoutFloor(t *testing.T) {
	_, broadcaster, room, a, _ := startReactionDuel(t, ModeRemote)
	setPrompts(room, "w", "ArrowUp")

	room.SubmitKeypress(a, "s")
	room.SubmitKeypress(a, "s")
	room.SubmitKeypress(a, "s")

	scoreA, _ := scores(room)
	if scoreA != -3 {
		t.Fatalf("penalties have no floor, expected -3, got %d", scoreA)
	}
	if len(broadcaster.ofType(EventCorrectInput)) != 0 {
		t.Fatalf("penalties must not flash correct_input")
	}
}

func TestReactionRemoteSeatIgnoresOtherLayout(t *testing.T) {
	_, _, room, a, b := startReactionDuel(t, ModeRemote)
	setPrompts(room, "w", "ArrowUp")

	// Alice (left, letters) sends an arrow; Bob (right, arrows) a letter.
	// Neither touches any score, even when the key would match the prompt
	// through the equivalence map.
	room.SubmitKeypress(a, "ArrowUp")
	room.SubmitKeypress(b, "w")

	scoreA, scoreB := scores(room)
	if scoreA != 0 || scoreB != 0 {
		t.Fatalf("cross-layout keys must be ignored, got %d/%d", scoreA, scoreB)
	}
}

func TestReactionLocalRoutesByEquivalence(t *testing.T) {
	_, _, room, conn, _ := startReactionDuel(t, ModeLocal)
	setPrompts(room, "s", "ArrowUp")

	// "w" misses the left prompt but answers the right prompt through the
	// equivalence map, so the right seat scores.
	room.SubmitKeypress(conn, "w")

	scoreA, scoreB := scores(room)
	if scoreA != 0 || scoreB != 1 {
		t.Fatalf("equivalent key must credit the matching column, got %d/%d", scoreA, scoreB)
	}
}

func TestReactionLocalPenaltyRoutedByKeyLayout(t *testing.T) {
	_, _, room, conn, _ := startReactionDuel(t, ModeLocal)
	setPrompts(room, "s", "ArrowDown")

	// "a" matches neither prompt (nor an equivalent); as a letter it
	// penalizes the left seat. ArrowLeft does the same for the right seat.
	room.SubmitKeypress(conn, "a")
	room.SubmitKeypress(conn, "ArrowLeft")

	scoreA, scoreB := scores(room)
	if scoreA != -1 || scoreB != -1 {
		t.Fatalf("wrong keys penalize their own layout's seat, got %d/%d", scoreA, scoreB)
	}
}

func TestReactionUnknownKeyIgnored(t *testing.T) {
	_, _, room, conn, _ := startReactionDuel(t, ModeLocal)
	setPrompts(room, "s", "ArrowDown")

	room.SubmitKeypress(conn, "q")
	room.SubmitKeypress(conn, "Enter")

	scoreA, scoreB := scores(room)
	if scoreA != 0 || scoreB != 0 {
		t.Fatalf("keys outside both layouts are no-ops, got %d/%d", scoreA, scoreB)
	}
}

func TestReactionCountdownFinalizesRound(t *testing.T) {
	_, broadcaster, room, _, _ := startReactionDuel(t, ModeRemote)

	room.mu.Lock()
	m := room.currentMatchLocked()
	m.ScoreA = 5
	m.ScoreB = 2
	for i := 0; i < reactionCountdown; i++ {
		room.tickReactionLocked()
	}
	room.mu.Unlock()
	room.flushEmits()

	if got := room.Status(); got != StatusFinished {
		t.Fatalf("expected finished at zero, got %s", got)
	}
	state := room.Snapshot()
	if state.Matches[0].Winner != "Alice" {
		t.Fatalf("higher score wins, got %q", state.Matches[0].Winner)
	}
	if state.Matches[0].Duration != reactionCountdown {
		t.Fatalf("round duration is the full countdown, got %f", state.Matches[0].Duration)
	}
	if len(broadcaster.ofType(EventMatchEnded)) != 1 {
		t.Fatalf("expected one match_ended broadcast")
	}
}

func TestReactionDuelTieHasNoWinner(t *testing.T) {
	_, _, room, _, _ := startReactionDuel(t, ModeRemote)

	room.mu.Lock()
	for i := 0; i < reactionCountdown; i++ {
		room.tickReactionLocked()
	}
	room.mu.Unlock()
	room.flushEmits()

	state := room.Snapshot()
	if state.Matches[0].Winner != "" {
		t.Fatalf("a tied duel has no winner, got %q", state.Matches[0].Winner)
	}
}

func TestReactionKeypressAfterZeroIgnored(t *testing.T) {
	_, _, room, a, _ := startReactionDuel(t, ModeRemote)
	setPrompts(room, "w", "ArrowUp")

	room.mu.Lock()
	for i := 0; i < reactionCountdown; i++ {
		room.tickReactionLocked()
	}
	room.mu.Unlock()
	room.flushEmits()

	room.SubmitKeypress(a, "w")
	scoreA, _ := scores(room)
	if scoreA != 0 {
		t.Fatalf("input after the countdown is void, got score %d", scoreA)
	}
}

package server

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedEntrants(names ...string) []*Participant {
	entrants := make([]*Participant, len(names))
	for i, name := range names {
		entrants[i] = &Participant{Name: name}
	}
	return entrants
}

func TestBracketPairsShuffledSemifinals(t *testing.T) {
	entrants := namedEntrants("P1", "P2", "P3", "P4")
	b := newBracket(entrants, rand.New(rand.NewSource(13)))

	require.Len(t, b.matches, 2)
	assert.Same(t, b.order[0], b.matches[0].SeatA)
	assert.Same(t, b.order[1], b.matches[0].SeatB)
	assert.Same(t, b.order[2], b.matches[1].SeatA)
	assert.Same(t, b.order[3], b.matches[1].SeatB)

	// The shuffle permutes the entrants; every entrant appears exactly once.
	seen := map[*Participant]bool{}
	for _, p := range b.order {
		assert.False(t, seen[p], "entrant %s drawn twice", p.Name)
		seen[p] = true
	}
	assert.Len(t, seen, 4)
}

func TestBracketShuffleVariesAcrossDraws(t *testing.T) {
	entrants := namedEntrants("P1", "P2", "P3", "P4")
	rng := rand.New(rand.NewSource(1))
	varied := false
	for i := 0; i < 50 && !varied; i++ {
		b := newBracket(entrants, rng)
		for j, p := range b.order {
			if p != entrants[j] {
				varied = true
				break
			}
		}
	}
	assert.True(t, varied, "50 draws never deviated from the seed order")
}

func TestBracketFinalPairsSemifinalWinners(t *testing.T) {
	entrants := namedEntrants("P1", "P2", "P3", "P4")
	b := newBracket(entrants, rand.New(rand.NewSource(13)))

	semi1 := b.currentMatch()
	require.NotNil(t, semi1)
	semi1.ScoreA = 3
	semi1.finalize(KindTournament, 40)
	b.recordWinner(semi1.Winner)
	require.True(t, b.advance())

	// The final is not buildable until both semifinals resolve.
	require.True(t, b.round == 1)

	semi2 := b.currentMatch()
	require.NotNil(t, semi2)
	require.NotSame(t, semi1, semi2)
	semi2.ScoreB = 3
	semi2.finalize(KindTournament, 55)
	b.recordWinner(semi2.Winner)
	require.True(t, b.advance())

	final := b.currentMatch()
	require.NotNil(t, final)
	assert.Same(t, semi1.SeatA, final.SeatA)
	assert.Same(t, semi2.SeatB, final.SeatB)
	assert.Nil(t, b.champion())

	final.ScoreA = 3
	final.finalize(KindTournament, 70)
	b.recordWinner(final.Winner)
	assert.False(t, b.advance(), "a played final is terminal")
	assert.Same(t, final.SeatA, b.champion())
}

func TestBracketFinalWaitsForBothWinners(t *testing.T) {
	entrants := namedEntrants("P1", "P2", "P3", "P4")
	b := newBracket(entrants, rand.New(rand.NewSource(13)))
	b.round = 2
	b.winners = []*Participant{entrants[0]}
	assert.Nil(t, b.currentMatch())
}

func TestMatchFinalizeTieSemantics(t *testing.T) {
	a, b := &Participant{Name: "A"}, &Participant{Name: "B"}

	duel := &Match{SeatA: a, SeatB: b, ScoreA: 2, ScoreB: 2}
	duel.finalize(KindDuel, 20)
	assert.Nil(t, duel.Winner, "tied duels have no winner")

	semi := &Match{SeatA: a, SeatB: b, ScoreA: 2, ScoreB: 2}
	semi.finalize(KindTournament, 20)
	assert.Same(t, b, semi.Winner, "tied tournament rounds advance seat B")

	done := &Match{SeatA: a, SeatB: b, ScoreA: 3}
	done.finalize(KindDuel, 20)
	done.ScoreB = 5
	done.finalize(KindDuel, 99)
	assert.Same(t, a, done.Winner, "finalize is idempotent")
	assert.Equal(t, 20.0, done.Duration)
}

func TestTournamentPlaysThreeRoundsToChampion(t *testing.T) {
	reg, broadcaster, _ := newTestRegistry(t)
	room := reg.CreateRoom(GameReaction, KindTournament, ModeRemote)
	conns := map[string]string{}
	for _, name := range []string{"P1", "P2", "P3", "P4"} {
		conn := "conn-" + name
		conns[name] = conn
		_, err := room.Join(name, conn, GuestIdentity())
		require.NoError(t, err)
	}
	require.Equal(t, StatusStarting, room.Status())

	playRound := func(round int) MatchView {
		state := room.Snapshot()
		require.Equal(t, StatusStarting, state.Status, "round %d", round)

		pair := room.currentPairing()
		room.SetReady(conns[pair[0]])
		require.Equal(t, StatusStarting, room.Status(), "one ready must not start round %d", round)
		room.SetReady(conns[pair[1]])
		require.Equal(t, StatusInProgress, room.Status())
		freeze(room)

		// Seat A takes the round on points.
		room.mu.Lock()
		room.currentMatchLocked().ScoreA = 4
		for i := 0; i < reactionCountdown; i++ {
			if room.status != StatusInProgress {
				break
			}
			room.tickReactionLocked()
		}
		room.mu.Unlock()
		room.flushEmits()

		state = room.Snapshot()
		return state.Matches[len(state.Matches)-1]
	}

	semi1 := playRound(1)
	require.Equal(t, semi1.SeatA, semi1.Winner)
	require.Equal(t, StatusStarting, room.Status(), "the bracket re-arms for the next semifinal")

	semi2 := playRound(2)
	require.Equal(t, semi2.SeatA, semi2.Winner)

	final := playRound(3)
	assert.Equal(t, semi1.Winner, final.SeatA, "the final pairs the semifinal winners")
	assert.Equal(t, semi2.Winner, final.SeatB)

	assert.Equal(t, StatusFinished, room.Status(), "a resolved final is terminal")
	state := room.Snapshot()
	assert.Equal(t, final.Winner, state.Champion)
	assert.Len(t, state.Matches, tournamentRounds)
	assert.NotEmpty(t, broadcaster.ofType(EventMatchEnded))

	// Tournaments never restart.
	room.RequestRestart(conns["P1"])
	assert.Equal(t, StatusFinished, room.Status())
}

func TestTournamentTieAdvancesSeatB(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	room := reg.CreateRoom(GameReaction, KindTournament, ModeLocal)
	err := room.JoinLocal([]string{"P1", "P2", "P3", "P4"}, "conn-a", GuestIdentity())
	require.NoError(t, err)

	room.SetReady("conn-a")
	require.Equal(t, StatusInProgress, room.Status())
	freeze(room)

	// Let the first semifinal run out level.
	room.mu.Lock()
	for i := 0; i < reactionCountdown; i++ {
		if room.status != StatusInProgress {
			break
		}
		room.tickReactionLocked()
	}
	room.mu.Unlock()
	room.flushEmits()

	state := room.Snapshot()
	semi := state.Matches[0]
	assert.Equal(t, semi.SeatB, semi.Winner, "a tied semifinal advances seat B")
	assert.Equal(t, StatusStarting, room.Status())
}

// currentPairing returns the names due to play the pending round, in seat
// order. Test helper only.
func (r *Room) currentPairing() [2]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.bracket.currentMatch()
	return [2]string{m.SeatA.Name, m.SeatB.Name}
}

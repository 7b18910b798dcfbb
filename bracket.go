package server

import "math/rand"

// bracket is a 4-entrant single-elimination structure: both semifinals are
// pre-paired from one shuffle at round 1, the round index tracks whose turn
// it is to play, and the final pairs the two semifinal winners.
type bracket struct {
	order   []*Participant
	matches []*Match
	round   int // 0 and 1 are the semifinals, 2 the final
	winners []*Participant
}

// newBracket shuffles the entrants uniformly and pairs (1st,2nd) and
// (3rd,4th) as the semifinals.
func newBracket(entrants []*Participant, rng *rand.Rand) *bracket {
	order := append([]*Participant(nil), entrants...)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return &bracket{
		order: order,
		matches: []*Match{
			{SeatA: order[0], SeatB: order[1]},
			{SeatA: order[2], SeatB: order[3]},
		},
	}
}

// currentMatch returns the pairing whose turn it is, building the final
// lazily once both semifinal winners are known.
func (b *bracket) currentMatch() *Match {
	if b.round < len(b.matches) && b.round < tournamentRounds-1 {
		return b.matches[b.round]
	}
	if b.round == tournamentRounds-1 {
		if len(b.winners) < 2 {
			return nil
		}
		if len(b.matches) < tournamentRounds {
			b.matches = append(b.matches, &Match{SeatA: b.winners[0], SeatB: b.winners[1]})
		}
		return b.matches[tournamentRounds-1]
	}
	return nil
}

// recordWinner notes the current round's winner for later pairing.
func (b *bracket) recordWinner(w *Participant) {
	if w == nil {
		return
	}
	b.winners = append(b.winners, w)
}

// advance moves to the next round. It returns false once the final has been
// played and the bracket is terminal.
func (b *bracket) advance() bool {
	if b.round >= tournamentRounds-1 {
		return false
	}
	b.round++
	return true
}

// champion returns the winner of the final, or nil before it resolves.
func (b *bracket) champion() *Participant {
	if len(b.matches) < tournamentRounds {
		return nil
	}
	return b.matches[tournamentRounds-1].Winner
}

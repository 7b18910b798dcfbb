package server

import (
	"math"
	"math/rand"
	"time"
)

// paddleState is the continuous-time simulation for one paddle round. The
// table is centered on the origin: paddles sit on the x bounds, walls on
// the z bounds. step is a pure function of state and elapsed time so the
// simulation is testable without a transport.
type paddleState struct {
	ballX, ballZ float64
	velX, velZ   float64
	leftZ        float64
	rightZ       float64
	lastTouch    Seat
	endAt        time.Time
}

func newPaddleState(now time.Time, rng *rand.Rand) *paddleState {
	s := &paddleState{endAt: now.Add(paddleRoundLimit)}
	s.serve(rng)
	return s
}

// serve recenters the ball with a fresh randomized direction: x speed is a
// coin flip between ±6.0, z drift uniform in [-2, 2]. Scoring stays
// disarmed until a paddle touches the ball.
func (s *paddleState) serve(rng *rand.Rand) {
	s.ballX = 0
	s.ballZ = 0
	s.velX = serveSpeedX
	if rng.Intn(2) == 0 {
		s.velX = -serveSpeedX
	}
	s.velZ = -serveMaxZ + rng.Float64()*2*serveMaxZ
	s.lastTouch = SeatNone
}

// step advances the ball by one tick and reports which side scored, if any.
// A crossing before any paddle contact resets the serve without a point.
func (s *paddleState) step(dt float64, rng *rand.Rand) Seat {
	s.ballX += s.velX * dt
	s.ballZ += s.velZ * dt

	// Wall contact reflects z velocity and clamps to the bound.
	if s.ballZ > tableHalfDepth {
		s.ballZ = tableHalfDepth
		s.velZ = -s.velZ
	} else if s.ballZ < -tableHalfDepth {
		s.ballZ = -tableHalfDepth
		s.velZ = -s.velZ
	}

	s.checkPaddle(SeatLeft, -tableHalfWidth, s.leftZ)
	s.checkPaddle(SeatRight, tableHalfWidth, s.rightZ)

	switch {
	case s.ballX > tableHalfWidth:
		return s.resolveCross(SeatLeft, rng)
	case s.ballX < -tableHalfWidth:
		return s.resolveCross(SeatRight, rng)
	}
	return SeatNone
}

// checkPaddle applies the contact rule: a ball inside the hit window and
// moving toward the paddle is returned with 5% more x speed, and picks up
// z velocity proportional to how far off-center it struck.
func (s *paddleState) checkPaddle(seat Seat, paddleX, paddleZ float64) {
	toward := (seat == SeatLeft && s.velX < 0) || (seat == SeatRight && s.velX > 0)
	if !toward {
		return
	}
	if math.Abs(s.ballX-paddleX) >= paddleHitX || math.Abs(s.ballZ-paddleZ) >= paddleHitZ {
		return
	}
	s.velX = -s.velX * speedUpFactor
	s.velZ += deflectFactor * (s.ballZ - paddleZ)
	s.lastTouch = seat
	// The hit window extends past the paddle line; pull a returned ball
	// back inside the table so the bounce cannot double as a crossing.
	if seat == SeatRight && s.ballX > paddleX {
		s.ballX = paddleX
	}
	if seat == SeatLeft && s.ballX < paddleX {
		s.ballX = paddleX
	}
}

// resolveCross handles the ball leaving the table past a paddle. Only a
// crossing after a touch awards the point; an untouched serve just resets.
func (s *paddleState) resolveCross(scorer Seat, rng *rand.Rand) Seat {
	touched := s.lastTouch != SeatNone
	s.serve(rng)
	if !touched {
		return SeatNone
	}
	return scorer
}

// movePaddle clamps the requested offset to the wall bounds.
func (s *paddleState) movePaddle(seat Seat, z float64) {
	z = math.Max(-tableHalfDepth, math.Min(tableHalfDepth, z))
	switch seat {
	case SeatLeft:
		s.leftZ = z
	case SeatRight:
		s.rightZ = z
	}
}

// MovePaddle positions a paddle. Remote participants may only drive their
// own seat; the single local connection drives either side.
func (r *Room) MovePaddle(connID string, seat Seat, z float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Game != GamePaddle || r.paddle == nil {
		return
	}
	if r.status != StatusInProgress && r.status != StatusPaused {
		return
	}
	p := r.findByConnLocked(connID)
	if p == nil {
		return
	}
	if r.Mode == ModeRemote {
		seat = p.Seat
	}
	if seat != SeatLeft && seat != SeatRight {
		return
	}
	r.paddle.movePaddle(seat, z)
}

// tickPaddleLocked runs one fixed-rate advance: move the ball, apply any
// point, then check the two terminal conditions (score threshold, round
// budget).
func (r *Room) tickPaddleLocked(now time.Time, dt float64) {
	m := r.currentMatchLocked()
	if m == nil || r.paddle == nil {
		return
	}

	scorer := r.paddle.step(dt, r.deps.rng)
	switch scorer {
	case SeatLeft:
		m.ScoreA++
	case SeatRight:
		m.ScoreB++
	}

	if m.ScoreA >= paddleWinScore || m.ScoreB >= paddleWinScore {
		// Duration is the budget minus whatever was still on the clock.
		remaining := r.paddle.endAt.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		r.finishRoundLocked((paddleRoundLimit - remaining).Seconds())
		return
	}
	if !now.Before(r.paddle.endAt) {
		r.finishRoundLocked(paddleRoundLimit.Seconds())
		return
	}
	r.queueEmit(EventRoomState, r.snapshotLocked())
}

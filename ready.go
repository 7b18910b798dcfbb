package server

// requiredReadyLocked lists the seats that must signal ready before play
// begins: both seats of a duel, or the two seats of the tournament round
// whose turn it is.
func (r *Room) requiredReadyLocked() []*Participant {
	if r.Kind == KindTournament {
		if r.bracket == nil {
			return nil
		}
		m := r.bracket.currentMatch()
		if m == nil {
			return nil
		}
		return []*Participant{m.SeatA, m.SeatB}
	}
	if len(r.participants) < duelCapacity {
		return nil
	}
	return r.participants[:duelCapacity]
}

// SetReady records one participant's ready signal. In local mode a single
// signal from the driving connection starts play immediately; in remote
// mode the round begins once every required seat is ready. Signals outside
// the starting state, and duplicates, are deliberate no-ops.
func (r *Room) SetReady(connID string) {
	r.mu.Lock()
	defer func() {
		r.mu.Unlock()
		r.flushEmits()
	}()

	if r.status != StatusStarting {
		return
	}
	p := r.findByConnLocked(connID)
	if p == nil {
		return
	}

	if r.Mode == ModeLocal {
		r.beginRoundLocked()
		return
	}

	required := r.requiredReadyLocked()
	member := false
	for _, q := range required {
		if q == p {
			member = true
			break
		}
	}
	if !member {
		return
	}
	r.ready[p] = true

	for _, q := range required {
		if !r.ready[q] {
			r.queueEmit(EventRoomAwaiting, r.snapshotLocked())
			return
		}
	}
	r.beginRoundLocked()
}

// TogglePause flips in-progress and paused for a local paddle room. Pausing
// cancels the tick loop; resuming extends the round deadline by the paused
// span so frozen time never counts against the budget.
func (r *Room) TogglePause(connID string) {
	r.mu.Lock()
	defer func() {
		r.mu.Unlock()
		r.flushEmits()
	}()

	if r.Game != GamePaddle || r.Mode != ModeLocal {
		return
	}
	if r.findByConnLocked(connID) == nil {
		return
	}

	switch r.status {
	case StatusInProgress:
		r.stopTickerLocked()
		r.pausedAt = r.deps.now()
		r.status = StatusPaused
		r.queueEmit(EventRoomState, r.snapshotLocked())
	case StatusPaused:
		if r.paddle != nil {
			r.paddle.endAt = r.paddle.endAt.Add(r.deps.now().Sub(r.pausedAt))
		}
		r.status = StatusInProgress
		r.startTickerLocked()
		r.queueEmit(EventRoomState, r.snapshotLocked())
	}
}

package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"matchpoint/server/logging"
	loggingmatch "matchpoint/server/logging/match"
)

func TestLoggingResultSinkPublishesRecord(t *testing.T) {
	var captured logging.Event
	sink := LoggingResultSink(logging.PublisherFunc(func(_ context.Context, e logging.Event) {
		captured = e
	}))

	res := MatchResult{Game: GamePaddle, SeatA: "Alice", SeatB: "Bob", ScoreA: 3, WinnerSeat: SeatLeft}
	if err := sink.RecordMatchResult(context.Background(), res); err != nil {
		t.Fatalf("logging sink never fails: %v", err)
	}
	if captured.Type != "match.result_recorded" {
		t.Fatalf("unexpected event type %q", captured.Type)
	}
	if got, ok := captured.Payload.(MatchResult); !ok || got.SeatA != "Alice" {
		t.Fatalf("payload must carry the result, got %+v", captured.Payload)
	}
}

func TestSinkFailureIsLoggedAndSwallowed(t *testing.T) {
	published := make(chan logging.Event, 8)
	recorded := make(chan MatchResult, 1)

	broadcaster := &recordingBroadcaster{}
	clock := newManualClock()
	reg := NewRegistry(RegistryConfig{
		PaddleTickRate: 1,
		Seed:           42,
		Now:            clock.Now,
		Broadcaster:    broadcaster,
		Publisher: logging.PublisherFunc(func(_ context.Context, e logging.Event) {
			select {
			case published <- e:
			default:
			}
		}),
		Results: ResultSinkFunc(func(_ context.Context, res MatchResult) error {
			recorded <- res
			return errors.New("store unavailable")
		}),
	})

	room, _, _ := startDuel(t, reg, GameReaction)
	room.mu.Lock()
	room.currentMatchLocked().ScoreA = 2
	room.finishRoundLocked(20)
	room.mu.Unlock()
	room.flushEmits()

	select {
	case res := <-recorded:
		if res.WinnerSeat != SeatLeft {
			t.Fatalf("unexpected result %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("result never reached the sink")
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-published:
			if e.Type == loggingmatch.EventResultSinkFailed {
				if room.Status() != StatusFinished {
					t.Fatalf("a failing sink must not disturb the room")
				}
				return
			}
		case <-deadline:
			t.Fatalf("sink failure was never logged")
		}
	}
}

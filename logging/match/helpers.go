package match

import (
	"context"

	"matchpoint/server/logging"
)

const (
	// EventStarted is emitted when a round transitions to in-progress.
	EventStarted logging.EventType = "match.started"
	// EventEnded is emitted when a round reaches a terminal condition.
	EventEnded logging.EventType = "match.ended"
	// EventChampion is emitted when a tournament final resolves.
	EventChampion logging.EventType = "match.champion"
	// EventResultSinkFailed is emitted when the result sink rejects a record.
	EventResultSinkFailed logging.EventType = "match.result_sink_failed"
)

// StartedPayload captures the pairing for a round.
type StartedPayload struct {
	SeatA string `json:"seatA"`
	SeatB string `json:"seatB"`
}

// EndedPayload captures the final tally for a round.
type EndedPayload struct {
	ScoreA   int     `json:"scoreA"`
	ScoreB   int     `json:"scoreB"`
	Winner   string  `json:"winner,omitempty"`
	Duration float64 `json:"durationSeconds"`
}

// ChampionPayload names the tournament champion.
type ChampionPayload struct {
	Champion string `json:"champion"`
}

// SinkFailedPayload captures a swallowed result-sink error.
type SinkFailedPayload struct {
	Error string `json:"error"`
}

// Started publishes a round start event.
func Started(ctx context.Context, pub logging.Publisher, roomID string, round int, payload StartedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStarted,
		Room:     roomID,
		Round:    round,
		Actor:    logging.RoomRef(roomID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}

// Ended publishes a round end event.
func Ended(ctx context.Context, pub logging.Publisher, roomID string, round int, payload EndedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEnded,
		Room:     roomID,
		Round:    round,
		Actor:    logging.RoomRef(roomID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}

// Champion publishes a tournament resolution event.
func Champion(ctx context.Context, pub logging.Publisher, roomID string, payload ChampionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventChampion,
		Room:     roomID,
		Actor:    logging.RoomRef(roomID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}

// SinkFailed publishes a result-sink failure. The failure is logged and
// swallowed; match flow never observes it.
func SinkFailed(ctx context.Context, pub logging.Publisher, roomID string, payload SinkFailedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventResultSinkFailed,
		Room:     roomID,
		Actor:    logging.RoomRef(roomID),
		Severity: logging.SeverityError,
		Category: logging.CategoryMatch,
		Payload:  payload,
	})
}

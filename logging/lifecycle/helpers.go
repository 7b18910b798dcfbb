package lifecycle

import (
	"context"

	"matchpoint/server/logging"
)

const (
	// EventRoomCreated is emitted when the registry allocates a room.
	EventRoomCreated logging.EventType = "lifecycle.room_created"
	// EventParticipantJoined is emitted when a participant takes a seat.
	EventParticipantJoined logging.EventType = "lifecycle.participant_joined"
	// EventParticipantLeft is emitted when a participant leaves or disconnects.
	EventParticipantLeft logging.EventType = "lifecycle.participant_left"
	// EventRoomTerminated is emitted when a room is torn down.
	EventRoomTerminated logging.EventType = "lifecycle.room_terminated"
)

// RoomCreatedPayload captures the shape of a freshly allocated room.
type RoomCreatedPayload struct {
	Game string `json:"game"`
	Kind string `json:"kind"`
	Mode string `json:"mode"`
}

// ParticipantJoinedPayload captures the assigned seat.
type ParticipantJoinedPayload struct {
	Seat string `json:"seat"`
}

// ParticipantLeftPayload captures why the participant left.
type ParticipantLeftPayload struct {
	Reason string `json:"reason"`
}

// RoomTerminatedPayload captures why a room was discarded.
type RoomTerminatedPayload struct {
	Reason string `json:"reason"`
}

// RoomCreated publishes a room allocation event.
func RoomCreated(ctx context.Context, pub logging.Publisher, roomID string, payload RoomCreatedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRoomCreated,
		Room:     roomID,
		Actor:    logging.RoomRef(roomID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// ParticipantJoined publishes a seat assignment event.
func ParticipantJoined(ctx context.Context, pub logging.Publisher, roomID, name string, payload ParticipantJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventParticipantJoined,
		Room:     roomID,
		Actor:    logging.ParticipantRef(name),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// ParticipantLeft publishes a leave/disconnect event.
func ParticipantLeft(ctx context.Context, pub logging.Publisher, roomID, name string, payload ParticipantLeftPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventParticipantLeft,
		Room:     roomID,
		Actor:    logging.ParticipantRef(name),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// RoomTerminated publishes a teardown event.
func RoomTerminated(ctx context.Context, pub logging.Publisher, roomID string, payload RoomTerminatedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRoomTerminated,
		Room:     roomID,
		Actor:    logging.RoomRef(roomID),
		Severity: logging.SeverityWarn,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

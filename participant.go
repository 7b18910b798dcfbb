package server

import (
	"errors"
	"fmt"
	"regexp"
)

// GameKind selects which engine drives a room.
type GameKind string

const (
	GamePaddle   GameKind = "paddle"
	GameReaction GameKind = "reaction"
)

func ParseGameKind(raw string) (GameKind, bool) {
	switch GameKind(raw) {
	case GamePaddle, GameReaction:
		return GameKind(raw), true
	}
	return "", false
}

// RoomKind distinguishes a single 1v1 match from a 4-player bracket.
type RoomKind string

const (
	KindDuel       RoomKind = "duel"
	KindTournament RoomKind = "tournament"
)

func ParseRoomKind(raw string) (RoomKind, bool) {
	switch RoomKind(raw) {
	case KindDuel, KindTournament:
		return RoomKind(raw), true
	}
	return "", false
}

// Capacity returns the seat quota for the kind.
func (k RoomKind) Capacity() int {
	if k == KindTournament {
		return tournamentCapacity
	}
	return duelCapacity
}

// ExecutionMode says whether one connection drives every seat (local) or
// each seat arrives on its own connection (remote).
type ExecutionMode string

const (
	ModeLocal  ExecutionMode = "local"
	ModeRemote ExecutionMode = "remote"
)

func ParseExecutionMode(raw string) (ExecutionMode, bool) {
	switch ExecutionMode(raw) {
	case ModeLocal, ModeRemote:
		return ExecutionMode(raw), true
	}
	return "", false
}

// Seat is a logical playing slot, distinct from the connection occupying it.
type Seat string

const (
	SeatNone  Seat = "none"
	SeatLeft  Seat = "left"
	SeatRight Seat = "right"
)

// Identity is a tagged variant: authenticated participants carry a durable
// player id that survives the session; guests carry nothing.
type Identity struct {
	durableID string
}

func AuthenticatedIdentity(durableID string) Identity {
	return Identity{durableID: durableID}
}

func GuestIdentity() Identity {
	return Identity{}
}

// DurableID reports the stable player id, if the participant authenticated.
func (i Identity) DurableID() (string, bool) {
	if i.durableID == "" {
		return "", false
	}
	return i.durableID, true
}

// Participant is one occupant of a room. ConnID is empty for local bot
// seats, which are driven by the room's single real connection.
type Participant struct {
	Identity Identity
	ConnID   string
	Name     string
	Seat     Seat
}

var (
	ErrNameInvalid = errors.New("that name is not allowed")
	ErrNameTaken   = errors.New("that name is already taken")

	namePattern = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)
)

// ValidateName enforces the display-name format shared by every join path:
// non-empty, at most 20 characters, letters/digits/space/underscore/hyphen.
func ValidateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return ErrNameInvalid
	}
	if !namePattern.MatchString(name) {
		return ErrNameInvalid
	}
	return nil
}

// ValidateNames checks a full local-mode name set: every name well formed
// and pairwise distinct (case sensitive).
func ValidateNames(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if err := ValidateName(name); err != nil {
			return fmt.Errorf("name %q: %w", name, err)
		}
		if _, dup := seen[name]; dup {
			return ErrNameTaken
		}
		seen[name] = struct{}{}
	}
	return nil
}

package net

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"matchpoint/server"
)

// Inbound payloads are tagged, schema-validated request types. Anything
// that fails validation is rejected at this boundary with a structured ack;
// engine code never sees a malformed payload.

type envelope struct {
	Type string `json:"type"`
}

type registerInLobbyRequest struct {
	DisplayName string `json:"displayName" validate:"omitempty,playername"`
	DurableID   string `json:"durableId" validate:"omitempty,max=64"`
}

type createRoomRequest struct {
	Game string `json:"gameKind" validate:"required,oneof=paddle reaction"`
	Mode string `json:"executionMode" validate:"required,oneof=local remote"`
}

type requestJoinRoomRequest struct {
	RoomID string `json:"roomId" validate:"required,alphanum,max=12"`
	Game   string `json:"gameKind" validate:"required,oneof=paddle reaction"`
}

type joinMatchRoomRequest struct {
	RoomID    string `json:"roomId" validate:"required,alphanum,max=12"`
	DurableID string `json:"durableId" validate:"omitempty,max=64"`
}

type submitNamesRequest struct {
	Names []string `json:"names" validate:"required,min=1,max=4,dive,playername"`
}

type movePaddleRequest struct {
	Side     string  `json:"side" validate:"omitempty,oneof=left right"`
	Position float64 `json:"position"`
}

type submitKeypressRequest struct {
	Key string `json:"key" validate:"required,max=16"`
}

type ackMessage struct {
	For   string `json:"for,omitempty"`
	Error string `json:"error,omitempty"`
}

type createdRoomMessage struct {
	RoomID string `json:"roomId"`
	Game   string `json:"gameKind"`
	Mode   string `json:"executionMode"`
}

type joinedRoomMessage struct {
	RoomID string `json:"roomId"`
}

type requestNamesMessage struct {
	RoomID string `json:"roomId"`
	Count  int    `json:"count"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	// playername mirrors the seat-manager rule so bad names bounce at the
	// boundary with the same text they would deeper in.
	_ = v.RegisterValidation("playername", func(fl validator.FieldLevel) bool {
		return server.ValidateName(fl.Field().String()) == nil
	})
	return v
}

func decode[T any](v *validator.Validate, raw []byte) (T, error) {
	var req T
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("malformed payload: %w", err)
	}
	if err := v.Struct(&req); err != nil {
		return req, fmt.Errorf("invalid payload: %w", err)
	}
	return req, nil
}

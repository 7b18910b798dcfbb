package net

import (
	"testing"
)

func TestDecodeCreateRoomRequest(t *testing.T) {
	v := newValidator()

	req, err := decode[createRoomRequest](v, []byte(`{"gameKind":"paddle","executionMode":"remote"}`))
	if err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
	if req.Game != "paddle" || req.Mode != "remote" {
		t.Fatalf("unexpected decode %+v", req)
	}

	bad := []string{
		`{"gameKind":"chess","executionMode":"remote"}`,
		`{"gameKind":"paddle","executionMode":"hybrid"}`,
		`{"executionMode":"remote"}`,
		`{"gameKind":`,
	}
	for _, raw := range bad {
		if _, err := decode[createRoomRequest](v, []byte(raw)); err == nil {
			t.Fatalf("payload %s must be rejected", raw)
		}
	}
}

func TestDecodeSubmitNamesRequest(t *testing.T) {
	v := newValidator()

	if _, err := decode[submitNamesRequest](v, []byte(`{"names":["Alice","Bob"]}`)); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	bad := []string{
		`{"names":[]}`,
		`{"names":["Alice","Bob","Cara","Dana","Eve"]}`,
		`{"names":["Alice","no/slashes"]}`,
		`{"names":["Alice",""]}`,
		`{"names":["this display name is far too long to seat"]}`,
	}
	for _, raw := range bad {
		if _, err := decode[submitNamesRequest](v, []byte(raw)); err == nil {
			t.Fatalf("payload %s must be rejected", raw)
		}
	}
}

func TestDecodeLobbyAndMatchRequests(t *testing.T) {
	v := newValidator()

	if _, err := decode[registerInLobbyRequest](v, []byte(`{}`)); err != nil {
		t.Fatalf("anonymous lobby registration must be accepted: %v", err)
	}
	if _, err := decode[registerInLobbyRequest](v, []byte(`{"displayName":"bad!name"}`)); err == nil {
		t.Fatalf("invalid display name must bounce at the boundary")
	}

	req, err := decode[requestJoinRoomRequest](v, []byte(`{"roomId":"ABC234","gameKind":"reaction"}`))
	if err != nil {
		t.Fatalf("valid join request rejected: %v", err)
	}
	if req.RoomID != "ABC234" {
		t.Fatalf("unexpected decode %+v", req)
	}
	if _, err := decode[requestJoinRoomRequest](v, []byte(`{"roomId":"has space","gameKind":"reaction"}`)); err == nil {
		t.Fatalf("room codes are alphanumeric only")
	}

	if _, err := decode[movePaddleRequest](v, []byte(`{"side":"left","position":-2.5}`)); err != nil {
		t.Fatalf("valid paddle move rejected: %v", err)
	}
	if _, err := decode[movePaddleRequest](v, []byte(`{"position":1.0}`)); err != nil {
		t.Fatalf("remote clients omit the side field: %v", err)
	}
	if _, err := decode[movePaddleRequest](v, []byte(`{"side":"middle"}`)); err == nil {
		t.Fatalf("unknown sides must be rejected")
	}

	if _, err := decode[submitKeypressRequest](v, []byte(`{"key":"ArrowUp"}`)); err != nil {
		t.Fatalf("valid keypress rejected: %v", err)
	}
	if _, err := decode[submitKeypressRequest](v, []byte(`{}`)); err == nil {
		t.Fatalf("empty keypress must be rejected")
	}
}

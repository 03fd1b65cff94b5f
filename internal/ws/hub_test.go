package ws

import "testing"

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient(1, nil, ConnInfo{UserID: 7})
	if len(hub.rooms) != 1 {
		t.Fatalf("expected room to be created")
	}
	if hub.RoomSize(1) != 1 {
		t.Fatalf("expected one connection in room")
	}

	hub.RemoveClient(1, nil)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected room to be removed")
	}
}

func TestHubRoomSizeEmpty(t *testing.T) {
	hub := NewHub()

	if hub.RoomSize(42) != 0 {
		t.Fatalf("expected empty room to report zero")
	}
}
